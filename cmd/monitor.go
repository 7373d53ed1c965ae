// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/optic/internal/config"
	"github.com/Thermoquad/optic/pkg/transport"
	"github.com/Thermoquad/optic/pkg/visca"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Passively decode VISCA traffic on a line",
	Long: `Listen on a VISCA line without sending anything and decode every frame.

Useful on a tap between a controller and a camera, or on a camera's output
while another program drives it. Decoding reports:
  - Commands and inquiries with their feature names
  - ACK, completion and error replies (error codes by name)
  - Framing errors (stray bytes, overlong frames)
  - Frame and error rates

By default, only error replies and framing errors are displayed. Use
--show-all to display every frame.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", false, "Use terminal UI")
}

// lineEvent is one decoder outcome from the monitored line
type lineEvent struct {
	frame     *visca.StreamFrame
	decodeErr error
}

func runMonitor(cmd *cobra.Command, args []string) error {
	dc, err := flagDevice()
	if err != nil {
		return err
	}
	if dc.Protocol != config.ProtocolVISCA {
		return fmt.Errorf("monitor decodes VISCA only")
	}

	t, connInfo, err := OpenTransport(dc.Transport)
	if err != nil {
		return err
	}
	if err := t.Open(); err != nil {
		return fmt.Errorf("failed to open %s: %v", connInfo, err)
	}
	defer t.Close()

	if useTUI {
		return runMonitorTUI(t, connInfo)
	}
	return runMonitorText(t, connInfo)
}

// readLine decodes the line and hands every frame or framing error to
// emit. Errors before the first good frame are counted, not emitted,
// and reported once through onSync. Returns when the link closes.
func readLine(t transport.Transport, emit func(lineEvent), onSync func(skipped int)) error {
	decoder := visca.NewDecoder()
	synchronized := false
	skipped := 0
	buf := make([]byte, transport.DefaultBufferSize)

	for {
		n, err := t.Read(buf)
		if err != nil {
			switch {
			case errors.Is(err, transport.ErrTimeout):
				continue
			case errors.Is(err, transport.ErrConnectionClosed), errors.Is(err, transport.ErrNotOpen):
				return err
			}
			logger.WithError(err).Warn("Read error")
			continue
		}

		for i := 0; i < n; i++ {
			frame, decodeErr := decoder.DecodeByte(buf[i])
			switch {
			case decodeErr != nil:
				if synchronized {
					emit(lineEvent{decodeErr: decodeErr})
				} else {
					skipped++
				}
			case frame != nil:
				if !synchronized {
					synchronized = true
					onSync(skipped)
				}
				emit(lineEvent{frame: frame})
			}
		}
	}
}

// isErrorReply reports whether a frame is a VISCA error reply
func isErrorReply(frame *visca.StreamFrame) bool {
	if frame.Direction() != visca.DirectionReply {
		return false
	}
	resp, _, err := visca.ParseResponse(frame.Raw)
	return err == nil && resp.Type == visca.ResponseError
}

// printDecodeError prints a framing error in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
}

// printErrorReply prints an error reply in highlighted format
func printErrorReply(frame *visca.StreamFrame) {
	fmt.Printf("\033[1;33m%s\033[0m\n", visca.FormatFrame(frame))
}

func runMonitorText(t transport.Transport, connInfo string) error {
	fmt.Printf("Optic - VISCA Line Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := visca.NewStatistics()
	lineEvents := make(chan lineEvent, 64)
	done := make(chan error, 1)

	go func() {
		done <- readLine(t, func(ev lineEvent) { lineEvents <- ev }, func(skipped int) {
			if skipped > 0 {
				fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", skipped)
			} else {
				fmt.Printf("[SYNC] Synchronized\n\n")
			}
		})
	}()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case ev := <-lineEvents:
			stats.Update(ev.frame, ev.decodeErr)
			switch {
			case ev.decodeErr != nil:
				printDecodeError(ev.decodeErr)
			case isErrorReply(ev.frame):
				printErrorReply(ev.frame)
			case showAll:
				fmt.Println(visca.FormatFrame(ev.frame))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case err := <-done:
			fmt.Println()
			fmt.Print(stats.String())
			if errors.Is(err, transport.ErrConnectionClosed) {
				logger.Info("Connection closed")
				return nil
			}
			return err
		}
	}
}

func runMonitorTUI(t transport.Transport, connInfo string) error {
	m := initialMonitorModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m)

	go func() {
		err := readLine(t, func(ev lineEvent) { p.Send(ev) }, func(skipped int) {
			p.Send(syncMsg{invalidBytes: skipped})
		})
		p.Send(linkClosedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
