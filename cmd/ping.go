// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/optic/internal/config"
	"github.com/Thermoquad/optic/pkg/itl"
	"github.com/Thermoquad/optic/pkg/visca"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure camera round-trip time",
	Long: `Send identity queries to the camera and time each reply.

VISCA cameras get a device-type inquiry after address assignment; ITL lenses
get a version request. This verifies that the link is up, that the camera is
powered and that replies decode.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", time.Second, "Delay between pings")
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	dc, err := flagDevice()
	if err != nil {
		return err
	}

	var probe func() (string, error)
	var connect func() error

	t, connInfo, err := OpenTransport(dc.Transport)
	if err != nil {
		return err
	}

	switch dc.Protocol {
	case config.ProtocolVISCA:
		opts := []visca.Option{visca.WithLogger(logger), visca.WithBroadcast(dc.VISCA.Broadcast)}
		if dc.VISCA.Address != 0 {
			opts = append(opts, visca.WithAddress(dc.VISCA.Address))
		}
		cam := visca.NewCamera(t, opts...)
		connect = func() error {
			if dc.VISCA.Broadcast || dc.VISCA.Address != 0 {
				return nil
			}
			return cam.SetAddress()
		}
		probe = func() (string, error) {
			info, err := cam.CameraInfo()
			return info.String(), err
		}
	case config.ProtocolITL:
		lens := itl.NewLens(itl.NewEngine(t, itl.WithLogger(logger), itl.WithNodes(dc.ITL.Source, dc.ITL.Destination)))
		connect = func() error { return nil }
		probe = lens.Version
	default:
		return fmt.Errorf("ping needs --protocol visca or itl")
	}

	if err := t.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer t.Close()

	fmt.Printf("Optic - Ping Test\n")
	fmt.Printf("Connection: %s [%s]\n", connInfo, dc.Protocol)
	fmt.Printf("Timeout: %s per ping\n", readTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	if err := connect(); err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	successCount := 0
	var totalRTT, minRTT, maxRTT time.Duration

	for i := 1; i <= pingCount; i++ {
		start := time.Now()
		ident, err := probe()
		rtt := time.Since(start)

		if err != nil {
			fmt.Printf("Ping %d: \033[1;31mFAILED\033[0m (%v)\n", i, err)
		} else {
			successCount++
			totalRTT += rtt
			if minRTT == 0 || rtt < minRTT {
				minRTT = rtt
			}
			if rtt > maxRTT {
				maxRTT = rtt
			}
			fmt.Printf("Ping %d: reply in %v - %s\n", i, rtt.Round(time.Microsecond), ident)
		}

		if i < pingCount {
			time.Sleep(pingInterval)
		}
	}

	fmt.Printf("\n--- ping summary ---\n")
	fmt.Printf("%d sent, %d received, %.0f%% loss\n",
		pingCount, successCount, float64(pingCount-successCount)/float64(pingCount)*100)
	if successCount > 0 {
		avg := totalRTT / time.Duration(successCount)
		fmt.Printf("rtt min/avg/max = %v/%v/%v\n",
			minRTT.Round(time.Microsecond), avg.Round(time.Microsecond), maxRTT.Round(time.Microsecond))
	}

	if successCount < pingCount {
		os.Exit(1)
	}
	return nil
}
