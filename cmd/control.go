// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/optic/pkg/bridge"
	"github.com/Thermoquad/optic/pkg/hal"
)

var controlPollInterval time.Duration

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling cameras",
	Long: `Control cameras via an interactive terminal UI.

Without --config, the camera selected by the connection flags is controlled.
With --config, every device in the file is listed and can be selected.

Features:
  - Live zoom, focus, autofocus and stabilization readout
  - Zoom and focus entry (0-100)
  - Autofocus and stabilization toggles
  - Event logging
  - Automatic reconnection on connection loss

Tab cycles between the device list and the controls. Enter applies the
focused control.`,
	Args: cobra.NoArgs,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().DurationVar(&controlPollInterval, "poll", time.Second, "Status poll interval")
}

// controller runs device calls for the TUI, polls the selected device
// and reconnects it when it stops answering
type controller struct {
	srv *bridge.Server
	ids []string
	p   *tea.Program

	mu       sync.RWMutex
	selected string

	done chan struct{}
}

func (c *controller) getSelected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

func (c *controller) setSelected(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = id
}

// execute runs one operation through the bridge, which serializes calls
// per device and bounds them with its timeout
func (c *controller) execute(req bridge.Request) bridge.Response {
	return c.srv.Execute(context.Background(), req)
}

// tuiLogHook forwards log entries to the event log
type tuiLogHook struct {
	p *tea.Program
}

func (h *tuiLogHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}

func (h *tuiLogHook) Fire(entry *logrus.Entry) error {
	msg := entry.Message
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	if dev, ok := entry.Data["device"]; ok {
		msg = fmt.Sprintf("[%v] %s", dev, msg)
	}
	h.p.Send(logLineMsg{message: msg, isError: entry.Level <= logrus.WarnLevel})
	return nil
}

func runControl(cmd *cobra.Command, args []string) error {
	devices, cfg, err := selectedDevices()
	if err != nil {
		return err
	}

	reg, err := buildRegistry(devices, nil)
	if err != nil {
		return err
	}
	defer reg.DisconnectAll()

	c := &controller{
		ids:  reg.IDs(),
		done: make(chan struct{}),
	}
	c.srv = bridge.New(reg, bridge.Options{
		CallTimeout: cfg.Server.CallTimeout,
		Log:         logger,
	})
	c.setSelected(c.ids[0])

	m := initialControlModel(c)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	c.p = p

	// Log lines go to the event log while the TUI owns the terminal
	logger.AddHook(&tuiLogHook{p: p})
	logger.SetOutput(io.Discard)

	go c.connectAll()
	go c.pollLoop()

	_, err = p.Run()
	close(c.done)
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// connectAll connects every device once at startup
func (c *controller) connectAll() {
	for _, id := range c.ids {
		resp := c.execute(bridge.Request{Device: id, Op: bridge.OpConnect})
		c.p.Send(connectResultMsg{device: id, resp: resp})
	}
}

// pollLoop reads the selected device's state every interval. A device
// that fails a poll with a device or timeout error is reconnected.
func (c *controller) pollLoop() {
	ticker := time.NewTicker(controlPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		id := c.getSelected()
		status, lost := c.poll(id)
		c.p.Send(status)

		if lost {
			c.p.Send(connectionLostMsg{device: id})
			if !c.reconnect(id) {
				return
			}
		}
	}
}

var capabilityByName = map[string]hal.Capability{
	hal.CapabilityZoom.String():          hal.CapabilityZoom,
	hal.CapabilityFocus.String():         hal.CapabilityFocus,
	hal.CapabilityAutoFocus.String():     hal.CapabilityAutoFocus,
	hal.CapabilityInfo.String():          hal.CapabilityInfo,
	hal.CapabilityStabilization.String(): hal.CapabilityStabilization,
}

// poll collects one status snapshot. lost reports a device that is
// connected but no longer answering.
func (c *controller) poll(id string) (deviceStatusMsg, bool) {
	status := deviceStatusMsg{device: id, time: time.Now()}

	caps := c.execute(bridge.Request{Device: id, Op: bridge.OpCapabilities})
	if !caps.OK {
		status.err = caps.Error
		return status, false
	}
	status.connected = true
	status.capabilities = caps.Capabilities

	read := func(op string) (bridge.Response, bool) {
		resp := c.execute(bridge.Request{Device: id, Op: op})
		if !resp.OK {
			status.err = resp.Error
			return resp, resp.Status == http.StatusBadGateway || resp.Status == http.StatusGatewayTimeout
		}
		return resp, false
	}

	have := hal.CapabilityList{}
	for _, name := range caps.Capabilities {
		if cp, ok := capabilityByName[name]; ok {
			have = append(have, cp)
		}
	}

	if have.Has(hal.CapabilityZoom) {
		resp, lost := read(bridge.OpGetZoom)
		if lost {
			return status, true
		}
		status.zoom = resp.Value
	}
	if have.Has(hal.CapabilityFocus) {
		resp, lost := read(bridge.OpGetFocus)
		if lost {
			return status, true
		}
		status.focus = resp.Value
	}
	if have.Has(hal.CapabilityAutoFocus) {
		resp, lost := read(bridge.OpGetAutoFocus)
		if lost {
			return status, true
		}
		status.autoFocus = resp.Enabled
	}
	if have.Has(hal.CapabilityStabilization) {
		resp, lost := read(bridge.OpGetStabilization)
		if lost {
			return status, true
		}
		status.stabilization = resp.Enabled
	}
	return status, false
}

// reconnect retries the device with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (c *controller) reconnect(id string) bool {
	c.execute(bridge.Request{Device: id, Op: bridge.OpDisconnect})

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-c.done:
			return false
		case <-time.After(backoff):
		}

		resp := c.execute(bridge.Request{Device: id, Op: bridge.OpConnect})
		if resp.OK {
			c.p.Send(reconnectedMsg{device: id})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// send runs one user command off the UI goroutine
func (c *controller) send(req bridge.Request) tea.Cmd {
	return func() tea.Msg {
		return commandResultMsg{req: req, resp: c.execute(req)}
	}
}
