// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/optic/pkg/bridge"
	"github.com/Thermoquad/optic/pkg/hal"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusDeviceList = iota
	focusZoomInput
	focusFocusInput
	focusAutoFocusButton
	focusStabilizeButton
)

const listWidth = 30

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// deviceItem is one configured camera in the device list
type deviceItem struct {
	id    string
	state string
}

// Implement list.Item interface
func (d deviceItem) Title() string       { return d.id }
func (d deviceItem) Description() string { return d.state }
func (d deviceItem) FilterValue() string { return d.id }

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctl *controller

	// Device tracking
	deviceList list.Model
	status     map[string]deviceStatusMsg
	lost       map[string]bool

	// Controls
	zoomInput    textinput.Model
	focusInput   textinput.Model
	focusedField int

	// Event log
	eventLog      []logEntry
	maxLogEntries int

	// UI state
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type deviceStatusMsg struct {
	device        string
	time          time.Time
	connected     bool
	capabilities  []string
	zoom          *int
	focus         *int
	autoFocus     *bool
	stabilization *bool
	err           string
}

type connectResultMsg struct {
	device string
	resp   bridge.Response
}

type commandResultMsg struct {
	req  bridge.Request
	resp bridge.Response
}

type connectionLostMsg struct {
	device string
}

type reconnectedMsg struct {
	device string
}

type logLineMsg struct {
	message string
	isError bool
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func newPositionInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "0-100"
	ti.CharLimit = 3
	ti.Width = 5
	ti.Validate = func(s string) error {
		for _, r := range s {
			if r < '0' || r > '9' {
				return fmt.Errorf("digits only")
			}
		}
		return nil
	}
	return ti
}

func initialControlModel(ctl *controller) controlModel {
	items := make([]list.Item, len(ctl.ids))
	for i, id := range ctl.ids {
		items[i] = deviceItem{id: id, state: "connecting..."}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	deviceList := list.New(items, delegate, listWidth, 10)
	deviceList.Title = "Cameras"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(false)

	return controlModel{
		ctl:           ctl,
		deviceList:    deviceList,
		status:        make(map[string]deviceStatusMsg),
		lost:          make(map[string]bool),
		zoomInput:     newPositionInput(),
		focusInput:    newPositionInput(),
		focusedField:  focusDeviceList,
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return nil
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.deviceList, _ = m.deviceList.Update(msg)
			m.syncSelection()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case deviceStatusMsg:
		m.status[msg.device] = msg
		m.setDeviceState(msg.device, describeStatus(msg))

	case connectResultMsg:
		if msg.resp.OK {
			m.addLogEntry(fmt.Sprintf("[%s] Connected", msg.device), false)
			m.setDeviceState(msg.device, "connected")
		} else {
			m.addLogEntry(fmt.Sprintf("[%s] Connect failed: %s", msg.device, msg.resp.Error), true)
			m.setDeviceState(msg.device, "offline")
		}

	case commandResultMsg:
		m.handleCommandResult(msg)

	case connectionLostMsg:
		m.lost[msg.device] = true
		m.addLogEntry(fmt.Sprintf("[%s] Connection lost, reconnecting...", msg.device), true)
		m.setDeviceState(msg.device, "reconnecting...")

	case reconnectedMsg:
		delete(m.lost, msg.device)
		m.addLogEntry(fmt.Sprintf("[%s] Reconnected", msg.device), false)
		m.setDeviceState(msg.device, "connected")

	case logLineMsg:
		m.addLogEntry(msg.message, msg.isError)
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.cycleFocus(1)
		return m, nil
	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil
	case "enter":
		return m.handleEnter()
	}

	var cmd tea.Cmd
	switch m.focusedField {
	case focusZoomInput:
		m.zoomInput, cmd = m.zoomInput.Update(msg)
		return m, cmd
	case focusFocusInput:
		m.focusInput, cmd = m.focusInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "c":
		return m, m.ctl.send(bridge.Request{Device: m.selectedID(), Op: bridge.OpConnect})
	case "d":
		return m, m.ctl.send(bridge.Request{Device: m.selectedID(), Op: bridge.OpDisconnect})
	case "i":
		return m, m.ctl.send(bridge.Request{Device: m.selectedID(), Op: bridge.OpInfo})
	}

	if m.focusedField == focusDeviceList {
		m.deviceList, cmd = m.deviceList.Update(msg)
		m.syncSelection()
	}
	return m, cmd
}

func (m *controlModel) cycleFocus(delta int) {
	const fields = focusStabilizeButton + 1
	m.focusedField = (m.focusedField + delta + fields) % fields

	m.zoomInput.Blur()
	m.focusInput.Blur()
	switch m.focusedField {
	case focusZoomInput:
		m.zoomInput.Focus()
	case focusFocusInput:
		m.focusInput.Focus()
	}
}

func (m controlModel) handleEnter() (tea.Model, tea.Cmd) {
	id := m.selectedID()
	if m.lost[id] {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}
	st := m.status[id]

	switch m.focusedField {
	case focusDeviceList:
		if !st.connected {
			return m, m.ctl.send(bridge.Request{Device: id, Op: bridge.OpConnect})
		}

	case focusZoomInput, focusFocusInput:
		input, op := &m.zoomInput, bridge.OpSetZoom
		if m.focusedField == focusFocusInput {
			input, op = &m.focusInput, bridge.OpSetFocus
		}
		v, err := strconv.Atoi(input.Value())
		if err != nil {
			m.addLogEntry(fmt.Sprintf("Invalid position %q", input.Value()), true)
			return m, nil
		}
		input.SetValue("")
		return m, m.ctl.send(bridge.Request{Device: id, Op: op, Value: &v})

	case focusAutoFocusButton:
		enable := st.autoFocus == nil || !*st.autoFocus
		return m, m.ctl.send(bridge.Request{Device: id, Op: bridge.OpSetAutoFocus, Enabled: &enable})

	case focusStabilizeButton:
		enable := st.stabilization == nil || !*st.stabilization
		return m, m.ctl.send(bridge.Request{Device: id, Op: bridge.OpSetStabilization, Enabled: &enable})
	}

	return m, nil
}

func (m *controlModel) handleCommandResult(msg commandResultMsg) {
	desc := msg.req.Op
	switch {
	case msg.req.Value != nil:
		desc = fmt.Sprintf("%s %d", desc, *msg.req.Value)
	case msg.req.Enabled != nil:
		desc = fmt.Sprintf("%s %s", desc, onOff(*msg.req.Enabled))
	}

	if !msg.resp.OK {
		m.addLogEntry(fmt.Sprintf("[%s] %s: %s", msg.req.Device, desc, msg.resp.Error), true)
		return
	}

	switch msg.req.Op {
	case bridge.OpInfo:
		m.addLogEntry(fmt.Sprintf("[%s] %s", msg.req.Device, msg.resp.Text), false)
	case bridge.OpConnect:
		m.setDeviceState(msg.req.Device, "connected")
		m.addLogEntry(fmt.Sprintf("[%s] Connected", msg.req.Device), false)
	case bridge.OpDisconnect:
		st := m.status[msg.req.Device]
		st.connected = false
		m.status[msg.req.Device] = st
		m.setDeviceState(msg.req.Device, "disconnected")
		m.addLogEntry(fmt.Sprintf("[%s] Disconnected", msg.req.Device), false)
	default:
		m.addLogEntry(fmt.Sprintf("[%s] %s: ok", msg.req.Device, desc), false)
	}
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	var s strings.Builder

	// Header
	s.WriteString(titleStyle.Render("OPTIC CONTROL"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render("| q=quit Tab=switch Enter=apply c=connect d=disconnect i=info"))
	s.WriteString("\n\n")

	// Device list and control panel side by side
	listBox := boxStyle
	if m.focusedField == focusDeviceList {
		listBox = focusedBoxStyle
	}
	panelBox := boxStyle
	if m.focusedField != focusDeviceList {
		panelBox = focusedBoxStyle
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		listBox.Render(m.deviceList.View()),
		" ",
		panelBox.Width(m.panelWidth()).Render(m.renderControlPanel()),
	)
	s.WriteString(top)
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog(lipgloss.Height(top)))
	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) panelWidth() int {
	w := m.width - listWidth - 8
	if w < 30 {
		w = 30
	}
	return w
}

func (m controlModel) renderControlPanel() string {
	buttonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12")).
		Padding(0, 2)

	focusedButtonStyle := buttonStyle.
		Background(lipgloss.Color("10"))

	id := m.selectedID()
	st, seen := m.status[id]

	var s strings.Builder
	s.WriteString(labelStyle.Render(id))
	s.WriteString("\n")

	switch {
	case m.lost[id]:
		s.WriteString(warningStyle.Render("Reconnecting..."))
		return s.String()
	case !seen:
		s.WriteString(headerStyle.Render("Waiting for status..."))
		return s.String()
	case !st.connected:
		s.WriteString(errorStyle.Render("Not connected"))
		if st.err != "" {
			s.WriteString("\n")
			s.WriteString(headerStyle.Render(st.err))
		}
		s.WriteString("\n")
		s.WriteString(headerStyle.Render("Press c or Enter on the list to connect"))
		return s.String()
	}

	s.WriteString(headerStyle.Render(fmt.Sprintf("Capabilities: %s", strings.Join(st.capabilities, ", "))))
	s.WriteString("\n\n")

	button := func(field int, label string) string {
		if m.focusedField == field {
			return focusedButtonStyle.Render(label)
		}
		return buttonStyle.Render(label)
	}

	has := func(c hal.Capability) bool {
		for _, name := range st.capabilities {
			if name == c.String() {
				return true
			}
		}
		return false
	}

	if has(hal.CapabilityZoom) {
		s.WriteString(fmt.Sprintf("%s %s   %s\n",
			labelStyle.Render("Zoom:"), valueStyle.Render(formatPosition(st.zoom)), m.zoomInput.View()))
	}
	if has(hal.CapabilityFocus) {
		s.WriteString(fmt.Sprintf("%s %s  %s\n",
			labelStyle.Render("Focus:"), valueStyle.Render(formatPosition(st.focus)), m.focusInput.View()))
	}
	s.WriteString("\n")

	if has(hal.CapabilityAutoFocus) {
		s.WriteString(fmt.Sprintf("%s %s  ", button(focusAutoFocusButton, "Autofocus"), valueStyle.Render(formatToggle(st.autoFocus))))
	}
	if has(hal.CapabilityStabilization) {
		s.WriteString(fmt.Sprintf("%s %s", button(focusStabilizeButton, "Stabilize"), valueStyle.Render(formatToggle(st.stabilization))))
	}
	s.WriteString("\n\n")

	updated := fmt.Sprintf("Updated %s", st.time.Format("15:04:05"))
	if st.err != "" {
		s.WriteString(errorStyle.Render(st.err))
		s.WriteString("\n")
	}
	s.WriteString(headerStyle.Render(updated))
	return s.String()
}

func (m controlModel) renderEventLog(used int) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - used - 7
	if logHeight < 3 {
		logHeight = 3
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(renderLog(m.eventLog, logHeight)))
	return s.String()
}

func formatPosition(v *int) string {
	if v == nil {
		return "  -"
	}
	return fmt.Sprintf("%3d", *v)
}

func formatToggle(b *bool) string {
	if b == nil {
		return "-"
	}
	return onOff(*b)
}

// describeStatus is the one-line list description of a device
func describeStatus(st deviceStatusMsg) string {
	if !st.connected {
		return "offline"
	}
	parts := []string{}
	if st.zoom != nil {
		parts = append(parts, fmt.Sprintf("zoom %d", *st.zoom))
	}
	if st.focus != nil {
		parts = append(parts, fmt.Sprintf("focus %d", *st.focus))
	}
	if len(parts) == 0 {
		return "connected"
	}
	return strings.Join(parts, ", ")
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m controlModel) selectedID() string {
	if item, ok := m.deviceList.SelectedItem().(deviceItem); ok {
		return item.id
	}
	return m.ctl.ids[0]
}

// syncSelection points the poller at the selected device
func (m *controlModel) syncSelection() {
	m.ctl.setSelected(m.selectedID())
}

func (m *controlModel) setDeviceState(id, state string) {
	for i, item := range m.deviceList.Items() {
		if d, ok := item.(deviceItem); ok && d.id == id {
			d.state = state
			m.deviceList.SetItem(i, d)
			return
		}
	}
}

func (m *controlModel) updateListSize() {
	h := m.height / 2
	if h < 6 {
		h = 6
	}
	m.deviceList.SetSize(listWidth, h)
}
