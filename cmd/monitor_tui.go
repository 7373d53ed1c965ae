// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/optic/pkg/visca"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// Line monitor TUI model
type monitorModel struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *visca.Statistics
	eventLog      []logEntry
	maxLogEntries int
	synchronized  bool
	invalidBytes  int
	linkClosed    bool
	lastCommand   string
	lastReply     string
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type syncMsg struct {
	invalidBytes int
}
type linkClosedMsg struct {
	err error
}

func initialMonitorModel(connInfo string, statsInterval int, showAll bool) monitorModel {
	return monitorModel{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         visca.NewStatistics(),
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.invalidBytes = msg.invalidBytes
		if msg.invalidBytes > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", msg.invalidBytes), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case linkClosedMsg:
		m.linkClosed = true
		m.addLogEntry(fmt.Sprintf("Link closed: %v", msg.err), true)

	case lineEvent:
		m.stats.Update(msg.frame, msg.decodeErr)
		if msg.decodeErr != nil {
			m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", msg.decodeErr), true)
			break
		}

		desc := visca.DescribeFrame(msg.frame.Raw)
		if msg.frame.Direction() == visca.DirectionCommand {
			m.lastCommand = fmt.Sprintf("%s  % X", desc, msg.frame.Raw)
		} else {
			m.lastReply = fmt.Sprintf("%s  % X", desc, msg.frame.Raw)
		}

		if isErrorReply(msg.frame) {
			m.addLogEntry(desc, true)
		} else if m.showAll {
			m.addLogEntry(fmt.Sprintf("%s %s", msg.frame.Direction(), desc), false)
		}
	}

	return m, nil
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
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

// Styles shared by the monitor and control screens
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("OPTIC - VISCA LINE MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Press 'q' to quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.linkClosed:
		s.WriteString(errorStyle.Render("✗ Link closed"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(valueStyle.Render("✓ Synchronized"))
		if m.invalidBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid bytes)", m.invalidBytes)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	m.stats.CalculateRates()
	st := m.stats

	stats := strings.Builder{}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", st.TotalFrames)),
		labelStyle.Render("Commands:"), valueStyle.Render(fmt.Sprintf("%d", st.Commands)),
		labelStyle.Render("Inquiries:"), valueStyle.Render(fmt.Sprintf("%d", st.Inquiries)),
	))
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("ACK:"), valueStyle.Render(fmt.Sprintf("%d", st.Acks)),
		labelStyle.Render("Completions:"), valueStyle.Render(fmt.Sprintf("%d", st.Completions)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", st.Errors)),
	))

	if len(st.ErrorCodes) > 0 {
		codes := make([]int, 0, len(st.ErrorCodes))
		for code := range st.ErrorCodes {
			codes = append(codes, int(code))
		}
		sort.Ints(codes)
		for _, code := range codes {
			stats.WriteString(fmt.Sprintf("  %s %s\n",
				headerStyle.Render(fmt.Sprintf("0x%02X %s:", code, visca.ErrorReason(byte(code)))),
				errorStyle.Render(fmt.Sprintf("%d", st.ErrorCodes[byte(code)])),
			))
		}
	}
	if st.DecodeErrors > 0 {
		stats.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Decode Errors:"), errorStyle.Render(fmt.Sprintf("%d", st.DecodeErrors)),
		))
	}

	errRate := valueStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
	if st.ErrorRate > 0 {
		errRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
	}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", st.FrameRate)),
		labelStyle.Render("Error Rate:"), errRate,
	))

	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Last traffic
	if m.lastCommand != "" || m.lastReply != "" {
		traffic := strings.Builder{}
		traffic.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("TX:"), m.lastCommand))
		traffic.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("RX:"), m.lastReply))
		s.WriteString(boxStyle.Render(traffic.String()))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 17
	if logHeight < 5 {
		logHeight = 5
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(renderLog(m.eventLog, logHeight)))

	return s.String()
}

// renderLog renders the newest entries that fit in height lines
func renderLog(entries []logEntry, height int) string {
	if len(entries) == 0 {
		return headerStyle.Render("  (no events yet)")
	}

	start := len(entries) - height
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, entry := range entries[start:] {
		timestamp := headerStyle.Render(entry.timestamp.Format("15:04:05.000"))
		if entry.isError {
			b.WriteString(fmt.Sprintf("%s %s\n", timestamp, errorStyle.Render("✗ "+entry.message)))
		} else {
			b.WriteString(fmt.Sprintf("%s %s\n", timestamp, warningStyle.Render("ℹ "+entry.message)))
		}
	}
	return b.String()
}
