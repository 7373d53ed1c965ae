// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/Thermoquad/optic/internal/config"
	"github.com/Thermoquad/optic/internal/monitor"
	"github.com/Thermoquad/optic/pkg/device"
	"github.com/Thermoquad/optic/pkg/hal"
	"github.com/Thermoquad/optic/pkg/transport"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("OPTIC_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// flagDevice describes the device selected by the connection flags
func flagDevice() (config.DeviceConfig, error) {
	dc := config.DeviceConfig{
		ID:       "cli",
		Protocol: protocol,
		VISCA: config.ViscaConfig{
			Broadcast: viscaBroadcast,
			Address:   viscaAddress,
		},
	}

	switch {
	case protocol == config.ProtocolSim:
	case wsURL != "":
		dc.Transport = config.TransportConfig{
			Type:        config.TransportWebSocket,
			URL:         wsURL,
			Username:    wsUsername,
			NoSSLVerify: wsNoSSLVerify,
		}
	case tcpHost != "":
		dc.Transport = config.TransportConfig{Type: config.TransportTCP, Host: tcpHost}
	case portName != "":
		dc.Transport = config.TransportConfig{Type: config.TransportSerial, Port: portName, Baud: baudRate}
	default:
		return dc, fmt.Errorf("one of --port, --host or --url must be specified (or --protocol sim)")
	}
	dc.Transport.ReadTimeout = readTimeout

	if err := dc.Validate(); err != nil {
		return dc, err
	}
	return dc, nil
}

// OpenTransport builds a closed transport for tc and describes it
func OpenTransport(tc config.TransportConfig) (transport.Transport, string, error) {
	switch tc.Type {
	case config.TransportSerial:
		t := transport.NewSerial(transport.SerialConfig{
			Port:        tc.Port,
			BaudRate:    tc.Baud,
			ReadTimeout: tc.ReadTimeout,
		})
		return t, fmt.Sprintf("Serial: %s @ %d baud", tc.Port, tc.Baud), nil

	case config.TransportTCP:
		t := transport.NewTCP(transport.TCPConfig{
			Address:     tc.Host,
			ReadTimeout: tc.ReadTimeout,
		})
		return t, fmt.Sprintf("TCP: %s", tc.Host), nil

	case config.TransportWebSocket:
		password := ""
		if tc.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		t := transport.NewWebSocket(transport.WebSocketConfig{
			URL:           tc.URL,
			Username:      tc.Username,
			Password:      password,
			SkipSSLVerify: tc.NoSSLVerify,
			ReadTimeout:   tc.ReadTimeout,
		})
		return t, fmt.Sprintf("WebSocket: %s", tc.URL), nil

	default:
		return nil, "", fmt.Errorf("unknown transport %q", tc.Type)
	}
}

// buildDevice creates the device dc describes. With metrics set, the
// transport is instrumented under the device id.
func buildDevice(dc config.DeviceConfig, log logrus.FieldLogger, metrics *monitor.Metrics) (hal.Device, string, error) {
	if dc.Protocol == config.ProtocolSim {
		zoom, focus := dc.ZoomRange, dc.FocusRange
		if zoom == (hal.Range{}) {
			zoom = device.DefaultViscaZoomRange
		}
		if focus == (hal.Range{}) {
			focus = device.DefaultViscaFocusRange
		}
		return device.NewSimulated(dc.ID, zoom, focus), "Simulated", nil
	}

	t, info, err := OpenTransport(dc.Transport)
	if err != nil {
		return nil, "", err
	}
	if metrics != nil {
		t = metrics.InstrumentTransport(t, dc.ID)
	}

	devLog := log.WithField("device", dc.ID)
	switch dc.Protocol {
	case config.ProtocolVISCA:
		return device.NewViscaCamera(t, device.ViscaConfig{
			ZoomRange:  dc.ZoomRange,
			FocusRange: dc.FocusRange,
			Broadcast:  dc.VISCA.Broadcast,
			Address:    dc.VISCA.Address,
		}, devLog), info, nil

	case config.ProtocolITL:
		return device.NewThermalLens(t, device.LensConfig{
			ZoomRange:   dc.ZoomRange,
			FocusRange:  dc.FocusRange,
			Source:      dc.ITL.Source,
			Destination: dc.ITL.Destination,
		}, devLog), info, nil

	default:
		return nil, "", fmt.Errorf("unknown protocol %q", dc.Protocol)
	}
}

// openHAL builds and connects the device selected by the flags
func openHAL() (*hal.HAL, string, error) {
	dc, err := flagDevice()
	if err != nil {
		return nil, "", err
	}

	dev, info, err := buildDevice(dc, logger, nil)
	if err != nil {
		return nil, "", err
	}

	h, err := hal.New(dev, hal.WithLogger(logger.WithField("device", dc.ID)))
	if err != nil {
		return nil, "", err
	}
	if err := h.Connect(); err != nil {
		return nil, "", fmt.Errorf("connect (%s): %w", info, err)
	}
	return h, fmt.Sprintf("%s [%s]", info, dc.Protocol), nil
}
