// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/optic/internal/config"
	"github.com/Thermoquad/optic/pkg/transport"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// TCP connection flags
	tcpHost string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Device flags
	protocol       string
	readTimeout    time.Duration
	viscaAddress   uint8
	viscaBroadcast bool

	// Server config file
	configPath string

	// Logging flags
	logLevel  string
	logFormat string

	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "optic",
	Short: "Camera zoom and focus control",
	Long: `Optic - Control VISCA block cameras and ITL thermal lenses.

Every camera is driven through one abstraction: zoom and focus are set and
read as 0-100, whatever the native range of the device.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  TCP:       --host 192.168.0.90:5678
  WebSocket: --url ws://host/path [--username user]

Protocols (--protocol):
  visca  Sony-style block cameras (default)
  itl    ITL motorized lenses on MWIR thermal cameras
  sim    in-memory simulated camera, no hardware needed

For WebSocket authentication, the password is read from the OPTIC_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(config.LogConfig{Level: logLevel, Format: logFormat})
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	// TCP connection flags
	rootCmd.PersistentFlags().StringVar(&tcpHost, "host", "", "TCP serial server (host:port)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Device flags
	rootCmd.PersistentFlags().StringVar(&protocol, "protocol", config.ProtocolVISCA, "Camera protocol: visca, itl or sim")
	rootCmd.PersistentFlags().DurationVar(&readTimeout, "timeout", transport.DefaultReadTimeout, "Reply timeout")
	rootCmd.PersistentFlags().Uint8Var(&viscaAddress, "address", 0, "Fixed VISCA camera address (0 runs address assignment)")
	rootCmd.PersistentFlags().BoolVar(&viscaBroadcast, "broadcast", false, "Send VISCA commands as broadcast")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (serve)")

	// Logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

// setupLogger applies level and format to the shared logger
func setupLogger(cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", cfg.Level)
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		return fmt.Errorf("invalid log format %q (use text or json)", cfg.Format)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
