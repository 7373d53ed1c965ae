// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/optic/internal/events"
	"github.com/Thermoquad/optic/internal/monitor"
	"github.com/Thermoquad/optic/pkg/bridge"
)

var (
	serveListen    string
	serveNoConnect bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve cameras over HTTP and WebSocket",
	Long: `Run the camera bridge: every configured camera is exposed through a REST
API and a CBOR WebSocket endpoint.

Routes:
  GET  /health                          liveness
  GET  /metrics                         Prometheus metrics (server.metrics)
  GET  /api/devices                     devices and their state
  POST /api/devices/:id/connect         open the camera
  GET  /api/devices/:id/zoom            read zoom (0-100)
  PUT  /api/devices/:id/zoom            {"value": 50}
  ...                                   focus, autofocus, stabilization, info
  GET  /ws                              CBOR request/response stream

Without --config, the camera selected by the connection flags is served as
device "cli". With redis.enabled, state changes are published to Redis.

Examples:
  optic serve --config optic.yaml
  optic serve --protocol sim --listen :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides server.listen)")
	serveCmd.Flags().BoolVar(&serveNoConnect, "no-connect", false, "Do not connect devices at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	devices, cfg, err := selectedDevices()
	if err != nil {
		return err
	}

	// File settings apply unless the flag was given
	logCfg := cfg.Log
	if cmd.Flags().Changed("log-level") {
		logCfg.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		logCfg.Format = logFormat
	}
	if err := setupLogger(logCfg); err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *monitor.Metrics
	if cfg.Server.Metrics {
		metrics = monitor.New()
		go metrics.RunRuntimeMonitor(ctx, 10*time.Second, logger)
	}

	reg, err := buildRegistry(devices, metrics)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Redis.Enabled {
		rp, err := events.NewRedisPublisher(ctx, events.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			History:  cfg.Redis.History,
		}, logger)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		publisher = rp
	}
	defer publisher.Close()

	srv := bridge.New(reg, bridge.Options{
		CallTimeout: cfg.Server.CallTimeout,
		Metrics:     metrics,
		Publisher:   publisher,
		Log:         logger,
	})

	if !serveNoConnect {
		for _, id := range reg.IDs() {
			resp := srv.Execute(ctx, bridge.Request{Device: id, Op: bridge.OpConnect})
			if !resp.OK {
				logger.WithField("device", id).Warnf("Not connected at startup: %s", resp.Error)
			}
		}
	}

	logger.Infof("Optic %s serving %d device(s) on %s", rootCmd.Version, len(devices), cfg.Server.Listen)
	err = srv.Run(ctx, cfg.Server.Listen)

	logger.Info("Shutting down, disconnecting devices")
	if derr := reg.DisconnectAll(); derr != nil {
		logger.WithError(derr).Warn("Disconnect failed")
	}
	return err
}
