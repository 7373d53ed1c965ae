// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/optic/internal/config"
	"github.com/Thermoquad/optic/internal/monitor"
	"github.com/Thermoquad/optic/pkg/bridge"
	"github.com/Thermoquad/optic/pkg/hal"
)

// buildRegistry creates a HAL for every device, unconnected. Devices are
// registered in the order given.
func buildRegistry(devices []config.DeviceConfig, metrics *monitor.Metrics) (*bridge.Registry, error) {
	reg := bridge.NewRegistry()
	for _, dc := range devices {
		dev, info, err := buildDevice(dc, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", dc.ID, err)
		}
		h, err := hal.New(dev, hal.WithLogger(logger.WithField("device", dc.ID)))
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", dc.ID, err)
		}
		if err := reg.Add(dc.ID, h); err != nil {
			return nil, err
		}
		logger.WithField("device", dc.ID).Infof("Registered %s [%s]", info, dc.Protocol)
	}
	return reg, nil
}

// selectedDevices returns the devices from --config, or the single device
// the connection flags describe
func selectedDevices() ([]config.DeviceConfig, *config.Config, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Devices, cfg, nil
	}

	dc, err := flagDevice()
	if err != nil {
		return nil, nil, err
	}
	cfg := config.Default()
	cfg.Devices = []config.DeviceConfig{dc}
	return cfg.Devices, cfg, nil
}
