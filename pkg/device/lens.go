// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/optic/pkg/hal"
	"github.com/Thermoquad/optic/pkg/itl"
	"github.com/Thermoquad/optic/pkg/transport"
)

// DefaultLensRange is the native travel of an ITL lens axis
var DefaultLensRange = hal.Range{Min: 0, Max: 10000}

// LensConfig configures an ITL thermal lens
type LensConfig struct {
	ZoomRange   hal.Range
	FocusRange  hal.Range
	Source      uint8
	Destination uint8
}

// ThermalLens is the motorized lens of an MWIR camera, driven over ITL. It
// has no stabilization.
type ThermalLens struct {
	t    transport.Transport
	lens *itl.Lens
	cfg  LensConfig
	log  logrus.FieldLogger
}

// NewThermalLens creates a lens on t. Zero ranges and node ids take the
// defaults.
func NewThermalLens(t transport.Transport, cfg LensConfig, log logrus.FieldLogger) *ThermalLens {
	if cfg.ZoomRange == (hal.Range{}) {
		cfg.ZoomRange = DefaultLensRange
	}
	if cfg.FocusRange == (hal.Range{}) {
		cfg.FocusRange = DefaultLensRange
	}
	if cfg.Source == 0 {
		cfg.Source = itl.DefaultSource
	}
	if cfg.Destination == 0 {
		cfg.Destination = itl.DefaultDestination
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	engine := itl.NewEngine(t, itl.WithLogger(log), itl.WithNodes(cfg.Source, cfg.Destination))
	return &ThermalLens{
		t:    t,
		lens: itl.NewLens(engine),
		cfg:  cfg,
		log:  log,
	}
}

// Connect opens the link and checks that the lens answers
func (l *ThermalLens) Connect() error {
	if err := l.t.Open(); err != nil {
		return err
	}
	version, err := l.lens.Version()
	if err != nil {
		if cerr := l.t.Close(); cerr != nil {
			l.log.WithError(cerr).Warn("ITL line close failed")
		}
		return fmt.Errorf("lens not responding: %w", err)
	}
	l.log.WithField("version", version).Info("ITL lens connected")

	l.checkLimits("zoom", l.cfg.ZoomRange, l.lens.ZoomLimits)
	l.checkLimits("focus", l.cfg.FocusRange, l.lens.FocusLimits)
	return nil
}

// checkLimits compares a configured range with the travel the lens
// reports. A mismatch is logged; the configured range stays in force.
func (l *ThermalLens) checkLimits(axis string, configured hal.Range, query func() (uint32, uint32, error)) {
	lo, hi, err := query()
	if err != nil {
		l.log.WithError(err).WithField("axis", axis).Debug("Lens limits unavailable")
		return
	}
	reported := hal.Range{Min: lo, Max: hi}
	if configured.Min < lo || configured.Max > hi {
		l.log.WithFields(logrus.Fields{
			"axis":       axis,
			"configured": configured.String(),
			"lens":       reported.String(),
		}).Warn("Configured range exceeds lens travel")
	}
}

// Disconnect closes the link
func (l *ThermalLens) Disconnect() error {
	return l.t.Close()
}

// SetZoom drives zoom to a native position
func (l *ThermalLens) SetZoom(native uint32) error { return l.lens.SetZoom(native) }

// Zoom returns the native zoom position
func (l *ThermalLens) Zoom() (uint32, error) { return l.lens.Zoom() }

// ZoomLimits returns the configured zoom travel
func (l *ThermalLens) ZoomLimits() (hal.Range, error) { return l.cfg.ZoomRange, nil }

// SetFocus drives focus to a native position
func (l *ThermalLens) SetFocus(native uint32) error { return l.lens.SetFocus(native) }

// Focus returns the native focus position
func (l *ThermalLens) Focus() (uint32, error) { return l.lens.Focus() }

// FocusLimits returns the configured focus travel
func (l *ThermalLens) FocusLimits() (hal.Range, error) { return l.cfg.FocusRange, nil }

// EnableAutoFocus starts or stops continuous auto focus
func (l *ThermalLens) EnableAutoFocus(enabled bool) error { return l.lens.SetAutoFocus(enabled) }

// AutoFocus reports whether continuous auto focus is running
func (l *ThermalLens) AutoFocus() (bool, error) { return l.lens.AutoFocus() }

// Info describes the lens firmware
func (l *ThermalLens) Info() (string, error) {
	version, err := l.lens.Version()
	if err != nil {
		return "", err
	}
	return "MWIR lens " + version, nil
}
