// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device holds the concrete cameras the HAL can drive.
package device

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/optic/pkg/hal"
	"github.com/Thermoquad/optic/pkg/transport"
	"github.com/Thermoquad/optic/pkg/visca"
)

// Default native ranges for Sony-style block cameras
var (
	DefaultViscaZoomRange  = hal.Range{Min: 0x0000, Max: 0x4000}
	DefaultViscaFocusRange = hal.Range{Min: 0x1000, Max: 0xC000}
)

// ViscaConfig configures a VISCA camera
type ViscaConfig struct {
	ZoomRange  hal.Range
	FocusRange hal.Range

	// Broadcast sends every command with the broadcast header and skips
	// address assignment
	Broadcast bool

	// Address fixes the camera address; 0 runs address assignment on
	// Connect
	Address byte
}

// ViscaCamera is a pan/tilt/zoom block camera on a VISCA line
type ViscaCamera struct {
	t   transport.Transport
	cam *visca.Camera
	cfg ViscaConfig
	log logrus.FieldLogger
}

// NewViscaCamera creates a camera on t. Zero ranges take the defaults.
func NewViscaCamera(t transport.Transport, cfg ViscaConfig, log logrus.FieldLogger) *ViscaCamera {
	if cfg.ZoomRange == (hal.Range{}) {
		cfg.ZoomRange = DefaultViscaZoomRange
	}
	if cfg.FocusRange == (hal.Range{}) {
		cfg.FocusRange = DefaultViscaFocusRange
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	opts := []visca.Option{visca.WithLogger(log), visca.WithBroadcast(cfg.Broadcast)}
	if cfg.Address != 0 {
		opts = append(opts, visca.WithAddress(cfg.Address))
	}

	return &ViscaCamera{
		t:   t,
		cam: visca.NewCamera(t, opts...),
		cfg: cfg,
		log: log,
	}
}

// Engine returns the underlying protocol engine
func (v *ViscaCamera) Engine() *visca.Camera {
	return v.cam
}

// Connect opens the line, assigns the camera address, and clears the
// camera's command buffers
func (v *ViscaCamera) Connect() error {
	if err := v.t.Open(); err != nil {
		return err
	}

	if !v.cfg.Broadcast && v.cfg.Address == 0 {
		if err := v.cam.SetAddress(); err != nil {
			v.closeAfter(err)
			return err
		}
	}
	if err := v.cam.Clear(); err != nil {
		v.closeAfter(err)
		return err
	}
	return nil
}

// closeAfter closes the line after a failed connect
func (v *ViscaCamera) closeAfter(cause error) {
	if err := v.t.Close(); err != nil {
		v.log.WithError(err).WithField("cause", cause.Error()).Warn("VISCA line close failed")
	}
}

// Disconnect closes the line
func (v *ViscaCamera) Disconnect() error {
	return v.t.Close()
}

func toUint16(native uint32) (uint16, error) {
	if native > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d exceeds 16 bits", hal.ErrNativeOutOfRange, native)
	}
	return uint16(native), nil
}

// SetZoom drives zoom to a native position
func (v *ViscaCamera) SetZoom(native uint32) error {
	value, err := toUint16(native)
	if err != nil {
		return err
	}
	return v.cam.SetZoomValue(value)
}

// Zoom returns the native zoom position
func (v *ViscaCamera) Zoom() (uint32, error) {
	value, err := v.cam.ZoomValue()
	return uint32(value), err
}

// checkLimits rejects travel a 16-bit VISCA position cannot reach
func checkLimits(r hal.Range) (hal.Range, error) {
	if r.Max > math.MaxUint16 {
		return hal.Range{}, fmt.Errorf("%w: range %s exceeds 16 bits", hal.ErrNativeOutOfRange, r)
	}
	return r, nil
}

// ZoomLimits returns the configured zoom travel
func (v *ViscaCamera) ZoomLimits() (hal.Range, error) {
	return checkLimits(v.cfg.ZoomRange)
}

// SetFocus drives focus to a native position
func (v *ViscaCamera) SetFocus(native uint32) error {
	value, err := toUint16(native)
	if err != nil {
		return err
	}
	return v.cam.SetFocusValue(value)
}

// Focus returns the native focus position
func (v *ViscaCamera) Focus() (uint32, error) {
	value, err := v.cam.FocusValue()
	return uint32(value), err
}

// FocusLimits returns the configured focus travel
func (v *ViscaCamera) FocusLimits() (hal.Range, error) {
	return checkLimits(v.cfg.FocusRange)
}

// EnableAutoFocus switches between auto and manual focus
func (v *ViscaCamera) EnableAutoFocus(enabled bool) error {
	return v.cam.SetFocusAuto(enabled)
}

// AutoFocus reports whether auto focus is on
func (v *ViscaCamera) AutoFocus() (bool, error) {
	return v.cam.FocusAuto()
}

// Info describes the camera from its device-type reply
func (v *ViscaCamera) Info() (string, error) {
	info, err := v.cam.CameraInfo()
	if err != nil {
		return "", err
	}
	return info.String(), nil
}

// Stabilize switches image stabilization
func (v *ViscaCamera) Stabilize(enabled bool) error {
	return v.cam.SetCamStabilizer(enabled)
}

// Stabilization reports whether image stabilization is on
func (v *ViscaCamera) Stabilization() (bool, error) {
	return v.cam.CamStabilizer()
}
