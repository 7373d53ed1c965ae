// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// capabilities is resolved once at construction. A nil handle means the
// device does not implement the feature.
type capabilities struct {
	zoom      ZoomCapable
	focus     FocusCapable
	autoFocus AutoFocusCapable
	info      InfoCapable
	stabilize StabilizeCapable

	zoomRange  Range
	focusRange Range

	list CapabilityList
}

func probe(device Device) (capabilities, error) {
	var caps capabilities

	if z, ok := device.(ZoomCapable); ok {
		r, err := z.ZoomLimits()
		if err != nil {
			return caps, fmt.Errorf("zoom limits: %w", err)
		}
		if !r.Valid() {
			return caps, fmt.Errorf("%w: zoom %s", ErrInvalidRange, r)
		}
		caps.zoom, caps.zoomRange = z, r
		caps.list = append(caps.list, CapabilityZoom)
	}
	if f, ok := device.(FocusCapable); ok {
		r, err := f.FocusLimits()
		if err != nil {
			return caps, fmt.Errorf("focus limits: %w", err)
		}
		if !r.Valid() {
			return caps, fmt.Errorf("%w: focus %s", ErrInvalidRange, r)
		}
		caps.focus, caps.focusRange = f, r
		caps.list = append(caps.list, CapabilityFocus)
	}
	if a, ok := device.(AutoFocusCapable); ok {
		caps.autoFocus = a
		caps.list = append(caps.list, CapabilityAutoFocus)
	}
	if i, ok := device.(InfoCapable); ok {
		caps.info = i
		caps.list = append(caps.list, CapabilityInfo)
	}
	if s, ok := device.(StabilizeCapable); ok {
		caps.stabilize = s
		caps.list = append(caps.list, CapabilityStabilization)
	}

	return caps, nil
}

// HAL wraps one device and presents normalized zoom and focus. Every
// request is validated (connection, capability, value range) before the
// device sees it.
type HAL struct {
	device Device
	caps   capabilities
	log    logrus.FieldLogger

	mu        sync.Mutex
	connected bool
}

// Option configures a HAL
type Option func(*HAL)

// WithLogger sets the HAL logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *HAL) {
		h.log = log
	}
}

// New takes ownership of device. Zoom and focus ranges are read here, once;
// an inverted or empty range fails construction.
func New(device Device, opts ...Option) (*HAL, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	caps, err := probe(device)
	if err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	h := &HAL{device: device, caps: caps, log: discard}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Connect connects the device. It fails if already connected.
func (h *HAL) Connect() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connected {
		return ErrAlreadyConnected
	}
	if err := h.device.Connect(); err != nil {
		h.log.WithError(err).Warn("Device connect failed")
		return err
	}
	h.connected = true
	h.log.WithField("capabilities", h.caps.list.String()).Info("Device connected")
	return nil
}

// Disconnect disconnects the device. Disconnecting a disconnected HAL is a
// no-op.
func (h *HAL) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.connected {
		return nil
	}
	if err := h.device.Disconnect(); err != nil {
		h.log.WithError(err).Warn("Device disconnect failed")
		return err
	}
	h.connected = false
	h.log.Info("Device disconnected")
	return nil
}

// IsConnected reports the connection state
func (h *HAL) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// ready checks connection and capability presence
func (h *HAL) ready(c Capability, present bool) error {
	if !h.IsConnected() {
		return ErrNotConnected
	}
	if !present {
		return fmt.Errorf("%w: %s", ErrNotSupported, c)
	}
	return nil
}

// SetZoom moves zoom to a 0-100 position
func (h *HAL) SetZoom(normalized int) error {
	if err := h.ready(CapabilityZoom, h.caps.zoom != nil); err != nil {
		return err
	}
	native, err := h.toNative(normalized, h.caps.zoomRange)
	if err != nil {
		return err
	}
	return h.caps.zoom.SetZoom(native)
}

// Zoom returns the zoom position as 0-100
func (h *HAL) Zoom() (int, error) {
	if err := h.ready(CapabilityZoom, h.caps.zoom != nil); err != nil {
		return 0, err
	}
	native, err := h.caps.zoom.Zoom()
	if err != nil {
		return 0, err
	}
	return Normalize(native, h.caps.zoomRange)
}

// SetFocus moves focus to a 0-100 position
func (h *HAL) SetFocus(normalized int) error {
	if err := h.ready(CapabilityFocus, h.caps.focus != nil); err != nil {
		return err
	}
	native, err := h.toNative(normalized, h.caps.focusRange)
	if err != nil {
		return err
	}
	return h.caps.focus.SetFocus(native)
}

// Focus returns the focus position as 0-100
func (h *HAL) Focus() (int, error) {
	if err := h.ready(CapabilityFocus, h.caps.focus != nil); err != nil {
		return 0, err
	}
	native, err := h.caps.focus.Focus()
	if err != nil {
		return 0, err
	}
	return Normalize(native, h.caps.focusRange)
}

// toNative denormalizes and re-checks the result against the range
func (h *HAL) toNative(normalized int, r Range) (uint32, error) {
	native, err := Denormalize(normalized, r)
	if err != nil {
		return 0, err
	}
	if !r.Contains(native) {
		return 0, fmt.Errorf("%w: %d not in %s", ErrNativeOutOfRange, native, r)
	}
	return native, nil
}

// EnableAutoFocus switches auto focus
func (h *HAL) EnableAutoFocus(enabled bool) error {
	if err := h.ready(CapabilityAutoFocus, h.caps.autoFocus != nil); err != nil {
		return err
	}
	return h.caps.autoFocus.EnableAutoFocus(enabled)
}

// AutoFocus reports whether auto focus is on
func (h *HAL) AutoFocus() (bool, error) {
	if err := h.ready(CapabilityAutoFocus, h.caps.autoFocus != nil); err != nil {
		return false, err
	}
	return h.caps.autoFocus.AutoFocus()
}

// Info returns the device description
func (h *HAL) Info() (string, error) {
	if err := h.ready(CapabilityInfo, h.caps.info != nil); err != nil {
		return "", err
	}
	return h.caps.info.Info()
}

// Stabilize switches image stabilization
func (h *HAL) Stabilize(enabled bool) error {
	if err := h.ready(CapabilityStabilization, h.caps.stabilize != nil); err != nil {
		return err
	}
	return h.caps.stabilize.Stabilize(enabled)
}

// Stabilization reports whether image stabilization is on
func (h *HAL) Stabilization() (bool, error) {
	if err := h.ready(CapabilityStabilization, h.caps.stabilize != nil); err != nil {
		return false, err
	}
	return h.caps.stabilize.Stabilization()
}

// Capabilities returns the features the device implements
func (h *HAL) Capabilities() (CapabilityList, error) {
	if !h.IsConnected() {
		return nil, ErrNotConnected
	}
	out := make(CapabilityList, len(h.caps.list))
	copy(out, h.caps.list)
	return out, nil
}

// ZoomRange returns the native zoom range read at construction
func (h *HAL) ZoomRange() (Range, bool) {
	return h.caps.zoomRange, h.caps.zoom != nil
}

// FocusRange returns the native focus range read at construction
func (h *HAL) FocusRange() (Range, bool) {
	return h.caps.focusRange, h.caps.focus != nil
}
