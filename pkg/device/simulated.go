// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/optic/pkg/hal"
)

// ErrSimulatedOffline is returned by a Simulated camera that is not connected
var ErrSimulatedOffline = errors.New("simulated camera offline")

// Simulated is an in-memory camera with every capability. Each instance
// owns its state.
type Simulated struct {
	name       string
	zoomRange  hal.Range
	focusRange hal.Range

	mu            sync.Mutex
	connected     bool
	zoom          uint32
	focus         uint32
	autoFocus     bool
	stabilization bool
	calls         int
	latency       time.Duration
	fail          error
}

// NewSimulated creates a simulated camera with zoom and focus parked at
// their minimum
func NewSimulated(name string, zoom, focus hal.Range) *Simulated {
	return &Simulated{
		name:       name,
		zoomRange:  zoom,
		focusRange: focus,
		zoom:       zoom.Min,
		focus:      focus.Min,
	}
}

// SetLatency delays every operation, to stand in for a slow line
func (s *Simulated) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// SetFailure makes every operation after Connect fail with err (nil clears)
func (s *Simulated) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Calls returns how many feature operations reached the device
func (s *Simulated) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// op runs fn under the lock after latency, connection and failure checks
func (s *Simulated) op(fn func() error) error {
	s.mu.Lock()
	latency := s.latency
	s.mu.Unlock()
	if latency > 0 {
		time.Sleep(latency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if !s.connected {
		return ErrSimulatedOffline
	}
	if s.fail != nil {
		return s.fail
	}
	return fn()
}

// Connect brings the camera online
func (s *Simulated) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

// Disconnect takes the camera offline
func (s *Simulated) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// SetZoom moves zoom to a native position
func (s *Simulated) SetZoom(native uint32) error {
	return s.op(func() error {
		if !s.zoomRange.Contains(native) {
			return fmt.Errorf("%w: zoom %d not in %s", hal.ErrNativeOutOfRange, native, s.zoomRange)
		}
		s.zoom = native
		return nil
	})
}

// Zoom returns the native zoom position
func (s *Simulated) Zoom() (uint32, error) {
	var v uint32
	err := s.op(func() error {
		v = s.zoom
		return nil
	})
	return v, err
}

// ZoomLimits returns the zoom travel
func (s *Simulated) ZoomLimits() (hal.Range, error) {
	return s.zoomRange, nil
}

// SetFocus moves focus to a native position
func (s *Simulated) SetFocus(native uint32) error {
	return s.op(func() error {
		if !s.focusRange.Contains(native) {
			return fmt.Errorf("%w: focus %d not in %s", hal.ErrNativeOutOfRange, native, s.focusRange)
		}
		s.focus = native
		return nil
	})
}

// Focus returns the native focus position
func (s *Simulated) Focus() (uint32, error) {
	var v uint32
	err := s.op(func() error {
		v = s.focus
		return nil
	})
	return v, err
}

// FocusLimits returns the focus travel
func (s *Simulated) FocusLimits() (hal.Range, error) {
	return s.focusRange, nil
}

// EnableAutoFocus switches auto focus
func (s *Simulated) EnableAutoFocus(enabled bool) error {
	return s.op(func() error {
		s.autoFocus = enabled
		return nil
	})
}

// AutoFocus reports whether auto focus is on
func (s *Simulated) AutoFocus() (bool, error) {
	var v bool
	err := s.op(func() error {
		v = s.autoFocus
		return nil
	})
	return v, err
}

// Info names the simulated camera
func (s *Simulated) Info() (string, error) {
	var v string
	err := s.op(func() error {
		v = fmt.Sprintf("Simulated camera %q (zoom %s, focus %s)", s.name, s.zoomRange, s.focusRange)
		return nil
	})
	return v, err
}

// Stabilize switches image stabilization
func (s *Simulated) Stabilize(enabled bool) error {
	return s.op(func() error {
		s.stabilization = enabled
		return nil
	})
}

// Stabilization reports whether image stabilization is on
func (s *Simulated) Stabilization() (bool, error) {
	var v bool
	err := s.op(func() error {
		v = s.stabilization
		return nil
	})
	return v, err
}
