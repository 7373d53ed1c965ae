// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hal presents any camera device through one normalized interface:
// zoom and focus as 0-100, auto focus, stabilization, device info, and
// capability discovery.
package hal

import (
	"fmt"
	"strings"
)

// Range is a device's native travel for one feature
type Range struct {
	Min uint32 `json:"min" yaml:"min"`
	Max uint32 `json:"max" yaml:"max"`
}

// Valid reports whether Min < Max
func (r Range) Valid() bool {
	return r.Min < r.Max
}

// Contains reports whether v lies within [Min, Max]
func (r Range) Contains(v uint32) bool {
	return v >= r.Min && v <= r.Max
}

// Span returns Max - Min
func (r Range) Span() uint32 {
	return r.Max - r.Min
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// Normalized value bounds, shared by every feature and device
const (
	NormalizedMin = 0
	NormalizedMax = 100
)

// Device is the lifecycle every concrete device provides
type Device interface {
	Connect() error
	Disconnect() error
}

// ZoomCapable devices expose a native zoom position
type ZoomCapable interface {
	SetZoom(native uint32) error
	Zoom() (uint32, error)
	ZoomLimits() (Range, error)
}

// FocusCapable devices expose a native focus position
type FocusCapable interface {
	SetFocus(native uint32) error
	Focus() (uint32, error)
	FocusLimits() (Range, error)
}

// AutoFocusCapable devices can focus on their own
type AutoFocusCapable interface {
	EnableAutoFocus(enabled bool) error
	AutoFocus() (bool, error)
}

// InfoCapable devices describe themselves
type InfoCapable interface {
	Info() (string, error)
}

// StabilizeCapable devices have image stabilization
type StabilizeCapable interface {
	Stabilize(enabled bool) error
	Stabilization() (bool, error)
}

// Capability names one optional feature
type Capability int

const (
	CapabilityZoom Capability = iota
	CapabilityFocus
	CapabilityAutoFocus
	CapabilityInfo
	CapabilityStabilization
)

func (c Capability) String() string {
	switch c {
	case CapabilityZoom:
		return "zoom"
	case CapabilityFocus:
		return "focus"
	case CapabilityAutoFocus:
		return "autofocus"
	case CapabilityInfo:
		return "info"
	case CapabilityStabilization:
		return "stabilization"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// CapabilityList is the set of features a device implements, in
// declaration order
type CapabilityList []Capability

// Has reports whether c is in the list
func (l CapabilityList) Has(c Capability) bool {
	for _, have := range l {
		if have == c {
			return true
		}
	}
	return false
}

// Strings returns the capability names
func (l CapabilityList) Strings() []string {
	out := make([]string, len(l))
	for i, c := range l {
		out[i] = c.String()
	}
	return out
}

func (l CapabilityList) String() string {
	return strings.Join(l.Strings(), ", ")
}
