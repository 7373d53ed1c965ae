// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import (
	"errors"
	"reflect"
	"testing"
)

type mockBase struct {
	connectErr    error
	disconnectErr error
	connects      int
	disconnects   int
}

func (m *mockBase) Connect() error {
	m.connects++
	return m.connectErr
}

func (m *mockBase) Disconnect() error {
	m.disconnects++
	return m.disconnectErr
}

type mockZoom struct {
	zoomRange    Range
	zoomLimitErr error
	zoomValue    uint32
	zoomErr      error
	setZoomCalls []uint32
	zoomReads    int
}

func (m *mockZoom) SetZoom(v uint32) error {
	m.setZoomCalls = append(m.setZoomCalls, v)
	if m.zoomErr != nil {
		return m.zoomErr
	}
	m.zoomValue = v
	return nil
}

func (m *mockZoom) Zoom() (uint32, error) {
	m.zoomReads++
	return m.zoomValue, m.zoomErr
}

func (m *mockZoom) ZoomLimits() (Range, error) {
	return m.zoomRange, m.zoomLimitErr
}

type mockFocus struct {
	focusRange    Range
	focusValue    uint32
	setFocusCalls []uint32
	focusReads    int
}

func (m *mockFocus) SetFocus(v uint32) error {
	m.setFocusCalls = append(m.setFocusCalls, v)
	m.focusValue = v
	return nil
}

func (m *mockFocus) Focus() (uint32, error) {
	m.focusReads++
	return m.focusValue, nil
}

func (m *mockFocus) FocusLimits() (Range, error) {
	return m.focusRange, nil
}

type mockToggles struct {
	autoFocus     bool
	stabilization bool
	info          string
	calls         int
}

func (m *mockToggles) EnableAutoFocus(enabled bool) error {
	m.calls++
	m.autoFocus = enabled
	return nil
}

func (m *mockToggles) AutoFocus() (bool, error) {
	m.calls++
	return m.autoFocus, nil
}

func (m *mockToggles) Stabilize(enabled bool) error {
	m.calls++
	m.stabilization = enabled
	return nil
}

func (m *mockToggles) Stabilization() (bool, error) {
	m.calls++
	return m.stabilization, nil
}

func (m *mockToggles) Info() (string, error) {
	m.calls++
	return m.info, nil
}

// bareDevice has no optional capabilities
type bareDevice struct {
	*mockBase
}

// zoomDevice only zooms
type zoomDevice struct {
	*mockBase
	*mockZoom
}

// fullDevice implements every capability
type fullDevice struct {
	*mockBase
	*mockZoom
	*mockFocus
	*mockToggles
}

func (d *fullDevice) deviceCalls() int {
	return len(d.setZoomCalls) + d.zoomReads + len(d.setFocusCalls) + d.focusReads + d.calls
}

func newFullDevice(zoom, focus Range) *fullDevice {
	return &fullDevice{
		mockBase:    &mockBase{},
		mockZoom:    &mockZoom{zoomRange: zoom, zoomValue: zoom.Min},
		mockFocus:   &mockFocus{focusRange: focus, focusValue: focus.Min},
		mockToggles: &mockToggles{info: "mock camera"},
	}
}

func newConnected(t *testing.T, d Device) *HAL {
	t.Helper()
	h, err := New(d)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := h.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return h
}

func TestNew(t *testing.T) {
	limitErr := errors.New("limits unavailable")

	tests := []struct {
		name    string
		device  Device
		wantErr error
	}{
		{"nil device", nil, ErrNilDevice},
		{"bare device", &bareDevice{&mockBase{}}, nil},
		{"valid zoom", &zoomDevice{&mockBase{}, &mockZoom{zoomRange: Range{0, 0x4000}}}, nil},
		{"empty zoom range", &zoomDevice{&mockBase{}, &mockZoom{zoomRange: Range{5, 5}}}, ErrInvalidRange},
		{"inverted zoom range", &zoomDevice{&mockBase{}, &mockZoom{zoomRange: Range{10, 1}}}, ErrInvalidRange},
		{"inverted focus range", newFullDevice(Range{0, 100}, Range{0xC000, 0x1000}), ErrInvalidRange},
		{"limit query fails", &zoomDevice{&mockBase{}, &mockZoom{zoomLimitErr: limitErr}}, limitErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(tt.device)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && h == nil {
				t.Error("New() returned nil HAL")
			}
			if tt.wantErr != nil && h != nil {
				t.Error("New() returned a HAL alongside the error")
			}
		})
	}
}

func TestHAL_Capabilities(t *testing.T) {
	tests := []struct {
		name   string
		device Device
		want   CapabilityList
	}{
		{"bare", &bareDevice{&mockBase{}}, CapabilityList{}},
		{"zoom only", &zoomDevice{&mockBase{}, &mockZoom{zoomRange: Range{0, 100}}}, CapabilityList{CapabilityZoom}},
		{
			"full",
			newFullDevice(Range{0, 100}, Range{0, 100}),
			CapabilityList{CapabilityZoom, CapabilityFocus, CapabilityAutoFocus, CapabilityInfo, CapabilityStabilization},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(tt.device)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, err := h.Capabilities(); !errors.Is(err, ErrNotConnected) {
				t.Errorf("Capabilities() before Connect error = %v, want %v", err, ErrNotConnected)
			}
			if err := h.Connect(); err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			got, err := h.Capabilities()
			if err != nil {
				t.Fatalf("Capabilities() error = %v", err)
			}
			if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(got, tt.want)) {
				t.Errorf("Capabilities() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHAL_ConnectDisconnect(t *testing.T) {
	base := &mockBase{}
	h, err := New(&bareDevice{base})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Disconnect while disconnected does not reach the device
	if err := h.Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if base.disconnects != 0 {
		t.Errorf("device disconnects = %d, want 0", base.disconnects)
	}

	if err := h.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := h.Connect(); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect() error = %v, want %v", err, ErrAlreadyConnected)
	}
	if base.connects != 1 {
		t.Errorf("device connects = %d, want 1", base.connects)
	}

	// A failing disconnect leaves the HAL connected
	base.disconnectErr = errors.New("port busy")
	if err := h.Disconnect(); !errors.Is(err, base.disconnectErr) {
		t.Errorf("Disconnect() error = %v, want %v", err, base.disconnectErr)
	}
	if !h.IsConnected() {
		t.Error("IsConnected() = false after failed disconnect")
	}

	base.disconnectErr = nil
	if err := h.Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if h.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
	if err := h.Disconnect(); err != nil {
		t.Errorf("repeated Disconnect() error = %v", err)
	}
}

func TestHAL_ConnectFailure(t *testing.T) {
	connectErr := errors.New("no such port")
	h, err := New(&bareDevice{&mockBase{connectErr: connectErr}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := h.Connect(); !errors.Is(err, connectErr) {
		t.Errorf("Connect() error = %v, want %v", err, connectErr)
	}
	if h.IsConnected() {
		t.Error("IsConnected() = true after failed Connect")
	}
}

func TestHAL_NotConnected(t *testing.T) {
	d := newFullDevice(Range{0, 0x4000}, Range{0x1000, 0xC000})
	h, err := New(d)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	calls := map[string]func() error{
		"SetZoom":         func() error { return h.SetZoom(50) },
		"Zoom":            func() error { _, err := h.Zoom(); return err },
		"SetFocus":        func() error { return h.SetFocus(50) },
		"Focus":           func() error { _, err := h.Focus(); return err },
		"EnableAutoFocus": func() error { return h.EnableAutoFocus(true) },
		"AutoFocus":       func() error { _, err := h.AutoFocus(); return err },
		"Info":            func() error { _, err := h.Info(); return err },
		"Stabilize":       func() error { return h.Stabilize(true) },
		"Stabilization":   func() error { _, err := h.Stabilization(); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrNotConnected) {
				t.Errorf("%s() error = %v, want %v", name, err, ErrNotConnected)
			}
		})
	}

	if n := d.deviceCalls(); n != 0 {
		t.Errorf("device saw %d calls while disconnected, want 0", n)
	}
}

func TestHAL_NotSupported(t *testing.T) {
	h := newConnected(t, &bareDevice{&mockBase{}})

	calls := map[string]func() error{
		"SetZoom":       func() error { return h.SetZoom(50) },
		"Focus":         func() error { _, err := h.Focus(); return err },
		"AutoFocus":     func() error { return h.EnableAutoFocus(true) },
		"Info":          func() error { _, err := h.Info(); return err },
		"Stabilization": func() error { _, err := h.Stabilization(); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrNotSupported) {
				t.Errorf("%s() error = %v, want %v", name, err, ErrNotSupported)
			}
		})
	}
}

func TestHAL_RejectsOutOfRange(t *testing.T) {
	d := newFullDevice(Range{0, 0x4000}, Range{0x1000, 0xC000})
	h := newConnected(t, d)

	for _, v := range []int{-1, 101, -100, 1000} {
		if err := h.SetZoom(v); !errors.Is(err, ErrValueOutOfRange) {
			t.Errorf("SetZoom(%d) error = %v, want %v", v, err, ErrValueOutOfRange)
		}
		if err := h.SetFocus(v); !errors.Is(err, ErrValueOutOfRange) {
			t.Errorf("SetFocus(%d) error = %v, want %v", v, err, ErrValueOutOfRange)
		}
	}

	if n := d.deviceCalls(); n != 0 {
		t.Errorf("device saw %d calls for invalid input, want 0", n)
	}
}

func TestHAL_SetZoomNative(t *testing.T) {
	tests := []struct {
		name       string
		r          Range
		normalized int
		want       uint32
	}{
		{"identity range", Range{0, 100}, 50, 50},
		{"VISCA zoom range", Range{0, 0x4000}, 50, 0x2000},
		{"VISCA zoom min", Range{0, 0x4000}, 0, 0},
		{"VISCA zoom max", Range{0, 0x4000}, 100, 0x4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFullDevice(tt.r, Range{0, 100})
			h := newConnected(t, d)

			if err := h.SetZoom(tt.normalized); err != nil {
				t.Fatalf("SetZoom() error = %v", err)
			}
			if len(d.setZoomCalls) != 1 {
				t.Fatalf("device SetZoom calls = %d, want 1", len(d.setZoomCalls))
			}
			if d.setZoomCalls[0] != tt.want {
				t.Errorf("device SetZoom(%d), want %d", d.setZoomCalls[0], tt.want)
			}

			got, err := h.Zoom()
			if err != nil {
				t.Fatalf("Zoom() error = %v", err)
			}
			if got != tt.normalized {
				t.Errorf("Zoom() = %d, want %d", got, tt.normalized)
			}
		})
	}
}

func TestHAL_Focus(t *testing.T) {
	d := newFullDevice(Range{0, 0x4000}, Range{0x1000, 0xC000})
	h := newConnected(t, d)

	if err := h.SetFocus(0); err != nil {
		t.Fatalf("SetFocus(0) error = %v", err)
	}
	if err := h.SetFocus(100); err != nil {
		t.Fatalf("SetFocus(100) error = %v", err)
	}
	want := []uint32{0x1000, 0xC000}
	if !reflect.DeepEqual(d.setFocusCalls, want) {
		t.Errorf("device SetFocus calls = %v, want %v", d.setFocusCalls, want)
	}

	got, err := h.Focus()
	if err != nil {
		t.Fatalf("Focus() error = %v", err)
	}
	if got != 100 {
		t.Errorf("Focus() = %d, want 100", got)
	}
}

func TestHAL_NativeOutOfRange(t *testing.T) {
	d := newFullDevice(Range{0x100, 0x4000}, Range{0, 100})
	h := newConnected(t, d)

	d.zoomValue = 0x4001
	if _, err := h.Zoom(); !errors.Is(err, ErrNativeOutOfRange) {
		t.Errorf("Zoom() error = %v, want %v", err, ErrNativeOutOfRange)
	}

	d.zoomValue = 0x0FF
	if _, err := h.Zoom(); !errors.Is(err, ErrNativeOutOfRange) {
		t.Errorf("Zoom() error = %v, want %v", err, ErrNativeOutOfRange)
	}
}

func TestHAL_DeviceErrorsPropagate(t *testing.T) {
	deviceErr := errors.New("camera error 0x41: command not executable")
	d := newFullDevice(Range{0, 100}, Range{0, 100})
	h := newConnected(t, d)
	d.zoomErr = deviceErr

	if err := h.SetZoom(10); err != deviceErr {
		t.Errorf("SetZoom() error = %v, want %v verbatim", err, deviceErr)
	}
	if _, err := h.Zoom(); err != deviceErr {
		t.Errorf("Zoom() error = %v, want %v verbatim", err, deviceErr)
	}
}

func TestHAL_PassThrough(t *testing.T) {
	d := newFullDevice(Range{0, 100}, Range{0, 100})
	h := newConnected(t, d)

	if err := h.EnableAutoFocus(true); err != nil {
		t.Fatalf("EnableAutoFocus() error = %v", err)
	}
	if on, err := h.AutoFocus(); err != nil || !on {
		t.Errorf("AutoFocus() = %v, %v, want true, nil", on, err)
	}
	if err := h.Stabilize(true); err != nil {
		t.Fatalf("Stabilize() error = %v", err)
	}
	if on, err := h.Stabilization(); err != nil || !on {
		t.Errorf("Stabilization() = %v, %v, want true, nil", on, err)
	}
	if info, err := h.Info(); err != nil || info != "mock camera" {
		t.Errorf("Info() = %q, %v, want %q, nil", info, err, "mock camera")
	}
}

func TestCapabilityList(t *testing.T) {
	l := CapabilityList{CapabilityZoom, CapabilityInfo}

	if !l.Has(CapabilityInfo) || l.Has(CapabilityFocus) {
		t.Errorf("Has() wrong for %v", l)
	}
	if got := l.String(); got != "zoom, info" {
		t.Errorf("String() = %q, want %q", got, "zoom, info")
	}
}
