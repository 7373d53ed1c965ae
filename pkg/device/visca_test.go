// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Thermoquad/optic/pkg/hal"
	"github.com/Thermoquad/optic/pkg/transport"
	"github.com/Thermoquad/optic/pkg/visca"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// blockCamera answers VISCA frames the way an EVI-D30 on address 1 does
type blockCamera struct {
	mu         sync.Mutex
	zoom       uint16
	focus      uint16
	autoFocus  byte
	stabilizer byte
}

func newBlockCamera() *blockCamera {
	return &blockCamera{focus: 0x1000, autoFocus: visca.Off, stabilizer: visca.Off}
}

func nibbleValue(b []byte) uint16 {
	return uint16(b[0]&0x0F)<<12 | uint16(b[1]&0x0F)<<8 | uint16(b[2]&0x0F)<<4 | uint16(b[3]&0x0F)
}

func nibbleReply(v uint16) []byte {
	return []byte{0x90, 0x50, byte(v>>12) & 0x0F, byte(v>>8) & 0x0F, byte(v>>4) & 0x0F, byte(v) & 0x0F, 0xFF}
}

func (c *blockCamera) respond(frame []byte) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if bytes.Equal(frame, []byte{0x88, 0x30, 0x01, 0xFF}) {
		return [][]byte{{0x88, 0x30, 0x02, 0xFF}}
	}

	syntax := [][]byte{{0x90, 0x60, 0x02, 0xFF}}
	done := [][]byte{{0x90, 0x41, 0xFF, 0x90, 0x51, 0xFF}}
	body := frame[1 : len(frame)-1]
	if len(body) < 3 {
		return syntax
	}

	switch {
	case body[0] == 0x01 && body[1] == 0x00 && body[2] == 0x01:
		return [][]byte{{0x90, 0x50, 0xFF}}
	case body[0] == 0x09 && body[1] == 0x00 && body[2] == 0x02:
		return [][]byte{{0x90, 0x50, 0x00, 0x20, 0x04, 0x02, 0x01, 0x00, 0x02, 0xFF}}
	case body[0] == 0x01 && body[1] == 0x04 && len(body) == 7 && body[2] == 0x47:
		c.zoom = nibbleValue(body[3:])
		return done
	case body[0] == 0x01 && body[1] == 0x04 && len(body) == 7 && body[2] == 0x48:
		c.focus = nibbleValue(body[3:])
		return done
	case body[0] == 0x01 && body[1] == 0x04 && len(body) == 4 && body[2] == 0x38:
		c.autoFocus = body[3]
		return done
	case body[0] == 0x01 && body[1] == 0x04 && len(body) == 4 && body[2] == 0x34:
		c.stabilizer = body[3]
		return done
	case body[0] == 0x09 && body[1] == 0x04 && body[2] == 0x47:
		return [][]byte{nibbleReply(c.zoom)}
	case body[0] == 0x09 && body[1] == 0x04 && body[2] == 0x48:
		return [][]byte{nibbleReply(c.focus)}
	case body[0] == 0x09 && body[1] == 0x04 && body[2] == 0x38:
		return [][]byte{{0x90, 0x50, c.autoFocus, 0xFF}}
	case body[0] == 0x09 && body[1] == 0x04 && body[2] == 0x34:
		return [][]byte{{0x90, 0x50, c.stabilizer, 0xFF}}
	}
	return syntax
}

func TestViscaCamera_ConnectAssignsAddressAndClears(t *testing.T) {
	f := transport.NewFake(newBlockCamera().respond)
	cam := NewViscaCamera(f, ViscaConfig{}, nil)

	if err := cam.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	written := f.Written()
	want := [][]byte{
		{0x88, 0x30, 0x01, 0xFF},
		{0x81, 0x01, 0x00, 0x01, 0xFF},
	}
	if len(written) != len(want) {
		t.Fatalf("wrote %d frames, want %d", len(written), len(want))
	}
	for i := range want {
		if !bytes.Equal(written[i], want[i]) {
			t.Errorf("frame %d = % X, want % X", i, written[i], want[i])
		}
	}
	if cam.Engine().Address() != 1 {
		t.Errorf("Address() = %d, want 1", cam.Engine().Address())
	}
}

func TestViscaCamera_ConnectFixedAddressSkipsAssignment(t *testing.T) {
	f := transport.NewFake(newBlockCamera().respond)
	cam := NewViscaCamera(f, ViscaConfig{Address: 1}, nil)

	if err := cam.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if f.WriteCount() != 1 {
		t.Errorf("WriteCount() = %d, want 1 (clear only)", f.WriteCount())
	}
}

func TestViscaCamera_ConnectFailureClosesLine(t *testing.T) {
	f := transport.NewFake(nil)
	cam := NewViscaCamera(f, ViscaConfig{}, nil)

	err := cam.Connect()
	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("Connect() error = %v, want ErrTimeout", err)
	}
	if f.IsOpen() {
		t.Error("transport left open after failed Connect")
	}
}

func TestViscaCamera_ConnectLogsCloseFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	f := transport.NewFake(nil)
	f.CloseErr = errors.New("port vanished")
	cam := NewViscaCamera(f, ViscaConfig{}, log)

	if err := cam.Connect(); !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("Connect() error = %v, want ErrTimeout", err)
	}
	if f.IsOpen() {
		t.Error("transport left open after failed Connect")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || entry.Message != "VISCA line close failed" {
		t.Fatalf("last log entry = %+v, want close failure warning", entry)
	}
	if !errors.Is(entry.Data[logrus.ErrorKey].(error), f.CloseErr) {
		t.Errorf("logged error = %v, want %v", entry.Data[logrus.ErrorKey], f.CloseErr)
	}
}

func TestViscaCamera_RangeWiderThanWire(t *testing.T) {
	tests := []struct {
		name string
		cfg  ViscaConfig
	}{
		{name: "zoom", cfg: ViscaConfig{ZoomRange: hal.Range{Min: 0, Max: 0x10000}}},
		{name: "focus", cfg: ViscaConfig{FocusRange: hal.Range{Min: 0x1000, Max: 0x1FFFF}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewViscaCamera(transport.NewFake(newBlockCamera().respond), tt.cfg, nil)
			if _, err := hal.New(cam); !errors.Is(err, hal.ErrNativeOutOfRange) {
				t.Errorf("hal.New() error = %v, want ErrNativeOutOfRange", err)
			}
		})
	}

	cam := NewViscaCamera(transport.NewFake(nil), ViscaConfig{ZoomRange: hal.Range{Min: 0, Max: 0xFFFF}}, nil)
	if _, err := cam.ZoomLimits(); err != nil {
		t.Errorf("ZoomLimits() at 0xFFFF error = %v", err)
	}
}

func TestViscaCamera_DefaultRanges(t *testing.T) {
	cam := NewViscaCamera(transport.NewFake(nil), ViscaConfig{}, nil)

	zoom, _ := cam.ZoomLimits()
	if zoom != DefaultViscaZoomRange {
		t.Errorf("ZoomLimits() = %v, want %v", zoom, DefaultViscaZoomRange)
	}
	focus, _ := cam.FocusLimits()
	if focus != DefaultViscaFocusRange {
		t.Errorf("FocusLimits() = %v, want %v", focus, DefaultViscaFocusRange)
	}
}

func TestViscaCamera_NativeTooWide(t *testing.T) {
	f := transport.NewFake(newBlockCamera().respond)
	cam := NewViscaCamera(f, ViscaConfig{Address: 1}, nil)
	if err := cam.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	before := f.WriteCount()

	if err := cam.SetZoom(0x10000); !errors.Is(err, hal.ErrNativeOutOfRange) {
		t.Errorf("SetZoom(0x10000) error = %v, want ErrNativeOutOfRange", err)
	}
	if f.WriteCount() != before {
		t.Error("out-of-range value reached the line")
	}
}

func TestViscaCamera_ThroughHAL(t *testing.T) {
	f := transport.NewFake(newBlockCamera().respond)
	h, err := hal.New(NewViscaCamera(f, ViscaConfig{}, nil))
	if err != nil {
		t.Fatalf("hal.New() error = %v", err)
	}

	if err := h.SetZoom(50); !errors.Is(err, hal.ErrNotConnected) {
		t.Fatalf("SetZoom() before Connect error = %v, want ErrNotConnected", err)
	}
	if f.WriteCount() != 0 {
		t.Fatalf("WriteCount() = %d before Connect, want 0", f.WriteCount())
	}

	if err := h.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer h.Disconnect()

	caps, err := h.Capabilities()
	if err != nil {
		t.Fatalf("Capabilities() error = %v", err)
	}
	if got := caps.String(); got != "zoom, focus, autofocus, info, stabilization" {
		t.Errorf("Capabilities() = %q", got)
	}

	if err := h.SetZoom(50); err != nil {
		t.Fatalf("SetZoom(50) error = %v", err)
	}
	written := f.Written()
	want := []byte{0x81, 0x01, 0x04, 0x47, 0x02, 0x00, 0x00, 0x00, 0xFF}
	if last := written[len(written)-1]; !bytes.Equal(last, want) {
		t.Errorf("SetZoom(50) frame = % X, want % X", last, want)
	}

	zoom, err := h.Zoom()
	if err != nil || zoom != 50 {
		t.Errorf("Zoom() = %d, %v, want 50", zoom, err)
	}

	if err := h.SetFocus(100); err != nil {
		t.Fatalf("SetFocus(100) error = %v", err)
	}
	focus, err := h.Focus()
	if err != nil || focus != 100 {
		t.Errorf("Focus() = %d, %v, want 100", focus, err)
	}

	if err := h.EnableAutoFocus(true); err != nil {
		t.Fatalf("EnableAutoFocus() error = %v", err)
	}
	if on, err := h.AutoFocus(); err != nil || !on {
		t.Errorf("AutoFocus() = %v, %v, want true", on, err)
	}

	if err := h.Stabilize(true); err != nil {
		t.Fatalf("Stabilize() error = %v", err)
	}
	if on, err := h.Stabilization(); err != nil || !on {
		t.Errorf("Stabilization() = %v, %v, want true", on, err)
	}

	info, err := h.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if !strings.Contains(info, "EVI-D30") {
		t.Errorf("Info() = %q, want EVI-D30", info)
	}
}

func TestViscaCamera_ProtocolErrorSurfaces(t *testing.T) {
	f := transport.NewFake(func([]byte) [][]byte {
		return [][]byte{{0x90, 0x41, 0xFF, 0x90, 0x61, 0x41, 0xFF}}
	})
	cam := NewViscaCamera(f, ViscaConfig{Address: 1}, nil)
	if err := f.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	err := cam.SetFocus(0x2000)
	var perr *visca.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("SetFocus() error = %v, want ProtocolError", err)
	}
	if perr.Code != visca.ErrCodeNotExecutable {
		t.Errorf("Code = 0x%02X, want 0x41", perr.Code)
	}
}
