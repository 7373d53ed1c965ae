// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Thermoquad/optic/pkg/transport"
)

// request is an outbound message decoded by the simulated lens
type request struct {
	Header
	Payload []byte
}

func parseRequest(t *testing.T, frame []byte) request {
	t.Helper()
	if len(frame) < HeaderSize {
		t.Fatalf("request too short: % X", frame)
	}
	if !VerifyChecksum(frame) {
		t.Errorf("request checksum invalid: % X", frame)
	}
	return request{
		Header: Header{
			Opcode:      binary.LittleEndian.Uint32(frame[offsetOpcode:]),
			ProtocolID:  binary.LittleEndian.Uint32(frame[offsetProtocolID:]),
			Length:      binary.LittleEndian.Uint16(frame[offsetLength:]),
			Counter:     binary.LittleEndian.Uint16(frame[offsetCounter:]),
			Timestamp:   binary.LittleEndian.Uint32(frame[offsetTimestamp:]),
			Source:      frame[offsetSource],
			Destination: frame[offsetDestination],
		},
		Payload: frame[HeaderSize:],
	}
}

// lensResponder answers each request with handler's status and data
func lensResponder(t *testing.T, handler func(req request) (byte, []byte)) transport.Responder {
	return func(written []byte) [][]byte {
		req := parseRequest(t, written)
		status, data := handler(req)
		payload := append([]byte{status}, data...)
		reply := NewMessage(req.Opcode|InboundFlag, req.Destination, req.Source, payload)
		return [][]byte{reply.Serialize()}
	}
}

func newTestLens(t *testing.T, respond transport.Responder) (*Lens, *transport.Fake) {
	t.Helper()
	f := transport.NewFake(respond)
	if err := f.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return NewLens(NewEngine(f, WithNodes(0x01, 0x20))), f
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestEngine_RequestHeader(t *testing.T) {
	var got request
	lens, _ := newTestLens(t, lensResponder(t, func(req request) (byte, []byte) {
		got = req
		return StatusOK, nil
	}))

	if err := lens.SetZoom(10000); err != nil {
		t.Fatalf("SetZoom() error = %v", err)
	}

	if got.Opcode != OpSetZoom {
		t.Errorf("Opcode = 0x%08X, want 0x%08X", got.Opcode, OpSetZoom)
	}
	if got.ProtocolID != ProtocolID {
		t.Errorf("ProtocolID = 0x%08X, want 0x%08X", got.ProtocolID, ProtocolID)
	}
	if got.Length != HeaderSize+4 {
		t.Errorf("Length = %d, want %d", got.Length, HeaderSize+4)
	}
	if got.Counter != 0 || got.Timestamp != 0 {
		t.Errorf("Counter/Timestamp = %d/%d, want 0/0", got.Counter, got.Timestamp)
	}
	if got.Source != 0x01 || got.Destination != 0x20 {
		t.Errorf("Source/Destination = 0x%02X/0x%02X, want 0x01/0x20", got.Source, got.Destination)
	}
	if !bytes.Equal(got.Payload, u32(10000)) {
		t.Errorf("Payload = % X, want % X", got.Payload, u32(10000))
	}
}

func TestLens_Commands(t *testing.T) {
	state := map[uint32][]byte{
		OpGetZoom:      u32(4200),
		OpGetFocus:     u32(900),
		OpZoomLimits:   append(u32(0), u32(10000)...),
		OpFocusLimits:  append(u32(100), u32(5000)...),
		OpGetAutoFocus: {0x01},
		OpVersion:      []byte("MWIR-LENS 2.4.1\x00\x00"),
	}
	lens, _ := newTestLens(t, lensResponder(t, func(req request) (byte, []byte) {
		return StatusOK, state[req.Opcode]
	}))

	if v, err := lens.Zoom(); err != nil || v != 4200 {
		t.Errorf("Zoom() = %d, %v, want 4200, nil", v, err)
	}
	if v, err := lens.Focus(); err != nil || v != 900 {
		t.Errorf("Focus() = %d, %v, want 900, nil", v, err)
	}
	if lo, hi, err := lens.ZoomLimits(); err != nil || lo != 0 || hi != 10000 {
		t.Errorf("ZoomLimits() = %d, %d, %v, want 0, 10000, nil", lo, hi, err)
	}
	if lo, hi, err := lens.FocusLimits(); err != nil || lo != 100 || hi != 5000 {
		t.Errorf("FocusLimits() = %d, %d, %v, want 100, 5000, nil", lo, hi, err)
	}
	if on, err := lens.AutoFocus(); err != nil || !on {
		t.Errorf("AutoFocus() = %v, %v, want true, nil", on, err)
	}
	if v, err := lens.Version(); err != nil || v != "MWIR-LENS 2.4.1" {
		t.Errorf("Version() = %q, %v, want %q, nil", v, err, "MWIR-LENS 2.4.1")
	}
	if err := lens.SetFocus(1234); err != nil {
		t.Errorf("SetFocus() error = %v", err)
	}
	if err := lens.SetAutoFocus(false); err != nil {
		t.Errorf("SetAutoFocus() error = %v", err)
	}
}

func TestLens_Errors(t *testing.T) {
	tests := []struct {
		name    string
		respond func(t *testing.T) transport.Responder
		call    func(l *Lens) error
		check   func(t *testing.T, err error)
	}{
		{
			name: "status failure",
			respond: func(t *testing.T) transport.Responder {
				return lensResponder(t, func(request) (byte, []byte) { return StatusRange, nil })
			},
			call: func(l *Lens) error { return l.SetZoom(99999) },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrLensStatus) {
					t.Errorf("error = %v, want %v", err, ErrLensStatus)
				}
			},
		},
		{
			name: "short value",
			respond: func(t *testing.T) transport.Responder {
				return lensResponder(t, func(request) (byte, []byte) { return StatusOK, []byte{0x01} })
			},
			call: func(l *Lens) error { _, err := l.Zoom(); return err },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrShortReply) {
					t.Errorf("error = %v, want %v", err, ErrShortReply)
				}
			},
		},
		{
			name: "opcode mismatch",
			respond: func(t *testing.T) transport.Responder {
				return func([]byte) [][]byte {
					return [][]byte{NewMessage(OpGetFocus|InboundFlag, 0x20, 0x01, []byte{StatusOK, 0, 0, 0, 0}).Serialize()}
				}
			},
			call: func(l *Lens) error { _, err := l.Zoom(); return err },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrOpcodeMismatch) {
					t.Errorf("error = %v, want %v", err, ErrOpcodeMismatch)
				}
			},
		},
		{
			name: "corrupt reply",
			respond: func(t *testing.T) transport.Responder {
				return func([]byte) [][]byte {
					frame := NewMessage(OpGetZoom|InboundFlag, 0x20, 0x01, []byte{StatusOK, 1, 2, 3, 4}).Serialize()
					frame[len(frame)-1] ^= 0x40
					return [][]byte{frame}
				}
			},
			call: func(l *Lens) error { _, err := l.Zoom(); return err },
			check: func(t *testing.T, err error) {
				if RejectReasonOf(err) != RejectBadChecksum {
					t.Errorf("error = %v, want bad checksum rejection", err)
				}
			},
		},
		{
			name: "no reply",
			respond: func(t *testing.T) transport.Responder {
				return nil
			},
			call: func(l *Lens) error { _, err := l.Version(); return err },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, transport.ErrTimeout) {
					t.Errorf("error = %v, want %v", err, transport.ErrTimeout)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lens, _ := newTestLens(t, tt.respond(t))
			err := tt.call(lens)
			if err == nil {
				t.Fatal("call succeeded, want error")
			}
			tt.check(t, err)
		})
	}
}

func TestEngine_PayloadTooLarge(t *testing.T) {
	f := transport.NewFake(nil)
	if err := f.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	e := NewEngine(f)

	_, err := e.SendPayload(OpVersion, make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("SendPayload() error = %v, want %v", err, ErrPayloadTooLarge)
	}
	if f.WriteCount() != 0 {
		t.Errorf("WriteCount() = %d, want 0", f.WriteCount())
	}
}
