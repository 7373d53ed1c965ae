// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itl

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Lens is the motorized lens command set carried over ITL
type Lens struct {
	e *Engine
}

// NewLens wraps an engine
func NewLens(e *Engine) *Lens {
	return &Lens{e: e}
}

// call sends a request and returns the reply payload after the status byte
func (l *Lens) call(opcode uint32, payload []byte) ([]byte, error) {
	reply, err := l.e.SendPayload(opcode, payload)
	if err != nil {
		return nil, err
	}
	if reply.Command() != opcode {
		return nil, fmt.Errorf("%w: sent 0x%04X, got 0x%04X", ErrOpcodeMismatch, opcode, reply.Command())
	}
	if len(reply.Payload) < 1 {
		return nil, fmt.Errorf("%w: no status byte", ErrShortReply)
	}
	if status := reply.Payload[0]; status != StatusOK {
		return nil, fmt.Errorf("%w: opcode 0x%04X: %s", ErrLensStatus, opcode, StatusText(status))
	}
	return reply.Payload[1:], nil
}

func (l *Lens) set32(opcode uint32, v uint32) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, v)
	_, err := l.call(opcode, payload)
	return err
}

func (l *Lens) get32(opcode uint32) (uint32, error) {
	data, err := l.call(opcode, nil)
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: opcode 0x%04X returned %d bytes", ErrShortReply, opcode, len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (l *Lens) limits(opcode uint32) (uint32, uint32, error) {
	data, err := l.call(opcode, nil)
	if err != nil {
		return 0, 0, err
	}
	if len(data) < 8 {
		return 0, 0, fmt.Errorf("%w: opcode 0x%04X returned %d bytes", ErrShortReply, opcode, len(data))
	}
	return binary.LittleEndian.Uint32(data), binary.LittleEndian.Uint32(data[4:]), nil
}

// SetZoom drives zoom to a native position
func (l *Lens) SetZoom(position uint32) error { return l.set32(OpSetZoom, position) }

// Zoom returns the native zoom position
func (l *Lens) Zoom() (uint32, error) { return l.get32(OpGetZoom) }

// ZoomLimits returns the native zoom travel
func (l *Lens) ZoomLimits() (uint32, uint32, error) { return l.limits(OpZoomLimits) }

// SetFocus drives focus to a native position
func (l *Lens) SetFocus(position uint32) error { return l.set32(OpSetFocus, position) }

// Focus returns the native focus position
func (l *Lens) Focus() (uint32, error) { return l.get32(OpGetFocus) }

// FocusLimits returns the native focus travel
func (l *Lens) FocusLimits() (uint32, uint32, error) { return l.limits(OpFocusLimits) }

// SetAutoFocus starts or stops continuous auto focus
func (l *Lens) SetAutoFocus(enabled bool) error {
	var arg byte
	if enabled {
		arg = 1
	}
	_, err := l.call(OpSetAutoFocus, []byte{arg})
	return err
}

// AutoFocus reports whether continuous auto focus is running
func (l *Lens) AutoFocus() (bool, error) {
	data, err := l.call(OpGetAutoFocus, nil)
	if err != nil {
		return false, err
	}
	if len(data) < 1 {
		return false, fmt.Errorf("%w: auto focus state missing", ErrShortReply)
	}
	return data[0] != 0, nil
}

// Version returns the lens firmware description
func (l *Lens) Version() (string, error) {
	data, err := l.call(OpVersion, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\x00"), nil
}
