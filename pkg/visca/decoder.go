// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
	"time"
)

// Direction tells controller-to-camera frames from replies
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionCommand
	DirectionReply
)

func (d Direction) String() string {
	switch d {
	case DirectionCommand:
		return "TX"
	case DirectionReply:
		return "RX"
	default:
		return "??"
	}
}

// StreamFrame is one frame recovered from a byte stream
type StreamFrame struct {
	Raw       []byte
	Timestamp time.Time
}

// Direction guesses who sent the frame. Commands carry a message type
// byte after the header; replies carry a reply class. Broadcast address
// and clear replies echo their command and report as commands.
func (f *StreamFrame) Direction() Direction {
	if len(f.Raw) < MinFrameSize {
		return DirectionUnknown
	}
	switch f.Raw[1] {
	case TypeCommand, TypeInquiry:
		if f.Raw[0] == BroadcastHeader || f.Raw[0]&0xF0 == AddressedHeader {
			return DirectionCommand
		}
	}
	if f.Raw[0] == BroadcastHeader && f.Raw[1] == addressSetCode {
		return DirectionCommand
	}
	return DirectionReply
}

// Decoder splits a passive byte stream into VISCA frames
type Decoder struct {
	buffer  []byte
	inFrame bool
}

// NewDecoder creates a stream decoder
func NewDecoder() *Decoder {
	return &Decoder{buffer: make([]byte, 0, MaxFrameSize)}
}

// Reset drops any partial frame
func (d *Decoder) Reset() {
	d.buffer = d.buffer[:0]
	d.inFrame = false
}

// DecodeByte feeds one byte. It returns a frame when b completes one, nil
// while a frame is in progress, and an error when the stream is out of
// sync (the bad bytes are discarded). A header byte seen mid-frame starts
// a new frame.
func (d *Decoder) DecodeByte(b byte) (*StreamFrame, error) {
	if !d.inFrame {
		if b == Terminator || b&responseStartMask == 0 {
			return nil, fmt.Errorf("stray byte 0x%02X outside frame", b)
		}
		d.buffer = append(d.buffer[:0], b)
		d.inFrame = true
		return nil, nil
	}

	if b == Terminator {
		d.buffer = append(d.buffer, b)
		raw := append([]byte(nil), d.buffer...)
		d.Reset()
		if len(raw) < MinFrameSize {
			return nil, fmt.Errorf("%w: %d byte frame", ErrMalformedFrame, len(raw))
		}
		return &StreamFrame{Raw: raw, Timestamp: time.Now()}, nil
	}

	// A header inside a frame means the terminator was lost
	if b&responseStartMask != 0 {
		dropped := len(d.buffer)
		d.buffer = append(d.buffer[:0], b)
		return nil, fmt.Errorf("%w: %d byte frame without terminator", ErrMalformedFrame, dropped)
	}

	if len(d.buffer) >= MaxFrameSize-1 {
		d.Reset()
		return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedFrame, MaxFrameSize)
	}

	d.buffer = append(d.buffer, b)
	return nil, nil
}
