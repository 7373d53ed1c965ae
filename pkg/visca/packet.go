// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"encoding/binary"
	"fmt"
)

// Packet accumulates the payload of one VISCA message (everything between
// the header byte and the terminator)
type Packet struct {
	data   [MaxPayloadSize]byte
	length int
}

// NewCommand starts a command payload for category/feature
func NewCommand(category, feature byte) *Packet {
	return new(Packet).AppendByte(TypeCommand).AppendByte(category).AppendByte(feature)
}

// NewInquiry starts an inquiry payload for category/feature
func NewInquiry(category, feature byte) *Packet {
	return new(Packet).AppendByte(TypeInquiry).AppendByte(category).AppendByte(feature)
}

// AppendByte appends one byte. Appending past MaxPayloadSize is a
// programming error and panics.
func (p *Packet) AppendByte(b byte) *Packet {
	if p.length >= MaxPayloadSize {
		panic(fmt.Sprintf("visca: payload exceeds %d bytes", MaxPayloadSize))
	}
	p.data[p.length] = b
	p.length++
	return p
}

// AppendNibbles16 appends v as four nibble bytes, most significant first
func (p *Packet) AppendNibbles16(v uint16) *Packet {
	return p.AppendByte(byte(v>>12) & 0x0F).
		AppendByte(byte(v>>8) & 0x0F).
		AppendByte(byte(v>>4) & 0x0F).
		AppendByte(byte(v) & 0x0F)
}

// Len returns the payload length
func (p *Packet) Len() int {
	return p.length
}

// Bytes returns a copy of the payload
func (p *Packet) Bytes() []byte {
	out := make([]byte, p.length)
	copy(out, p.data[:p.length])
	return out
}

// Frame wraps payload with header and terminator. address 0 with
// broadcast set produces the broadcast header.
func Frame(payload []byte, broadcast bool, address byte) []byte {
	frame := make([]byte, 0, len(payload)+2)
	if broadcast {
		frame = append(frame, BroadcastHeader)
	} else {
		frame = append(frame, AddressedHeader|(address&0x07))
	}
	frame = append(frame, payload...)
	return append(frame, Terminator)
}

// Uint8At returns payload[index]
func Uint8At(payload []byte, index int) (byte, error) {
	if index < 0 || index >= len(payload) {
		return 0, fmt.Errorf("%w: byte %d of %d", ErrIndexOutOfRange, index, len(payload))
	}
	return payload[index], nil
}

// Uint16At reassembles a nibble-packed value from the four bytes at index
func Uint16At(payload []byte, index int) (uint16, error) {
	if index < 0 || index+4 > len(payload) {
		return 0, fmt.Errorf("%w: nibbles %d..%d of %d", ErrIndexOutOfRange, index, index+3, len(payload))
	}

	var v uint16
	for _, b := range payload[index : index+4] {
		if b&0xF0 != 0 {
			return 0, fmt.Errorf("%w: byte 0x%02X is not a nibble", ErrMalformedFrame, b)
		}
		v = v<<4 | uint16(b)
	}
	return v, nil
}

// BigEndian16At reads two raw bytes at index as a big-endian value. The
// camera info reply carries ids this way rather than nibble-packed.
func BigEndian16At(payload []byte, index int) (uint16, error) {
	if index < 0 || index+2 > len(payload) {
		return 0, fmt.Errorf("%w: bytes %d..%d of %d", ErrIndexOutOfRange, index, index+1, len(payload))
	}
	return binary.BigEndian.Uint16(payload[index:]), nil
}
