// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itl

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed part of every ITL message
type Header struct {
	Opcode      uint32
	ProtocolID  uint32
	Length      uint16
	Counter     uint16
	Timestamp   uint32
	Source      uint8
	Destination uint8
	Checksum    uint16
}

// Message is a header plus payload
type Message struct {
	Header
	Payload []byte
}

// NewMessage builds a sealed message. Counter and timestamp are left zero.
func NewMessage(opcode uint32, source, destination uint8, payload []byte) *Message {
	m := &Message{
		Header: Header{
			Opcode:      opcode,
			ProtocolID:  ProtocolID,
			Source:      source,
			Destination: destination,
		},
		Payload: append([]byte(nil), payload...),
	}
	m.Seal()
	return m
}

// Inbound reports whether the opcode carries the reply marker
func (m *Message) Inbound() bool {
	return m.Opcode&markerMask == InboundFlag
}

// Command returns the opcode without the reply marker
func (m *Message) Command() uint32 {
	return m.Opcode &^ markerMask
}

// Seal fills in Length and Checksum from the current contents. The
// checksum is computed in two passes: the field is cleared, the message
// is encoded and summed, then the field is written.
func (m *Message) Seal() {
	m.Length = uint16(HeaderSize + len(m.Payload))
	m.Checksum = 0
	m.Checksum = FrameChecksum(m.encode())
}

// Serialize seals the message and returns its wire form
func (m *Message) Serialize() []byte {
	m.Seal()
	return m.encode()
}

func (m *Message) encode() []byte {
	buf := make([]byte, HeaderSize+len(m.Payload))
	binary.LittleEndian.PutUint32(buf[offsetOpcode:], m.Opcode)
	binary.LittleEndian.PutUint32(buf[offsetProtocolID:], m.ProtocolID)
	binary.LittleEndian.PutUint16(buf[offsetLength:], m.Length)
	binary.LittleEndian.PutUint16(buf[offsetCounter:], m.Counter)
	binary.LittleEndian.PutUint32(buf[offsetTimestamp:], m.Timestamp)
	buf[offsetSource] = m.Source
	buf[offsetDestination] = m.Destination
	binary.LittleEndian.PutUint16(buf[offsetChecksum:], m.Checksum)
	copy(buf[HeaderSize:], m.Payload)
	return buf
}

// Deserialize validates and decodes a received message. Nothing is
// extracted unless every check passes.
func Deserialize(buf []byte) (*Message, error) {
	if len(buf) < HeaderSize {
		return nil, &RejectError{Reason: RejectTooShort, Detail: fmt.Sprintf("%d bytes, header is %d", len(buf), HeaderSize)}
	}
	if buf[offsetOpcode+3] != inboundMarker {
		return nil, &RejectError{Reason: RejectBadOpcode, Detail: fmt.Sprintf("opcode 0x%08X", binary.LittleEndian.Uint32(buf[offsetOpcode:]))}
	}
	length := binary.LittleEndian.Uint16(buf[offsetLength:])
	if int(length) != len(buf) {
		return nil, &RejectError{Reason: RejectLengthMismatch, Detail: fmt.Sprintf("length field %d, received %d", length, len(buf))}
	}
	stored := binary.LittleEndian.Uint16(buf[offsetChecksum:])
	if computed := FrameChecksum(buf); stored != computed {
		return nil, &RejectError{Reason: RejectBadChecksum, Detail: fmt.Sprintf("stored 0x%04X, computed 0x%04X", stored, computed)}
	}

	m := &Message{
		Header: Header{
			Opcode:      binary.LittleEndian.Uint32(buf[offsetOpcode:]),
			ProtocolID:  binary.LittleEndian.Uint32(buf[offsetProtocolID:]),
			Length:      length,
			Counter:     binary.LittleEndian.Uint16(buf[offsetCounter:]),
			Timestamp:   binary.LittleEndian.Uint32(buf[offsetTimestamp:]),
			Source:      buf[offsetSource],
			Destination: buf[offsetDestination],
			Checksum:    stored,
		},
		Payload: append([]byte(nil), buf[HeaderSize:]...),
	}
	return m, nil
}
