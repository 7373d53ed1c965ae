// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itl

// Header layout (all multi-byte fields little-endian)
const (
	offsetOpcode      = 0
	offsetProtocolID  = 4
	offsetLength      = 8
	offsetCounter     = 10
	offsetTimestamp   = 12
	offsetSource      = 16
	offsetDestination = 17
	offsetChecksum    = 18

	HeaderSize = 20
)

const (
	// ProtocolID is carried by every message ("ITL1" on the wire)
	ProtocolID uint32 = 0x314C5449

	// InboundFlag marks replies: the last serialized opcode byte is 0xF0
	InboundFlag   uint32 = 0xF0000000
	inboundMarker byte   = 0xF0
	markerMask    uint32 = 0xFF000000

	// ReceiveBufferSize bounds one reply
	ReceiveBufferSize = 256

	// MaxPayloadSize is the largest payload that fits the receive buffer
	MaxPayloadSize = ReceiveBufferSize - HeaderSize
)

// Default node ids
const (
	DefaultSource      uint8 = 0x01
	DefaultDestination uint8 = 0x10
)

// Lens opcodes
const (
	OpVersion      uint32 = 0x0001
	OpSetZoom      uint32 = 0x0101
	OpGetZoom      uint32 = 0x0102
	OpZoomLimits   uint32 = 0x0103
	OpSetFocus     uint32 = 0x0201
	OpGetFocus     uint32 = 0x0202
	OpFocusLimits  uint32 = 0x0203
	OpSetAutoFocus uint32 = 0x0301
	OpGetAutoFocus uint32 = 0x0302
)

// Lens reply status codes (first reply payload byte)
const (
	StatusOK      byte = 0x00
	StatusBusy    byte = 0x01
	StatusRange   byte = 0x02
	StatusUnknown byte = 0x03
	StatusFault   byte = 0x04
)
