// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itl

import (
	"encoding/binary"
)

// Checksum XORs every byte of data. The result is one byte wide and is
// stored widened to the 16-bit header field.
func Checksum(data []byte) uint16 {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return uint16(sum)
}

// FrameChecksum computes the checksum of a serialized message: the header
// with its checksum field zeroed, followed by the payload. frame is not
// modified.
func FrameChecksum(frame []byte) uint16 {
	if len(frame) < HeaderSize {
		return Checksum(frame)
	}

	header := make([]byte, HeaderSize)
	copy(header, frame[:HeaderSize])
	binary.LittleEndian.PutUint16(header[offsetChecksum:], 0)

	return Checksum(header) ^ Checksum(frame[HeaderSize:])
}

// VerifyChecksum reports whether the stored checksum of frame matches its
// contents
func VerifyChecksum(frame []byte) bool {
	if len(frame) < HeaderSize {
		return false
	}
	stored := binary.LittleEndian.Uint16(frame[offsetChecksum:])
	return stored == FrameChecksum(frame)
}
