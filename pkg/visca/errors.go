// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned for bytes that do not form a VISCA frame
	ErrMalformedFrame = errors.New("visca: malformed frame")

	// ErrIndexOutOfRange is returned when unpacking past the end of a payload
	ErrIndexOutOfRange = errors.New("visca: index out of range")

	// ErrUnexpectedResponse is returned for a well-formed reply of the wrong type
	ErrUnexpectedResponse = errors.New("visca: unexpected response")

	// ErrUnknownDevice is returned when neither vendor nor model is recognized
	ErrUnknownDevice = errors.New("visca: unknown device")

	// ErrAddressNotSet is returned for addressed traffic before SetAddress
	ErrAddressNotSet = errors.New("visca: camera address not set")

	// ErrFeatureKind is returned when a feature is driven with the wrong primitive
	ErrFeatureKind = errors.New("visca: operation not valid for feature")
)

// Error codes carried by an error reply
const (
	ErrCodeMessageLength byte = 0x01
	ErrCodeSyntax        byte = 0x02
	ErrCodeBufferFull    byte = 0x03
	ErrCodeCancelled     byte = 0x04
	ErrCodeNoSocket      byte = 0x05
	ErrCodeNotExecutable byte = 0x41
)

// ProtocolError is an error reply from the camera
type ProtocolError struct {
	Code   byte
	Socket byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("visca: camera error 0x%02X: %s", e.Code, ErrorReason(e.Code))
}

// ErrorReason maps an error reply code to a human-readable reason
func ErrorReason(code byte) string {
	switch code {
	case ErrCodeMessageLength:
		return "message length error"
	case ErrCodeSyntax:
		return "syntax error"
	case ErrCodeBufferFull:
		return "command buffer full"
	case ErrCodeCancelled:
		return "command cancelled"
	case ErrCodeNoSocket:
		return "no socket"
	case ErrCodeNotExecutable:
		return "command not executable"
	default:
		return "unknown error"
	}
}
