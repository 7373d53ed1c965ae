// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itl

import (
	"errors"
	"fmt"
)

// RejectReason says why a received message was discarded
type RejectReason int

const (
	RejectTooShort RejectReason = iota + 1
	RejectBadOpcode
	RejectLengthMismatch
	RejectBadChecksum
)

func (r RejectReason) String() string {
	switch r {
	case RejectTooShort:
		return "too short"
	case RejectBadOpcode:
		return "bad opcode"
	case RejectLengthMismatch:
		return "length mismatch"
	case RejectBadChecksum:
		return "bad checksum"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// RejectError is returned by Deserialize for a corrupt message
type RejectError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("itl: message rejected: %s", e.Reason)
	}
	return fmt.Sprintf("itl: message rejected: %s (%s)", e.Reason, e.Detail)
}

// RejectReasonOf extracts the reject reason from err, or 0
func RejectReasonOf(err error) RejectReason {
	var rerr *RejectError
	if errors.As(err, &rerr) {
		return rerr.Reason
	}
	return 0
}

var (
	// ErrLensStatus is returned when the lens answers with a non-OK status
	ErrLensStatus = errors.New("itl: lens reported failure")

	// ErrOpcodeMismatch is returned when a reply answers a different request
	ErrOpcodeMismatch = errors.New("itl: reply opcode does not match request")

	// ErrShortReply is returned when a reply payload lacks expected fields
	ErrShortReply = errors.New("itl: reply payload too short")

	// ErrPayloadTooLarge is returned for payloads that cannot fit one message
	ErrPayloadTooLarge = errors.New("itl: payload too large")
)

// StatusText names a lens status code
func StatusText(status byte) string {
	switch status {
	case StatusOK:
		return "ok"
	case StatusBusy:
		return "busy"
	case StatusRange:
		return "value out of range"
	case StatusUnknown:
		return "unknown command"
	case StatusFault:
		return "motor fault"
	default:
		return fmt.Sprintf("status 0x%02X", status)
	}
}
