// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"bytes"
	"fmt"
)

// ResponseType classifies a reply frame
type ResponseType int

const (
	ResponseUnknown ResponseType = iota
	ResponseAck
	ResponseCompletion
	ResponseError
	ResponseAddress
	ResponseClear
)

func (t ResponseType) String() string {
	switch t {
	case ResponseAck:
		return "ACK"
	case ResponseCompletion:
		return "COMPLETION"
	case ResponseError:
		return "ERROR"
	case ResponseAddress:
		return "ADDRESS"
	case ResponseClear:
		return "CLEAR"
	default:
		return "UNKNOWN"
	}
}

// Response is one decoded reply frame
type Response struct {
	Type ResponseType

	// Sender address from the header byte: 0x90 is camera 1, and
	// broadcast replies report 0
	Source byte

	// Socket number for ACK/COMPLETION/ERROR
	Socket byte

	// Payload after the reply-type byte. Empty for ACK and ERROR.
	Payload []byte

	// Error code for ERROR replies
	Code byte
}

// ParseResponse decodes the first frame in buf and reports how many bytes
// it consumed, terminator included
func ParseResponse(buf []byte) (*Response, int, error) {
	end := bytes.IndexByte(buf, Terminator)
	if end < 0 {
		return nil, 0, fmt.Errorf("%w: no terminator in %d bytes", ErrMalformedFrame, len(buf))
	}
	consumed := end + 1
	if consumed < MinFrameSize {
		return nil, consumed, fmt.Errorf("%w: %d byte frame", ErrMalformedFrame, consumed)
	}

	header := buf[0]
	if header&responseStartMask == 0 {
		return nil, consumed, fmt.Errorf("%w: bad header 0x%02X", ErrMalformedFrame, header)
	}

	kind := buf[1]
	body := buf[2:end]
	resp := &Response{Source: (header >> 4) & 0x07}

	switch {
	case header == BroadcastHeader && kind == replyAddress:
		resp.Type = ResponseAddress
		resp.Source = 0
		resp.Payload = append([]byte(nil), body...)
	case header == BroadcastHeader && kind == replyClear:
		resp.Type = ResponseClear
		resp.Source = 0
	case kind&0xF0 == replyAck:
		resp.Type = ResponseAck
		resp.Socket = kind & 0x0F
	case kind&0xF0 == replyCompletion:
		resp.Type = ResponseCompletion
		resp.Socket = kind & 0x0F
		resp.Payload = append([]byte(nil), body...)
	case kind&0xF0 == replyError:
		resp.Type = ResponseError
		resp.Socket = kind & 0x0F
		if len(body) > 0 {
			resp.Code = body[0]
		}
	default:
		resp.Type = ResponseUnknown
		resp.Payload = append([]byte(nil), body...)
	}

	return resp, consumed, nil
}

// trailingFrame reports whether rest can hold a second complete reply
func trailingFrame(rest []byte) bool {
	return len(rest) >= MinFrameSize &&
		rest[0]&responseStartMask != 0 &&
		rest[0] != Terminator
}
