// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name         string
		buf          []byte
		wantType     ResponseType
		wantSource   byte
		wantSocket   byte
		wantPayload  []byte
		wantCode     byte
		wantConsumed int
	}{
		{
			name:         "ack",
			buf:          []byte{0x90, 0x41, 0xFF},
			wantType:     ResponseAck,
			wantSource:   1,
			wantSocket:   1,
			wantConsumed: 3,
		},
		{
			name:         "completion",
			buf:          []byte{0x90, 0x51, 0xFF},
			wantType:     ResponseCompletion,
			wantSource:   1,
			wantSocket:   1,
			wantPayload:  []byte{},
			wantConsumed: 3,
		},
		{
			name:         "inquiry completion",
			buf:          []byte{0xA0, 0x50, 0x02, 0xFF},
			wantType:     ResponseCompletion,
			wantSource:   2,
			wantPayload:  []byte{0x02},
			wantConsumed: 4,
		},
		{
			name:         "error",
			buf:          []byte{0x90, 0x61, 0x41, 0xFF},
			wantType:     ResponseError,
			wantSource:   1,
			wantSocket:   1,
			wantCode:     0x41,
			wantConsumed: 4,
		},
		{
			name:         "address",
			buf:          []byte{0x88, 0x30, 0x02, 0xFF},
			wantType:     ResponseAddress,
			wantPayload:  []byte{0x02},
			wantConsumed: 4,
		},
		{
			name:         "clear",
			buf:          []byte{0x88, 0x01, 0x00, 0x01, 0xFF},
			wantType:     ResponseClear,
			wantConsumed: 5,
		},
		{
			name:         "first of two frames",
			buf:          []byte{0x90, 0x41, 0xFF, 0x90, 0x51, 0xFF},
			wantType:     ResponseAck,
			wantSource:   1,
			wantSocket:   1,
			wantConsumed: 3,
		},
		{
			name:         "unknown class",
			buf:          []byte{0x90, 0x20, 0xFF},
			wantType:     ResponseUnknown,
			wantSource:   1,
			wantPayload:  []byte{},
			wantConsumed: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, consumed, err := ParseResponse(tt.buf)
			if err != nil {
				t.Fatalf("ParseResponse() error = %v", err)
			}
			if resp.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", resp.Type, tt.wantType)
			}
			if resp.Source != tt.wantSource {
				t.Errorf("Source = %d, want %d", resp.Source, tt.wantSource)
			}
			if resp.Socket != tt.wantSocket {
				t.Errorf("Socket = %d, want %d", resp.Socket, tt.wantSocket)
			}
			if !bytes.Equal(resp.Payload, tt.wantPayload) {
				t.Errorf("Payload = % X, want % X", resp.Payload, tt.wantPayload)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("Code = 0x%02X, want 0x%02X", resp.Code, tt.wantCode)
			}
			if consumed != tt.wantConsumed {
				t.Errorf("consumed = %d, want %d", consumed, tt.wantConsumed)
			}
		})
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"no terminator", []byte{0x90, 0x41}},
		{"too short", []byte{0x90, 0xFF}},
		{"bare terminator", []byte{0xFF}},
		{"header without high bit", []byte{0x10, 0x41, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseResponse(tt.buf)
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("ParseResponse() error = %v, want %v", err, ErrMalformedFrame)
			}
		})
	}
}

func TestTrailingFrame(t *testing.T) {
	tests := []struct {
		name string
		rest []byte
		want bool
	}{
		{"nothing", nil, false},
		{"too short", []byte{0x90, 0x51}, false},
		{"completion", []byte{0x90, 0x51, 0xFF}, true},
		{"garbage", []byte{0x00, 0x00, 0x00}, false},
		{"terminator first", []byte{0xFF, 0x90, 0x51}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trailingFrame(tt.rest); got != tt.want {
				t.Errorf("trailingFrame(% X) = %v, want %v", tt.rest, got, tt.want)
			}
		})
	}
}
