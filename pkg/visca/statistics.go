// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
	"time"
)

// Statistics tracks frame counts seen on a monitored line
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames  uint64
	Commands     uint64
	Inquiries    uint64
	Acks         uint64
	Completions  uint64
	Errors       uint64
	OtherReplies uint64
	DecodeErrors uint64

	// Error replies by code
	ErrorCodes map[byte]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		ErrorCodes:     make(map[byte]uint64),
	}
}

// Update counts one decoded frame or decode error
func (s *Statistics) Update(frame *StreamFrame, decodeErr error) {
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.DecodeErrors++
		return
	}
	if frame == nil {
		return
	}
	s.TotalFrames++

	if frame.Direction() == DirectionCommand {
		if frame.Raw[1] == TypeInquiry {
			s.Inquiries++
		} else {
			s.Commands++
		}
		return
	}

	resp, _, err := ParseResponse(frame.Raw)
	if err != nil {
		s.DecodeErrors++
		return
	}
	switch resp.Type {
	case ResponseAck:
		s.Acks++
	case ResponseCompletion:
		s.Completions++
	case ResponseError:
		s.Errors++
		s.ErrorCodes[resp.Code]++
	default:
		s.OtherReplies++
	}
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors+s.DecodeErrors) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Commands:        %8d\n", s.Commands)
	result += fmt.Sprintf("Inquiries:       %8d\n", s.Inquiries)
	result += fmt.Sprintf("ACK:             %8d\n", s.Acks)
	result += fmt.Sprintf("Completions:     %8d\n", s.Completions)

	if s.Errors > 0 {
		result += fmt.Sprintf("Error Replies:   %8d\n", s.Errors)
		for code, count := range s.ErrorCodes {
			result += fmt.Sprintf("  0x%02X %-22s %6d\n", code, ErrorReason(code), count)
		}
	}
	if s.OtherReplies > 0 {
		result += fmt.Sprintf("Other Replies:   %8d\n", s.OtherReplies)
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d\n", s.DecodeErrors)
	}

	result += fmt.Sprintf("\nFrame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.2f errors/sec\n", s.ErrorRate)

	return result
}
