// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialConfig describes a serial line
type SerialConfig struct {
	Port         string
	BaudRate     int
	ReadTimeout  time.Duration
	InterByteGap time.Duration
}

// Serial is a Transport over an RS-232/RS-422 line (8N1)
type Serial struct {
	cfg SerialConfig

	mu   sync.Mutex
	port serial.Port
}

// NewSerial creates a serial transport. The port is not opened until Open.
func NewSerial(cfg SerialConfig) *Serial {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.InterByteGap == 0 {
		cfg.InterByteGap = DefaultInterByteGap
	}
	return &Serial{cfg: cfg}
}

// Open opens the serial port
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return ErrAlreadyOpen
	}

	mode := &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.cfg.Port, err)
	}

	s.port = port
	return nil
}

// IsOpen reports whether the port is open
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *Serial) current() (serial.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, ErrNotOpen
	}
	return s.port, nil
}

// Read returns one burst of bytes from the line
func (s *Serial) Read(p []byte) (int, error) {
	port, err := s.current()
	if err != nil {
		return 0, err
	}

	return readBurst(p, s.cfg.ReadTimeout, s.cfg.InterByteGap, func(buf []byte, wait time.Duration) (int, error) {
		if err := port.SetReadTimeout(wait); err != nil {
			return 0, mapSerialError(err)
		}
		n, err := port.Read(buf)
		if err != nil {
			return n, mapSerialError(err)
		}
		if n == 0 {
			// go.bug.st/serial reports an expired timeout as (0, nil)
			return 0, ErrTimeout
		}
		return n, nil
	})
}

// Write writes all of p to the line
func (s *Serial) Write(p []byte) (int, error) {
	port, err := s.current()
	if err != nil {
		return 0, err
	}
	n, err := writeAll(port, p)
	if err != nil {
		return n, mapSerialError(err)
	}
	return n, nil
}

// Close closes the port. Closing a closed port is a no-op.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// String describes the line for log output
func (s *Serial) String() string {
	return fmt.Sprintf("Serial: %s @ %d baud", s.cfg.Port, s.cfg.BaudRate)
}

func mapSerialError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return ErrConnectionClosed
	}
	return fmt.Errorf("serial: %w", err)
}

// ListPorts returns the serial ports present on this machine
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
