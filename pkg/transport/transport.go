// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the byte channels that the camera protocol
// engines talk over: serial lines, TCP sockets, WebSocket gateways, and an
// in-memory fake for tests.
package transport

import (
	"errors"
	"io"
	"time"
)

// Transport is an opened, bidirectional byte channel.
//
// Write writes all of p or fails. Read blocks until at least one byte
// arrives, the read timeout expires (ErrTimeout), or the peer goes away
// (ErrConnectionClosed). Implementations deliver one burst of bytes per
// Read: everything the peer sent back-to-back lands in the same call, so
// protocol engines can rely on a complete reply frame (or two) arriving in
// a single read.
type Transport interface {
	io.ReadWriteCloser
	Open() error
	IsOpen() bool
}

var (
	// ErrTimeout is returned by Read when nothing arrived within the read timeout
	ErrTimeout = errors.New("transport: read timeout")

	// ErrConnectionClosed is returned when the peer closed the channel or the
	// transport was closed while a read was pending
	ErrConnectionClosed = errors.New("transport: connection closed")

	// ErrNotOpen is returned for I/O on a transport that is not open
	ErrNotOpen = errors.New("transport: not open")

	// ErrAlreadyOpen is returned by Open on an open transport
	ErrAlreadyOpen = errors.New("transport: already open")
)

const (
	// DefaultReadTimeout bounds how long Read waits for the first byte
	DefaultReadTimeout = 1 * time.Second

	// DefaultInterByteGap is the quiet period that ends a burst
	DefaultInterByteGap = 20 * time.Millisecond

	// DefaultBufferSize is the burst buffer used by callers that have no
	// better idea
	DefaultBufferSize = 256
)

// readFunc reads into p, waiting at most wait for data. It returns
// ErrTimeout when nothing arrived.
type readFunc func(p []byte, wait time.Duration) (int, error)

// readBurst fills p with one burst: the first read waits up to timeout,
// follow-up reads wait gap and stop at the first quiet period. Errors after
// data has been collected are left for the next call to report.
func readBurst(p []byte, timeout, gap time.Duration, read readFunc) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n, err := read(p, timeout)
	if err != nil {
		return n, err
	}

	for n < len(p) && gap > 0 {
		m, err := read(p[n:], gap)
		n += m
		if err != nil {
			break
		}
	}
	return n, nil
}

// writeAll loops until p is written or the writer fails
func writeAll(w io.Writer, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := w.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}
