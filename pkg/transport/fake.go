// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"sync"
)

// Responder decides what a scripted peer sends back for one write. Each
// returned chunk is delivered by exactly one Read.
type Responder func(written []byte) [][]byte

// Fake is an in-memory Transport for tests. Reads never block: an empty
// receive queue reports ErrTimeout immediately.
type Fake struct {
	mu sync.Mutex

	open      bool
	respond   Responder
	pending   [][]byte
	written   [][]byte
	reads     int
	openCount int

	// Errors returned by the next Open/Write/Read/Close when set
	OpenErr  error
	WriteErr error
	ReadErr  error
	CloseErr error
}

// NewFake creates a closed fake transport driven by respond (may be nil)
func NewFake(respond Responder) *Fake {
	return &Fake{respond: respond}
}

// Open marks the fake as open
func (f *Fake) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OpenErr != nil {
		return f.OpenErr
	}
	if f.open {
		return ErrAlreadyOpen
	}
	f.open = true
	f.openCount++
	return nil
}

// IsOpen reports whether the fake is open
func (f *Fake) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Close marks the fake as closed and drops queued chunks. CloseErr is
// returned after the fake is closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.pending = nil
	return f.CloseErr
}

// Write records p and queues whatever the responder returns
func (f *Fake) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return 0, ErrNotOpen
	}
	if f.WriteErr != nil {
		return 0, f.WriteErr
	}

	frame := append([]byte(nil), p...)
	f.written = append(f.written, frame)

	if f.respond != nil {
		for _, chunk := range f.respond(frame) {
			f.pending = append(f.pending, append([]byte(nil), chunk...))
		}
	}
	return len(p), nil
}

// Read delivers the next queued chunk. A chunk larger than p is split and
// its tail delivered by the following Read.
func (f *Fake) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return 0, ErrNotOpen
	}
	f.reads++
	if f.ReadErr != nil {
		return 0, f.ReadErr
	}
	if len(f.pending) == 0 {
		return 0, ErrTimeout
	}

	chunk := f.pending[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		f.pending[0] = chunk[n:]
	} else {
		f.pending = f.pending[1:]
	}
	return n, nil
}

// Inject queues an unsolicited chunk for a later Read
func (f *Fake) Inject(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, append([]byte(nil), chunk...))
}

// Written returns a copy of every write, in order
func (f *Fake) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]byte, len(f.written))
	for i, w := range f.written {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// WriteCount returns how many writes the fake has seen
func (f *Fake) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// ReadCount returns how many reads the fake has seen
func (f *Fake) ReadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// OpenCount returns how many times the fake was successfully opened
func (f *Fake) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openCount
}

// Reset clears the write log and I/O counters
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = nil
	f.reads = 0
}

// String describes the fake for log output
func (f *Fake) String() string {
	return "Fake"
}
