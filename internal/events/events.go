// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package events publishes camera state changes.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds
const (
	KindConnect       = "connect"
	KindDisconnect    = "disconnect"
	KindZoom          = "zoom"
	KindFocus         = "focus"
	KindAutoFocus     = "autofocus"
	KindStabilization = "stabilization"
)

// Event is one state change of one device
type Event struct {
	ID      string    `json:"id"`
	Device  string    `json:"device"`
	Kind    string    `json:"kind"`
	Value   *int      `json:"value,omitempty"`
	Enabled *bool     `json:"enabled,omitempty"`
	Time    time.Time `json:"time"`
}

// New creates an event with a fresh id
func New(device, kind string) Event {
	return Event{
		ID:     uuid.NewString(),
		Device: device,
		Kind:   kind,
		Time:   time.Now().UTC(),
	}
}

// WithValue sets the normalized value
func (e Event) WithValue(v int) Event {
	e.Value = &v
	return e
}

// WithEnabled sets the toggle state
func (e Event) WithEnabled(b bool) Event {
	e.Enabled = &b
	return e
}

// Publisher delivers events somewhere
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
