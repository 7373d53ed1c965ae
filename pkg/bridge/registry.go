// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Thermoquad/optic/pkg/hal"
)

var (
	ErrUnknownDevice   = errors.New("bridge: unknown device")
	ErrDuplicateDevice = errors.New("bridge: duplicate device id")
)

// entry serializes calls to one device; engines such as ITL keep no lock of
// their own
type entry struct {
	mu  sync.Mutex
	hal *hal.HAL
}

// Registry maps device ids to their HAL
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*entry)}
}

// Add registers h under id
func (r *Registry) Add(id string, h *hal.HAL) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateDevice, id)
	}
	r.devices[id] = &entry{hal: h}
	r.order = append(r.order, id)
	return nil
}

// Get looks up a device
func (r *Registry) Get(id string) (*hal.HAL, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.hal, nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}
	return e, nil
}

// IDs returns device ids in registration order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// DisconnectAll disconnects every device, returning the first failure
func (r *Registry) DisconnectAll() error {
	var first error
	for _, id := range r.IDs() {
		e, _ := r.lookup(id)
		e.mu.Lock()
		err := e.hal.Disconnect()
		e.mu.Unlock()
		if err != nil && first == nil {
			first = fmt.Errorf("disconnect %s: %w", id, err)
		}
	}
	return first
}
