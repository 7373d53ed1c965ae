// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package itl

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/optic/pkg/transport"
)

// Engine sends ITL requests over one transport and decodes the replies.
//
// Engine does not serialize callers. Two goroutines sharing an Engine can
// have their replies swapped; give each goroutine its own lens or guard
// the Engine externally.
type Engine struct {
	t           transport.Transport
	log         logrus.FieldLogger
	source      uint8
	destination uint8
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for message tracing
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithNodes sets the source and destination node ids
func WithNodes(source, destination uint8) Option {
	return func(e *Engine) {
		e.source = source
		e.destination = destination
	}
}

// NewEngine creates an engine on t. The transport must be opened by the
// caller.
func NewEngine(t transport.Transport, opts ...Option) *Engine {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Engine{
		t:           t,
		log:         discard,
		source:      DefaultSource,
		destination: DefaultDestination,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SendPayload sends one request and returns the validated reply
func (e *Engine) SendPayload(opcode uint32, payload []byte) (*Message, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	frame := NewMessage(opcode, e.source, e.destination, payload).Serialize()
	e.log.WithFields(logrus.Fields{
		"opcode": fmt.Sprintf("0x%08X", opcode),
		"frame":  fmt.Sprintf("% X", frame),
	}).Debug("ITL tx")

	if _, err := e.t.Write(frame); err != nil {
		e.log.WithError(err).Warn("ITL write failed")
		return nil, err
	}

	buf := make([]byte, ReceiveBufferSize)
	n, err := e.t.Read(buf)
	if err != nil {
		e.log.WithError(err).Warn("ITL read failed")
		return nil, err
	}
	e.log.WithField("frame", fmt.Sprintf("% X", buf[:n])).Debug("ITL rx")

	reply, err := Deserialize(buf[:n])
	if err != nil {
		e.log.WithError(err).Warn("ITL reply rejected")
		return nil, err
	}
	return reply, nil
}
