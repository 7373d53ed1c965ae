// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/optic/pkg/transport"
)

// Camera is a VISCA protocol engine bound to one transport and one camera
// address. All transactions are serialized: VISCA is half-duplex, so
// concurrent callers block rather than interleave on the line.
type Camera struct {
	t   transport.Transport
	log logrus.FieldLogger

	mu        sync.Mutex
	broadcast bool
	address   byte
}

// Option configures a Camera
type Option func(*Camera)

// WithLogger sets the logger used for frame tracing
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Camera) {
		c.log = log
	}
}

// WithBroadcast sends every command with the broadcast header
func WithBroadcast(broadcast bool) Option {
	return func(c *Camera) {
		c.broadcast = broadcast
	}
}

// WithAddress fixes the camera address for links where address
// assignment is not used (VISCA over IP, single camera with DIP switches)
func WithAddress(address byte) Option {
	return func(c *Camera) {
		c.address = address
	}
}

// NewCamera creates an engine on t. The transport must be opened by the
// caller before the first transaction.
func NewCamera(t transport.Transport, opts ...Option) *Camera {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Camera{t: t, log: discard}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the learned camera address (0 until assigned)
func (c *Camera) Address() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Broadcast reports whether commands go out with the broadcast header
func (c *Camera) Broadcast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broadcast
}

// SetBroadcast switches between broadcast and addressed commands
func (c *Camera) SetBroadcast(broadcast bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcast = broadcast
}

// SetAddress runs the address-assignment exchange. The request always goes
// out as broadcast; the reply carries the next free address, so this
// camera's address is one less. On failure the address stays unset.
func (c *Camera) SetAddress() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := new(Packet).AppendByte(addressSetCode).AppendByte(addressSetFirst).Bytes()
	reply, err := c.transact(payload, true)
	if err != nil {
		return fmt.Errorf("address set: %w", err)
	}

	next, err := Uint8At(reply, 0)
	if err != nil {
		return fmt.Errorf("address set: %w", err)
	}
	if len(reply) != 1 || next < 2 || next > MaxCameraAddress+1 {
		return fmt.Errorf("address set: %w: reply % X", ErrMalformedFrame, reply)
	}

	c.address = next - 1
	c.log.WithField("address", c.address).Info("VISCA camera address assigned")
	return nil
}

// Clear flushes the camera's command buffers
func (c *Camera) Clear() error {
	_, err := c.writeRead(NewCommand(CategoryInterface, interfaceClearCode).Bytes())
	if err != nil {
		return fmt.Errorf("interface clear: %w", err)
	}
	return nil
}

// writeRead performs one transaction and returns the reply payload
// (empty for plain commands)
func (c *Camera) writeRead(payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transact(payload, c.broadcast)
}

// transact does the I/O for one transaction. Caller holds c.mu.
func (c *Camera) transact(payload []byte, broadcast bool) ([]byte, error) {
	if !broadcast && c.address == 0 {
		return nil, ErrAddressNotSet
	}

	frame := Frame(payload, broadcast, c.address)
	c.log.WithField("frame", fmt.Sprintf("% X", frame)).Debug("VISCA tx")

	if _, err := c.t.Write(frame); err != nil {
		c.log.WithError(err).Warn("VISCA write failed")
		return nil, err
	}

	buf := make([]byte, receiveBufferSize)
	n, err := c.t.Read(buf)
	if err != nil {
		c.log.WithError(err).Warn("VISCA read failed")
		return nil, err
	}
	c.log.WithField("frame", fmt.Sprintf("% X", buf[:n])).Debug("VISCA rx")

	resp, consumed, err := ParseResponse(buf[:n])
	if err != nil {
		return nil, err
	}

	if resp.Type == ResponseAck {
		rest := buf[consumed:n]
		if trailingFrame(rest) {
			resp, _, err = ParseResponse(rest)
		} else {
			n, err = c.t.Read(buf)
			if err != nil {
				c.log.WithError(err).Warn("VISCA read failed")
				return nil, err
			}
			c.log.WithField("frame", fmt.Sprintf("% X", buf[:n])).Debug("VISCA rx")
			resp, _, err = ParseResponse(buf[:n])
		}
		if err != nil {
			return nil, err
		}
	}

	switch resp.Type {
	case ResponseCompletion, ResponseAddress, ResponseClear:
		return resp.Payload, nil
	case ResponseError:
		perr := &ProtocolError{Code: resp.Code, Socket: resp.Socket}
		c.log.WithField("code", fmt.Sprintf("0x%02X", resp.Code)).Warn(perr.Error())
		return nil, perr
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Type)
	}
}
