// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Thermoquad/optic/internal/events"
	"github.com/Thermoquad/optic/pkg/hal"
)

// Operation names, shared by the REST routes and the WebSocket protocol
const (
	OpConnect          = "connect"
	OpDisconnect       = "disconnect"
	OpGetZoom          = "get_zoom"
	OpSetZoom          = "set_zoom"
	OpGetFocus         = "get_focus"
	OpSetFocus         = "set_focus"
	OpGetAutoFocus     = "get_autofocus"
	OpSetAutoFocus     = "set_autofocus"
	OpGetStabilization = "get_stabilization"
	OpSetStabilization = "set_stabilization"
	OpInfo             = "info"
	OpCapabilities     = "capabilities"
)

var (
	ErrUnknownOp       = errors.New("bridge: unknown operation")
	ErrMissingArgument = errors.New("bridge: missing argument")
	ErrBadRequest      = errors.New("bridge: malformed request")
	ErrCallTimeout     = errors.New("bridge: device call timed out")
)

// Request is one device operation. Over WebSocket it travels as a CBOR map
// with integer keys.
type Request struct {
	ID      string `cbor:"1,keyasint" json:"id,omitempty"`
	Device  string `cbor:"2,keyasint" json:"device"`
	Op      string `cbor:"3,keyasint" json:"op"`
	Value   *int   `cbor:"4,keyasint,omitempty" json:"value,omitempty"`
	Enabled *bool  `cbor:"5,keyasint,omitempty" json:"enabled,omitempty"`
}

// Response answers one Request
type Response struct {
	ID           string   `cbor:"1,keyasint" json:"id"`
	OK           bool     `cbor:"2,keyasint" json:"ok"`
	Value        *int     `cbor:"3,keyasint,omitempty" json:"value,omitempty"`
	Enabled      *bool    `cbor:"4,keyasint,omitempty" json:"enabled,omitempty"`
	Text         string   `cbor:"5,keyasint,omitempty" json:"text,omitempty"`
	Capabilities []string `cbor:"6,keyasint,omitempty" json:"capabilities,omitempty"`
	Error        string   `cbor:"7,keyasint,omitempty" json:"error,omitempty"`
	Status       int      `cbor:"8,keyasint" json:"status"`
}

// operation describes how to run one op against a HAL
type operation struct {
	needsValue   bool
	needsEnabled bool
	event        string
	run          func(h *hal.HAL, req Request) (Response, error)
}

func valueResponse(v int, err error) (Response, error) {
	if err != nil {
		return Response{}, err
	}
	return Response{Value: &v}, nil
}

func enabledResponse(b bool, err error) (Response, error) {
	if err != nil {
		return Response{}, err
	}
	return Response{Enabled: &b}, nil
}

var operations = map[string]operation{
	OpConnect: {event: events.KindConnect, run: func(h *hal.HAL, _ Request) (Response, error) {
		return Response{}, h.Connect()
	}},
	OpDisconnect: {event: events.KindDisconnect, run: func(h *hal.HAL, _ Request) (Response, error) {
		return Response{}, h.Disconnect()
	}},
	OpGetZoom: {run: func(h *hal.HAL, _ Request) (Response, error) {
		return valueResponse(h.Zoom())
	}},
	OpSetZoom: {needsValue: true, event: events.KindZoom, run: func(h *hal.HAL, req Request) (Response, error) {
		return Response{Value: req.Value}, h.SetZoom(*req.Value)
	}},
	OpGetFocus: {run: func(h *hal.HAL, _ Request) (Response, error) {
		return valueResponse(h.Focus())
	}},
	OpSetFocus: {needsValue: true, event: events.KindFocus, run: func(h *hal.HAL, req Request) (Response, error) {
		return Response{Value: req.Value}, h.SetFocus(*req.Value)
	}},
	OpGetAutoFocus: {run: func(h *hal.HAL, _ Request) (Response, error) {
		return enabledResponse(h.AutoFocus())
	}},
	OpSetAutoFocus: {needsEnabled: true, event: events.KindAutoFocus, run: func(h *hal.HAL, req Request) (Response, error) {
		return Response{Enabled: req.Enabled}, h.EnableAutoFocus(*req.Enabled)
	}},
	OpGetStabilization: {run: func(h *hal.HAL, _ Request) (Response, error) {
		return enabledResponse(h.Stabilization())
	}},
	OpSetStabilization: {needsEnabled: true, event: events.KindStabilization, run: func(h *hal.HAL, req Request) (Response, error) {
		return Response{Enabled: req.Enabled}, h.Stabilize(*req.Enabled)
	}},
	OpInfo: {run: func(h *hal.HAL, _ Request) (Response, error) {
		text, err := h.Info()
		return Response{Text: text}, err
	}},
	OpCapabilities: {run: func(h *hal.HAL, _ Request) (Response, error) {
		caps, err := h.Capabilities()
		return Response{Capabilities: caps.Strings()}, err
	}},
}

// check validates the request shape before any device is touched
func (o operation) check(req Request) error {
	if o.needsValue && req.Value == nil {
		return fmt.Errorf("%w: %s needs a value", ErrMissingArgument, req.Op)
	}
	if o.needsEnabled && req.Enabled == nil {
		return fmt.Errorf("%w: %s needs enabled", ErrMissingArgument, req.Op)
	}
	return nil
}

// StatusOf maps an operation error onto an HTTP status
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, hal.ErrValueOutOfRange),
		errors.Is(err, ErrMissingArgument),
		errors.Is(err, ErrUnknownOp),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, hal.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, hal.ErrNotConnected), errors.Is(err, hal.ErrAlreadyConnected):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownDevice):
		return http.StatusNotFound
	case errors.Is(err, ErrCallTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
