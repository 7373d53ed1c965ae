// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package monitor

import (
	"errors"

	"github.com/Thermoquad/optic/pkg/transport"
)

// instrumented counts the traffic of a wrapped transport
type instrumented struct {
	transport.Transport
	device string
	m      *Metrics
}

// InstrumentTransport wraps t so its bytes and errors are counted under
// device
func (m *Metrics) InstrumentTransport(t transport.Transport, device string) transport.Transport {
	return &instrumented{Transport: t, device: device, m: m}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, transport.ErrTimeout):
		return "timeout"
	case errors.Is(err, transport.ErrConnectionClosed):
		return "closed"
	case errors.Is(err, transport.ErrNotOpen):
		return "not_open"
	default:
		return "io"
	}
}

func (i *instrumented) Write(p []byte) (int, error) {
	n, err := i.Transport.Write(p)
	i.m.BytesWritten.WithLabelValues(i.device).Add(float64(n))
	if err != nil {
		i.m.TransportErrors.WithLabelValues(i.device, errorKind(err)).Inc()
	}
	return n, err
}

func (i *instrumented) Read(p []byte) (int, error) {
	n, err := i.Transport.Read(p)
	i.m.BytesRead.WithLabelValues(i.device).Add(float64(n))
	if err != nil {
		i.m.TransportErrors.WithLabelValues(i.device, errorKind(err)).Inc()
	}
	return n, err
}
