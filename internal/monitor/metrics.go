// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package monitor exposes Prometheus metrics for camera calls and the byte
// transports under them.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/optic/pkg/transport"
)

// Call results
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// Metrics holds the optic collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	DeviceCalls     *prometheus.CounterVec
	CallDuration    *prometheus.HistogramVec
	DeviceConnected *prometheus.GaugeVec
	BytesWritten    *prometheus.CounterVec
	BytesRead       *prometheus.CounterVec
	TransportErrors *prometheus.CounterVec
	Goroutines      prometheus.Gauge
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		DeviceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optic_device_calls_total",
			Help: "Camera operations by device, operation and result",
		}, []string{"device", "op", "result"}),

		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "optic_device_call_duration_seconds",
			Help:    "Camera operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"device", "op"}),

		DeviceConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "optic_device_connected",
			Help: "1 while the device is connected",
		}, []string{"device"}),

		BytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optic_transport_bytes_written_total",
			Help: "Bytes written to the camera link",
		}, []string{"device"}),

		BytesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optic_transport_bytes_read_total",
			Help: "Bytes read from the camera link",
		}, []string{"device"}),

		TransportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optic_transport_errors_total",
			Help: "Camera link errors by kind",
		}, []string{"device", "kind"}),

		Goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optic_goroutines",
			Help: "Current goroutine count",
		}),
	}

	m.registry.MustRegister(
		m.DeviceCalls,
		m.CallDuration,
		m.DeviceConnected,
		m.BytesWritten,
		m.BytesRead,
		m.TransportErrors,
		m.Goroutines,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCall records one camera operation
func (m *Metrics) ObserveCall(device, op string, started time.Time, err error) {
	result := ResultOK
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, transport.ErrTimeout):
		result = ResultTimeout
	case err != nil:
		result = ResultError
	}
	m.DeviceCalls.WithLabelValues(device, op, result).Inc()
	m.CallDuration.WithLabelValues(device, op).Observe(time.Since(started).Seconds())
}

// SetConnected records a device's connection state
func (m *Metrics) SetConnected(device string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	m.DeviceConnected.WithLabelValues(device).Set(v)
}

// RunRuntimeMonitor samples the goroutine count until ctx is done
func (m *Metrics) RunRuntimeMonitor(ctx context.Context, interval time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := runtime.NumGoroutine()
			m.Goroutines.Set(float64(n))
			log.WithField("goroutines", n).Debug("runtime sample")
		}
	}
}
