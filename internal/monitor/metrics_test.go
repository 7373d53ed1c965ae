// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package monitor

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/optic/pkg/transport"
)

func TestObserveCall(t *testing.T) {
	m := New()
	start := time.Now()

	m.ObserveCall("dome", "set_zoom", start, nil)
	m.ObserveCall("dome", "set_zoom", start, nil)
	m.ObserveCall("dome", "set_zoom", start, errors.New("boom"))
	m.ObserveCall("dome", "zoom", start, context.DeadlineExceeded)
	m.ObserveCall("dome", "zoom", start, transport.ErrTimeout)

	tests := []struct {
		op, result string
		want       float64
	}{
		{"set_zoom", ResultOK, 2},
		{"set_zoom", ResultError, 1},
		{"zoom", ResultTimeout, 2},
		{"zoom", ResultOK, 0},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.DeviceCalls.WithLabelValues("dome", tt.op, tt.result))
		if got != tt.want {
			t.Errorf("calls{op=%s,result=%s} = %v, want %v", tt.op, tt.result, got, tt.want)
		}
	}
}

func TestSetConnected(t *testing.T) {
	m := New()

	m.SetConnected("dome", true)
	if got := testutil.ToFloat64(m.DeviceConnected.WithLabelValues("dome")); got != 1 {
		t.Errorf("connected = %v, want 1", got)
	}
	m.SetConnected("dome", false)
	if got := testutil.ToFloat64(m.DeviceConnected.WithLabelValues("dome")); got != 0 {
		t.Errorf("connected = %v, want 0", got)
	}
}

func TestInstrumentTransport(t *testing.T) {
	m := New()
	f := transport.NewFake(func(p []byte) [][]byte {
		return [][]byte{{0x90, 0x41, 0xFF, 0x90, 0x51, 0xFF}}
	})
	tr := m.InstrumentTransport(f, "dome")

	if err := tr.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := tr.Write([]byte{0x81, 0x01, 0x04, 0x00, 0x02, 0xFF}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	buf := make([]byte, 16)
	if _, err := tr.Read(buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, err := tr.Read(buf); !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("second Read() error = %v, want ErrTimeout", err)
	}

	if got := testutil.ToFloat64(m.BytesWritten.WithLabelValues("dome")); got != 6 {
		t.Errorf("bytes written = %v, want 6", got)
	}
	if got := testutil.ToFloat64(m.BytesRead.WithLabelValues("dome")); got != 6 {
		t.Errorf("bytes read = %v, want 6", got)
	}
	if got := testutil.ToFloat64(m.TransportErrors.WithLabelValues("dome", "timeout")); got != 1 {
		t.Errorf("timeout errors = %v, want 1", got)
	}
	if !tr.IsOpen() {
		t.Error("IsOpen() = false through wrapper")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetConnected("dome", true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `optic_device_connected{device="dome"} 1`) {
		t.Errorf("metrics output missing connected gauge:\n%s", body)
	}
}

func TestRunRuntimeMonitor(t *testing.T) {
	m := New()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	m.RunRuntimeMonitor(ctx, 5*time.Millisecond, discardLogger())
	if got := testutil.ToFloat64(m.Goroutines); got < 1 {
		t.Errorf("goroutines gauge = %v, want at least 1", got)
	}
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
