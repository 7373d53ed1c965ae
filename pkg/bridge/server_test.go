// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Thermoquad/optic/internal/events"
	"github.com/Thermoquad/optic/internal/monitor"
	"github.com/Thermoquad/optic/pkg/device"
	"github.com/Thermoquad/optic/pkg/hal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// zoomOnly is a device with nothing but zoom
type zoomOnly struct{ zoom uint32 }

func (z *zoomOnly) Connect() error                 { return nil }
func (z *zoomOnly) Disconnect() error              { return nil }
func (z *zoomOnly) SetZoom(v uint32) error         { z.zoom = v; return nil }
func (z *zoomOnly) Zoom() (uint32, error)          { return z.zoom, nil }
func (z *zoomOnly) ZoomLimits() (hal.Range, error) { return hal.Range{Min: 0, Max: 1000}, nil }

type fixture struct {
	srv      *Server
	http     *httptest.Server
	sim      *device.Simulated
	metrics  *monitor.Metrics
	recorder *events.Recorder
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()

	sim := device.NewSimulated("bench", device.DefaultViscaZoomRange, device.DefaultViscaFocusRange)
	simHAL, err := hal.New(sim)
	if err != nil {
		t.Fatalf("hal.New(sim) error = %v", err)
	}
	zoomHAL, err := hal.New(&zoomOnly{})
	if err != nil {
		t.Fatalf("hal.New(zoomOnly) error = %v", err)
	}

	reg := NewRegistry()
	reg.Add("bench", simHAL)
	reg.Add("lens", zoomHAL)

	f := &fixture{
		sim:      sim,
		metrics:  monitor.New(),
		recorder: &events.Recorder{},
	}
	f.srv = New(reg, Options{CallTimeout: timeout, Metrics: f.metrics, Publisher: f.recorder})
	f.http = httptest.NewServer(f.srv.Handler())
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, Response) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.http.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t, time.Second)

	resp, err := f.http.Client().Get(f.http.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestServer_List(t *testing.T) {
	f := newFixture(t, time.Second)
	f.do(t, http.MethodPost, "/api/devices/bench/connect", "")

	resp, err := f.http.Client().Get(f.http.URL + "/api/devices")
	if err != nil {
		t.Fatalf("GET /api/devices error = %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Devices []DeviceStatus `json:"devices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(body.Devices) != 2 {
		t.Fatalf("devices = %+v, want 2", body.Devices)
	}
	if !body.Devices[0].Connected || len(body.Devices[0].Capabilities) != 5 {
		t.Errorf("bench = %+v, want connected with 5 capabilities", body.Devices[0])
	}
	if body.Devices[1].Connected || body.Devices[1].Capabilities != nil {
		t.Errorf("lens = %+v, want disconnected without capabilities", body.Devices[1])
	}
}

func TestServer_Operations(t *testing.T) {
	f := newFixture(t, time.Second)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		check      func(t *testing.T, r Response)
	}{
		{"zoom before connect", http.MethodPut, "/api/devices/bench/zoom", `{"value": 50}`, http.StatusConflict, nil},
		{"connect", http.MethodPost, "/api/devices/bench/connect", "", http.StatusOK, nil},
		{"connect twice", http.MethodPost, "/api/devices/bench/connect", "", http.StatusConflict, nil},
		{"set zoom", http.MethodPut, "/api/devices/bench/zoom", `{"value": 50}`, http.StatusOK, nil},
		{"get zoom", http.MethodGet, "/api/devices/bench/zoom", "", http.StatusOK, func(t *testing.T, r Response) {
			if r.Value == nil || *r.Value != 50 {
				t.Errorf("value = %v, want 50", r.Value)
			}
		}},
		{"zoom out of range", http.MethodPut, "/api/devices/bench/zoom", `{"value": 101}`, http.StatusBadRequest, nil},
		{"zoom without value", http.MethodPut, "/api/devices/bench/zoom", `{}`, http.StatusBadRequest, nil},
		{"zoom malformed", http.MethodPut, "/api/devices/bench/zoom", `{"value": "far"}`, http.StatusBadRequest, nil},
		{"set focus", http.MethodPut, "/api/devices/bench/focus", `{"value": 0}`, http.StatusOK, nil},
		{"get focus", http.MethodGet, "/api/devices/bench/focus", "", http.StatusOK, func(t *testing.T, r Response) {
			if r.Value == nil || *r.Value != 0 {
				t.Errorf("value = %v, want 0", r.Value)
			}
		}},
		{"autofocus on", http.MethodPut, "/api/devices/bench/autofocus", `{"enabled": true}`, http.StatusOK, nil},
		{"autofocus state", http.MethodGet, "/api/devices/bench/autofocus", "", http.StatusOK, func(t *testing.T, r Response) {
			if r.Enabled == nil || !*r.Enabled {
				t.Errorf("enabled = %v, want true", r.Enabled)
			}
		}},
		{"stabilization off", http.MethodPut, "/api/devices/bench/stabilization", `{"enabled": false}`, http.StatusOK, nil},
		{"info", http.MethodGet, "/api/devices/bench/info", "", http.StatusOK, func(t *testing.T, r Response) {
			if !strings.Contains(r.Text, "bench") {
				t.Errorf("text = %q", r.Text)
			}
		}},
		{"capabilities", http.MethodGet, "/api/devices/bench/capabilities", "", http.StatusOK, func(t *testing.T, r Response) {
			if len(r.Capabilities) != 5 {
				t.Errorf("capabilities = %v", r.Capabilities)
			}
		}},
		{"unknown device", http.MethodGet, "/api/devices/nope/zoom", "", http.StatusNotFound, nil},
		{"connect lens", http.MethodPost, "/api/devices/lens/connect", "", http.StatusOK, nil},
		{"unsupported", http.MethodPut, "/api/devices/lens/stabilization", `{"enabled": true}`, http.StatusNotImplemented, nil},
		{"disconnect", http.MethodPost, "/api/devices/bench/disconnect", "", http.StatusOK, nil},
		{"zoom after disconnect", http.MethodGet, "/api/devices/bench/zoom", "", http.StatusConflict, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := f.do(t, tt.method, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (error %q)", status, tt.wantStatus, resp.Error)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("body status = %d, want %d", resp.Status, tt.wantStatus)
			}
			if (status == http.StatusOK) != resp.OK {
				t.Errorf("ok = %v with status %d", resp.OK, status)
			}
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}

	kinds := make([]string, 0)
	for _, e := range f.recorder.Events() {
		if e.Device == "bench" {
			kinds = append(kinds, e.Kind)
		}
	}
	want := []string{"connect", "zoom", "focus", "autofocus", "stabilization", "disconnect"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", kinds, want)
	}

	if got := testutil.ToFloat64(f.metrics.DeviceConnected.WithLabelValues("bench")); got != 0 {
		t.Errorf("connected gauge = %v after disconnect, want 0", got)
	}
	if got := testutil.ToFloat64(f.metrics.DeviceCalls.WithLabelValues("bench", OpSetZoom, monitor.ResultOK)); got != 1 {
		t.Errorf("set_zoom ok calls = %v, want 1", got)
	}
}

func TestServer_DeviceFailure(t *testing.T) {
	f := newFixture(t, time.Second)
	f.do(t, http.MethodPost, "/api/devices/bench/connect", "")
	f.sim.SetFailure(errors.New("motor stalled"))

	status, resp := f.do(t, http.MethodGet, "/api/devices/bench/zoom", "")
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", status)
	}
	if !strings.Contains(resp.Error, "motor stalled") {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestServer_CallTimeout(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	f.do(t, http.MethodPost, "/api/devices/bench/connect", "")
	f.sim.SetLatency(200 * time.Millisecond)

	start := time.Now()
	status, _ := f.do(t, http.MethodPut, "/api/devices/bench/zoom", `{"value": 10}`)
	if status != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", status)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("timed-out call took %v", elapsed)
	}
	if got := testutil.ToFloat64(f.metrics.DeviceCalls.WithLabelValues("bench", OpSetZoom, monitor.ResultTimeout)); got != 1 {
		t.Errorf("timeout calls = %v, want 1", got)
	}
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t, time.Second)
	f.do(t, http.MethodPost, "/api/devices/bench/connect", "")

	resp, err := f.http.Client().Get(f.http.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !bytes.Contains(body, []byte(`optic_device_connected{device="bench"} 1`)) {
		t.Errorf("metrics missing connected gauge:\n%s", body)
	}
}

func TestServer_WebSocket(t *testing.T) {
	f := newFixture(t, time.Second)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	roundTrip := func(req Request) Response {
		t.Helper()
		data, err := cbor.Marshal(req)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
		_, reply, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		var resp Response
		if err := cbor.Unmarshal(reply, &resp); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		return resp
	}

	value := 75
	enabled := true

	if r := roundTrip(Request{ID: "1", Device: "bench", Op: OpConnect}); !r.OK || r.ID != "1" {
		t.Fatalf("connect = %+v", r)
	}
	if r := roundTrip(Request{ID: "2", Device: "bench", Op: OpSetFocus, Value: &value}); !r.OK {
		t.Fatalf("set_focus = %+v", r)
	}
	if r := roundTrip(Request{ID: "3", Device: "bench", Op: OpGetFocus}); r.Value == nil || *r.Value != 75 {
		t.Errorf("get_focus = %+v, want 75", r)
	}
	if r := roundTrip(Request{ID: "4", Device: "bench", Op: OpSetStabilization, Enabled: &enabled}); !r.OK {
		t.Errorf("set_stabilization = %+v", r)
	}
	if r := roundTrip(Request{ID: "5", Device: "bench", Op: OpSetZoom}); r.OK || r.Status != http.StatusBadRequest {
		t.Errorf("set_zoom without value = %+v, want 400", r)
	}
	if r := roundTrip(Request{ID: "6", Device: "bench", Op: "pan"}); r.Status != http.StatusBadRequest {
		t.Errorf("unknown op = %+v, want 400", r)
	}
	if r := roundTrip(Request{Device: "bench", Op: OpGetZoom}); r.ID == "" {
		t.Error("request without id got no id assigned")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("zoom 50")); err != nil {
		t.Fatalf("WriteMessage(text) error = %v", err)
	}
	_, reply, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var resp Response
	if err := cbor.Unmarshal(reply, &resp); err != nil || resp.Status != http.StatusBadRequest {
		t.Errorf("text frame reply = %+v, %v, want 400", resp, err)
	}
}

func TestServer_Serve(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	srv := New(NewRegistry(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
