// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge exposes registered cameras over REST and a CBOR WebSocket
// protocol.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/optic/internal/events"
	"github.com/Thermoquad/optic/internal/monitor"
	"github.com/Thermoquad/optic/pkg/hal"
)

// DefaultCallTimeout bounds a device call when Options leaves it zero
const DefaultCallTimeout = 5 * time.Second

// Options configures a Server. Nil Metrics disables /metrics; nil Publisher
// drops events.
type Options struct {
	CallTimeout time.Duration
	Metrics     *monitor.Metrics
	Publisher   events.Publisher
	Log         logrus.FieldLogger
}

// Server routes REST and WebSocket requests to registered devices
type Server struct {
	reg      *Registry
	opts     Options
	engine   *gin.Engine
	upgrader websocket.Upgrader
}

// New builds the router
func New(reg *Registry, opts Options) *Server {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		opts.Log = discard
	}

	s := &Server{
		reg:  reg,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}
	s.engine.GET("/ws", s.handleWebSocket)

	api := s.engine.Group("/api/devices")
	api.GET("", s.handleList)
	api.POST("/:id/connect", s.handleOp(OpConnect))
	api.POST("/:id/disconnect", s.handleOp(OpDisconnect))
	api.GET("/:id/zoom", s.handleOp(OpGetZoom))
	api.PUT("/:id/zoom", s.handleOp(OpSetZoom))
	api.GET("/:id/focus", s.handleOp(OpGetFocus))
	api.PUT("/:id/focus", s.handleOp(OpSetFocus))
	api.GET("/:id/autofocus", s.handleOp(OpGetAutoFocus))
	api.PUT("/:id/autofocus", s.handleOp(OpSetAutoFocus))
	api.GET("/:id/stabilization", s.handleOp(OpGetStabilization))
	api.PUT("/:id/stabilization", s.handleOp(OpSetStabilization))
	api.GET("/:id/info", s.handleOp(OpInfo))
	api.GET("/:id/capabilities", s.handleOp(OpCapabilities))
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Log.WithField("addr", ln.Addr().String()).Info("Bridge listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		s.opts.Log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start),
			"request_id": id,
		}).Debug("HTTP request")
	}
}

//////////////////////////////////////////////////////////////
// Dispatch
//////////////////////////////////////////////////////////////

type callResult struct {
	resp Response
	err  error
}

// call runs fn against a device, bounded by the call timeout. Calls to the
// same device run one at a time. A call that times out keeps running on the
// device; its result is dropped.
func (s *Server) call(ctx context.Context, e *entry, fn func(*hal.HAL) (Response, error)) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		resp, err := fn(e.hal)
		done <- callResult{resp, err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%w: %w", ErrCallTimeout, ctx.Err())
	}
}

// Execute validates and runs one request, then records metrics and
// publishes the resulting event
func (s *Server) Execute(ctx context.Context, req Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	started := time.Now()

	resp, err := s.execute(ctx, req)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveCall(req.Device, req.Op, started, err)
	}

	resp.ID = req.ID
	resp.Status = StatusOf(err)
	if err != nil {
		resp.Error = err.Error()
		s.opts.Log.WithFields(logrus.Fields{
			"device": req.Device,
			"op":     req.Op,
			"id":     req.ID,
		}).WithError(err).Warn("Device call failed")
		return resp
	}
	resp.OK = true
	return resp
}

func (s *Server) execute(ctx context.Context, req Request) (Response, error) {
	op, ok := operations[req.Op]
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
	}
	if err := op.check(req); err != nil {
		return Response{}, err
	}
	e, err := s.reg.lookup(req.Device)
	if err != nil {
		return Response{}, err
	}

	resp, err := s.call(ctx, e, func(h *hal.HAL) (Response, error) {
		return op.run(h, req)
	})
	if err != nil {
		return Response{}, err
	}

	if op.event != "" {
		s.publish(ctx, req, op.event)
	}
	return resp, nil
}

func (s *Server) publish(ctx context.Context, req Request, kind string) {
	e := events.New(req.Device, kind)
	switch {
	case req.Value != nil:
		e = e.WithValue(*req.Value)
	case req.Enabled != nil:
		e = e.WithEnabled(*req.Enabled)
	}

	if s.opts.Metrics != nil {
		switch kind {
		case events.KindConnect:
			s.opts.Metrics.SetConnected(req.Device, true)
		case events.KindDisconnect:
			s.opts.Metrics.SetConnected(req.Device, false)
		}
	}

	if err := s.opts.Publisher.Publish(ctx, e); err != nil {
		s.opts.Log.WithError(err).WithField("device", req.Device).Warn("Event not published")
	}
}
