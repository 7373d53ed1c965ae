// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConfig describes a serial-over-WebSocket gateway. Each binary
// message carries raw line bytes in either direction.
type WebSocketConfig struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
	ReadTimeout   time.Duration
}

// WebSocket is a Transport over a WebSocket byte bridge
type WebSocket struct {
	cfg WebSocketConfig

	mu       sync.Mutex
	conn     *websocket.Conn
	messages chan []byte
	done     chan struct{}

	// Bytes of the last message that did not fit the caller's buffer
	buf       []byte
	bufOffset int
}

// NewWebSocket creates a WebSocket transport. Nothing is dialed until Open.
func NewWebSocket(cfg WebSocketConfig) *WebSocket {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return &WebSocket{cfg: cfg}
}

// Open validates the URL and performs the WebSocket handshake with HTTP
// Basic auth when credentials are set
func (w *WebSocket) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		return ErrAlreadyOpen
	}

	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: w.cfg.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if w.cfg.Username != "" && w.cfg.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(w.cfg.Username + ":" + w.cfg.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, w.cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("WebSocket connection failed: %w", err)
	}

	w.conn = conn
	w.messages = make(chan []byte, 16)
	w.done = make(chan struct{})
	w.buf = nil
	w.bufOffset = 0

	go w.pump(conn, w.messages, w.done)
	return nil
}

// pump moves binary messages from the socket into the message channel. A
// gorilla read deadline corrupts the connection once it fires, so timeouts
// are enforced on the channel instead.
func (w *WebSocket) pump(conn *websocket.Conn, messages chan<- []byte, done <-chan struct{}) {
	defer close(messages)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case messages <- data:
		case <-done:
			return
		}
	}
}

// IsOpen reports whether the socket is connected
func (w *WebSocket) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

// Read returns the bytes of one WebSocket message, or the remainder of a
// message that did not fit a previous call
func (w *WebSocket) Read(p []byte) (int, error) {
	w.mu.Lock()
	if w.conn == nil {
		w.mu.Unlock()
		return 0, ErrNotOpen
	}
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		w.mu.Unlock()
		return n, nil
	}
	messages, done := w.messages, w.done
	w.mu.Unlock()

	timer := time.NewTimer(w.cfg.ReadTimeout)
	defer timer.Stop()

	select {
	case data, ok := <-messages:
		if !ok {
			return 0, ErrConnectionClosed
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		n := copy(p, data)
		w.buf = data
		w.bufOffset = n
		return n, nil
	case <-done:
		return 0, ErrConnectionClosed
	case <-timer.C:
		return 0, ErrTimeout
	}
}

// Write sends p as one binary message
func (w *WebSocket) Write(p []byte) (int, error) {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return 0, ErrNotOpen
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, fmt.Errorf("websocket: %w", err)
	}
	return len(p), nil
}

// Close closes the socket. Closing a closed transport is a no-op.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return nil
	}
	close(w.done)
	err := w.conn.Close()
	w.conn = nil
	return err
}

// String describes the endpoint for log output
func (w *WebSocket) String() string {
	return fmt.Sprintf("WebSocket: %s", w.cfg.URL)
}
