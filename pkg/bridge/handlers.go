// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// DeviceStatus is one entry of the device list
type DeviceStatus struct {
	ID           string   `json:"id"`
	Connected    bool     `json:"connected"`
	Capabilities []string `json:"capabilities,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"devices":   len(s.reg.IDs()),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleList(c *gin.Context) {
	ids := s.reg.IDs()
	list := make([]DeviceStatus, 0, len(ids))
	for _, id := range ids {
		h, err := s.reg.Get(id)
		if err != nil {
			continue
		}
		status := DeviceStatus{ID: id, Connected: h.IsConnected()}
		if caps, err := h.Capabilities(); err == nil {
			status.Capabilities = caps.Strings()
		}
		list = append(list, status)
	}
	c.JSON(http.StatusOK, gin.H{"devices": list})
}

type valueBody struct {
	Value *int `json:"value" binding:"required"`
}

type enabledBody struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// handleOp serves one REST route by dispatching the matching operation
func (s *Server) handleOp(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := Request{
			ID:     c.GetString("request_id"),
			Device: c.Param("id"),
			Op:     op,
		}

		switch op {
		case OpSetZoom, OpSetFocus:
			var body valueBody
			if err := c.ShouldBindJSON(&body); err != nil {
				s.badRequest(c, req, err)
				return
			}
			req.Value = body.Value
		case OpSetAutoFocus, OpSetStabilization:
			var body enabledBody
			if err := c.ShouldBindJSON(&body); err != nil {
				s.badRequest(c, req, err)
				return
			}
			req.Enabled = body.Enabled
		}

		resp := s.Execute(c.Request.Context(), req)
		c.JSON(resp.Status, resp)
	}
}

func (s *Server) badRequest(c *gin.Context, req Request, err error) {
	c.JSON(http.StatusBadRequest, Response{
		ID:     req.ID,
		Error:  fmt.Errorf("%w: %v", ErrBadRequest, err).Error(),
		Status: http.StatusBadRequest,
	})
}

// handleWebSocket answers CBOR requests on one connection, in order
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.opts.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.opts.Log.WithField("remote", conn.RemoteAddr().String())
	log.Info("WebSocket client connected")
	defer log.Info("WebSocket client disconnected")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("WebSocket read ended")
			}
			return
		}

		var resp Response
		var req Request
		switch {
		case msgType != websocket.BinaryMessage:
			resp = Response{Error: fmt.Sprintf("%v: expected binary CBOR frame", ErrBadRequest), Status: http.StatusBadRequest}
		default:
			if err := cbor.Unmarshal(data, &req); err != nil {
				resp = Response{Error: fmt.Sprintf("%v: %v", ErrBadRequest, err), Status: http.StatusBadRequest}
			} else {
				resp = s.Execute(c.Request.Context(), req)
			}
		}

		out, err := cbor.Marshal(resp)
		if err != nil {
			log.WithError(err).Error("Encode WebSocket response")
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			log.WithError(err).Debug("WebSocket write failed")
			return
		}
	}
}
