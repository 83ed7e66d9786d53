/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
	maxMessageSize = 64 * 1024
)

// Messages coming from clients
type clientFrame struct {
	Type string          `json:"type"` // "joinRoom", "generateCards", "markCell", "deleteRoom"
	Seq  *uint64         `json:"seq,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Messages sent to clients: acks carry the request's seq, pushes do not.
type serverFrame struct {
	Type string  `json:"type"`
	Seq  *uint64 `json:"seq,omitempty"`
	Data any     `json:"data,omitempty"`
}

type ackResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func failure(err error) ackResult {
	return ackResult{OK: false, Error: err.Error()}
}

// Client is one websocket connection. host is the address it is rate
// limited under.
type Client struct {
	id   string
	ip   string
	host string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, ip, host string) *Client {
	return &Client{
		id:   uuid.NewString(),
		ip:   ip,
		host: host,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// enqueue queues data without blocking. It reports false if the client is
// closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// reply acks a request. It reports false if the ack could not be queued.
func (c *Client) reply(seq *uint64, result any) bool {
	if seq == nil {
		return true
	}

	payload, err := json.Marshal(serverFrame{Type: "ack", Seq: seq, Data: result})
	if err != nil {
		return false
	}

	return c.enqueue(payload)
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump runs every request from this connection inline, so a single
// connection's actions are applied in the order they were sent.
func (c *Client) readPump(co *Coordinator, sb *Switchboard, limiter *RateLimiter, pongWait time.Duration, logger zerolog.Logger) {
	defer func() {
		sb.Unregister(c)
		sb.Deliver(co.Disconnect(c.id)...)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Msgf("SERVE: Read error from %s (%s): %v", c.id, c.ip, err)
			}
			return
		}

		var f clientFrame
		if err := json.Unmarshal(message, &f); err != nil {
			payload, _ := json.Marshal(serverFrame{Type: "error", Data: ackResult{Error: "bad json"}})
			c.enqueue(payload)
			continue
		}

		c.handle(co, sb, limiter, f, logger)
	}
}

// handle runs a single request, acks it and fans out the resulting events.
// Every join costs a password hash, so joins draw from the same per-address
// limiter as upgrades.
func (c *Client) handle(co *Coordinator, sb *Switchboard, limiter *RateLimiter, f clientFrame, logger zerolog.Logger) {
	var (
		result any
		events []Event
	)

	if f.Type == "joinRoom" && !limiter.Allow(c.host) {
		result = failure(newError(ErrUnavailable, "Rate limit exceeded"))
	} else {
		result, events = dispatch(co, c.id, f)
	}

	if !c.reply(f.Seq, result) {
		logger.Debug().Msgf("SERVE: Dropped %s ack for %s", f.Type, c.id)
	}

	sb.Deliver(events...)
}

func (c *Client) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return newError(ErrInvalidArgument, "Missing request data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newError(ErrInvalidArgument, "Invalid request data")
	}
	return nil
}

// dispatch routes a single request to the coordinator and returns the ack
// payload for the caller plus any events to fan out.
func dispatch(co *Coordinator, connID string, f clientFrame) (any, []Event) {
	switch f.Type {
	case "joinRoom":
		var req JoinRequest
		if err := decodeData(f.Data, &req); err != nil {
			return failure(err), nil
		}
		ack, events, err := co.Join(connID, req)
		if err != nil {
			return failure(err), nil
		}
		return ack, events

	case "generateCards":
		var req RoomRequest
		if err := decodeData(f.Data, &req); err != nil {
			return failure(err), nil
		}
		events, err := co.GenerateBoards(connID, req)
		if err != nil {
			return failure(err), nil
		}
		return ackResult{OK: true}, events

	case "markCell":
		var req MarkRequest
		if err := decodeData(f.Data, &req); err != nil {
			return failure(err), nil
		}
		events, err := co.MarkCell(connID, req)
		if err != nil {
			return failure(err), nil
		}
		return ackResult{OK: true}, events

	case "deleteRoom":
		var req RoomRequest
		if err := decodeData(f.Data, &req); err != nil {
			return failure(err), nil
		}
		events, err := co.DeleteRoom(connID, req)
		if err != nil {
			return failure(err), nil
		}
		return ackResult{OK: true}, events

	default:
		return failure(newError(ErrInvalidArgument, "Unknown message type")), nil
	}
}
