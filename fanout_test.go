/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(id string, buffer int) *Client {
	return &Client{id: id, send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) serverFrame {
	t.Helper()

	select {
	case msg := <-c.send:
		var f struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &f))
		return serverFrame{Type: f.Type, Data: f.Data}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("%s did not receive a message", c.id)
	}
	return serverFrame{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Errorf("%s got unexpected message %s", c.id, msg)
	default:
	}
}

func TestSwitchboard_DeliverToRecipientsOnly(t *testing.T) {
	sb := newSwitchboard(zerolog.Nop())
	a, b, c := testClient("a", 4), testClient("b", 4), testClient("c", 4)
	sb.Register(a)
	sb.Register(b)
	sb.Register(c)

	sb.Deliver(Event{Type: eventCellMarked, To: []string{"a", "c"}, Data: CellMarked{PlayerID: "a", Color: "#fff", Index: 2}})

	for _, cl := range []*Client{a, c} {
		f := receive(t, cl)
		assert.Equal(t, eventCellMarked, f.Type)
		assert.JSONEq(t, `{"playerId":"a","color":"#fff","index":2}`, string(f.Data.(json.RawMessage)))
	}
	assertSilent(t, b)
}

func TestSwitchboard_PushesCarryNoSeq(t *testing.T) {
	sb := newSwitchboard(zerolog.Nop())
	a := testClient("a", 1)
	sb.Register(a)

	sb.Deliver(Event{Type: eventRoomDeleted, To: []string{"a"}, Data: RoomDeleted{RoomID: "r"}})

	msg := <-a.send
	assert.JSONEq(t, `{"type":"roomDeleted","data":{"roomId":"r"}}`, string(msg))
}

func TestSwitchboard_SkipsUnknownRecipients(t *testing.T) {
	sb := newSwitchboard(zerolog.Nop())
	a := testClient("a", 1)
	sb.Register(a)

	assert.NotPanics(t, func() {
		sb.Deliver(Event{Type: eventPlayerLeft, To: []string{"ghost", "a"}, Data: PlayerLeft{ID: "ghost"}})
	})
	assert.Equal(t, eventPlayerLeft, receive(t, a).Type)
}

func TestSwitchboard_FullBufferDoesNotBlock(t *testing.T) {
	sb := newSwitchboard(zerolog.Nop())
	slow, fast := testClient("slow", 1), testClient("fast", 8)
	sb.Register(slow)
	sb.Register(fast)

	done := make(chan struct{})
	go func() {
		for range 5 {
			sb.Deliver(Event{Type: eventRoomState, To: []string{"slow", "fast"}, Data: RoomState{}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked on a full client buffer")
	}

	assert.Len(t, slow.send, 1)
	assert.Len(t, fast.send, 5)
}

func TestSwitchboard_UnregisterClosesClient(t *testing.T) {
	sb := newSwitchboard(zerolog.Nop())
	a := testClient("a", 1)
	sb.Register(a)
	assert.Equal(t, 1, sb.Count())

	sb.Unregister(a)
	assert.Equal(t, 0, sb.Count())

	_, ok := <-a.send
	assert.False(t, ok, "send channel should be closed")
	assert.False(t, a.enqueue([]byte("late")))

	// Closing twice is safe.
	assert.NotPanics(t, a.Close)
}

func TestSwitchboard_UnregisterStaleClientKeepsReplacement(t *testing.T) {
	sb := newSwitchboard(zerolog.Nop())
	old, replacement := testClient("same", 1), testClient("same", 1)

	sb.Register(old)
	sb.Register(replacement)
	sb.Unregister(old)

	assert.Equal(t, 1, sb.Count())
	sb.Deliver(Event{Type: eventRoomState, To: []string{"same"}, Data: RoomState{}})
	assert.Len(t, replacement.send, 1)
}

func TestSwitchboard_CloseAll(t *testing.T) {
	sb := newSwitchboard(zerolog.Nop())
	a, b := testClient("a", 1), testClient("b", 1)
	sb.Register(a)
	sb.Register(b)

	sb.CloseAll()

	assert.Equal(t, 0, sb.Count())
	for _, c := range []*Client{a, b} {
		_, ok := <-c.send
		assert.False(t, ok)
	}
}
