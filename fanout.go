/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Switchboard tracks live connections by ID and delivers coordinator events
// to them. Delivery never blocks and never fails the caller.
type Switchboard struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     zerolog.Logger
}

func newSwitchboard(logger zerolog.Logger) *Switchboard {
	return &Switchboard{
		clients: make(map[string]*Client),
		log:     logger,
	}
}

func (sb *Switchboard) Register(c *Client) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.clients[c.id] = c
}

func (sb *Switchboard) Unregister(c *Client) {
	sb.mu.Lock()
	if sb.clients[c.id] == c {
		delete(sb.clients, c.id)
	}
	sb.mu.Unlock()

	c.Close()
}

func (sb *Switchboard) Count() int {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return len(sb.clients)
}

// Deliver pushes each event to its recipients. Recipients that have already
// gone away are skipped silently.
func (sb *Switchboard) Deliver(events ...Event) {
	for _, ev := range events {
		payload, err := json.Marshal(serverFrame{Type: ev.Type, Data: ev.Data})
		if err != nil {
			sb.log.Error().Err(err).Msgf("ERROR: Encoding %s event", ev.Type)
			continue
		}

		sb.mu.RLock()
		for _, id := range ev.To {
			c, ok := sb.clients[id]
			if !ok {
				continue
			}
			if !c.enqueue(payload) {
				sb.log.Debug().Msgf("SERVE: Dropped %s event for %s", ev.Type, id)
			}
		}
		sb.mu.RUnlock()
	}
}

// CloseAll closes every tracked connection's send queue.
func (sb *Switchboard) CloseAll() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	for id, c := range sb.clients {
		c.Close()
		delete(sb.clients, id)
	}
}
