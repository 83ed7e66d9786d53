/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
)

// Registry holds every live room keyed by room ID. It owns no connections.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	maxRooms int
	params   *argon2id.Params
}

// newRegistry returns an empty registry. A maxRooms of zero or less means
// unlimited.
func newRegistry(maxRooms int, params *argon2id.Params) *Registry {
	if params == nil {
		params = argon2id.DefaultParams
	}

	return &Registry{
		rooms:    make(map[string]*Room),
		maxRooms: maxRooms,
		params:   params,
	}
}

// Create registers a new room. The password is hashed before the registry
// lock is taken, so the id is checked again before insert.
func (reg *Registry) Create(id, password string, pool []string, size int) (*Room, error) {
	if err := validateRoomConfig(id, password, pool, size); err != nil {
		return nil, err
	}

	// Fail fast before paying for the password hash.
	reg.mu.RLock()
	_, exists := reg.rooms[id]
	reg.mu.RUnlock()
	if exists {
		return nil, newError(ErrAlreadyExists, "Room ID already exists")
	}

	room, err := newRoom(id, password, pool, size, reg.params, time.Now())
	if err != nil {
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[id]; ok {
		return nil, newError(ErrAlreadyExists, "Room ID already exists")
	}
	if reg.maxRooms > 0 && len(reg.rooms) >= reg.maxRooms {
		return nil, newError(ErrUnavailable, "Room limit reached")
	}
	reg.rooms[id] = room

	return room, nil
}

// Get returns the room registered under id, or ErrNotFound.
func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[id]
	if !ok {
		return nil, newError(ErrNotFound, "Room not found")
	}

	return room, nil
}

// Delete removes the room registered under id, if any. Callers close the room
// first, so only one path ever deletes a given room.
func (reg *Registry) Delete(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.rooms, id)
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms)
}

// Rooms returns a snapshot of the registered rooms.
func (reg *Registry) Rooms() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}

	return rooms
}
