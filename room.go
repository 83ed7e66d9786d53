/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
)

const (
	minBoardSize = 3
	maxBoardSize = 5

	defaultPlayerName    = "Player"
	defaultSpectatorName = "Spectator"
	defaultColor         = "#ff0000"
)

type Role int

const (
	RolePlayer Role = iota
	RoleObserver
)

func (r Role) String() string {
	if r == RoleObserver {
		return "spectator"
	}
	return "player"
}

func parseRole(s string) (Role, error) {
	switch s {
	case "player":
		return RolePlayer, nil
	case "spectator":
		return RoleObserver, nil
	default:
		return RolePlayer, newError(ErrInvalidArgument, "Role must be \"player\" or \"spectator\"")
	}
}

// Member is a single connection's presence in a room.
type Member struct {
	Name  string
	Color string
	Role  Role

	seq uint64
}

// PlayerView is how a player appears in "roomState"
type PlayerView struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// SpectatorView is how a spectator appears in "roomState"
type SpectatorView struct {
	Name string `json:"name"`
}

// RoomState is the membership snapshot pushed after every join or departure.
type RoomState struct {
	Players    map[string]PlayerView    `json:"players"`
	Spectators map[string]SpectatorView `json:"spectators"`
	HostID     string                   `json:"hostId"`
	Version    uint64                   `json:"version"`
}

// Room is one bingo game. Everything below mu is guarded by it; the fields
// above it never change after newRoom.
type Room struct {
	id       string
	passHash string
	pool     []string
	size     int

	createdAt time.Time

	mu         sync.Mutex
	hostID     string
	members    map[string]*Member
	boards     map[string][]string
	version    uint64
	joinSeq    uint64
	closed     bool
	lastActive time.Time
}

type joinOutcome struct {
	role       Role
	isHost     bool
	card       []string
	state      RoomState
	recipients []string
}

type departure struct {
	member      Member
	hostChanged bool
	emptied     bool
	state       RoomState
	recipients  []string
}

func validateRoomConfig(id, password string, pool []string, size int) error {
	switch {
	case strings.TrimSpace(id) == "" || password == "":
		return newError(ErrInvalidConfig, "Invalid room data")
	case len(pool) < 1:
		return newError(ErrInvalidConfig, "Invalid room data")
	case size < minBoardSize || size > maxBoardSize:
		return newError(ErrInvalidConfig, "Invalid size")
	}
	return nil
}

func newRoom(id, password string, pool []string, size int, params *argon2id.Params, now time.Time) (*Room, error) {
	if err := validateRoomConfig(id, password, pool, size); err != nil {
		return nil, err
	}

	hash, err := argon2id.CreateHash(password, params)
	if err != nil {
		return nil, err
	}

	return &Room{
		id:         id,
		passHash:   hash,
		pool:       slices.Clone(pool),
		size:       size,
		createdAt:  now,
		members:    make(map[string]*Member),
		boards:     make(map[string][]string),
		lastActive: now,
	}, nil
}

func (r *Room) ID() string { return r.id }

func (r *Room) Size() int { return r.size }

func (r *Room) Cells() int { return r.size * r.size }

func (r *Room) Options() []string { return slices.Clone(r.pool) }

func (r *Room) checkPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, r.passHash)
	return err == nil && match
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

func (r *Room) HasMember(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[connID]
	return ok
}

func (r *Room) Board(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.boards[connID])
}

func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

func (r *Room) join(connID, password, name, color string, role Role, now time.Time) (joinOutcome, error) {
	// passHash is immutable, so the comparison runs outside the lock.
	if !r.checkPassword(password) {
		return joinOutcome{}, newError(ErrUnauthorized, "Wrong password")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return joinOutcome{}, newError(ErrNotFound, "Room not found")
	}
	if _, ok := r.members[connID]; ok {
		return joinOutcome{}, newError(ErrInvalidState, "Already joined")
	}

	r.joinSeq++
	m := &Member{Name: name, Role: role, seq: r.joinSeq}
	if role == RoleObserver {
		if m.Name == "" {
			m.Name = defaultSpectatorName
		}
	} else {
		if m.Name == "" {
			m.Name = defaultPlayerName
		}
		m.Color = color
		if m.Color == "" {
			m.Color = defaultColor
		}
	}
	r.members[connID] = m

	if role == RolePlayer && r.hostID == "" {
		r.hostID = connID
	}

	r.version++
	r.lastActive = now

	return joinOutcome{
		role:       role,
		isHost:     r.hostID == connID,
		card:       slices.Clone(r.boards[connID]),
		state:      r.stateLocked(),
		recipients: r.memberIDsLocked(),
	}, nil
}

// generateBoards deals an independent board to every current player.
func (r *Room) generateBoards(connID string, now time.Time) (map[string][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, newError(ErrNotFound, "Room not found")
	}
	if r.hostID == "" || r.hostID != connID {
		return nil, newError(ErrUnauthorized, "Only host can generate cards")
	}

	dealt := make(map[string][]string)
	for id, m := range r.members {
		if m.Role != RolePlayer {
			continue
		}
		board := pickRandom(r.pool, r.Cells())
		r.boards[id] = board
		dealt[id] = slices.Clone(board)
	}
	r.lastActive = now

	return dealt, nil
}

func (r *Room) mark(connID string, index int, now time.Time) (string, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", nil, newError(ErrNotFound, "Room not found")
	}

	if _, ok := r.boards[connID]; !ok {
		return "", nil, newError(ErrInvalidState, "Player has no card")
	}
	m, ok := r.members[connID]
	if !ok || m.Role != RolePlayer {
		return "", nil, newError(ErrUnauthorized, "Player not in room")
	}
	if index < 0 || index >= r.Cells() {
		return "", nil, newError(ErrInvalidArgument, "Cell index out of range")
	}
	r.lastActive = now

	return m.Color, r.memberIDsLocked(), nil
}

// close marks the room deleted on behalf of its host and returns everyone
// who should hear about it.
func (r *Room) close(connID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, newError(ErrNotFound, "Room not found")
	}
	if r.hostID == "" || r.hostID != connID {
		return nil, newError(ErrUnauthorized, "Only host can delete this room")
	}
	r.closed = true

	return r.memberIDsLocked(), nil
}

// leave removes connID from the room. When the last player departs the room
// is closed; when the host departs the earliest remaining player is promoted.
func (r *Room) leave(connID string, now time.Time) (departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[connID]
	if !ok || r.closed {
		return departure{}, false
	}
	delete(r.members, connID)
	delete(r.boards, connID)
	r.version++
	r.lastActive = now

	d := departure{member: *m}

	if m.Role == RolePlayer && r.playerCountLocked() == 0 {
		r.closed = true
		r.hostID = ""
		d.emptied = true
	} else if r.hostID == connID {
		r.hostID = r.nextHostLocked()
		d.hostChanged = true
	}

	d.state = r.stateLocked()
	d.recipients = r.memberIDsLocked()

	return d, true
}

// expire closes the room if it has been idle since before cutoff.
func (r *Room) expire(cutoff time.Time) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.lastActive.Before(cutoff) {
		return nil, false
	}
	r.closed = true

	return r.memberIDsLocked(), true
}

func (r *Room) playerCountLocked() int {
	n := 0
	for _, m := range r.members {
		if m.Role == RolePlayer {
			n++
		}
	}
	return n
}

func (r *Room) nextHostLocked() string {
	next := ""
	var seq uint64
	for id, m := range r.members {
		if m.Role != RolePlayer {
			continue
		}
		if next == "" || m.seq < seq {
			next, seq = id, m.seq
		}
	}
	return next
}

// memberIDsLocked lists members in join order.
func (r *Room) memberIDsLocked() []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return cmp.Compare(r.members[a].seq, r.members[b].seq)
	})
	return ids
}

func (r *Room) stateLocked() RoomState {
	s := RoomState{
		Players:    make(map[string]PlayerView),
		Spectators: make(map[string]SpectatorView),
		HostID:     r.hostID,
		Version:    r.version,
	}
	for id, m := range r.members {
		if m.Role == RolePlayer {
			s.Players[id] = PlayerView{Name: m.Name, Color: m.Color}
		} else {
			s.Spectators[id] = SpectatorView{Name: m.Name}
		}
	}
	return s
}
