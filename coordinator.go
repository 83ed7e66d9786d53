/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"time"

	"github.com/rs/zerolog"
)

// Push event names, as seen by clients.
const (
	eventRoomState     = "roomState"
	eventCardGenerated = "cardGenerated"
	eventCellMarked    = "cellMarked"
	eventRoomDeleted   = "roomDeleted"
	eventPlayerLeft    = "playerLeft"
)

// Event is one outbound push and the connections that should receive it.
type Event struct {
	Type string
	To   []string
	Data any
}

// POST /create-room body
type CreateRoomRequest struct {
	RoomID   string   `json:"roomId"`
	Password string   `json:"password"`
	Options  []string `json:"options"`
	Size     int      `json:"size"`
}

// JoinRequest is the data of a "joinRoom" frame.
type JoinRequest struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
	Name     string `json:"name"`  // defaults to "Player" or "Spectator"
	Color    string `json:"color"` // players only
	Role     string `json:"role"`  // "player" or "spectator"
}

// RoomRequest is the data of "generateCards" and "deleteRoom" frames.
type RoomRequest struct {
	RoomID string `json:"roomId"`
}

// MarkRequest is the data of a "markCell" frame.
type MarkRequest struct {
	RoomID string `json:"roomId"`
	Index  *int   `json:"index"`
}

// JoinAck answers a successful "joinRoom" with everything the client needs to
// draw the room.
type JoinAck struct {
	OK         bool                     `json:"ok"`
	ID         string                   `json:"id"` // caller's connection id
	Role       string                   `json:"role"`
	IsHost     bool                     `json:"isHost"`
	Size       int                      `json:"size"`
	Options    []string                 `json:"options"`
	Card       []string                 `json:"card"` // null until the host deals
	Players    map[string]PlayerView    `json:"players"`
	Spectators map[string]SpectatorView `json:"spectators"`
}

// Sent privately to each player when the host deals
type CardGenerated struct {
	Card []string `json:"card"`
	Size int      `json:"size"`
}

// Sent to the whole room; carries the color overlay only, never the phrase
type CellMarked struct {
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
	Index    int    `json:"index"`
}

// Sent to everyone still in a room that was deleted
type RoomDeleted struct {
	RoomID string `json:"roomId"`
}

// Sent to the remaining members after a departure
type PlayerLeft struct {
	ID string `json:"id"`
}

// Coordinator turns member actions into room mutations plus the events that
// must be fanned out afterwards. It never touches a connection itself.
type Coordinator struct {
	rooms *Registry
	log   zerolog.Logger
	now   func() time.Time
}

func newCoordinator(rooms *Registry, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		rooms: rooms,
		log:   logger,
		now:   time.Now,
	}
}

func (co *Coordinator) CreateRoom(req CreateRoomRequest) error {
	if _, err := co.rooms.Create(req.RoomID, req.Password, req.Options, req.Size); err != nil {
		return err
	}

	co.log.Info().Msgf("GAMES: Created room %q (%dx%d, %d options)", req.RoomID, req.Size, req.Size, len(req.Options))

	return nil
}

func (co *Coordinator) Join(connID string, req JoinRequest) (JoinAck, []Event, error) {
	room, err := co.rooms.Get(req.RoomID)
	if err != nil {
		return JoinAck{}, nil, err
	}

	role, err := parseRole(req.Role)
	if err != nil {
		return JoinAck{}, nil, err
	}

	out, err := room.join(connID, req.Password, req.Name, req.Color, role, co.now())
	if err != nil {
		return JoinAck{}, nil, err
	}

	co.log.Info().Msgf("GAMES: %s %s joined %q (host=%t)", out.role, connID, req.RoomID, out.isHost)

	ack := JoinAck{
		OK:         true,
		ID:         connID,
		Role:       out.role.String(),
		IsHost:     out.isHost,
		Size:       room.Size(),
		Options:    room.Options(),
		Card:       out.card,
		Players:    out.state.Players,
		Spectators: out.state.Spectators,
	}

	return ack, []Event{{Type: eventRoomState, To: out.recipients, Data: out.state}}, nil
}

func (co *Coordinator) GenerateBoards(connID string, req RoomRequest) ([]Event, error) {
	room, err := co.rooms.Get(req.RoomID)
	if err != nil {
		return nil, err
	}

	dealt, err := room.generateBoards(connID, co.now())
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(dealt))
	for id, card := range dealt {
		events = append(events, Event{
			Type: eventCardGenerated,
			To:   []string{id},
			Data: CardGenerated{Card: card, Size: room.Size()},
		})
	}

	co.log.Info().Msgf("GAMES: Dealt %d cards in %q", len(dealt), req.RoomID)

	return events, nil
}

func (co *Coordinator) MarkCell(connID string, req MarkRequest) ([]Event, error) {
	room, err := co.rooms.Get(req.RoomID)
	if err != nil {
		return nil, err
	}

	if req.Index == nil {
		return nil, newError(ErrInvalidArgument, "Missing cell index")
	}

	color, recipients, err := room.mark(connID, *req.Index, co.now())
	if err != nil {
		return nil, err
	}

	co.log.Debug().Msgf("GAMES: %s marked cell %d in %q", connID, *req.Index, req.RoomID)

	return []Event{{
		Type: eventCellMarked,
		To:   recipients,
		Data: CellMarked{PlayerID: connID, Color: color, Index: *req.Index},
	}}, nil
}

func (co *Coordinator) DeleteRoom(connID string, req RoomRequest) ([]Event, error) {
	room, err := co.rooms.Get(req.RoomID)
	if err != nil {
		return nil, err
	}

	recipients, err := room.close(connID)
	if err != nil {
		return nil, err
	}
	co.rooms.Delete(room.ID())

	co.log.Info().Msgf("GAMES: Host %s deleted %q", connID, req.RoomID)

	return []Event{{Type: eventRoomDeleted, To: recipients, Data: RoomDeleted{RoomID: room.ID()}}}, nil
}

// Disconnect removes connID from every room it belongs to. Connections that
// never joined anything produce no events.
func (co *Coordinator) Disconnect(connID string) []Event {
	var events []Event

	for _, room := range co.rooms.Rooms() {
		d, ok := room.leave(connID, co.now())
		if !ok {
			continue
		}

		co.log.Info().Msgf("GAMES: %s %s left %q", d.member.Role, connID, room.ID())

		if len(d.recipients) > 0 {
			events = append(events, Event{Type: eventPlayerLeft, To: d.recipients, Data: PlayerLeft{ID: connID}})
		}

		if d.emptied {
			co.rooms.Delete(room.ID())
			co.log.Info().Msgf("GAMES: Room %q destroyed (no players)", room.ID())

			if len(d.recipients) > 0 {
				events = append(events, Event{Type: eventRoomDeleted, To: d.recipients, Data: RoomDeleted{RoomID: room.ID()}})
			}

			continue
		}

		if d.hostChanged {
			co.log.Info().Msgf("GAMES: Host of %q passed to %q", room.ID(), d.state.HostID)
		}

		if len(d.recipients) > 0 {
			events = append(events, Event{Type: eventRoomState, To: d.recipients, Data: d.state})
		}
	}

	return events
}

// ReapIdle removes rooms with no activity since cutoff.
func (co *Coordinator) ReapIdle(cutoff time.Time) []Event {
	var events []Event

	for _, room := range co.rooms.Rooms() {
		recipients, ok := room.expire(cutoff)
		if !ok {
			continue
		}
		co.rooms.Delete(room.ID())

		co.log.Info().Msgf("GAMES: Room %q cleaned up (idle timeout)", room.ID())

		if len(recipients) > 0 {
			events = append(events, Event{Type: eventRoomDeleted, To: recipients, Data: RoomDeleted{RoomID: room.ID()}})
		}
	}

	return events
}
