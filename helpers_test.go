/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Cheap hashing parameters so tests don't spend their time in argon2.
var testParams = &argon2id.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

var nineOptions = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()

	return newCoordinator(newRegistry(0, testParams), zerolog.Nop())
}

func mustCreate(t *testing.T, co *Coordinator, id string, size int, options []string) {
	t.Helper()

	require.NoError(t, co.CreateRoom(CreateRoomRequest{
		RoomID:   id,
		Password: "p",
		Options:  options,
		Size:     size,
	}))
}

func mustJoin(t *testing.T, co *Coordinator, connID, roomID, role string) (JoinAck, []Event) {
	t.Helper()

	ack, events, err := co.Join(connID, JoinRequest{
		RoomID:   roomID,
		Password: "p",
		Name:     connID,
		Color:    "#" + connID,
		Role:     role,
	})
	require.NoError(t, err)

	return ack, events
}

func eventsOfType(events []Event, typ string) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
