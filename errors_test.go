/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{newError(ErrNotFound, "Room not found"), http.StatusNotFound},
		{newError(ErrUnauthorized, "Wrong password"), http.StatusUnauthorized},
		{newError(ErrAlreadyExists, "Room ID already exists"), http.StatusConflict},
		{newError(ErrInvalidConfig, "Invalid size"), http.StatusBadRequest},
		{newError(ErrInvalidArgument, "Cell index out of range"), http.StatusBadRequest},
		{newError(ErrInvalidState, "Player has no card"), http.StatusBadRequest},
		{newError(ErrUnavailable, "Room limit reached"), http.StatusServiceUnavailable},
		{fmt.Errorf("creating room: %w", newError(ErrAlreadyExists, "dup")), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, httpStatus(tt.err), tt.err.Error())
	}
}

func TestActionErrorMessage(t *testing.T) {
	err := newError(ErrUnauthorized, "Only host can generate cards")

	assert.EqualError(t, err, "Only host can generate cards")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ackResult{Error: "Only host can generate cards"}, failure(err))
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&Config{}, &buf)
	logger.Debug().Msg("hidden")
	logger.Info().Msg("GAMES: shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "GAMES: shown")

	buf.Reset()
	logger = newLogger(&Config{verbose: true}, &buf)
	logger.Debug().Msg("SERVE: debug line")

	assert.Contains(t, buf.String(), "SERVE: debug line")
}
