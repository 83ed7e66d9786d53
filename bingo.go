// Bingobox Room Server
//
// A host creates a room with a password, a board size (3x3 to 5x5) and a pool
// of phrases. Players join over a websocket; when the host deals, every player
// gets their own shuffled card drawn from the shared pool. Marking a cell
// paints that index with the player's color on every screen in the room,
// spectators included.
//
// Features:
// - POST /create-room to register a room, /ws for everything else
// - First player to join becomes host; if the host leaves, the longest-present
//   player takes over
// - Cards are delivered privately; marks are broadcast as color overlays only
// - Room deleted by its host, when its last player leaves, or after idling
// - Per-IP rate limiting on room creation and websocket upgrades
// - In-browser QR button to share a room's join link, backed by go-qrcode

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

const maxCreateBody = 1 << 20

// roomHashParams keeps each room password comparison to about 19 MiB on a
// single thread.
var roomHashParams = &argon2id.Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func serveCreateRoom(cfg *Config, logger zerolog.Logger, co *Coordinator, limiter *RateLimiter) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		if !limiter.Allow(clientHost(r)) {
			writeJSON(w, http.StatusTooManyRequests, ackResult{Error: "Rate limit exceeded"})
			return
		}

		var req CreateRoomRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ackResult{Error: "Invalid room data"})
			return
		}

		if err := co.CreateRoom(req); err != nil {
			status := httpStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error().Err(err).Msgf("ERROR: Creating room %q", req.RoomID)
				writeJSON(w, status, ackResult{Error: "Failed to create room"})
				return
			}
			writeJSON(w, status, failure(err))
			return
		}

		writeJSON(w, http.StatusOK, ackResult{OK: true})
	}
}

func serveWS(cfg *Config, logger zerolog.Logger, co *Coordinator, sb *Switchboard, limiter *RateLimiter) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if !limiter.Allow(clientHost(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug().Msgf("SERVE: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := newClient(conn, realIP(r), clientHost(r))
		sb.Register(client)

		logger.Debug().Msgf("SERVE: Connection %s opened from %s", client.id, client.ip)

		go client.writePump(cfg.pingPeriod())
		client.readPump(co, sb, limiter, cfg.connTimeout, logger)

		logger.Debug().Msgf("SERVE: Connection %s closed", client.id)
	}
}

// qrHandler generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(cfg *Config, co *Coordinator, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if _, err := co.rooms.Get(roomID); err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		join := scheme + "://" + r.Host + cfg.prefix + path + "?" + url.Values{"roomId": {roomID}}.Encode()

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(join, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// reapIdleRooms periodically deletes rooms idle for longer than idle and
// tells their members.
func reapIdleRooms(ctx context.Context, co *Coordinator, sb *Switchboard, idle time.Duration) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sb.Deliver(co.ReapIdle(now.Add(-idle))...)
		}
	}
}

// registerBingoGame sets up routes so that:
//   - POST /create-room     → registers a new room
//   - /ws                   → websocket carrying join/deal/mark/delete
//   - $path                 → HTML client
//   - $path/:roomid/qr      → PNG QR code for that room's join URL
func registerBingoGame(ctx context.Context, cfg *Config, logger zerolog.Logger, errs chan<- error, path string, mux *httprouter.Router) {
	co := newCoordinator(newRegistry(cfg.maxRooms, roomHashParams), logger)
	sb := newSwitchboard(logger)
	limiter := newRateLimiter(ctx, cfg.rateLimit)

	if cfg.sessionTimeout > 0 {
		go reapIdleRooms(ctx, co, sb, cfg.sessionTimeout)
	}

	go func() {
		<-ctx.Done()
		sb.CloseAll()
	}()

	mux.POST(cfg.prefix+"/create-room", serveCreateRoom(cfg, logger, co, limiter))

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, logger, co, sb, limiter))

	mux.GET(cfg.prefix+path, servePage(cfg, logger, errs, "room.html"))

	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler(cfg, co, path))
}
