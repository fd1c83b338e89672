package main

import (
	"crypto/rand"
	"sync"
	"time"
)

// RoomManager holds all live rooms keyed by their join code. Each server
// gets its own instance, so rooms never leak between tests or games.
type RoomManager struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
}

func newRoomManager(idleTimeout time.Duration) *RoomManager {
	rm := &RoomManager{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

// createRoom builds a new lobby room under a fresh code and starts its
// ticker loop.
func (rm *RoomManager) createRoom(cfg *Config, hostID string, settings RoomSettings) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	code := rm.newRoomCodeLocked()
	room := newRoom(code, hostID, settings)
	rm.rooms[code] = room
	go room.run(cfg)

	return room
}

func (rm *RoomManager) getRoom(code string) (*Room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[code]
	return room, ok
}

func (rm *RoomManager) removeRoom(code string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[code]
	if !ok {
		return
	}
	delete(rm.rooms, code)
	close(room.done)
	go room.closeAll()
}

// newRoomCodeLocked generates a crypto-random 6-character room code,
// regenerating until it doesn't collide with a room currently in use.
func (rm *RoomManager) newRoomCodeLocked() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const max = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, 6)
		buf := make([]byte, 12)

		for len(out) < 6 {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}
			for _, b := range buf {
				if b <= max {
					out = append(out, letters[int(b)%len(letters)])
					if len(out) == 6 {
						break
					}
				}
			}
		}

		code := string(out)
		if _, exists := rm.rooms[code]; !exists {
			return code
		}
	}
}

// reaperLoop periodically removes rooms that have been idle longer than
// idleTimeout and are either finished or have no connected clients. This
// covers both finished games nobody closed and lobbies the host abandoned.
func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rm.idleTimeout)

		rm.mu.Lock()
		for code, room := range rm.rooms {
			if room.reapable(cutoff) {
				delete(rm.rooms, code)
				close(room.done)
				go room.closeAll()
			}
		}
		rm.mu.Unlock()
	}
}

func (r *Room) reapable(cutoff time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lastActive.After(cutoff) {
		return false
	}
	return r.status == statusFinished || len(r.clients) == 0
}
