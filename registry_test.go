package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateRoomUniqueCodes(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	rm := newRoomManager(0)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room := rm.createRoom(cfg, "host-id", RoomSettings{
			QuestionSetID: "4h8z3k",
			GameType:      gameTypeRace,
			GoalAmount:    1000,
		})

		req.Len(room.code, 6)
		for _, r := range room.code {
			req.Contains("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(r))
		}

		req.False(seen[room.code], "duplicate room code %s", room.code)
		seen[room.code] = true

		got, ok := rm.getRoom(room.code)
		req.True(ok)
		req.Same(room, got)
	}
}

func TestGetRoomUnknownCode(t *testing.T) {
	req := require.New(t)
	rm := newRoomManager(0)

	_, ok := rm.getRoom("NOPE12")
	req.False(ok)
}

func TestRemoveRoom(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	rm := newRoomManager(0)

	room := rm.createRoom(cfg, "host-id", RoomSettings{
		QuestionSetID: "4h8z3k",
		GameType:      gameTypeRace,
		GoalAmount:    1000,
	})

	rm.removeRoom(room.code)

	_, ok := rm.getRoom(room.code)
	req.False(ok)

	// The run loop's stop channel is closed exactly once.
	select {
	case <-room.done:
	case <-time.After(time.Second):
		t.Fatal("room done channel not closed")
	}

	// Removing twice is harmless.
	rm.removeRoom(room.code)
}

func TestReapable(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	room := raceRoom(1000)

	cutoff := time.Now()

	// Fresh activity keeps the room alive regardless of state.
	room.addClient(testClient("host-id"))
	req.False(room.reapable(cutoff.Add(-time.Minute)))

	// An idle lobby with a connected client survives.
	room.mu.Lock()
	room.lastActive = time.Now().Add(-time.Hour)
	room.mu.Unlock()
	req.False(room.reapable(cutoff))

	// An abandoned lobby (no clients) is reaped once idle.
	empty := raceRoom(1000)
	req.NoError(empty.join(cfg, "host-id", "Host Player"))
	empty.mu.Lock()
	empty.lastActive = time.Now().Add(-time.Hour)
	empty.mu.Unlock()
	req.True(empty.reapable(cutoff))

	// A finished room is reaped once idle, clients or not.
	room.mu.Lock()
	room.status = statusFinished
	room.mu.Unlock()
	req.True(room.reapable(cutoff))
}
