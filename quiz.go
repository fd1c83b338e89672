package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// ClientMessage is the inbound event envelope. Fields beyond Type are
// populated per event type.
type ClientMessage struct {
	Type string `json:"type"` // "create_room", "join_room", "start_game", "submit_answer", "buy_upgrade"

	// create_room
	QuestionSetID    string `json:"questionSetId,omitempty"`
	GameType         string `json:"gameType,omitempty"`
	TimeLimitMinutes int    `json:"timeLimitMinutes,omitempty"`
	GoalAmount       int    `json:"goalAmount,omitempty"`

	// join_room / start_game
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`

	// submit_answer
	QuestionID int    `json:"questionId,omitempty"`
	Answer     string `json:"answer,omitempty"`

	// buy_upgrade
	UpgradeType string `json:"upgradeType,omitempty"`
}

// SimpleMessage is for generic per-connection notifications.
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

// evict force-closes the connection. The read pump notices, leaves its
// room, and closes the send channel, which in turn stops the write pump.
func (c *Client) evict() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "quizbox_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// serveWSForManager upgrades the connection and processes its events in
// arrival order. The connection's current room is explicit session state
// here, never shared between connections.
func serveWSForManager(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		go client.writePump()
		client.readPump(cfg, rm)
	}
}

func (c *Client) readPump(cfg *Config, rm *RoomManager) {
	var room *Room

	defer func() {
		if room != nil {
			room.dropClient(cfg, c)
		}
		close(c.send)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "create_room":
			room = c.handleCreateRoom(cfg, rm, room, msg)

		case "join_room":
			target, ok := rm.getRoom(strings.ToUpper(msg.Code))
			if !ok {
				c.trySend(JoinFailedMessage{Type: "join_failed", Reason: errRoomNotFound.Error()})
				continue
			}
			target.addClient(c)
			if err := target.join(cfg, c.playerID, msg.Name); err != nil {
				c.trySend(JoinFailedMessage{Type: "join_failed", Reason: err.Error()})
				target.dropClient(cfg, c)
				continue
			}
			if room != nil && room != target {
				room.dropClient(cfg, c)
			}
			room = target

		case "start_game":
			target, ok := rm.getRoom(strings.ToUpper(msg.Code))
			if !ok {
				c.trySend(SimpleMessage{Type: "error", Message: errRoomNotFound.Error()})
				continue
			}
			if err := target.start(cfg, c.playerID); err != nil {
				c.trySend(SimpleMessage{Type: "error", Message: err.Error()})
			}

		case "submit_answer":
			if room == nil {
				c.trySend(SimpleMessage{Type: "error", Message: errRoomNotFound.Error()})
				continue
			}
			if err := room.submitAnswer(cfg, c.playerID, msg.QuestionID, msg.Answer); err != nil {
				c.trySend(SimpleMessage{Type: "error", Message: err.Error()})
			}

		case "buy_upgrade":
			if room == nil {
				c.trySend(SimpleMessage{Type: "error", Message: errRoomNotFound.Error()})
				continue
			}
			if err := room.buyUpgrade(cfg, c.playerID, msg.UpgradeType); err != nil && err != errInsufficientFunds {
				c.trySend(SimpleMessage{Type: "error", Message: err.Error()})
			}

		default:
			// ignore unknown types
		}
	}
}

// handleCreateRoom validates the settings, creates the room, and joins the
// creating connection as its host.
func (c *Client) handleCreateRoom(cfg *Config, rm *RoomManager, current *Room, msg ClientMessage) *Room {
	settings := RoomSettings{
		QuestionSetID:    msg.QuestionSetID,
		GameType:         msg.GameType,
		TimeLimitMinutes: msg.TimeLimitMinutes,
		GoalAmount:       msg.GoalAmount,
	}

	if _, ok := questionSet(settings.QuestionSetID); !ok {
		c.trySend(SimpleMessage{Type: "create_failed", Message: "unknown question set"})
		return current
	}

	switch settings.GameType {
	case gameTypeTimed:
		if settings.TimeLimitMinutes < 1 {
			c.trySend(SimpleMessage{Type: "create_failed", Message: "time limit must be at least one minute"})
			return current
		}
	case gameTypeRace:
		if settings.GoalAmount < 1 {
			c.trySend(SimpleMessage{Type: "create_failed", Message: "goal amount must be positive"})
			return current
		}
	default:
		c.trySend(SimpleMessage{Type: "create_failed", Message: "unknown game type"})
		return current
	}

	if current != nil {
		current.dropClient(cfg, c)
	}

	room := rm.createRoom(cfg, c.playerID, settings)
	room.addClient(c)
	logf(cfg, "GAMES: Created room %s", room.code)

	c.trySend(RoomCreatedMessage{Type: "room_created", Code: room.code, Sets: availableSets()})
	_ = room.join(cfg, c.playerID, "Host Player")

	return room
}

func (c *Client) trySend(msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
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

	// We are at /.../:code/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed quiz/index.html
var indexHTML []byte

//go:embed quiz/app.js
var quizboxJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(quizboxJS)
	}
}

// registerQuizGame sets up routes so that:
//   - /quiz              → HTML client (create or join by code)
//   - /quiz/ws           → WebSocket event gateway
//   - /assets/quiz/app.js → client bootstrap script (same-origin, so it
//     runs under the default-src 'self' policy)
//   - /room/:code        → HTML client, pre-filled with the room code
//   - /room/:code/qr     → PNG QR code for that room's join URL
func registerQuizGame(cfg *Config, mux *httprouter.Router) {
	rm := newRoomManager(cfg.roomTimeout)

	mux.GET(cfg.prefix+"/quiz", getIndexHandler(cfg))

	mux.GET(cfg.prefix+"/quiz/ws", serveWSForManager(cfg, rm))

	// Shared assets (no room code in route)
	mux.GET(cfg.prefix+"/assets/quiz/app.js", getJsHandler(cfg))

	mux.GET(cfg.prefix+"/room/:code", getIndexHandler(cfg))

	mux.GET(cfg.prefix+"/room/:code/qr", qrHandler)
}
