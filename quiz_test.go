package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	cfg := testConfig()
	mux := httprouter.New()
	registerQuizGame(cfg, mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	req := require.New(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/quiz/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// readUntil reads messages until one of the wanted type arrives, skipping
// interleaved broadcasts.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	req := require.New(t)

	deadline := time.Now().Add(5 * time.Second)
	req.NoError(conn.SetReadDeadline(deadline))

	for {
		var m map[string]any
		req.NoError(conn.ReadJSON(&m))
		if m["type"] == msgType {
			return m
		}
		req.False(time.Now().After(deadline), "timed out waiting for %q", msgType)
	}
}

func TestGatewayCreateJoinPlay(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	host := dialWS(t, srv)
	req.NoError(host.WriteJSON(map[string]any{
		"type":          "create_room",
		"questionSetId": "4h8z3k",
		"gameType":      "Race",
		"goalAmount":    1000,
	}))

	created := readUntil(t, host, "room_created")
	code, ok := created["code"].(string)
	req.True(ok)
	req.Len(code, 6)
	req.NotEmpty(created["availableSets"])

	// The creating connection is auto-joined as host.
	success := readUntil(t, host, "join_success")
	room := success["room"].(map[string]any)
	req.Equal(code, room["code"])

	player := dialWS(t, srv)
	req.NoError(player.WriteJSON(map[string]any{
		"type": "join_room",
		"code": code,
		"name": "Bob",
	}))
	readUntil(t, player, "join_success")

	// The host's own join broadcasts a one-player roster first; wait until
	// Bob shows up.
	for {
		update := readUntil(t, host, "lobby_update")
		if len(update["players"].([]any)) == 2 {
			break
		}
	}

	req.NoError(host.WriteJSON(map[string]any{
		"type": "start_game",
		"code": code,
	}))
	readUntil(t, player, "game_started")

	question := readUntil(t, player, "new_question")["question"].(map[string]any)
	req.NotContains(question, "correct")
	req.Len(question["answers"], 4)

	questionID := int(question["id"].(float64))
	q, found := findQuestion("4h8z3k", questionID)
	req.True(found)

	req.NoError(player.WriteJSON(map[string]any{
		"type":       "submit_answer",
		"questionId": questionID,
		"answer":     q.Correct,
	}))

	feedback := readUntil(t, player, "answer_feedback")
	req.Equal(true, feedback["isCorrect"])
	req.Equal(float64(100), feedback["earnings"])

	leaderboard := readUntil(t, player, "leaderboard_update")
	req.Len(leaderboard["players"], 2)
}

func TestGatewayJoinUnknownRoom(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	conn := dialWS(t, srv)
	req.NoError(conn.WriteJSON(map[string]any{
		"type": "join_room",
		"code": "ZZZZZZ",
		"name": "Bob",
	}))

	failed := readUntil(t, conn, "join_failed")
	req.Equal(errRoomNotFound.Error(), failed["reason"])
}

func TestGatewayJoinAfterStart(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	host := dialWS(t, srv)
	req.NoError(host.WriteJSON(map[string]any{
		"type":             "create_room",
		"questionSetId":    "4h8z3k",
		"gameType":         "Timed",
		"timeLimitMinutes": 1,
	}))
	code := readUntil(t, host, "room_created")["code"].(string)

	req.NoError(host.WriteJSON(map[string]any{
		"type": "start_game",
		"code": code,
	}))
	readUntil(t, host, "game_started")

	late := dialWS(t, srv)
	req.NoError(late.WriteJSON(map[string]any{
		"type": "join_room",
		"code": code,
		"name": "Late Larry",
	}))

	failed := readUntil(t, late, "join_failed")
	req.Equal(errRoomNotJoinable.Error(), failed["reason"])
}

func TestGatewayCreateRoomValidation(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	conn := dialWS(t, srv)

	req.NoError(conn.WriteJSON(map[string]any{
		"type":          "create_room",
		"questionSetId": "nope",
		"gameType":      "Race",
		"goalAmount":    1000,
	}))
	readUntil(t, conn, "create_failed")

	req.NoError(conn.WriteJSON(map[string]any{
		"type":          "create_room",
		"questionSetId": "4h8z3k",
		"gameType":      "Marathon",
	}))
	readUntil(t, conn, "create_failed")
}

func fetch(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	req := require.New(t)

	resp, err := srv.Client().Get(srv.URL + path)
	req.NoError(err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	body, err := io.ReadAll(resp.Body)
	req.NoError(err)

	return resp, string(body)
}

// The index response carries Content-Security-Policy: default-src 'self',
// which blocks inline scripts, so the shell has to load its bootstrap from
// a same-origin file for the websocket to ever open.
func TestShellRunsUnderOwnPolicy(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	resp, shell := fetch(t, srv, "/quiz")
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Contains(resp.Header.Get("Content-Security-Policy"), "default-src 'self'")

	req.Contains(shell, `<script src="/assets/quiz/app.js">`)
	req.NotContains(shell, "<script>")
	req.NotContains(shell, "new WebSocket")

	js, script := fetch(t, srv, "/assets/quiz/app.js")
	req.Equal(http.StatusOK, js.StatusCode)
	req.Contains(js.Header.Get("Content-Type"), "application/javascript")
	req.Contains(script, "new WebSocket")
}

// The bootstrap derives the websocket URL and the room code pre-fill from
// location.pathname, so /room/:code works and nothing breaks behind a
// reverse-proxy prefix.
func TestShellDerivesPathsFromLocation(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	resp, shell := fetch(t, srv, "/room/ABC123")
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Contains(shell, `id="code"`)

	_, script := fetch(t, srv, "/assets/quiz/app.js")
	req.Contains(script, "location.pathname")
	req.Contains(script, `"/room/"`)
	req.Contains(script, `prefix + "/quiz/ws"`)
	req.NotContains(script, `location.host + "/quiz/ws"`)
}

func TestRoutesHonorPrefix(t *testing.T) {
	req := require.New(t)

	cfg := testConfig()
	cfg.prefix = "/proxy"

	mux := httprouter.New()
	registerQuizGame(cfg, mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	for _, path := range []string{"/proxy/quiz", "/proxy/room/ABC123", "/proxy/assets/quiz/app.js"} {
		resp, _ := fetch(t, srv, path)
		req.Equal(http.StatusOK, resp.StatusCode, path)
	}
}

func TestGatewayDisconnectUpdatesRoster(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	host := dialWS(t, srv)
	req.NoError(host.WriteJSON(map[string]any{
		"type":          "create_room",
		"questionSetId": "4h8z3k",
		"gameType":      "Race",
		"goalAmount":    1000,
	}))
	code := readUntil(t, host, "room_created")["code"].(string)

	player := dialWS(t, srv)
	req.NoError(player.WriteJSON(map[string]any{
		"type": "join_room",
		"code": code,
		"name": "Bob",
	}))
	readUntil(t, player, "join_success")

	// Wait until the host has seen Bob arrive.
	for {
		update := readUntil(t, host, "lobby_update")
		if len(update["players"].([]any)) == 2 {
			break
		}
	}

	req.NoError(player.Close())

	update := readUntil(t, host, "lobby_update")
	req.Len(update["players"], 1)
}
