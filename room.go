// Quizbox trivia rooms
//
// A host creates a room with a question set and a win condition, shares the
// six-character code, and starts the game once everyone has joined. Each
// player answers their own stream of questions: correct answers pay out
// based on streak and upgrade levels, wrong answers break the streak unless
// insurance absorbs the miss, and missed questions are weighted to reappear.
// Earnings buy upgrades in the shop. The game ends when the time limit runs
// out (Timed) or a player hits the goal amount (Race).
//
// Features:
// - Rooms keyed by random 6-char codes with server-side collision checks
// - Lobby → playing → finished lifecycle, forward transitions only
// - Per-player streaks, insurance, and a three-item upgrade shop
// - Missed questions reappear with 4x weight until answered correctly
// - Timed games polled by a per-room ticker; race games end on the
//   triggering answer
// - Final rankings sorted by money, ties broken by join order
// - Idle rooms reaped after a configurable timeout

package main

import (
	"sort"
	"sync"
	"time"
)

// Room statuses. Transitions only ever move forward.
const (
	statusLobby    = "lobby"
	statusPlaying  = "playing"
	statusFinished = "finished"
)

// Game types.
const (
	gameTypeTimed = "Timed"
	gameTypeRace  = "Race"
)

// RoomSettings carries the host's create_room choices.
type RoomSettings struct {
	QuestionSetID    string `json:"questionSetId"`
	GameType         string `json:"gameType"`
	TimeLimitMinutes int    `json:"timeLimitMinutes,omitempty"`
	GoalAmount       int    `json:"goalAmount,omitempty"`
}

// RoomSnapshot is the client-facing view of a room. Question payloads
// already omit correct answers, so the full roster is safe to share.
type RoomSnapshot struct {
	Code             string    `json:"code"`
	HostID           string    `json:"hostId"`
	QuestionSetID    string    `json:"questionSetId"`
	GameType         string    `json:"gameType"`
	TimeLimitMinutes int       `json:"timeLimitMinutes,omitempty"`
	GoalAmount       int       `json:"goalAmount,omitempty"`
	Status           string    `json:"status"`
	StartedAt        time.Time `json:"startedAt,omitzero"`
	Players          []Player  `json:"players"`
}

// Messages sent to clients
type RoomCreatedMessage struct {
	Type string   `json:"type"` // "room_created"
	Code string   `json:"code"`
	Sets []string `json:"availableSets"`
}

type JoinSuccessMessage struct {
	Type string       `json:"type"` // "join_success"
	Room RoomSnapshot `json:"room"`
}

type JoinFailedMessage struct {
	Type   string `json:"type"` // "join_failed"
	Reason string `json:"reason"`
}

type LobbyUpdateMessage struct {
	Type    string   `json:"type"` // "lobby_update"
	Players []Player `json:"players"`
}

type GameStartedMessage struct {
	Type string       `json:"type"` // "game_started"
	Room RoomSnapshot `json:"room"`
}

type NewQuestionMessage struct {
	Type     string   `json:"type"` // "new_question"
	Question Question `json:"question"`
}

type AnswerFeedbackMessage struct {
	Type      string `json:"type"` // "answer_feedback"
	IsCorrect bool   `json:"isCorrect"`
	Earnings  int    `json:"earnings"`
	Kind      string `json:"kind"`
	Feedback  string `json:"feedback"`
}

type LeaderboardUpdateMessage struct {
	Type    string   `json:"type"` // "leaderboard_update"
	Players []Player `json:"players"`
}

type ShopFeedbackMessage struct {
	Type    string `json:"type"` // "shop_feedback"
	Message string `json:"message"`
}

type PlayerStatsUpdateMessage struct {
	Type   string `json:"type"` // "player_stats_update"
	Player Player `json:"player"`
}

type GameFinishedMessage struct {
	Type          string   `json:"type"` // "game_finished"
	WinnerName    string   `json:"winnerName"`
	FinalRankings []Player `json:"finalRankings"`
}

// Room owns one game session: its settings, roster, connected clients, and
// lifecycle. All mutation happens under mu, one inbound event at a time.
type Room struct {
	code     string
	hostID   string
	settings RoomSettings

	clients map[*Client]bool
	players []*Player // join order; also the ranking tie-break

	mu sync.RWMutex

	status    string
	startedAt time.Time
	winnerID  string

	createdAt  time.Time
	lastActive time.Time

	done chan struct{}
}

func newRoom(code, hostID string, settings RoomSettings) *Room {
	now := time.Now()
	return &Room{
		code:       code,
		hostID:     hostID,
		settings:   settings,
		clients:    make(map[*Client]bool),
		status:     statusLobby,
		createdAt:  now,
		lastActive: now,
		done:       make(chan struct{}),
	}
}

// run owns the periodic end-condition check for timed games. The check is
// idempotent, so a tick racing a scored answer is harmless.
func (r *Room) run(cfg *Config) {
	ticker := time.NewTicker(cfg.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.checkGameEnd(cfg)
		}
	}
}

func (r *Room) findPlayerLocked(playerID string) *Player {
	for _, p := range r.players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// playerViewLocked deep-copies a player for outbound messages, so the
// write pump never marshals state the room is still mutating.
func playerViewLocked(p *Player) Player {
	view := *p
	view.WrongQuestions = append([]int(nil), p.WrongQuestions...)
	return view
}

func (r *Room) rosterLocked() []Player {
	roster := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, playerViewLocked(p))
	}
	return roster
}

func (r *Room) snapshotLocked() RoomSnapshot {
	return RoomSnapshot{
		Code:             r.code,
		HostID:           r.hostID,
		QuestionSetID:    r.settings.QuestionSetID,
		GameType:         r.settings.GameType,
		TimeLimitMinutes: r.settings.TimeLimitMinutes,
		GoalAmount:       r.settings.GoalAmount,
		Status:           r.status,
		StartedAt:        r.startedAt,
		Players:          r.rosterLocked(),
	}
}

// Slow clients are evicted by closing their connection; the read pump then
// unwinds and closes the send channel itself, its sole owner.
func (r *Room) broadcastLocked(msg any) {
	for client := range r.clients {
		select {
		case client.send <- msg:
		default:
			delete(r.clients, client)
			client.evict()
		}
	}
}

func (r *Room) unicastLocked(playerID string, msg any) {
	for client := range r.clients {
		if client.playerID != playerID {
			continue
		}
		select {
		case client.send <- msg:
		default:
			delete(r.clients, client)
			client.evict()
		}
	}
}

// addClient attaches a connection to this room.
func (r *Room) addClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()
	r.clients[c] = true
}

// join adds a player to the roster. Only lobby rooms accept new players; a
// reconnecting player keeps their slot and just refreshes their name.
func (r *Room) join(cfg *Config, playerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if existing := r.findPlayerLocked(playerID); existing != nil {
		if name != "" {
			existing.Name = name
		}
		r.unicastLocked(playerID, JoinSuccessMessage{Type: "join_success", Room: r.snapshotLocked()})
		r.broadcastLocked(LobbyUpdateMessage{Type: "lobby_update", Players: r.rosterLocked()})
		return nil
	}

	if r.status != statusLobby {
		return errRoomNotJoinable
	}

	r.players = append(r.players, newPlayer(playerID, name))
	logf(cfg, "GAMES: Player %q joined room %s", name, r.code)

	r.unicastLocked(playerID, JoinSuccessMessage{Type: "join_success", Room: r.snapshotLocked()})
	r.broadcastLocked(LobbyUpdateMessage{Type: "lobby_update", Players: r.rosterLocked()})

	return nil
}

// start transitions the room to playing and deals the first question. Only
// the host may start, and only from the lobby.
func (r *Room) start(cfg *Config, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if r.status != statusLobby {
		return errInvalidState
	}
	if playerID != r.hostID {
		return errNotHost
	}

	r.status = statusPlaying
	r.startedAt = time.Now()
	logf(cfg, "GAMES: Room %s started (%s)", r.code, r.settings.GameType)

	r.broadcastLocked(GameStartedMessage{Type: "game_started", Room: r.snapshotLocked()})
	r.broadcastNextQuestionLocked()

	return nil
}

func (r *Room) broadcastNextQuestionLocked() {
	set, ok := questionSet(r.settings.QuestionSetID)
	if !ok {
		return
	}

	question, err := selectNext(set, r.players)
	if err != nil {
		return
	}

	r.broadcastLocked(NewQuestionMessage{Type: "new_question", Question: question})
}

// submitAnswer scores one answer: pays out or breaks the streak, pushes
// feedback and the updated leaderboard, deals the next question, and then
// checks whether the game is over.
func (r *Room) submitAnswer(cfg *Config, playerID string, questionID int, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if r.status != statusPlaying {
		return errInvalidState
	}

	player := r.findPlayerLocked(playerID)
	if player == nil {
		return errUnknownPlayer
	}

	question, ok := findQuestion(r.settings.QuestionSetID, questionID)
	if !ok {
		return errUnknownQuestion
	}

	correct := answer == question.Correct
	kind, text, earnings := applyAnswer(player, questionID, correct)

	r.unicastLocked(playerID, AnswerFeedbackMessage{
		Type:      "answer_feedback",
		IsCorrect: correct,
		Earnings:  earnings,
		Kind:      kind,
		Feedback:  text,
	})

	r.broadcastLocked(LeaderboardUpdateMessage{Type: "leaderboard_update", Players: r.rosterLocked()})
	r.broadcastNextQuestionLocked()

	r.checkGameEndLocked(cfg)

	return nil
}

// buyUpgrade purchases an upgrade for the player. Insufficient funds
// decline the purchase without touching the player.
func (r *Room) buyUpgrade(cfg *Config, playerID, upgradeType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	player := r.findPlayerLocked(playerID)
	if player == nil {
		return errUnknownPlayer
	}

	message, err := applyUpgrade(player, upgradeType)
	if err != nil {
		if err == errInsufficientFunds {
			r.unicastLocked(playerID, ShopFeedbackMessage{Type: "shop_feedback", Message: "Not enough money!"})
		}
		return err
	}

	r.unicastLocked(playerID, ShopFeedbackMessage{Type: "shop_feedback", Message: message})
	r.unicastLocked(playerID, PlayerStatsUpdateMessage{Type: "player_stats_update", Player: playerViewLocked(player)})
	r.broadcastLocked(LeaderboardUpdateMessage{Type: "leaderboard_update", Players: r.rosterLocked()})

	return nil
}

// dropClient detaches a connection. When no other connection shares the
// same player ID, the player leaves the roster immediately.
func (r *Room) dropClient(cfg *Config, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	delete(r.clients, c)

	if c.playerID == "" {
		return
	}
	for client := range r.clients {
		if client.playerID == c.playerID {
			return
		}
	}

	dst := r.players[:0]
	changed := false
	for _, p := range r.players {
		if p.PlayerID == c.playerID {
			changed = true
			logf(cfg, "GAMES: Player %q left room %s", p.Name, r.code)
			continue
		}
		dst = append(dst, p)
	}
	r.players = dst

	if changed {
		r.broadcastLocked(LobbyUpdateMessage{Type: "lobby_update", Players: r.rosterLocked()})
	}
}

func (r *Room) checkGameEnd(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkGameEndLocked(cfg)
}

// checkGameEndLocked evaluates the room's end condition. It no-ops unless
// the room is playing, so ticker and answer paths can both call it.
func (r *Room) checkGameEndLocked(cfg *Config) {
	if r.status != statusPlaying {
		return
	}

	switch r.settings.GameType {
	case gameTypeTimed:
		limit := time.Duration(r.settings.TimeLimitMinutes) * time.Minute
		if time.Since(r.startedAt) >= limit {
			r.endGameLocked(cfg)
		}
	case gameTypeRace:
		for _, p := range r.players {
			if p.Money >= r.settings.GoalAmount {
				r.winnerID = p.PlayerID
				r.endGameLocked(cfg)
				break
			}
		}
	}
}

// endGameLocked finishes the room. Without an explicit winner (the timed
// case), the richest player wins, ties going to whoever joined first.
func (r *Room) endGameLocked(cfg *Config) {
	r.status = statusFinished
	r.lastActive = time.Now()

	rankings := r.rosterLocked()
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Money > rankings[j].Money
	})

	winner := r.findPlayerLocked(r.winnerID)
	if winner == nil && len(rankings) > 0 {
		r.winnerID = rankings[0].PlayerID
		winner = r.findPlayerLocked(r.winnerID)
	}

	winnerName := ""
	if winner != nil {
		winnerName = winner.Name
	}

	logf(cfg, "GAMES: Room %s finished, winner %q", r.code, winnerName)

	r.broadcastLocked(GameFinishedMessage{
		Type:          "game_finished",
		WinnerName:    winnerName,
		FinalRankings: rankings,
	})
}

// closeAll disconnects all clients of this room (used by the reaper).
func (r *Room) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.clients {
		c.evict()
		delete(r.clients, c)
	}
}
