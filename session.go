package main

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Session is one authoritative running match: its players, food, grace-period
// bookkeeping and the connections attached to it. Dead players stay in the
// map so clients can render final state and team-alive counts hit zero
// deterministically.
type Session struct {
	ID            string
	GameType      string
	Players       map[string]*Player
	Food          map[string]*FoodItem
	StartTime     time.Time
	BotDifficulty string

	// Lobby-origin sessions freeze until every expected human has attached.
	LobbyID         string
	GracePeriodEnd  time.Time
	ExpectedHumans  int
	ConnectedHumans int

	conns     map[string]*Conn // attached connections by conn ID
	botStates map[string]BotState
	grid      *SpatialGrid

	rewardPaid bool
	idleTicks  int
}

func newGameID() string { return "game-" + uuid.New().String() }

func newSession(gameType, botDifficulty string) *Session {
	if _, ok := botDifficulties[botDifficulty]; !ok {
		botDifficulty = "medium"
	}
	return &Session{
		ID:            newGameID(),
		GameType:      gameType,
		Players:       make(map[string]*Player),
		Food:          make(map[string]*FoodItem),
		StartTime:     time.Now(),
		BotDifficulty: botDifficulty,
		conns:         make(map[string]*Conn),
		botStates:     make(map[string]BotState),
		grid:          NewSpatialGrid(GridCellSize),
	}
}

func (sess *Session) addFood(items []*FoodItem) {
	for _, f := range items {
		sess.Food[f.ID] = f
	}
}

// broadcast sends an event to every connection attached to the session.
func (sess *Session) broadcast(msgType string, data interface{}) {
	for _, c := range sess.conns {
		_ = c.Send(msgType, data)
	}
}

// aliveByTeam returns the living-player count for each team.
func (sess *Session) aliveByTeam() (green, red int) {
	for _, p := range sess.Players {
		if !p.Alive {
			continue
		}
		if p.Team == TeamGreen {
			green++
		} else {
			red++
		}
	}
	return green, red
}

// Serialize builds the public per-tick view of the session.
func (sess *Session) Serialize() *GameStateDTO {
	players := make([]PlayerDTO, 0, len(sess.Players))
	for _, p := range sess.Players {
		players = append(players, p.ToDTO())
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	food := make([]FoodDTO, 0, len(sess.Food))
	for _, f := range sess.Food {
		food = append(food, f.ToDTO())
	}
	sort.Slice(food, func(i, j int) bool { return food[i].ID < food[j].ID })

	graceRemaining := 0
	if !sess.GracePeriodEnd.IsZero() {
		if left := time.Until(sess.GracePeriodEnd); left > 0 {
			graceRemaining = int(math.Ceil(left.Seconds()))
		}
	}

	return &GameStateDTO{
		ID:                   sess.ID,
		Players:              players,
		Food:                 food,
		StartTime:            sess.StartTime.UnixMilli(),
		GracePeriodRemaining: graceRemaining,
		ConnectedHumans:      sess.ConnectedHumans,
		ExpectedHumans:       sess.ExpectedHumans,
	}
}

// ---- spawn policy ----

// teamSide is -1 for green (left half) and +1 for red (right half).
func teamSide(team string) float64 {
	if team == TeamGreen {
		return -1
	}
	return 1
}

// teamForward is the initial facing axis for humans on each team.
func teamForward(team string) (float64, float64) {
	if team == TeamGreen {
		return 1, 0
	}
	return -1, 0
}

// spawnQueuePosition places a queue-matched player: full-circle angle inside
// a banded radius, the x coordinate stretched and mirrored onto the team's
// half so opposing rosters start apart without hugging center or edge.
func spawnQueuePosition(team string) (float64, float64) {
	angle := rand.Float64() * 2 * math.Pi
	radius := 600 + rand.Float64()*300
	return math.Cos(angle) * radius * teamSide(team) * 1.2, math.Sin(angle) * radius
}

// spawnOfflinePosition uses a slightly tighter band for instant bot games;
// 5v5 keeps the stretched spread of queue games.
func spawnOfflinePosition(gameType, team string) (float64, float64) {
	switch gameType {
	case "1v1":
		angle := rand.Float64() * 2 * math.Pi
		radius := 500 + rand.Float64()*200
		return math.Cos(angle) * radius * teamSide(team), math.Sin(angle) * radius
	case "2v2":
		angle := rand.Float64() * 2 * math.Pi
		radius := 600 + rand.Float64()*200
		return math.Cos(angle) * radius * teamSide(team), math.Sin(angle) * radius
	default:
		return spawnQueuePosition(team)
	}
}

// spawnLobbyPosition samples an arc facing the team's half, closer to center
// than queue spawns so a small party starts within sight of each other.
func spawnLobbyPosition(team string) (float64, float64) {
	radius := 300 + rand.Float64()*200
	baseAngle := 0.0
	if team == TeamGreen {
		baseAngle = math.Pi
	}
	angle := baseAngle + (rand.Float64()-0.5)*math.Pi*0.6
	return math.Cos(angle) * radius, math.Sin(angle) * radius
}

// newHumanPlayer builds a human roster entry at a spawn point, facing the
// team's forward axis.
func newHumanPlayer(id, userID, name, team string, x, y float64, bet int) *Player {
	dx, dy := teamForward(team)
	return &Player{
		ID:        id,
		UserID:    userID,
		Name:      name,
		X:         x,
		Y:         y,
		Trail:     []Point{{X: x, Y: y}},
		DirX:      dx,
		DirY:      dy,
		Score:     0,
		Color:     teamColor(team),
		Team:      team,
		Alive:     true,
		BetAmount: bet,
	}
}

// newBotPlayer builds a bot roster entry with a random initial heading.
func newBotPlayer(id, name, team string, x, y float64) *Player {
	p := &Player{
		ID:    id,
		Name:  name,
		X:     x,
		Y:     y,
		Trail: []Point{{X: x, Y: y}},
		Color: teamColor(team),
		Team:  team,
		Alive: true,
		IsBot: true,
	}
	p.SetDirection(rand.Float64()*2-1, rand.Float64()*2-1)
	if p.DirX == 0 && p.DirY == 0 {
		p.DirX = 1
	}
	return p
}

// ---- creation paths ----

// startOnlineGameLocked builds a session from a released queue batch.
// Lobby-tagged entries land on green first (party cohesion), solo entries
// fill remaining green slots then all of red; with no lobby entries that
// reduces to first-half green, second-half red in FIFO order.
// Caller must hold s.mu.
func (s *Server) startOnlineGameLocked(gameMode string, matched []*QueueEntry) {
	sess := newSession(gameMode, "medium")
	teamSize := len(matched) / 2

	ordered := make([]*QueueEntry, 0, len(matched))
	for _, e := range matched {
		if e.LobbyID != "" {
			ordered = append(ordered, e)
		}
	}
	for _, e := range matched {
		if e.LobbyID == "" {
			ordered = append(ordered, e)
		}
	}

	for i, entry := range ordered {
		team := TeamRed
		if i < teamSize {
			team = TeamGreen
		}
		x, y := spawnQueuePosition(team)
		sess.Players[entry.Conn.ID] = newHumanPlayer(
			entry.Conn.ID, entry.UserID, entry.Name, team, x, y, entry.BetAmount)
		sess.Players[entry.Conn.ID].Connected = true
		sess.conns[entry.Conn.ID] = entry.Conn
	}

	sess.addFood(GenerateFood(InitialFoodCount[gameMode]))
	s.sessions[sess.ID] = sess

	state := sess.Serialize()
	for _, entry := range ordered {
		_ = entry.Conn.Send(MsgMatchFound, MatchFoundData{
			GameID:    sess.ID,
			PlayerID:  entry.Conn.ID,
			GameState: state,
		})
	}

	// Lobbies whose members just left the queue into a session are finished.
	seen := map[string]bool{}
	for _, entry := range matched {
		if entry.LobbyID == "" || seen[entry.LobbyID] {
			continue
		}
		seen[entry.LobbyID] = true
		if lobby := s.lobbies[entry.LobbyID]; lobby != nil {
			for _, m := range lobby.Players {
				delete(s.userLobbies, m.UserID)
			}
			delete(s.lobbies, entry.LobbyID)
		}
	}
}

// createOfflineGameLocked starts an instant session: the caller on green,
// bots completing both teams. Caller must hold s.mu.
func (s *Server) createOfflineGameLocked(c *Conn, userID, name string, bet int, gameType, botDifficulty string) {
	sess := newSession(gameType, botDifficulty)
	teamSize := PlayersPerTeam[gameType]

	x, y := spawnOfflinePosition(gameType, TeamGreen)
	human := newHumanPlayer(c.ID, userID, name, TeamGreen, x, y, bet)
	human.Connected = true
	sess.Players[c.ID] = human
	sess.conns[c.ID] = c

	s.fillTeamsWithBots(sess, teamSize)
	sess.addFood(GenerateFood(InitialFoodCount[gameType]))
	s.sessions[sess.ID] = sess

	_ = c.Send(MsgMatchFound, MatchFoundData{
		GameID:    sess.ID,
		PlayerID:  c.ID,
		GameState: sess.Serialize(),
	})
}

// startGameFromLobbyLocked turns a counted-down lobby into a session. In 1v1
// the two members oppose each other; in team modes the whole party is green.
// The session freezes behind a grace period until every member attaches via
// join-lobby-game. Caller must hold s.mu.
func (s *Server) startGameFromLobbyLocked(lobby *Lobby) {
	lobby.Status = LobbyStatusStarted

	sess := newSession(lobby.GameType, lobby.BotDifficulty)
	sess.LobbyID = lobby.ID
	sess.ExpectedHumans = len(lobby.Players)
	sess.GracePeriodEnd = time.Now().Add(GracePeriodSec * time.Second)

	for i, member := range lobby.Players {
		team := TeamGreen
		if lobby.GameType == "1v1" && i > 0 {
			team = TeamRed
		}
		x, y := spawnLobbyPosition(team)
		p := newHumanPlayer(member.ConnID, member.UserID, member.UserID, team, x, y, 0)
		sess.Players[member.ConnID] = p
		if conn, ok := s.conns.Get(member.ConnID); ok {
			sess.conns[member.ConnID] = conn
		}
	}

	s.fillTeamsWithBots(sess, PlayersPerTeam[lobby.GameType])
	sess.addFood(GenerateFood(InitialFoodCount[lobby.GameType]))
	s.sessions[sess.ID] = sess

	for _, member := range lobby.Players {
		if conn, ok := s.conns.Get(member.ConnID); ok {
			_ = conn.Send(MsgLobbyGameStart, LobbyGameStartData{
				LobbyID:  lobby.ID,
				GameID:   sess.ID,
				PlayerID: member.ConnID,
				GameType: lobby.GameType,
			})
		}
	}

	// The lobby record lives a little longer so a laggard resolving it does
	// not hit "not found" mid-transition, then it is reaped.
	lobbyID := lobby.ID
	time.AfterFunc(GracePeriodSec*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if l := s.lobbies[lobbyID]; l != nil {
			for _, m := range l.Players {
				delete(s.userLobbies, m.UserID)
			}
			delete(s.lobbies, lobbyID)
		}
	})
}

// fillTeamsWithBots completes both team rosters up to teamSize, spawning each
// bot with the session's spawn policy and a sequential name.
func (s *Server) fillTeamsWithBots(sess *Session, teamSize int) {
	for _, team := range []string{TeamGreen, TeamRed} {
		onTeam := 0
		for _, p := range sess.Players {
			if p.Team == team {
				onTeam++
			}
		}
		for i := onTeam; i < teamSize; i++ {
			n := i - onTeam + 1
			id := fmt.Sprintf("%s-bot-%s-%d", team, sess.ID, n)
			name := fmt.Sprintf("%s Bot %d", teamName(team), n)
			var x, y float64
			if sess.LobbyID != "" {
				x, y = spawnLobbyPosition(team)
			} else {
				x, y = spawnOfflinePosition(sess.GameType, team)
			}
			sess.Players[id] = newBotPlayer(id, name, team, x, y)
		}
	}
}

func teamName(team string) string {
	if team == TeamGreen {
		return "Green"
	}
	return "Red"
}

// ---- in-session client events ----

// handleJoinLobbyGame attaches (or re-attaches) a human to their session,
// rebinding the player record to the current connection. The first attach of
// each expected human counts toward the grace gate; once everyone is in, the
// grace window restarts at its full length and the start is announced.
func (s *Server) handleJoinLobbyGame(c *Conn, d JoinLobbyGameData) {
	s.mu.Lock()
	sess := s.sessions[d.GameID]
	if sess == nil {
		s.mu.Unlock()
		sendError(c, "Game not found")
		return
	}

	var player *Player
	for _, p := range sess.Players {
		if !p.IsBot && p.UserID == d.UserID {
			player = p
			break
		}
	}
	if player == nil {
		s.mu.Unlock()
		sendError(c, "Player not found in game")
		return
	}

	alreadyConnected := player.Connected
	if player.ID != c.ID {
		delete(sess.Players, player.ID)
		delete(sess.conns, player.ID)
		player.ID = c.ID
		sess.Players[c.ID] = player
	}
	player.Connected = true
	sess.conns[c.ID] = c
	if !alreadyConnected {
		sess.ConnectedHumans++
	}

	_ = c.Send(MsgLobbyGameJoined, MatchFoundData{
		GameID:    sess.ID,
		PlayerID:  c.ID,
		GameState: sess.Serialize(),
	})
	sess.broadcast(MsgConnectionStatus, ConnectionStatusData{
		ConnectedHumans: sess.ConnectedHumans,
		ExpectedHumans:  sess.ExpectedHumans,
	})

	if sess.ExpectedHumans > 0 && sess.ConnectedHumans >= sess.ExpectedHumans {
		sess.GracePeriodEnd = time.Now().Add(GracePeriodSec * time.Second)
		sess.broadcast(MsgAllConnected, AllConnectedData{CountdownSeconds: GracePeriodSec})
	}
	s.mu.Unlock()
}

// handleUpdateDirection applies a client steering input: the vector is
// re-normalized server-side, only heading matters, and dead players are
// ignored.
func (s *Server) handleUpdateDirection(c *Conn, d UpdateDirectionData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[d.GameID]
	if sess == nil {
		return
	}
	p, ok := sess.Players[c.ID]
	if !ok || !p.Alive {
		return
	}
	p.SetDirection(d.Direction.X, d.Direction.Y)
}

// handlePingCheck answers the latency probe and records the reported ping on
// the caller's session player for the broadcast snapshot.
func (s *Server) handlePingCheck(c *Conn, d PingCheckData) {
	_ = c.Send(MsgPongCheck, PongCheckData{Timestamp: d.Timestamp})

	if d.Ping <= 0 {
		return
	}
	s.mu.Lock()
	for _, sess := range s.sessions {
		if p, ok := sess.Players[c.ID]; ok {
			p.Ping = d.Ping
		}
	}
	s.mu.Unlock()
}
