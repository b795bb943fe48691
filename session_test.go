package main

import (
	"math"
	"testing"
	"time"
)

// lobbySessionForTest hand-builds a grace-gated session the way a lobby start
// produces one: humans registered but not yet attached.
func lobbySessionForTest(s *Server, gameType string, users map[string]string) *Session {
	sess := newSession(gameType, "medium")
	sess.LobbyID = "lobby-test"
	sess.ExpectedHumans = len(users)
	sess.GracePeriodEnd = time.Now().Add(GracePeriodSec * time.Second)
	for connID, userID := range users {
		x, y := spawnLobbyPosition(TeamGreen)
		sess.Players[connID] = newHumanPlayer(connID, userID, userID, TeamGreen, x, y, 0)
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func TestJoinLobbyGameAttachesAndCounts(t *testing.T) {
	s := NewServer(nil)
	sess := lobbySessionForTest(s, "2v2", map[string]string{
		"stale-a": "alice",
		"stale-b": "bob",
	})

	conn, sock := connectUser(s, "conn-a2", "alice")
	s.handleJoinLobbyGame(conn, JoinLobbyGameData{GameID: sess.ID, UserID: "alice"})

	joined := decodeAs[MatchFoundData](t, sock.lastEvent(t, MsgLobbyGameJoined))
	if joined.GameID != sess.ID || joined.PlayerID != "conn-a2" {
		t.Fatalf("joined = %+v", joined)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := sess.Players["conn-a2"]
	if p == nil || p.UserID != "alice" || !p.Connected {
		t.Fatalf("player after join = %+v", p)
	}
	if _, ok := sess.Players["stale-a"]; ok {
		t.Fatal("stale player id still registered after rebind")
	}
	if sess.ConnectedHumans != 1 {
		t.Fatalf("connected humans = %d, want 1", sess.ConnectedHumans)
	}
}

func TestAllConnectedRestartsGraceCountdown(t *testing.T) {
	s := NewServer(nil)
	sess := lobbySessionForTest(s, "2v2", map[string]string{
		"stale-a": "alice",
		"stale-b": "bob",
	})
	// Window nearly expired before the last player attaches.
	sess.GracePeriodEnd = time.Now().Add(100 * time.Millisecond)

	aliceConn, _ := connectUser(s, "conn-a2", "alice")
	s.handleJoinLobbyGame(aliceConn, JoinLobbyGameData{GameID: sess.ID, UserID: "alice"})
	bobConn, bobSock := connectUser(s, "conn-b2", "bob")
	s.handleJoinLobbyGame(bobConn, JoinLobbyGameData{GameID: sess.ID, UserID: "bob"})

	all := decodeAs[AllConnectedData](t, bobSock.lastEvent(t, MsgAllConnected))
	if all.CountdownSeconds != GracePeriodSec {
		t.Fatalf("countdown = %d, want %d", all.CountdownSeconds, GracePeriodSec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if remaining := time.Until(sess.GracePeriodEnd); remaining < 4*time.Second {
		t.Fatalf("grace not restarted, %.1fs left", remaining.Seconds())
	}
	status := decodeAs[ConnectionStatusData](t, bobSock.lastEvent(t, MsgConnectionStatus))
	if status.ConnectedHumans != 2 || status.ExpectedHumans != 2 {
		t.Fatalf("connection status = %+v", status)
	}
}

func TestRejoinDoesNotDoubleCount(t *testing.T) {
	s := NewServer(nil)
	sess := lobbySessionForTest(s, "1v1", map[string]string{"stale-a": "alice"})

	first, _ := connectUser(s, "conn-a1", "alice")
	s.handleJoinLobbyGame(first, JoinLobbyGameData{GameID: sess.ID, UserID: "alice"})
	second, _ := connectUser(s, "conn-a2", "alice")
	s.handleJoinLobbyGame(second, JoinLobbyGameData{GameID: sess.ID, UserID: "alice"})

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ConnectedHumans != 1 {
		t.Fatalf("connected humans = %d after a rejoin, want 1", sess.ConnectedHumans)
	}
	if _, ok := sess.Players["conn-a2"]; !ok {
		t.Fatal("player not rebound to the latest connection")
	}
}

func TestJoinUnknownGame(t *testing.T) {
	s := NewServer(nil)
	conn, sock := connectUser(s, "conn-a", "alice")

	s.handleJoinLobbyGame(conn, JoinLobbyGameData{GameID: "game-nope", UserID: "alice"})

	errMsg := decodeAs[ErrorData](t, sock.lastEvent(t, MsgError))
	if errMsg.Message != "Game not found" {
		t.Fatalf("error = %q", errMsg.Message)
	}
}

func TestJoinGameAsOutsider(t *testing.T) {
	s := NewServer(nil)
	sess := lobbySessionForTest(s, "1v1", map[string]string{"stale-a": "alice"})
	conn, sock := connectUser(s, "conn-m", "mallory")

	s.handleJoinLobbyGame(conn, JoinLobbyGameData{GameID: sess.ID, UserID: "mallory"})

	errMsg := decodeAs[ErrorData](t, sock.lastEvent(t, MsgError))
	if errMsg.Message != "Player not found in game" {
		t.Fatalf("error = %q", errMsg.Message)
	}
}

func TestDisconnectDuringGraceKeepsPlayerAlive(t *testing.T) {
	s := NewServer(nil)
	sess := lobbySessionForTest(s, "1v1", map[string]string{"stale-a": "alice"})

	conn, _ := connectUser(s, "conn-a1", "alice")
	s.handleJoinLobbyGame(conn, JoinLobbyGameData{GameID: sess.ID, UserID: "alice"})
	s.HandleDisconnect(conn)

	s.mu.Lock()
	defer s.mu.Unlock()
	p := sess.Players["conn-a1"]
	if p == nil || !p.Alive {
		t.Fatal("player killed by a disconnect inside the grace window")
	}
	if _, ok := sess.conns["conn-a1"]; ok {
		t.Fatal("dropped connection still attached")
	}
}

func TestDisconnectAfterGraceKillsPlayer(t *testing.T) {
	s := NewServer(nil)
	sess := lobbySessionForTest(s, "1v1", map[string]string{"stale-a": "alice"})

	conn, _ := connectUser(s, "conn-a1", "alice")
	s.handleJoinLobbyGame(conn, JoinLobbyGameData{GameID: sess.ID, UserID: "alice"})
	sess.GracePeriodEnd = time.Now().Add(-time.Second)
	s.HandleDisconnect(conn)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Players["conn-a1"].Alive {
		t.Fatal("player survived a post-grace disconnect")
	}
}

func TestUpdateDirectionNormalizes(t *testing.T) {
	s := NewServer(nil)
	sess := newSession("1v1", "medium")
	conn, _ := connectUser(s, "conn-a", "alice")
	p := testPlayerAt(conn.ID, TeamGreen, 0, 0)
	sess.Players[p.ID] = p
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.handleUpdateDirection(conn, UpdateDirectionData{GameID: sess.ID, Direction: Vec2{X: 3, Y: 4}})
	if math.Abs(p.DirX-0.6) > 1e-9 || math.Abs(p.DirY-0.8) > 1e-9 {
		t.Fatalf("direction = (%f, %f), want (0.6, 0.8)", p.DirX, p.DirY)
	}

	// A zero vector never clears the heading.
	s.handleUpdateDirection(conn, UpdateDirectionData{GameID: sess.ID, Direction: Vec2{}})
	if p.DirX == 0 && p.DirY == 0 {
		t.Fatal("zero vector wiped the heading")
	}

	p.Alive = false
	s.handleUpdateDirection(conn, UpdateDirectionData{GameID: sess.ID, Direction: Vec2{X: 0, Y: -1}})
	if p.DirY == -1 {
		t.Fatal("dead player steered")
	}
}

func TestPingCheckEchoesAndRecords(t *testing.T) {
	s := NewServer(nil)
	sess := newSession("1v1", "medium")
	conn, sock := connectUser(s, "conn-a", "alice")
	p := testPlayerAt(conn.ID, TeamGreen, 0, 0)
	sess.Players[p.ID] = p
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.handlePingCheck(conn, PingCheckData{Timestamp: 12345, Ping: 42})

	pong := decodeAs[PongCheckData](t, sock.lastEvent(t, MsgPongCheck))
	if pong.Timestamp != 12345 {
		t.Fatalf("pong timestamp = %d", pong.Timestamp)
	}
	if p.Ping != 42 {
		t.Fatalf("recorded ping = %d, want 42", p.Ping)
	}
}

func TestSerializeRoundsAndSorts(t *testing.T) {
	sess := newSession("1v1", "medium")
	a := testPlayerAt("b-player", TeamGreen, 10.04, -3.26)
	b := testPlayerAt("a-player", TeamRed, 0, 0)
	sess.Players[a.ID] = a
	sess.Players[b.ID] = b
	sess.GracePeriodEnd = time.Now().Add(2500 * time.Millisecond)
	sess.ExpectedHumans = 2
	sess.ConnectedHumans = 1

	dto := sess.Serialize()

	if dto.Players[0].ID != "a-player" || dto.Players[1].ID != "b-player" {
		t.Fatal("players not sorted by id")
	}
	if dto.Players[1].X != 10.0 || dto.Players[1].Y != -3.3 {
		t.Fatalf("coordinates not rounded: (%v, %v)", dto.Players[1].X, dto.Players[1].Y)
	}
	if dto.GracePeriodRemaining != 3 {
		t.Fatalf("grace remaining = %d, want ceil to 3", dto.GracePeriodRemaining)
	}
	if dto.ConnectedHumans != 1 || dto.ExpectedHumans != 2 {
		t.Fatalf("human counts = %d/%d", dto.ConnectedHumans, dto.ExpectedHumans)
	}
}

func TestStartGameFromLobbyTeamsAndBots(t *testing.T) {
	s := NewServer(nil)
	connectUser(s, "conn-a", "alice")
	connectUser(s, "conn-b", "bob")
	lobbyID := createLobbyForTest(t, s, "2v2")

	s.mu.Lock()
	lobby := s.lobbies[lobbyID]
	s.startGameFromLobbyLocked(lobby)
	var sess *Session
	for _, candidate := range s.sessions {
		sess = candidate
	}
	s.mu.Unlock()

	if sess == nil {
		t.Fatal("no session created")
	}
	if sess.ExpectedHumans != 2 || sess.GracePeriodEnd.IsZero() {
		t.Fatalf("grace gate not armed: expected=%d", sess.ExpectedHumans)
	}
	if len(sess.Players) != 4 {
		t.Fatalf("roster = %d, want 4", len(sess.Players))
	}
	// Team modes keep the whole party on green; bots complete both sides.
	if sess.Players["conn-a"].Team != TeamGreen || sess.Players["conn-b"].Team != TeamGreen {
		t.Fatal("lobby party split across teams in a team mode")
	}
	greens, reds := 0, 0
	for _, p := range sess.Players {
		if p.Team == TeamGreen {
			greens++
		} else {
			reds++
		}
	}
	if greens != 2 || reds != 2 {
		t.Fatalf("teams = %d green / %d red, want 2/2", greens, reds)
	}
	if len(sess.Food) != InitialFoodCount["2v2"] {
		t.Fatalf("food = %d, want %d", len(sess.Food), InitialFoodCount["2v2"])
	}
}

func TestStartGameFromLobbyOneVOneOpposes(t *testing.T) {
	s := NewServer(nil)
	connectUser(s, "conn-a", "alice")
	connectUser(s, "conn-b", "bob")
	lobbyID := createLobbyForTest(t, s, "1v1")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.startGameFromLobbyLocked(s.lobbies[lobbyID])
	var sess *Session
	for _, candidate := range s.sessions {
		sess = candidate
	}

	if sess.Players["conn-a"].Team == sess.Players["conn-b"].Team {
		t.Fatal("1v1 lobby members landed on the same team")
	}
	for _, p := range sess.Players {
		if p.IsBot {
			t.Fatal("bots added to a full 1v1 lobby game")
		}
	}
}
