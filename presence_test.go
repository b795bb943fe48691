package main

import "testing"

func TestUserOnlineAnnouncesPresence(t *testing.T) {
	s := NewServer(nil)
	_, aliceSock := connectUser(s, "conn-a", "alice")
	connectUser(s, "conn-b", "bob")

	raw := aliceSock.lastEvent(t, MsgOnlineUsers)
	online := decodeAs[[]string](t, raw)
	if len(online) != 2 {
		t.Fatalf("online set = %v, want 2 users", online)
	}

	status := decodeAs[UserStatusData](t, aliceSock.lastEvent(t, MsgUserStatusChanged))
	if status.UserID != "bob" || !status.Online {
		t.Fatalf("status = %+v, want bob online", status)
	}
}

func TestUserOnlineEmptyIDIgnored(t *testing.T) {
	s := NewServer(nil)
	conn, _ := newTestConn("conn-a")
	s.conns.Add(conn)
	s.handleUserOnline(conn, UserOnlineData{UserID: ""})

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.connUsers) != 0 || len(s.userConns) != 0 {
		t.Fatal("empty user id must not create presence entries")
	}
}

func TestReconnectEvictsOldMapping(t *testing.T) {
	s := NewServer(nil)
	connectUser(s, "conn-old", "alice")
	connectUser(s, "conn-new", "alice")

	s.mu.Lock()
	defer s.mu.Unlock()
	if got := s.userConns["alice"]; got != "conn-new" {
		t.Fatalf("userConns[alice] = %q, want conn-new", got)
	}
	if _, ok := s.connUsers["conn-old"]; ok {
		t.Fatal("old connection still mapped to a user")
	}
}

func TestReconnectRebindsLobbyMembership(t *testing.T) {
	s := NewServer(nil)
	connectUser(s, "conn-a", "alice")
	connectUser(s, "conn-b", "bob")
	lobbyID := createLobbyForTest(t, s, "2v2")

	connectUser(s, "conn-b2", "bob")

	s.mu.Lock()
	defer s.mu.Unlock()
	lobby := s.lobbies[lobbyID]
	if lobby == nil {
		t.Fatal("lobby gone after reconnect")
	}
	for _, m := range lobby.Players {
		if m.UserID == "bob" && m.ConnID != "conn-b2" {
			t.Fatalf("bob's lobby membership still on %q", m.ConnID)
		}
	}
}

func TestDisconnectClearsPresence(t *testing.T) {
	s := NewServer(nil)
	conn, _ := connectUser(s, "conn-a", "alice")
	_, bobSock := connectUser(s, "conn-b", "bob")

	s.HandleDisconnect(conn)

	s.mu.Lock()
	_, connMapped := s.connUsers["conn-a"]
	_, userMapped := s.userConns["alice"]
	s.mu.Unlock()
	if connMapped || userMapped {
		t.Fatal("presence maps still reference the dropped connection")
	}

	status := decodeAs[UserStatusData](t, bobSock.lastEvent(t, MsgUserStatusChanged))
	if status.UserID != "alice" || status.Online {
		t.Fatalf("status = %+v, want alice offline", status)
	}
}
