package main

import (
	"time"

	"github.com/google/uuid"
)

// Invite is a pending one-to-one game invitation. It lives from send until
// accept or reject; there is no expiry timer beyond the receiver's online
// check at accept time.
type Invite struct {
	ID         string
	SenderID   string
	ReceiverID string
	GameType   string
	CreatedAt  time.Time
}

// Lobby statuses
const (
	LobbyStatusWaiting     = "waiting"
	LobbyStatusCountdown   = "countdown"
	LobbyStatusMatchmaking = "matchmaking"
	LobbyStatusStarted     = "started"
)

// Fill modes: complete the teams with bots, or route the lobby into
// matchmaking to find human opponents.
const (
	FillModeBots    = "bots"
	FillModePlayers = "players"
)

// Lobby is a pre-match party negotiating readiness and fill policy.
type Lobby struct {
	ID            string
	GameType      string
	HostUserID    string
	Players       []*LobbyMember
	Status        string
	FillMode      string
	BotDifficulty string
	CreatedAt     time.Time
}

// LobbyMember is one user in a lobby, tracked by their live connection.
type LobbyMember struct {
	UserID string
	ConnID string
	Ready  bool
}

// Snapshot returns the lobby view broadcast to members on every change.
func (l *Lobby) Snapshot() LobbySnapshot {
	players := make([]LobbyPlayerView, len(l.Players))
	for i, p := range l.Players {
		players[i] = LobbyPlayerView{UserID: p.UserID, Ready: p.Ready}
	}
	return LobbySnapshot{
		LobbyID:       l.ID,
		GameType:      l.GameType,
		Players:       players,
		HostID:        l.HostUserID,
		Status:        l.Status,
		FillMode:      l.FillMode,
		BotDifficulty: l.BotDifficulty,
	}
}

func newInviteID() string { return "invite-" + uuid.New().String() }
func newLobbyID() string  { return "lobby-" + uuid.New().String() }

// handleGameInvite stores a new invite and pushes it to the receiver.
func (s *Server) handleGameInvite(c *Conn, d GameInviteData) {
	s.mu.Lock()
	senderID := s.userIDForLocked(c.ID)
	if senderID == "" {
		s.mu.Unlock()
		sendError(c, "You must be logged in to send invites")
		return
	}
	friendConn, online := s.connForUserLocked(d.FriendID)
	if !online {
		s.mu.Unlock()
		sendError(c, "Friend is not online")
		return
	}

	invite := &Invite{
		ID:         newInviteID(),
		SenderID:   senderID,
		ReceiverID: d.FriendID,
		GameType:   d.GameType,
		CreatedAt:  time.Now(),
	}
	s.invites[invite.ID] = invite
	s.mu.Unlock()

	_ = friendConn.Send(MsgInviteReceived, InviteReceivedData{
		InviteID: invite.ID,
		SenderID: senderID,
		GameType: d.GameType,
	})
}

// handleAcceptInvite consumes the invite and creates a two-player lobby with
// default fill policy, notifying both sides with the lobby snapshot.
func (s *Server) handleAcceptInvite(c *Conn, d InviteActionData) {
	s.mu.Lock()
	invite, ok := s.invites[d.InviteID]
	if !ok {
		s.mu.Unlock()
		sendError(c, "Invite not found or expired")
		return
	}
	senderConn, online := s.connForUserLocked(invite.SenderID)
	if !online {
		delete(s.invites, d.InviteID)
		s.mu.Unlock()
		sendError(c, "Inviter is no longer online")
		return
	}

	receiverID := s.userIDForLocked(c.ID)
	senderConnID := s.userConns[invite.SenderID]

	lobby := &Lobby{
		ID:         newLobbyID(),
		GameType:   invite.GameType,
		HostUserID: invite.SenderID,
		Players: []*LobbyMember{
			{UserID: invite.SenderID, ConnID: senderConnID},
			{UserID: receiverID, ConnID: c.ID},
		},
		Status:        LobbyStatusWaiting,
		FillMode:      FillModeBots,
		BotDifficulty: "medium",
		CreatedAt:     time.Now(),
	}
	s.lobbies[lobby.ID] = lobby
	s.userLobbies[invite.SenderID] = lobby.ID
	s.userLobbies[receiverID] = lobby.ID
	delete(s.invites, d.InviteID)

	snapshot := lobby.Snapshot()
	s.mu.Unlock()

	_ = senderConn.Send(MsgLobbyCreated, snapshot)
	_ = c.Send(MsgLobbyCreated, snapshot)
}

// handleRejectInvite notifies the sender and deletes the invite.
func (s *Server) handleRejectInvite(c *Conn, d InviteActionData) {
	s.mu.Lock()
	invite, ok := s.invites[d.InviteID]
	if !ok {
		s.mu.Unlock()
		return
	}
	senderConn, online := s.connForUserLocked(invite.SenderID)
	delete(s.invites, d.InviteID)
	s.mu.Unlock()

	if online {
		_ = senderConn.Send(MsgInviteRejected, InviteRejectedData{InviteID: d.InviteID})
	}
}

// handleSetFillMode is host-only; an invalid caller or enum value is a no-op.
func (s *Server) handleSetFillMode(c *Conn, d SetFillModeData) {
	if d.FillMode != FillModeBots && d.FillMode != FillModePlayers {
		return
	}
	s.mu.Lock()
	lobby := s.lobbies[d.LobbyID]
	if lobby == nil || lobby.HostUserID != s.userIDForLocked(c.ID) {
		s.mu.Unlock()
		return
	}
	lobby.FillMode = d.FillMode
	s.broadcastLobbyLocked(lobby, MsgLobbyUpdated, lobby.Snapshot())
	s.mu.Unlock()
}

// handleSetBotDifficulty is host-only; an invalid caller or enum is a no-op.
func (s *Server) handleSetBotDifficulty(c *Conn, d SetBotDifficultyData) {
	if _, ok := botDifficulties[d.BotDifficulty]; !ok {
		return
	}
	s.mu.Lock()
	lobby := s.lobbies[d.LobbyID]
	if lobby == nil || lobby.HostUserID != s.userIDForLocked(c.ID) {
		s.mu.Unlock()
		return
	}
	lobby.BotDifficulty = d.BotDifficulty
	s.broadcastLobbyLocked(lobby, MsgLobbyUpdated, lobby.Snapshot())
	s.mu.Unlock()
}

// handleLobbyReady flips the caller's ready flag. When everyone is ready the
// lobby either enters matchmaking (players fill, team modes only) or starts
// its countdown toward a bot-filled session.
func (s *Server) handleLobbyReady(c *Conn, d LobbyActionData) {
	s.mu.Lock()
	lobby := s.lobbies[d.LobbyID]
	if lobby == nil {
		s.mu.Unlock()
		sendError(c, "Lobby not found")
		return
	}
	if lobby.Status != LobbyStatusWaiting {
		s.mu.Unlock()
		return
	}

	userID := s.userIDForLocked(c.ID)
	for _, p := range lobby.Players {
		if p.UserID == userID {
			p.Ready = !p.Ready
		}
	}
	s.broadcastLobbyLocked(lobby, MsgLobbyUpdated, lobby.Snapshot())

	allReady := true
	for _, p := range lobby.Players {
		if !p.Ready {
			allReady = false
			break
		}
	}
	if allReady {
		if lobby.FillMode == FillModePlayers && lobby.GameType != "1v1" {
			s.enterLobbyMatchmakingLocked(lobby)
		} else {
			s.startLobbyCountdownLocked(lobby)
		}
	}
	s.mu.Unlock()
}

// startLobbyCountdownLocked announces the countdown and schedules the game
// start. The timer re-checks the status under lock: a member leaving during
// the countdown invalidates it. Caller must hold s.mu.
func (s *Server) startLobbyCountdownLocked(lobby *Lobby) {
	lobby.Status = LobbyStatusCountdown
	s.broadcastLobbyLocked(lobby, MsgLobbyCountdown, LobbyCountdownData{
		LobbyID: lobby.ID,
		Seconds: LobbyCountdownSec,
	})

	lobbyID := lobby.ID
	time.AfterFunc(LobbyCountdownSec*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		current := s.lobbies[lobbyID]
		if current != nil && current.Status == LobbyStatusCountdown {
			s.startGameFromLobbyLocked(current)
		}
	})
}

// handleLobbyLeave removes the caller from their lobby.
func (s *Server) handleLobbyLeave(c *Conn, d LobbyActionData) {
	s.mu.Lock()
	s.leaveLobbyLocked(s.userIDForLocked(c.ID), d.LobbyID)
	s.mu.Unlock()
}

// leaveLobbyLocked removes a member. A lobby sitting in a matchmaking queue
// has all its members purged from that queue. Falling under two members
// dissolves the lobby. Caller must hold s.mu.
func (s *Server) leaveLobbyLocked(userID, lobbyID string) {
	lobby := s.lobbies[lobbyID]
	if lobby == nil {
		return
	}

	if lobby.Status == LobbyStatusMatchmaking {
		s.purgeLobbyFromQueueLocked(lobby)
	}

	idx := -1
	for i, p := range lobby.Players {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	lobby.Players = append(lobby.Players[:idx], lobby.Players[idx+1:]...)
	delete(s.userLobbies, userID)

	if len(lobby.Players) < 2 {
		closed := LobbyClosedData{LobbyID: lobbyID, Reason: "Player left"}
		for _, p := range lobby.Players {
			if conn, ok := s.conns.Get(p.ConnID); ok {
				_ = conn.Send(MsgLobbyClosed, closed)
			}
			delete(s.userLobbies, p.UserID)
		}
		delete(s.lobbies, lobbyID)
		return
	}
	s.broadcastLobbyLocked(lobby, MsgLobbyUpdated, lobby.Snapshot())
}

// broadcastLobbyLocked sends an event to every lobby member.
// Caller must hold s.mu.
func (s *Server) broadcastLobbyLocked(lobby *Lobby, msgType string, data interface{}) {
	for _, p := range lobby.Players {
		if conn, ok := s.conns.Get(p.ConnID); ok {
			_ = conn.Send(msgType, data)
		}
	}
}
