package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Server owns every mutable store: presence maps, invites, lobbies,
// matchmaking queues and live sessions. One mutex guards all of them; the
// connection read goroutines and the tick loop are the only writers and each
// takes the lock per event / per tick.
type Server struct {
	mu    sync.Mutex
	conns *ConnManager

	// presence: connection handle <-> user identity, a bijection corrected
	// on reconnect
	connUsers map[string]string // conn ID -> user ID
	userConns map[string]string // user ID -> conn ID

	invites     map[string]*Invite
	lobbies     map[string]*Lobby
	userLobbies map[string]string // user ID -> lobby ID

	queues map[string][]*QueueEntry // game mode -> FIFO

	sessions map[string]*Session

	wallet    Wallet
	startTime time.Time
}

// NewServer creates a server with empty stores.
func NewServer(wallet Wallet) *Server {
	if wallet == nil {
		wallet = noopWallet{}
	}
	return &Server{
		conns:       NewConnManager(),
		connUsers:   make(map[string]string),
		userConns:   make(map[string]string),
		invites:     make(map[string]*Invite),
		lobbies:     make(map[string]*Lobby),
		userLobbies: make(map[string]string),
		queues:      make(map[string][]*QueueEntry),
		sessions:    make(map[string]*Session),
		wallet:      wallet,
		startTime:   time.Now(),
	}
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Dispatch routes one decoded client event to its handler. Decode failures
// answer with an error event and leave all state untouched.
func (s *Server) Dispatch(c *Conn, msg ClientMessage) {
	switch msg.Type {
	case MsgUserOnline:
		var d UserOnlineData
		if decode(c, msg.Data, &d) {
			s.handleUserOnline(c, d)
		}
	case MsgGameInvite:
		var d GameInviteData
		if decode(c, msg.Data, &d) {
			s.handleGameInvite(c, d)
		}
	case MsgAcceptInvite:
		var d InviteActionData
		if decode(c, msg.Data, &d) {
			s.handleAcceptInvite(c, d)
		}
	case MsgRejectInvite:
		var d InviteActionData
		if decode(c, msg.Data, &d) {
			s.handleRejectInvite(c, d)
		}
	case MsgSetFillMode:
		var d SetFillModeData
		if decode(c, msg.Data, &d) {
			s.handleSetFillMode(c, d)
		}
	case MsgSetBotDifficulty:
		var d SetBotDifficultyData
		if decode(c, msg.Data, &d) {
			s.handleSetBotDifficulty(c, d)
		}
	case MsgLobbyReady:
		var d LobbyActionData
		if decode(c, msg.Data, &d) {
			s.handleLobbyReady(c, d)
		}
	case MsgLobbyLeave:
		var d LobbyActionData
		if decode(c, msg.Data, &d) {
			s.handleLobbyLeave(c, d)
		}
	case MsgJoinLobbyGame:
		var d JoinLobbyGameData
		if decode(c, msg.Data, &d) {
			s.handleJoinLobbyGame(c, d)
		}
	case MsgPingCheck:
		var d PingCheckData
		if decode(c, msg.Data, &d) {
			s.handlePingCheck(c, d)
		}
	case MsgFindMatch:
		var d FindMatchData
		if decode(c, msg.Data, &d) {
			s.handleFindMatch(c, d)
		}
	case MsgCancelMatch:
		s.handleCancelMatchmaking(c)
	case MsgUpdateDirection:
		var d UpdateDirectionData
		if decode(c, msg.Data, &d) {
			s.handleUpdateDirection(c, d)
		}
	default:
		log.Printf("unknown event %q from %s", msg.Type, c.ID)
	}
}

// decode unmarshals an event payload, answering with an error event on failure.
func decode(c *Conn, raw json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		sendError(c, "Malformed event payload")
		return false
	}
	return true
}

func sendError(c *Conn, message string) {
	_ = c.Send(MsgError, ErrorData{Message: message})
}

// HandleConnect registers a freshly upgraded connection.
func (s *Server) HandleConnect(c *Conn) {
	s.conns.Add(c)
	log.Printf("client connected: %s", c.ID)
}

// HandleDisconnect tears down everything tied to a dropped connection:
// presence mapping, matchmaking slots, a lobby mid-matchmaking, and marks the
// player dead in any session unless grace still applies.
func (s *Server) HandleDisconnect(c *Conn) {
	s.conns.Remove(c.ID)

	s.mu.Lock()
	userID := s.connUsers[c.ID]
	if userID != "" {
		// A lobby waiting in a matchmaking queue cannot hold a seat for a
		// vanished member; leaving also purges the whole lobby from the queue.
		if lobbyID, ok := s.userLobbies[userID]; ok {
			if lobby := s.lobbies[lobbyID]; lobby != nil && lobby.Status == LobbyStatusMatchmaking {
				s.leaveLobbyLocked(userID, lobbyID)
			}
		}
		delete(s.connUsers, c.ID)
		delete(s.userConns, userID)
	}

	s.removeFromAllQueuesLocked(c.ID)

	now := time.Now()
	for _, sess := range s.sessions {
		p, ok := sess.Players[c.ID]
		if !ok {
			continue
		}
		delete(sess.conns, c.ID)

		inGrace := !sess.GracePeriodEnd.IsZero() && now.Before(sess.GracePeriodEnd)
		if inGrace || !p.Connected {
			continue // still connecting or allowed to reconnect
		}
		p.Alive = false
		sess.broadcast(MsgPlayerDisconnected, c.ID)
	}
	s.mu.Unlock()

	if userID != "" {
		s.broadcastPresence(userID, false)
	}
	log.Printf("client disconnected: %s", c.ID)
}

// broadcastAll sends an event to every active connection.
func (s *Server) broadcastAll(msgType string, data interface{}) {
	for _, c := range s.conns.Snapshot() {
		_ = c.Send(msgType, data)
	}
}
