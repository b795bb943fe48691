package main

import (
	"errors"
	"log"
)

// QueueEntry is one waiting participant in a mode's FIFO queue. Entries that
// arrived as a lobby carry the lobby id so the party lands on one team.
type QueueEntry struct {
	Conn      *Conn
	UserID    string
	Name      string
	BetAmount int
	LobbyID   string
}

// handleFindMatch routes a match request: online play enters the mode's
// queue, offline play starts an instant session against bots. A positive bet
// is debited from the caller's wallet first; if the debit fails nothing
// happens.
func (s *Server) handleFindMatch(c *Conn, d FindMatchData) {
	gameMode := d.GameMode
	if _, ok := RequiredPlayers[gameMode]; !ok {
		gameMode = "5v5"
	}

	s.mu.Lock()
	userID := s.userIDForLocked(c.ID)
	s.mu.Unlock()

	// Wallet round-trip happens outside the lock so a slow collaborator
	// cannot stall the tick loop or other events.
	if d.BetAmount > 0 && userID != "" {
		if _, err := s.wallet.Debit(userID, d.BetAmount, "entry fee "+gameMode); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				sendError(c, "Insufficient coins for entry fee")
			} else {
				log.Printf("wallet debit failed for %s: %v", userID, err)
				sendError(c, "Could not process entry fee")
			}
			return
		}
	}

	name := d.Username
	if name == "" {
		name = "Player"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The caller may have dropped during the wallet round-trip; a dead
	// connection must never gain a queue slot or a session seat.
	if _, ok := s.conns.Get(c.ID); !ok {
		return
	}
	if d.PlayMode == "online" {
		s.enqueueLocked(&QueueEntry{
			Conn:      c,
			UserID:    userID,
			Name:      name,
			BetAmount: d.BetAmount,
		}, gameMode)
	} else {
		s.createOfflineGameLocked(c, userID, name, d.BetAmount, gameMode, d.BotDifficulty)
	}
}

// handleCancelMatchmaking removes the caller from any queue and acknowledges.
func (s *Server) handleCancelMatchmaking(c *Conn) {
	s.mu.Lock()
	s.removeFromAllQueuesLocked(c.ID)
	s.mu.Unlock()
	_ = c.Send(MsgMatchCancelled, nil)
}

// enqueueLocked appends an entry to a mode's queue (no-op if the connection
// already holds a slot in any mode), renotifies depth, and releases a match
// the moment the queue meets the mode's requirement. Caller must hold s.mu.
func (s *Server) enqueueLocked(entry *QueueEntry, gameMode string) {
	for _, queue := range s.queues {
		for _, e := range queue {
			if e.Conn.ID == entry.Conn.ID {
				return
			}
		}
	}
	queue := append(s.queues[gameMode], entry)
	s.queues[gameMode] = queue

	needed := RequiredPlayers[gameMode]
	s.notifyQueueLocked(gameMode)

	if len(queue) >= needed {
		matched := make([]*QueueEntry, needed)
		copy(matched, queue[:needed])
		s.queues[gameMode] = append([]*QueueEntry(nil), queue[needed:]...)
		s.startOnlineGameLocked(gameMode, matched)
	}
}

// removeFromAllQueuesLocked drops a connection from every mode's queue and
// renotifies the remaining entries. Caller must hold s.mu.
func (s *Server) removeFromAllQueuesLocked(connID string) {
	for mode, queue := range s.queues {
		idx := -1
		for i, e := range queue {
			if e.Conn.ID == connID {
				idx = i
				break
			}
		}
		if idx == -1 {
			continue
		}
		s.queues[mode] = append(queue[:idx], queue[idx+1:]...)
		s.notifyQueueLocked(mode)
	}
}

// purgeLobbyFromQueueLocked removes every entry tagged with the lobby's id
// from its mode queue, renotifying the rest. Caller must hold s.mu.
func (s *Server) purgeLobbyFromQueueLocked(lobby *Lobby) {
	queue := s.queues[lobby.GameType]
	if queue == nil {
		return
	}
	kept := queue[:0]
	removed := false
	for _, e := range queue {
		if e.LobbyID == lobby.ID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	s.queues[lobby.GameType] = kept
	if removed {
		s.notifyQueueLocked(lobby.GameType)
	}
}

// enterLobbyMatchmakingLocked hands a whole lobby to its mode's queue as a
// unit, tagged so the party stays on one team. Caller must hold s.mu.
func (s *Server) enterLobbyMatchmakingLocked(lobby *Lobby) {
	lobby.Status = LobbyStatusMatchmaking
	s.broadcastLobbyLocked(lobby, MsgLobbyMatchmaking, LobbyMatchmakingData{LobbyID: lobby.ID})

	gameMode := lobby.GameType
	for _, member := range lobby.Players {
		conn, ok := s.conns.Get(member.ConnID)
		if !ok {
			continue
		}
		// A member may still hold a solo slot somewhere; the lobby entry
		// supersedes it.
		s.removeFromAllQueuesLocked(conn.ID)
		s.queues[gameMode] = append(s.queues[gameMode], &QueueEntry{
			Conn:    conn,
			UserID:  member.UserID,
			Name:    member.UserID,
			LobbyID: lobby.ID,
		})
	}
	queue := s.queues[gameMode]

	needed := RequiredPlayers[gameMode]
	s.notifyQueueLocked(gameMode)

	if len(queue) >= needed {
		matched := make([]*QueueEntry, needed)
		copy(matched, queue[:needed])
		s.queues[gameMode] = append([]*QueueEntry(nil), queue[needed:]...)
		s.startOnlineGameLocked(gameMode, matched)
	}
}

// notifyQueueLocked broadcasts the queue depth to everyone waiting in a mode.
// Caller must hold s.mu.
func (s *Server) notifyQueueLocked(gameMode string) {
	queue := s.queues[gameMode]
	update := QueueUpdateData{
		PlayersInQueue: len(queue),
		PlayersNeeded:  RequiredPlayers[gameMode],
	}
	for _, e := range queue {
		_ = e.Conn.Send(MsgQueueUpdate, update)
	}
}
