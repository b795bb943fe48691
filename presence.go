package main

// handleUserOnline records the connection ↔ user mapping, evicting any prior
// connection that was mapped to the same user (reconnection), and announces
// the updated online set to everyone.
func (s *Server) handleUserOnline(c *Conn, d UserOnlineData) {
	if d.UserID == "" {
		return
	}

	s.mu.Lock()
	if oldConnID, ok := s.userConns[d.UserID]; ok && oldConnID != c.ID {
		delete(s.connUsers, oldConnID)
	}
	s.connUsers[c.ID] = d.UserID
	s.userConns[d.UserID] = c.ID

	// If the user sits in a lobby, point their membership at the new
	// connection so lobby broadcasts keep reaching them after a reconnect.
	if lobbyID, ok := s.userLobbies[d.UserID]; ok {
		if lobby := s.lobbies[lobbyID]; lobby != nil {
			for _, lp := range lobby.Players {
				if lp.UserID == d.UserID {
					lp.ConnID = c.ID
				}
			}
		}
	}
	s.mu.Unlock()

	s.broadcastPresence(d.UserID, true)
}

// broadcastPresence pushes the full online-user set plus a targeted status
// change event to every connection.
func (s *Server) broadcastPresence(userID string, online bool) {
	s.mu.Lock()
	onlineUserIDs := make([]string, 0, len(s.userConns))
	for uid := range s.userConns {
		onlineUserIDs = append(onlineUserIDs, uid)
	}
	s.mu.Unlock()

	s.broadcastAll(MsgOnlineUsers, onlineUserIDs)
	s.broadcastAll(MsgUserStatusChanged, UserStatusData{UserID: userID, Online: online})
}

// userIDFor returns the user identity announced on a connection, if any.
// Caller must hold s.mu.
func (s *Server) userIDForLocked(connID string) string {
	return s.connUsers[connID]
}

// connForUserLocked resolves a user to their live connection, if online.
// Caller must hold s.mu.
func (s *Server) connForUserLocked(userID string) (*Conn, bool) {
	connID, ok := s.userConns[userID]
	if !ok {
		return nil, false
	}
	return s.conns.Get(connID)
}
