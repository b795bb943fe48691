package main

import (
	"log"
	"sort"
	"time"
)

// GameLoop drives every live session at a fixed tick rate. Sessions are
// updated sequentially inside one tick; there are no per-session goroutines.
type GameLoop struct {
	server *Server
	done   chan struct{}
}

// NewGameLoop creates a loop bound to the server's session store.
func NewGameLoop(s *Server) *GameLoop {
	return &GameLoop{server: s, done: make(chan struct{})}
}

// Run starts the fixed-timestep loop. Blocks until Stop is called.
func (gl *GameLoop) Run() {
	ticker := time.NewTicker(time.Second / TickRate)
	defer ticker.Stop()
	log.Printf("game loop started at %d ticks/sec", TickRate)

	for {
		select {
		case <-ticker.C:
			gl.tick()
		case <-gl.done:
			return
		}
	}
}

// Stop terminates the loop.
func (gl *GameLoop) Stop() {
	close(gl.done)
}

// tick advances and broadcasts every session, then reaps sessions that have
// been idle (nobody attached, or outcome decided) long enough.
func (gl *GameLoop) tick() {
	s := gl.server
	s.mu.Lock()
	defer s.mu.Unlock()

	var reap []string
	for id, sess := range s.sessions {
		s.updateSessionLocked(sess)
		sess.broadcast(MsgGameUpdate, sess.Serialize())

		green, red := sess.aliveByTeam()
		decided := green == 0 || red == 0
		if decided || len(sess.conns) == 0 {
			sess.idleTicks++
		} else {
			sess.idleTicks = 0
		}
		if sess.idleTicks >= SessionIdleReapTicks {
			reap = append(reap, id)
		}
	}
	for _, id := range reap {
		delete(s.sessions, id)
		log.Printf("reaped idle session %s", id)
	}
}

// updateSessionLocked runs one simulation step for a session. Caller must
// hold s.mu.
func (s *Server) updateSessionLocked(sess *Session) {
	// Grace gate: the whole session stays frozen until the window has passed
	// and every expected human has attached at least once. The state is still
	// broadcast unchanged by the caller.
	now := time.Now()
	inGrace := !sess.GracePeriodEnd.IsZero() && now.Before(sess.GracePeriodEnd)
	allConnected := sess.ExpectedHumans == 0 || sess.ConnectedHumans >= sess.ExpectedHumans
	if inGrace || !allConnected {
		return
	}

	sess.updateBots()
	moveAndCheckBoundary(sess)
	rebuildGrid(sess)
	resolveTrailCollisions(sess)
	consumeFood(sess)
	replenishFood(sess)
	s.settleRewardLocked(sess)
}

// moveAndCheckBoundary advances every living player along its heading and
// kills anyone whose new head left the arena, scattering food at the death
// point.
func moveAndCheckBoundary(sess *Session) {
	for _, p := range sess.Players {
		if !p.Alive {
			continue
		}
		if outOfBounds := p.Move(); outOfBounds {
			p.Alive = false
			sess.addFood(ScatterFoodAt(p.X, p.Y))
		}
	}
}

// rebuildGrid reindexes food and living players' trails after movement.
func rebuildGrid(sess *Session) {
	sess.grid.Clear()
	for _, f := range sess.Food {
		sess.grid.InsertFood(f)
	}
	for _, p := range sess.Players {
		if p.Alive {
			sess.grid.InsertTrail(p)
		}
	}
}

// resolveTrailCollisions kills any living player whose head touches an
// opposing living player's trail (the opponent's head segment is exempt, so
// only the asymmetric head-vs-body rule applies). The trail owner is awarded
// the kill bonus and food is scattered where the victim died. Same-team
// contact never kills. Players are visited in id order so the outcome does
// not depend on map iteration.
func resolveTrailCollisions(sess *Session) {
	ids := sortedPlayerIDs(sess)
	for _, id := range ids {
		p := sess.Players[id]
		if !p.Alive {
			continue
		}
		for _, entry := range sess.grid.NearbyTrail(p.X, p.Y, TrailContactRadius, p.ID) {
			owner := sess.Players[entry.playerID]
			if owner == nil || !owner.Alive || owner.Team == p.Team {
				continue
			}
			p.Alive = false
			owner.Score += KillScoreBonus
			sess.addFood(ScatterFoodAt(p.X, p.Y))
			break
		}
	}
}

// consumeFood removes food within pickup range of each living player's head,
// scoring one point per item.
func consumeFood(sess *Session) {
	ids := sortedPlayerIDs(sess)
	for _, id := range ids {
		p := sess.Players[id]
		if !p.Alive {
			continue
		}
		for _, foodID := range sess.grid.NearbyFood(p.X, p.Y, FoodPickupRadius) {
			if _, ok := sess.Food[foodID]; !ok {
				continue // eaten earlier this tick
			}
			delete(sess.Food, foodID)
			p.Score++
		}
	}
}

// replenishFood tops the world back up to the global floor, regardless of the
// mode-specific initial allocation.
func replenishFood(sess *Session) {
	for len(sess.Food) < MinWorldFood {
		f := NewFoodItem()
		sess.Food[f.ID] = f
	}
}

// settleRewardLocked pays out double the entry bet to every living human on
// the winning team, once, on the first tick where exactly one team has living
// players. The wallet round-trip runs off the tick goroutine. Caller must
// hold s.mu.
func (s *Server) settleRewardLocked(sess *Session) {
	if sess.rewardPaid {
		return
	}
	green, red := sess.aliveByTeam()
	if (green == 0) == (red == 0) {
		return // undecided, or a simultaneous wipe with nobody left to pay
	}
	sess.rewardPaid = true

	winningTeam := TeamGreen
	if green == 0 {
		winningTeam = TeamRed
	}
	type payout struct {
		userID string
		amount int
	}
	var payouts []payout
	for _, p := range sess.Players {
		if p.Alive && !p.IsBot && p.Team == winningTeam && p.BetAmount > 0 && p.UserID != "" {
			payouts = append(payouts, payout{userID: p.UserID, amount: p.BetAmount * 2})
		}
	}
	if len(payouts) == 0 {
		return
	}
	gameID := sess.ID
	go func() {
		for _, po := range payouts {
			if _, err := s.wallet.Credit(po.userID, po.amount, "match reward "+gameID); err != nil {
				log.Printf("wallet credit failed for %s: %v", po.userID, err)
			}
		}
	}()
}

func sortedPlayerIDs(sess *Session) []string {
	ids := make([]string, 0, len(sess.Players))
	for id := range sess.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
