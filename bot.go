package main

import "math"

// BotState is a bot's behavior mode, re-evaluated every tick.
type BotState string

const (
	BotForage   BotState = "FORAGE"
	BotEvade    BotState = "EVADE"
	BotPressure BotState = "PRESSURE"
	BotReturn   BotState = "RETURN_TO_CENTER"
)

// botTarget is the point a bot is steering relative to this tick.
type botTarget struct {
	X, Y float64
}

// updateBots runs the three-layer decision system (state evaluation, target
// selection, steering) for every living bot in the session and writes the
// resulting heading into the player record.
func (sess *Session) updateBots() {
	settings, ok := botDifficulties[sess.BotDifficulty]
	if !ok {
		settings = botDifficulties["medium"]
	}

	living := make([]*Player, 0, len(sess.Players))
	for _, p := range sess.Players {
		if p.Alive {
			living = append(living, p)
		}
	}

	for _, bot := range living {
		if !bot.IsBot {
			continue
		}
		dist := bot.DistFromCenter()

		state := sess.evaluateBotState(bot, living, dist, settings)
		sess.botStates[bot.ID] = state

		target := selectBotTarget(bot, state, living, sess.Food, dist, settings)
		dx, dy := computeBotSteering(bot, target, state, living, dist)
		bot.DirX, bot.DirY = dx, dy
	}
}

// evaluateBotState picks the behavior mode. Center return uses hysteresis
// (enter at 70% of the radius, stay until back under 55%) so a bot does not
// flap at the threshold. Outside a return, a much stronger opponent inside
// the panic radius forces EVADE; an outscored opponent that does not drag
// the bot outward qualifies for PRESSURE; otherwise FORAGE.
func (sess *Session) evaluateBotState(bot *Player, living []*Player, distFromCenter float64, settings botDifficulty) BotState {
	current := sess.botStates[bot.ID]
	if current == "" {
		current = BotForage
	}

	if current == BotReturn {
		if distFromCenter >= ArenaRadius*BotReturnExitFrac {
			return BotReturn
		}
	} else if distFromCenter > ArenaRadius*BotReturnEnterFrac {
		return BotReturn
	}

	var nearestThreat, nearestPrey *Player
	minThreatDist := math.MaxFloat64
	minPreyDist := math.MaxFloat64

	for _, enemy := range living {
		if enemy.Team == bot.Team {
			continue
		}
		dist := bot.DistTo(enemy)
		if dist > settings.DetectionRange {
			continue
		}
		if enemy.Score > bot.Score+BotThreatMargin {
			if dist < minThreatDist {
				minThreatDist = dist
				nearestThreat = enemy
			}
		} else if bot.Score > enemy.Score+settings.AggressionThreshold {
			if dist < minPreyDist {
				minPreyDist = dist
				nearestPrey = enemy
			}
		}
	}

	if nearestThreat != nil && minThreatDist < BotPanicRadius {
		return BotEvade
	}
	if nearestPrey != nil {
		preyDistFromCenter := nearestPrey.DistFromCenter()
		if preyDistFromCenter < distFromCenter || distFromCenter < ArenaRadius*BotInnerZoneFrac {
			return BotPressure
		}
	}
	return BotForage
}

// selectBotTarget resolves the state into a concrete point to steer against.
func selectBotTarget(bot *Player, state BotState, living []*Player, food map[string]*FoodItem, distFromCenter float64, settings botDifficulty) botTarget {
	switch state {
	case BotReturn:
		return botTarget{}

	case BotEvade:
		// Flee the nearest superior opponent, blended with a mild pull back
		// toward the origin so the escape never runs into the boundary.
		var nearestThreat *Player
		minDist := math.MaxFloat64
		for _, enemy := range living {
			if enemy.Team == bot.Team || enemy.Score <= bot.Score {
				continue
			}
			if dist := bot.DistTo(enemy); dist < minDist {
				minDist = dist
				nearestThreat = enemy
			}
		}
		if nearestThreat == nil {
			return botTarget{}
		}
		return botTarget{
			X: bot.X + (bot.X - nearestThreat.X) - bot.X*BotCenterBiasWeight,
			Y: bot.Y + (bot.Y - nearestThreat.Y) - bot.Y*BotCenterBiasWeight,
		}

	case BotPressure:
		var bestPrey *Player
		minDist := math.MaxFloat64
		for _, enemy := range living {
			if enemy.Team == bot.Team {
				continue
			}
			if bot.Score <= enemy.Score+settings.AggressionThreshold {
				continue
			}
			// Never chase prey that would pull the bot further out when it
			// is already beyond the inner zone.
			if distFromCenter > ArenaRadius*BotInnerZoneFrac && enemy.DistFromCenter() > distFromCenter {
				continue
			}
			dist := bot.DistTo(enemy)
			if dist < minDist && dist < settings.DetectionRange {
				minDist = dist
				bestPrey = enemy
			}
		}
		if bestPrey != nil {
			return botTarget{X: bestPrey.X, Y: bestPrey.Y}
		}
		return forageTarget(bot, food, distFromCenter)

	default:
		return forageTarget(bot, food, distFromCenter)
	}
}

// forageTarget picks the food item minimizing distance plus a centerness
// penalty: food that is both far from center and sought by an already-outward
// bot scores worse, so foraging never drags a bot toward the edge. Food
// outside the safe inner radius is ignored entirely.
func forageTarget(bot *Player, food map[string]*FoodItem, distFromCenter float64) botTarget {
	var best *FoodItem
	bestScore := math.MaxFloat64
	for _, f := range food {
		foodDistFromCenter := math.Sqrt(f.X*f.X + f.Y*f.Y)
		if foodDistFromCenter > ArenaRadius*BotFoodSafeFrac {
			continue
		}
		distToFood := f.DistanceTo(bot.X, bot.Y)
		outerPenalty := (distFromCenter / ArenaRadius) * foodDistFromCenter * 0.8
		if score := distToFood + outerPenalty; score < bestScore {
			bestScore = score
			best = f
		}
	}
	if best == nil {
		return botTarget{}
	}
	return botTarget{X: best.X, Y: best.Y}
}

// computeBotSteering sums weighted forces (target attraction, inverse-square
// repulsion from stronger opponents which is suppressed while pressuring, an
// exponential push off the arena edge, and a hard corrective push toward
// center near the boundary) and normalizes the result into a unit heading.
// A degenerate force keeps the previous heading.
func computeBotSteering(bot *Player, target botTarget, state BotState, living []*Player, distFromCenter float64) (float64, float64) {
	var forceX, forceY float64

	toTargetX := target.X - bot.X
	toTargetY := target.Y - bot.Y
	targetDist := math.Sqrt(toTargetX*toTargetX + toTargetY*toTargetY)
	if targetDist > 0 {
		var attraction float64
		switch state {
		case BotReturn:
			attraction = 2.0
		case BotEvade:
			attraction = 1.5
		case BotPressure:
			attraction = 1.2
		default:
			attraction = 1.0
		}
		forceX += toTargetX / targetDist * attraction
		forceY += toTargetY / targetDist * attraction
	}

	if state != BotPressure {
		for _, enemy := range living {
			if enemy.Team == bot.Team || enemy.Score <= bot.Score {
				continue
			}
			dx := bot.X - enemy.X
			dy := bot.Y - enemy.Y
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist < BotRepulsionRadius && dist > 0 {
				repulsion := 150 / (dist * dist) * 50
				forceX += dx / dist * repulsion
				forceY += dy / dist * repulsion
			}
		}
	}

	if edgeStart := ArenaRadius * BotEdgeRepelFrac; distFromCenter > edgeStart {
		normalized := (distFromCenter - edgeStart) / (ArenaRadius - edgeStart)
		edgeStrength := (math.Exp(3*normalized) - 1) * 2.5
		forceX += -bot.X / distFromCenter * edgeStrength
		forceY += -bot.Y / distFromCenter * edgeStrength
	}

	if pushStart := ArenaRadius * BotCenterPushFrac; distFromCenter > pushStart {
		pushStrength := (distFromCenter - pushStart) / (ArenaRadius - pushStart) * 5
		forceX += -bot.X / distFromCenter * pushStrength
		forceY += -bot.Y / distFromCenter * pushStrength
	}

	mag := math.Sqrt(forceX*forceX + forceY*forceY)
	if mag == 0 {
		return bot.DirX, bot.DirY
	}
	return forceX / mag, forceY / mag
}
