package main

import (
	"os"
	"time"
)

// Game configuration constants
const (
	// Server
	DefaultPort   = "3001"
	WebSocketPath = "/ws"
	HealthPath    = "/health"

	// Arena: circular map centered on the origin. Boundary is death, not wrap.
	ArenaRadius = 1500.0

	// Game loop
	TickRate = 60 // ticks per second

	// Players
	PlayerSpeed     = 4.0 // px per tick along the current unit direction
	BaseTrailLength = 15  // trail cap = BaseTrailLength + score/2

	// Collision
	TrailContactRadius = 15.0 // head vs enemy trail segment
	FoodPickupRadius   = 20.0 // head vs food item
	KillScoreBonus     = 10   // awarded to the trail owner on a kill

	// Food
	FoodSpawnRadius  = 1400.0 // food never spawns closer than 100px to the edge
	MinWorldFood     = 150    // replenished up to this floor every tick
	DeathFoodDrops   = 5      // food items scattered where a player dies
	DeathFoodScatter = 100.0  // scatter box side length around the death point

	// Matchmaking / lobbies
	LobbyCountdownSec = 3
	GracePeriodSec    = 5

	// Sessions with no attached connections, or with a decided outcome, are
	// removed after this many ticks in that state.
	SessionIdleReapTicks = 30 * TickRate

	// Connection rate limiting: one connect per IP per cooldown, small burst
	IPConnectCooldown = 2 * time.Second
	IPConnectBurst    = 3

	// Spatial grid cell size for per-session proximity queries
	GridCellSize = 100.0
)

var (
	// RequiredPlayers is how many queued participants a mode consumes at once.
	RequiredPlayers = map[string]int{"1v1": 2, "2v2": 4, "5v5": 10}

	// PlayersPerTeam is the per-team roster size for each mode.
	PlayersPerTeam = map[string]int{"1v1": 1, "2v2": 2, "5v5": 5}

	// InitialFoodCount is the food allocated when a session of each mode starts.
	InitialFoodCount = map[string]int{"1v1": 100, "2v2": 120, "5v5": 150}
)

// Team identifiers and wire colors
const (
	TeamGreen = "green"
	TeamRed   = "red"

	ColorGreen = "#00e701"
	ColorRed   = "#ff4444"
)

// teamColor maps a team name to its wire color.
func teamColor(team string) string {
	if team == TeamGreen {
		return ColorGreen
	}
	return ColorRed
}

// botDifficulty tunes how far a bot scans for opponents and how large a score
// lead it demands before pressuring one.
type botDifficulty struct {
	DetectionRange      float64
	AggressionThreshold int
}

var botDifficulties = map[string]botDifficulty{
	"easy":   {DetectionRange: 250, AggressionThreshold: 8},
	"medium": {DetectionRange: 400, AggressionThreshold: 3},
	"hard":   {DetectionRange: 600, AggressionThreshold: 0},
}

// Bot AI tuning (fractions of ArenaRadius unless noted)
const (
	BotReturnEnterFrac  = 0.70 // enter RETURN_TO_CENTER beyond this
	BotReturnExitFrac   = 0.55 // leave RETURN_TO_CENTER under this
	BotInnerZoneFrac    = 0.60 // inside this, pressuring outward prey is fine
	BotFoodSafeFrac     = 0.65 // food beyond this is never foraged
	BotEdgeRepelFrac    = 0.60 // edge repulsion ramps up from here
	BotCenterPushFrac   = 0.85 // hard corrective push toward center beyond this
	BotPanicRadius      = 200.0
	BotThreatMargin     = 2 // opponent must outscore the bot by more than this
	BotRepulsionRadius  = 300.0
	BotCenterBiasWeight = 0.3 // evade target's pull back toward the origin
)

// envOr returns the value of an environment variable, or fallback if unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
