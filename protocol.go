package main

import "encoding/json"

// Wire protocol: JSON envelopes over the websocket, one event per message.
//   {"type":"find-match","data":{"gameMode":"1v1","playMode":"online",...}}
// Client → server event names
const (
	MsgUserOnline       = "user-online"
	MsgGameInvite       = "game-invite"
	MsgAcceptInvite     = "accept-invite"
	MsgRejectInvite     = "reject-invite"
	MsgSetFillMode      = "lobby-set-fill-mode"
	MsgSetBotDifficulty = "lobby-set-bot-difficulty"
	MsgLobbyReady       = "lobby-ready"
	MsgLobbyLeave       = "lobby-leave"
	MsgJoinLobbyGame    = "join-lobby-game"
	MsgPingCheck        = "ping-check"
	MsgFindMatch        = "find-match"
	MsgCancelMatch      = "cancel-matchmaking"
	MsgUpdateDirection  = "update-direction"
)

// Server → client event names
const (
	MsgOnlineUsers         = "online-users"
	MsgUserStatusChanged   = "user-status-changed"
	MsgInviteReceived      = "game-invite-received"
	MsgInviteRejected      = "invite-rejected"
	MsgLobbyCreated        = "lobby-created"
	MsgLobbyUpdated        = "lobby-updated"
	MsgLobbyCountdown      = "lobby-countdown"
	MsgLobbyClosed         = "lobby-closed"
	MsgLobbyMatchmaking    = "lobby-matchmaking-started"
	MsgQueueUpdate         = "queue-update"
	MsgMatchCancelled      = "matchmaking-cancelled"
	MsgMatchFound          = "match-found"
	MsgLobbyGameStart      = "lobby-game-start"
	MsgLobbyGameJoined     = "lobby-game-joined"
	MsgConnectionStatus    = "game-connection-status"
	MsgAllConnected        = "game-all-connected"
	MsgGameUpdate          = "game-update"
	MsgPlayerDisconnected  = "player-disconnected"
	MsgPongCheck           = "pong-check"
	MsgError               = "error"
)

// ClientMessage is the inbound envelope; Data is decoded per event type.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ---- inbound payloads ----

type UserOnlineData struct {
	UserID string `json:"userId"`
}

type GameInviteData struct {
	FriendID string `json:"friendId"`
	GameType string `json:"gameType"`
}

type InviteActionData struct {
	InviteID string `json:"inviteId"`
}

type SetFillModeData struct {
	LobbyID  string `json:"lobbyId"`
	FillMode string `json:"fillMode"`
}

type SetBotDifficultyData struct {
	LobbyID       string `json:"lobbyId"`
	BotDifficulty string `json:"botDifficulty"`
}

type LobbyActionData struct {
	LobbyID string `json:"lobbyId"`
}

type JoinLobbyGameData struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

type PingCheckData struct {
	Timestamp int64 `json:"timestamp"`
	Ping      int   `json:"ping"`
}

type FindMatchData struct {
	GameMode      string `json:"gameMode"`
	PlayMode      string `json:"playMode"` // "online" or "offline"
	Username      string `json:"username"`
	BetAmount     int    `json:"betAmount"`
	BotDifficulty string `json:"botDifficulty"`
}

type UpdateDirectionData struct {
	GameID    string `json:"gameId"`
	Direction Vec2   `json:"direction"`
}

// Vec2 is a 2D vector used for directions on the wire.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ---- outbound payloads ----

type UserStatusData struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

type InviteReceivedData struct {
	InviteID string `json:"inviteId"`
	SenderID string `json:"senderId"`
	GameType string `json:"gameType"`
}

type InviteRejectedData struct {
	InviteID string `json:"inviteId"`
}

// LobbySnapshot is the lobby view rebroadcast to every member on any change.
type LobbySnapshot struct {
	LobbyID       string             `json:"lobbyId"`
	GameType      string             `json:"gameType"`
	Players       []LobbyPlayerView  `json:"players"`
	HostID        string             `json:"hostId"`
	Status        string             `json:"status"`
	FillMode      string             `json:"fillMode"`
	BotDifficulty string             `json:"botDifficulty"`
}

type LobbyPlayerView struct {
	UserID string `json:"userId"`
	Ready  bool   `json:"ready"`
}

type LobbyCountdownData struct {
	LobbyID string `json:"lobbyId"`
	Seconds int    `json:"seconds"`
}

type LobbyClosedData struct {
	LobbyID string `json:"lobbyId"`
	Reason  string `json:"reason"`
}

type LobbyMatchmakingData struct {
	LobbyID string `json:"lobbyId"`
}

type QueueUpdateData struct {
	PlayersInQueue int `json:"playersInQueue"`
	PlayersNeeded  int `json:"playersNeeded"`
}

type MatchFoundData struct {
	GameID    string        `json:"gameId"`
	PlayerID  string        `json:"playerId"`
	GameState *GameStateDTO `json:"gameState"`
}

type LobbyGameStartData struct {
	LobbyID  string `json:"lobbyId"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	GameType string `json:"gameType"`
}

type ConnectionStatusData struct {
	ConnectedHumans int `json:"connectedHumans"`
	ExpectedHumans  int `json:"expectedHumans"`
}

type AllConnectedData struct {
	CountdownSeconds int `json:"countdownSeconds"`
}

type PongCheckData struct {
	Timestamp int64 `json:"timestamp"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// GameStateDTO is the public per-tick view of a session. Coordinates are
// rounded to 1 decimal place to keep the wire size down.
type GameStateDTO struct {
	ID                   string      `json:"id"`
	Players              []PlayerDTO `json:"players"`
	Food                 []FoodDTO   `json:"food"`
	StartTime            int64       `json:"startTime"` // unix millis
	GracePeriodRemaining int         `json:"gracePeriodRemaining"`
	ConnectedHumans      int         `json:"connectedHumans"`
	ExpectedHumans       int         `json:"expectedHumans"`
}

type PlayerDTO struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Segments  [][2]float64 `json:"segments"`
	Direction Vec2         `json:"direction"`
	Score     int          `json:"score"`
	Color     string       `json:"color"`
	Alive     bool         `json:"alive"`
	Team      string       `json:"team"`
	IsBot     bool         `json:"isBot"`
	Ping      int          `json:"ping"`
}

type FoodDTO struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type HealthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"` // seconds
}
