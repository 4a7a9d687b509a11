package db

import (
	"time"

	"gorm.io/datatypes"
)

// Game is the root row for a single match. Settings, state, memberships and
// pieces hang off it via game_id with ON DELETE CASCADE.
type Game struct {
	GameID    string    `gorm:"primaryKey;column:game_id"`
	Creator   string    `gorm:"column:creator"`
	StartTime time.Time `gorm:"column:start_time"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Game) TableName() string { return "games" }

// GameSettings is immutable after creation; board geometry for a given turn
// is derived from these values and the turn counter.
type GameSettings struct {
	GameID       string `gorm:"primaryKey;column:game_id"`
	MaxPlayers   int    `gorm:"column:max_players"`
	BoardSize    int    `gorm:"column:board_size"`
	BoardShrink  int    `gorm:"column:board_shrink"`
	TurnInterval int    `gorm:"column:turn_interval"`
}

func (GameSettings) TableName() string { return "game_settings" }

// GameState carries the turn counter that the resolve CAS targets. One row
// per game; resolvers lock it FOR UPDATE.
type GameState struct {
	GameID       string     `gorm:"primaryKey;column:game_id"`
	TurnNumber   int        `gorm:"column:turn_number"`
	LastTurnTime *time.Time `gorm:"column:last_turn_time"`
	NextTurnTime *time.Time `gorm:"column:next_turn_time"`
}

func (GameState) TableName() string { return "game_state" }

type Player struct {
	PlayerID  string    `gorm:"primaryKey;column:player_id"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
	LastSeen  time.Time `gorm:"column:last_seen"`
}

func (Player) TableName() string { return "players" }

// GameMembership joins players to games. SubmittedTurn records the turn the
// player last submitted for; nil means no pending submission. Token is the
// auth secret issued on join; it is scoped to the membership, so the same
// player holds a distinct token in every game they sit in.
type GameMembership struct {
	GameID        string    `gorm:"primaryKey;column:game_id"`
	PlayerID      string    `gorm:"primaryKey;column:player_id"`
	Color         string    `gorm:"column:color"`
	Token         string    `gorm:"column:token"`
	SubmittedTurn *int      `gorm:"column:submitted_turn"`
	JoinedAt      time.Time `gorm:"column:joined_at"`
}

func (GameMembership) TableName() string { return "game_players" }

// Piece is the live board state. Position and velocity are nullable because
// knocked-out pieces keep their row but lose their coordinates.
type Piece struct {
	GameID  string   `gorm:"primaryKey;column:game_id"`
	PieceID int      `gorm:"primaryKey;column:piece_id"`
	Owner   string   `gorm:"column:owner"`
	Status  string   `gorm:"column:status"`
	X       *float64 `gorm:"column:x"`
	Y       *float64 `gorm:"column:y"`
	VX      *float64 `gorm:"column:vx"`
	VY      *float64 `gorm:"column:vy"`
	Radius  float64  `gorm:"column:radius"`
	Mass    float64  `gorm:"column:mass"`
	Color   string   `gorm:"column:color"`
}

func (Piece) TableName() string { return "pieces" }

// PieceSnapshot mirrors Piece and holds the board as it stood before the
// most recent resolve, for replay on the client.
type PieceSnapshot struct {
	GameID  string   `gorm:"primaryKey;column:game_id"`
	PieceID int      `gorm:"primaryKey;column:piece_id"`
	Owner   string   `gorm:"column:owner"`
	Status  string   `gorm:"column:status"`
	X       *float64 `gorm:"column:x"`
	Y       *float64 `gorm:"column:y"`
	VX      *float64 `gorm:"column:vx"`
	VY      *float64 `gorm:"column:vy"`
	Radius  float64  `gorm:"column:radius"`
	Mass    float64  `gorm:"column:mass"`
	Color   string   `gorm:"column:color"`
}

func (PieceSnapshot) TableName() string { return "pieces_old" }

// Event is an append-only journal of game activity, with a free-form JSON
// payload per event kind.
type Event struct {
	ID        uint           `gorm:"primaryKey;column:id"`
	GameID    string         `gorm:"column:game_id;index"`
	Kind      string         `gorm:"column:kind"`
	Payload   datatypes.JSON `gorm:"column:payload"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (Event) TableName() string { return "events" }
