package engine

import (
	"context"
	"time"

	"github.com/MTRieg/mrieg-com/internal/physics"
)

// Settings is a game's immutable tuning, fixed at creation.
type Settings struct {
	MaxPlayers   int
	BoardSize    int
	BoardShrink  int
	TurnInterval time.Duration
}

// State is the authoritative mutable turn cursor for one game.
type State struct {
	TurnNumber   int
	LastTurnTime time.Time
	NextTurnTime time.Time
}

type Member struct {
	PlayerID  string
	Name      string
	Color     string
	Submitted bool
}

// Action is one submitted velocity for a piece the player owns.
type Action struct {
	PieceID int     `json:"pieceid"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
}

// GameView is the full read-side picture of a game: settings, state,
// members, live pieces, and the pre-resolve snapshot for animation.
type GameView struct {
	GameID    string
	Creator   string
	StartTime time.Time
	Settings  Settings
	State     State
	Members   []Member
	Pieces    []physics.Piece
	PiecesOld []physics.Piece
}

// DueGame is a game whose next_turn_time has passed, tagged with the turn
// the sweep expects to close. Seeded reports whether the board has pieces;
// an unseeded due game is waiting to be started, not resolved.
type DueGame struct {
	GameID       string
	TurnNumber   int
	NextTurnTime time.Time
	Seeded       bool
}

// ResolveTx is the transactional scope of one resolve. All methods operate
// on the same underlying transaction; if the callback given to InResolveTx
// returns an error, every write made through the ResolveTx is rolled back.
type ResolveTx interface {
	Settings() (Settings, error)
	// CurrentPieces returns every piece row, including pieces already out.
	CurrentPieces() ([]physics.Piece, error)
	// AdvanceTurn sets turn_number = expected+1 iff it currently equals
	// expected, and reports whether the write happened. This is the sole
	// mutation point for the counter.
	AdvanceTurn(expected int) (bool, error)
	// SnapshotPieces copies the current piece set into the pre-resolve
	// snapshot, replacing the previous snapshot.
	SnapshotPieces() error
	ReplacePieces(pieces []physics.Piece) error
	ResetSubmissions() error
	SetTurnTimes(last, next time.Time) error
}

// Store is the persistence contract the engine drives. Implementations must
// make InResolveTx mutually exclusive per game across processes and must
// bound lock waits, failing with ErrLockTimeout.
type Store interface {
	InResolveTx(ctx context.Context, gameID string, fn func(ResolveTx) error) error

	// RecordSubmission validates the game, membership, and turn number in
	// one short transaction, merges the velocities into the player's in-play
	// pieces, and marks the membership submitted. It reports whether every
	// member has now submitted for the current turn.
	RecordSubmission(ctx context.Context, gameID, playerID string, turn int, actions []Action) (bool, error)

	View(ctx context.Context, gameID string) (*GameView, error)
	DueGames(ctx context.Context, now time.Time, limit int) ([]DueGame, error)

	CreateGame(ctx context.Context, gameID, creator string, settings Settings, startTime time.Time) error
	DeleteGame(ctx context.Context, gameID string) error
	AddPlayer(ctx context.Context, gameID, playerID, name, color, token string) error
	RemovePlayer(ctx context.Context, gameID, playerID string) error
	MemberToken(ctx context.Context, gameID, playerID string) (string, error)
	// SeedGame installs the initial piece set and player colors and arms the
	// first turn deadline. Fails with ErrStarted if pieces already exist.
	SeedGame(ctx context.Context, gameID string, pieces []physics.Piece, colors map[string]string, next time.Time) error

	DeleteStaleGames(ctx context.Context, olderThan time.Time) (int64, error)
	DeleteStalePlayers(ctx context.Context, olderThan time.Time) (int64, error)
}

// Outcome of a resolve attempt.
type Outcome string

const (
	// Resolved means this call closed the turn.
	Resolved Outcome = "resolved"
	// NoOp means the expectation was already stale: someone else resolved
	// first, or the caller's view was outdated. Not an error.
	NoOp Outcome = "noop"
)

// Result reports what a resolve attempt did. TurnNumber is the counter value
// after the attempt; NextTurnTime is set only when Outcome is Resolved.
type Result struct {
	Outcome      Outcome
	TurnNumber   int
	NextTurnTime time.Time
}

// Rescheduler re-arms the next scheduled resolve attempt after a successful
// one and drops it when the game goes away. Implemented by the scheduler;
// optional.
type Rescheduler interface {
	Schedule(gameID string, expectedTurn int, at time.Time)
	Cancel(gameID string)
}

// Notifier is told when a game's observable state changed. Implemented by
// the HTTP server, which pushes state over websockets; optional.
type Notifier interface {
	GameUpdated(gameID string)
}
