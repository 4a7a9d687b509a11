package engine

import "errors"

// Error taxonomy shared by the engine and its stores. Stores return these
// sentinels (possibly wrapped); callers classify with errors.Is.
var (
	// ErrStaleTurn means a submission or resolve named a turn number that no
	// longer matches the authoritative counter. Scheduled resolves treat it
	// as a no-op; user-originated calls surface it as a conflict.
	ErrStaleTurn = errors.New("turn number does not match current turn")

	ErrUnknownGame   = errors.New("game not found")
	ErrUnknownPlayer = errors.New("player not in game")
	ErrGameExists    = errors.New("game already exists")
	ErrGameFull      = errors.New("game is full")
	ErrAlreadyJoined = errors.New("player already in game")
	ErrNotCreator    = errors.New("only the game creator can do this")
	ErrStarted       = errors.New("game already started")
	ErrNotStarted    = errors.New("game has not started")
	ErrNoPlayers     = errors.New("game has no players")

	// ErrLockTimeout means contention on the game's transactional lock
	// exceeded the configured bound. Retryable.
	ErrLockTimeout = errors.New("timed out waiting for game lock")

	// ErrSimulationFailure means the physics adapter crashed, timed out, or
	// returned malformed output. The resolve transaction is rolled back in
	// full, so a retry sees the original turn number.
	ErrSimulationFailure = errors.New("physics simulation failed")

	// ErrInvalidMoveInput means a submission carried non-finite or
	// out-of-range values and was rejected before any state change.
	ErrInvalidMoveInput = errors.New("invalid move input")
)
