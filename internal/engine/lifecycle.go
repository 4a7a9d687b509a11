package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/MTRieg/mrieg-com/internal/physics"

	"github.com/google/uuid"
)

const (
	pieceEdgeBuffer    = 50
	placementAttempts  = 1000
	placementClearance = 5
)

// SystemActor is the reserved actor name for scheduler-originated lifecycle
// calls, which bypass creator checks.
const SystemActor = "system"

// CreateGame registers a new game with turn 0 and a deadline at startTime;
// the sweep seeds it when that deadline passes.
func (e *Engine) CreateGame(ctx context.Context, gameID, creator string, settings Settings) (time.Time, error) {
	if settings.MaxPlayers <= 0 {
		settings.MaxPlayers = e.cfg.MaxPlayers
	}
	if settings.BoardSize <= 0 {
		settings.BoardSize = e.cfg.BoardSize
	}
	if settings.BoardShrink < 0 {
		settings.BoardShrink = e.cfg.BoardShrink
	}
	if settings.TurnInterval <= 0 {
		settings.TurnInterval = time.Duration(e.cfg.TurnIntervalSeconds) * time.Second
	}
	startTime := time.Now().UTC().Add(time.Duration(e.cfg.StartDelaySeconds) * time.Second)
	if err := e.store.CreateGame(ctx, gameID, creator, settings, startTime); err != nil {
		return time.Time{}, err
	}
	log.Printf("game created game_id=%s creator=%s start_time=%s", gameID, creator, startTime.Format(time.RFC3339))
	return startTime, nil
}

// JoinGame adds a player to a game and returns the auth token for the new
// membership.
func (e *Engine) JoinGame(ctx context.Context, gameID, playerID, name string) (string, error) {
	if name == "" {
		name = playerID
	}
	token := uuid.NewString()
	if err := e.store.AddPlayer(ctx, gameID, playerID, name, "", token); err != nil {
		return "", err
	}
	log.Printf("player joined game_id=%s player_id=%s", gameID, playerID)
	if e.notify != nil {
		e.notify.GameUpdated(gameID)
	}
	return token, nil
}

func (e *Engine) LeaveGame(ctx context.Context, gameID, playerID string) error {
	if err := e.store.RemovePlayer(ctx, gameID, playerID); err != nil {
		return err
	}
	log.Printf("player left game_id=%s player_id=%s", gameID, playerID)
	if e.notify != nil {
		e.notify.GameUpdated(gameID)
	}
	return nil
}

// DeleteGame removes a game and everything that hangs off it. Only the
// creator (or the system actor) may delete.
func (e *Engine) DeleteGame(ctx context.Context, gameID, actor string) error {
	if actor != SystemActor {
		view, err := e.store.View(ctx, gameID)
		if err != nil {
			return err
		}
		if view.Creator != actor {
			return ErrNotCreator
		}
	}
	if err := e.store.DeleteGame(ctx, gameID); err != nil {
		return err
	}
	if e.sched != nil {
		e.sched.Cancel(gameID)
	}
	log.Printf("game deleted game_id=%s actor=%s", gameID, actor)
	return nil
}

// StartGame seeds the initial board: distinct player colors, randomly placed
// non-overlapping pieces, and the first turn deadline. The turn counter
// stays at 0; the first resolve closes turn 0.
func (e *Engine) StartGame(ctx context.Context, gameID, actor string) error {
	view, err := e.store.View(ctx, gameID)
	if err != nil {
		return err
	}
	if actor != SystemActor && view.Creator != actor {
		return ErrNotCreator
	}
	if len(view.Pieces) > 0 {
		return ErrStarted
	}
	if len(view.Members) == 0 {
		return ErrNoPlayers
	}

	playerIDs := make([]string, 0, len(view.Members))
	for _, m := range view.Members {
		playerIDs = append(playerIDs, m.PlayerID)
	}
	colors := assignColors(playerIDs)
	pieces := placePieces(playerIDs, colors, view.Settings.BoardSize, e.cfg.PiecesPerPlayer)

	next := time.Now().UTC().Add(view.Settings.TurnInterval)
	if err := e.store.SeedGame(ctx, gameID, pieces, colors, next); err != nil {
		return err
	}
	log.Printf("game started game_id=%s players=%d pieces=%d next_turn_time=%s",
		gameID, len(playerIDs), len(pieces), next.Format(time.RFC3339))
	if e.sched != nil {
		e.sched.Schedule(gameID, 0, next)
	}
	if e.notify != nil {
		e.notify.GameUpdated(gameID)
	}
	return nil
}

var colorPalette = []string{
	"#FF0000", "#00FF00", "#0000FF", "#FF00FF", "#00FFFF",
	"#FFA500", "#800080", "#008000", "#FFC0CB", "#A52A2A",
	"#808000", "#000080", "#800000", "#008080", "#FFD700",
	"#DC143C", "#4682B4", "#DA70D6", "#40E0D0", "#FA8072",
	"#1E90FF", "#BA55D3", "#FF8C00", "#2E8B57", "#F08080",
	"#00CED1", "#FF1493", "#FF4500", "#9ACD32", "#708090",
}

func assignColors(playerIDs []string) map[string]string {
	colors := make(map[string]string, len(playerIDs))
	for i, id := range playerIDs {
		colors[id] = colorPalette[i%len(colorPalette)]
	}
	return colors
}

// placePieces scatters piecesPerPlayer pieces per player inside the edge
// buffer, rejecting overlapping positions for a bounded number of attempts.
func placePieces(playerIDs []string, colors map[string]string, boardSize, piecesPerPlayer int) []physics.Piece {
	pieces := make([]physics.Piece, 0, len(playerIDs)*piecesPerPlayer)
	half := float64(boardSize-pieceEdgeBuffer) / 2

	fits := func(x, y float64) bool {
		if math.Abs(x) > half || math.Abs(y) > half {
			return false
		}
		for _, p := range pieces {
			if math.Hypot(*p.X-x, *p.Y-y) < 2*physics.DefaultRadius+placementClearance {
				return false
			}
		}
		return true
	}

	for i, player := range playerIDs {
		for j := 0; j < piecesPerPlayer; j++ {
			for attempt := 0; attempt < placementAttempts; attempt++ {
				x := (rand.Float64() - 0.5) * float64(boardSize-pieceEdgeBuffer)
				y := (rand.Float64() - 0.5) * float64(boardSize-pieceEdgeBuffer)
				if !fits(x, y) {
					continue
				}
				pieces = append(pieces, physics.Piece{
					ID:     i*piecesPerPlayer + j,
					Owner:  player,
					Status: physics.StatusIn,
					X:      physics.Float(x),
					Y:      physics.Float(y),
					VX:     physics.Float(0),
					VY:     physics.Float(0),
					Radius: physics.DefaultRadius,
					Mass:   physics.DefaultMass,
					Color:  colors[player],
				})
				break
			}
		}
	}
	return pieces
}

// ForceResolve is the manual "run now" path. The caller names the turn it
// believes is active; a stale expectation surfaces as ErrStaleTurn so the
// client knows to refetch, unlike scheduler attempts which absorb the NoOp.
func (e *Engine) ForceResolve(ctx context.Context, gameID string, expectedTurn int) (Result, error) {
	result, err := e.ResolveTurn(ctx, gameID, expectedTurn)
	if err != nil {
		return result, err
	}
	if result.Outcome == NoOp {
		return result, fmt.Errorf("%w: turn %d already closed", ErrStaleTurn, expectedTurn)
	}
	return result, nil
}
