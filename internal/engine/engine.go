// Package engine owns the turn resolution state machine: per-game mutual
// exclusion, compare-and-swap turn advancement, and the staleness rules that
// make competing resolve triggers safe.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/MTRieg/mrieg-com/internal/config"
	"github.com/MTRieg/mrieg-com/internal/physics"
)

type Engine struct {
	store  Store
	runner physics.Runner
	cfg    config.Config
	sched  Rescheduler
	notify Notifier
}

func New(store Store, runner physics.Runner, cfg config.Config) *Engine {
	return &Engine{store: store, runner: runner, cfg: cfg}
}

// SetScheduler wires the component that re-arms the next resolve attempt
// after each successful resolve. May be left unset in tests.
func (e *Engine) SetScheduler(s Rescheduler) { e.sched = s }

// SetNotifier wires the component told about observable state changes.
func (e *Engine) SetNotifier(n Notifier) { e.notify = n }

// ResolveTurn attempts to close turn expectedTurn for the game. Exactly one
// of any number of concurrent attempts with the same expectation succeeds;
// the rest observe the counter already moved and return a NoOp result. Any
// failure after the counter has advanced rolls the whole transaction back,
// so the counter, pieces, snapshot, and submission flags revert together.
func (e *Engine) ResolveTurn(ctx context.Context, gameID string, expectedTurn int) (Result, error) {
	result := Result{Outcome: NoOp, TurnNumber: expectedTurn}

	err := e.store.InResolveTx(ctx, gameID, func(tx ResolveTx) error {
		advanced, err := tx.AdvanceTurn(expectedTurn)
		if err != nil {
			return err
		}
		if !advanced {
			return nil
		}

		settings, err := tx.Settings()
		if err != nil {
			return err
		}
		pieces, err := tx.CurrentPieces()
		if err != nil {
			return err
		}
		if len(pieces) == 0 {
			return ErrNotStarted
		}

		live := make([]physics.Piece, 0, len(pieces))
		out := make([]physics.Piece, 0)
		for _, p := range pieces {
			if p.Status == physics.StatusOut {
				out = append(out, p)
			} else {
				live = append(live, p)
			}
		}

		before, after := boardExtents(settings, expectedTurn)
		resolved, err := e.runner.Resolve(ctx, physics.Input{
			Pieces:      live,
			BoardBefore: before,
			BoardAfter:  after,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSimulationFailure, err)
		}
		if len(resolved.Pieces) != len(live) {
			return fmt.Errorf("%w: piece count changed %d -> %d", ErrSimulationFailure, len(live), len(resolved.Pieces))
		}

		if err := tx.SnapshotPieces(); err != nil {
			return err
		}
		// Owners are authoritative on our side; the simulation only moves
		// pieces. Already-out pieces ride along unmodified.
		next := mergeOwners(live, resolved.Pieces)
		next = append(next, out...)
		if err := tx.ReplacePieces(next); err != nil {
			return err
		}
		if err := tx.ResetSubmissions(); err != nil {
			return err
		}

		now := time.Now().UTC()
		nextTurnTime := now.Add(settings.TurnInterval)
		if err := tx.SetTurnTimes(now, nextTurnTime); err != nil {
			return err
		}

		result = Result{Outcome: Resolved, TurnNumber: expectedTurn + 1, NextTurnTime: nextTurnTime}
		return nil
	})
	if err != nil {
		return Result{Outcome: NoOp, TurnNumber: expectedTurn}, err
	}

	if result.Outcome == Resolved {
		log.Printf("turn resolved game_id=%s turn=%d next_turn_time=%s", gameID, result.TurnNumber, result.NextTurnTime.Format(time.RFC3339))
		if e.sched != nil {
			e.sched.Schedule(gameID, result.TurnNumber, result.NextTurnTime)
		}
		if e.notify != nil {
			e.notify.GameUpdated(gameID)
		}
	}
	return result, nil
}

// SubmitTurn records a player's velocities for the turn they believe is
// current. The store validates the turn number inside its own transaction,
// so a submission never races a resolve into the wrong turn. Returns whether
// every member has now submitted.
//
// An empty action list is a valid submission: it marks the player ready
// without changing any velocity.
func (e *Engine) SubmitTurn(ctx context.Context, gameID, playerID string, turn int, actions []Action) (bool, error) {
	if err := e.validateActions(actions); err != nil {
		return false, err
	}
	allSubmitted, err := e.store.RecordSubmission(ctx, gameID, playerID, turn, actions)
	if err != nil {
		return false, err
	}
	log.Printf("turn submitted game_id=%s player_id=%s turn=%d actions=%d all_submitted=%t",
		gameID, playerID, turn, len(actions), allSubmitted)
	if e.notify != nil {
		e.notify.GameUpdated(gameID)
	}
	if allSubmitted && e.sched != nil {
		// Everyone is in: fast-track the resolve. If a scheduled attempt
		// beats us to it, ours lands as a NoOp.
		e.sched.Schedule(gameID, turn, time.Now().UTC())
	}
	return allSubmitted, nil
}

func (e *Engine) validateActions(actions []Action) error {
	if e.cfg.MaxPieces > 0 && len(actions) > e.cfg.MaxPieces {
		return fmt.Errorf("%w: %d actions exceeds limit %d", ErrInvalidMoveInput, len(actions), e.cfg.MaxPieces)
	}
	seen := make(map[int]struct{}, len(actions))
	for _, a := range actions {
		if math.IsNaN(a.VX) || math.IsInf(a.VX, 0) || math.IsNaN(a.VY) || math.IsInf(a.VY, 0) {
			return fmt.Errorf("%w: non-finite velocity for piece %d", ErrInvalidMoveInput, a.PieceID)
		}
		if e.cfg.MaxSpeed > 0 && math.Hypot(a.VX, a.VY) > e.cfg.MaxSpeed {
			return fmt.Errorf("%w: velocity for piece %d exceeds limit", ErrInvalidMoveInput, a.PieceID)
		}
		if _, dup := seen[a.PieceID]; dup {
			return fmt.Errorf("%w: duplicate action for piece %d", ErrInvalidMoveInput, a.PieceID)
		}
		seen[a.PieceID] = struct{}{}
	}
	return nil
}

// View returns the get_state payload for a game.
func (e *Engine) View(ctx context.Context, gameID string) (*GameView, error) {
	return e.store.View(ctx, gameID)
}

// boardExtents derives the playable extent for resolving turn number turn.
// Settings are immutable, so the shrink accumulates from the turn counter:
// resolving turn 0 of an 800/50 game plays on 800 and rules pieces out
// against 750.
func boardExtents(s Settings, turn int) (before, after int) {
	before = s.BoardSize - turn*s.BoardShrink
	floor := s.BoardShrink
	if floor < 1 {
		floor = 1
	}
	if before < floor {
		before = floor
	}
	after = before - s.BoardShrink
	if after < floor {
		after = floor
	}
	return before, after
}

func mergeOwners(in, resolved []physics.Piece) []physics.Piece {
	owners := make(map[int]string, len(in))
	colors := make(map[int]string, len(in))
	for _, p := range in {
		owners[p.ID] = p.Owner
		colors[p.ID] = p.Color
	}
	merged := make([]physics.Piece, len(resolved))
	for i, p := range resolved {
		if owner, ok := owners[p.ID]; ok {
			p.Owner = owner
		}
		if color, ok := colors[p.ID]; ok && color != "" {
			p.Color = color
		}
		merged[i] = p
	}
	return merged
}

// IsRetryable reports whether a resolve failure is safe to retry without
// operator intervention.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrSimulationFailure)
}
