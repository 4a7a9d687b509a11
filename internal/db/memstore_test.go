package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"
)

func seededMemStore(t *testing.T, players ...string) (*MemStore, string) {
	t.Helper()
	store := NewMemStore(time.Second)
	ctx := context.Background()
	gameID := "g1"
	settings := engine.Settings{MaxPlayers: 4, BoardSize: 800, BoardShrink: 50, TurnInterval: time.Hour}
	if err := store.CreateGame(ctx, gameID, players[0], settings, time.Now().UTC()); err != nil {
		t.Fatalf("create: %v", err)
	}
	pieces := make([]physics.Piece, 0, len(players))
	colors := make(map[string]string, len(players))
	for i, p := range players {
		if err := store.AddPlayer(ctx, gameID, p, p, "", "token-"+p); err != nil {
			t.Fatalf("add %s: %v", p, err)
		}
		pieces = append(pieces, physics.Piece{
			ID: i, Owner: p, Status: physics.StatusIn,
			X: physics.Float(float64(i * 100)), Y: physics.Float(0),
			VX: physics.Float(0), VY: physics.Float(0),
			Radius: physics.DefaultRadius, Mass: physics.DefaultMass,
		})
		colors[p] = "#FF0000"
	}
	if err := store.SeedGame(ctx, gameID, pieces, colors, time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store, gameID
}

func TestMemStoreResolveTxRollsBackOnError(t *testing.T) {
	store, gameID := seededMemStore(t, "ada")
	ctx := context.Background()

	failure := errors.New("boom")
	err := store.InResolveTx(ctx, gameID, func(tx engine.ResolveTx) error {
		if ok, err := tx.AdvanceTurn(0); err != nil || !ok {
			t.Fatalf("advance: ok=%v err=%v", ok, err)
		}
		if err := tx.SnapshotPieces(); err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if err := tx.ReplacePieces(nil); err != nil {
			t.Fatalf("replace: %v", err)
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected the callback error back, got %v", err)
	}

	view, err := store.View(ctx, gameID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.State.TurnNumber != 0 {
		t.Fatalf("rolled-back tx advanced the turn to %d", view.State.TurnNumber)
	}
	if len(view.Pieces) != 1 {
		t.Fatalf("rolled-back tx changed pieces: %d", len(view.Pieces))
	}
	if len(view.PiecesOld) != 0 {
		t.Fatalf("rolled-back tx left a snapshot")
	}
}

func TestMemStoreResolveTxCommits(t *testing.T) {
	store, gameID := seededMemStore(t, "ada")
	ctx := context.Background()

	err := store.InResolveTx(ctx, gameID, func(tx engine.ResolveTx) error {
		if ok, err := tx.AdvanceTurn(0); err != nil || !ok {
			t.Fatalf("advance: ok=%v err=%v", ok, err)
		}
		return tx.SnapshotPieces()
	})
	if err != nil {
		t.Fatalf("resolve tx: %v", err)
	}

	view, err := store.View(ctx, gameID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.State.TurnNumber != 1 {
		t.Fatalf("committed tx did not advance the turn: %d", view.State.TurnNumber)
	}
	if len(view.PiecesOld) != 1 {
		t.Fatalf("committed tx did not keep the snapshot")
	}
}

func TestMemStoreAdvanceTurnRequiresExpected(t *testing.T) {
	store, gameID := seededMemStore(t, "ada")
	ctx := context.Background()

	err := store.InResolveTx(ctx, gameID, func(tx engine.ResolveTx) error {
		ok, err := tx.AdvanceTurn(3)
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("advance with wrong expectation succeeded")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("resolve tx: %v", err)
	}
}

func TestMemStoreLockTimeout(t *testing.T) {
	store := NewMemStore(50 * time.Millisecond)
	ctx := context.Background()
	settings := engine.Settings{MaxPlayers: 4, BoardSize: 800, BoardShrink: 50, TurnInterval: time.Hour}
	if err := store.CreateGame(ctx, "g1", "ada", settings, time.Now().UTC()); err != nil {
		t.Fatalf("create: %v", err)
	}

	hold := make(chan struct{})
	released := make(chan struct{})
	go func() {
		_ = store.InResolveTx(ctx, "g1", func(tx engine.ResolveTx) error {
			close(hold)
			<-released
			return nil
		})
	}()
	<-hold
	defer close(released)

	err := store.InResolveTx(ctx, "g1", func(tx engine.ResolveTx) error { return nil })
	if !errors.Is(err, engine.ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
}

func TestMemStoreRecordSubmissionAtomicity(t *testing.T) {
	store, gameID := seededMemStore(t, "ada", "bob")
	ctx := context.Background()

	// Second action targets bob's piece; nothing may stick.
	actions := []engine.Action{
		{PieceID: 0, VX: 50, VY: 0},
		{PieceID: 1, VX: 50, VY: 0},
	}
	_, err := store.RecordSubmission(ctx, gameID, "ada", 0, actions)
	if !errors.Is(err, engine.ErrInvalidMoveInput) {
		t.Fatalf("expected invalid move input, got %v", err)
	}

	view, err := store.View(ctx, gameID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	for _, p := range view.Pieces {
		if p.VX != nil && *p.VX != 0 {
			t.Fatalf("failed submission wrote velocity to piece %d", p.ID)
		}
	}
}

func TestMemStoreRecordSubmissionAllSubmitted(t *testing.T) {
	store, gameID := seededMemStore(t, "ada", "bob")
	ctx := context.Background()

	all, err := store.RecordSubmission(ctx, gameID, "ada", 0, []engine.Action{{PieceID: 0, VX: 10, VY: 5}})
	if err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if all {
		t.Fatalf("all submitted after one of two")
	}
	all, err = store.RecordSubmission(ctx, gameID, "bob", 0, []engine.Action{{PieceID: 1, VX: -10, VY: 0}})
	if err != nil {
		t.Fatalf("second submission: %v", err)
	}
	if !all {
		t.Fatalf("all submitted not reported after both players")
	}

	view, err := store.View(ctx, gameID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	for _, p := range view.Pieces {
		if p.Owner == "ada" && (p.VX == nil || *p.VX != 10) {
			t.Fatalf("ada's velocity not merged: %+v", p)
		}
	}
}

func TestMemStoreDueGames(t *testing.T) {
	store := NewMemStore(time.Second)
	ctx := context.Background()
	now := time.Now().UTC()
	settings := engine.Settings{MaxPlayers: 4, BoardSize: 800, BoardShrink: 50, TurnInterval: time.Hour}

	if err := store.CreateGame(ctx, "overdue", "ada", settings, now.Add(-time.Minute)); err != nil {
		t.Fatalf("create overdue: %v", err)
	}
	if err := store.CreateGame(ctx, "future", "bob", settings, now.Add(time.Hour)); err != nil {
		t.Fatalf("create future: %v", err)
	}

	due, err := store.DueGames(ctx, now, 0)
	if err != nil {
		t.Fatalf("due games: %v", err)
	}
	if len(due) != 1 || due[0].GameID != "overdue" {
		t.Fatalf("expected only the overdue game, got %+v", due)
	}
	if due[0].Seeded {
		t.Fatalf("unseeded game reported as seeded")
	}
}

func TestMemStoreJoinRules(t *testing.T) {
	store := NewMemStore(time.Second)
	ctx := context.Background()
	settings := engine.Settings{MaxPlayers: 2, BoardSize: 800, BoardShrink: 50, TurnInterval: time.Hour}
	if err := store.CreateGame(ctx, "g1", "ada", settings, time.Now().UTC()); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.AddPlayer(ctx, "g1", "ada", "Ada", "", "t1"); err != nil {
		t.Fatalf("join ada: %v", err)
	}
	if err := store.AddPlayer(ctx, "g1", "ada", "Ada", "", "t1"); !errors.Is(err, engine.ErrAlreadyJoined) {
		t.Fatalf("expected already joined, got %v", err)
	}
	if err := store.AddPlayer(ctx, "g1", "bob", "Bob", "", "t2"); err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if err := store.AddPlayer(ctx, "g1", "cam", "Cam", "", "t3"); !errors.Is(err, engine.ErrGameFull) {
		t.Fatalf("expected game full, got %v", err)
	}
	if err := store.CreateGame(ctx, "g1", "ada", settings, time.Now().UTC()); !errors.Is(err, engine.ErrGameExists) {
		t.Fatalf("expected game exists, got %v", err)
	}
}

func TestMemStoreMemberTokenScopedPerGame(t *testing.T) {
	store := NewMemStore(time.Second)
	ctx := context.Background()
	settings := engine.Settings{MaxPlayers: 4, BoardSize: 800, BoardShrink: 50, TurnInterval: time.Hour}
	for _, id := range []string{"ga", "gb"} {
		if err := store.CreateGame(ctx, id, "ada", settings, time.Now().UTC()); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := store.AddPlayer(ctx, "ga", "ada", "Ada", "", "token-a"); err != nil {
		t.Fatalf("join ga: %v", err)
	}
	if err := store.AddPlayer(ctx, "gb", "ada", "Ada", "", "token-b"); err != nil {
		t.Fatalf("join gb: %v", err)
	}

	if tok, err := store.MemberToken(ctx, "ga", "ada"); err != nil || tok != "token-a" {
		t.Fatalf("ga token = %q err=%v, want token-a", tok, err)
	}
	if tok, err := store.MemberToken(ctx, "gb", "ada"); err != nil || tok != "token-b" {
		t.Fatalf("gb token = %q err=%v, want token-b", tok, err)
	}
	if _, err := store.MemberToken(ctx, "missing", "ada"); !errors.Is(err, engine.ErrUnknownGame) {
		t.Fatalf("expected unknown game, got %v", err)
	}
	if _, err := store.MemberToken(ctx, "ga", "bob"); !errors.Is(err, engine.ErrUnknownPlayer) {
		t.Fatalf("expected unknown player, got %v", err)
	}
}

func TestMemStoreRemovePlayerReassignsCreator(t *testing.T) {
	store, gameID := seededMemStore(t, "ada", "bob")
	ctx := context.Background()

	if err := store.RemovePlayer(ctx, gameID, "ada"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	view, err := store.View(ctx, gameID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Creator != "bob" {
		t.Fatalf("creator not reassigned, still %s", view.Creator)
	}
	for _, p := range view.Pieces {
		if p.Owner == "ada" && p.Status != physics.StatusOut {
			t.Fatalf("departed player's piece %d still in play", p.ID)
		}
	}

	if err := store.RemovePlayer(ctx, gameID, "bob"); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	if _, err := store.View(ctx, gameID); !errors.Is(err, engine.ErrUnknownGame) {
		t.Fatalf("expected game gone after last player left, got %v", err)
	}
}
