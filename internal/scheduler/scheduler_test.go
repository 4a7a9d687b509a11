package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/MTRieg/mrieg-com/internal/config"
	"github.com/MTRieg/mrieg-com/internal/db"
	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"
)

type echoRunner struct{}

func (echoRunner) Resolve(ctx context.Context, in physics.Input) (physics.Output, error) {
	out := physics.Output{Pieces: make([]physics.Piece, len(in.Pieces))}
	copy(out.Pieces, in.Pieces)
	for i := range out.Pieces {
		out.Pieces[i].Status = physics.StatusIn
	}
	return out, nil
}

func testSetup(t *testing.T) (*engine.Engine, *db.MemStore, *Scheduler) {
	t.Helper()
	cfg := config.Default()
	cfg.StartDelaySeconds = 0
	store := db.NewMemStore(time.Second)
	eng := engine.New(store, echoRunner{}, cfg)
	sched := New(eng, store, cfg)
	eng.SetScheduler(sched)
	return eng, store, sched
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func startedGame(t *testing.T, eng *engine.Engine, gameID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := eng.CreateGame(ctx, gameID, "ada", engine.Settings{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.JoinGame(ctx, gameID, "ada", "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := eng.StartGame(ctx, gameID, "ada"); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func TestScheduledTimerResolvesTurn(t *testing.T) {
	eng, _, sched := testSetup(t)
	startedGame(t, eng, "g1")

	sched.Schedule("g1", 0, time.Now().UTC())
	waitFor(t, 2*time.Second, func() bool {
		view, err := eng.View(context.Background(), "g1")
		return err == nil && view.State.TurnNumber == 1
	})
}

func TestStaleTimerFiringIsHarmless(t *testing.T) {
	eng, _, sched := testSetup(t)
	startedGame(t, eng, "g1")
	ctx := context.Background()

	// The turn moves on before the armed timer fires.
	if _, err := eng.ResolveTurn(ctx, "g1", 0); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	view, err := eng.View(ctx, "g1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	next := view.State.NextTurnTime

	sched.fire("g1", 0)

	after, err := eng.View(ctx, "g1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if after.State.TurnNumber != 1 {
		t.Fatalf("stale firing moved the turn to %d", after.State.TurnNumber)
	}
	if !after.State.NextTurnTime.Equal(next) {
		t.Fatalf("stale firing moved next_turn_time")
	}
}

func TestScheduleReplacesExistingTimer(t *testing.T) {
	_, _, sched := testSetup(t)

	sched.Schedule("g1", 0, time.Now().Add(time.Hour))
	sched.Schedule("g1", 0, time.Now().Add(2*time.Hour))

	sched.timersMu.Lock()
	n := len(sched.timers)
	sched.timersMu.Unlock()
	if n != 1 {
		t.Fatalf("expected one armed timer, got %d", n)
	}

	sched.Cancel("g1")
	sched.timersMu.Lock()
	n = len(sched.timers)
	sched.timersMu.Unlock()
	if n != 0 {
		t.Fatalf("cancel left %d timers", n)
	}
}

func TestSweepResolvesOverdueTurns(t *testing.T) {
	eng, store, sched := testSetup(t)
	startedGame(t, eng, "g1")
	ctx := context.Background()

	// Force the deadline into the past.
	err := store.InResolveTx(ctx, "g1", func(tx engine.ResolveTx) error {
		return tx.SetTurnTimes(time.Now().UTC().Add(-2*time.Hour), time.Now().UTC().Add(-time.Hour))
	})
	if err != nil {
		t.Fatalf("set times: %v", err)
	}

	sched.Sweep(ctx)

	view, err := eng.View(ctx, "g1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.State.TurnNumber != 1 {
		t.Fatalf("sweep did not resolve the overdue turn, still %d", view.State.TurnNumber)
	}
}

func TestSweepStartsOverdueUnseededGame(t *testing.T) {
	eng, _, sched := testSetup(t)
	ctx := context.Background()

	// StartDelaySeconds is 0, so the game is due for seeding immediately.
	if _, err := eng.CreateGame(ctx, "g1", "ada", engine.Settings{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.JoinGame(ctx, "g1", "ada", "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}

	sched.Sweep(ctx)

	view, err := eng.View(ctx, "g1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Pieces) == 0 {
		t.Fatalf("sweep did not seed the due game")
	}
	if view.State.TurnNumber != 0 {
		t.Fatalf("seeding moved the turn counter to %d", view.State.TurnNumber)
	}
}

func TestSweepDeletesDueGameWithNoPlayers(t *testing.T) {
	eng, _, sched := testSetup(t)
	ctx := context.Background()

	if _, err := eng.CreateGame(ctx, "empty", "ada", engine.Settings{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	sched.Sweep(ctx)

	if _, err := eng.View(ctx, "empty"); err == nil {
		t.Fatalf("expected the empty due game to be deleted")
	}
}
