// Package scheduler arms per-game resolve timers and sweeps the database
// for overdue turns. Timers are a latency optimization only: a missed or
// duplicated firing is harmless because every resolve attempt carries the
// turn it expects and stale attempts land as no-ops.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/MTRieg/mrieg-com/internal/config"
	"github.com/MTRieg/mrieg-com/internal/engine"
)

type Scheduler struct {
	engine *engine.Engine
	store  engine.Store
	cfg    config.Config

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func New(eng *engine.Engine, store engine.Store, cfg config.Config) *Scheduler {
	return &Scheduler{
		engine: eng,
		store:  store,
		cfg:    cfg,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms a resolve attempt for the given turn at the given time,
// replacing any timer already armed for the game. The expected turn is
// captured at arm time; if the game moves on before the timer fires, the
// attempt is a no-op.
func (s *Scheduler) Schedule(gameID string, expectedTurn int, at time.Time) {
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.timersMu.Lock()
	if existing, ok := s.timers[gameID]; ok {
		existing.Stop()
	}
	s.timers[gameID] = time.AfterFunc(delay, func() {
		s.fire(gameID, expectedTurn)
	})
	s.timersMu.Unlock()
}

// Cancel drops the armed timer for a game, if any. Used on game deletion;
// an already-fired timer is harmless either way.
func (s *Scheduler) Cancel(gameID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[gameID]; ok {
		timer.Stop()
		delete(s.timers, gameID)
	}
}

func (s *Scheduler) fire(gameID string, expectedTurn int) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.LockTimeoutSeconds+5)*time.Second)
	defer cancel()

	result, err := s.engine.ResolveTurn(ctx, gameID, expectedTurn)
	if err != nil {
		if engine.IsRetryable(err) {
			// next_turn_time is untouched, so the sweep retries.
			log.Printf("scheduled resolve failed, will retry game_id=%s turn=%d err=%v", gameID, expectedTurn, err)
			return
		}
		log.Printf("scheduled resolve failed game_id=%s turn=%d err=%v", gameID, expectedTurn, err)
		return
	}
	if result.Outcome == engine.NoOp {
		log.Printf("scheduled resolve was stale game_id=%s expected_turn=%d", gameID, expectedTurn)
	}
}

// Run is the sweep loop: on every tick it resolves overdue turns and starts
// overdue unseeded games. The sweep is what gives missed timers (process
// restarts, multi-instance deployments) an upper bound on lateness.
func (s *Scheduler) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("scheduler sweep running interval=%s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over due games.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := time.Now().UTC()
	due, err := s.store.DueGames(ctx, now, 100)
	if err != nil {
		log.Printf("sweep query failed err=%v", err)
		return
	}
	for _, d := range due {
		if !d.Seeded {
			err := s.engine.StartGame(ctx, d.GameID, engine.SystemActor)
			if errors.Is(err, engine.ErrNoPlayers) {
				// Nobody ever joined; drop the game instead of retrying it
				// every sweep.
				if err := s.engine.DeleteGame(ctx, d.GameID, engine.SystemActor); err != nil {
					log.Printf("empty game cleanup failed game_id=%s err=%v", d.GameID, err)
				}
				continue
			}
			if err != nil {
				log.Printf("sweep start failed game_id=%s err=%v", d.GameID, err)
			}
			continue
		}
		if _, err := s.engine.ResolveTurn(ctx, d.GameID, d.TurnNumber); err != nil {
			log.Printf("sweep resolve failed game_id=%s turn=%d err=%v", d.GameID, d.TurnNumber, err)
		}
	}
}

// RunJanitor periodically prunes games and players with no recent activity.
func (s *Scheduler) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.StaleGameDays)
			if n, err := s.store.DeleteStaleGames(ctx, cutoff); err != nil {
				log.Printf("stale game cleanup failed err=%v", err)
			} else if n > 0 {
				log.Printf("stale games deleted count=%d", n)
			}
			if n, err := s.store.DeleteStalePlayers(ctx, cutoff); err != nil {
				log.Printf("stale player cleanup failed err=%v", err)
			} else if n > 0 {
				log.Printf("stale players deleted count=%d", n)
			}
		}
	}
}
