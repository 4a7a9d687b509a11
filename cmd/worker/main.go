// The worker runs turn resolution without serving HTTP: the sweep loop, the
// janitor, and nothing else. Deploy it alongside the server when resolve
// load should live on its own instances; the compare-and-swap turn counter
// makes that safe.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MTRieg/mrieg-com/internal/config"
	"github.com/MTRieg/mrieg-com/internal/db"
	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"
	"github.com/MTRieg/mrieg-com/internal/scheduler"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	store := db.NewStore(conn, time.Duration(cfg.LockTimeoutSeconds)*time.Second)

	limits := physics.Limits{
		MaxPieces: cfg.MaxPieces,
		MaxCoord:  float64(cfg.BoardSize),
		MaxSpeed:  cfg.MaxSpeed,
	}
	var runner physics.Runner
	if script, err := physics.NewScript(cfg.NodeExecutable, cfg.PhysicsScript, limits); err != nil {
		log.Printf("simulation script unavailable, using built-in solver: %v", err)
		runner = &physics.Solver{Limits: limits}
	} else {
		runner = script
	}

	eng := engine.New(store, runner, cfg)
	sched := scheduler.New(eng, store, cfg)
	eng.SetScheduler(sched)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.RunJanitor(ctx)
	log.Println("worker running")
	sched.Run(ctx)
	log.Println("worker stopped")
}
