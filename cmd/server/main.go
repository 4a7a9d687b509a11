package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/MTRieg/mrieg-com/internal/config"
	"github.com/MTRieg/mrieg-com/internal/db"
	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"
	"github.com/MTRieg/mrieg-com/internal/scheduler"
	"github.com/MTRieg/mrieg-com/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var store engine.Store
	if os.Getenv("DATABASE_URL") != "" {
		conn, err := db.Open(cfg)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		store = db.NewStore(conn, time.Duration(cfg.LockTimeoutSeconds)*time.Second)
		log.Println("using postgres store")
	} else {
		store = db.NewMemStore(time.Duration(cfg.LockTimeoutSeconds) * time.Second)
		log.Println("DATABASE_URL not set, using in-memory store")
	}

	runner := newRunner(cfg)
	eng := engine.New(store, runner, cfg)

	sched := scheduler.New(eng, store, cfg)
	eng.SetScheduler(sched)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)
	go sched.RunJanitor(ctx)

	srv := server.New(eng, store, cfg)

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}
	log.Printf("server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}

// newRunner prefers the external simulation script when one is available
// and falls back to the built-in solver.
func newRunner(cfg config.Config) physics.Runner {
	limits := physics.Limits{
		MaxPieces: cfg.MaxPieces,
		MaxCoord:  float64(cfg.BoardSize),
		MaxSpeed:  cfg.MaxSpeed,
	}
	script, err := physics.NewScript(cfg.NodeExecutable, cfg.PhysicsScript, limits)
	if err != nil {
		log.Printf("simulation script unavailable, using built-in solver: %v", err)
		return &physics.Solver{Limits: limits}
	}
	log.Printf("using simulation script path=%s", script.Path)
	return script
}
