package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	TurnIntervalSeconds      int
	StartDelaySeconds        int
	SweepIntervalSeconds     int
	LockTimeoutSeconds       int
	PiecesPerPlayer          int
	MaxPlayers               int
	BoardSize                int
	BoardShrink              int
	MaxPieces                int
	MaxSpeed                 float64
	StaleGameDays            int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	PhysicsScript            string
	NodeExecutable           string
}

func Default() Config {
	return Config{
		TurnIntervalSeconds:      86400,
		StartDelaySeconds:        86400,
		SweepIntervalSeconds:     30,
		LockTimeoutSeconds:       15,
		PiecesPerPlayer:          4,
		MaxPlayers:               4,
		BoardSize:                800,
		BoardShrink:              50,
		MaxPieces:                256,
		MaxSpeed:                 1000,
		StaleGameDays:            30,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("TURN_INTERVAL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TurnIntervalSeconds = value
		}
	}
	if raw := os.Getenv("START_DELAY_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.StartDelaySeconds = value
		}
	}
	if raw := os.Getenv("SWEEP_INTERVAL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.SweepIntervalSeconds = value
		}
	}
	if raw := os.Getenv("LOCK_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.LockTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("PIECES_PER_PLAYER"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.PiecesPerPlayer = value
		}
	}
	if raw := os.Getenv("MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxPlayers = value
		}
	}
	if raw := os.Getenv("BOARD_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.BoardSize = value
		}
	}
	if raw := os.Getenv("BOARD_SHRINK"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.BoardShrink = value
		}
	}
	if raw := os.Getenv("MAX_PIECES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxPieces = value
		}
	}
	if raw := os.Getenv("MAX_SPEED"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.MaxSpeed = value
		}
	}
	if raw := os.Getenv("STALE_GAME_DAYS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.StaleGameDays = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if raw := os.Getenv("PHYSICS_SCRIPT"); raw != "" {
		cfg.PhysicsScript = raw
	}
	if raw := os.Getenv("NODE_EXECUTABLE"); raw != "" {
		cfg.NodeExecutable = raw
	}
	return cfg
}
