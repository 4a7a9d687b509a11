package config

import "testing"

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TURN_INTERVAL_SECONDS", "120")
	t.Setenv("BOARD_SIZE", "400")
	t.Setenv("MAX_SPEED", "250.5")
	t.Setenv("BOARD_SHRINK", "0")

	cfg := Load()
	if cfg.TurnIntervalSeconds != 120 {
		t.Fatalf("turn interval override ignored: %d", cfg.TurnIntervalSeconds)
	}
	if cfg.BoardSize != 400 {
		t.Fatalf("board size override ignored: %d", cfg.BoardSize)
	}
	if cfg.MaxSpeed != 250.5 {
		t.Fatalf("max speed override ignored: %v", cfg.MaxSpeed)
	}
	if cfg.BoardShrink != 0 {
		t.Fatalf("zero board shrink should be accepted: %d", cfg.BoardShrink)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("TURN_INTERVAL_SECONDS", "not-a-number")
	t.Setenv("BOARD_SIZE", "-5")

	cfg := Load()
	defaults := Default()
	if cfg.TurnIntervalSeconds != defaults.TurnIntervalSeconds {
		t.Fatalf("garbage turn interval accepted: %d", cfg.TurnIntervalSeconds)
	}
	if cfg.BoardSize != defaults.BoardSize {
		t.Fatalf("negative board size accepted: %d", cfg.BoardSize)
	}
}
