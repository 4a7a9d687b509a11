package physics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const maxScriptInputBytes = 200 * 1024

// Script runs the headless JavaScript simulation as a subprocess, JSON on
// stdin and stdout. It exists so the server and the animation client share
// one physics implementation; the engine only sees the Runner contract.
type Script struct {
	Node   string
	Path   string
	Limits Limits
}

func NewScript(node, path string, lim Limits) (*Script, error) {
	if node == "" {
		node = "node"
	}
	resolved, err := exec.LookPath(node)
	if err != nil {
		return nil, fmt.Errorf("node executable not found: %w", err)
	}
	if path == "" {
		for _, candidate := range []string{"static/headless.mjs", "headless.mjs"} {
			if _, statErr := os.Stat(candidate); statErr == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return nil, errors.New("headless script not found; set PHYSICS_SCRIPT")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("headless script not found at %s: %w", abs, err)
	}
	return &Script{Node: resolved, Path: abs, Limits: lim}, nil
}

func (s *Script) Resolve(ctx context.Context, in Input) (Output, error) {
	if err := Validate(in, s.Limits); err != nil {
		return Output{}, err
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return Output{}, err
	}
	if len(raw) > maxScriptInputBytes {
		return Output{}, fmt.Errorf("%w: input exceeds %d bytes", ErrInvalidInput, maxScriptInputBytes)
	}

	cmd := exec.CommandContext(ctx, s.Node, s.Path)
	cmd.Stdin = bytes.NewReader(raw)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Output{}, fmt.Errorf("simulation script failed: %w: %s", err, stderr.String())
	}

	var out Output
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Output{}, fmt.Errorf("malformed simulation output: %w", err)
	}
	if out.Pieces == nil {
		return Output{}, errors.New("malformed simulation output: missing pieces")
	}
	if len(out.Pieces) != len(in.Pieces) {
		return Output{}, fmt.Errorf("malformed simulation output: %d pieces in, %d out", len(in.Pieces), len(out.Pieces))
	}
	for _, p := range out.Pieces {
		switch p.Status {
		case StatusIn:
			if p.X == nil || p.Y == nil {
				return Output{}, fmt.Errorf("malformed simulation output: piece %d in without position", p.ID)
			}
		case StatusOut:
		default:
			return Output{}, fmt.Errorf("malformed simulation output: piece %d status %q", p.ID, p.Status)
		}
	}
	return out, nil
}
