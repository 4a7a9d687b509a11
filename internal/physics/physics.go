// Package physics resolves one turn of piece movement. A Runner is a pure
// function from (pieces, board extent before, board extent after) to the
// settled piece set; every call owns its own simulation session and no state
// is shared between calls.
package physics

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const (
	StatusIn  = "in"
	StatusOut = "out"

	DefaultRadius = 30
	DefaultMass   = 1
)

var ErrInvalidInput = errors.New("invalid simulation input")

// Piece is the wire representation exchanged with a Runner. The JSON keys
// match the headless simulation script's schema.
type Piece struct {
	ID     int      `json:"pieceid"`
	Owner  string   `json:"owner,omitempty"`
	Status string   `json:"status,omitempty"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	VX     *float64 `json:"vx,omitempty"`
	VY     *float64 `json:"vy,omitempty"`
	Radius float64  `json:"radius,omitempty"`
	Mass   float64  `json:"mass,omitempty"`
	Color  string   `json:"color,omitempty"`
}

type Input struct {
	Pieces      []Piece `json:"pieces"`
	BoardBefore int     `json:"boardBefore"`
	BoardAfter  int     `json:"boardAfter"`
}

type Output struct {
	Pieces []Piece `json:"pieces"`
	Steps  int     `json:"steps,omitempty"`
}

// Runner resolves a turn. Implementations must be deterministic for
// identical inputs and must fail fast on malformed input rather than
// partially process it.
type Runner interface {
	Resolve(ctx context.Context, in Input) (Output, error)
}

// Limits bounds what a Runner will accept. Zero values disable a check.
type Limits struct {
	MaxPieces int
	MaxCoord  float64
	MaxSpeed  float64
}

// Validate rejects non-finite values, out-of-range coordinates and
// velocities, and oversized piece sets before any simulation work starts.
func Validate(in Input, lim Limits) error {
	if in.BoardBefore <= 0 || in.BoardAfter <= 0 {
		return fmt.Errorf("%w: board extent %d -> %d", ErrInvalidInput, in.BoardBefore, in.BoardAfter)
	}
	if in.BoardAfter > in.BoardBefore {
		return fmt.Errorf("%w: board grows %d -> %d", ErrInvalidInput, in.BoardBefore, in.BoardAfter)
	}
	if lim.MaxPieces > 0 && len(in.Pieces) > lim.MaxPieces {
		return fmt.Errorf("%w: %d pieces exceeds limit %d", ErrInvalidInput, len(in.Pieces), lim.MaxPieces)
	}
	maxCoord := lim.MaxCoord
	if maxCoord == 0 {
		maxCoord = float64(in.BoardBefore)
	}
	for _, p := range in.Pieces {
		if p.X == nil || p.Y == nil || p.VX == nil || p.VY == nil {
			return fmt.Errorf("%w: piece %d missing position or velocity", ErrInvalidInput, p.ID)
		}
		for _, v := range []float64{*p.X, *p.Y, *p.VX, *p.VY, p.Radius, p.Mass} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: piece %d has non-finite value", ErrInvalidInput, p.ID)
			}
		}
		if math.Abs(*p.X) > maxCoord || math.Abs(*p.Y) > maxCoord {
			return fmt.Errorf("%w: piece %d out of coordinate range", ErrInvalidInput, p.ID)
		}
		if lim.MaxSpeed > 0 && math.Hypot(*p.VX, *p.VY) > lim.MaxSpeed {
			return fmt.Errorf("%w: piece %d exceeds speed limit", ErrInvalidInput, p.ID)
		}
		if p.Radius < 0 || p.Mass < 0 {
			return fmt.Errorf("%w: piece %d has negative radius or mass", ErrInvalidInput, p.ID)
		}
	}
	return nil
}

func Float(v float64) *float64 {
	return &v
}
