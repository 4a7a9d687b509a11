package physics

import (
	"context"
	"math"
	"sort"
)

// Fixed-timestep integration constants. These are deliberately not
// configurable per call; changing them changes resolved outcomes and the
// engine records no solver version alongside piece state.
const (
	timeStep           = 1.0 / 60.0
	damping            = 0.995
	restitution        = 0.90
	stillnessThreshold = 0.05
	maxSteps           = 20000
)

// Solver is the built-in rigid-body runner: circles on a square board,
// integrated until every piece is still or the step cap is reached. Pieces
// whose center leaves the after-shrink half-extent are marked out with null
// position and take no further part in the simulation.
type Solver struct {
	Limits Limits
}

type body struct {
	piece  Piece
	x, y   float64
	vx, vy float64
	radius float64
	mass   float64
	out    bool
}

func (s *Solver) Resolve(ctx context.Context, in Input) (Output, error) {
	if err := Validate(in, s.Limits); err != nil {
		return Output{}, err
	}

	bodies := make([]*body, 0, len(in.Pieces))
	for _, p := range in.Pieces {
		radius := p.Radius
		if radius == 0 {
			radius = DefaultRadius
		}
		mass := p.Mass
		if mass == 0 {
			mass = DefaultMass
		}
		bodies = append(bodies, &body{
			piece:  p,
			x:      *p.X,
			y:      *p.Y,
			vx:     *p.VX,
			vy:     *p.VY,
			radius: radius,
			mass:   mass,
		})
	}
	// Deterministic collision order regardless of caller ordering.
	sort.Slice(bodies, func(i, j int) bool { return bodies[i].piece.ID < bodies[j].piece.ID })

	halfExtent := float64(in.BoardAfter) / 2
	steps := 0
	for ; steps < maxSteps; steps++ {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		if s.step(bodies, halfExtent) {
			break
		}
	}

	out := Output{Pieces: make([]Piece, 0, len(bodies)), Steps: steps}
	for _, b := range bodies {
		resolved := Piece{
			ID:     b.piece.ID,
			Owner:  b.piece.Owner,
			Radius: b.piece.Radius,
			Mass:   b.piece.Mass,
			Color:  b.piece.Color,
		}
		if b.out {
			resolved.Status = StatusOut
		} else {
			resolved.Status = StatusIn
			resolved.X = Float(b.x)
			resolved.Y = Float(b.y)
			resolved.VX = Float(b.vx)
			resolved.VY = Float(b.vy)
		}
		out.Pieces = append(out.Pieces, resolved)
	}
	return out, nil
}

// step advances every live body by one tick and reports whether the board
// has settled.
func (s *Solver) step(bodies []*body, halfExtent float64) bool {
	for _, b := range bodies {
		if b.out {
			continue
		}
		b.x += b.vx * timeStep
		b.y += b.vy * timeStep
		b.vx *= damping
		b.vy *= damping
		if math.Abs(b.x) > halfExtent || math.Abs(b.y) > halfExtent {
			b.out = true
			b.vx, b.vy = 0, 0
		}
	}

	for i := 0; i < len(bodies); i++ {
		if bodies[i].out {
			continue
		}
		for j := i + 1; j < len(bodies); j++ {
			if bodies[j].out {
				continue
			}
			collide(bodies[i], bodies[j])
		}
	}

	for _, b := range bodies {
		if b.out {
			continue
		}
		if math.Hypot(b.vx, b.vy) >= stillnessThreshold {
			return false
		}
	}
	return true
}

// collide applies an elastic impulse between two overlapping circles and
// separates them along the contact normal.
func collide(a, b *body) {
	dx := b.x - a.x
	dy := b.y - a.y
	dist := math.Hypot(dx, dy)
	minDist := a.radius + b.radius
	if dist >= minDist {
		return
	}
	if dist == 0 {
		// Coincident centers: push apart along x to keep the step defined.
		dx, dy, dist = 1, 0, 1
	}
	nx := dx / dist
	ny := dy / dist

	overlap := minDist - dist
	total := a.mass + b.mass
	a.x -= nx * overlap * (b.mass / total)
	a.y -= ny * overlap * (b.mass / total)
	b.x += nx * overlap * (a.mass / total)
	b.y += ny * overlap * (a.mass / total)

	relVN := (b.vx-a.vx)*nx + (b.vy-a.vy)*ny
	if relVN >= 0 {
		return
	}
	impulse := -(1 + restitution) * relVN / (1/a.mass + 1/b.mass)
	a.vx -= impulse * nx / a.mass
	a.vy -= impulse * ny / a.mass
	b.vx += impulse * nx / b.mass
	b.vy += impulse * ny / b.mass
}
