package engine

import (
	"testing"
	"time"

	"github.com/MTRieg/mrieg-com/internal/physics"
)

func TestBoardExtents(t *testing.T) {
	settings := Settings{BoardSize: 800, BoardShrink: 50, TurnInterval: time.Hour}

	cases := []struct {
		turn          int
		before, after int
	}{
		{0, 800, 750},
		{1, 750, 700},
		{10, 300, 250},
		{14, 100, 50},
		{15, 50, 50},
		{100, 50, 50},
	}
	for _, tc := range cases {
		before, after := boardExtents(settings, tc.turn)
		if before != tc.before || after != tc.after {
			t.Fatalf("turn %d: got %d/%d, want %d/%d", tc.turn, before, after, tc.before, tc.after)
		}
	}
}

func TestBoardExtentsNoShrink(t *testing.T) {
	settings := Settings{BoardSize: 400, BoardShrink: 0, TurnInterval: time.Hour}
	before, after := boardExtents(settings, 7)
	if before != 400 || after != 400 {
		t.Fatalf("no-shrink extents got %d/%d, want 400/400", before, after)
	}
}

func TestMergeOwnersKeepsOwnershipAndColor(t *testing.T) {
	in := []physics.Piece{
		{ID: 0, Owner: "ada", Color: "#FF0000"},
		{ID: 1, Owner: "bob", Color: "#00FF00"},
	}
	resolved := []physics.Piece{
		{ID: 0, Owner: "", Status: physics.StatusIn},
		{ID: 1, Owner: "", Status: physics.StatusOut},
	}
	merged := mergeOwners(in, resolved)
	if merged[0].Owner != "ada" || merged[0].Color != "#FF0000" {
		t.Fatalf("piece 0 lost identity: %+v", merged[0])
	}
	if merged[1].Owner != "bob" || merged[1].Status != physics.StatusOut {
		t.Fatalf("piece 1 lost identity or status: %+v", merged[1])
	}
}
