package server

import (
	"time"

	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"
)

// statePayload shapes a GameView for the wire. Pending velocities on other
// players' pieces are censored: a submitted move is hidden until the turn
// resolves, so only the viewer's own pieces carry vx/vy.
func statePayload(view *engine.GameView, viewer string) map[string]any {
	members := make([]map[string]any, 0, len(view.Members))
	for _, m := range view.Members {
		members = append(members, map[string]any{
			"player_id": m.PlayerID,
			"name":      m.Name,
			"color":     m.Color,
			"submitted": m.Submitted,
		})
	}

	payload := map[string]any{
		"game_id":    view.GameID,
		"creator":    view.Creator,
		"start_time": view.StartTime.UTC().Format(time.RFC3339),
		"settings": map[string]any{
			"max_players":   view.Settings.MaxPlayers,
			"board_size":    view.Settings.BoardSize,
			"board_shrink":  view.Settings.BoardShrink,
			"turn_interval": int(view.Settings.TurnInterval / time.Second),
		},
		"state": map[string]any{
			"turn_number":    view.State.TurnNumber,
			"last_turn_time": formatTime(view.State.LastTurnTime),
			"next_turn_time": formatTime(view.State.NextTurnTime),
		},
		"players":    members,
		"pieces":     piecesPayload(view.Pieces, viewer, true),
		"pieces_old": piecesPayload(view.PiecesOld, viewer, false),
	}
	return payload
}

// piecesPayload zeroes velocities when censor is set and the viewer does
// not own the piece: the snapshot is always public (those moves already
// played out), the live board is not.
func piecesPayload(pieces []physics.Piece, viewer string, censor bool) []map[string]any {
	out := make([]map[string]any, 0, len(pieces))
	for _, p := range pieces {
		entry := map[string]any{
			"pieceid": p.ID,
			"owner":   p.Owner,
			"status":  p.Status,
			"radius":  p.Radius,
			"color":   p.Color,
		}
		if p.X != nil {
			entry["x"] = *p.X
		}
		if p.Y != nil {
			entry["y"] = *p.Y
		}
		hidden := censor && p.Owner != viewer
		if p.VX != nil {
			entry["vx"] = *p.VX
			if hidden {
				entry["vx"] = 0.0
			}
		}
		if p.VY != nil {
			entry["vy"] = *p.VY
			if hidden {
				entry["vy"] = 0.0
			}
		}
		out = append(out, entry)
	}
	return out
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
