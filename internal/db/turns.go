package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordSubmission merges a player's velocities into their in-play pieces
// and marks them submitted, all under the game_state row lock so that a
// concurrent resolve cannot interleave. The turn check against the locked
// counter is what makes stale submissions fail deterministically.
func (s *Store) RecordSubmission(ctx context.Context, gameID, playerID string, turn int, actions []engine.Action) (bool, error) {
	var allSubmitted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		millis := s.lockTimeout.Milliseconds()
		if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", millis)).Error; err != nil {
			return err
		}
		var state GameState
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("game_id = ?", gameID).
			First(&state).Error; err != nil {
			return err
		}
		if state.TurnNumber != turn {
			return fmt.Errorf("%w: submitted for turn %d, current turn is %d",
				engine.ErrStaleTurn, turn, state.TurnNumber)
		}

		var seeded int64
		if err := tx.Model(&Piece{}).Where("game_id = ?", gameID).Count(&seeded).Error; err != nil {
			return err
		}
		if seeded == 0 {
			return engine.ErrNotStarted
		}

		var membership GameMembership
		err := tx.Where("game_id = ? AND player_id = ?", gameID, playerID).First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.ErrUnknownPlayer
		}
		if err != nil {
			return err
		}

		for _, a := range actions {
			res := tx.Model(&Piece{}).
				Where("game_id = ? AND piece_id = ? AND owner = ? AND status = ?",
					gameID, a.PieceID, playerID, physics.StatusIn).
				Updates(map[string]any{"vx": a.VX, "vy": a.VY})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: piece %d is not yours or not in play",
					engine.ErrInvalidMoveInput, a.PieceID)
			}
		}

		if err := tx.Model(&GameMembership{}).
			Where("game_id = ? AND player_id = ?", gameID, playerID).
			Update("submitted_turn", turn).Error; err != nil {
			return err
		}
		if err := tx.Model(&Player{}).
			Where("player_id = ?", playerID).
			Update("last_seen", gorm.Expr("NOW()")).Error; err != nil {
			return err
		}

		var pending int64
		if err := tx.Model(&GameMembership{}).
			Where("game_id = ? AND (submitted_turn IS NULL OR submitted_turn <> ?)", gameID, turn).
			Count(&pending).Error; err != nil {
			return err
		}
		allSubmitted = pending == 0
		return appendEvent(tx, gameID, "turn_submitted", map[string]any{
			"player_id": playerID, "turn": turn, "actions": len(actions),
		})
	})
	if err != nil {
		return false, classify(err)
	}
	return allSubmitted, nil
}
