package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *Store) CreateGame(ctx context.Context, gameID, creator string, settings engine.Settings, startTime time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		if err := tx.Create(&Game{
			GameID:    gameID,
			Creator:   creator,
			StartTime: startTime,
			CreatedAt: now,
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&GameSettings{
			GameID:       gameID,
			MaxPlayers:   settings.MaxPlayers,
			BoardSize:    settings.BoardSize,
			BoardShrink:  settings.BoardShrink,
			TurnInterval: int(settings.TurnInterval / time.Second),
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&GameState{
			GameID:       gameID,
			TurnNumber:   0,
			NextTurnTime: &startTime,
		}).Error; err != nil {
			return err
		}
		return appendEvent(tx, gameID, "game_created", map[string]any{"creator": creator})
	})
	return classify(err)
}

func (s *Store) DeleteGame(ctx context.Context, gameID string) error {
	res := s.db.WithContext(ctx).Where("game_id = ?", gameID).Delete(&Game{})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return engine.ErrUnknownGame
	}
	return nil
}

func (s *Store) View(ctx context.Context, gameID string) (*engine.GameView, error) {
	var view engine.GameView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game Game
		if err := tx.Where("game_id = ?", gameID).First(&game).Error; err != nil {
			return err
		}
		var settings GameSettings
		if err := tx.Where("game_id = ?", gameID).First(&settings).Error; err != nil {
			return err
		}
		var state GameState
		if err := tx.Where("game_id = ?", gameID).First(&state).Error; err != nil {
			return err
		}

		view = engine.GameView{
			GameID:    game.GameID,
			Creator:   game.Creator,
			StartTime: game.StartTime,
			Settings:  settingsFromRow(settings),
			State:     engine.State{TurnNumber: state.TurnNumber},
		}
		if state.LastTurnTime != nil {
			view.State.LastTurnTime = *state.LastTurnTime
		}
		if state.NextTurnTime != nil {
			view.State.NextTurnTime = *state.NextTurnTime
		}

		var memberships []GameMembership
		if err := tx.Where("game_id = ?", gameID).Order("joined_at").Find(&memberships).Error; err != nil {
			return err
		}
		for _, m := range memberships {
			var player Player
			name := m.PlayerID
			if err := tx.Where("player_id = ?", m.PlayerID).First(&player).Error; err == nil {
				name = player.Name
			}
			view.Members = append(view.Members, engine.Member{
				PlayerID:  m.PlayerID,
				Name:      name,
				Color:     m.Color,
				Submitted: m.SubmittedTurn != nil && *m.SubmittedTurn == state.TurnNumber,
			})
		}

		var pieces []Piece
		if err := tx.Where("game_id = ?", gameID).Order("piece_id").Find(&pieces).Error; err != nil {
			return err
		}
		for _, p := range pieces {
			view.Pieces = append(view.Pieces, pieceFromRow(p))
		}

		var old []PieceSnapshot
		if err := tx.Where("game_id = ?", gameID).Order("piece_id").Find(&old).Error; err != nil {
			return err
		}
		for _, p := range old {
			view.PiecesOld = append(view.PiecesOld, snapshotFromRow(p))
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return &view, nil
}

// DueGames returns games whose next_turn_time has passed, oldest first.
// Seeded distinguishes boards waiting to start from boards waiting to
// resolve.
func (s *Store) DueGames(ctx context.Context, now time.Time, limit int) ([]engine.DueGame, error) {
	var states []GameState
	q := s.db.WithContext(ctx).
		Where("next_turn_time IS NOT NULL AND next_turn_time <= ?", now).
		Order("next_turn_time")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&states).Error; err != nil {
		return nil, classify(err)
	}
	due := make([]engine.DueGame, 0, len(states))
	for _, st := range states {
		var count int64
		if err := s.db.WithContext(ctx).Model(&Piece{}).
			Where("game_id = ?", st.GameID).Count(&count).Error; err != nil {
			return nil, classify(err)
		}
		d := engine.DueGame{GameID: st.GameID, TurnNumber: st.TurnNumber, Seeded: count > 0}
		if st.NextTurnTime != nil {
			d.NextTurnTime = *st.NextTurnTime
		}
		due = append(due, d)
	}
	return due, nil
}

func (s *Store) SeedGame(ctx context.Context, gameID string, pieces []physics.Piece, colors map[string]string, next time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Piece{}).Where("game_id = ?", gameID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return engine.ErrStarted
		}
		rows := make([]Piece, len(pieces))
		for i, p := range pieces {
			rows[i] = pieceToRow(gameID, p)
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		for playerID, color := range colors {
			if err := tx.Model(&GameMembership{}).
				Where("game_id = ? AND player_id = ?", gameID, playerID).
				Update("color", color).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&GameState{}).
			Where("game_id = ?", gameID).
			Update("next_turn_time", next).Error; err != nil {
			return err
		}
		return appendEvent(tx, gameID, "game_started", map[string]any{"pieces": len(pieces)})
	})
	return classify(err)
}

// DeleteStaleGames prunes games with no activity since olderThan. Cascades
// clean up settings, state, memberships, pieces, and snapshots.
func (s *Store) DeleteStaleGames(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("game_id IN (?)", s.db.Model(&GameState{}).Select("game_id").
			Where("last_turn_time IS NOT NULL AND last_turn_time < ?", olderThan)).
		Where("created_at < ?", olderThan).
		Delete(&Game{})
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteStalePlayers prunes players not seen since olderThan and no longer
// in any game.
func (s *Store) DeleteStalePlayers(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("last_seen < ?", olderThan).
		Where("player_id NOT IN (?)", s.db.Model(&GameMembership{}).Select("player_id")).
		Delete(&Player{})
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	return res.RowsAffected, nil
}

// appendEvent journals an event inside the caller's transaction.
func appendEvent(tx *gorm.DB, gameID, kind string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&Event{
		GameID:    gameID,
		Kind:      kind,
		Payload:   datatypes.JSON(raw),
		CreatedAt: time.Now().UTC(),
	}).Error
}
