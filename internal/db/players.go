package db

import (
	"context"
	"errors"
	"time"

	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"

	"gorm.io/gorm"
)

func (s *Store) AddPlayer(ctx context.Context, gameID, playerID, name, color, token string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game Game
		if err := tx.Where("game_id = ?", gameID).First(&game).Error; err != nil {
			return err
		}
		var settings GameSettings
		if err := tx.Where("game_id = ?", gameID).First(&settings).Error; err != nil {
			return err
		}

		var pieceCount int64
		if err := tx.Model(&Piece{}).Where("game_id = ?", gameID).Count(&pieceCount).Error; err != nil {
			return err
		}
		if pieceCount > 0 {
			return engine.ErrStarted
		}

		var existing GameMembership
		err := tx.Where("game_id = ? AND player_id = ?", gameID, playerID).First(&existing).Error
		if err == nil {
			return engine.ErrAlreadyJoined
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var members int64
		if err := tx.Model(&GameMembership{}).Where("game_id = ?", gameID).Count(&members).Error; err != nil {
			return err
		}
		if settings.MaxPlayers > 0 && members >= int64(settings.MaxPlayers) {
			return engine.ErrGameFull
		}

		now := time.Now().UTC()
		var player Player
		err = tx.Where("player_id = ?", playerID).First(&player).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&Player{
				PlayerID:  playerID,
				Name:      name,
				CreatedAt: now,
				LastSeen:  now,
			}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			updates := map[string]any{"last_seen": now}
			if name != "" {
				updates["name"] = name
			}
			if err := tx.Model(&Player{}).Where("player_id = ?", playerID).Updates(updates).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&GameMembership{
			GameID:   gameID,
			PlayerID: playerID,
			Color:    color,
			Token:    token,
			JoinedAt: now,
		}).Error; err != nil {
			return err
		}
		return appendEvent(tx, gameID, "player_joined", map[string]any{"player_id": playerID})
	})
	return classify(err)
}

// RemovePlayer drops a membership. If the departing player was the creator,
// the longest-standing remaining member inherits the game; removing the last
// member deletes the game.
func (s *Store) RemovePlayer(ctx context.Context, gameID, playerID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game Game
		if err := tx.Where("game_id = ?", gameID).First(&game).Error; err != nil {
			return err
		}
		res := tx.Where("game_id = ? AND player_id = ?", gameID, playerID).Delete(&GameMembership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return engine.ErrUnknownPlayer
		}
		if err := tx.Model(&Piece{}).
			Where("game_id = ? AND owner = ?", gameID, playerID).
			Updates(map[string]any{"status": physics.StatusOut, "x": nil, "y": nil, "vx": nil, "vy": nil}).Error; err != nil {
			return err
		}

		var remaining []GameMembership
		if err := tx.Where("game_id = ?", gameID).Order("joined_at").Find(&remaining).Error; err != nil {
			return err
		}
		if len(remaining) == 0 {
			return tx.Where("game_id = ?", gameID).Delete(&Game{}).Error
		}
		if game.Creator == playerID {
			if err := tx.Model(&Game{}).
				Where("game_id = ?", gameID).
				Update("creator", remaining[0].PlayerID).Error; err != nil {
				return err
			}
		}
		return appendEvent(tx, gameID, "player_left", map[string]any{"player_id": playerID})
	})
	return classify(err)
}

// MemberToken returns the auth token issued when the player joined this
// game. A missing game and a missing membership report distinct errors.
func (s *Store) MemberToken(ctx context.Context, gameID, playerID string) (string, error) {
	var membership GameMembership
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND player_id = ?", gameID, playerID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var count int64
		if err := s.db.WithContext(ctx).Model(&Game{}).Where("game_id = ?", gameID).Count(&count).Error; err != nil {
			return "", classify(err)
		}
		if count == 0 {
			return "", engine.ErrUnknownGame
		}
		return "", engine.ErrUnknownPlayer
	}
	if err != nil {
		return "", classify(err)
	}
	return membership.Token, nil
}
