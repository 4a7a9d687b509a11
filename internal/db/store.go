package db

import (
	"context"
	"fmt"
	"time"

	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the Postgres-backed engine.Store. Per-game mutual exclusion comes
// from SELECT ... FOR UPDATE on the game_state row; lock waits are bounded
// with a transaction-local lock_timeout so a wedged resolver surfaces as
// ErrLockTimeout instead of hanging every competitor.
type Store struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewStore(conn *gorm.DB, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 15 * time.Second
	}
	return &Store{db: conn, lockTimeout: lockTimeout}
}

// resolveTx implements engine.ResolveTx over one open transaction.
type resolveTx struct {
	tx     *gorm.DB
	gameID string
}

func (s *Store) InResolveTx(ctx context.Context, gameID string, fn func(engine.ResolveTx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SET LOCAL scopes the timeout to this transaction only.
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
		return fn(&resolveTx{tx: tx, gameID: gameID})
	})
	return classify(err)
}

func (r *resolveTx) Settings() (engine.Settings, error) {
	var row GameSettings
	if err := r.tx.Where("game_id = ?", r.gameID).First(&row).Error; err != nil {
		return engine.Settings{}, err
	}
	return settingsFromRow(row), nil
}

func (r *resolveTx) CurrentPieces() ([]physics.Piece, error) {
	var rows []Piece
	if err := r.tx.Where("game_id = ?", r.gameID).Order("piece_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	pieces := make([]physics.Piece, len(rows))
	for i, row := range rows {
		pieces[i] = pieceFromRow(row)
	}
	return pieces, nil
}

func (r *resolveTx) AdvanceTurn(expected int) (bool, error) {
	res := r.tx.Model(&GameState{}).
		Where("game_id = ? AND turn_number = ?", r.gameID, expected).
		Update("turn_number", expected+1)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *resolveTx) SnapshotPieces() error {
	if err := r.tx.Where("game_id = ?", r.gameID).Delete(&PieceSnapshot{}).Error; err != nil {
		return err
	}
	return r.tx.Exec(`INSERT INTO pieces_old (game_id, piece_id, owner, status, x, y, vx, vy, radius, mass, color)
		SELECT game_id, piece_id, owner, status, x, y, vx, vy, radius, mass, color
		FROM pieces WHERE game_id = ?`, r.gameID).Error
}

func (r *resolveTx) ReplacePieces(pieces []physics.Piece) error {
	if err := r.tx.Where("game_id = ?", r.gameID).Delete(&Piece{}).Error; err != nil {
		return err
	}
	if len(pieces) == 0 {
		return nil
	}
	rows := make([]Piece, len(pieces))
	for i, p := range pieces {
		rows[i] = pieceToRow(r.gameID, p)
	}
	return r.tx.Create(&rows).Error
}

func (r *resolveTx) ResetSubmissions() error {
	return r.tx.Model(&GameMembership{}).
		Where("game_id = ?", r.gameID).
		Update("submitted_turn", nil).Error
}

func (r *resolveTx) SetTurnTimes(last, next time.Time) error {
	return r.tx.Model(&GameState{}).
		Where("game_id = ?", r.gameID).
		Updates(map[string]any{"last_turn_time": last, "next_turn_time": next}).Error
}
