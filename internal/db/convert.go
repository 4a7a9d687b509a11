package db

import (
	"time"

	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"
)

func settingsFromRow(row GameSettings) engine.Settings {
	return engine.Settings{
		MaxPlayers:   row.MaxPlayers,
		BoardSize:    row.BoardSize,
		BoardShrink:  row.BoardShrink,
		TurnInterval: time.Duration(row.TurnInterval) * time.Second,
	}
}

func pieceFromRow(row Piece) physics.Piece {
	return physics.Piece{
		ID:     row.PieceID,
		Owner:  row.Owner,
		Status: row.Status,
		X:      row.X,
		Y:      row.Y,
		VX:     row.VX,
		VY:     row.VY,
		Radius: row.Radius,
		Mass:   row.Mass,
		Color:  row.Color,
	}
}

func pieceToRow(gameID string, p physics.Piece) Piece {
	return Piece{
		GameID:  gameID,
		PieceID: p.ID,
		Owner:   p.Owner,
		Status:  p.Status,
		X:       p.X,
		Y:       p.Y,
		VX:      p.VX,
		VY:      p.VY,
		Radius:  p.Radius,
		Mass:    p.Mass,
		Color:   p.Color,
	}
}

func snapshotFromRow(row PieceSnapshot) physics.Piece {
	return physics.Piece{
		ID:     row.PieceID,
		Owner:  row.Owner,
		Status: row.Status,
		X:      row.X,
		Y:      row.Y,
		VX:     row.VX,
		VY:     row.VY,
		Radius: row.Radius,
		Mass:   row.Mass,
		Color:  row.Color,
	}
}
