package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/MTRieg/mrieg-com/internal/engine"

	"github.com/gin-gonic/gin"
)

// respondError maps engine errors to HTTP statuses. Conflicts (stale turns,
// duplicate joins, already-started games) are 409 so clients know to
// refetch; lock timeouts are 503 so clients know to retry.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownGame), errors.Is(err, engine.ErrUnknownPlayer):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrStaleTurn),
		errors.Is(err, engine.ErrGameExists),
		errors.Is(err, engine.ErrAlreadyJoined),
		errors.Is(err, engine.ErrGameFull),
		errors.Is(err, engine.ErrStarted),
		errors.Is(err, engine.ErrNotStarted):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrInvalidMoveInput), errors.Is(err, engine.ErrNoPlayers):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNotCreator):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Printf("request failed path=%s err=%v", c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
