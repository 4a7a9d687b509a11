package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/MTRieg/mrieg-com/internal/engine"

	"github.com/gin-gonic/gin"
)

var errAuthRequired = errors.New("authentication required")

// authenticatePlayer checks the caller's token against the membership's
// token. Tokens travel in the Authorization header as "Bearer <token>" or in
// the request body's auth_token field.
func (s *Server) authenticatePlayer(c *gin.Context, gameID, playerID, bodyToken string) error {
	expected, err := s.store.MemberToken(c.Request.Context(), gameID, playerID)
	if err != nil {
		return err
	}
	provided := strings.TrimSpace(bodyToken)
	if provided == "" {
		header := c.GetHeader("Authorization")
		if after, ok := strings.CutPrefix(header, "Bearer "); ok {
			provided = strings.TrimSpace(after)
		}
	}
	if provided == "" {
		return errAuthRequired
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return errors.New("invalid player authentication")
	}
	return nil
}

// requirePlayer authenticates and writes the error response itself,
// reporting whether the handler may proceed.
func (s *Server) requirePlayer(c *gin.Context, gameID, playerID, bodyToken string) bool {
	err := s.authenticatePlayer(c, gameID, playerID, bodyToken)
	if err == nil {
		return true
	}
	if errors.Is(err, engine.ErrUnknownGame) || errors.Is(err, engine.ErrUnknownPlayer) {
		respondError(c, err)
		return false
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	return false
}
