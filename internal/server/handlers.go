package server

import (
	"net/http"
	"time"

	"github.com/MTRieg/mrieg-com/internal/engine"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createGameRequest struct {
	GameID       string `json:"game_id"`
	PlayerID     string `json:"player_id" binding:"required,ident"`
	Name         string `json:"name" binding:"omitempty,name"`
	MaxPlayers   int    `json:"max_players" binding:"omitempty,min=1,max=16"`
	BoardSize    int    `json:"board_size" binding:"omitempty,min=100,max=10000"`
	BoardShrink  int    `json:"board_shrink" binding:"omitempty,min=0,max=1000"`
	TurnInterval int    `json:"turn_interval" binding:"omitempty,min=1,max=604800"`
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req createGameRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required", "ident": "player_id contains unsupported characters"},
		"Name":     {"name": "name contains unsupported characters"},
	}, "invalid game settings") {
		return
	}
	gameID := req.GameID
	if gameID == "" {
		gameID = uuid.NewString()
	} else if err := validateIdent(gameID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_id contains unsupported characters"})
		return
	}

	settings := engine.Settings{
		MaxPlayers:   req.MaxPlayers,
		BoardSize:    req.BoardSize,
		BoardShrink:  req.BoardShrink,
		TurnInterval: time.Duration(req.TurnInterval) * time.Second,
	}
	startTime, err := s.engine.CreateGame(c.Request.Context(), gameID, req.PlayerID, settings)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := s.engine.JoinGame(c.Request.Context(), gameID, req.PlayerID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"game_id":    gameID,
		"creator":    req.PlayerID,
		"auth_token": token,
		"start_time": startTime.UTC().Format(time.RFC3339),
	})
}

type joinGameRequest struct {
	PlayerID string `json:"player_id" binding:"required,ident"`
	Name     string `json:"name" binding:"omitempty,name"`
}

func (s *Server) handleJoinGame(c *gin.Context) {
	var req joinGameRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required", "ident": "player_id contains unsupported characters"},
		"Name":     {"name": "name contains unsupported characters"},
	}, "invalid join request") {
		return
	}
	token, err := s.engine.JoinGame(c.Request.Context(), c.Param("gameID"), req.PlayerID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_token": token})
}

func (s *Server) handleLeaveGame(c *gin.Context) {
	gameID := c.Param("gameID")
	playerID := c.Param("playerID")
	if !s.requirePlayer(c, gameID, playerID, "") {
		return
	}
	if err := s.engine.LeaveGame(c.Request.Context(), gameID, playerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

type startGameRequest struct {
	PlayerID  string `json:"player_id" binding:"required,ident"`
	AuthToken string `json:"auth_token"`
}

func (s *Server) handleStartGame(c *gin.Context) {
	var req startGameRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required", "ident": "player_id contains unsupported characters"},
	}, "invalid start request") {
		return
	}
	gameID := c.Param("gameID")
	if !s.requirePlayer(c, gameID, req.PlayerID, req.AuthToken) {
		return
	}
	if err := s.engine.StartGame(c.Request.Context(), gameID, req.PlayerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

type deleteGameRequest struct {
	PlayerID  string `json:"player_id" binding:"required,ident"`
	AuthToken string `json:"auth_token"`
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	var req deleteGameRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required", "ident": "player_id contains unsupported characters"},
	}, "invalid delete request") {
		return
	}
	gameID := c.Param("gameID")
	if !s.requirePlayer(c, gameID, req.PlayerID, req.AuthToken) {
		return
	}
	if err := s.engine.DeleteGame(c.Request.Context(), gameID, req.PlayerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleGetState(c *gin.Context) {
	view, err := s.engine.View(c.Request.Context(), c.Param("gameID"))
	if err != nil {
		respondError(c, err)
		return
	}
	viewer := c.Query("player_id")
	c.JSON(http.StatusOK, statePayload(view, viewer))
}

type submitTurnRequest struct {
	PlayerID  string          `json:"player_id" binding:"required,ident"`
	AuthToken string          `json:"auth_token"`
	Turn      *int            `json:"turn" binding:"required"`
	Actions   []engine.Action `json:"actions"`
}

func (s *Server) handleSubmitTurn(c *gin.Context) {
	var req submitTurnRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required", "ident": "player_id contains unsupported characters"},
		"Turn":     {"required": "turn is required"},
	}, "invalid turn submission") {
		return
	}
	gameID := c.Param("gameID")
	if !s.requirePlayer(c, gameID, req.PlayerID, req.AuthToken) {
		return
	}
	allSubmitted, err := s.engine.SubmitTurn(c.Request.Context(), gameID, req.PlayerID, *req.Turn, req.Actions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "submitted",
		"turn":          *req.Turn,
		"all_submitted": allSubmitted,
	})
}

type forceResolveRequest struct {
	PlayerID  string `json:"player_id" binding:"required,ident"`
	AuthToken string `json:"auth_token"`
	Turn      *int   `json:"turn" binding:"required"`
}

func (s *Server) handleForceResolve(c *gin.Context) {
	var req forceResolveRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required", "ident": "player_id contains unsupported characters"},
		"Turn":     {"required": "turn is required"},
	}, "invalid resolve request") {
		return
	}
	gameID := c.Param("gameID")
	if !s.requirePlayer(c, gameID, req.PlayerID, req.AuthToken) {
		return
	}
	result, err := s.engine.ForceResolve(c.Request.Context(), gameID, *req.Turn)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "resolved",
		"turn":           result.TurnNumber,
		"next_turn_time": result.NextTurnTime.UTC().Format(time.RFC3339),
	})
}
