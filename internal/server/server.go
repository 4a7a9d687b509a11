// Package server exposes the game over HTTP and websockets.
package server

import (
	"net/http"

	"github.com/MTRieg/mrieg-com/internal/config"
	"github.com/MTRieg/mrieg-com/internal/engine"

	"github.com/gin-gonic/gin"
)

type Server struct {
	engine *engine.Engine
	store  engine.Store
	cfg    config.Config
	ws     *wsHub
}

func New(eng *engine.Engine, store engine.Store, cfg config.Config) *Server {
	s := &Server{
		engine: eng,
		store:  store,
		cfg:    cfg,
		ws:     newWSHub(),
	}
	eng.SetNotifier(s)
	registerValidators()
	return s
}

// Hub exposes the websocket hub, mainly so tests can observe broadcasts.
func (s *Server) Hub() *wsHub { return s.ws }

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/games", s.handleCreateGame)
		api.GET("/games/:gameID", s.handleGetState)
		api.DELETE("/games/:gameID", s.handleDeleteGame)
		api.POST("/games/:gameID/players", s.handleJoinGame)
		api.DELETE("/games/:gameID/players/:playerID", s.handleLeaveGame)
		api.POST("/games/:gameID/start", s.handleStartGame)
		api.POST("/games/:gameID/turns", s.handleSubmitTurn)
		api.POST("/games/:gameID/resolve", s.handleForceResolve)
	}
	r.GET("/ws/games/:gameID", s.handleWebsocket)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}
