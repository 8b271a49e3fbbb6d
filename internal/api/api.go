// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package api exposes the session engine over HTTP. Each inspection stage is
// one endpoint keyed by the session id, so that a caller can drive the stages
// in its own order, the way the in-process API allows.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/stoneguard/waf/internal/config"
	"github.com/stoneguard/waf/internal/decision"
	"github.com/stoneguard/waf/internal/plog"
	"github.com/stoneguard/waf/internal/session"
)

// Server is the HTTP front of a session Hub.
type Server struct {
	hub    *session.Hub
	logger *plog.Logger
	engine *gin.Engine
}

// NewServer returns a server routing the session endpoints to `hub`.
func NewServer(hub *session.Hub, logger *plog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		hub:    hub,
		logger: logger,
		engine: gin.New(),
	}

	s.engine.Use(gin.Recovery())

	s.engine.GET("/healthz", s.health)
	s.engine.POST("/config/reload", s.reloadConfig)

	s.engine.POST("/sessions", s.createSession)
	s.engine.GET("/sessions/:id/requestmap", s.requestMap)
	s.engine.DELETE("/sessions/:id", s.deleteSession)

	s.engine.POST("/sessions/:id/match", s.matchPolicy)
	s.engine.POST("/sessions/:id/tag", s.tagRequest)
	s.engine.POST("/sessions/:id/limit", s.stage(s.hubLimit))
	s.engine.POST("/sessions/:id/acl", s.stage(s.hubACL))
	s.engine.POST("/sessions/:id/contentfilter", s.stage(s.hubContentFilter))
	s.engine.POST("/sessions/:id/flow", s.stage(s.hubFlow))

	return s
}

// Run serves the API on `addr` until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Infof("api: listening on `%s`", addr)
	return s.engine.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) reloadConfig(c *gin.Context) {
	ok, lines := s.hub.InitConfig()
	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"ok": ok, "log": lines})
}

func (s *Server) createSession(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.abort(c, err)
		return
	}
	id, err := s.hub.SessionInit(body)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id.String()})
}

func (s *Server) requestMap(c *gin.Context) {
	doc, err := s.hub.SessionSerializeRequestMap(c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.hub.CleanSession(c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) matchPolicy(c *gin.Context) {
	summary, err := s.hub.SessionMatchSecurityPolicy(c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) tagRequest(c *gin.Context) {
	added, err := s.hub.SessionTagRequest(c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// stage adapts the decision-returning hub stages to a common handler shape.
func (s *Server) stage(f func(id string) (decision.Decision, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		dec, err := f(c.Param("id"))
		if err != nil {
			s.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, dec)
	}
}

func (s *Server) hubLimit(id string) (decision.Decision, error) {
	return s.hub.SessionLimitCheck(id)
}

func (s *Server) hubACL(id string) (decision.Decision, error) {
	status, err := s.hub.SessionACLCheck(id)
	if err != nil {
		return decision.Pass(), err
	}
	return status.Decision(), nil
}

func (s *Server) hubContentFilter(id string) (decision.Decision, error) {
	return s.hub.SessionContentFilterCheck(id)
}

func (s *Server) hubFlow(id string) (decision.Decision, error) {
	return s.hub.SessionFlowCheck(id)
}

// abort maps a session error to its HTTP status and terminates the request.
func (s *Server) abort(c *gin.Context, err error) {
	var malformedID *session.MalformedIDError
	var malformedDoc *session.MalformedDocumentError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &malformedID), errors.As(err, &malformedDoc):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrUnknownSession):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrPolicyNotMatched):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoMatchingPolicy):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, config.ErrNotLoaded):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
