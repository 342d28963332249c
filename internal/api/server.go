// Package api exposes the standalone host over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dirtybits/agent-reputation-oracle/internal/common"
	"github.com/dirtybits/agent-reputation-oracle/internal/events"
	"github.com/dirtybits/agent-reputation-oracle/internal/host"
	"github.com/dirtybits/agent-reputation-oracle/internal/kvstore"
	"github.com/dirtybits/agent-reputation-oracle/internal/ledger"
)

type Server struct {
	host   *host.Host
	hub    *events.Hub
	replay *replayGuard
	now    func() time.Time
}

func NewServer(h *host.Host, hub *events.Hub) *Server {
	replay, err := newReplayGuard(ReplayCacheSize)
	if err != nil {
		common.Log.Panicf("failed to create replay cache; %s", err.Error())
	}
	return &Server{host: h, hub: hub, replay: replay, now: time.Now}
}

// Engine returns a gin engine with the API installed.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	s.InstallAPI(r)
	return r
}

// InstallAPI registers the oracle API handlers with gin
func (s *Server) InstallAPI(r *gin.Engine) {
	r.GET("/api/v1/status", s.statusHandler)
	r.POST("/api/v1/instructions/:name", s.submitHandler)
	r.GET("/api/v1/accounts/:kind", s.listAccountsHandler)
	r.GET("/api/v1/accounts/:kind/:address", s.accountDetailsHandler)
	r.GET("/api/v1/derive/:kind", s.deriveHandler)
	if s.hub != nil {
		r.GET("/api/v1/events", gin.WrapH(s.hub))
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		common.Log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) statusHandler(c *gin.Context) {
	subscribers := 0
	if s.hub != nil {
		subscribers = s.hub.Subscribers()
	}
	c.JSON(http.StatusOK, gin.H{
		"instructions": host.Instructions(),
		"kinds":        ledger.Kinds,
		"subscribers":  subscribers,
	})
}

// submit a signed instruction
func (s *Server) submitHandler(c *gin.Context) {
	buf, err := c.GetRawData()
	if err != nil {
		renderError(c, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := VerifyRequest(c.Request, buf, s.now())
	if err != nil {
		renderError(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.replay.admit(c.Request); err != nil {
		renderError(c, http.StatusConflict, err.Error())
		return
	}

	receipt, err := s.host.Submit(c.Request.Context(), caller, c.Param("name"), buf)
	if err != nil {
		renderErr(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// list accounts of a kind; every query parameter is an equality filter
func (s *Server) listAccountsHandler(c *gin.Context) {
	kind, ok := ledger.ParseKind(c.Param("kind"))
	if !ok {
		renderError(c, http.StatusNotFound, "unknown account kind")
		return
	}
	query := c.Request.URL.Query()
	fields := make([]string, 0, len(query))
	for field := range query {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	filters := make([]ledger.Filter, 0, len(fields))
	for _, field := range fields {
		filters = append(filters, ledger.Filter{Field: field, Value: query.Get(field)})
	}

	accounts, err := s.host.List(kind, filters...)
	if err != nil {
		renderErr(c, err)
		return
	}
	c.Header("X-Total-Results-Count", strconv.Itoa(len(accounts)))
	c.JSON(http.StatusOK, accounts)
}

// fetch one account
func (s *Server) accountDetailsHandler(c *gin.Context) {
	kind, ok := ledger.ParseKind(c.Param("kind"))
	if !ok {
		renderError(c, http.StatusNotFound, "unknown account kind")
		return
	}
	account, err := s.host.Fetch(kind, c.Param("address"))
	if err != nil {
		renderErr(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", account)
}

// derive the address of an account from its seeds, given in order as
// repeated seed query parameters
func (s *Server) deriveHandler(c *gin.Context) {
	kind, ok := ledger.ParseKind(c.Param("kind"))
	if !ok {
		renderError(c, http.StatusNotFound, "unknown account kind")
		return
	}
	seeds := c.QueryArray("seed")
	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"seeds":   seeds,
		"address": ledger.Derive(kind, seeds...),
	})
}

type apiError struct {
	Code    string `json:"code,omitempty"`
	Class   string `json:"class,omitempty"`
	Message string `json:"message"`
}

func renderError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"errors": []apiError{{Message: message}}})
}

// renderErr maps host and ledger errors to a status and renders them.
func renderErr(c *gin.Context, err error) {
	var le *ledger.Error
	if errors.As(err, &le) {
		c.JSON(StatusFor(err), gin.H{"errors": []apiError{{
			Code:    le.Code,
			Class:   string(le.Class),
			Message: le.Message,
		}}})
		return
	}
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		common.Log.Warningf("failed to serve %s %s; %s", c.Request.Method, c.Request.URL.Path, err.Error())
	}
	renderError(c, status, err.Error())
}

// StatusFor returns the HTTP status for an instruction or read failure.
func StatusFor(err error) int {
	var le *ledger.Error
	switch {
	case errors.As(err, &le):
		switch le.Class {
		case ledger.ClassValidation:
			return http.StatusBadRequest
		case ledger.ClassPrecondition:
			return http.StatusConflict
		case ledger.ClassResource:
			return http.StatusPaymentRequired
		case ledger.ClassNotFound:
			return http.StatusNotFound
		}
	case errors.Is(err, kvstore.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, host.ErrUnknownInstruction):
		return http.StatusNotFound
	case errors.Is(err, host.ErrInvalidArgs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, host.ErrNoCaller):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
