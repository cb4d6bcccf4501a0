package relay

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/execstub"
	"github.com/danielpatrickdp/collapse-engine/internal/journal"
	"github.com/danielpatrickdp/collapse-engine/internal/logging"
)

const defaultListLimit = 50

// #region deps
// Deps are the collaborators the HTTP surface serves. Journal, Metrics and Hub are optional.
type Deps struct {
	Engine  *engine.Engine
	Runner  *execstub.Runner
	Journal *journal.Store
	Metrics http.Handler
	Hub     *Hub
}

// #endregion deps

// #region server
// Server is the gin router over one engine session.
type Server struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	router *gin.Engine
}

// NewServer builds the router. A nil hub gets one accepting opts.ClientURL.
func NewServer(deps Deps, opts Options, logger *zap.Logger) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("new server: engine is required")
	}
	if deps.Runner == nil {
		return nil, errors.New("new server: runner is required")
	}
	logger = logging.OrNop(logger)
	if deps.Hub == nil {
		deps.Hub = NewHub(opts.ClientURL, logger)
	}
	eng := deps.Engine
	deps.Hub.session = func() string { return eng.Snapshot().SessionID }

	s := &Server{deps: deps, opts: opts, logger: logger}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.deps.Hub
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(recovery(s.logger), requestLogger(s.logger), securityHeaders(), cors(s.opts.ClientURL))

	api := r.Group("/api")
	if s.opts.RateLimitRequests > 0 && s.opts.RateLimitWindow > 0 {
		api.Use(newRateLimiter(s.opts.RateLimitRequests, s.opts.RateLimitWindow).middleware())
	}
	api.GET("/health", s.health)
	api.GET("/session", s.session)
	api.POST("/session/input", s.input)
	api.POST("/session/collapse", s.collapse)
	api.POST("/session/reset", s.reset)
	api.GET("/session/collapses", s.collapses)
	api.GET("/session/decisions", s.decisions)
	api.POST("/execute", s.execute)

	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}
	r.GET("/ws", s.deps.Hub.ServeWS)
	return r
}

// #endregion server

// #region handlers
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Collapse engine API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) session(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Engine.Snapshot())
}

func (s *Server) input(c *gin.Context) {
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.deps.Engine.Input(*req.Text))
}

// collapse answers 409 when the gate refuses.
func (s *Server) collapse(c *gin.Context) {
	res := s.deps.Engine.ForceCollapse()
	status := http.StatusOK
	if res.Decision.Vetoed {
		status = http.StatusConflict
	}
	c.JSON(status, res)
}

func (s *Server) reset(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Engine.Reset())
}

func (s *Server) collapses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"collapses": s.deps.Engine.Collapses()})
}

func (s *Server) decisions(c *gin.Context) {
	if s.deps.Journal == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "journal disabled"})
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid limit", Message: err.Error()})
		return
	}
	sessionID := s.deps.Engine.Snapshot().SessionID
	entries, err := s.deps.Journal.ListDecisions(sessionID, limit)
	if err != nil {
		s.logger.Error("list decisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Something broke!", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "decisions": entries})
}

func (s *Server) execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	res, err := s.deps.Runner.Execute(c.Request.Context(), req.Code)
	switch {
	case errors.Is(err, execstub.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "code too large", Message: err.Error()})
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "execution aborted", Message: err.Error()})
	default:
		c.JSON(http.StatusOK, res)
	}
}

// #endregion handlers

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("parse limit %q: must be a positive integer", raw)
	}
	return n, nil
}
