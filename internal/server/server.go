package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"aitasks/backend/sync"
	"aitasks/internal/ai"
	"aitasks/internal/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	headerTaskStore    = "X-Task-Store"
	headerTaskDegraded = "X-Task-Degraded"
	callerKey          = "caller"
	maxBodySize        = "64K"
)

// Server exposes the task repository over HTTP.
type Server struct {
	echo   *echo.Echo
	repo   *sync.Repository
	gw     *ai.Gateway
	auth   Authenticator
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithClock overrides the time source used for stats.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger overrides the request logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New builds the server. auth may be nil, in which case requests carrying
// an Authorization header are rejected and all others are anonymous.
func New(repo *sync.Repository, gw *ai.Gateway, auth Authenticator, opts ...Option) *Server {
	s := &Server{
		echo:   echo.New(),
		repo:   repo,
		gw:     gw,
		auth:   auth,
		logger: utils.GetLogger().Logrus(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit(maxBodySize))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{headerTaskStore, headerTaskDegraded},
	}))
	s.echo.Use(s.requestLogger())
	s.register()
	return s
}

func (s *Server) register() {
	s.echo.GET("/healthz", s.healthz)

	api := s.echo.Group("/api", s.authenticate)
	api.GET("/tasks", s.listTasks)
	api.POST("/tasks", s.createTask)
	api.PATCH("/tasks/:id", s.updateTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.GET("/stats", s.getStats)
	api.GET("/analytics", s.getAnalytics)
	api.POST("/parse", s.parseTask)
	api.GET("/rank", s.rankTasks)
	api.GET("/insights", s.getInsights)
	api.GET("/stream", s.streamTasks)
}

// Handler returns the HTTP handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	utils.Infof("Listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// authenticate resolves the caller id. A request without an Authorization
// header is anonymous and is served by the local store.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			// EventSource cannot set headers
			if token := c.QueryParam("token"); token != "" {
				header = "Bearer " + token
			}
		}
		if header == "" {
			c.Set(callerKey, "")
			return next(c)
		}
		if s.auth == nil {
			return errorJSON(c, http.StatusUnauthorized, utils.ErrUnauthenticated("token verification is not configured"))
		}
		userID, err := s.auth.UserIDFromAuthHeader(header)
		if err != nil {
			return errorJSON(c, http.StatusUnauthorized, utils.ErrUnauthenticated(err.Error()))
		}
		c.Set(callerKey, userID)
		return next(c)
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			s.logger.WithFields(log.Fields{
				"method":   c.Request().Method,
				"path":     c.Path(),
				"status":   c.Response().Status,
				"store":    c.Response().Header().Get(headerTaskStore),
				"duration": time.Since(start).String(),
			}).Debug("request")
			return nil
		}
	}
}

var errStreamUnsupported = errors.New("stream unsupported")

func callerID(c echo.Context) string {
	id, _ := c.Get(callerKey).(string)
	return id
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(c echo.Context, status int, err error) error {
	msg := err.Error()
	var ews *utils.ErrorWithSuggestion
	if errors.As(err, &ews) {
		msg = ews.Err.Error()
	}
	return c.JSON(status, errorResponse{Error: msg})
}
