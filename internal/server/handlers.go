package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"aitasks/backend"
	"aitasks/backend/sync"
	"aitasks/internal/ai"
	"aitasks/internal/operations"
	"aitasks/internal/stats"
	"aitasks/internal/utils"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

type tasksResponse struct {
	Tasks []backend.Task `json:"tasks"`
}

// createRequest accepts either free text (parsed by the gateway unless
// useAi is false) or an explicit draft.
type createRequest struct {
	Text  string `json:"text,omitempty"`
	UseAI *bool  `json:"useAi,omitempty"`
	backend.TaskDraft
}

type parseRequest struct {
	Text string `json:"text"`
}

type statsResponse struct {
	stats.TaskStats
	Streak int `json:"streak"`
}

type analyticsResponse struct {
	stats.Analytics
	Trend      []stats.DayCount      `json:"trend"`
	Priorities []stats.PriorityCount `json:"priorities"`
	Statuses   []stats.StatusCount   `json:"statuses"`
	Weekly     []stats.WeekCount     `json:"weekly"`
}

type insightsResponse struct {
	Insights []ai.Insight `json:"insights"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"remote": s.repo.Describe("").RemoteAvailable,
		"ai":     s.gw.State().String(),
	})
}

// decodeBody decodes the JSON body, rejecting unknown fields.
func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// setRouteHeaders reports which store served the call.
func setRouteHeaders[T any](c echo.Context, res sync.Result[T]) {
	if res.Store != "" {
		c.Response().Header().Set(headerTaskStore, string(res.Store))
	}
	if res.Degraded() {
		c.Response().Header().Set(headerTaskDegraded, "true")
	}
}

// failure maps an unsuccessful result to an HTTP error.
func failure[T any](c echo.Context, res sync.Result[T]) error {
	if res.Status == sync.StatusNotFound {
		return errorJSON(c, http.StatusNotFound, backend.ErrNotFound)
	}
	return errorJSON(c, http.StatusServiceUnavailable, res.Cause)
}

// loadTasks fetches the caller's tasks and records the route headers.
func (s *Server) loadTasks(c echo.Context) (sync.Result[[]backend.Task], bool) {
	res := s.repo.GetTasks(c.Request().Context(), callerID(c))
	setRouteHeaders(c, res)
	return res, res.Succeeded()
}

func (s *Server) listTasks(c echo.Context) error {
	status, err := operations.ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	mode, err := operations.ParseSortMode(c.QueryParam("sort"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	res, ok := s.loadTasks(c)
	if !ok {
		return failure(c, res)
	}
	filter := operations.Filter{Status: status, FolderID: c.QueryParam("folder"), Tag: c.QueryParam("tag")}
	tasks := operations.View(c.Request().Context(), s.gw, res.Value, filter, mode)
	return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
}

func (s *Server) createTask(c echo.Context) error {
	var req createRequest
	if err := decodeBody(c, &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, errors.New("invalid body"))
	}
	ctx := c.Request().Context()

	var (
		res sync.Result[backend.Task]
		err error
	)
	if strings.TrimSpace(req.Text) != "" {
		opts := operations.CreateOptions{
			UseAI:       req.UseAI == nil || *req.UseAI,
			Priority:    req.Priority,
			Deadline:    req.Deadline,
			Tags:        req.Tags,
			FolderID:    req.FolderID,
			Description: req.Description,
		}
		res, err = operations.CreateFromText(ctx, s.repo, s.gw, callerID(c), req.Text, opts)
	} else {
		res, err = s.repo.AddTask(ctx, callerID(c), req.TaskDraft)
	}
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	setRouteHeaders(c, res)
	if !res.Succeeded() {
		return failure(c, res)
	}
	return c.JSON(http.StatusCreated, res.Value)
}

// patchRequest is a TaskPatch that tolerates the read-only task fields a
// client may echo back. They are decoded and dropped.
type patchRequest struct {
	backend.TaskPatch
	ID        string     `json:"id,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	UserID    string     `json:"userId,omitempty"`
}

func (s *Server) updateTask(c echo.Context) error {
	var req patchRequest
	if err := decodeBody(c, &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, errors.New("invalid body"))
	}
	patch := req.TaskPatch
	if patch.IsEmpty() {
		return errorJSON(c, http.StatusBadRequest, errors.New("empty patch"))
	}

	res, err := s.repo.UpdateTask(c.Request().Context(), callerID(c), c.Param("id"), patch)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	setRouteHeaders(c, res)
	if !res.Succeeded() {
		return failure(c, res)
	}
	return c.JSON(http.StatusOK, res.Value)
}

func (s *Server) deleteTask(c echo.Context) error {
	res := s.repo.DeleteTask(c.Request().Context(), callerID(c), c.Param("id"))
	setRouteHeaders(c, res)
	if !res.Succeeded() {
		return failure(c, res)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getStats(c echo.Context) error {
	res, ok := s.loadTasks(c)
	if !ok {
		return failure(c, res)
	}
	now := s.now()
	return c.JSON(http.StatusOK, statsResponse{
		TaskStats: stats.Compute(res.Value, now),
		Streak:    stats.Streak(res.Value, now),
	})
}

func (s *Server) getAnalytics(c echo.Context) error {
	res, ok := s.loadTasks(c)
	if !ok {
		return failure(c, res)
	}
	now := s.now()
	return c.JSON(http.StatusOK, analyticsResponse{
		Analytics:  stats.Analyze(res.Value, now),
		Trend:      stats.CompletionTrend(res.Value, now),
		Priorities: stats.PriorityDistribution(res.Value),
		Statuses:   stats.StatusDistribution(res.Value),
		Weekly:     stats.WeeklyOverview(res.Value, now),
	})
}

func (s *Server) parseTask(c echo.Context) error {
	var req parseRequest
	if err := decodeBody(c, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		return errorJSON(c, http.StatusBadRequest, errors.New("text is required"))
	}
	if !s.gw.IsAvailable() {
		return errorJSON(c, http.StatusServiceUnavailable, utils.ErrAINotConfigured())
	}
	parsed := s.gw.ParseTask(c.Request().Context(), req.Text)
	if parsed == nil {
		return errorJSON(c, http.StatusUnprocessableEntity, errors.New("unable to parse text"))
	}
	return c.JSON(http.StatusOK, parsed)
}

func (s *Server) rankTasks(c echo.Context) error {
	res, ok := s.loadTasks(c)
	if !ok {
		return failure(c, res)
	}
	return c.JSON(http.StatusOK, tasksResponse{Tasks: operations.RankView(c.Request().Context(), s.gw, res.Value)})
}

func (s *Server) getInsights(c echo.Context) error {
	res, ok := s.loadTasks(c)
	if !ok {
		return failure(c, res)
	}
	insights := s.gw.GenerateDailyInsights(c.Request().Context(), res.Value)
	if insights == nil {
		insights = []ai.Insight{}
	}
	return c.JSON(http.StatusOK, insightsResponse{Insights: insights})
}
