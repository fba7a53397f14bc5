package server

import (
	"net/http"

	"aitasks/backend"
	"aitasks/internal/utils"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// streamTasks sends the caller's full task list as server-sent events,
// once on connect and again after every change. Callers without a live
// subscription (anonymous, remote unavailable or no change feed) get a
// single snapshot.
func (s *Server) streamTasks(c echo.Context) error {
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return errorJSON(c, http.StatusInternalServerError, errStreamUnsupported)
	}
	ctx := c.Request().Context()
	caller := callerID(c)

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(headerTaskStore, string(s.repo.Route(caller)))

	if !s.repo.Live(caller) {
		return s.writeSnapshot(c, flusher, caller)
	}

	updates := make(chan []backend.Task, 1)
	dispose := s.repo.SubscribeToTasks(ctx, caller, func(tasks []backend.Task) {
		// keep only the newest list when the client is slow
		select {
		case <-updates:
		default:
		}
		updates <- tasks
	})
	defer dispose()

	c.Response().WriteHeader(http.StatusOK)
	if len(updates) == 0 {
		// the first delivery is synchronous; an empty channel means the
		// remote read failed, so start from the facade's answer
		res := s.repo.GetTasks(ctx, caller)
		if err := writeEvent(c, res.Value); err != nil {
			return nil
		}
	}
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return nil
		case tasks := <-updates:
			if err := writeEvent(c, tasks); err != nil {
				utils.Debugf("stream: client gone: %v", err)
				return nil
			}
			flusher.Flush()
		}
	}
}

func (s *Server) writeSnapshot(c echo.Context, flusher http.Flusher, caller string) error {
	res := s.repo.GetTasks(c.Request().Context(), caller)
	if res.Store != "" {
		c.Response().Header().Set(headerTaskStore, string(res.Store))
	}
	c.Response().WriteHeader(http.StatusOK)
	if err := writeEvent(c, res.Value); err != nil {
		utils.Debugf("stream: client gone: %v", err)
		return nil
	}
	flusher.Flush()
	return nil
}

func writeEvent(c echo.Context, tasks []backend.Task) error {
	if tasks == nil {
		tasks = []backend.Task{}
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return err
	}
	w := c.Response()
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
