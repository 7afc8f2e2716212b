package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorhill/cronexpr"
	"github.com/labstack/echo/v4"

	"github.com/customercompass/compass/internal/queue/streams"
	"github.com/customercompass/compass/internal/scheduler"
	"github.com/customercompass/compass/internal/store"
	"github.com/customercompass/compass/models"
)

type MonitorsHandler struct {
	Store     *store.Store
	Publisher *streams.Publisher
	Registry  *scheduler.Registry
	Stream    string
}

func (h *MonitorsHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/report", h.report)
	g.POST("/:id/run", h.run)
}

func (h *MonitorsHandler) list(c echo.Context) error {
	userID := c.Get("user_id").(int64)
	items, err := h.Store.ListMonitors(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []models.Monitor{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *MonitorsHandler) create(c echo.Context) error {
	userID := c.Get("user_id").(int64)
	var req struct {
		Organizations []string `json:"organizations"`
		Areas         []string `json:"areas_of_interest"`
		RecencyDays   int      `json:"recency_days"`
		Schedule      string   `json:"schedule"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Organizations = cleanTerms(req.Organizations)
	req.Areas = cleanTerms(req.Areas)
	if len(req.Organizations) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one organization required")
	}
	if len(req.Areas) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one area of interest required")
	}
	if req.RecencyDays < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "recency_days must be >= 0")
	}
	if req.Schedule != "" && !validCron(req.Schedule) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule expression")
	}

	ctx := c.Request().Context()
	id, err := h.Store.CreateMonitor(ctx, userID, req.RecencyDays, req.Schedule, req.Organizations, req.Areas)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if req.Schedule != "" {
		if err := h.Registry.Create(ctx, id, req.Schedule); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	// every new monitor gets an immediate first run
	if _, err := h.Publisher.PublishTrigger(ctx, h.Stream, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]int64{"monitor_id": id})
}

func (h *MonitorsHandler) delete(c echo.Context) error {
	userID := c.Get("user_id").(int64)
	id, err := monitorID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.Registry.Delete(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Store.DeleteMonitor(ctx, id, userID); err != nil {
		if errors.Is(err, models.ErrMonitorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "monitor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MonitorsHandler) report(c echo.Context) error {
	userID := c.Get("user_id").(int64)
	id, err := monitorID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.Store.GetMonitorConfig(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrMonitorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "monitor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if m.UserID != userID {
		return echo.NewHTTPError(http.StatusNotFound, "monitor not found")
	}
	rep, err := h.Store.LatestReport(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrMonitorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no report yet")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *MonitorsHandler) run(c echo.Context) error {
	userID := c.Get("user_id").(int64)
	id, err := monitorID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.Store.GetMonitorConfig(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrMonitorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "monitor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if m.UserID != userID {
		return echo.NewHTTPError(http.StatusNotFound, "monitor not found")
	}
	if _, err := h.Publisher.PublishTrigger(ctx, h.Stream, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

func monitorID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid monitor id")
	}
	return id, nil
}

func cleanTerms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validCron(spec string) bool {
	if spec == "@daily" || spec == "@hourly" {
		return true
	}
	_, err := cronexpr.Parse(spec)
	return err == nil
}
