package api

import (
	"context"
	"net/http"
	"time"

	"VolSignals/internal/domain/models"
	"VolSignals/internal/usecase"
	xhttp "VolSignals/pkg/http"
	xlogger "VolSignals/pkg/logger"
	"VolSignals/pkg/util"

	"github.com/labstack/echo/v4"
)

// StatusProvider exposes the engine state.
type StatusProvider interface {
	Snapshot() usecase.Snapshot
}

// EventLister exposes recently emitted audit events.
type EventLister interface {
	Recent(limit int, kind models.EventKind, since time.Time) []models.AuditEvent
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// StatusEchoHandler serves the engine status API.
type StatusEchoHandler struct {
	logger *xlogger.Logger
	status StatusProvider
	events EventLister
	checks map[string]HealthCheck
}

func NewStatusEchoHandler(logger *xlogger.Logger, status StatusProvider, events EventLister, checks map[string]HealthCheck) *StatusEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &StatusEchoHandler{logger: logger, status: status, events: events, checks: checks}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/events", h.Events)
	e.GET("/healthz", h.Health)
}

func (h *StatusEchoHandler) Status(c echo.Context) error {
	if h.status == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("engine not running"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.status.Snapshot())
}

func (h *StatusEchoHandler) Events(c echo.Context) error {
	req := &models.EventsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var since time.Time
	if req.Since != "" {
		t, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid since %q", req.Since).WithParam("field", "since"))
		}
		since = t
	}
	if h.events == nil {
		return xhttp.ListResponse(c, []models.AuditEvent{}, 0)
	}
	rows := h.events.Recent(req.Limit, models.EventKind(req.Kind), since)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *StatusEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	rep := healthReport{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("check", name), xlogger.Error(err))
			rep.Checks[name] = err.Error()
			rep.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		rep.Checks[name] = "ok"
	}
	return xhttp.DataResponse(c, code, rep)
}
