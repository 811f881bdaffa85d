// internal/api/v2/api.go
package api

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/errors"
	"github.com/tablevox/prefsel/internal/logging"
	"github.com/tablevox/prefsel/internal/selection"
)

// Controller manages the API routes and handlers. It is a thin formatting
// layer: all decision logic lives in the selection orchestrator, the
// controller only owns the transport envelope and status-code mapping.
type Controller struct {
	Echo         *echo.Echo
	Group        *echo.Group
	Orchestrator *selection.Orchestrator
	Settings     *conf.Settings

	apiLogger *slog.Logger
	registry  *prometheus.Registry
}

// New creates the API controller and registers all routes.
func New(settings *conf.Settings, orchestrator *selection.Orchestrator, promRegistry *prometheus.Registry) *Controller {
	e := echo.New()
	e.HideBanner = true

	c := &Controller{
		Echo:         e,
		Orchestrator: orchestrator,
		Settings:     settings,
		apiLogger:    logging.ForService("api"),
		registry:     promRegistry,
	}

	e.Use(middleware.Recover())
	e.Use(c.loggingMiddleware())

	c.Group = e.Group("/api/v2")
	c.initRoutes()

	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	if c.registry != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})))
	}

	c.initSelectionRoutes()
	c.initVocabularyRoutes()
}

// Start begins listening on the configured port. Blocks until shutdown.
func (c *Controller) Start() error {
	return c.Echo.Start(":" + c.Settings.WebServer.Port)
}

// Shutdown gracefully stops the HTTP server.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

// HealthCheck handles GET /api/v2/health
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// loggingMiddleware logs every request through the structured API logger.
func (c *Controller) loggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			c.apiLogger.Info("request",
				"method", ctx.Request().Method,
				"path", ctx.Request().URL.Path,
				"status", ctx.Response().Status,
				"ip", ctx.RealIP(),
				"elapsed_ms", time.Since(start).Milliseconds())
			return err
		}
	}
}

// ErrorResponse is the standard structure for API error responses
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a unique identifier for error tracking
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// statusForError maps the engine's error taxonomy onto HTTP status codes.
// This mapping lives only here; the engine itself never decides HTTP codes.
func statusForError(err error) int {
	switch errors.CategoryOf(err) {
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryDuplicateName:
		return http.StatusConflict
	case errors.CategoryInvalidInput:
		return http.StatusBadRequest
	case errors.CategoryClassifierUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	code := statusForError(err)
	errorResp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("API Error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", err,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())

	return ctx.JSON(code, errorResp)
}
