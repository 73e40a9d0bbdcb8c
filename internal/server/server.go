package server

import (
	"embed"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/christian-bermeo-pci/plaid-webhooks/internal/plaid"
)

// RouteRegister registers Echo routes.
type RouteRegister interface {
	RegisterRoutes(s *echo.Echo)
}

// Server holds the Echo instance.
type Server struct {
	e *echo.Echo
}

// New creates a new server instance serving the embedded client page at /.
func New(log *slog.Logger, publicFS embed.FS) *Server {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Use(slogecho.New(log))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.HTTPErrorHandler = errorResponder(log)

	e.StaticFS("/", echo.MustSubFS(publicFS, "public"))

	return &Server{
		e: e,
	}
}

// errorResponder is the single place handler failures become HTTP responses.
// A Plaid error with a nested error object is relayed verbatim; everything
// else becomes the generic OTHER_ERROR envelope.
func errorResponder(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *plaid.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode != "" {
			log.Warn("Plaid call failed", "operation", apiErr.Operation, "error_code", apiErr.ErrorCode)
			if err := c.JSONBlob(http.StatusInternalServerError, apiErr.Body); err != nil {
				log.Error("Failed to write error response", "error", err)
			}
			return
		}

		status := http.StatusInternalServerError
		message := err.Error()
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			}
		}
		log.Warn("Request failed", "status", status, "error", err)
		if err := c.JSON(status, map[string]string{
			"error_code":    "OTHER_ERROR",
			"error_message": message,
		}); err != nil {
			log.Error("Failed to write error response", "error", err)
		}
	}
}

// RegisterRouter attaches a route registrar.
func (s *Server) RegisterRouter(r RouteRegister) {
	r.RegisterRoutes(s.e)
}

// Start runs the HTTP server.
func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
