package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"unichat-router/internal/config"
	"unichat-router/internal/models"
	"unichat-router/internal/router"
	"unichat-router/internal/translator"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 120 * time.Second
	idleTimeout         = 120 * time.Second

	msgInvalidMessages  = "Missing or invalid messages array"
	msgAllFailed        = "All AI providers failed"
	msgMethodNotAllowed = "Method not allowed"
)

// ChatRouter is the routing behaviour the HTTP surface depends on.
type ChatRouter interface {
	Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*router.RouteResult, error)
}

type Server struct {
	cfg     config.Config
	router  ChatRouter
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, rt ChatRouter) (*Server, error) {
	if rt == nil {
		return nil, errors.New("router must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	e.Pre(corsMiddleware)

	srv := &Server{
		cfg:     cfg,
		router:  rt,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	for _, path := range []string{"/api/unified", "/api/ai/chat"} {
		s.app.POST(path, s.handleUnifiedChat)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware allows all origins and answers preflights itself with an
// empty 200, the behaviour browser clients of the unified endpoint expect.
func corsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowOrigin, "*")
		h.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
		h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")

		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusOK)
		}
		return next(c)
	}
}

func (s *Server) handleUnifiedChat(c echo.Context) error {
	var req translator.ChatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	res, err := s.router.Chat(c.Request().Context(), req.ToMessages(), req.ToParams())
	if err != nil {
		return routeFailure(c, err)
	}

	return c.JSON(http.StatusOK, translator.FromRouteResult(res))
}

// routeFailure maps router errors onto the documented failure bodies: an
// exhausted chain reports the last provider's error as details, while a
// single-attempt failure names the provider that was tried.
func routeFailure(c echo.Context, err error) error {
	var attemptErr *router.AttemptError
	if errors.As(err, &attemptErr) {
		return c.JSON(http.StatusInternalServerError, errorBody{
			Error:    attemptErr.Err.Error(),
			Provider: attemptErr.Provider.String(),
		})
	}

	var exhErr *router.ExhaustionError
	if errors.As(err, &exhErr) {
		return c.JSON(http.StatusInternalServerError, errorBody{
			Error:   msgAllFailed,
			Details: exhErr.Last.Error(),
		})
	}

	slog.Error("unexpected routing failure", "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	if err := json.NewDecoder(req.Body).Decode(target); err != nil {
		if errors.Is(err, translator.ErrInvalidMessages) || errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: msgInvalidMessages,
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

// errorBody is the flat error shape of the unified endpoint.
type errorBody struct {
	Error    string `json:"error"`
	Provider string `json:"provider,omitempty"`
	Details  string `json:"details,omitempty"`
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = c.JSON(reqErr.Status, errorBody{Error: reqErr.Message})
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Code {
		case http.StatusMethodNotAllowed:
			_ = c.JSON(httpErr.Code, errorBody{Error: msgMethodNotAllowed})
		case http.StatusNotFound:
			_ = c.JSON(httpErr.Code, errorBody{Error: "Not found"})
		default:
			_ = c.JSON(httpErr.Code, errorBody{Error: fmt.Sprintf("%v", httpErr.Message)})
		}
		return
	}

	_ = c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}
