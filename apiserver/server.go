// Package apiserver is Atlas's HTTP transport: an echo-based server
// wiring the ingest, query, and workflowstore layers to the route
// table, with API-key authentication, request logging, and the single
// place that maps atlaserrors.Kind onto a wire status code.
package apiserver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"atlasgraph.dev/atlas/atlaserrors"
	"atlasgraph.dev/atlas/atlaslog"
	"atlasgraph.dev/atlas/ingest"
	"atlasgraph.dev/atlas/query"
	"atlasgraph.dev/atlas/workflowstore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// rawMessage is the wire representation of one array element accepted
// by the batch ingest endpoints, decoded lazily by the ingest package.
type rawMessage = json.RawMessage

func toRawMessages(payloads []rawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(payloads))
	copy(out, payloads)
	return out
}

func decodeJSON(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return atlaserrors.Wrap(atlaserrors.KindValidationFailure, err, "malformed JSON body")
	}
	return nil
}

func timeSinceStartSeconds(started time.Time) float64 {
	return time.Since(started).Seconds()
}

func workflowFilterFromQuery(c echo.Context) workflowstore.WorkflowFilter {
	return workflowstore.WorkflowFilter{
		ContextID: c.QueryParam("context_id"),
		IntentID:  c.QueryParam("intent_id"),
		Tag:       c.QueryParam("tag"),
	}
}

// Config configures the HTTP server.
type Config struct {
	Port            int
	BodyLimit       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64

	APIKey     string // empty disables authentication
	AuthHeader string // default "X-API-Key"
}

// DefaultConfig returns a Config with sensible defaults, mirroring the
// teacher's DefaultServerConfig.
func DefaultConfig() Config {
	return Config{
		Port:            8080,
		BodyLimit:       "10M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		RateLimit:       0,
		AuthHeader:      "X-API-Key",
	}
}

// Server bundles the echo instance with the components it routes to.
type Server struct {
	Echo *echo.Echo

	ingestor *ingest.Ingestor
	querier  *query.Querier
	workflows *workflowstore.Store
	cfg      Config
	logger   *logrus.Entry
	started  time.Time
}

// New constructs a Server wired with standard middleware and the full
// route table.
func New(cfg Config, ingestor *ingest.Ingestor, querier *query.Querier, workflows *workflowstore.Store, logger *logrus.Entry) *Server {
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "X-API-Key"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, cfg.AuthHeader},
		}))
	}
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	}

	s := &Server{
		Echo:      e,
		ingestor:  ingestor,
		querier:   querier,
		workflows: workflows,
		cfg:       cfg,
		logger:    logger,
		started:   time.Now(),
	}

	e.Use(requestLogMiddleware(logger))
	e.Use(apiKeyMiddleware(cfg.APIKey, cfg.AuthHeader))
	e.HTTPErrorHandler = s.errorHandler

	s.registerRoutes()
	return s
}

// apiKeyMiddleware validates the configured header against cfg.APIKey
// in constant time. When APIKey is empty, authentication is disabled
// and every request passes, matching the teacher's "skip if no API key
// configured" behavior.
func apiKeyMiddleware(apiKey, header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}
			key := c.Request().Header.Get(header)
			if key == "" || !hmac.Equal([]byte(key), []byte(apiKey)) {
				return atlaserrors.New(atlaserrors.KindAuthFailure, "missing or invalid API key")
			}
			return next(c)
		}
	}
}

func requestLogMiddleware(logger *logrus.Entry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if logger != nil {
				fields := atlaslog.RequestFields(
					c.Request().Method,
					c.Path(),
					c.Response().Status,
					time.Since(start),
					c.Response().Header().Get(echo.HeaderXRequestID),
				)
				logger.WithFields(fields).Info("request handled")
			}
			return err
		}
	}
}

// errorHandler is the only place in Atlas that maps an atlaserrors.Kind
// (or an echo.HTTPError) onto an HTTP status code.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	detail := "internal error"
	errCode := string(atlaserrors.KindInternal)

	if kind, ok := atlaserrors.KindOf(err); ok {
		errCode = string(kind)
		detail = err.Error()
		switch kind {
		case atlaserrors.KindAuthFailure:
			code = http.StatusUnauthorized
		case atlaserrors.KindNotFound:
			code = http.StatusNotFound
		case atlaserrors.KindValidationFailure, atlaserrors.KindReferentialIntegrity,
			atlaserrors.KindCapacityExceeded, atlaserrors.KindConflict:
			code = http.StatusBadRequest
		default:
			code = http.StatusInternalServerError
			detail = "internal error"
		}
	} else if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
			errCode = http.StatusText(code)
		}
	}

	if code == http.StatusInternalServerError {
		if s.logger != nil {
			s.logger.WithError(err).Error("internal error")
		}
		detail = "internal error"
	}

	if !c.Response().Committed {
		if werr := c.JSON(code, map[string]string{"error": errCode, "detail": detail}); werr != nil && s.logger != nil {
			s.logger.WithError(werr).Error("failed writing error response")
		}
	}
}

// Start runs the server, blocking until it stops or fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	return s.Echo.StartServer(srv)
}

// Shutdown gracefully stops the server, bounded by cfg.ShutdownTimeout.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.Echo.Shutdown(ctx)
}
