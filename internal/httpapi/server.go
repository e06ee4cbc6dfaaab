// Package httpapi exposes the pipeline modes over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/logger"
	"lingua-flow-go/internal/pipeline"
)

// multipartOverhead is allowed on top of the upload ceiling for form boundaries and fields.
const multipartOverhead int64 = 1 << 20

// Runner executes one pipeline invocation.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// LanguageCatalog lists the accepted speech-recognition tags.
type LanguageCatalog interface {
	Supported() []string
	Default() string
}

type Options struct {
	Addr                     string
	MaxUploadBytes           int64
	SpeechRecognitionEnabled bool
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	IdleTimeout              time.Duration
}

type Server struct {
	echo      *echo.Echo
	srv       *http.Server
	log       *logger.Logger
	runner    Runner
	languages LanguageCatalog
	opts      Options
}

func NewServer(log *logger.Logger, runner Runner, languages LanguageCatalog, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Minute
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 120 * time.Second
	}
	if log == nil {
		log = logger.New()
	}

	s := &Server{
		echo:      echo.New(),
		log:       log,
		runner:    runner,
		languages: languages,
		opts:      opts,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.requestContext)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.FromContext(c.Request().Context(), s.log.Entry).WithFields(logrus.Fields{
				"status":      v.Status,
				"uri":         v.URI,
				"duration_ms": v.Latency.Milliseconds(),
			})
			if v.Status >= http.StatusInternalServerError {
				entry.Warn("request completed")
			} else {
				entry.Info("request completed")
			}
			return nil
		},
	}))
	if opts.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Limit: byteLimit(opts.MaxUploadBytes + multipartOverhead),
		}))
	}

	s.routes()

	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      e,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/languages", s.handleLanguages)

	for _, r := range modeRoutes {
		s.echo.POST(r.path, s.modeHandler(r))
	}
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.opts.Addr).Info("listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server using the given context.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// requestContext resolves the request id, echoes it back and stores a request-scoped
// log entry in the request context.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id := logger.RequestID(req)
		c.Response().Header().Set(logger.RequestIDHeader, id)
		entry := s.log.WithRequestID(req, id)
		c.SetRequest(req.WithContext(logger.WithContext(req.Context(), entry)))
		return next(c)
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := "Internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		logger.FromContext(c.Request().Context(), s.log.Entry).WithField("error", err.Error()).Error("unhandled error")
	}
	if code == http.StatusRequestEntityTooLarge {
		message = "File is too large"
	}
	if writeErr := writeError(c, code, message); writeErr != nil {
		logger.FromContext(c.Request().Context(), s.log.Entry).WithField("error", writeErr.Error()).Error("failed to write response")
	}
}

func byteLimit(n int64) string {
	return strconv.FormatInt(n, 10) + "B"
}
