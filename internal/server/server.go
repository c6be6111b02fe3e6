// Package server exposes the log engine over HTTP: a JSON bulk read, a
// server-sent event stream, a websocket stream, prometheus metrics and a
// health check.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmurray2011/parrot/internal/engine"
	"github.com/jmurray2011/parrot/internal/logging"
	"github.com/jmurray2011/parrot/internal/source"
	"github.com/jmurray2011/parrot/internal/stream"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Options wires the server to the engine.
type Options struct {
	Engine   *engine.Engine
	Registry *stream.Registry
	Metrics  *stream.Metrics

	// Gatherer serves /metrics. Nil uses the default prometheus registry.
	Gatherer prometheus.Gatherer

	Logger logging.Logger

	// Interval is the session pacing when a request gives none; requested
	// intervals below MinInterval are raised to it.
	Interval    time.Duration
	MinInterval time.Duration

	// Mode is the session mode when a request gives none.
	Mode stream.Mode

	// Lines is the per-tick window of streaming sessions.
	Lines int

	CORSOrigins []string

	// Watcher, when set, wakes sessions early on directory activity.
	Watcher *source.Watcher
}

// Server is the HTTP transport.
type Server struct {
	opts     Options
	echo     *echo.Echo
	log      logging.Logger
	upgrader websocket.Upgrader
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger{}
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Interval <= 0 {
		opts.Interval = stream.DefaultInterval
	}
	if opts.Mode == "" {
		opts.Mode = stream.ModeTail
	}
	if opts.Registry == nil {
		opts.Registry = stream.NewRegistry(opts.Engine, 0, opts.Logger, opts.Metrics)
	}

	s := &Server{
		opts: opts,
		log:  opts.Logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(s.log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	e.GET("/read_log", s.readLog)
	e.GET("/watch_log", s.watchLog)
	e.GET("/ws/watch_log", s.watchLogWebsocket)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	e.GET("/healthz", s.healthz)

	s.echo = e
	return s
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is done, then shuts down gracefully. Open
// streams end with ctx because every request context derives from it.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.echo.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.opts.Registry.Stats(),
	})
}

// checkOrigin applies the CORS allow list to websocket upgrades.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// requestLogger logs completed requests at debug level.
func requestLogger(log logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("request",
				"remote_ip", c.RealIP(),
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	})
}
