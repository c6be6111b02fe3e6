package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/jmurray2011/parrot/internal/engine"
	perrors "github.com/jmurray2011/parrot/internal/errors"
	"github.com/jmurray2011/parrot/internal/stream"
	"github.com/jmurray2011/parrot/pkg/timeutil"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps the engine error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, perrors.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, perrors.ErrNoMatchingFile):
		return http.StatusNotFound
	case errors.Is(err, stream.ErrSessionLimit):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	kind := stream.ErrorKind(err)
	if errors.Is(err, stream.ErrSessionLimit) {
		kind = "session_limit"
	}
	return c.JSON(statusFor(err), errorResponse{Error: err.Error(), Kind: kind})
}

// readLog serves GET /read_log?lines=&filter=&log_override=.
func (s *Server) readLog(c echo.Context) error {
	lines, err := engine.ParseLines(c.QueryParam("lines"))
	if err != nil {
		s.opts.Metrics.ObserveRead(err)
		return writeError(c, err)
	}

	result, err := s.opts.Engine.Read(c.Request().Context(), engine.ReadRequest{
		Lines:    lines,
		Filter:   c.QueryParam("filter"),
		Override: c.QueryParam("log_override"),
	})
	s.opts.Metrics.ObserveRead(err)
	if err != nil {
		s.log.Warn("read failed", "err", err)
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// sessionOptions parses the streaming query parameters. Everything is
// validated before a session is opened.
func (s *Server) sessionOptions(c echo.Context) (stream.Options, error) {
	opts := stream.Options{
		Peer:     c.RealIP(),
		Interval: s.opts.Interval,
		Override: c.QueryParam("log_override"),
		Filter:   c.QueryParam("filter"),
		Mode:     s.opts.Mode,
		Lines:    s.opts.Lines,

		MinInterval: s.opts.MinInterval,
	}

	if raw := c.QueryParam("interval"); raw != "" {
		d, err := timeutil.ParseInterval(raw)
		if err != nil {
			return opts, perrors.InvalidArgument("interval", raw, err.Error())
		}
		opts.Interval = d
	}
	opts.Interval = timeutil.ClampInterval(opts.Interval, s.opts.MinInterval)

	if raw := c.QueryParam("mode"); raw != "" {
		mode, err := stream.ParseMode(raw)
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
	}
	return opts, nil
}

// openSession validates the request and registers a session bound to ctx.
// The returned release func must be called when the stream ends.
func (s *Server) openSession(ctx context.Context, c echo.Context) (*stream.Session, func(), error) {
	opts, err := s.sessionOptions(c)
	if err != nil {
		return nil, nil, err
	}

	release := func() {}
	if s.opts.Watcher != nil {
		wake, cancel := s.opts.Watcher.Subscribe()
		opts.Wake = wake
		release = cancel
	}

	session, err := s.opts.Registry.Open(ctx, opts)
	if err != nil {
		release()
		return nil, nil, err
	}
	return session, release, nil
}

// watchLog serves GET /watch_log as a server-sent event stream. Each line is
// one "data:" frame; a session failure sends a final "error" event.
func (s *Server) watchLog(c echo.Context) error {
	ctx := c.Request().Context()
	session, release, err := s.openSession(ctx, c)
	if err != nil {
		return writeError(c, err)
	}
	defer release()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	err = session.Run(ctx, func(ev stream.Event) error {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", ev.Line); err != nil {
			return err
		}
		w.Flush()
		return nil
	})
	if err != nil {
		_, _ = fmt.Fprintf(w, "event: error\ndata: %s\n\n", oneLine(err))
		w.Flush()
	}
	return nil
}

// watchLogWebsocket serves GET /ws/watch_log: one text message per line and
// a close frame when the session ends.
func (s *Server) watchLogWebsocket(c echo.Context) error {
	// Validate before upgrading so bad requests still get a JSON error
	if _, err := s.sessionOptions(c); err != nil {
		return writeError(c, err)
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// The read side only watches for the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	session, release, err := s.openSession(ctx, c)
	if err != nil {
		s.closeWebsocket(conn, websocket.CloseTryAgainLater, err)
		return nil
	}
	defer release()

	err = session.Run(ctx, func(ev stream.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, []byte(ev.Line))
	})
	if err != nil {
		s.closeWebsocket(conn, websocket.CloseInternalServerErr, err)
	} else {
		s.closeWebsocket(conn, websocket.CloseNormalClosure, nil)
	}
	return nil
}

func (s *Server) closeWebsocket(conn *websocket.Conn, code int, err error) {
	text := ""
	if err != nil {
		text = closeReason(err)
	}
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// maxCloseReason fits a close frame's 125 byte payload after the status code.
const maxCloseReason = 120

// closeReason is the first line of err cut to fit a close frame. The cut lands
// on a rune boundary so the reason stays valid UTF-8.
func closeReason(err error) string {
	text := oneLine(err)
	if len(text) <= maxCloseReason {
		return text
	}
	cut := maxCloseReason
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// oneLine keeps only the first line of an error so it fits one SSE frame.
func oneLine(err error) string {
	first, _, _ := strings.Cut(err.Error(), "\n")
	return first
}
