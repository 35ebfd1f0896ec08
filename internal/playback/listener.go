package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// DefaultOrigin is the only page origin allowed to report positions by default.
const DefaultOrigin = "https://open.spotify.com"

const (
	updateType   = "playback_update"
	writeTimeout = 5 * time.Second
)

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithOrigins replaces the allowed page origins.
func WithOrigins(origins ...string) ListenerOption {
	return func(l *Listener) {
		l.origins = origins
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// Listener accepts playback position reports from a browser embed over a
// websocket and relays transport commands back to it.
type Listener struct {
	origins    []string
	onPosition func(positionMs int64)
	logger     *slog.Logger
	router     chi.Router

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

type updateMessage struct {
	Type    string `json:"type"`
	Payload *struct {
		Position *float64 `json:"position"`
	} `json:"payload"`
}

type commandMessage struct {
	Command string `json:"command"`
}

// NewListener returns a Listener calling onPosition for each accepted update.
func NewListener(onPosition func(positionMs int64), opts ...ListenerOption) *Listener {
	l := &Listener{
		origins:    []string{DefaultOrigin},
		onPosition: onPosition,
		logger:     slog.Default(),
		conns:      map[*websocket.Conn]struct{}{},
	}
	for _, o := range opts {
		o(l)
	}
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/playback", l.handlePlayback)
	l.router = r
	return l
}

// Handler returns the HTTP handler serving the listener routes.
func (l *Listener) Handler() http.Handler {
	return l.router
}

// Serve runs an HTTP server on addr until ctx is done.
func (l *Listener) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           l.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.logger.Warn("playback listener shutdown", "error", err)
		}
	}()
	l.logger.Info("playback listener started", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("playback listener: %w", err)
	}
	return nil
}

func (l *Listener) allowedOrigin(origin string) bool {
	for _, o := range l.origins {
		if origin == o {
			return true
		}
	}
	return false
}

func (l *Listener) handlePlayback(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !l.allowedOrigin(origin) {
		l.logger.Debug("rejected playback connection", "origin", origin)
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	// Origin already matched exactly; skip the library's same-host check.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		l.logger.Warn("playback websocket accept", "error", err)
		return
	}
	l.track(conn, true)
	defer l.track(conn, false)
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				l.logger.Debug("playback websocket read", "error", err)
			}
			return
		}
		if pos, ok := decodeUpdate(data); ok {
			l.onPosition(pos)
		}
	}
}

func decodeUpdate(data []byte) (int64, bool) {
	var msg updateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return 0, false
	}
	if msg.Type != updateType || msg.Payload == nil || msg.Payload.Position == nil {
		return 0, false
	}
	pos := *msg.Payload.Position
	if pos < 0 || pos >= math.MaxInt64 {
		return 0, false
	}
	return int64(pos), true
}

func (l *Listener) track(conn *websocket.Conn, add bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if add {
		l.conns[conn] = struct{}{}
		return
	}
	delete(l.conns, conn)
}

// Connected returns the number of connected embeds.
func (l *Listener) Connected() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// Broadcast sends a transport command to every connected embed.
func (l *Listener) Broadcast(ctx context.Context, command string) error {
	data, err := json.Marshal(commandMessage{Command: command})
	if err != nil {
		return err
	}
	l.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	var errs []error
	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		if err := c.Write(wctx, websocket.MessageText, data); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	return errors.Join(errs...)
}

func (l *Listener) send(command string) {
	if err := l.Broadcast(context.Background(), command); err != nil {
		l.logger.Warn("playback command failed", "command", command, "error", err)
	}
}

// Play asks connected embeds to start playback.
func (l *Listener) Play() { l.send("play") }

// Pause asks connected embeds to pause.
func (l *Listener) Pause() { l.send("pause") }

// Toggle asks connected embeds to toggle playback.
func (l *Listener) Toggle() { l.send("toggle") }

// Restart asks connected embeds to seek to the start and play.
func (l *Listener) Restart() {
	l.send("seek_start")
	l.send("play")
}
