// Package wsserver implements the HTTP/WS Surface (spec §4.6, §4.8, §6):
// WebSocket upgrade and subscription handshake, the snapshot/metrics/
// health HTTP endpoints, and static asset serving for the DEX feed.
package wsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/pricesim/feedsim/internal/simcore"
)

// idleTimeout bounds how long a session may hold an HTTP connection open
// between requests (spec §5): WS sessions are exempt once upgraded, since
// the connection is hijacked out of net/http's keep-alive machinery.
const idleTimeout = 30 * time.Second

// Config wires a Server to the shared core state of one feed process.
type Config struct {
	BindAddr     string
	FeedID       string // "dex_ticks" or "oracle_prices"
	WSPath       string // "/ws/ticks" or "/ws/prices"
	SnapshotPath string // "/prices/snapshot" or "/oracle/snapshot"
	StaticDir    string // non-empty enables "/", "/index.html", "/dual.html", "/debug.html" (DEX only)
	CORSOrigin   string

	Registry *simcore.Registry
	Snapshot *simcore.SnapshotStore
	Metrics  *simcore.Metrics
	Logger   *zap.Logger
}

// Server is the HTTP/WS Surface for one feed process.
type Server struct {
	cfg    Config
	server *http.Server
}

// New builds a Server bound to cfg.BindAddr. Call ListenAndServe to serve.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", cfg.Metrics.Handler())
	mux.HandleFunc(cfg.SnapshotPath, s.handleSnapshot)
	mux.HandleFunc(cfg.WSPath, s.handleWS)

	if cfg.StaticDir != "" {
		mux.HandleFunc("/", s.handleStatic("index.html"))
		mux.HandleFunc("/index.html", s.handleStatic("index.html"))
		mux.HandleFunc("/dual.html", s.handleStatic("dual.html"))
		mux.HandleFunc("/debug.html", s.handleStatic("debug.html"))
	} else {
		mux.HandleFunc("/", s.handleNotFound)
	}

	s.server = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.withCORS(mux),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: idleTimeout,
	}
	return s
}

// ListenAndServe blocks serving HTTP and WebSocket upgrades until the
// server is shut down or a fatal bind/accept error occurs.
func (s *Server) ListenAndServe() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections and returns once ctx expires
// or all in-flight non-hijacked requests complete.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	origin := s.cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.cfg.Snapshot.Snapshot(uint64(time.Now().UnixMilli()))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.cfg.Logger.Warn("snapshot encode failed", zap.Error(err))
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "Not found: %s", r.URL.Path)
}

func (s *Server) handleStatic(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/"+name {
			s.handleNotFound(w, r)
			return
		}
		path := filepath.Join(s.cfg.StaticDir, name)
		b, err := os.ReadFile(path)
		if err != nil {
			s.handleNotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}

// handleWS performs the subscription handshake (spec §4.6): upgrade,
// register the sink, enqueue the single subscription ack, and hand the
// connection off to its read/write pumps. It registers first to keep the
// sink reachable as early as possible; a broadcast that lands between
// registration and the ack enqueue reaches the client ahead of the ack.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.cfg.Logger.Debug("ws upgrade failed", zap.Error(err))
		return
	}

	sink := newWSSink(conn, s.cfg.Registry, s.cfg.Logger)
	s.cfg.Registry.Add(sink)

	ack, err := json.Marshal(simcore.NewSubscriptionAck(s.cfg.FeedID))
	if err != nil {
		s.cfg.Logger.Warn("subscription ack marshal failed", zap.Error(err))
	} else if err := sink.Send(ack); err != nil {
		s.cfg.Logger.Warn("subscription ack enqueue failed", zap.String("sink", sink.ID()), zap.Error(err))
	}

	sink.start()
}
