package wsserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pricesim/feedsim/internal/simcore"
)

func startTestServer(t *testing.T, cfg Config) (*httptest.Server, Config) {
	t.Helper()
	if cfg.Registry == nil {
		cfg.Registry = simcore.NewRegistry()
	}
	if cfg.Snapshot == nil {
		cfg.Snapshot = simcore.NewSnapshotStore()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = simcore.NewMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.WSPath == "" {
		cfg.WSPath = "/ws/ticks"
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = "/prices/snapshot"
	}
	if cfg.FeedID == "" {
		cfg.FeedID = "dex_ticks"
	}

	s := New(cfg)
	server := httptest.NewServer(s.server.Handler)
	t.Cleanup(server.Close)
	return server, cfg
}

func dialWS(t *testing.T, serverURL, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServer_SubscriptionHandshake(t *testing.T) {
	server, cfg := startTestServer(t, Config{FeedID: "dex_ticks"})
	conn := dialWS(t, server.URL, "/ws/ticks")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading ack: %v", err)
	}

	var ack simcore.SubscriptionAck
	if err := json.Unmarshal(msg, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Type != "subscription" || ack.ID != "dex_ticks" || ack.Status != "subscribed" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if cfg.Registry.Len() == 0 {
		t.Fatalf("expected sink registered after upgrade")
	}
}

func TestServer_BroadcastReachesSubscriber(t *testing.T) {
	server, cfg := startTestServer(t, Config{FeedID: "dex_ticks"})
	conn := dialWS(t, server.URL, "/ws/ticks")

	// Drain the subscription ack first.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("reading ack: %v", err)
	}

	b := simcore.NewBroadcaster(cfg.Registry, cfg.Snapshot, cfg.Metrics, zap.NewNop())
	tick := simcore.PriceTick{TS: 1, Pair: "ETH/USD", Price: 3500, Source: simcore.SourceDex, SrcSeq: 1}

	// Broadcast only reaches sinks already in the registry; wait briefly
	// for this one to appear rather than sleeping a fixed duration.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && cfg.Registry.Len() == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := b.Broadcast(tick); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading price frame: %v", err)
	}
	got, err := simcore.ParseFrame(msg)
	if err != nil {
		t.Fatalf("parse frame: %v", err)
	}
	if got.Price != 3500 || got.SrcSeq != 1 {
		t.Fatalf("unexpected tick: %+v", got)
	}
}

func TestServer_HealthzAndSnapshotAndCORS(t *testing.T) {
	server, cfg := startTestServer(t, Config{CORSOrigin: "*"})

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header on /healthz")
	}

	tick := simcore.PriceTick{TS: 1, Pair: "ETH/USD", Price: 42, Source: simcore.SourceDex, SrcSeq: 7}
	cfg.Snapshot.Put(tick)

	resp2, err := http.Get(server.URL + "/prices/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var snap simcore.PriceSnapshot
	if err := json.NewDecoder(resp2.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Prices) != 1 || snap.Prices[0].SrcSeq != 7 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestServer_NotFound(t *testing.T) {
	server, _ := startTestServer(t, Config{})

	resp, err := http.Get(server.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>index</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dual.html"), []byte("<html>dual</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	server, _ := startTestServer(t, Config{StaticDir: dir})

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for /, got %d", resp.StatusCode)
	}

	resp2, err := http.Get(server.URL + "/dual.html")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for /dual.html, got %d", resp2.StatusCode)
	}

	resp3, err := http.Get(server.URL + "/debug.html")
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing debug.html, got %d", resp3.StatusCode)
	}
}
