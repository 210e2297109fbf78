package simcore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDexYAML = `
pairs: ["ETH/USD"]
price_model: gbm
price_start: 3500.0
gbm_mu: 0.0
gbm_sigma: 2.0
jump_lambda: 0.0
jump_mu: 0.0
jump_sigma: 0.0
seed: 42
ws_bind: "127.0.0.1:9101"
http_bind: "127.0.0.1:9101"
cors_allow_origins: ["*"]
dex_tick_ms: {min: 900, max: 1100}
dex_ws_jitter_ms: {min: 5, max: 30}
dex_latency_ms: {min: 5, max: 30}
dex_p_drop: 0.0
dex_p_dup: 0.0
dex_p_reorder: 0.0
dex_burst_mode: false
dex_burst_on_ms: 100
dex_burst_off_ms: 2000
dex_disconnect_windows_ms: []
dex_stale_after_ms: 5000
`

func TestLoadDexConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dex.yaml")
	if err := os.WriteFile(path, []byte(testDexYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadDexConfig(path)
	if err != nil {
		t.Fatalf("LoadDexConfig: %v", err)
	}
	if cfg.Server.Seed != 42 || cfg.Server.PriceStart != 3500.0 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.DexTickMs.Min != 900 || cfg.DexTickMs.Max != 1100 {
		t.Fatalf("unexpected dex_tick_ms: %+v", cfg.DexTickMs)
	}
}

func TestLoadDexConfig_BadBindAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dex.yaml")
	bad := strings.Replace(testDexYAML, `http_bind: "127.0.0.1:9101"`, `http_bind: "invalid"`, 1)
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadDexConfig(path); err == nil {
		t.Fatalf("expected a config error for an invalid bind address")
	}
}

func TestParseBindAddress(t *testing.T) {
	host, port, err := ParseBindAddress("127.0.0.1:9101")
	if err != nil || host != "127.0.0.1" || port != 9101 {
		t.Fatalf("got host=%q port=%d err=%v", host, port, err)
	}

	if _, _, err := ParseBindAddress("invalid"); err == nil {
		t.Fatalf("expected error for address with no port")
	}
}
