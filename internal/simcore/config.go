package simcore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Range is an inclusive [Min, Max] bound loaded from a two-key YAML
// mapping, mirroring the `{min, max}` shape used throughout the config
// schema (spec §6).
type Range[T any] struct {
	Min T `mapstructure:"min"`
	Max T `mapstructure:"max"`
}

// ServerConfig holds the fields shared by both the DEX and Oracle
// processes (spec §6).
type ServerConfig struct {
	Pairs            []string `mapstructure:"pairs"`
	PriceModel       string   `mapstructure:"price_model"`
	PriceStart       float64  `mapstructure:"price_start"`
	GbmMu            float64  `mapstructure:"gbm_mu"`
	GbmSigma         float64  `mapstructure:"gbm_sigma"`
	JumpLambda       float64  `mapstructure:"jump_lambda"`
	JumpMu           float64  `mapstructure:"jump_mu"`
	JumpSigma        float64  `mapstructure:"jump_sigma"`
	Seed             uint64   `mapstructure:"seed"`
	WsBind           string   `mapstructure:"ws_bind"`
	HTTPBind         string   `mapstructure:"http_bind"`
	CorsAllowOrigins []string `mapstructure:"cors_allow_origins"`
}

// DexConfig is the full configuration for the DEX simulator.
type DexConfig struct {
	Server ServerConfig `mapstructure:",squash"`

	DexTickMs              Range[uint64] `mapstructure:"dex_tick_ms"`
	DexWsJitterMs          Range[uint64] `mapstructure:"dex_ws_jitter_ms"`
	DexLatencyMs           Range[uint64] `mapstructure:"dex_latency_ms"`
	DexPDrop               float64       `mapstructure:"dex_p_drop"`
	DexPDup                float64       `mapstructure:"dex_p_dup"`
	DexPReorder            float64       `mapstructure:"dex_p_reorder"`
	DexBurstMode           bool          `mapstructure:"dex_burst_mode"`
	DexBurstOnMs           uint64        `mapstructure:"dex_burst_on_ms"`
	DexBurstOffMs          uint64        `mapstructure:"dex_burst_off_ms"`
	DexDisconnectWindowsMs []uint64      `mapstructure:"dex_disconnect_windows_ms"`
	DexStaleAfterMs        uint64        `mapstructure:"dex_stale_after_ms"`
}

// OracleConfig is the full configuration for the Oracle simulator.
type OracleConfig struct {
	Server ServerConfig `mapstructure:",squash"`

	OracleTickMs       Range[uint64] `mapstructure:"oracle_tick_ms"`
	OracleDeviationBps uint32        `mapstructure:"oracle_deviation_bps"`
	OracleHeartbeatMs  uint64        `mapstructure:"oracle_heartbeat_ms"`
	OracleWsJitterMs   Range[uint64] `mapstructure:"oracle_ws_jitter_ms"`
	OraclePDrop        float64       `mapstructure:"oracle_p_drop"`
	OraclePDup         float64       `mapstructure:"oracle_p_dup"`
	OraclePReorder     float64       `mapstructure:"oracle_p_reorder"`
	OracleStaleAfterMs uint64        `mapstructure:"oracle_stale_after_ms"`
}

func newYAMLViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("simcore: reading config %q: %w", path, err)
	}
	return v, nil
}

// LoadDexConfig reads and validates the DEX YAML config at path.
func LoadDexConfig(path string) (*DexConfig, error) {
	v, err := newYAMLViper(path)
	if err != nil {
		return nil, err
	}

	var cfg DexConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("simcore: decoding dex config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOracleConfig reads and validates the Oracle YAML config at path.
func LoadOracleConfig(path string) (*OracleConfig, error) {
	v, err := newYAMLViper(path)
	if err != nil {
		return nil, err
	}

	var cfg OracleConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("simcore: decoding oracle config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *DexConfig) validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if _, _, err := ParseBindAddress(c.Server.HTTPBind); err != nil {
		return fmt.Errorf("simcore: dex config: %w", err)
	}
	return nil
}

func (c *OracleConfig) validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if _, _, err := ParseBindAddress(c.Server.HTTPBind); err != nil {
		return fmt.Errorf("simcore: oracle config: %w", err)
	}
	return nil
}

func (c ServerConfig) validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("simcore: config: pairs must not be empty")
	}
	if c.PriceModel != "gbm" && c.PriceModel != "jump_diffusion" {
		return fmt.Errorf("simcore: config: unknown price_model %q", c.PriceModel)
	}
	if c.PriceStart <= 0 {
		return fmt.Errorf("simcore: config: price_start must be positive")
	}
	return nil
}

// ParseBindAddress splits a "host:port" bind address, returning a
// configuration error for anything else (spec §6, §8 scenario 6).
func ParseBindAddress(bindAddr string) (host string, port uint16, err error) {
	idx := strings.LastIndex(bindAddr, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("simcore: invalid bind address %q: missing ':'", bindAddr)
	}
	host = bindAddr[:idx]
	portStr := bindAddr[idx+1:]
	p, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("simcore: invalid bind address %q: bad port: %w", bindAddr, err)
	}
	return host, uint16(p), nil
}
