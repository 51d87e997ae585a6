package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Variant describes one flavour of blackjack session.
type Variant struct {
	ID string `json:"id"`
	// DealMin and DealMax bound the number of cards each hand receives in the
	// opening deal. Equal values give a fixed deal.
	DealMin      int `json:"deal_min"`
	DealMax      int `json:"deal_max"`
	ActionCap    int `json:"action_cap"`
	HistoryLimit int `json:"history_limit"`
}

// EngineConfig holds tunables for the session engine, its store and the dealer advisor.
type EngineConfig struct {
	DefaultVariant string    `json:"default_variant"`
	Variants       []Variant `json:"variants"`

	SessionTTLSeconds    int `json:"session_ttl_seconds"`
	FinishedGraceSeconds int `json:"finished_grace_seconds"`
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`
	MaxSessions          int `json:"max_sessions"`

	OracleURL            string  `json:"oracle_url"`
	OracleAPIKey         string  `json:"-"`
	OracleModel          string  `json:"oracle_model"`
	OracleTimeoutSeconds float64 `json:"oracle_timeout_seconds"`
	OracleRatePerSecond  float64 `json:"oracle_rate_per_second"`
	OracleBurst          int     `json:"oracle_burst"`

	// MetricsAddr enables a Prometheus listener when non-empty.
	MetricsAddr string `json:"metrics_addr"`
}

const (
	VariantClassic = "classic"
	VariantCasual  = "casual"
)

// Default returns the built-in configuration: a strict two-card "classic"
// table and a looser "casual" table dealing one to four cards per hand.
func Default() *EngineConfig {
	return &EngineConfig{
		DefaultVariant: VariantClassic,
		Variants: []Variant{
			{ID: VariantClassic, DealMin: 2, DealMax: 2, ActionCap: 20, HistoryLimit: 20},
			{ID: VariantCasual, DealMin: 1, DealMax: 4, ActionCap: 10, HistoryLimit: 10},
		},
		SessionTTLSeconds:    600,
		FinishedGraceSeconds: 30,
		SweepIntervalSeconds: 60,
		MaxSessions:          10000,
		OracleModel:          "gpt-4o-mini",
		OracleTimeoutSeconds: 8,
		OracleRatePerSecond:  5,
		OracleBurst:          10,
	}
}

var (
	cfg      *EngineConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadEngineConfig loads the engine configuration from the given path.
// Fields missing from the file keep their defaults.
func LoadEngineConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read engine config: %w", err)
			return
		}
		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// Parse decodes a JSON document on top of Default and validates the result.
func Parse(data []byte) (*EngineConfig, error) {
	c := Default()
	// Variants from the file replace the built-in list rather than merging
	// into its elements.
	defaults := c.Variants
	c.Variants = nil
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal engine config: %w", err)
	}
	if c.Variants == nil {
		c.Variants = defaults
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// GetEngineConfig returns the loaded configuration, or the defaults when none was loaded.
func GetEngineConfig() *EngineConfig {
	if cfg == nil {
		return Default()
	}
	return cfg
}

// Validate checks variant bounds and that the default variant exists.
func (c *EngineConfig) Validate() error {
	if len(c.Variants) == 0 {
		return fmt.Errorf("engine config: no variants defined")
	}
	seen := make(map[string]bool, len(c.Variants))
	for _, v := range c.Variants {
		switch {
		case v.ID == "":
			return fmt.Errorf("engine config: variant without id")
		case seen[v.ID]:
			return fmt.Errorf("engine config: duplicate variant %q", v.ID)
		case v.DealMin < 1 || v.DealMax < v.DealMin || v.DealMax > 4:
			return fmt.Errorf("engine config: variant %q deal range %d..%d invalid", v.ID, v.DealMin, v.DealMax)
		case v.ActionCap < 1:
			return fmt.Errorf("engine config: variant %q action cap must be positive", v.ID)
		}
		seen[v.ID] = true
	}
	if !seen[c.DefaultVariant] {
		return fmt.Errorf("engine config: default variant %q not defined", c.DefaultVariant)
	}
	return nil
}

// Variant returns the variant with the given id. An empty id selects the
// default variant; ok is false for unknown ids.
func (c *EngineConfig) Variant(id string) (Variant, bool) {
	target := strings.TrimSpace(id)
	if target == "" {
		target = c.DefaultVariant
	}
	for _, v := range c.Variants {
		if v.ID == target {
			if v.HistoryLimit < 1 {
				v.HistoryLimit = v.ActionCap
			}
			return v, true
		}
	}
	return Variant{}, false
}

func (c *EngineConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c *EngineConfig) FinishedGrace() time.Duration {
	return time.Duration(c.FinishedGraceSeconds) * time.Second
}

func (c *EngineConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *EngineConfig) OracleTimeout() time.Duration {
	if c.OracleTimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.OracleTimeoutSeconds * float64(time.Second))
}

// Environment keys read from the Nakama runtime env.
const (
	EnvSessionTTL    = "blackjack_session_ttl_sec"
	EnvFinishedGrace = "blackjack_finished_grace_sec"
	EnvSweepInterval = "blackjack_sweep_interval_sec"
	EnvMaxSessions   = "blackjack_max_sessions"
	EnvDefaultVar    = "blackjack_default_variant"
	EnvOracleURL     = "blackjack_oracle_url"
	EnvOracleKey     = "blackjack_oracle_key"
	EnvOracleModel   = "blackjack_oracle_model"
	EnvOracleTimeout = "blackjack_oracle_timeout_sec"
	EnvOracleRate    = "blackjack_oracle_rate_per_sec"
	EnvOracleBurst   = "blackjack_oracle_burst"
	EnvMetricsAddr   = "blackjack_metrics_addr"
)

// ApplyEnv overrides fields from runtime environment values. Unparseable
// numbers are ignored so a typo never takes the module down.
func (c *EngineConfig) ApplyEnv(env map[string]string) {
	if env == nil {
		return
	}
	setInt := func(key string, dst *int) {
		if val, ok := env[key]; ok {
			if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && i > 0 {
				*dst = i
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if val, ok := env[key]; ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && f > 0 {
				*dst = f
			}
		}
	}
	setString := func(key string, dst *string) {
		if val, ok := env[key]; ok && strings.TrimSpace(val) != "" {
			*dst = strings.TrimSpace(val)
		}
	}

	setInt(EnvSessionTTL, &c.SessionTTLSeconds)
	setInt(EnvFinishedGrace, &c.FinishedGraceSeconds)
	setInt(EnvSweepInterval, &c.SweepIntervalSeconds)
	setInt(EnvMaxSessions, &c.MaxSessions)
	setFloat(EnvOracleTimeout, &c.OracleTimeoutSeconds)
	setFloat(EnvOracleRate, &c.OracleRatePerSecond)
	setInt(EnvOracleBurst, &c.OracleBurst)
	setString(EnvOracleURL, &c.OracleURL)
	setString(EnvOracleKey, &c.OracleAPIKey)
	setString(EnvOracleModel, &c.OracleModel)
	setString(EnvMetricsAddr, &c.MetricsAddr)

	if val, ok := env[EnvDefaultVar]; ok {
		if _, known := c.Variant(val); known {
			c.DefaultVariant = strings.TrimSpace(val)
		}
	}
}
