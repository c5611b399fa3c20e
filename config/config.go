package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"signal-engine/internal/confluence"
	"signal-engine/internal/engine"
	"signal-engine/internal/indicators"
	"signal-engine/internal/levels"
	"signal-engine/internal/patterns"
	"signal-engine/internal/risk"
	"signal-engine/internal/signal"
)

type Config struct {
	EngineConfig   EngineConfig   `json:"engine"`
	ServerConfig   ServerConfig   `json:"server"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	AuthConfig     AuthConfig     `json:"auth"`
	VaultConfig    VaultConfig    `json:"vault"`
	NATSConfig     NATSConfig     `json:"nats"`
}

// EngineConfig mirrors every tunable of the evaluation pipeline
type EngineConfig struct {
	// Levels
	PivotMethod       string    `json:"pivot_method"` // floor, camarilla or woodie
	SwingLookback     int       `json:"swing_lookback"`
	RetracementRatios []float64 `json:"retracement_ratios"`
	ExtensionRatios   []float64 `json:"extension_ratios"`

	// Patterns
	PinWickRatio       float64 `json:"pin_wick_ratio"`
	DojiBodyRatio      float64 `json:"doji_body_ratio"`
	EngulfingFullRatio float64 `json:"engulfing_full_ratio"`

	// Indicators
	MAType          string `json:"ma_type"` // ema or sma
	FastPeriod      int    `json:"fast_period"`
	SlowPeriod      int    `json:"slow_period"`
	RSIPeriod       int    `json:"rsi_period"`
	ATRPeriod       int    `json:"atr_period"`
	StructureWindow int    `json:"structure_window"`

	// Confluence
	Weights             confluence.Weights `json:"weights"`
	Tolerance           float64            `json:"tolerance"`
	LevelPriority       []string           `json:"level_priority"`
	TrendFullSeparation float64            `json:"trend_full_separation"`
	Oversold            float64            `json:"oversold"`
	Overbought          float64            `json:"overbought"`
	PatternFloor        float64            `json:"pattern_floor"`
	StructureEnabled    bool               `json:"structure_enabled"`
	ConfluenceBonusStep float64            `json:"confluence_bonus_step"`
	ConfluenceBonusCap  float64            `json:"confluence_bonus_cap"`
	MovingAverageLevels bool               `json:"moving_average_levels"`

	// Signal
	MinConfidence      float64 `json:"min_confidence"`
	RequirePattern     bool    `json:"require_pattern"`
	MinPatternStrength float64 `json:"min_pattern_strength"`

	// Risk
	StopOffset        float64   `json:"stop_offset"`
	UseATRStop        bool      `json:"use_atr_stop"`
	ATRMultiplier     float64   `json:"atr_multiplier"`
	TargetRatios      []float64 `json:"target_ratios"`
	PositionFractions []float64 `json:"position_fractions"`
	TargetTolerance   float64   `json:"target_tolerance"`
	MinRiskReward     float64   `json:"min_risk_reward"`
	GoodRiskReward    float64   `json:"good_risk_reward"`
	SourcePriority    []string  `json:"source_priority"`
	PricePrecision    int       `json:"price_precision"`

	Workers int `json:"workers"`
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	TLSEnabled      bool   `json:"tls_enabled"`
	TLSCertFile     string `json:"tls_cert_file"`
	TLSKeyFile      string `json:"tls_key_file"`
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
	RateLimit       int    `json:"rate_limit"`       // Requests per minute per client
	MaxBatchSize    int    `json:"max_batch_size"`
}

// DatabaseConfig holds PostgreSQL configuration for evaluation history
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	Enabled   bool   `json:"enabled"`
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
}

// VaultConfig holds HashiCorp Vault configuration. When enabled, service
// secrets are read from a KV v2 path at startup and override file/env values.
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path of the service secret
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// NATSConfig holds the NATS connection that evaluation events are forwarded to
type NATSConfig struct {
	Enabled       bool          `json:"enabled"`
	URL           string        `json:"url"`
	SubjectPrefix string        `json:"subject_prefix"`
	MaxReconnect  int           `json:"max_reconnect"`
	ReconnectWait time.Duration `json:"reconnect_wait"`
}

// RedisConfig holds Redis configuration for the level cache
type RedisConfig struct {
	Enabled  bool          `json:"enabled"`
	Address  string        `json:"address"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	PoolSize int           `json:"pool_size"`
	LevelTTL time.Duration `json:"level_ttl"`
}

// Default returns a configuration holding every documented default
func Default() *Config {
	return &Config{
		EngineConfig: DefaultEngineConfig(),
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
			RateLimit:       120,
			MaxBatchSize:    50,
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "signal_engine",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Address:  "localhost:6379",
			PoolSize: 10,
			LevelTTL: time.Hour,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
		AuthConfig: AuthConfig{
			Issuer: "signal-engine",
		},
		VaultConfig: VaultConfig{
			Address:    "http://localhost:8200",
			MountPath:  "secret",
			SecretPath: "signal-engine",
		},
		NATSConfig: NATSConfig{
			URL:           "nats://localhost:4222",
			SubjectPrefix: "signals",
			MaxReconnect:  10,
			ReconnectWait: 2 * time.Second,
		},
	}
}

// DefaultEngineConfig flattens engine.DefaultConfig into its file form
func DefaultEngineConfig() EngineConfig {
	return FromEngineConfig(engine.DefaultConfig())
}

// FromEngineConfig converts an engine configuration into its file form
func FromEngineConfig(c engine.Config) EngineConfig {
	sources := make([]string, len(c.Risk.SourcePriority))
	for i, s := range c.Risk.SourcePriority {
		sources[i] = string(s)
	}
	return EngineConfig{
		PivotMethod:         string(c.Levels.Method),
		SwingLookback:       c.Levels.SwingLookback,
		RetracementRatios:   append([]float64(nil), c.Levels.RetracementRatios...),
		ExtensionRatios:     append([]float64(nil), c.Levels.ExtensionRatios...),
		PinWickRatio:        c.Patterns.PinWickRatio,
		DojiBodyRatio:       c.Patterns.DojiBodyRatio,
		EngulfingFullRatio:  c.Patterns.EngulfingFullRatio,
		MAType:              string(c.Indicators.MAType),
		FastPeriod:          c.Indicators.FastPeriod,
		SlowPeriod:          c.Indicators.SlowPeriod,
		RSIPeriod:           c.Indicators.RSIPeriod,
		ATRPeriod:           c.Indicators.ATRPeriod,
		StructureWindow:     c.Indicators.StructureWindow,
		Weights:             c.Confluence.Weights,
		Tolerance:           c.Confluence.Tolerance,
		LevelPriority:       append([]string(nil), c.Confluence.Priority...),
		TrendFullSeparation: c.Confluence.TrendFullSeparation,
		Oversold:            c.Confluence.Oversold,
		Overbought:          c.Confluence.Overbought,
		PatternFloor:        c.Confluence.PatternFloor,
		StructureEnabled:    c.Confluence.StructureEnabled,
		ConfluenceBonusStep: c.Confluence.BonusStep,
		ConfluenceBonusCap:  c.Confluence.BonusCap,
		MovingAverageLevels: c.MovingAverageLevels,
		MinConfidence:       c.Signal.MinConfidence,
		RequirePattern:      c.Signal.RequirePattern,
		MinPatternStrength:  c.Signal.MinPatternStrength,
		StopOffset:          c.Risk.StopOffset,
		UseATRStop:          c.Risk.UseATRStop,
		ATRMultiplier:       c.Risk.ATRMultiplier,
		TargetRatios:        c.Risk.TargetRatios[:],
		PositionFractions:   c.Risk.PositionFractions[:],
		TargetTolerance:     c.Risk.TargetTolerance,
		MinRiskReward:       c.Risk.MinRiskReward,
		GoodRiskReward:      c.Risk.GoodRiskReward,
		SourcePriority:      sources,
		PricePrecision:      int(c.Risk.PricePrecision),
		Workers:             c.Workers,
	}
}

// ToEngineConfig converts the file form into a validated engine configuration
func (c EngineConfig) ToEngineConfig() (engine.Config, error) {
	method, err := levels.ParsePivotMethod(c.PivotMethod)
	if err != nil {
		return engine.Config{}, fmt.Errorf("%w: %v", engine.ErrInvalidConfig, err)
	}
	targets, err := triple("target_ratios", c.TargetRatios)
	if err != nil {
		return engine.Config{}, err
	}
	fractions, err := triple("position_fractions", c.PositionFractions)
	if err != nil {
		return engine.Config{}, err
	}
	sources := make([]levels.Source, 0, len(c.SourcePriority))
	for _, s := range c.SourcePriority {
		src := levels.Source(strings.ToLower(strings.TrimSpace(s)))
		switch src {
		case levels.SourcePivot, levels.SourceFibonacci, levels.SourceSwing, levels.SourceMovingAverage:
			sources = append(sources, src)
		default:
			return engine.Config{}, fmt.Errorf("%w: unknown level source %q in source_priority", engine.ErrInvalidConfig, s)
		}
	}
	if len(sources) == 0 {
		sources = risk.DefaultSourcePriority()
	}

	out := engine.Config{
		Levels: levels.Config{
			Method:            method,
			RetracementRatios: c.RetracementRatios,
			ExtensionRatios:   c.ExtensionRatios,
			SwingLookback:     c.SwingLookback,
		},
		Patterns: patterns.Config{
			PinWickRatio:       c.PinWickRatio,
			DojiBodyRatio:      c.DojiBodyRatio,
			EngulfingFullRatio: c.EngulfingFullRatio,
		},
		Indicators: indicators.Config{
			MAType:          indicators.MAType(strings.ToLower(c.MAType)),
			FastPeriod:      c.FastPeriod,
			SlowPeriod:      c.SlowPeriod,
			RSIPeriod:       c.RSIPeriod,
			ATRPeriod:       c.ATRPeriod,
			StructureWindow: c.StructureWindow,
		},
		Confluence: confluence.Config{
			Weights:             c.Weights,
			Tolerance:           c.Tolerance,
			Priority:            c.LevelPriority,
			TrendFullSeparation: c.TrendFullSeparation,
			Oversold:            c.Oversold,
			Overbought:          c.Overbought,
			PatternFloor:        c.PatternFloor,
			PriceActionScore:    1.0,
			StructureEnabled:    c.StructureEnabled,
			MultiLevelMin:       2,
			BonusStep:           c.ConfluenceBonusStep,
			BonusCap:            c.ConfluenceBonusCap,
		},
		Signal: signal.Config{
			MinConfidence:      c.MinConfidence,
			RequirePattern:     c.RequirePattern,
			MinPatternStrength: c.MinPatternStrength,
		},
		Risk: risk.Config{
			StopOffset:        c.StopOffset,
			UseATRStop:        c.UseATRStop,
			ATRMultiplier:     c.ATRMultiplier,
			TargetRatios:      targets,
			PositionFractions: fractions,
			TargetTolerance:   c.TargetTolerance,
			MinRiskReward:     c.MinRiskReward,
			GoodRiskReward:    c.GoodRiskReward,
			SourcePriority:    sources,
			LevelPriority:     c.LevelPriority,
			PricePrecision:    int32(c.PricePrecision),
		},
		MovingAverageLevels: c.MovingAverageLevels,
		Workers:             c.Workers,
	}
	if err := out.Validate(); err != nil {
		return engine.Config{}, err
	}
	return out, nil
}

func triple(name string, v []float64) ([3]float64, error) {
	var out [3]float64
	if len(v) != 3 {
		return out, fmt.Errorf("%w: %s needs exactly 3 values, got %d", engine.ErrInvalidConfig, name, len(v))
	}
	copy(out[:], v)
	return out, nil
}

// Validate checks the sections the server cannot start without
func (c *Config) Validate() error {
	if _, err := c.EngineConfig.ToEngineConfig(); err != nil {
		return err
	}
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.ServerConfig.Port)
	}
	if c.AuthConfig.Enabled && len(c.AuthConfig.JWTSecret) < 32 {
		return errors.New("auth enabled but AUTH_JWT_SECRET is shorter than 32 characters")
	}
	return nil
}

// Load reads .env, then config.json (or CONFIG_FILE), then applies
// environment overrides on top of the documented defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()
	return LoadFile(getEnvOrDefault("CONFIG_FILE", "config.json"))
}

// LoadFile loads filename over the defaults and applies environment
// overrides. A missing file is not an error.
func LoadFile(filename string) (*Config, error) {
	cfg, err := loadFromFile(filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Engine config
	e := &cfg.EngineConfig
	e.PivotMethod = getEnvOrDefault("ENGINE_PIVOT_METHOD", e.PivotMethod)
	e.SwingLookback = getEnvIntOrDefault("ENGINE_SWING_LOOKBACK", e.SwingLookback)
	e.MAType = getEnvOrDefault("ENGINE_MA_TYPE", e.MAType)
	e.Tolerance = getEnvFloatOrDefault("ENGINE_TOLERANCE", e.Tolerance)
	e.MinConfidence = getEnvFloatOrDefault("ENGINE_MIN_CONFIDENCE", e.MinConfidence)
	e.RequirePattern = getEnvBoolOrDefault("ENGINE_REQUIRE_PATTERN", e.RequirePattern)
	e.MinPatternStrength = getEnvFloatOrDefault("ENGINE_MIN_PATTERN_STRENGTH", e.MinPatternStrength)
	e.StopOffset = getEnvFloatOrDefault("ENGINE_STOP_OFFSET", e.StopOffset)
	e.UseATRStop = getEnvBoolOrDefault("ENGINE_USE_ATR_STOP", e.UseATRStop)
	e.ATRMultiplier = getEnvFloatOrDefault("ENGINE_ATR_MULTIPLIER", e.ATRMultiplier)
	e.MinRiskReward = getEnvFloatOrDefault("ENGINE_MIN_RISK_REWARD", e.MinRiskReward)
	e.Workers = getEnvIntOrDefault("ENGINE_WORKERS", e.Workers)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
	cfg.LoggingConfig.IncludeFile = getEnvBoolOrDefault("LOG_INCLUDE_FILE", cfg.LoggingConfig.IncludeFile)

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)
	cfg.ServerConfig.TLSEnabled = getEnvBoolOrDefault("SERVER_TLS_ENABLED", cfg.ServerConfig.TLSEnabled)
	cfg.ServerConfig.TLSCertFile = getEnvOrDefault("SERVER_TLS_CERT", cfg.ServerConfig.TLSCertFile)
	cfg.ServerConfig.TLSKeyFile = getEnvOrDefault("SERVER_TLS_KEY", cfg.ServerConfig.TLSKeyFile)
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", cfg.ServerConfig.ReadTimeout)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", cfg.ServerConfig.WriteTimeout)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", cfg.ServerConfig.ShutdownTimeout)
	cfg.ServerConfig.RateLimit = getEnvIntOrDefault("SERVER_RATE_LIMIT", cfg.ServerConfig.RateLimit)

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvBoolOrDefault("DB_ENABLED", cfg.DatabaseConfig.Enabled)
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", cfg.RedisConfig.PoolSize)
	cfg.RedisConfig.LevelTTL = getEnvDurationOrDefault("REDIS_LEVEL_TTL", cfg.RedisConfig.LevelTTL)

	// Auth config - secret only ever comes from the environment or file
	cfg.AuthConfig.Enabled = getEnvBoolOrDefault("AUTH_ENABLED", cfg.AuthConfig.Enabled)
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.Issuer = getEnvOrDefault("AUTH_ISSUER", cfg.AuthConfig.Issuer)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)
	cfg.VaultConfig.TLSEnabled = getEnvBoolOrDefault("VAULT_TLS_ENABLED", cfg.VaultConfig.TLSEnabled)
	cfg.VaultConfig.CACert = getEnvOrDefault("VAULT_CACERT", cfg.VaultConfig.CACert)

	// NATS config
	cfg.NATSConfig.Enabled = getEnvBoolOrDefault("NATS_ENABLED", cfg.NATSConfig.Enabled)
	cfg.NATSConfig.URL = getEnvOrDefault("NATS_URL", cfg.NATSConfig.URL)
	cfg.NATSConfig.SubjectPrefix = getEnvOrDefault("NATS_SUBJECT_PREFIX", cfg.NATSConfig.SubjectPrefix)
	cfg.NATSConfig.MaxReconnect = getEnvIntOrDefault("NATS_MAX_RECONNECT", cfg.NATSConfig.MaxReconnect)
	cfg.NATSConfig.ReconnectWait = getEnvDurationOrDefault("NATS_RECONNECT_WAIT", cfg.NATSConfig.ReconnectWait)
}

// loadFromFile decodes filename over the defaults so absent keys keep them
func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Default()
	config.AuthConfig.JWTSecret = "change-me-to-a-32-character-secret"

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
