// Package config handles loading and validating the callspool configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the callspool daemon.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Asterisk AsteriskConfig `mapstructure:"asterisk"`
	Spool    SpoolConfig    `mapstructure:"spool"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the relay API server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig holds the shared-secret settings for the relay API.
//
// Token may be given literally or as an env var reference ("${RELAY_TOKEN}").
// The daemon refuses to start without one; validation happens in main so that
// partially configured instances can still be constructed in tests.
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// AsteriskConfig describes how origination artifacts address the PBX.
type AsteriskConfig struct {
	PickupDir     string `mapstructure:"pickup_dir"`      // spool dir scanned by the engine
	Trunk         string `mapstructure:"trunk"`           // outbound trunk name
	Technology    string `mapstructure:"technology"`      // channel technology, e.g. "PJSIP"
	CallerID      string `mapstructure:"caller_id"`       // presented caller identity
	MaxRetries    int    `mapstructure:"max_retries"`     // engine redial attempts
	RetryTimeSecs int    `mapstructure:"retry_time_secs"` // seconds between redials
	WaitTimeSecs  int    `mapstructure:"wait_time_secs"`  // seconds to let the call ring
}

// SpoolConfig holds filesystem ownership settings for published files.
type SpoolConfig struct {
	// Owner is the system user the engine reads files as. Published audio
	// and call files are chowned to it best-effort; empty disables the chown.
	Owner string `mapstructure:"owner"`
}

// TTSConfig selects and configures the speech synthesis backend.
type TTSConfig struct {
	Mode               string `mapstructure:"mode"`      // "flite" or "mock"
	AudioDir           string `mapstructure:"audio_dir"` // where synthesized assets land
	SynthesizeCommand  string `mapstructure:"synthesize_command"`
	ResampleCommand    string `mapstructure:"resample_command"`
	CommandTimeoutSecs int    `mapstructure:"command_timeout_secs"`
	MaxSoundAgeSecs    int    `mapstructure:"max_sound_age_secs"` // retention window for old assets
}

// OpsConfig holds the operational endpoints (health, metrics).
type OpsConfig struct {
	Port     int `mapstructure:"port"`
	GRPCPort int `mapstructure:"grpc_port"` // gRPC health service; 0 disables
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./callspool.yaml, ./configs/callspool.yaml, /etc/callspool/callspool.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 18511)
	v.SetDefault("auth.token", "")
	v.SetDefault("asterisk.pickup_dir", "/var/spool/asterisk/outgoing")
	v.SetDefault("asterisk.trunk", "")
	v.SetDefault("asterisk.technology", "PJSIP")
	v.SetDefault("asterisk.caller_id", "Akira")
	v.SetDefault("asterisk.max_retries", 2)
	v.SetDefault("asterisk.retry_time_secs", 30)
	v.SetDefault("asterisk.wait_time_secs", 45)
	v.SetDefault("spool.owner", "asterisk")
	v.SetDefault("tts.mode", "flite")
	v.SetDefault("tts.audio_dir", "/var/lib/asterisk/sounds/custom")
	v.SetDefault("tts.synthesize_command", "flite -t {text} -o {output}")
	v.SetDefault("tts.resample_command", "sox {input} -r 8000 -c 1 -e signed-integer -b 16 {output}")
	v.SetDefault("tts.command_timeout_secs", 30)
	v.SetDefault("tts.max_sound_age_secs", 3600)
	v.SetDefault("ops.port", 18512)
	v.SetDefault("ops.grpc_port", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("callspool")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/callspool")
	}

	// Environment variables: CALLSPOOL_SERVER_PORT, CALLSPOOL_AUTH_TOKEN, etc.
	v.SetEnvPrefix("CALLSPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${RELAY_TOKEN}")
	cfg.Auth.Token = resolveEnvRef(cfg.Auth.Token)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// validate rejects configurations the daemon cannot run with. The auth token
// is deliberately not checked here; its absence is a startup error in main
// and a 500 at request time, never a load failure.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Ops.Port < 1 || c.Ops.Port > 65535 {
		return fmt.Errorf("ops.port %d out of range", c.Ops.Port)
	}
	if c.Ops.GRPCPort < 0 || c.Ops.GRPCPort > 65535 {
		return fmt.Errorf("ops.grpc_port %d out of range", c.Ops.GRPCPort)
	}
	switch c.TTS.Mode {
	case "flite", "mock":
	default:
		return fmt.Errorf("unknown tts.mode %q (want \"flite\" or \"mock\")", c.TTS.Mode)
	}
	if c.TTS.Mode == "flite" {
		if strings.TrimSpace(c.TTS.SynthesizeCommand) == "" {
			return fmt.Errorf("tts.synthesize_command must be set in flite mode")
		}
		if strings.TrimSpace(c.TTS.ResampleCommand) == "" {
			return fmt.Errorf("tts.resample_command must be set in flite mode")
		}
	}
	if c.TTS.CommandTimeoutSecs <= 0 {
		return fmt.Errorf("tts.command_timeout_secs must be positive, got %d", c.TTS.CommandTimeoutSecs)
	}
	if c.TTS.MaxSoundAgeSecs < 0 {
		return fmt.Errorf("tts.max_sound_age_secs must not be negative, got %d", c.TTS.MaxSoundAgeSecs)
	}
	if c.Asterisk.MaxRetries < 0 {
		return fmt.Errorf("asterisk.max_retries must not be negative, got %d", c.Asterisk.MaxRetries)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
