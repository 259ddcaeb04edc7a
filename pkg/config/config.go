package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"

	"github.com/genzj/warpconnect/pkg/log"
	"github.com/genzj/warpconnect/pkg/types"
	"gopkg.in/yaml.v3"
)

// AppConfig is the daemon's single, immutable merged configuration value
// (spec §6). Nothing downstream re-reads a file or the environment.
type AppConfig struct {
	WarpNamePattern        string              `yaml:"warp_name_pattern"`
	TargetLabel            string              `yaml:"target_label"`
	NetworkPreferenceLabel string              `yaml:"network_preference_label"`
	RoutingRules           []types.RoutingRule `yaml:"-"`

	LogLevel  log.Level `yaml:"log_level"`
	LogJSON   bool      `yaml:"log_json"`
	MetricsAddr string  `yaml:"metrics_addr"`

	JobTimeoutSeconds          int `yaml:"job_timeout_seconds"`
	ShutdownDrainTimeoutSeconds int `yaml:"shutdown_drain_timeout_seconds"`
	WorkerPoolSize             int `yaml:"worker_pool_size"`
}

// rawRoutingRule is RoutingRule's YAML wire shape: Destination is a string
// prefix until parsed, and Protocol/PortMin/PortMax are carried through
// unvalidated so Validate can reject them with a clear diagnostic instead of
// silently dropping them at unmarshal time.
type rawRoutingRule struct {
	Destination string `yaml:"destination"`
	Protocol    string `yaml:"protocol"`
	PortMin     int    `yaml:"port_min"`
	PortMax     int    `yaml:"port_max"`
}

type rawConfig struct {
	WarpNamePattern        string           `yaml:"warp_name_pattern"`
	TargetLabel            string           `yaml:"target_label"`
	NetworkPreferenceLabel string           `yaml:"network_preference_label"`
	RoutingRules           []rawRoutingRule `yaml:"routing_rules"`

	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
	MetricsAddr string `yaml:"metrics_addr"`

	JobTimeoutSeconds           int `yaml:"job_timeout_seconds"`
	ShutdownDrainTimeoutSeconds int `yaml:"shutdown_drain_timeout_seconds"`
	WorkerPoolSize              int `yaml:"worker_pool_size"`
}

// Defaults returns the daemon's built-in defaults, the bottom of the
// CLI > env > file > defaults precedence chain.
func Defaults() AppConfig {
	return AppConfig{
		WarpNamePattern:             "warp-*",
		TargetLabel:                 "warpconnect.target",
		NetworkPreferenceLabel:      "warpconnect.warp_net",
		LogLevel:                    log.InfoLevel,
		LogJSON:                     false,
		MetricsAddr:                 ":9090",
		JobTimeoutSeconds:           5,
		ShutdownDrainTimeoutSeconds: 10,
		WorkerPoolSize:              1,
	}
}

// Load reads path (if non-empty and present) over Defaults(), then applies
// WARPCONNECT_* environment overrides. The caller (cmd/warpconnectd) applies
// CLI flag overrides on top of the returned value, then calls Validate.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return AppConfig{}, &types.ConfigError{Field: "path", Reason: err.Error()}
			}
		} else {
			var raw rawConfig
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return AppConfig{}, &types.ConfigError{Field: "(yaml)", Reason: err.Error()}
			}
			if err := applyRaw(&cfg, raw); err != nil {
				return AppConfig{}, err
			}
		}
	}

	applyEnv(&cfg)

	return cfg, nil
}

func applyRaw(cfg *AppConfig, raw rawConfig) error {
	if raw.WarpNamePattern != "" {
		cfg.WarpNamePattern = raw.WarpNamePattern
	}
	if raw.TargetLabel != "" {
		cfg.TargetLabel = raw.TargetLabel
	}
	if raw.NetworkPreferenceLabel != "" {
		cfg.NetworkPreferenceLabel = raw.NetworkPreferenceLabel
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = log.Level(raw.LogLevel)
	}
	cfg.LogJSON = raw.LogJSON
	if raw.MetricsAddr != "" {
		cfg.MetricsAddr = raw.MetricsAddr
	}
	if raw.JobTimeoutSeconds > 0 {
		cfg.JobTimeoutSeconds = raw.JobTimeoutSeconds
	}
	if raw.ShutdownDrainTimeoutSeconds > 0 {
		cfg.ShutdownDrainTimeoutSeconds = raw.ShutdownDrainTimeoutSeconds
	}
	if raw.WorkerPoolSize > 0 {
		cfg.WorkerPoolSize = raw.WorkerPoolSize
	}

	rules := make([]types.RoutingRule, 0, len(raw.RoutingRules))
	for _, rr := range raw.RoutingRules {
		prefix, err := netip.ParsePrefix(rr.Destination)
		if err != nil {
			return &types.ConfigError{Field: "routing_rules.destination", Reason: fmt.Sprintf("%q: %v", rr.Destination, err)}
		}
		rules = append(rules, types.RoutingRule{
			Destination: prefix,
			Protocol:    rr.Protocol,
			PortMin:     rr.PortMin,
			PortMax:     rr.PortMax,
		})
	}
	cfg.RoutingRules = rules

	return nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("WARPCONNECT_WARP_NAME_PATTERN"); v != "" {
		cfg.WarpNamePattern = v
	}
	if v := os.Getenv("WARPCONNECT_TARGET_LABEL"); v != "" {
		cfg.TargetLabel = v
	}
	if v := os.Getenv("WARPCONNECT_NETWORK_PREFERENCE_LABEL"); v != "" {
		cfg.NetworkPreferenceLabel = v
	}
	if v := os.Getenv("WARPCONNECT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = log.Level(v)
	}
	if v := os.Getenv("WARPCONNECT_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
	if v := os.Getenv("WARPCONNECT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("WARPCONNECT_JOB_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.JobTimeoutSeconds = n
		}
	}
	if v := os.Getenv("WARPCONNECT_SHUTDOWN_DRAIN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ShutdownDrainTimeoutSeconds = n
		}
	}
	if v := os.Getenv("WARPCONNECT_WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerPoolSize = n
		}
	}
}

// Validate enforces the Configuration error class (spec §7): a RoutingRule
// carrying a protocol or port range is rejected since plain kernel routes
// cannot honor it (SPEC_FULL.md §9, Open Question resolved: reject).
func Validate(cfg AppConfig) error {
	if cfg.WarpNamePattern == "" {
		return &types.ConfigError{Field: "warp_name_pattern", Reason: "must not be empty"}
	}
	if cfg.TargetLabel == "" {
		return &types.ConfigError{Field: "target_label", Reason: "must not be empty"}
	}
	switch cfg.LogLevel {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		return &types.ConfigError{Field: "log_level", Reason: fmt.Sprintf("unknown level %q", cfg.LogLevel)}
	}
	if cfg.JobTimeoutSeconds <= 0 {
		return &types.ConfigError{Field: "job_timeout_seconds", Reason: "must be positive"}
	}
	if cfg.ShutdownDrainTimeoutSeconds <= 0 {
		return &types.ConfigError{Field: "shutdown_drain_timeout_seconds", Reason: "must be positive"}
	}
	if cfg.WorkerPoolSize <= 0 {
		return &types.ConfigError{Field: "worker_pool_size", Reason: "must be positive"}
	}

	for i, rule := range cfg.RoutingRules {
		if rule.HasPortOrProtocol() {
			return &types.ConfigError{
				Field:  fmt.Sprintf("routing_rules[%d]", i),
				Reason: "protocol/port range is not supported; plain kernel routes cannot enforce L4 policy",
			}
		}
	}

	return nil
}
