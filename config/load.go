package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Backend BackendConfig `yaml:"backend"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// BackendConfig 保存后端（资产配置 + 保证金校验）的连接参数。
type BackendConfig struct {
	BaseURL   string `yaml:"baseURL"`   // 两个接口共用的基础地址，不允许留空
	TimeoutMs int    `yaml:"timeoutMs"` // 单次请求超时（毫秒），0 表示默认 10s
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // json 或 console
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listenAddr"` // Prometheus /metrics 监听地址，留空则关闭
}

// Timeout 返回后端请求超时；未配置时给默认值。
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides the backend address from env if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("MD_BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Backend.BaseURL == "" {
		return errors.New("backend.baseURL is required (or MD_BACKEND_BASE_URL)")
	}
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.baseURL %q is not a valid http(s) URL", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutMs < 0 {
		return errors.New("backend.timeoutMs must be >= 0")
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not supported", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format %q is not supported", cfg.Log.Format)
	}
	return nil
}
