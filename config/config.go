// Package config loads desk settings and exchange credentials.
package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL         = "https://api.coinone.co.kr"
	defaultListenAddr      = ":8087"
	defaultOrderLogPath    = "./data/orderlog.json"
	defaultRefreshInterval = time.Second
	defaultHTTPTimeout     = 10 * time.Second
)

// Credentials are the exchange API access token and HMAC secret. They come
// from the environment; missing values stay empty strings so the process
// starts anyway and signed calls fail server-side with a signature mismatch.
type Credentials struct {
	AccessToken string `envconfig:"ACCESS_TOKEN"`
	SecretKey   string `envconfig:"SECRET_KEY"`
}

// Config holds the desk settings.
type Config struct {
	BaseURL            string        `yaml:"base_url"`
	ListenAddr         string        `yaml:"listen_addr"`
	OrderLogPath       string        `yaml:"order_log_path"`
	OrderLogHistoryDir string        `yaml:"order_log_history_dir"`
	RefreshInterval    time.Duration `yaml:"refresh_interval"`
	HTTPTimeout        time.Duration `yaml:"http_timeout"`
}

// Get reads the yaml config at path, or returns defaults when path is empty.
func Get(path string) (Config, error) {
	cfg := Config{
		BaseURL:         defaultBaseURL,
		ListenAddr:      defaultListenAddr,
		OrderLogPath:    defaultOrderLogPath,
		RefreshInterval: defaultRefreshInterval,
		HTTPTimeout:     defaultHTTPTimeout,
	}

	if path == "" {
		return cfg, nil
	}

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config file")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.OrderLogPath == "" {
		cfg.OrderLogPath = defaultOrderLogPath
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	return cfg, nil
}

// GetCredentials reads credentials from USDTDESK_ACCESS_TOKEN and
// USDTDESK_SECRET_KEY. Absence is tolerated, never fatal.
func GetCredentials() Credentials {
	var creds Credentials
	_ = envconfig.Process("usdtdesk", &creds)
	return creds
}
