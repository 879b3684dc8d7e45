package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Client  ClientConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// ClientConfig controls how the terminal client reaches the API.
type ClientConfig struct {
	BaseURL string
	Timeout string
	Token   string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Client: ClientConfig{
			Timeout: "30s",
		},
	}
}

// Load reads configuration from the JSON config file, environment variables
// and the secrets file.
//
// The config file lives at $XDG_CONFIG_HOME/folio/config.json. Environment
// variables (FOLIO_*) override file values. The client token is a secret: it
// is read from FOLIO_CLIENT_TOKEN or, failing that, from the secrets file
// written by `folio login`.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), fileSecrets{})
}

// secretStore abstracts secret access for testing.
type secretStore interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, ss secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Client.Token == "" {
		if tok, err := ss.Get("folio", "client_token"); err == nil && tok != "" {
			cfg.Client.Token = tok
		}
	}

	return cfg, nil
}

// ClientBaseURL returns the configured API base URL, or the local server
// address derived from server.port when none is set.
func (c Config) ClientBaseURL() string {
	if c.Client.BaseURL != "" {
		return strings.TrimRight(c.Client.BaseURL, "/")
	}
	return fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
}

// ClientTimeout returns the parsed client timeout. Load rejects values that
// do not parse, so the fallback only applies to hand-built configs.
func (c Config) ClientTimeout() time.Duration {
	d, err := time.ParseDuration(c.Client.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SetClientToken stores the client token in the secrets file.
func SetClientToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	return secretSet("folio", "client_token", token)
}

// fileSecrets reads from the secrets file.
type fileSecrets struct{}

func (fileSecrets) Get(service, account string) (string, error) {
	out, err := secretGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
