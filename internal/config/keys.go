package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

// keySpec binds a dotted config key to its Config field. validate, when set,
// runs on the typed value from every source.
type keySpec struct {
	key      string
	typ      keyType
	env      string
	secret   bool
	validate func(v any) error
	apply    func(cfg *Config, v any)
	extract  func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FOLIO_SERVER_PORT",
		validate: validPort,
		apply:    func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract:  func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLIO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "FOLIO_LOG_LEVEL",
		validate: validLevel,
		apply:    func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract:  func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "client.base_url", typ: kString, env: "FOLIO_CLIENT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Client.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Client.BaseURL },
	},
	{
		key: "client.timeout", typ: kString, env: "FOLIO_CLIENT_TIMEOUT",
		validate: validDuration,
		apply:    func(cfg *Config, v any) { cfg.Client.Timeout = v.(string) },
		extract:  func(cfg Config) any { return cfg.Client.Timeout },
	},
	{
		key: "client.token", typ: kString, env: "FOLIO_CLIENT_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Client.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Client.Token },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parse converts raw text into the key's type and validates it.
func (s keySpec) parse(raw string) (any, error) {
	var v any = raw
	if s.typ == kInt {
		i, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		v = i
	}
	return v, s.check(v)
}

func (s keySpec) check(v any) error {
	if s.validate == nil {
		return nil
	}
	if err := s.validate(v); err != nil {
		return fmt.Errorf("invalid value for %s: %w", s.key, err)
	}
	return nil
}

// read fetches the key from the backend. ok is false when it is unset.
func (s keySpec) read(b ConfigBackend) (v any, ok bool, err error) {
	switch s.typ {
	case kInt:
		v, ok, err = b.GetInt(s.key)
	default:
		v, ok, err = b.GetString(s.key)
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", s.key, err)
	}
	if ok {
		err = s.check(v)
	}
	return v, ok, err
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		v, ok, err := s.read(b)
		if err != nil {
			return err
		}
		if ok {
			s.apply(cfg, v)
		}
	}
	return nil
}

// applyEnvOverrides applies FOLIO_* variables. Values that do not parse are
// reported and skipped so a typo in the environment never blocks startup.
func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if s.env == "" || raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			slog.Warn("ignoring environment override", "env", s.env, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
}

func validPort(v any) error {
	if p := v.(int); p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range", p)
	}
	return nil
}

func validDuration(v any) error {
	d, err := time.ParseDuration(v.(string))
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

func validLevel(v any) error {
	var l slog.Level
	return l.UnmarshalText([]byte(v.(string)))
}
