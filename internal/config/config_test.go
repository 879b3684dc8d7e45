package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockSecrets is a test double for the secretStore interface.
type mockSecrets struct {
	value string
	err   error
}

func (m mockSecrets) Get(service, account string) (string, error) {
	return m.value, m.err
}

var errNoSecret = errors.New("no secret")

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return openFileBackend(path)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{}`)

	cfg, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Client.Timeout != "30s" {
		t.Errorf("Client.Timeout = %q, want 30s", cfg.Client.Timeout)
	}
	if cfg.Client.Token != "" {
		t.Errorf("Client.Token = %q, want empty", cfg.Client.Token)
	}
	if got := cfg.ClientBaseURL(); got != "http://127.0.0.1:4100" {
		t.Errorf("ClientBaseURL() = %q", got)
	}
	if got := cfg.ClientTimeout(); got != 30*time.Second {
		t.Errorf("ClientTimeout() = %v", got)
	}
}

// TestJSONParsing verifies that all fields are correctly read from the config file.
func TestJSONParsing(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{
  "server.port": 5000,
  "storage.data_dir": "/tmp/folio-test",
  "log.level": "debug",
  "client.base_url": "https://folio.example/",
  "client.timeout": "5s",
  "client.token": "ignored-in-file"
}`)

	cfg, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/folio-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if got := cfg.ClientBaseURL(); got != "https://folio.example" {
		t.Errorf("ClientBaseURL() = %q", got)
	}
	if got := cfg.ClientTimeout(); got != 5*time.Second {
		t.Errorf("ClientTimeout() = %v", got)
	}
	if cfg.Client.Token != "" {
		t.Errorf("secret read from config file: %q", cfg.Client.Token)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"server.port": 5000}`)
	t.Setenv("FOLIO_SERVER_PORT", "6000")
	t.Setenv("FOLIO_CLIENT_TOKEN", "env-token")

	cfg, err := loadWith(b, mockSecrets{value: "file-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Client.Token != "env-token" {
		t.Errorf("Client.Token = %q, want env-token", cfg.Client.Token)
	}
}

// TestSecretFallback verifies the secrets file is consulted when no token is in the env.
func TestSecretFallback(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{}`)

	cfg, err := loadWith(b, mockSecrets{value: "stored-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.Token != "stored-token" {
		t.Errorf("Client.Token = %q, want stored-token", cfg.Client.Token)
	}
}

func TestInvalidTimeout(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"client.timeout": "soon"}`)

	_, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err == nil || !strings.Contains(err.Error(), "client.timeout") {
		t.Fatalf("err = %v, want client.timeout error", err)
	}
}

func TestInvalidFileValues(t *testing.T) {
	clearEnv(t)
	for _, content := range []string{
		`{"server.port": 70000}`,
		`{"log.level": "loud"}`,
		`{"client.timeout": "-5s"}`,
	} {
		b := writeTempConfig(t, content)
		if _, err := loadWith(b, mockSecrets{err: errNoSecret}); err == nil {
			t.Errorf("loadWith(%s): expected error", content)
		}
	}
}

// TestEnvInvalidIgnored verifies unparsable overrides fall back to file/default values.
func TestEnvInvalidIgnored(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"log.level": "debug"}`)
	t.Setenv("FOLIO_SERVER_PORT", "abc")
	t.Setenv("FOLIO_LOG_LEVEL", "loud")
	t.Setenv("FOLIO_CLIENT_TIMEOUT", "5s")

	cfg, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if got := cfg.ClientTimeout(); got != 5*time.Second {
		t.Errorf("ClientTimeout() = %v, want 5s", got)
	}
}

func TestSetKey(t *testing.T) {
	b := writeTempConfig(t, `{}`)

	if err := setKeyOn(b, "server.port", "4200"); err != nil {
		t.Fatalf("setKeyOn(server.port): %v", err)
	}
	if err := setKeyOn(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyOn(b, "client.timeout", "later"); err == nil {
		t.Error("expected error for invalid duration")
	}
	if err := setKeyOn(b, "log.level", "chatty"); err == nil {
		t.Error("expected error for unknown log level")
	}
	if err := setKeyOn(b, "client.token", "x"); err == nil {
		t.Error("expected error when setting a secret")
	}
	if err := setKeyOn(b, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	reloaded := openFileBackend(b.path)
	if v, ok, err := reloaded.GetInt("server.port"); err != nil || !ok || v != 4200 {
		t.Errorf("GetInt(server.port) = %d, %v, %v", v, ok, err)
	}
}

func TestSetClientToken(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if err := SetClientToken("  "); err == nil {
		t.Error("expected error for blank token")
	}
	if err := SetClientToken("tok-123\n"); err != nil {
		t.Fatalf("SetClientToken: %v", err)
	}

	got, err := fileSecrets{}.Get("folio", "client_token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "tok-123" {
		t.Errorf("token = %q, want tok-123", got)
	}

	info, err := os.Stat(secretsFilePath())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("secrets file mode = %o, want 600", perm)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Client.Token = "hidden"

	for _, k := range ShowAll(cfg) {
		if k.Key == "client.token" || k.Value == "hidden" {
			t.Errorf("ShowAll exposed secret: %+v", k)
		}
	}
	for _, k := range ValidKeys() {
		if k == "client.token" {
			t.Error("ValidKeys lists a secret key")
		}
	}
}
