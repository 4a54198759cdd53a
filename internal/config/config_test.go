package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(viper.New(), Options{})
	require.NoError(t, err)

	assert.Equal(t, ProviderGoTrue, cfg.Backend.Provider)
	assert.Equal(t, "http://127.0.0.1:54321", cfg.Backend.URL)
	assert.Equal(t, "profiles", cfg.Backend.ProfilesTable)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, float64(5), cfg.Backend.RequestsPerSecond)
	assert.Equal(t, filepath.Join(home, ".ppl"), cfg.Storage.Dir)
	assert.Equal(t, SecretsChain, cfg.Storage.Secrets)
	assert.Empty(t, cfg.Storage.PassDir)
	assert.Equal(t, "ppl/accounts/cache", cfg.Accounts.CacheKey)
	assert.False(t, cfg.Accounts.EvictOnAuthFailure)
	assert.Equal(t, filepath.Join(home, ".ppl", "session.toml"), cfg.Session.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadReadsConfigFileFromStorageDir(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ppl"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".ppl", "config.toml"), []byte(`
[backend]
provider = "kratos"
url = "https://id.example.com"
admin_url = "http://127.0.0.1:4434"
timeout = "3s"

[storage]
pass_dir = "~/.ppl-pass"

[accounts]
evict_on_auth_failure = true
`), 0o600))

	v := viper.New()
	cfg, err := Load(v, Options{})
	require.NoError(t, err)

	assert.Equal(t, ProviderKratos, cfg.Backend.Provider)
	assert.Equal(t, "https://id.example.com", cfg.Backend.URL)
	assert.Equal(t, "http://127.0.0.1:4434", cfg.Backend.AdminURL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.True(t, cfg.Accounts.EvictOnAuthFailure)
	assert.Equal(t, filepath.Join(home, ".ppl-pass"), cfg.Storage.PassDir)
	assert.Equal(t, cfg.Session.Path, v.GetString(KeySessionPath))
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	configFile := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(configFile, []byte("[backend]\nurl = \"https://file.example.com\"\n"), 0o600))
	t.Setenv("PPL_BACKEND_URL", "https://env.example.com")
	t.Setenv("PPL_LOG_LEVEL", "DEBUG")

	cfg, err := Load(viper.New(), Options{ConfigFile: configFile})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Backend.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadReadsDotEnv(t *testing.T) {
	isolate(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PPL_BACKEND_ANON_KEY=anon-from-dotenv\n"), 0o600))
	t.Setenv("PPL_BACKEND_ANON_KEY", "")
	require.NoError(t, os.Unsetenv("PPL_BACKEND_ANON_KEY"))

	cfg, err := Load(viper.New(), Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "anon-from-dotenv", cfg.Backend.AnonKey)
}

func TestLoadExpandsHomeInPaths(t *testing.T) {
	home := isolate(t)
	t.Setenv("PPL_STORAGE_DIR", "~/state/ppl")

	cfg, err := Load(viper.New(), Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "state", "ppl"), cfg.Storage.Dir)
	assert.Equal(t, filepath.Join(home, "state", "ppl", "session.toml"), cfg.Session.Path)
}

func TestLoadMalformedConfigFileFails(t *testing.T) {
	isolate(t)
	configFile := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(configFile, []byte("backend = ["), 0o600))

	_, err := Load(viper.New(), Options{ConfigFile: configFile})
	require.Error(t, err)
	assert.ErrorContains(t, err, "read config file")
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Backend: BackendConfig{
				Provider:      ProviderGoTrue,
				URL:           "http://127.0.0.1:54321",
				ProfilesTable: "profiles",
				Timeout:       time.Second,
			},
			Storage:  StorageConfig{Dir: "/tmp/ppl", Secrets: SecretsFile},
			Accounts: AccountsConfig{CacheKey: "ppl/accounts/cache"},
			Session:  SessionConfig{Path: "/tmp/ppl/session.toml"},
			Log:      LogConfig{Level: "warn"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "provider", mutate: func(c *Config) { c.Backend.Provider = "firebase" }, wantErr: "Provider"},
		{name: "empty url", mutate: func(c *Config) { c.Backend.URL = "" }, wantErr: "URL"},
		{name: "scheme", mutate: func(c *Config) { c.Backend.URL = "ftp://example.com" }, wantErr: "must use http or https"},
		{name: "admin scheme", mutate: func(c *Config) { c.Backend.AdminURL = "ws://example.com" }, wantErr: "backend.admin_url"},
		{name: "timeout", mutate: func(c *Config) { c.Backend.Timeout = 0 }, wantErr: "Timeout"},
		{name: "secrets", mutate: func(c *Config) { c.Storage.Secrets = "keychain" }, wantErr: "Secrets"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "Level"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
