package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "PPL"
	configName     = "config"
	configType     = "toml"
	defaultDirName = ".ppl"
	defaultEnvFile = ".env"

	ProviderGoTrue = "gotrue"
	ProviderKratos = "kratos"

	SecretsChain = "chain"
	SecretsPass  = "pass"
	SecretsFile  = "file"
)

const (
	KeyBackendProvider      = "backend.provider"
	KeyBackendURL           = "backend.url"
	KeyBackendAnonKey       = "backend.anon_key"
	KeyBackendAdminURL      = "backend.admin_url"
	KeyBackendProfilesTable = "backend.profiles_table"
	KeyBackendTimeout       = "backend.timeout"
	KeyBackendRPS           = "backend.requests_per_second"
	KeyStorageDir           = "storage.dir"
	KeyStorageSecrets       = "storage.secrets"
	KeyStoragePassDir       = "storage.pass_dir"
	KeyAccountsCacheKey     = "accounts.cache_key"
	KeyAccountsEvict        = "accounts.evict_on_auth_failure"
	KeySessionPath          = "session.path"
	KeyLogLevel             = "log.level"
)

type Config struct {
	Backend  BackendConfig
	Storage  StorageConfig
	Accounts AccountsConfig
	Session  SessionConfig
	Log      LogConfig
}

type BackendConfig struct {
	Provider          string `validate:"oneof=gotrue kratos"`
	URL               string `validate:"required,url"`
	AnonKey           string
	AdminURL          string        `validate:"omitempty,url"`
	ProfilesTable     string        `validate:"required"`
	Timeout           time.Duration `validate:"gt=0"`
	RequestsPerSecond float64       `validate:"gte=0"`
}

type StorageConfig struct {
	Dir     string `validate:"required"`
	Secrets string `validate:"oneof=chain pass file"`
	// PassDir overrides PASSWORD_STORE_DIR for the pass backend.
	PassDir string
}

type AccountsConfig struct {
	CacheKey           string `validate:"required"`
	EvictOnAuthFailure bool
}

type SessionConfig struct {
	Path string `validate:"required"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type Options struct {
	// ConfigFile overrides the default <storage.dir>/config.toml lookup.
	ConfigFile string
	// EnvFile is loaded into the process environment when present. Defaults
	// to .env in the working directory.
	EnvFile string
}

// Load resolves configuration from defaults, the TOML config file, an
// optional .env file and PPL_* environment variables, in increasing order of
// precedence.
func Load(v *viper.Viper, opts Options) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	defaultDir := filepath.Join(homeDir, defaultDirName)

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	setDefaults(v, defaultDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType(configType)
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(expandHome(v.GetString(KeyStorageDir), homeDir))
	}
	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	storageDir := expandHome(v.GetString(KeyStorageDir), homeDir)
	sessionPath := v.GetString(KeySessionPath)
	if sessionPath == "" {
		sessionPath = filepath.Join(storageDir, "session.toml")
	}
	sessionPath = expandHome(sessionPath, homeDir)
	// Adapters resolve the session file through the same viper instance.
	v.Set(KeySessionPath, sessionPath)

	cfg := Config{
		Backend: BackendConfig{
			Provider:          strings.ToLower(strings.TrimSpace(v.GetString(KeyBackendProvider))),
			URL:               strings.TrimSpace(v.GetString(KeyBackendURL)),
			AnonKey:           v.GetString(KeyBackendAnonKey),
			AdminURL:          strings.TrimSpace(v.GetString(KeyBackendAdminURL)),
			ProfilesTable:     v.GetString(KeyBackendProfilesTable),
			Timeout:           v.GetDuration(KeyBackendTimeout),
			RequestsPerSecond: v.GetFloat64(KeyBackendRPS),
		},
		Storage: StorageConfig{
			Dir:     storageDir,
			Secrets: strings.ToLower(strings.TrimSpace(v.GetString(KeyStorageSecrets))),
			PassDir: expandHome(strings.TrimSpace(v.GetString(KeyStoragePassDir)), homeDir),
		},
		Accounts: AccountsConfig{
			CacheKey:           v.GetString(KeyAccountsCacheKey),
			EvictOnAuthFailure: v.GetBool(KeyAccountsEvict),
		},
		Session: SessionConfig{Path: sessionPath},
		Log:     LogConfig{Level: strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel)))},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, defaultDir string) {
	v.SetDefault(KeyBackendProvider, ProviderGoTrue)
	v.SetDefault(KeyBackendURL, "http://127.0.0.1:54321")
	v.SetDefault(KeyBackendAnonKey, "")
	v.SetDefault(KeyBackendAdminURL, "")
	v.SetDefault(KeyBackendProfilesTable, "profiles")
	v.SetDefault(KeyBackendTimeout, 15*time.Second)
	v.SetDefault(KeyBackendRPS, 5)
	v.SetDefault(KeyStorageDir, defaultDir)
	v.SetDefault(KeyStorageSecrets, SecretsChain)
	v.SetDefault(KeyStoragePassDir, "")
	v.SetDefault(KeyAccountsCacheKey, "ppl/accounts/cache")
	v.SetDefault(KeyAccountsEvict, false)
	v.SetDefault(KeySessionPath, "")
	v.SetDefault(KeyLogLevel, "warn")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := requireHTTP(c.Backend.URL); err != nil {
		return fmt.Errorf("invalid config: %s: %w", KeyBackendURL, err)
	}
	if c.Backend.AdminURL != "" {
		if err := requireHTTP(c.Backend.AdminURL); err != nil {
			return fmt.Errorf("invalid config: %s: %w", KeyBackendAdminURL, err)
		}
	}

	return nil
}

func requireHTTP(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must use http or https")
	}

	return nil
}

func expandHome(path, homeDir string) string {
	switch {
	case path == "~":
		return homeDir
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
