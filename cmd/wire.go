package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bnema/ppl-accounts-cli/internal/adapters/backend/gotrue"
	"github.com/bnema/ppl-accounts-cli/internal/adapters/backend/kratos"
	sessionrender "github.com/bnema/ppl-accounts-cli/internal/adapters/render/session"
	tomlrepo "github.com/bnema/ppl-accounts-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/ppl-accounts-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/ppl-accounts-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/ppl-accounts-cli/internal/adapters/secrets/pass"
	"github.com/bnema/ppl-accounts-cli/internal/application"
	"github.com/bnema/ppl-accounts-cli/internal/config"
	"github.com/bnema/ppl-accounts-cli/internal/logging"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const secretsDirName = "secrets"

type app struct {
	cfg             config.Config
	logger          *zap.Logger
	manager         *application.SessionManager
	sessionRenderer func([]application.AccountSummary, sessionrender.RenderOptions) (string, error)
	now             func() time.Time
}

type wireOptions struct {
	ConfigFile string
	LogLevel   string
	LogOutput  io.Writer
}

func wireApp(opts wireOptions) (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v, config.Options{ConfigFile: opts.ConfigFile})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(level, opts.LogOutput)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	secrets, err := wireSecretStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	sessions, err := tomlrepo.NewRepository(v, secrets)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	clock := clockwork.NewRealClock()
	auth, profiles, err := wireBackend(cfg.Backend, sessions, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("wire %s backend: %w", cfg.Backend.Provider, err)
	}

	store := application.NewSessionStore(secrets, cfg.Accounts.CacheKey)
	manager := application.NewSessionManager(store, auth, profiles, application.SessionManagerOptions{
		EvictOnAuthFailure: cfg.Accounts.EvictOnAuthFailure,
		Logger:             logger,
		Clock:              clock,
	})

	return &app{
		cfg:             cfg,
		logger:          logger,
		manager:         manager,
		sessionRenderer: sessionrender.Render,
		now:             clock.Now,
	}, nil
}

func wireSecretStore(cfg config.StorageConfig) (ports.KeyValueStore, error) {
	fileRoot := filepath.Join(cfg.Dir, secretsDirName)

	switch cfg.Secrets {
	case config.SecretsPass:
		return passstore.NewStoreAt(cfg.PassDir), nil
	case config.SecretsFile:
		return filestore.NewStore(fileRoot), nil
	case config.SecretsChain:
		return chainstore.NewPassFirstWithFileFallback(cfg.PassDir, fileRoot)
	default:
		return nil, fmt.Errorf("unsupported secret store %q", cfg.Secrets)
	}
}

func wireBackend(cfg config.BackendConfig, sessions ports.SessionRepository, clock clockwork.Clock, logger *zap.Logger) (ports.AuthService, ports.ProfileRepository, error) {
	switch cfg.Provider {
	case config.ProviderKratos:
		gateway, err := kratos.NewGateway(kratos.Config{
			PublicURL:         cfg.URL,
			AdminURL:          cfg.AdminURL,
			RequestTimeout:    cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, nil, err
		}
		auth := kratos.NewAuth(gateway, sessions, kratos.AuthOptions{Clock: clock, Logger: logger.Named("kratos")})
		return auth, kratos.NewProfiles(gateway, sessions), nil
	case config.ProviderGoTrue:
		client, err := gotrue.NewClient(gotrue.Config{
			BaseURL:           cfg.URL,
			AnonKey:           cfg.AnonKey,
			ProfilesTable:     cfg.ProfilesTable,
			RequestTimeout:    cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, nil, err
		}
		auth := gotrue.NewAuth(client, sessions, gotrue.AuthOptions{Clock: clock, Logger: logger.Named("gotrue")})
		return auth, gotrue.NewProfiles(client, sessions), nil
	default:
		return nil, nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
