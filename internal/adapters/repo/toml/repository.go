package toml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	sessionPathKey    = "session.path"
	sessionFileMode   = 0o600
	sessionDirMode    = 0o700
	sessionConfigDir  = ".ppl"
	sessionConfigFile = "session.toml"
	tempFilePattern   = ".session-*.toml.tmp"
	secretRefPrefix   = "ppl/session/"
)

// Repository persists the backend client's current session: metadata in a
// TOML file, tokens in a key-value store.
type Repository struct {
	sessionPath string
	secrets     ports.KeyValueStore
	now         func() time.Time
	write       func(fileSchema) error
	mu          *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper, secrets ports.KeyValueStore) (*Repository, error) {
	if secrets == nil {
		return nil, errors.New("session secret store is nil")
	}
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(sessionPathKey, filepath.Join(homeDir, sessionConfigDir, sessionConfigFile))

	sessionPath := cfg.GetString(sessionPathKey)
	if sessionPath == "" {
		return nil, errors.New("session path is empty")
	}
	sessionPath, err = normalizeSessionPath(sessionPath)
	if err != nil {
		return nil, err
	}

	repo := &Repository{
		sessionPath: sessionPath,
		secrets:     secrets,
		now:         time.Now,
		mu:          lockForPath(sessionPath),
	}
	repo.write = repo.writeSchema

	return repo, nil
}

func (r *Repository) Load(ctx context.Context) (domain.AuthSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuthSession{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.AuthSession{}, err
	}
	if file.Session == nil || file.Session.UserID == "" {
		return domain.AuthSession{}, domain.ErrNoSession
	}

	raw, err := r.secrets.Get(ctx, file.Session.SecretRef)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return domain.AuthSession{}, fmt.Errorf("load session tokens: %w", domain.ErrNoSession)
		}
		return domain.AuthSession{}, fmt.Errorf("load session tokens: %w", err)
	}

	var pair tokenPairSchema
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		return domain.AuthSession{}, fmt.Errorf("decode session tokens: %w", err)
	}

	return domain.AuthSession{
		User: domain.User{
			ID:    domain.UserID(file.Session.UserID),
			Email: file.Session.Email,
		},
		Tokens: domain.Tokens{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresAt:    parseTime(file.Session.ExpiresAt),
		},
	}, nil
}

// Save writes the token pair first and then the metadata file. When the file
// write fails the previous token value is restored so both halves agree.
func (r *Repository) Save(ctx context.Context, session domain.AuthSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session.User.ID == "" {
		return errors.New("save session: user id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil && !errors.Is(err, errCorruptSession) {
		return err
	}

	secretRef := secretRefPrefix + string(session.User.ID)
	previous, hadPrevious, err := r.snapshotSecret(ctx, secretRef)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(tokenPairSchema{
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("encode session tokens: %w", err)
	}
	if err := r.secrets.Set(ctx, secretRef, string(payload)); err != nil {
		return fmt.Errorf("store session tokens: %w", err)
	}

	staleRef := ""
	if file.Session != nil && file.Session.SecretRef != secretRef {
		staleRef = file.Session.SecretRef
	}

	file.applyDefaults()
	file.Session = &sessionSchema{
		UserID:    string(session.User.ID),
		Email:     session.User.Email,
		ExpiresAt: formatTime(session.Tokens.ExpiresAt),
		SecretRef: secretRef,
		SavedAt:   formatTime(r.now()),
	}

	if err := r.write(file); err != nil {
		if rollbackErr := r.restoreSecret(context.WithoutCancel(ctx), secretRef, previous, hadPrevious); rollbackErr != nil {
			return fmt.Errorf("save session and rollback stored tokens: %w", errors.Join(err, rollbackErr))
		}
		return err
	}

	if staleRef != "" {
		_ = r.secrets.Delete(ctx, staleRef)
	}

	return nil
}

// Clear removes the metadata file first so a partially cleared session never
// loads.
func (r *Repository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil && !errors.Is(err, errCorruptSession) {
		return err
	}

	if err := os.Remove(r.sessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}

	if file.Session != nil && file.Session.SecretRef != "" {
		if err := r.secrets.Delete(ctx, file.Session.SecretRef); err != nil {
			return fmt.Errorf("delete session tokens: %w", err)
		}
	}

	return nil
}

func (r *Repository) snapshotSecret(ctx context.Context, ref string) (string, bool, error) {
	value, err := r.secrets.Get(ctx, ref)
	if err == nil {
		return value, true, nil
	}
	if errors.Is(err, domain.ErrKeyNotFound) {
		return "", false, nil
	}

	return "", false, fmt.Errorf("read previous session tokens: %w", err)
}

func (r *Repository) restoreSecret(ctx context.Context, ref string, previous string, hadPrevious bool) error {
	if hadPrevious {
		return r.secrets.Set(ctx, ref, previous)
	}

	return r.secrets.Delete(ctx, ref)
}

var errCorruptSession = errors.New("corrupt session file")

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.sessionPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read session file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode session file: %w: %w", errCorruptSession, err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeSessionPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve session path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.sessionPath), sessionDirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.sessionPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}

	if err := tempFile.Chmod(sessionFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tempName, r.sessionPath); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	cleanup = false

	return nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
