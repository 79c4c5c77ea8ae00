package carbonview

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Namespaced keys in the credentials table. One row per slot.
const (
	keyAccessToken  = "carbonview:access_token"
	keyRefreshToken = "carbonview:refresh_token"
	keyProfile      = "carbonview:profile"
)

// CredentialRecord is a row in the console's durable key-value store.
type CredentialRecord struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`
	Key           string     `bun:"key,pk" json:"key"`
	Value         string     `bun:"value,notnull" json:"value"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunTokenStore persists credentials in a bun-managed sqlite table so a
// console restart does not force a re-login.
type BunTokenStore struct {
	db *bun.DB
}

var _ TokenStore = (*BunTokenStore)(nil)

func NewBunTokenStore(db *bun.DB) *BunTokenStore {
	return &BunTokenStore{db: db}
}

// Init creates the credentials table when it does not exist yet.
func (s *BunTokenStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*CredentialRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create credentials table")
	}
	return nil
}

func (s *BunTokenStore) get(ctx context.Context, key string) (string, error) {
	rec := new(CredentialRecord)
	err := s.db.NewSelect().
		Model(rec).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read credential store")
	}
	return rec.Value, nil
}

func (s *BunTokenStore) set(ctx context.Context, key, value string) error {
	now := time.Now()
	rec := &CredentialRecord{Key: key, Value: value, UpdatedAt: &now}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to write credential store")
	}
	return nil
}

func (s *BunTokenStore) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyAccessToken)
}

func (s *BunTokenStore) SetAccessToken(ctx context.Context, token string) error {
	return s.set(ctx, keyAccessToken, token)
}

func (s *BunTokenStore) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyRefreshToken)
}

func (s *BunTokenStore) SetRefreshToken(ctx context.Context, token string) error {
	return s.set(ctx, keyRefreshToken, token)
}

func (s *BunTokenStore) Profile(ctx context.Context) (*User, error) {
	raw, err := s.get(ctx, keyProfile)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	user := new(User)
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		// A corrupt cached profile is treated as absent; the next Me call
		// repopulates it.
		return nil, nil
	}
	return user, nil
}

func (s *BunTokenStore) SetProfile(ctx context.Context, user *User) error {
	if user == nil {
		return s.set(ctx, keyProfile, "")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode cached profile")
	}
	return s.set(ctx, keyProfile, string(raw))
}

func (s *BunTokenStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*CredentialRecord)(nil)).
		Where("key IN (?, ?, ?)", keyAccessToken, keyRefreshToken, keyProfile).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear credential store")
	}
	return nil
}

// MemoryTokenStore is an ephemeral TokenStore for tests and store.ephemeral runs.
type MemoryTokenStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	profile *User
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, nil
}

func (s *MemoryTokenStore) SetAccessToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = token
	return nil
}

func (s *MemoryTokenStore) RefreshToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh, nil
}

func (s *MemoryTokenStore) SetRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = token
	return nil
}

func (s *MemoryTokenStore) Profile(ctx context.Context) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, nil
	}
	clone := *s.profile
	return &clone, nil
}

func (s *MemoryTokenStore) SetProfile(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.profile = nil
		return nil
	}
	clone := *user
	s.profile = &clone
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.profile = nil
	return nil
}

// FailsafeTokenStore wraps a durable store and guarantees the contract that
// storage trouble never surfaces as an error: reads degrade to absent, writes
// land in an in-memory shadow so the current process keeps working, and every
// failure is logged once at the point it happened.
type FailsafeTokenStore struct {
	inner    TokenStore
	shadow   *MemoryTokenStore
	logger   Logger
	mu       sync.Mutex
	degraded bool
}

var _ TokenStore = (*FailsafeTokenStore)(nil)

func NewFailsafeTokenStore(inner TokenStore, logger Logger) *FailsafeTokenStore {
	if logger == nil {
		logger = defLogger{}
	}
	return &FailsafeTokenStore{
		inner:  inner,
		shadow: NewMemoryTokenStore(),
		logger: logger,
	}
}

// Degraded reports whether the durable backing store has failed at least once
// this process.
func (s *FailsafeTokenStore) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *FailsafeTokenStore) markDegraded(op string, err error) {
	s.mu.Lock()
	first := !s.degraded
	s.degraded = true
	s.mu.Unlock()
	if first {
		s.logger.Warn("credential store degraded to in-memory", "operation", op, "error", err)
	} else {
		s.logger.Debug("credential store still degraded", "operation", op, "error", err)
	}
}

func (s *FailsafeTokenStore) AccessToken(ctx context.Context) (string, error) {
	token, err := s.inner.AccessToken(ctx)
	if err != nil {
		s.markDegraded("access_token.get", err)
		return s.shadow.AccessToken(ctx)
	}
	return token, nil
}

func (s *FailsafeTokenStore) SetAccessToken(ctx context.Context, token string) error {
	if err := s.inner.SetAccessToken(ctx, token); err != nil {
		s.markDegraded("access_token.set", err)
	}
	return s.shadow.SetAccessToken(ctx, token)
}

func (s *FailsafeTokenStore) RefreshToken(ctx context.Context) (string, error) {
	token, err := s.inner.RefreshToken(ctx)
	if err != nil {
		s.markDegraded("refresh_token.get", err)
		return s.shadow.RefreshToken(ctx)
	}
	return token, nil
}

func (s *FailsafeTokenStore) SetRefreshToken(ctx context.Context, token string) error {
	if err := s.inner.SetRefreshToken(ctx, token); err != nil {
		s.markDegraded("refresh_token.set", err)
	}
	return s.shadow.SetRefreshToken(ctx, token)
}

func (s *FailsafeTokenStore) Profile(ctx context.Context) (*User, error) {
	user, err := s.inner.Profile(ctx)
	if err != nil {
		s.markDegraded("profile.get", err)
		return s.shadow.Profile(ctx)
	}
	return user, nil
}

func (s *FailsafeTokenStore) SetProfile(ctx context.Context, user *User) error {
	if err := s.inner.SetProfile(ctx, user); err != nil {
		s.markDegraded("profile.set", err)
	}
	return s.shadow.SetProfile(ctx, user)
}

func (s *FailsafeTokenStore) Clear(ctx context.Context) error {
	if err := s.inner.Clear(ctx); err != nil {
		s.markDegraded("clear", err)
	}
	return s.shadow.Clear(ctx)
}
