package carbonview_test

import (
	"context"
	"errors"
	"testing"

	"github.com/evmarket/carbonview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := carbonview.NewMemoryTokenStore()

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "fresh store should have no access token")

	require.NoError(t, store.SetAccessToken(ctx, "access-1"))
	require.NoError(t, store.SetRefreshToken(ctx, "refresh-1"))

	token, err = store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)

	token, err = store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", token)
}

func TestMemoryTokenStoreProfileIsCopied(t *testing.T) {
	ctx := context.Background()
	store := carbonview.NewMemoryTokenStore()

	original := &carbonview.User{Email: "owner@evmarket.test", Role: carbonview.RoleOwner}
	require.NoError(t, store.SetProfile(ctx, original))

	// Mutating the caller's copy must not reach the stored one.
	original.Email = "changed@evmarket.test"

	cached, err := store.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "owner@evmarket.test", cached.Email)
	assert.Equal(t, carbonview.RoleOwner, cached.Role)

	require.NoError(t, store.SetProfile(ctx, nil))
	cached, err = store.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestMemoryTokenStoreClear(t *testing.T) {
	ctx := context.Background()
	store := carbonview.NewMemoryTokenStore()

	require.NoError(t, store.SetAccessToken(ctx, "access-1"))
	require.NoError(t, store.SetRefreshToken(ctx, "refresh-1"))
	require.NoError(t, store.SetProfile(ctx, &carbonview.User{Email: "owner@evmarket.test"}))

	require.NoError(t, store.Clear(ctx))

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

// brokenTokenStore fails every operation, simulating a dead sqlite file.
type brokenTokenStore struct {
	err error
}

func (s *brokenTokenStore) AccessToken(ctx context.Context) (string, error)    { return "", s.err }
func (s *brokenTokenStore) SetAccessToken(ctx context.Context, _ string) error { return s.err }
func (s *brokenTokenStore) RefreshToken(ctx context.Context) (string, error)   { return "", s.err }
func (s *brokenTokenStore) SetRefreshToken(ctx context.Context, _ string) error {
	return s.err
}
func (s *brokenTokenStore) Profile(ctx context.Context) (*carbonview.User, error) {
	return nil, s.err
}
func (s *brokenTokenStore) SetProfile(ctx context.Context, _ *carbonview.User) error {
	return s.err
}
func (s *brokenTokenStore) Clear(ctx context.Context) error { return s.err }

func TestFailsafeTokenStoreHealthyPassThrough(t *testing.T) {
	ctx := context.Background()
	inner := carbonview.NewMemoryTokenStore()
	store := carbonview.NewFailsafeTokenStore(inner, nil)

	require.NoError(t, store.SetAccessToken(ctx, "access-1"))
	assert.False(t, store.Degraded())

	// The durable store received the write.
	token, err := inner.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
}

func TestFailsafeTokenStoreDegradesToShadow(t *testing.T) {
	ctx := context.Background()
	inner := &brokenTokenStore{err: errors.New("database is locked")}
	store := carbonview.NewFailsafeTokenStore(inner, nil)

	// Writes never surface the inner failure.
	require.NoError(t, store.SetAccessToken(ctx, "access-1"))
	require.NoError(t, store.SetRefreshToken(ctx, "refresh-1"))
	require.NoError(t, store.SetProfile(ctx, &carbonview.User{Email: "owner@evmarket.test"}))
	assert.True(t, store.Degraded())

	// Reads come back from the in-memory shadow.
	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)

	token, err = store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", token)

	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "owner@evmarket.test", profile.Email)

	require.NoError(t, store.Clear(ctx))
	token, err = store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
