package carbonview_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evmarket/carbonview"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "owner@evmarket.test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type platformStub struct {
	mux    *http.ServeMux
	server *httptest.Server

	loginCalls   int
	logoutCalls  int
	refreshCalls int
	meCalls      int
}

func newPlatformStub(t *testing.T) *platformStub {
	t.Helper()
	stub := &platformStub{mux: http.NewServeMux()}
	stub.server = httptest.NewServer(stub.mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestClientLoginStoresCredentialAndProfile(t *testing.T) {
	ctx := context.Background()
	access := signedToken(t, time.Hour)

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		stub.loginCalls++
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "owner@evmarket.test", req["email"])
		assert.Equal(t, "carbonview-dev", req["password"])
		writeJSON(w, http.StatusOK, map[string]string{
			"accessToken":  access,
			"refreshToken": "refresh-1",
		})
	})
	stub.mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		stub.meCalls++
		assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"email":     "owner@evmarket.test",
			"full_name": "Olive Driver",
			"role":      "OWNER",
			"status":    "ACTIVE",
		})
	})

	store := carbonview.NewMemoryTokenStore()
	client := carbonview.NewClient(stub.server.URL, store)

	user, err := client.Login(ctx, "owner@evmarket.test", "carbonview-dev")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, carbonview.RoleOwner, user.Role)
	assert.Equal(t, "Olive Driver", user.FullName)

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, access, token)

	refresh, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)

	cached, err := store.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "owner@evmarket.test", cached.Email)

	assert.Equal(t, 1, stub.loginCalls)
	assert.Equal(t, 1, stub.meCalls)
}

func TestClientLoginRejectionLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	stub := newPlatformStub(t)
	stub.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	})

	store := carbonview.NewMemoryTokenStore()
	client := carbonview.NewClient(stub.server.URL, store)

	user, err := client.Login(ctx, "owner@evmarket.test", "wrong")
	require.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, carbonview.IsAuthenticationError(err))

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestClientLoginProfileFailureDoesNotStoreToken(t *testing.T) {
	ctx := context.Background()
	access := signedToken(t, time.Hour)

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
	})
	stub.mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})

	store := carbonview.NewMemoryTokenStore()
	client := carbonview.NewClient(stub.server.URL, store)

	_, err := client.Login(ctx, "owner@evmarket.test", "carbonview-dev")
	require.Error(t, err)

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "a token must not be stored when the profile fetch fails")
}

func TestClientMeWithoutCredential(t *testing.T) {
	ctx := context.Background()
	stub := newPlatformStub(t)

	client := carbonview.NewClient(stub.server.URL, carbonview.NewMemoryTokenStore())

	_, err := client.Me(ctx)
	require.Error(t, err)
	assert.True(t, carbonview.IsUnauthenticated(err))
}

func TestClientMeClearsStoreOnRejection(t *testing.T) {
	ctx := context.Background()
	access := signedToken(t, time.Hour)

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})

	store := carbonview.NewMemoryTokenStore()
	require.NoError(t, store.SetAccessToken(ctx, access))
	require.NoError(t, store.SetProfile(ctx, &carbonview.User{Email: "owner@evmarket.test"}))

	client := carbonview.NewClient(stub.server.URL, store)

	_, err := client.Me(ctx)
	require.Error(t, err)
	assert.True(t, carbonview.IsUnauthenticated(err))

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "a rejected credential must be purged")

	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestClientMeRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	access := signedToken(t, time.Hour)

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"email": "odd@evmarket.test",
			"role":  "SUPERVISOR",
		})
	})

	store := carbonview.NewMemoryTokenStore()
	require.NoError(t, store.SetAccessToken(ctx, access))

	client := carbonview.NewClient(stub.server.URL, store)

	_, err := client.Me(ctx)
	require.Error(t, err)
}

func TestClientLogoutClearsStoreEvenWhenPlatformIsDown(t *testing.T) {
	ctx := context.Background()

	stub := newPlatformStub(t)
	store := carbonview.NewMemoryTokenStore()
	require.NoError(t, store.SetAccessToken(ctx, signedToken(t, time.Hour)))
	require.NoError(t, store.SetProfile(ctx, &carbonview.User{Email: "owner@evmarket.test"}))

	client := carbonview.NewClient(stub.server.URL, store)
	// Kill the platform before the logout notification goes out.
	stub.server.Close()

	require.NoError(t, client.Logout(ctx))

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestClientRefreshRotatesTokens(t *testing.T) {
	ctx := context.Background()
	newAccess := signedToken(t, time.Hour)

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		stub.refreshCalls++
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh-1", req["refreshToken"])
		writeJSON(w, http.StatusOK, map[string]string{
			"accessToken":  newAccess,
			"refreshToken": "refresh-2",
		})
	})

	store := carbonview.NewMemoryTokenStore()
	require.NoError(t, store.SetRefreshToken(ctx, "refresh-1"))

	client := carbonview.NewClient(stub.server.URL, store)

	token, err := client.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, newAccess, token)

	stored, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", stored)
	assert.Equal(t, 1, stub.refreshCalls)
}

func TestClientRefreshRejectionClearsStore(t *testing.T) {
	ctx := context.Background()

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "refresh token revoked"})
	})

	store := carbonview.NewMemoryTokenStore()
	require.NoError(t, store.SetAccessToken(ctx, signedToken(t, time.Hour)))
	require.NoError(t, store.SetRefreshToken(ctx, "refresh-old"))

	client := carbonview.NewClient(stub.server.URL, store)

	_, err := client.Refresh(ctx)
	require.ErrorIs(t, err, carbonview.ErrCredentialRejected)

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestClientDoRefreshesExpiringToken(t *testing.T) {
	ctx := context.Background()
	oldAccess := signedToken(t, 10*time.Second)
	newAccess := signedToken(t, time.Hour)

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		stub.refreshCalls++
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": newAccess})
	})
	stub.mux.HandleFunc("GET /owner/journeys", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+newAccess, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []any{})
	})

	store := carbonview.NewMemoryTokenStore()
	require.NoError(t, store.SetAccessToken(ctx, oldAccess))
	require.NoError(t, store.SetRefreshToken(ctx, "refresh-1"))

	client := carbonview.NewClient(stub.server.URL, store)

	var out []any
	require.NoError(t, client.Do(ctx, http.MethodGet, "/owner/journeys", nil, &out))
	assert.Equal(t, 1, stub.refreshCalls)
}

func TestClientDoClearsStoreOn401(t *testing.T) {
	ctx := context.Background()

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("GET /owner/journeys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})

	store := carbonview.NewMemoryTokenStore()
	require.NoError(t, store.SetAccessToken(ctx, signedToken(t, time.Hour)))

	client := carbonview.NewClient(stub.server.URL, store)

	err := client.Do(ctx, http.MethodGet, "/owner/journeys", nil, nil)
	require.ErrorIs(t, err, carbonview.ErrCredentialRejected)

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestClientDoMapsForbidden(t *testing.T) {
	ctx := context.Background()

	stub := newPlatformStub(t)
	stub.mux.HandleFunc("GET /admin/report", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admins only"})
	})

	store := carbonview.NewMemoryTokenStore()
	require.NoError(t, store.SetAccessToken(ctx, signedToken(t, time.Hour)))

	client := carbonview.NewClient(stub.server.URL, store)

	err := client.Do(ctx, http.MethodGet, "/admin/report", nil, nil)
	require.ErrorIs(t, err, carbonview.ErrRoleForbidden)

	// A wrong-role response is not a credential problem; the token stays.
	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestClientNetworkFailureIsTagged(t *testing.T) {
	ctx := context.Background()

	stub := newPlatformStub(t)
	url := stub.server.URL
	stub.server.Close()

	client := carbonview.NewClient(url, carbonview.NewMemoryTokenStore())

	_, err := client.Login(ctx, "owner@evmarket.test", "carbonview-dev")
	require.Error(t, err)
	assert.True(t, carbonview.IsNetworkError(err))
}
