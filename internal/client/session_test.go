package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAuthServer emulates the three auth endpoints with one valid
// credential pair. issueToken is what a successful login hands out and
// token is what user/me accepts; they match unless a test pulls them
// apart to simulate a token going bad between the two calls.
type fakeAuthServer struct {
	*httptest.Server

	issueToken string
	token      string
	user       User

	loginCalls  int
	logoutCalls int
	infoCalls   int
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()

	f := &fakeAuthServer{
		issueToken: "valid-token",
		token:      "valid-token",
		user:       User{ID: 7, Email: "a@b.com", Role: "user", CreatedAt: "2025-06-01 12:00:00"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls++
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email != "a@b.com" || body.Password != "abc12345" {
			writeFakeError(w, http.StatusUnauthorized, "authentication_failed", "email or password is incorrect")
			return
		}
		writeFakeSuccess(w, map[string]string{
			"access_token": f.issueToken,
			"token_type":   "bearer",
			"role":         f.user.Role,
		})
	})
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls++
		writeFakeSuccess(w, map[string]string{"message": "logged out"})
	})
	mux.HandleFunc("/api/user/me", func(w http.ResponseWriter, r *http.Request) {
		f.infoCalls++
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeFakeError(w, http.StatusUnauthorized, "invalid_token", "authentication token is invalid")
			return
		}
		writeFakeSuccess(w, f.user)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func writeFakeSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeFakeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]any{"error": code, "message": message},
	})
}

func newTestManager(t *testing.T, f *fakeAuthServer) (*SessionManager, Storage) {
	t.Helper()
	store := NewMemoryStorage()
	return NewSessionManager(NewAPIClient(f.URL, f.Client()), store), store
}

func TestInitialize_RehydratesFromValidToken(t *testing.T) {
	f := newFakeAuthServer(t)
	m, store := newTestManager(t, f)

	stale, err := json.Marshal(User{ID: 7, Email: "old@b.com", Role: "user"})
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyAccessToken, f.token))
	require.NoError(t, store.Set(KeyCachedUser, string(stale)))

	m.Initialize(context.Background())

	require.True(t, m.IsInitialized())
	require.False(t, m.IsLoading())
	require.True(t, m.IsAuthenticated())
	// The stale snapshot is replaced by the server's record.
	require.Equal(t, "a@b.com", m.CurrentUser().Email)

	cached, ok := store.Get(KeyCachedUser)
	require.True(t, ok)
	var persisted User
	require.NoError(t, json.Unmarshal([]byte(cached), &persisted))
	require.Equal(t, f.user, persisted)
}

func TestInitialize_RejectedTokenClearsEverything(t *testing.T) {
	f := newFakeAuthServer(t)
	m, store := newTestManager(t, f)

	require.NoError(t, store.Set(KeyAccessToken, "revoked-token"))
	require.NoError(t, store.Set(KeyCachedUser, `{"id":7,"email":"a@b.com"}`))

	m.Initialize(context.Background())

	require.True(t, m.IsInitialized())
	require.False(t, m.IsAuthenticated())
	require.Nil(t, m.CurrentUser())

	_, ok := store.Get(KeyAccessToken)
	require.False(t, ok)
	_, ok = store.Get(KeyCachedUser)
	require.False(t, ok)
}

func TestInitialize_CachedUserWithoutTokenIsDiscarded(t *testing.T) {
	f := newFakeAuthServer(t)
	m, store := newTestManager(t, f)

	require.NoError(t, store.Set(KeyCachedUser, `{"id":7,"email":"a@b.com"}`))

	m.Initialize(context.Background())

	require.True(t, m.IsInitialized())
	require.Nil(t, m.CurrentUser())
	_, ok := store.Get(KeyCachedUser)
	require.False(t, ok)
	require.Zero(t, f.infoCalls, "no token means no server round trip")
}

func TestInitialize_EmptyStorage(t *testing.T) {
	f := newFakeAuthServer(t)
	m, _ := newTestManager(t, f)

	m.Initialize(context.Background())

	require.True(t, m.IsInitialized())
	require.False(t, m.IsAuthenticated())
}

func TestLogin_Success(t *testing.T) {
	f := newFakeAuthServer(t)
	m, store := newTestManager(t, f)

	require.NoError(t, m.Login(context.Background(), "a@b.com", "abc12345"))

	require.True(t, m.IsAuthenticated())
	require.Equal(t, int64(7), m.CurrentUser().ID)

	token, ok := store.Get(KeyAccessToken)
	require.True(t, ok)
	require.Equal(t, f.token, token)
	_, ok = store.Get(KeyCachedUser)
	require.True(t, ok)
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFakeAuthServer(t)
	m, store := newTestManager(t, f)

	err := m.Login(context.Background(), "a@b.com", "wrong-pass1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "authentication_failed", apiErr.Code)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.False(t, m.IsAuthenticated())
	_, ok := store.Get(KeyAccessToken)
	require.False(t, ok, "failed login must not leave a token behind")
}

func TestLogin_UserFetchFailureLeavesNoPartialState(t *testing.T) {
	f := newFakeAuthServer(t)
	m, store := newTestManager(t, f)

	// Login succeeds but user/me rejects the freshly issued token, as if
	// the account were deactivated between the two calls.
	f.issueToken = "already-revoked"

	err := m.Login(context.Background(), "a@b.com", "abc12345")
	require.Error(t, err)

	require.False(t, m.IsAuthenticated())
	_, ok := store.Get(KeyAccessToken)
	require.False(t, ok)
	_, ok = store.Get(KeyCachedUser)
	require.False(t, ok)
}

func TestLogout_CallsServerAndClears(t *testing.T) {
	f := newFakeAuthServer(t)
	m, store := newTestManager(t, f)

	require.NoError(t, m.Login(context.Background(), "a@b.com", "abc12345"))

	m.Logout(context.Background())

	require.Equal(t, 1, f.logoutCalls)
	require.False(t, m.IsAuthenticated())
	_, ok := store.Get(KeyAccessToken)
	require.False(t, ok)
	_, ok = store.Get(KeyCachedUser)
	require.False(t, ok)
}

func TestLogout_ServerDownStillClears(t *testing.T) {
	f := newFakeAuthServer(t)
	store := NewMemoryStorage()
	require.NoError(t, store.Set(KeyAccessToken, "some-token"))
	require.NoError(t, store.Set(KeyCachedUser, `{"id":7}`))

	url := f.URL
	f.Server.Close()

	m := NewSessionManager(NewAPIClient(url, nil), store)
	m.Logout(context.Background())

	require.False(t, m.IsAuthenticated())
	_, ok := store.Get(KeyAccessToken)
	require.False(t, ok)
	_, ok = store.Get(KeyCachedUser)
	require.False(t, ok)
}

func TestLogout_WithoutTokenSkipsServer(t *testing.T) {
	f := newFakeAuthServer(t)
	m, _ := newTestManager(t, f)

	m.Logout(context.Background())

	require.Zero(t, f.logoutCalls)
}

func TestFileStorage_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session", "state.json")

	store, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyAccessToken, "persisted-token"))
	require.NoError(t, store.Set(KeyCachedUser, `{"id":7}`))
	require.NoError(t, store.Delete(KeyCachedUser))

	reopened, err := NewFileStorage(path)
	require.NoError(t, err)

	token, ok := reopened.Get(KeyAccessToken)
	require.True(t, ok)
	require.Equal(t, "persisted-token", token)
	_, ok = reopened.Get(KeyCachedUser)
	require.False(t, ok)
}
