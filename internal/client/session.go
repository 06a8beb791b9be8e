// Package client implements the application-side session manager: it owns
// the authentication lifecycle for a UI process, persisting the bearer token
// and a cached user snapshot so a restart does not force a fresh login.
package client

import (
	"context"
	"encoding/json"
)

// SessionManager holds the current session state. It is designed for a
// single cooperative caller (a UI event loop): Initialize, Login and Logout
// are each one in-flight sequence, and overlapping calls must be serialized
// by the caller.
//
// Construct one instance per UI tree and pass it down explicitly; tests can
// build independent managers against independent storages.
type SessionManager struct {
	api   *APIClient
	store Storage

	user        *User
	loading     bool
	initialized bool
}

func NewSessionManager(api *APIClient, store Storage) *SessionManager {
	return &SessionManager{api: api, store: store}
}

// CurrentUser returns the user as currently known. Before Initialize
// resolves this may be the optimistic cached snapshot, not yet verified.
func (m *SessionManager) CurrentUser() *User {
	return m.user
}

func (m *SessionManager) IsAuthenticated() bool {
	return m.user != nil
}

func (m *SessionManager) IsLoading() bool {
	return m.loading
}

// IsInitialized reports whether startup rehydration has resolved. Callers
// must not render protected UI before this is true: until then the user
// value may still be the unverified cached snapshot.
func (m *SessionManager) IsInitialized() bool {
	return m.initialized
}

// Initialize rehydrates the session from persistent storage. A cached user
// is surfaced immediately so the UI shows the logged-in state without a
// flash, then replaced by the server's current record; any verification
// failure clears the whole snapshot. Initialize always leaves the manager
// initialized, whatever the outcome.
func (m *SessionManager) Initialize(ctx context.Context) {
	m.loading = true
	defer func() {
		m.initialized = true
		m.loading = false
	}()

	if raw, ok := m.store.Get(KeyCachedUser); ok {
		var cached User
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			m.user = &cached
		}
	}

	token, ok := m.store.Get(KeyAccessToken)
	if !ok || token == "" {
		// Cached user without a token is stale state from an interrupted
		// logout; treat it as absent.
		_ = m.store.Delete(KeyCachedUser)
		m.user = nil
		return
	}

	user, err := m.api.UserInfo(ctx, token)
	if err != nil {
		m.clear()
		return
	}

	m.setUser(user)
}

// Login authenticates and populates the session. On any failure the session
// is left exactly as it was: no token or user survives a partial login.
func (m *SessionManager) Login(ctx context.Context, email, password string) error {
	m.loading = true
	defer func() { m.loading = false }()

	data, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if err := m.store.Set(KeyAccessToken, data.AccessToken); err != nil {
		return err
	}

	user, err := m.api.UserInfo(ctx, data.AccessToken)
	if err != nil {
		m.clear()
		return err
	}

	m.setUser(user)
	return nil
}

// Logout ends the session. The server call is best-effort; local state is
// cleared unconditionally, so from the caller's perspective logout cannot
// fail.
func (m *SessionManager) Logout(ctx context.Context) {
	if token, ok := m.store.Get(KeyAccessToken); ok && token != "" {
		_ = m.api.Logout(ctx, token)
	}
	m.clear()
}

func (m *SessionManager) setUser(user User) {
	m.user = &user
	if encoded, err := json.Marshal(user); err == nil {
		_ = m.store.Set(KeyCachedUser, string(encoded))
	}
}

func (m *SessionManager) clear() {
	_ = m.store.Delete(KeyAccessToken)
	_ = m.store.Delete(KeyCachedUser)
	m.user = nil
}
