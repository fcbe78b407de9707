// Package session owns the authentication token and the signed-in user:
// sign-in/sign-out, silent restore of a persisted identity at startup, and
// the teardown of shared client state on sign-out.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"salonbook/internal/domain"
	"salonbook/internal/httpapi"
	"salonbook/internal/store"
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type Manager struct {
	api   *httpapi.Client
	store store.IdentityStore
	log   *slog.Logger

	mu       sync.RWMutex
	state    State
	user     domain.User
	clientID int64
}

func NewManager(api *httpapi.Client, identityStore store.IdentityStore, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		api:   api,
		store: identityStore,
		log:   log.With(slog.String("component", "session")),
		state: StateUnauthenticated,
	}
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Current returns the signed-in user. The second result is false while the
// session is anything but Authenticated.
func (m *Manager) Current() (domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.state == StateAuthenticated
}

// ClientID returns the signed-in user's client record id, or the user id
// when the backend did not hand one out (bookings key on it either way).
func (m *Manager) ClientID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.clientID != 0 {
		return m.clientID
	}
	return m.user.ID
}

// Bootstrap restores a persisted token and user id at process start. A
// missing identity or a failed profile fetch lands in Unauthenticated with
// the persisted token cleared; neither is an error to the caller.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.setState(StateLoading, domain.User{})

	identity, err := m.store.Load(ctx)
	if err != nil {
		m.setState(StateUnauthenticated, domain.User{})
		if errors.Is(err, store.ErrNoIdentity) {
			return nil
		}
		return fmt.Errorf("load identity: %w", err)
	}

	m.api.SetToken(identity.Token)
	user, err := m.api.Profile(ctx, identity.UserID, false)
	if err != nil {
		m.log.Warn("session restore failed, clearing persisted identity", slog.Any("err", err))
		m.Expire(ctx)
		return nil
	}

	m.setState(StateAuthenticated, user)
	m.setClientID(identity.ClientID)
	m.log.Info("session restored", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	return nil
}

type loginUser struct {
	domain.User
	Client *domain.Client `json:"client,omitempty"`
}

// The backend answers with either {accessToken, usuario} or {token, user};
// both shapes are accepted.
type loginResponse struct {
	AccessToken string     `json:"accessToken"`
	Token       string     `json:"token"`
	Usuario     *loginUser `json:"usuario"`
	User        *loginUser `json:"user"`
}

func (r loginResponse) token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

func (r loginResponse) user() *loginUser {
	if r.Usuario != nil {
		return r.Usuario
	}
	return r.User
}

// SignIn exchanges credentials for a token, persists the identity, and
// installs the token on the shared client. Backend failures propagate
// unchanged; there is no retry.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}

	var resp loginResponse
	err := m.api.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}

	token := resp.token()
	user := resp.user()
	if token == "" || user == nil {
		return fmt.Errorf("login response missing token or user")
	}

	identity := store.Identity{Token: token, UserID: user.ID}
	if user.Client != nil {
		identity.ClientID = user.Client.ID
	}
	if err := m.store.Save(ctx, identity); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}

	// A sign-in over a live session must not leak the previous user's
	// cached responses.
	m.api.Cache().InvalidateAll()
	m.api.SetToken(token)
	m.setState(StateAuthenticated, user.User)
	m.setClientID(identity.ClientID)
	m.log.Info("signed in", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	return nil
}

// SignOut clears persisted identity keys, the default bearer header, and the
// shared response cache. Safe to call while already unauthenticated.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	m.api.ClearToken()
	m.api.Cache().InvalidateAll()
	m.setState(StateUnauthenticated, domain.User{})
	m.log.Info("signed out")
	return nil
}

// RefreshUserData re-fetches the profile for the signed-in user and replaces
// the in-memory copy. Used after role-sensitive actions.
func (m *Manager) RefreshUserData(ctx context.Context) error {
	current, ok := m.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	user, err := m.api.Profile(ctx, current.ID, true)
	if err != nil {
		if errors.Is(err, httpapi.ErrUnauthorized) {
			m.log.Warn("token rejected mid-session, clearing identity", slog.Any("err", err))
			m.Expire(ctx)
		}
		return err
	}
	m.setState(StateAuthenticated, user)
	return nil
}

// Expire tears down local session state after the backend rejects the token:
// the installed bearer, the persisted identity, and the shared response
// cache. Token expiry only ever surfaces as a 401, so any layer seeing one
// routes it here.
func (m *Manager) Expire(ctx context.Context) {
	m.api.ClearToken()
	m.api.Cache().InvalidateAll()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("identity clear failed", slog.Any("err", err))
	}
	m.setState(StateUnauthenticated, domain.User{})
}

func (m *Manager) setState(state State, user domain.User) {
	m.mu.Lock()
	m.state = state
	m.user = user
	if state != StateAuthenticated {
		m.clientID = 0
	}
	m.mu.Unlock()
}

func (m *Manager) setClientID(id int64) {
	m.mu.Lock()
	m.clientID = id
	m.mu.Unlock()
}
