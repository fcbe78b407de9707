package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"salonbook/internal/httpapi"
	"salonbook/internal/store"
)

// fakeBackend is a minimal login/profile server recording the bearer tokens
// it sees.
type fakeBackend struct {
	mux        *http.ServeMux
	lastBearer string
	loginBody  string
	profile    string
	profile401 bool
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		loginBody: `{"accessToken":"tok-1","usuario":{"id":12,"name":"Eva","email":"a@b.com","role":"CLIENT","client":{"id":44,"id_user":12}}}`,
		profile:   `{"id":12,"name":"Eva","email":"a@b.com","role":"client"}`,
	}
	b.mux = http.NewServeMux()
	b.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(b.loginBody))
	})
	b.mux.HandleFunc("GET /users/12", func(w http.ResponseWriter, r *http.Request) {
		b.lastBearer = r.Header.Get("Authorization")
		if b.profile401 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(b.profile))
	})
	return b
}

func newTestManager(t *testing.T, backend *fakeBackend, identityStore store.IdentityStore) (*Manager, *httpapi.Client) {
	t.Helper()
	server := httptest.NewServer(backend.mux)
	t.Cleanup(server.Close)
	api := httpapi.NewClient(httpapi.ClientConfig{BaseURL: server.URL})
	return NewManager(api, identityStore, nil), api
}

func TestSignInPersistsIdentityAndInstallsToken(t *testing.T) {
	backend := newFakeBackend()
	identityStore := store.NewMemoryStore()
	m, _ := newTestManager(t, backend, identityStore)
	ctx := context.Background()

	if err := m.SignIn(ctx, "a@b.com", "pw"); err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %s, want authenticated", m.State())
	}

	user, ok := m.Current()
	if !ok || user.ID != 12 || string(user.Role) != "client" {
		t.Fatalf("current user = %#v, %v", user, ok)
	}

	identity, err := identityStore.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if identity.Token != "tok-1" || identity.UserID != 12 || identity.ClientID != 44 {
		t.Fatalf("identity = %#v", identity)
	}
	if m.ClientID() != 44 {
		t.Fatalf("ClientID = %d, want 44", m.ClientID())
	}

	// The installed token must ride subsequent requests.
	if err := m.RefreshUserData(ctx); err != nil {
		t.Fatalf("RefreshUserData error: %v", err)
	}
	if backend.lastBearer != "Bearer tok-1" {
		t.Fatalf("bearer = %q, want %q", backend.lastBearer, "Bearer tok-1")
	}
}

func TestSignInAcceptsAlternateResponseShape(t *testing.T) {
	backend := newFakeBackend()
	backend.loginBody = `{"token":"tok-2","user":{"id":12,"name":"Eva","role":{"name":"Admin"}}}`
	m, _ := newTestManager(t, backend, store.NewMemoryStore())

	if err := m.SignIn(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	user, _ := m.Current()
	if !user.IsAdmin() {
		t.Fatalf("role = %q, want admin", user.Role)
	}
}

func TestSignInPropagatesBackendError(t *testing.T) {
	identityStore := store.NewMemoryStore()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "bad credentials"})
	}))
	defer server.Close()
	m := NewManager(httpapi.NewClient(httpapi.ClientConfig{BaseURL: server.URL}), identityStore, nil)

	err := m.SignIn(context.Background(), "a@b.com", "wrong")
	if !errors.Is(err, httpapi.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("state = %s after failed sign-in", m.State())
	}
	if _, err := identityStore.Load(context.Background()); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("identity persisted on failed sign-in")
	}
}

func TestBootstrapRestoresPersistedSession(t *testing.T) {
	backend := newFakeBackend()
	identityStore := store.NewMemoryStore()
	ctx := context.Background()

	// Simulated prior run: only token and userId are on disk.
	if err := identityStore.Save(ctx, store.Identity{Token: "tok-1", UserID: 12}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	m, _ := newTestManager(t, backend, identityStore)
	if err := m.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap error: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %s, want authenticated", m.State())
	}
	if backend.lastBearer != "Bearer tok-1" {
		t.Fatalf("profile fetched with bearer %q", backend.lastBearer)
	}
}

func TestBootstrapWithoutIdentityStaysUnauthenticated(t *testing.T) {
	m, _ := newTestManager(t, newFakeBackend(), store.NewMemoryStore())
	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap error: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("state = %s, want unauthenticated", m.State())
	}
}

func TestBootstrapRejectedTokenClearsIdentity(t *testing.T) {
	backend := newFakeBackend()
	backend.profile401 = true
	identityStore := store.NewMemoryStore()
	ctx := context.Background()
	if err := identityStore.Save(ctx, store.Identity{Token: "expired", UserID: 12}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	m, _ := newTestManager(t, backend, identityStore)
	if err := m.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap error: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("state = %s, want unauthenticated", m.State())
	}
	if _, err := identityStore.Load(ctx); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("persisted identity survived a rejected token")
	}
}

func TestRefreshRejectedTokenTearsDownSession(t *testing.T) {
	backend := newFakeBackend()
	identityStore := store.NewMemoryStore()
	m, api := newTestManager(t, backend, identityStore)
	ctx := context.Background()

	if err := m.SignIn(ctx, "a@b.com", "pw"); err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	api.Cache().Put("/appointments?userId=12", nil)

	// The token expires server-side mid-session.
	backend.profile401 = true
	if err := m.RefreshUserData(ctx); !errors.Is(err, httpapi.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("state = %s after rejected token", m.State())
	}
	if _, err := identityStore.Load(ctx); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("persisted identity survived a rejected token")
	}
	if api.Cache().Len() != 0 {
		t.Fatalf("cache not cleared after rejected token")
	}

	// The dead bearer must not ride any further request.
	backend.profile401 = false
	if _, err := api.Profile(ctx, 12, true); err != nil {
		t.Fatalf("Profile error: %v", err)
	}
	if backend.lastBearer != "" {
		t.Fatalf("bearer = %q after teardown, want empty", backend.lastBearer)
	}
}

func TestSignInOverLiveSessionDropsPreviousCache(t *testing.T) {
	backend := newFakeBackend()
	m, api := newTestManager(t, backend, store.NewMemoryStore())
	ctx := context.Background()

	if err := m.SignIn(ctx, "a@b.com", "pw"); err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	api.Cache().Put("/appointments?userId=12", nil)

	// Login without an intervening logout.
	if err := m.SignIn(ctx, "b@c.com", "pw"); err != nil {
		t.Fatalf("second SignIn error: %v", err)
	}
	if api.Cache().Len() != 0 {
		t.Fatalf("previous user's cache entries survived sign-in")
	}
}

func TestSignOutClearsSharedStateAndIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	identityStore := store.NewMemoryStore()
	m, api := newTestManager(t, backend, identityStore)
	ctx := context.Background()

	if err := m.SignIn(ctx, "a@b.com", "pw"); err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	api.Cache().Put("/appointments?userId=12", nil)

	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("SignOut error: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("state = %s, want unauthenticated", m.State())
	}
	if api.Cache().Len() != 0 {
		t.Fatalf("cache not cleared on sign-out")
	}
	if _, err := identityStore.Load(ctx); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("identity survived sign-out")
	}

	// Second sign-out while unauthenticated must not fail.
	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("repeat SignOut error: %v", err)
	}
}

func TestRefreshUserDataRequiresSession(t *testing.T) {
	m, _ := newTestManager(t, newFakeBackend(), store.NewMemoryStore())
	if err := m.RefreshUserData(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}
}
