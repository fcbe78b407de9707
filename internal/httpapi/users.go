package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"salonbook/internal/domain"
)

// Profile fetches the session's own user record through the normal cache
// path; force bypasses a fresh entry after role-sensitive actions.
func (c *Client) Profile(ctx context.Context, userID int64, force bool) (domain.User, error) {
	return GetCached[domain.User](ctx, c, userPath(userID), nil, CacheOptions{ForceRefresh: force})
}

// User fetches a foreign user record. The backend is known to serve stale or
// absent data for these, so the cache is always bypassed, and a 404 yields a
// synthesized minimal record instead of an error; dependent views keep
// rendering when a referenced user is missing. The fallback is cached so
// repeat lookups stay local.
func (c *Client) User(ctx context.Context, userID int64) (domain.User, error) {
	path := userPath(userID)
	u, err := GetCached[domain.User](ctx, c, path, nil, CacheOptions{ForceRefresh: true})
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.User{}, err
	}

	c.log.Warn("user not found, serving fallback record", slog.Int64("user_id", userID))
	fallback := domain.User{ID: userID, Name: "Usuario", Email: "", Role: "user"}
	c.cache.Put(CacheKey(path, nil), fallback)
	return fallback, nil
}

func userPath(userID int64) string {
	return fmt.Sprintf("/users/%d", userID)
}
