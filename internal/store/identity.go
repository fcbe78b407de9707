package store

import "context"

// Identity is the persisted slice of a session: the opaque bearer token plus
// the ids needed to restore it silently at startup. ClientID is zero when
// the signed-in user has no client record.
type Identity struct {
	Token    string
	UserID   int64
	ClientID int64
}

func (i Identity) IsZero() bool {
	return i.Token == "" && i.UserID == 0 && i.ClientID == 0
}

type IdentityStore interface {
	Load(ctx context.Context) (Identity, error)
	Save(ctx context.Context, identity Identity) error
	Clear(ctx context.Context) error
}
