// Package sqlite persists the session identity in a local database file so a
// restarted process can sign back in silently.
package sqlite

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"salonbook/internal/store"
)

// Persisted key names. Anything else written to the file belongs to features
// outside this core and is cleared wholesale on sign-out.
const (
	keyToken    = "token"
	keyUserID   = "userId"
	keyClientID = "clientId"
)

type identityRow struct {
	bun.BaseModel `bun:"table:identity"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

type IdentityStore struct {
	db *bun.DB
}

// Open opens (creating if needed) the identity database at path and ensures
// the schema exists.
func Open(path string) (*IdentityStore, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	s := &IdentityStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *IdentityStore) migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*identityRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *IdentityStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *IdentityStore) Load(ctx context.Context) (store.Identity, error) {
	var rows []identityRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("key IN (?, ?, ?)", keyToken, keyUserID, keyClientID).
		Scan(ctx)
	if err != nil {
		return store.Identity{}, err
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}

	identity := store.Identity{Token: values[keyToken]}
	identity.UserID, _ = strconv.ParseInt(values[keyUserID], 10, 64)
	identity.ClientID, _ = strconv.ParseInt(values[keyClientID], 10, 64)

	if identity.Token == "" || identity.UserID == 0 {
		return store.Identity{}, store.ErrNoIdentity
	}
	return identity, nil
}

func (s *IdentityStore) Save(ctx context.Context, identity store.Identity) error {
	rows := []identityRow{
		{Key: keyToken, Value: identity.Token},
		{Key: keyUserID, Value: strconv.FormatInt(identity.UserID, 10)},
	}
	if identity.ClientID != 0 {
		rows = append(rows, identityRow{Key: keyClientID, Value: strconv.FormatInt(identity.ClientID, 10)})
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, r := range rows {
			_, err := tx.NewInsert().
				Model(&r).
				On("CONFLICT (key) DO UPDATE").
				Set("value = EXCLUDED.value").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear removes every persisted row, identity keys and any derived keys
// alike.
func (s *IdentityStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*identityRow)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}
