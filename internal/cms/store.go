package cms

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"screens-sales/internal/auth"
)

// Store holds the CRUD queries for every resource other than memberships.
type Store struct {
	db      DB
	members *Memberships
}

func NewStore(db DB) *Store {
	return &Store{db: db, members: NewMemberships(db)}
}

// ResolvePrincipal maps a verified email to a user, creating the user on first sight.
func (s *Store) ResolvePrincipal(ctx context.Context, email string) (auth.Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var id string
	err := s.db.QueryRow(ctx, `
        INSERT INTO users (email) VALUES ($1)
        ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
        RETURNING id
    `, email).Scan(&id)
	if err != nil {
		return auth.Principal{}, storeErr("resolve principal", err)
	}
	return auth.Principal{ID: id, Email: email}, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, `SELECT id, email, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, storeErr("get user", err)
	}
	return u, nil
}

// scanAll drains rows through scan and always closes them.
func scanAll[T any](rows pgx.Rows, op string, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, storeErr(op+": scan", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op+": rows", err)
	}
	return out, nil
}

// rowOrNotFound maps pgx.ErrNoRows to notFound and wraps anything else as a store failure.
func rowOrNotFound(err error, op string, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return storeErr(op, err)
}
