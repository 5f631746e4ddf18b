package cms

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const groupColumns = `id, name, user_id, created_at`

func scanGroup(row pgx.Row) (Group, error) {
	var g Group
	err := row.Scan(&g.ID, &g.Name, &g.UserID, &g.CreatedAt)
	return g, err
}

func (s *Store) ListGroups(ctx context.Context, userID string) ([]Group, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+groupColumns+`
        FROM content_groups WHERE user_id = $1
        ORDER BY created_at DESC, id
    `, userID)
	if err != nil {
		return nil, storeErr("list groups", err)
	}
	return scanAll(rows, "list groups", scanGroup)
}

// GetGroup returns the group with the contents filed under it.
func (s *Store) GetGroup(ctx context.Context, id string) (Group, error) {
	g, err := scanGroup(s.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM content_groups WHERE id = $1`, id))
	if err := rowOrNotFound(err, "get group", ErrGroupNotFound); err != nil {
		return Group{}, err
	}

	rows, err := s.db.Query(ctx, `
        SELECT `+contentColumns+`
        FROM contents WHERE group_id = $1
        ORDER BY created_at DESC, id
    `, id)
	if err != nil {
		return Group{}, storeErr("get group: contents", err)
	}
	g.Contents, err = scanAll(rows, "get group: contents", scanContent)
	if err != nil {
		return Group{}, err
	}
	return g, nil
}

func (s *Store) CreateGroup(ctx context.Context, g Group) (Group, error) {
	out, err := scanGroup(s.db.QueryRow(ctx, `
        INSERT INTO content_groups (name, user_id)
        VALUES ($1, $2)
        RETURNING `+groupColumns,
		g.Name, g.UserID))
	if err != nil {
		return Group{}, storeErr("create group", err)
	}
	return out, nil
}

// DeleteGroup removes the group. Its contents stay, ungrouped.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM content_groups WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete group", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}
