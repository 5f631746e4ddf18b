package cms

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const contentColumns = `id, content_type, name, user_id, group_id, created_at`

func scanContent(row pgx.Row) (Content, error) {
	var (
		c     Content
		ctype string
	)
	if err := row.Scan(&c.ID, &ctype, &c.Name, &c.UserID, &c.GroupID, &c.CreatedAt); err != nil {
		return Content{}, err
	}
	c.ContentType = ContentType(ctype)
	return c, nil
}

func (s *Store) ListContents(ctx context.Context, userID string) ([]Content, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+contentColumns+`
        FROM contents WHERE user_id = $1
        ORDER BY created_at DESC, id
    `, userID)
	if err != nil {
		return nil, storeErr("list contents", err)
	}
	return scanAll(rows, "list contents", scanContent)
}

func (s *Store) GetContent(ctx context.Context, id string) (Content, error) {
	c, err := scanContent(s.db.QueryRow(ctx, `SELECT `+contentColumns+` FROM contents WHERE id = $1`, id))
	return c, rowOrNotFound(err, "get content", ErrContentNotFound)
}

func (s *Store) CreateContent(ctx context.Context, c Content) (Content, error) {
	out, err := scanContent(s.db.QueryRow(ctx, `
        INSERT INTO contents (content_type, name, user_id, group_id)
        VALUES ($1, $2, $3, $4)
        RETURNING `+contentColumns,
		string(c.ContentType), c.Name, c.UserID, c.GroupID))
	if isForeignKeyViolation(err) {
		return Content{}, ErrGroupNotFound
	}
	if err != nil {
		return Content{}, storeErr("create content", err)
	}
	return out, nil
}

func (s *Store) UpdateContent(ctx context.Context, c Content) (Content, error) {
	out, err := scanContent(s.db.QueryRow(ctx, `
        UPDATE contents SET content_type = $2, name = $3
        WHERE id = $1
        RETURNING `+contentColumns,
		c.ID, string(c.ContentType), c.Name))
	return out, rowOrNotFound(err, "update content", ErrContentNotFound)
}

// SetContentGroup files the content under groupID, or ungroups it when groupID is nil.
func (s *Store) SetContentGroup(ctx context.Context, id string, groupID *string) (Content, error) {
	out, err := scanContent(s.db.QueryRow(ctx, `
        UPDATE contents SET group_id = $2
        WHERE id = $1
        RETURNING `+contentColumns,
		id, groupID))
	if isForeignKeyViolation(err) {
		return Content{}, ErrGroupNotFound
	}
	return out, rowOrNotFound(err, "set content group", ErrContentNotFound)
}

// DeleteContent detaches the content from every playlist, compacting their orders,
// and deletes it in the same transaction.
func (s *Store) DeleteContent(ctx context.Context, id string) ([]Detachment, error) {
	var detached []Detachment
	err := inTx(ctx, s.db, "delete content", func(tx pgx.Tx) error {
		// Blocks inserts of this content until the delete commits.
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM contents WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrContentNotFound
		}
		if err != nil {
			return storeErr("delete content: lock", err)
		}

		detached, err = s.members.DetachContent(ctx, tx, id)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM contents WHERE id = $1`, id)
		if err != nil {
			return storeErr("delete content", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrContentNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detached, nil
}
