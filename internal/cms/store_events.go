package cms

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, name, description, user_id, created_at`

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.UserID, &e.CreatedAt)
	return e, err
}

func (s *Store) ListEvents(ctx context.Context, userID string) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+eventColumns+`
        FROM events WHERE user_id = $1
        ORDER BY created_at DESC, id
    `, userID)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return scanAll(rows, "list events", scanEvent)
}

func (s *Store) GetEvent(ctx context.Context, id string) (Event, error) {
	e, err := scanEvent(s.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	return e, rowOrNotFound(err, "get event", ErrEventNotFound)
}

func (s *Store) CreateEvent(ctx context.Context, e Event) (Event, error) {
	out, err := scanEvent(s.db.QueryRow(ctx, `
        INSERT INTO events (name, description, user_id)
        VALUES ($1, $2, $3)
        RETURNING `+eventColumns,
		e.Name, e.Description, e.UserID))
	if err != nil {
		return Event{}, storeErr("create event", err)
	}
	return out, nil
}

func (s *Store) UpdateEvent(ctx context.Context, e Event) (Event, error) {
	out, err := scanEvent(s.db.QueryRow(ctx, `
        UPDATE events SET name = $2, description = $3
        WHERE id = $1
        RETURNING `+eventColumns,
		e.ID, e.Name, e.Description))
	return out, rowOrNotFound(err, "update event", ErrEventNotFound)
}

// DeleteEvent removes the event. Its screens stay and lose the link.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}
