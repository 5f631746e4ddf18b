package cms

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// OrderBase is the order of the first content of a non-empty playlist.
const OrderBase = 0

// Direction is a single step move.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Memberships keeps each playlist's orders a contiguous 0..n-1 sequence.
//
// Every mutation runs in one transaction that locks the playlist row first,
// so concurrent mutations of one playlist serialise and readers never see
// a half-applied shift.
type Memberships struct {
	db DB
}

func NewMemberships(db DB) *Memberships {
	return &Memberships{db: db}
}

func lockPlaylist(ctx context.Context, q querier, playlistID string) error {
	var id string
	err := q.QueryRow(ctx, `SELECT id FROM playlists WHERE id = $1 FOR UPDATE`, playlistID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPlaylistNotFound
	}
	if err != nil {
		return storeErr("lock playlist", err)
	}
	return nil
}

// shareContent holds contentID against deletion until the transaction ends.
func shareContent(ctx context.Context, tx pgx.Tx, contentID string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM contents WHERE id = $1 FOR SHARE`, contentID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrContentNotFound
	}
	if err != nil {
		return storeErr("lock content", err)
	}
	return nil
}

// InsertContent appends contentID to the end of the playlist.
func (m *Memberships) InsertContent(ctx context.Context, playlistID, contentID string) (Membership, error) {
	out := Membership{PlaylistID: playlistID, ContentID: contentID}

	err := inTx(ctx, m.db, "insert content", func(tx pgx.Tx) error {
		// Content before playlist, the same order DeleteContent locks in.
		if err := shareContent(ctx, tx, contentID); err != nil {
			return err
		}
		if err := lockPlaylist(ctx, tx, playlistID); err != nil {
			return err
		}

		var exists bool
		err := tx.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT 1 FROM playlist_contents WHERE playlist_id = $1 AND content_id = $2
            )
        `, playlistID, contentID).Scan(&exists)
		if err != nil {
			return storeErr("insert content: lookup membership", err)
		}
		if exists {
			return ErrDuplicateMembership
		}

		err = tx.QueryRow(ctx, `
            INSERT INTO playlist_contents (playlist_id, content_id, position)
            VALUES ($1, $2, COALESCE((SELECT MAX(position) + 1 FROM playlist_contents WHERE playlist_id = $1), $3))
            RETURNING position
        `, playlistID, contentID, OrderBase).Scan(&out.Order)
		if isUniqueViolation(err) {
			return ErrDuplicateMembership
		}
		if isForeignKeyViolation(err) {
			return ErrContentNotFound
		}
		if err != nil {
			return storeErr("insert content", err)
		}
		return nil
	})
	if err != nil {
		return Membership{}, err
	}
	return out, nil
}

// MoveContent puts contentID at target and shifts the contents in between by one.
func (m *Memberships) MoveContent(ctx context.Context, playlistID, contentID string, target int) (Move, error) {
	return m.move(ctx, playlistID, contentID, func(int) int { return target })
}

// StepContent swaps contentID with its neighbour in the given direction.
// Up moves towards order 0.
func (m *Memberships) StepContent(ctx context.Context, playlistID, contentID string, dir Direction) (Move, error) {
	var delta int
	switch dir {
	case DirectionUp:
		delta = -1
	case DirectionDown:
		delta = 1
	default:
		return Move{}, ErrInvalidDirection
	}
	return m.move(ctx, playlistID, contentID, func(from int) int { return from + delta })
}

func (m *Memberships) move(ctx context.Context, playlistID, contentID string, resolve func(from int) int) (Move, error) {
	mv := Move{PlaylistID: playlistID, ContentID: contentID}

	err := inTx(ctx, m.db, "move content", func(tx pgx.Tx) error {
		if err := lockPlaylist(ctx, tx, playlistID); err != nil {
			return err
		}

		err := tx.QueryRow(ctx, `
            SELECT position FROM playlist_contents WHERE playlist_id = $1 AND content_id = $2
        `, playlistID, contentID).Scan(&mv.From)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMembershipNotFound
		}
		if err != nil {
			return storeErr("move content: current position", err)
		}

		var count int
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM playlist_contents WHERE playlist_id = $1`, playlistID).Scan(&count)
		if err != nil {
			return storeErr("move content: count", err)
		}

		mv.To = resolve(mv.From)
		last := OrderBase + count - 1
		if mv.To < OrderBase || mv.To > last {
			return &PositionError{Position: mv.To, Min: OrderBase, Max: last}
		}
		if mv.To == mv.From {
			return nil
		}

		if mv.To > mv.From {
			_, err = tx.Exec(ctx, `
                UPDATE playlist_contents
                SET position = position - 1
                WHERE playlist_id = $1 AND position > $2 AND position <= $3
            `, playlistID, mv.From, mv.To)
		} else {
			_, err = tx.Exec(ctx, `
                UPDATE playlist_contents
                SET position = position + 1
                WHERE playlist_id = $1 AND position >= $3 AND position < $2
            `, playlistID, mv.From, mv.To)
		}
		if err != nil {
			return storeErr("move content: shift", err)
		}

		_, err = tx.Exec(ctx, `
            UPDATE playlist_contents SET position = $3 WHERE playlist_id = $1 AND content_id = $2
        `, playlistID, contentID, mv.To)
		if err != nil {
			return storeErr("move content: place", err)
		}
		return nil
	})
	if err != nil {
		return Move{}, err
	}
	return mv, nil
}

// UpdateDuration sets or clears the per-membership display duration. Order is untouched.
func (m *Memberships) UpdateDuration(ctx context.Context, playlistID, contentID string, duration *int) (Membership, error) {
	if duration != nil && *duration <= 0 {
		return Membership{}, ErrInvalidDuration
	}

	out := Membership{PlaylistID: playlistID, ContentID: contentID, Duration: duration}
	err := m.db.QueryRow(ctx, `
        UPDATE playlist_contents SET duration = $3
        WHERE playlist_id = $1 AND content_id = $2
        RETURNING position
    `, playlistID, contentID, duration).Scan(&out.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return Membership{}, ErrMembershipNotFound
	}
	if err != nil {
		return Membership{}, storeErr("update duration", err)
	}
	return out, nil
}

// RemoveContent deletes the membership and closes the gap. It returns the removed order.
func (m *Memberships) RemoveContent(ctx context.Context, playlistID, contentID string) (int, error) {
	var removed int
	err := inTx(ctx, m.db, "remove content", func(tx pgx.Tx) error {
		if err := lockPlaylist(ctx, tx, playlistID); err != nil {
			return err
		}
		var err error
		removed, err = removeAndCompact(ctx, tx, playlistID, contentID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func removeAndCompact(ctx context.Context, q querier, playlistID, contentID string) (int, error) {
	var pos int
	err := q.QueryRow(ctx, `
        DELETE FROM playlist_contents WHERE playlist_id = $1 AND content_id = $2
        RETURNING position
    `, playlistID, contentID).Scan(&pos)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrMembershipNotFound
	}
	if err != nil {
		return 0, storeErr("remove content", err)
	}

	_, err = q.Exec(ctx, `
        UPDATE playlist_contents SET position = position - 1
        WHERE playlist_id = $1 AND position > $2
    `, playlistID, pos)
	if err != nil {
		return 0, storeErr("remove content: compact", err)
	}
	return pos, nil
}

// Detachment records one membership dropped because its content is being deleted.
type Detachment struct {
	PlaylistID string
	Order      int
}

// DetachContent removes contentID from every playlist holding it, compacting each one.
// It must run inside the caller's transaction. Playlists are locked in id order.
func (m *Memberships) DetachContent(ctx context.Context, tx pgx.Tx, contentID string) ([]Detachment, error) {
	return detachContent(ctx, tx, contentID)
}

func detachContent(ctx context.Context, q querier, contentID string) ([]Detachment, error) {
	playlistIDs, err := lockIDs(ctx, q, "detach content: lock playlists", `
        SELECT p.id
        FROM playlists p
        JOIN playlist_contents pc ON pc.playlist_id = p.id
        WHERE pc.content_id = $1
        ORDER BY p.id
        FOR UPDATE OF p
    `, contentID)
	if err != nil {
		return nil, err
	}

	out := make([]Detachment, 0, len(playlistIDs))
	for _, pid := range playlistIDs {
		pos, err := removeAndCompact(ctx, q, pid, contentID)
		if err != nil {
			return nil, err
		}
		out = append(out, Detachment{PlaylistID: pid, Order: pos})
	}
	return out, nil
}

// ListOrdered returns the playlist's memberships by ascending order, each with its content.
// The listing is one statement, so it always observes a committed state.
func (m *Memberships) ListOrdered(ctx context.Context, playlistID string) ([]Membership, error) {
	var exists bool
	if err := m.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)`, playlistID).Scan(&exists); err != nil {
		return nil, storeErr("list contents: lookup playlist", err)
	}
	if !exists {
		return nil, ErrPlaylistNotFound
	}

	rows, err := m.db.Query(ctx, `
        SELECT pc.playlist_id, pc.content_id, pc.position, pc.duration,
               c.content_type, c.name, c.user_id, c.group_id, c.created_at
        FROM playlist_contents pc
        JOIN contents c ON c.id = pc.content_id
        WHERE pc.playlist_id = $1
        ORDER BY pc.position ASC
    `, playlistID)
	if err != nil {
		return nil, storeErr("list contents", err)
	}
	defer rows.Close()

	out := make([]Membership, 0)
	for rows.Next() {
		var (
			mb    Membership
			c     Content
			ctype string
		)
		if err := rows.Scan(
			&mb.PlaylistID, &mb.ContentID, &mb.Order, &mb.Duration,
			&ctype, &c.Name, &c.UserID, &c.GroupID, &c.CreatedAt,
		); err != nil {
			return nil, storeErr("list contents: scan", err)
		}
		c.ID = mb.ContentID
		c.ContentType = ContentType(ctype)
		mb.Content = &c
		out = append(out, mb)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list contents: rows", err)
	}
	return out, nil
}
