package cms

import (
	"context"
	"errors"
	"slices"

	"github.com/jackc/pgx/v5"
)

const screenColumns = `id, name, user_id, event_id, playlist_id, created_at`

func scanScreen(row pgx.Row) (Screen, error) {
	var sc Screen
	err := row.Scan(&sc.ID, &sc.Name, &sc.UserID, &sc.EventID, &sc.PlaylistID, &sc.CreatedAt)
	return sc, err
}

// ListScreens returns the user's screens, optionally only those of one event.
func (s *Store) ListScreens(ctx context.Context, userID string, eventID *string) ([]Screen, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+screenColumns+`
        FROM screens
        WHERE user_id = $1 AND ($2::uuid IS NULL OR event_id = $2::uuid)
        ORDER BY created_at DESC, id
    `, userID, eventID)
	if err != nil {
		return nil, storeErr("list screens", err)
	}
	return scanAll(rows, "list screens", scanScreen)
}

func (s *Store) GetScreen(ctx context.Context, id string) (Screen, error) {
	sc, err := scanScreen(s.db.QueryRow(ctx, `SELECT `+screenColumns+` FROM screens WHERE id = $1`, id))
	return sc, rowOrNotFound(err, "get screen", ErrScreenNotFound)
}

func (s *Store) CreateScreen(ctx context.Context, sc Screen) (Screen, error) {
	out, err := scanScreen(s.db.QueryRow(ctx, `
        INSERT INTO screens (name, user_id, event_id)
        VALUES ($1, $2, $3)
        RETURNING `+screenColumns,
		sc.Name, sc.UserID, sc.EventID))
	if isForeignKeyViolation(err) {
		return Screen{}, ErrEventNotFound
	}
	if err != nil {
		return Screen{}, storeErr("create screen", err)
	}
	return out, nil
}

func (s *Store) UpdateScreen(ctx context.Context, sc Screen) (Screen, error) {
	out, err := scanScreen(s.db.QueryRow(ctx, `
        UPDATE screens SET name = $2, event_id = $3
        WHERE id = $1
        RETURNING `+screenColumns,
		sc.ID, sc.Name, sc.EventID))
	if isForeignKeyViolation(err) {
		return Screen{}, ErrEventNotFound
	}
	return out, rowOrNotFound(err, "update screen", ErrScreenNotFound)
}

// AttachPlaylist makes playlistID the screen's current playlist and points the playlist back at the screen.
func (s *Store) AttachPlaylist(ctx context.Context, screenID, playlistID string) (Screen, error) {
	var out Screen
	err := inTx(ctx, s.db, "attach playlist", func(tx pgx.Tx) error {
		var err error
		out, err = attachPlaylist(ctx, tx, screenID, playlistID)
		return err
	})
	if err != nil {
		return Screen{}, err
	}
	return out, nil
}

// attachPlaylist locks the screen, then every playlist it touches in id order.
// Screens are always locked before playlists.
func attachPlaylist(ctx context.Context, tx pgx.Tx, screenID, playlistID string) (Screen, error) {
	var locked string
	err := tx.QueryRow(ctx, `SELECT id FROM screens WHERE id = $1 FOR UPDATE`, screenID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return Screen{}, ErrScreenNotFound
	}
	if err != nil {
		return Screen{}, storeErr("attach playlist: lock screen", err)
	}

	ids, err := lockIDs(ctx, tx, "attach playlist: lock playlists", `
        SELECT id FROM playlists
        WHERE id = $1 OR screen_id = $2
        ORDER BY id
        FOR UPDATE
    `, playlistID, screenID)
	if err != nil {
		return Screen{}, err
	}
	if !slices.Contains(ids, playlistID) {
		return Screen{}, ErrPlaylistNotFound
	}

	out, err := scanScreen(tx.QueryRow(ctx, `
        UPDATE screens SET playlist_id = $2
        WHERE id = $1
        RETURNING `+screenColumns,
		screenID, playlistID))
	if err := rowOrNotFound(err, "attach playlist", ErrScreenNotFound); err != nil {
		return Screen{}, err
	}
	if _, err := tx.Exec(ctx, `
        UPDATE playlists SET screen_id = NULL WHERE screen_id = $1 AND id <> $2
    `, screenID, playlistID); err != nil {
		return Screen{}, storeErr("attach playlist: unlink previous", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE playlists SET screen_id = $2 WHERE id = $1`, playlistID, screenID); err != nil {
		return Screen{}, storeErr("attach playlist: link playlist", err)
	}
	return out, nil
}

// detachPlaylist takes playlistID off every screen playing it and returns those screens.
func detachPlaylist(ctx context.Context, tx pgx.Tx, playlistID string) ([]string, error) {
	screenIDs, err := lockIDs(ctx, tx, "detach playlist: lock screens", `
        SELECT id FROM screens WHERE playlist_id = $1 ORDER BY id FOR UPDATE
    `, playlistID)
	if err != nil {
		return nil, err
	}
	if err := lockPlaylist(ctx, tx, playlistID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE screens SET playlist_id = NULL WHERE playlist_id = $1`, playlistID); err != nil {
		return nil, storeErr("detach playlist: screens", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE playlists SET screen_id = NULL WHERE id = $1`, playlistID); err != nil {
		return nil, storeErr("detach playlist", err)
	}
	return screenIDs, nil
}

func (s *Store) DeleteScreen(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM screens WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete screen", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScreenNotFound
	}
	return nil
}
