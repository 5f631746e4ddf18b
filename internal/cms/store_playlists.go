package cms

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const playlistColumns = `id, name, description, screen_id, user_id, created_at`

func scanPlaylist(row pgx.Row) (Playlist, error) {
	var p Playlist
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ScreenID, &p.UserID, &p.CreatedAt)
	return p, err
}

func (s *Store) ListPlaylists(ctx context.Context, userID string) ([]Playlist, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+playlistColumns+`
        FROM playlists WHERE user_id = $1
        ORDER BY created_at DESC, id
    `, userID)
	if err != nil {
		return nil, storeErr("list playlists", err)
	}
	return scanAll(rows, "list playlists", scanPlaylist)
}

func (s *Store) GetPlaylist(ctx context.Context, id string) (Playlist, error) {
	p, err := scanPlaylist(s.db.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id))
	return p, rowOrNotFound(err, "get playlist", ErrPlaylistNotFound)
}

// CreatePlaylist inserts p. A set p.ScreenID attaches the new playlist to that screen.
func (s *Store) CreatePlaylist(ctx context.Context, p Playlist) (Playlist, error) {
	var out Playlist
	err := inTx(ctx, s.db, "create playlist", func(tx pgx.Tx) error {
		var err error
		out, err = scanPlaylist(tx.QueryRow(ctx, `
            INSERT INTO playlists (name, description, user_id)
            VALUES ($1, $2, $3)
            RETURNING `+playlistColumns,
			p.Name, p.Description, p.UserID))
		if err != nil {
			return storeErr("create playlist", err)
		}
		if p.ScreenID == nil {
			return nil
		}
		if _, err := attachPlaylist(ctx, tx, *p.ScreenID, out.ID); err != nil {
			return err
		}
		out.ScreenID = p.ScreenID
		return nil
	})
	if err != nil {
		return Playlist{}, err
	}
	return out, nil
}

// UpdatePlaylist saves name and description. With relink set, the screen link is
// replaced by p.ScreenID (nil detaches) on both sides. It returns the screens whose
// current playlist changed.
func (s *Store) UpdatePlaylist(ctx context.Context, p Playlist, relink bool) (Playlist, []string, error) {
	var (
		out     Playlist
		screens []string
	)
	err := inTx(ctx, s.db, "update playlist", func(tx pgx.Tx) error {
		if relink {
			if p.ScreenID != nil {
				if _, err := attachPlaylist(ctx, tx, *p.ScreenID, p.ID); err != nil {
					return err
				}
				screens = []string{*p.ScreenID}
			} else {
				var err error
				if screens, err = detachPlaylist(ctx, tx, p.ID); err != nil {
					return err
				}
			}
		}

		var err error
		out, err = scanPlaylist(tx.QueryRow(ctx, `
            UPDATE playlists SET name = $2, description = $3
            WHERE id = $1
            RETURNING `+playlistColumns,
			p.ID, p.Name, p.Description))
		return rowOrNotFound(err, "update playlist", ErrPlaylistNotFound)
	})
	if err != nil {
		return Playlist{}, nil, err
	}
	return out, screens, nil
}

// DeletePlaylist removes the playlist; its memberships go with it.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete playlist", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlaylistNotFound
	}
	return nil
}
