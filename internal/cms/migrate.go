package cms

import (
	"context"
	"fmt"
)

var migrations = []struct {
	name string
	sql  string
}{
	{"pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
	{"users", `
      CREATE TABLE IF NOT EXISTS users (
          id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          email      TEXT NOT NULL UNIQUE,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )`},
	{"events", `
      CREATE TABLE IF NOT EXISTS events (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          user_id     uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          name        TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )`},
	{"content_groups", `
      CREATE TABLE IF NOT EXISTS content_groups (
          id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          user_id    uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          name       TEXT NOT NULL,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )`},
	{"contents", `
      CREATE TABLE IF NOT EXISTS contents (
          id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          user_id      uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          content_type TEXT NOT NULL CHECK (content_type IN ('Video', 'HTML', 'MUSIC', 'IMAGE')),
          name         TEXT NOT NULL,
          group_id     uuid REFERENCES content_groups(id) ON DELETE SET NULL,
          created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
      )`},
	{"screens", `
      CREATE TABLE IF NOT EXISTS screens (
          id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          user_id    uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          name       TEXT NOT NULL,
          event_id   uuid REFERENCES events(id) ON DELETE SET NULL,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )`},
	{"playlists", `
      CREATE TABLE IF NOT EXISTS playlists (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          user_id     uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
          name        TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          screen_id   uuid REFERENCES screens(id) ON DELETE SET NULL,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )`},
	// screens <-> playlists reference each other, so this column comes after both tables.
	{"screens.playlist_id", `
      ALTER TABLE screens ADD COLUMN IF NOT EXISTS playlist_id uuid REFERENCES playlists(id) ON DELETE SET NULL`},
	// The (playlist_id, position) constraint is deferred so range shifts can pass through
	// duplicate positions inside a transaction.
	{"playlist_contents", `
      CREATE TABLE IF NOT EXISTS playlist_contents (
          playlist_id uuid NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
          content_id  uuid NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
          position    INT NOT NULL CHECK (position >= 0),
          duration    INT CHECK (duration > 0),
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          PRIMARY KEY (playlist_id, content_id),
          CONSTRAINT playlist_contents_position_key
              UNIQUE (playlist_id, position) DEFERRABLE INITIALLY DEFERRED
      )`},
	{"indexes", `
      CREATE INDEX IF NOT EXISTS idx_contents_user ON contents(user_id);
      CREATE INDEX IF NOT EXISTS idx_contents_group ON contents(group_id);
      CREATE INDEX IF NOT EXISTS idx_playlists_user ON playlists(user_id);
      CREATE INDEX IF NOT EXISTS idx_screens_user ON screens(user_id);
      CREATE INDEX IF NOT EXISTS idx_screens_event ON screens(event_id);
      CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id);
      CREATE INDEX IF NOT EXISTS idx_content_groups_user ON content_groups(user_id);
      CREATE INDEX IF NOT EXISTS idx_playlist_contents_content ON playlist_contents(content_id)`},
}

// AutoMigrate creates the schema. Every statement is idempotent.
func AutoMigrate(ctx context.Context, db DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", m.name, err)
		}
	}
	return nil
}
