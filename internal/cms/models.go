package cms

import (
	"time"
)

// ContentType is the kind of media a content item holds.
type ContentType string

const (
	ContentVideo ContentType = "Video"
	ContentHTML  ContentType = "HTML"
	ContentMusic ContentType = "MUSIC"
	ContentImage ContentType = "IMAGE"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentVideo, ContentHTML, ContentMusic, ContentImage:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Content is an independently owned media item. It can sit in many playlists and one group.
type Content struct {
	ID          string      `json:"id"`
	ContentType ContentType `json:"contentType"`
	Name        string      `json:"name"`
	UserID      string      `json:"userId"`
	GroupID     *string     `json:"groupId"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Playlist carries metadata only; its contents are Memberships.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ScreenID    *string   `json:"screenId"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Membership places a content in a playlist. Orders of one playlist are 0..n-1.
type Membership struct {
	PlaylistID string `json:"playlistId"`
	ContentID  string `json:"contentId"`
	Order      int    `json:"order"`
	// Duration in seconds; nil means the content type default.
	Duration *int     `json:"duration"`
	Content  *Content `json:"content,omitempty"`
}

// Move is the outcome of a reorder.
type Move struct {
	PlaylistID string `json:"playlistId"`
	ContentID  string `json:"contentId"`
	From       int    `json:"from"`
	To         int    `json:"to"`
}

type Screen struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UserID     string    `json:"userId"`
	EventID    *string   `json:"eventId"`
	PlaylistID *string   `json:"playlistId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Contents  []Content `json:"contents,omitempty"`
}
