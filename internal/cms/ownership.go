package cms

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type ResourceKind int

const (
	KindContent ResourceKind = iota
	KindPlaylist
	KindMembership
	KindScreen
	KindEvent
	KindGroup
)

func (k ResourceKind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindPlaylist:
		return "playlist"
	case KindMembership:
		return "membership"
	case KindScreen:
		return "screen"
	case KindEvent:
		return "event"
	case KindGroup:
		return "group"
	}
	return fmt.Sprintf("ResourceKind(%d)", int(k))
}

// ResourceRef names a resource whose owner can be resolved.
// For KindMembership, ID is the content and Parent the playlist.
type ResourceRef struct {
	Kind   ResourceKind
	ID     string
	Parent string
}

func ContentRef(id string) ResourceRef  { return ResourceRef{Kind: KindContent, ID: id} }
func PlaylistRef(id string) ResourceRef { return ResourceRef{Kind: KindPlaylist, ID: id} }
func ScreenRef(id string) ResourceRef   { return ResourceRef{Kind: KindScreen, ID: id} }
func EventRef(id string) ResourceRef    { return ResourceRef{Kind: KindEvent, ID: id} }
func GroupRef(id string) ResourceRef    { return ResourceRef{Kind: KindGroup, ID: id} }

func MembershipRef(playlistID, contentID string) ResourceRef {
	return ResourceRef{Kind: KindMembership, ID: contentID, Parent: playlistID}
}

// Guard decides whether a principal may act on a resource.
type Guard struct {
	db DB
}

func NewGuard(db DB) *Guard {
	return &Guard{db: db}
}

// ResolveOwner returns the id of the user owning ref. A membership is owned by its playlist's owner.
func (g *Guard) ResolveOwner(ctx context.Context, ref ResourceRef) (string, error) {
	var (
		query    string
		args     = []any{ref.ID}
		notFound error
	)
	switch ref.Kind {
	case KindContent:
		query, notFound = `SELECT user_id FROM contents WHERE id = $1`, ErrContentNotFound
	case KindPlaylist:
		query, notFound = `SELECT user_id FROM playlists WHERE id = $1`, ErrPlaylistNotFound
	case KindScreen:
		query, notFound = `SELECT user_id FROM screens WHERE id = $1`, ErrScreenNotFound
	case KindEvent:
		query, notFound = `SELECT user_id FROM events WHERE id = $1`, ErrEventNotFound
	case KindGroup:
		query, notFound = `SELECT user_id FROM content_groups WHERE id = $1`, ErrGroupNotFound
	case KindMembership:
		query = `
            SELECT p.user_id
            FROM playlist_contents pc
            JOIN playlists p ON p.id = pc.playlist_id
            WHERE pc.content_id = $1 AND pc.playlist_id = $2
        `
		args = append(args, ref.Parent)
		notFound = ErrMembershipNotFound
	default:
		return "", fmt.Errorf("resolve owner: unknown resource kind %s", ref.Kind)
	}

	var owner string
	err := g.db.QueryRow(ctx, query, args...).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", notFound
	}
	if err != nil {
		return "", storeErr("resolve "+ref.Kind.String()+" owner", err)
	}
	return owner, nil
}

// Authorize allows the action only when the principal is the owner.
func Authorize(ownerID, principalID string) error {
	if ownerID == "" || ownerID != principalID {
		return ErrForbidden
	}
	return nil
}

// Check resolves the owner and authorizes. Missing resources fail with a not-found error
// before ownership is considered.
func (g *Guard) Check(ctx context.Context, ref ResourceRef, principalID string) error {
	owner, err := g.ResolveOwner(ctx, ref)
	if err != nil {
		return err
	}
	return Authorize(owner, principalID)
}
