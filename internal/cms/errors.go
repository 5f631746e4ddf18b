package cms

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist %w", ErrNotFound)
	ErrContentNotFound    = fmt.Errorf("content %w", ErrNotFound)
	ErrMembershipNotFound = fmt.Errorf("content is not in the playlist: %w", ErrNotFound)
	ErrScreenNotFound     = fmt.Errorf("screen %w", ErrNotFound)
	ErrEventNotFound      = fmt.Errorf("event %w", ErrNotFound)
	ErrGroupNotFound      = fmt.Errorf("group %w", ErrNotFound)

	ErrForbidden           = errors.New("forbidden")
	ErrDuplicateMembership = errors.New("content is already in the playlist")
	ErrInvalidPosition     = errors.New("invalid position")
	ErrInvalidDuration     = errors.New("duration must be a positive number of seconds or null")
	ErrInvalidDirection    = errors.New(`direction must be "up" or "down"`)

	// ErrStoreUnavailable wraps every driver or transaction failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// PositionError reports a move target outside the playlist's current order range.
type PositionError struct {
	Position int
	Min      int
	Max      int
}

func (e *PositionError) Error() string {
	if e.Max < e.Min {
		return fmt.Sprintf("position %d out of range: playlist is empty", e.Position)
	}
	return fmt.Sprintf("position %d out of range [%d, %d]", e.Position, e.Min, e.Max)
}

func (e *PositionError) Is(target error) bool { return target == ErrInvalidPosition }

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
