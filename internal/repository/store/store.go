// Package store implements the content repositories on top of a
// docstore.Store. Every multi-document write runs in one transaction.
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/repository"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func newID() string {
	return uuid.NewString()
}

// clock is embedded by every store so tests can pin timestamps.
type clock struct {
	now func() time.Time
}

func (c clock) Now() time.Time {
	if c.now == nil {
		return time.Now().UTC()
	}
	return c.now().UTC()
}

// SetClock replaces the time source.
func (c *clock) SetClock(now func() time.Time) {
	c.now = now
}

// lookup reads ref inside a transaction and reports whether it exists.
func lookup(tx docstore.Tx, ref docstore.Ref) (*docstore.Snapshot, bool, error) {
	snap, err := tx.Get(ref)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Lookup is lookup for the services that build on this package.
func Lookup(tx docstore.Tx, ref docstore.Ref) (*docstore.Snapshot, bool, error) {
	return lookup(tx, ref)
}

var (
	_ repository.CommunityRepository = (*CommunityStore)(nil)
	_ repository.PostRepository      = (*PostStore)(nil)
	_ repository.RecipeRepository    = (*RecipeStore)(nil)
	_ repository.RatingRepository    = (*RatingStore)(nil)
	_ repository.BoardRepository     = (*BoardStore)(nil)
	_ repository.UserRepository      = (*UserStore)(nil)
)
