// Package engagement maintains likes and comments.
//
// A like is a record under the liked item plus a mirror under the user, and
// the item's likeCount equals the number of like records. Both change in one
// transaction. Comments are never counted in a cached field; their count is
// taken from the subcollection when read.
package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/cache"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/events"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository/store"
	"go.uber.org/zap"
)

type Counter struct {
	db     docstore.Store
	cache  cache.LikeCache
	events events.Publisher
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Counter)

func WithCache(c cache.LikeCache) Option { return func(s *Counter) { s.cache = c } }

func WithPublisher(p events.Publisher) Option { return func(s *Counter) { s.events = p } }

func WithClock(now func() time.Time) Option { return func(s *Counter) { s.now = now } }

func New(db docstore.Store, logger *zap.Logger, opts ...Option) *Counter {
	c := &Counter{
		db:     db,
		cache:  cache.Nop{},
		events: events.Nop{},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func checkTarget(target string) error {
	if target != store.TargetPost && target != store.TargetRecipe {
		return apperr.Invalidf("cannot like a %q", target)
	}
	return nil
}

// projections returns the refs whose likeCount mirrors the authoritative
// document: the community and author copies of a post.
//
// Why look them up instead of updating blindly?
//   - Update fails on a missing document, and a copy can be gone while the
//     post lives on (e.g. a community removed by hand). Reading them also
//     puts them in the transaction's read set, so a concurrent delete of a
//     copy forces a retry rather than a lost write.
func projections(tx docstore.Tx, target string, item *docstore.Snapshot) ([]*docstore.Snapshot, error) {
	if target != store.TargetPost {
		return nil, nil
	}
	p := store.DecodePost(item)
	refs := []docstore.Ref{store.UserPostRef(p.AuthorID, p.ID)}
	if p.CommunityID != "" {
		refs = append(refs, store.CommunityPostRef(p.CommunityID, p.ID))
	}
	out := make([]*docstore.Snapshot, 0, len(refs))
	for _, ref := range refs {
		snap, ok, err := store.Lookup(tx, ref)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

// Like records that userID likes the item and returns the new count.
// A second like by the same user fails with AlreadyLiked and changes nothing.
func (c *Counter) Like(ctx context.Context, userID, target, id string) (int64, error) {
	if err := checkTarget(target); err != nil {
		return 0, err
	}
	var count int64
	err := c.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		item, ok, err := store.Lookup(tx, store.TargetRef(target, id))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("%s %s not found", target, id)
		}
		if _, liked, err := store.Lookup(tx, store.LikeRef(target, id, userID)); err != nil {
			return err
		} else if liked {
			return apperr.New(apperr.AlreadyLiked, "you already liked this %s", target)
		}
		copies, err := projections(tx, target, item)
		if err != nil {
			return err
		}

		like := store.LikeFields(&models.Like{UserID: userID, Target: target, TargetID: id, CreatedAt: c.now().UTC()})
		if err := tx.Create(store.LikeRef(target, id, userID), like); err != nil {
			return err
		}
		if err := tx.Set(store.UserLikeRef(userID, target, id), like); err != nil {
			return err
		}
		inc := docstore.Fields{store.FieldLikeCount: docstore.Increment(1)}
		if err := tx.Update(item.Ref, inc); err != nil {
			return err
		}
		for _, p := range copies {
			if err := tx.Update(p.Ref, inc); err != nil {
				return err
			}
		}
		count = item.Int(store.FieldLikeCount) + 1
		return nil
	})
	if err != nil {
		return 0, apperr.FromStore(fmt.Errorf("like %s: %w", target, err), target+" "+id)
	}
	c.afterLike(ctx, userID, target, id, count, true)
	return count, nil
}

// Unlike removes the user's like and returns the new count. The count never
// drops below zero.
func (c *Counter) Unlike(ctx context.Context, userID, target, id string) (int64, error) {
	if err := checkTarget(target); err != nil {
		return 0, err
	}
	var count int64
	err := c.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		item, ok, err := store.Lookup(tx, store.TargetRef(target, id))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("%s %s not found", target, id)
		}
		if _, liked, err := store.Lookup(tx, store.LikeRef(target, id, userID)); err != nil {
			return err
		} else if !liked {
			return apperr.NotFoundf("you have not liked this %s", target)
		}
		copies, err := projections(tx, target, item)
		if err != nil {
			return err
		}

		if err := tx.Delete(store.LikeRef(target, id, userID)); err != nil {
			return err
		}
		if err := tx.Delete(store.UserLikeRef(userID, target, id)); err != nil {
			return err
		}
		dec := docstore.Fields{store.FieldLikeCount: docstore.Increment(-1)}
		count = item.Int(store.FieldLikeCount)
		if count > 0 {
			count--
			if err := tx.Update(item.Ref, dec); err != nil {
				return err
			}
		}
		for _, p := range copies {
			if p.Int(store.FieldLikeCount) > 0 {
				if err := tx.Update(p.Ref, dec); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperr.FromStore(fmt.Errorf("unlike %s: %w", target, err), target+" "+id)
	}
	c.afterLike(ctx, userID, target, id, count, false)
	return count, nil
}

func (c *Counter) afterLike(ctx context.Context, userID, target, id string, count int64, liked bool) {
	if err := c.cache.Invalidate(ctx, target, id); err != nil {
		c.logger.Warn("failed to invalidate like count", zap.String("target", target), zap.String("id", id), zap.Error(err))
	}
	events.Emit(ctx, c.events, c.logger, events.Event{
		Type:  events.LikeChanged,
		Topic: events.TargetTopic(target, id),
		Actor: userID,
		Data:  map[string]any{"target": target, "id": id, "count": count, "liked": liked},
		At:    c.now().UTC(),
	})
}

// LikeCount reads through the cache. A cache failure falls back to the store.
// The fill version is taken before the store read so a like committed in
// between cancels the back-fill instead of being overwritten by it.
func (c *Counter) LikeCount(ctx context.Context, target, id string) (int64, error) {
	if err := checkTarget(target); err != nil {
		return 0, err
	}
	n, ok, ver, err := c.cache.Get(ctx, target, id)
	if err != nil {
		c.logger.Warn("like count cache read failed", zap.String("id", id), zap.Error(err))
	}
	if ok {
		return n, nil
	}
	snap, err := c.db.Get(ctx, store.TargetRef(target, id))
	if err != nil {
		return 0, apperr.FromStore(err, target+" "+id)
	}
	n = snap.Int(store.FieldLikeCount)
	if err := c.cache.Set(ctx, target, id, n, ver); err != nil {
		c.logger.Warn("like count cache fill failed", zap.String("id", id), zap.Error(err))
	}
	return n, nil
}

// HasLiked reports whether the user's like record exists.
func (c *Counter) HasLiked(ctx context.Context, userID, target, id string) (bool, error) {
	if err := checkTarget(target); err != nil {
		return false, err
	}
	_, err := c.db.Get(ctx, store.LikeRef(target, id, userID))
	if err == nil {
		return true, nil
	}
	if err = apperr.FromStore(err, "like"); apperr.KindOf(err) == apperr.NotFound {
		return false, nil
	}
	return false, err
}
