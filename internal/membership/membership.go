// Package membership joins users to communities and publishes a community
// once enough members have joined.
//
// A membership is two records, one under the community and one under the
// user, and the community's memberCount equals the number of them. Join and
// Leave change the records, the counter and the publication flag in a single
// transaction, so concurrent callers can neither lose an increment nor leave
// a record without its count.
package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/events"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository/store"
	"go.uber.org/zap"
)

// DefaultThreshold is the member count at which a tentative community is
// published.
const DefaultThreshold = 2

// Status is the caller's membership after an operation.
type Status struct {
	CommunityID string `json:"community_id"`
	UserID      string `json:"user_id"`
	IsMember    bool   `json:"is_member"`
	MemberCount int64  `json:"member_count"`
	IsTentative bool   `json:"is_tentative"`
	// Changed is false when the call was a no-op.
	Changed bool `json:"changed"`
	// Published is true only for the join that published the community.
	Published bool `json:"published"`
}

type Manager struct {
	db        docstore.Store
	threshold int64
	events    events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Manager)

// WithThreshold sets the publication threshold. Values below 1 are raised to 1.
func WithThreshold(n int64) Option {
	return func(m *Manager) {
		if n < 1 {
			n = 1
		}
		m.threshold = n
	}
}

func WithPublisher(p events.Publisher) Option { return func(m *Manager) { m.events = p } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func New(db docstore.Store, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		db:        db,
		threshold: DefaultThreshold,
		events:    events.Nop{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Threshold() int64 { return m.threshold }

// Join makes userID a member of communityID. Joining twice is a no-op.
//
// Why one transaction for the records, the count and the publication flag?
//   - The count is read and written back. Two joins outside a transaction
//     would both read N and both write N+1.
//   - Publication depends on the count the join produced. Deciding it in a
//     separate step would let two concurrent joins both see N < threshold.
//   - If the store aborts the commit, nothing is applied, so a retry starts
//     from a clean state. That is why the body resets st first.
func (m *Manager) Join(ctx context.Context, userID, communityID string) (*Status, error) {
	st := &Status{CommunityID: communityID, UserID: userID}
	err := m.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		// The body may run more than once; reset what a failed attempt set.
		*st = Status{CommunityID: communityID, UserID: userID}

		c, err := readCommunity(tx, communityID)
		if err != nil {
			return err
		}
		st.MemberCount = c.Int(store.FieldMemberCount)
		st.IsTentative = c.Bool(store.FieldIsTentative)

		_, member, err := store.Lookup(tx, store.MemberRef(communityID, userID))
		if err != nil {
			return err
		}
		if member {
			st.IsMember = true
			return nil
		}

		now := m.now().UTC()
		rec := store.MembershipFields(&models.Membership{UserID: userID, CommunityID: communityID, JoinedAt: now})
		if err := tx.Create(store.MemberRef(communityID, userID), rec); err != nil {
			return err
		}
		if err := tx.Set(store.UserCommunityRef(userID, communityID), rec); err != nil {
			return err
		}

		update := docstore.Fields{store.FieldMemberCount: docstore.Increment(1)}
		st.MemberCount++
		if st.IsTentative && st.MemberCount >= m.threshold {
			update[store.FieldIsTentative] = false
			update[store.FieldPublishedAt] = now
			st.IsTentative = false
			st.Published = true
		}
		st.IsMember = true
		st.Changed = true
		return tx.Update(store.CommunityRef(communityID), update)
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("join community: %w", err), "community "+communityID)
	}

	if st.Changed {
		m.emit(ctx, events.MembershipJoined, st)
	}
	if st.Published {
		m.logger.Info("community published",
			zap.String("community_id", communityID),
			zap.Int64("member_count", st.MemberCount),
		)
		m.emit(ctx, events.CommunityPublished, st)
	}
	return st, nil
}

// Leave removes userID from communityID. Leaving when not a member is a
// no-op. The member count never drops below zero and a published community
// stays published.
func (m *Manager) Leave(ctx context.Context, userID, communityID string) (*Status, error) {
	st := &Status{CommunityID: communityID, UserID: userID}
	err := m.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		*st = Status{CommunityID: communityID, UserID: userID}

		c, err := readCommunity(tx, communityID)
		if err != nil {
			return err
		}
		st.MemberCount = c.Int(store.FieldMemberCount)
		st.IsTentative = c.Bool(store.FieldIsTentative)

		_, member, err := store.Lookup(tx, store.MemberRef(communityID, userID))
		if err != nil {
			return err
		}
		if !member {
			return nil
		}

		if err := tx.Delete(store.MemberRef(communityID, userID)); err != nil {
			return err
		}
		if err := tx.Delete(store.UserCommunityRef(userID, communityID)); err != nil {
			return err
		}
		st.Changed = true
		if st.MemberCount <= 0 {
			st.MemberCount = 0
			return nil
		}
		st.MemberCount--
		return tx.Update(store.CommunityRef(communityID), docstore.Fields{
			store.FieldMemberCount: docstore.Increment(-1),
		})
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("leave community: %w", err), "community "+communityID)
	}
	if st.Changed {
		m.emit(ctx, events.MembershipLeft, st)
	}
	return st, nil
}

// IsMember is a point read of the community-side membership record.
func (m *Manager) IsMember(ctx context.Context, userID, communityID string) (bool, error) {
	_, err := m.db.Get(ctx, store.MemberRef(communityID, userID))
	if err == nil {
		return true, nil
	}
	if err = apperr.FromStore(err, "membership"); apperr.KindOf(err) == apperr.NotFound {
		return false, nil
	}
	return false, err
}

func readCommunity(tx docstore.Tx, id string) (*docstore.Snapshot, error) {
	snap, ok, err := store.Lookup(tx, store.CommunityRef(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFoundf("community %s not found", id)
	}
	return snap, nil
}

func (m *Manager) emit(ctx context.Context, typ string, st *Status) {
	events.Emit(ctx, m.events, m.logger, events.Event{
		Type:  typ,
		Topic: events.CommunityTopic(st.CommunityID),
		Actor: st.UserID,
		Data: map[string]any{
			"member_count": st.MemberCount,
			"is_tentative": st.IsTentative,
		},
		At: m.now().UTC(),
	})
}
