package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository"
)

type CommunityStore struct {
	clock
	db docstore.Store
}

func NewCommunityStore(db docstore.Store) *CommunityStore {
	return &CommunityStore{db: db}
}

func (s *CommunityStore) Create(ctx context.Context, in repository.NewCommunity) (*models.Community, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	switch {
	case in.Name == "":
		return nil, apperr.Invalidf("name is required")
	case in.Description == "":
		return nil, apperr.Invalidf("description is required")
	case in.Location == "":
		return nil, apperr.Invalidf("location is required")
	}

	c := &models.Community{
		ID:          newID(),
		Name:        in.Name,
		Description: in.Description,
		Location:    in.Location,
		ImageURL:    in.ImageURL,
		CreatedBy:   in.CreatedBy,
		MemberCount: 0,
		IsTentative: true,
		CreatedAt:   s.Now(),
	}
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Create(CommunityRef(c.ID), CommunityFields(c))
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("create community: %w", err), "community "+c.ID)
	}
	return c, nil
}

func (s *CommunityStore) Get(ctx context.Context, id string) (*models.Community, error) {
	snap, err := s.db.Get(ctx, CommunityRef(id))
	if err != nil {
		return nil, apperr.FromStore(err, "community "+id)
	}
	return DecodeCommunity(snap), nil
}

func (s *CommunityStore) List(ctx context.Context, publishedOnly bool, limit int) ([]models.Community, error) {
	q := docstore.From(Communities)
	if publishedOnly {
		q = q.Where(FieldIsTentative, docstore.OpEq, false)
	}
	return s.query(ctx, q.Order(FieldCreatedAt, docstore.Desc).Take(clampLimit(limit)))
}

func (s *CommunityStore) Search(ctx context.Context, prefix string, limit int) ([]models.Community, error) {
	p := strings.ToLower(strings.TrimSpace(prefix))
	if p == "" {
		return s.List(ctx, false, limit)
	}
	q := docstore.From(Communities).
		Where(FieldNameLower, docstore.OpGte, p).
		Where(FieldNameLower, docstore.OpLt, p+"\uf8ff").
		Order(FieldNameLower, docstore.Asc).
		Take(clampLimit(limit))
	return s.query(ctx, q)
}

func (s *CommunityStore) query(ctx context.Context, q docstore.Query) ([]models.Community, error) {
	snaps, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list communities: %w", err), "communities")
	}
	out := make([]models.Community, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, *DecodeCommunity(snap))
	}
	return out, nil
}

func (s *CommunityStore) ListMembers(ctx context.Context, communityID string) ([]models.Membership, error) {
	if _, err := s.Get(ctx, communityID); err != nil {
		return nil, err
	}
	snaps, err := s.db.Query(ctx, docstore.From(MembersOf(communityID)).Order("joinedAt", docstore.Asc))
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list members: %w", err), "community "+communityID)
	}
	out := make([]models.Membership, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, DecodeMembership(snap))
	}
	return out, nil
}

func (s *CommunityStore) ListByUser(ctx context.Context, userID string) ([]models.Community, error) {
	snaps, err := s.db.Query(ctx, docstore.From(CommunitiesOf(userID)).Order("joinedAt", docstore.Desc))
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list user communities: %w", err), "user "+userID)
	}
	out := make([]models.Community, 0, len(snaps))
	for _, snap := range snaps {
		c, err := s.Get(ctx, snap.Ref.ID)
		if errors.Is(err, apperr.NotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}
