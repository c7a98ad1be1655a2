package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository"
)

type UserStore struct {
	clock
	db docstore.Store
}

func NewUserStore(db docstore.Store) *UserStore {
	return &UserStore{db: db}
}

// Ensure creates the user document on first sign-in. Later sign-ins return
// the stored profile unchanged, so edits made through Update stick.
func (s *UserStore) Ensure(ctx context.Context, id repository.Identity) (*models.User, error) {
	if id.UserID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "missing user id")
	}
	var out *models.User
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, ok, err := lookup(tx, UserRef(id.UserID))
		if err != nil {
			return err
		}
		if ok {
			out = DecodeUser(snap)
			return nil
		}
		now := s.Now()
		out = &models.User{
			ID:          id.UserID,
			DisplayName: id.Name,
			Email:       id.Email,
			ImageURL:    id.ImageURL,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Create(UserRef(id.UserID), UserFields(out))
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("ensure user: %w", err), "user "+id.UserID)
	}
	return out, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.db.Get(ctx, UserRef(id))
	if err != nil {
		return nil, apperr.FromStore(err, "user "+id)
	}
	return DecodeUser(snap), nil
}

func (s *UserStore) Update(ctx context.Context, id, displayName, imageURL string) (*models.User, error) {
	displayName = strings.TrimSpace(displayName)
	var out *models.User
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, ok, err := lookup(tx, UserRef(id))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("user %s not found", id)
		}
		u := DecodeUser(snap)
		now := s.Now()
		f := docstore.Fields{FieldUpdatedAt: now}
		if displayName != "" {
			u.DisplayName = displayName
			f["displayName"] = displayName
		}
		if imageURL != "" {
			u.ImageURL = imageURL
			f["imageUrl"] = imageURL
		}
		u.UpdatedAt = now
		out = u
		return tx.Update(UserRef(id), f)
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("update user: %w", err), "user "+id)
	}
	return out, nil
}
