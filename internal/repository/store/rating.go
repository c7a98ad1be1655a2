package store

import (
	"context"
	"fmt"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/models"
)

type RatingStore struct {
	clock
	db docstore.Store
}

func NewRatingStore(db docstore.Store) *RatingStore {
	return &RatingStore{db: db}
}

func (s *RatingStore) Rate(ctx context.Context, userID, recipeID string, value int64) (*models.Rating, error) {
	if value < 1 || value > 5 {
		return nil, apperr.Invalidf("rating must be between 1 and 5")
	}
	r := &models.Rating{RecipeID: recipeID, UserID: userID, Value: value, UpdatedAt: s.Now()}
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, ok, err := lookup(tx, RecipeRef(recipeID)); err != nil {
			return err
		} else if !ok {
			return apperr.NotFoundf("recipe %s not found", recipeID)
		}
		return tx.Set(RatingRef(recipeID, userID), RatingFields(r))
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("rate recipe: %w", err), "recipe "+recipeID)
	}
	return r, nil
}

func (s *RatingStore) Summary(ctx context.Context, recipeID string) (*models.RatingSummary, error) {
	if _, err := s.db.Get(ctx, RecipeRef(recipeID)); err != nil {
		return nil, apperr.FromStore(err, "recipe "+recipeID)
	}
	snaps, err := s.db.Query(ctx, docstore.From(RatingsOf(recipeID)))
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list ratings: %w", err), "recipe "+recipeID)
	}
	sum := &models.RatingSummary{RecipeID: recipeID}
	var total int64
	for _, snap := range snaps {
		total += DecodeRating(recipeID, snap).Value
		sum.Count++
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum, nil
}
