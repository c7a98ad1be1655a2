package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository"
	"github.com/lalith-99/potluck/internal/textutil"
)

var difficulties = map[string]bool{"Easy": true, "Medium": true, "Hard": true}

// trendingScan bounds how many recent recipes Trending ranks in memory.
const trendingScan = 500

type RecipeStore struct {
	clock
	db docstore.Store
}

func NewRecipeStore(db docstore.Store) *RecipeStore {
	return &RecipeStore{db: db}
}

func validateRecipe(in *repository.RecipeInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Instructions = strings.TrimSpace(in.Instructions)
	if in.Title == "" {
		return apperr.Invalidf("title is required")
	}
	if in.Instructions == "" {
		return apperr.Invalidf("instructions are required")
	}
	if len(in.Ingredients) == 0 {
		return apperr.Invalidf("at least one ingredient is required")
	}
	for i, ing := range in.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return apperr.Invalidf("ingredient %d has no name", i+1)
		}
	}
	if in.CookingTime < 0 {
		return apperr.Invalidf("cooking time cannot be negative")
	}
	if in.Difficulty != "" && !difficulties[in.Difficulty] {
		return apperr.Invalidf("difficulty must be Easy, Medium or Hard")
	}
	return nil
}

func applyInput(r *models.Recipe, in repository.RecipeInput) {
	r.Title = in.Title
	r.Ingredients = in.Ingredients
	r.Instructions = in.Instructions
	r.Notes = textutil.Clean(in.Notes)
	r.CookingTime = in.CookingTime
	r.Difficulty = in.Difficulty
	r.MealType = in.MealType
	r.Dietary = in.Dietary
	if r.Dietary == nil {
		r.Dietary = []string{}
	}
	r.ImageURL = in.ImageURL
}

func (s *RecipeStore) Create(ctx context.Context, ownerID string, in repository.RecipeInput) (*models.Recipe, error) {
	if err := validateRecipe(&in); err != nil {
		return nil, err
	}
	now := s.Now()
	r := &models.Recipe{ID: newID(), OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	applyInput(r, in)

	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Create(RecipeRef(r.ID), RecipeFields(r))
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("create recipe: %w", err), "recipe "+r.ID)
	}
	return r, nil
}

func (s *RecipeStore) Get(ctx context.Context, id string) (*models.Recipe, error) {
	snap, err := s.db.Get(ctx, RecipeRef(id))
	if err != nil {
		return nil, apperr.FromStore(err, "recipe "+id)
	}
	r := DecodeRecipe(snap)
	if r.InstructionsHTML, err = textutil.RenderMarkdown(r.Instructions); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "render recipe %s", id)
	}
	return r, nil
}

func (s *RecipeStore) Update(ctx context.Context, ownerID, id string, in repository.RecipeInput) (*models.Recipe, error) {
	if err := validateRecipe(&in); err != nil {
		return nil, err
	}
	var out *models.Recipe
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, ok, err := lookup(tx, RecipeRef(id))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("recipe %s not found", id)
		}
		r := DecodeRecipe(snap)
		if r.OwnerID != ownerID {
			return apperr.Forbiddenf("only the owner can edit recipe %s", id)
		}
		applyInput(r, in)
		r.UpdatedAt = s.Now()

		// likeCount is owned by the engagement counter and left untouched.
		f := RecipeFields(r)
		delete(f, FieldLikeCount)
		delete(f, FieldCreatedAt)
		delete(f, FieldOwnerID)
		out = r
		return tx.Update(RecipeRef(id), f)
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("update recipe: %w", err), "recipe "+id)
	}
	return out, nil
}

func (s *RecipeStore) Delete(ctx context.Context, ownerID, id string) error {
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, ok, err := lookup(tx, RecipeRef(id))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("recipe %s not found", id)
		}
		if snap.String(FieldOwnerID) != ownerID {
			return apperr.Forbiddenf("only the owner can delete recipe %s", id)
		}
		likes, err := tx.Query(docstore.From(LikesOf(TargetRecipe, id)))
		if err != nil {
			return err
		}
		ratings, err := tx.Query(docstore.From(RatingsOf(id)))
		if err != nil {
			return err
		}

		for _, l := range likes {
			if err := tx.Delete(l.Ref); err != nil {
				return err
			}
			if err := tx.Delete(UserLikeRef(l.Ref.ID, TargetRecipe, id)); err != nil {
				return err
			}
		}
		for _, r := range ratings {
			if err := tx.Delete(r.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(RecipeRef(id))
	})
	if err != nil {
		return apperr.FromStore(fmt.Errorf("delete recipe: %w", err), "recipe "+id)
	}
	return nil
}

func (s *RecipeStore) List(ctx context.Context, limit int) ([]models.Recipe, error) {
	return s.list(ctx, docstore.From(Recipes).Order(FieldCreatedAt, docstore.Desc).Take(clampLimit(limit)))
}

func (s *RecipeStore) ListByUser(ctx context.Context, ownerID string, limit int) ([]models.Recipe, error) {
	return s.list(ctx, docstore.From(Recipes).
		Where(FieldOwnerID, docstore.OpEq, ownerID).
		Order(FieldCreatedAt, docstore.Desc).
		Take(clampLimit(limit)))
}

// Trending ranks recent recipes by likes. Range filters must share the
// ordering field, so the like ordering happens here rather than in the store.
func (s *RecipeStore) Trending(ctx context.Context, since time.Time, limit int) ([]models.Recipe, error) {
	recipes, err := s.list(ctx, docstore.From(Recipes).
		Where(FieldCreatedAt, docstore.OpGte, since.UTC()).
		Order(FieldCreatedAt, docstore.Desc).
		Take(trendingScan))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].LikeCount > recipes[j].LikeCount
	})
	if n := clampLimit(limit); len(recipes) > n {
		recipes = recipes[:n]
	}
	return recipes, nil
}

func (s *RecipeStore) list(ctx context.Context, q docstore.Query) ([]models.Recipe, error) {
	snaps, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list recipes: %w", err), "recipes")
	}
	out := make([]models.Recipe, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, *DecodeRecipe(snap))
	}
	return out, nil
}
