package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/textutil"
)

type BoardStore struct {
	clock
	db docstore.Store
}

func NewBoardStore(db docstore.Store) *BoardStore {
	return &BoardStore{db: db}
}

func (s *BoardStore) Create(ctx context.Context, ownerID, name, description string, isPrivate bool) (*models.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalidf("name is required")
	}
	now := s.Now()
	b := &models.Board{
		ID:          newID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: textutil.Clean(description),
		IsPrivate:   isPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Create(BoardRef(b.ID), BoardFields(b))
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("create board: %w", err), "board "+b.ID)
	}
	return b, nil
}

// visible enforces board privacy for reads.
func visible(b *models.Board, viewerID string) error {
	if b.IsPrivate && b.OwnerID != viewerID {
		return apperr.Forbiddenf("board %s is private", b.ID)
	}
	return nil
}

func (s *BoardStore) Get(ctx context.Context, viewerID, id string) (*models.Board, error) {
	snap, err := s.db.Get(ctx, BoardRef(id))
	if err != nil {
		return nil, apperr.FromStore(err, "board "+id)
	}
	b := DecodeBoard(snap)
	if err := visible(b, viewerID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BoardStore) ListByUser(ctx context.Context, ownerID, viewerID string) ([]models.Board, error) {
	snaps, err := s.db.Query(ctx, docstore.From(Boards).
		Where(FieldOwnerID, docstore.OpEq, ownerID).
		Order(FieldCreatedAt, docstore.Desc))
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list boards: %w", err), "boards")
	}
	out := make([]models.Board, 0, len(snaps))
	for _, snap := range snaps {
		b := DecodeBoard(snap)
		if visible(b, viewerID) != nil {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

// owned reads a board inside a transaction and checks that ownerID owns it.
func owned(tx docstore.Tx, ownerID, id string) (*models.Board, error) {
	snap, ok, err := lookup(tx, BoardRef(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFoundf("board %s not found", id)
	}
	b := DecodeBoard(snap)
	if b.OwnerID != ownerID {
		return nil, apperr.Forbiddenf("board %s belongs to another user", id)
	}
	return b, nil
}

func (s *BoardStore) Update(ctx context.Context, ownerID, id, name, description string, isPrivate bool) (*models.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalidf("name is required")
	}
	var out *models.Board
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		b, err := owned(tx, ownerID, id)
		if err != nil {
			return err
		}
		b.Name = name
		b.Description = textutil.Clean(description)
		b.IsPrivate = isPrivate
		b.UpdatedAt = s.Now()
		out = b
		return tx.Update(BoardRef(id), docstore.Fields{
			"name":         b.Name,
			"description":  b.Description,
			FieldIsPrivate: b.IsPrivate,
			FieldUpdatedAt: b.UpdatedAt,
		})
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("update board: %w", err), "board "+id)
	}
	return out, nil
}

func (s *BoardStore) Delete(ctx context.Context, ownerID, id string) error {
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := owned(tx, ownerID, id); err != nil {
			return err
		}
		saved, err := tx.Query(docstore.From(BoardRecipesOf(id)))
		if err != nil {
			return err
		}
		for _, snap := range saved {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(BoardRef(id))
	})
	if err != nil {
		return apperr.FromStore(fmt.Errorf("delete board: %w", err), "board "+id)
	}
	return nil
}

func (s *BoardStore) SaveRecipe(ctx context.Context, ownerID, boardID, recipeID string) (*models.SavedRecipe, error) {
	var out *models.SavedRecipe
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := owned(tx, ownerID, boardID); err != nil {
			return err
		}
		rsnap, ok, err := lookup(tx, RecipeRef(recipeID))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("recipe %s not found", recipeID)
		}
		if _, exists, err := lookup(tx, SavedRecipeRef(boardID, recipeID)); err != nil {
			return err
		} else if exists {
			return apperr.New(apperr.AlreadySaved, "recipe %s is already on board %s", recipeID, boardID)
		}

		r := DecodeRecipe(rsnap)
		now := s.Now()
		out = &models.SavedRecipe{
			RecipeID:    recipeID,
			BoardID:     boardID,
			Title:       r.Title,
			ImageURL:    r.ImageURL,
			CookingTime: r.CookingTime,
			Difficulty:  r.Difficulty,
			MealType:    r.MealType,
			SavedAt:     now,
		}
		if err := tx.Create(SavedRecipeRef(boardID, recipeID), SavedRecipeFields(out)); err != nil {
			return err
		}
		return tx.Update(BoardRef(boardID), docstore.Fields{
			FieldRecipeCount: docstore.Increment(1),
			FieldUpdatedAt:   now,
		})
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("save recipe to board: %w", err), "board "+boardID)
	}
	return out, nil
}

func (s *BoardStore) RemoveRecipe(ctx context.Context, ownerID, boardID, recipeID string) error {
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		b, err := owned(tx, ownerID, boardID)
		if err != nil {
			return err
		}
		if _, ok, err := lookup(tx, SavedRecipeRef(boardID, recipeID)); err != nil {
			return err
		} else if !ok {
			return apperr.NotFoundf("recipe %s is not on board %s", recipeID, boardID)
		}
		if err := tx.Delete(SavedRecipeRef(boardID, recipeID)); err != nil {
			return err
		}
		f := docstore.Fields{FieldUpdatedAt: s.Now()}
		if b.RecipeCount > 0 {
			f[FieldRecipeCount] = docstore.Increment(-1)
		}
		return tx.Update(BoardRef(boardID), f)
	})
	if err != nil {
		return apperr.FromStore(fmt.Errorf("remove recipe from board: %w", err), "board "+boardID)
	}
	return nil
}

func (s *BoardStore) ListRecipes(ctx context.Context, viewerID, boardID string) ([]models.SavedRecipe, error) {
	if _, err := s.Get(ctx, viewerID, boardID); err != nil {
		return nil, err
	}
	snaps, err := s.db.Query(ctx, docstore.From(BoardRecipesOf(boardID)).Order("savedAt", docstore.Desc))
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list board recipes: %w", err), "board "+boardID)
	}
	out := make([]models.SavedRecipe, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, DecodeSavedRecipe(boardID, snap))
	}
	return out, nil
}
