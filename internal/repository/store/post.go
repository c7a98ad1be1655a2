package store

import (
	"context"
	"fmt"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository"
	"github.com/lalith-99/potluck/internal/textutil"
)

type PostStore struct {
	clock
	db docstore.Store
}

func NewPostStore(db docstore.Store) *PostStore {
	return &PostStore{db: db}
}

// Create writes the post under posts/ and its copies under the community and
// the author.
//
// Why copies instead of querying posts/ by community or author?
//   - A feed then reads one collection ordered by one field, which every
//     backend can serve from a single index.
//   - The copies are only safe if they never drift from posts/. All three are
//     created in one transaction here, and likes and deletes update them the
//     same way, so a reader never sees a post in one list and not another.
func (s *PostStore) Create(ctx context.Context, in repository.NewPost) (*models.Post, error) {
	content := textutil.Clean(in.Content)
	if content == "" && in.ImageURL == "" {
		return nil, apperr.Invalidf("content is required")
	}
	if in.AuthorID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "author is required")
	}

	p := &models.Post{
		ID:          newID(),
		AuthorID:    in.AuthorID,
		AuthorName:  in.AuthorName,
		CommunityID: in.CommunityID,
		Content:     content,
		ImageURL:    in.ImageURL,
		RecipeID:    in.RecipeID,
		CreatedAt:   s.Now(),
	}

	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if p.CommunityID != "" {
			if _, ok, err := lookup(tx, CommunityRef(p.CommunityID)); err != nil {
				return err
			} else if !ok {
				return apperr.NotFoundf("community %s not found", p.CommunityID)
			}
		}
		if p.RecipeID != "" {
			if _, ok, err := lookup(tx, RecipeRef(p.RecipeID)); err != nil {
				return err
			} else if !ok {
				return apperr.NotFoundf("recipe %s not found", p.RecipeID)
			}
		}

		f := PostFields(p)
		if err := tx.Create(PostRef(p.ID), f); err != nil {
			return err
		}
		if p.CommunityID != "" {
			if err := tx.Create(CommunityPostRef(p.CommunityID, p.ID), f); err != nil {
				return err
			}
		}
		return tx.Create(UserPostRef(p.AuthorID, p.ID), f)
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("create post: %w", err), "post "+p.ID)
	}
	return p, nil
}

func (s *PostStore) Get(ctx context.Context, id string) (*models.Post, error) {
	snap, err := s.db.Get(ctx, PostRef(id))
	if err != nil {
		return nil, apperr.FromStore(err, "post "+id)
	}
	p := DecodePost(snap)
	if p.CommentCount, err = s.db.Count(ctx, docstore.From(CommentsOf(id))); err != nil {
		return nil, apperr.FromStore(fmt.Errorf("count comments: %w", err), "post "+id)
	}
	return p, nil
}

func (s *PostStore) ListByCommunity(ctx context.Context, communityID string, sort repository.PostSort, limit int) ([]models.Post, error) {
	snap, err := s.db.Get(ctx, CommunityRef(communityID))
	if err != nil {
		return nil, apperr.FromStore(err, "community "+communityID)
	}
	order := FieldCreatedAt
	switch sort {
	case repository.SortPopular:
		order = FieldLikeCount
	case repository.SortRecent, "":
	default:
		return nil, apperr.Invalidf("unknown sort %q", sort)
	}
	q := docstore.From(CommunityPostsOf(snap.Ref.ID)).Order(order, docstore.Desc).Take(clampLimit(limit))
	return s.list(ctx, q)
}

func (s *PostStore) ListAll(ctx context.Context, limit int) ([]models.Post, error) {
	return s.list(ctx, docstore.From(Posts).Order(FieldCreatedAt, docstore.Desc).Take(clampLimit(limit)))
}

func (s *PostStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Post, error) {
	return s.list(ctx, docstore.From(UserPostsOf(userID)).Order(FieldCreatedAt, docstore.Desc).Take(clampLimit(limit)))
}

// list decodes posts and attaches live comment counts.
func (s *PostStore) list(ctx context.Context, q docstore.Query) ([]models.Post, error) {
	snaps, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list posts: %w", err), "posts")
	}
	out := make([]models.Post, 0, len(snaps))
	for _, snap := range snaps {
		p := DecodePost(snap)
		n, err := s.db.Count(ctx, docstore.From(CommentsOf(p.ID)))
		if err != nil {
			return nil, apperr.FromStore(fmt.Errorf("count comments: %w", err), "post "+p.ID)
		}
		p.CommentCount = n
		out = append(out, *p)
	}
	return out, nil
}

func (s *PostStore) Delete(ctx context.Context, userID, postID string) error {
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, ok, err := lookup(tx, PostRef(postID))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("post %s not found", postID)
		}
		p := DecodePost(snap)
		if p.AuthorID != userID {
			return apperr.Forbiddenf("only the author can delete post %s", postID)
		}

		comments, err := tx.Query(docstore.From(CommentsOf(postID)))
		if err != nil {
			return err
		}
		likes, err := tx.Query(docstore.From(LikesOf(TargetPost, postID)))
		if err != nil {
			return err
		}

		for _, c := range comments {
			if err := tx.Delete(c.Ref); err != nil {
				return err
			}
		}
		for _, l := range likes {
			if err := tx.Delete(l.Ref); err != nil {
				return err
			}
			if err := tx.Delete(UserLikeRef(l.Ref.ID, TargetPost, postID)); err != nil {
				return err
			}
		}
		if p.CommunityID != "" {
			if err := tx.Delete(CommunityPostRef(p.CommunityID, postID)); err != nil {
				return err
			}
		}
		if err := tx.Delete(UserPostRef(p.AuthorID, postID)); err != nil {
			return err
		}
		return tx.Delete(PostRef(postID))
	})
	if err != nil {
		return apperr.FromStore(fmt.Errorf("delete post: %w", err), "post "+postID)
	}
	return nil
}
