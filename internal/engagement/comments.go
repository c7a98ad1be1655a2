package engagement

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/events"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository/store"
	"github.com/lalith-99/potluck/internal/textutil"
)

const MaxCommentLength = 2000

// AddComment appends a comment with a server-assigned timestamp.
func (c *Counter) AddComment(ctx context.Context, userID, authorName, postID, text string) (*models.Comment, error) {
	text = textutil.Clean(text)
	if text == "" {
		return nil, apperr.Invalidf("comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, apperr.Invalidf("comment is longer than %d characters", MaxCommentLength)
	}
	cm := &models.Comment{
		ID:         uuid.NewString(),
		PostID:     postID,
		AuthorID:   userID,
		AuthorName: authorName,
		Text:       text,
		CreatedAt:  c.now().UTC(),
	}
	err := c.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, ok, err := store.Lookup(tx, store.PostRef(postID)); err != nil {
			return err
		} else if !ok {
			return apperr.NotFoundf("post %s not found", postID)
		}
		return tx.Create(store.CommentRef(postID, cm.ID), store.CommentFields(cm))
	})
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("add comment: %w", err), "post "+postID)
	}
	events.Emit(ctx, c.events, c.logger, events.Event{
		Type:  events.CommentAdded,
		Topic: events.TargetTopic(store.TargetPost, postID),
		Actor: userID,
		Data:  map[string]any{"comment": cm},
		At:    cm.CreatedAt,
	})
	return cm, nil
}

// ListComments returns the post's comments oldest first.
func (c *Counter) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := c.db.Get(ctx, store.PostRef(postID)); err != nil {
		return nil, apperr.FromStore(err, "post "+postID)
	}
	snaps, err := c.db.Query(ctx, docstore.From(store.CommentsOf(postID)).Order(store.FieldCreatedAt, docstore.Asc))
	if err != nil {
		return nil, apperr.FromStore(fmt.Errorf("list comments: %w", err), "post "+postID)
	}
	out := make([]models.Comment, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, store.DecodeComment(postID, snap))
	}
	return out, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (c *Counter) DeleteComment(ctx context.Context, userID, postID, commentID string) error {
	err := c.db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, ok, err := store.Lookup(tx, store.CommentRef(postID, commentID))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("comment %s not found", commentID)
		}
		if snap.String(store.FieldAuthorID) != userID {
			return apperr.Forbiddenf("only the author can delete this comment")
		}
		return tx.Delete(snap.Ref)
	})
	if err != nil {
		return apperr.FromStore(fmt.Errorf("delete comment: %w", err), "comment "+commentID)
	}
	events.Emit(ctx, c.events, c.logger, events.Event{
		Type:  events.CommentDeleted,
		Topic: events.TargetTopic(store.TargetPost, postID),
		Actor: userID,
		Data:  map[string]any{"id": commentID},
		At:    c.now().UTC(),
	})
	return nil
}

// CommentCount counts the comment subcollection.
func (c *Counter) CommentCount(ctx context.Context, postID string) (int64, error) {
	n, err := c.db.Count(ctx, docstore.From(store.CommentsOf(postID)))
	if err != nil {
		return 0, apperr.FromStore(fmt.Errorf("count comments: %w", err), "post "+postID)
	}
	return n, nil
}
