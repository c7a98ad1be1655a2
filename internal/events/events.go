// Package events fans domain events out to live websocket clients and to
// Kafka. Events are emitted after a transaction commits and are advisory:
// a failed publish never undoes or fails the operation that caused it.
package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	MembershipJoined   = "membership.joined"
	MembershipLeft     = "membership.left"
	CommunityPublished = "community.published"
	LikeChanged        = "like.changed"
	CommentAdded       = "comment.added"
	CommentDeleted     = "comment.deleted"
)

// Event is one domain change. Topic routes it to subscribers, for example
// "community:<id>" or "post:<id>".
type Event struct {
	Type  string         `json:"type"`
	Topic string         `json:"topic"`
	Actor string         `json:"actor,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
	At    time.Time      `json:"at"`
}

func CommunityTopic(id string) string { return "community:" + id }

// TargetTopic is the topic of a likeable item, "post:<id>" or "recipe:<id>".
func TargetTopic(target, id string) string { return target + ":" + id }

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Emit publishes ev and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, logger *zap.Logger, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish event",
			zap.String("type", ev.Type),
			zap.String("topic", ev.Topic),
			zap.Error(err),
		)
	}
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
