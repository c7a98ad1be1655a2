package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/stretchr/testify/assert"
)

func TestSpecializedConflicts(t *testing.T) {
	err := New(AlreadyLiked, "post p1 already liked")

	assert.ErrorIs(t, err, AlreadyLiked)
	assert.ErrorIs(t, err, Conflict)
	assert.NotErrorIs(t, err, AlreadySaved)
	assert.Equal(t, AlreadyLiked, KindOf(err))

	wrapped := fmt.Errorf("like: %w", New(AlreadySaved, "dup"))
	assert.ErrorIs(t, wrapped, Conflict)
	assert.Equal(t, AlreadySaved, KindOf(wrapped))
}

func TestFromStore(t *testing.T) {
	cases := []struct {
		in   error
		kind Kind
	}{
		{fmt.Errorf("get x: %w", docstore.ErrNotFound), NotFound},
		{docstore.ErrAlreadyExists, Conflict},
		{docstore.ErrContention, Unavailable},
		{fmt.Errorf("%w: dial tcp", docstore.ErrUnavailable), Unavailable},
		{errors.New("boom"), Internal},
		{Forbiddenf("nope"), PermissionDenied},
	}
	for _, tc := range cases {
		err := FromStore(tc.in, "thing")
		assert.Equal(t, tc.kind, KindOf(err), tc.in.Error())
	}
	assert.NoError(t, FromStore(nil, "thing"))
}

func TestRetryableOnlyForUnavailable(t *testing.T) {
	assert.True(t, Retryable(FromStore(docstore.ErrContention, "c")))
	assert.False(t, Retryable(NotFoundf("c")))
	assert.False(t, Retryable(errors.New("x")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "board b1 not found", Message(NotFoundf("board %s not found", "b1")))
	assert.Equal(t, "internal error", Message(errors.New("raw")))
}
