package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := New(KindDimensionMismatch, "add_vectors", "got %d, expected %d", 4, 3)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, errors.Is(err, ErrCollectionNotFound))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, errors.Is(wrapped, ErrDimensionMismatch))
	assert.Equal(t, KindDimensionMismatch, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	err := New(KindCollectionNotFound, "query_embeddings", "collection %q does not exist", "doc")
	err.Stage = StageSearch
	assert.Equal(t, `search: collection_not_found (query_embeddings): collection "doc" does not exist`, err.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(KindProvider, "op", nil))

	base := errors.New("connection refused")
	err := Provider("embed", base)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProvider))
	assert.True(t, errors.Is(err, base))

	// already classified errors keep their kind
	inner := New(KindTokenLimitExceeded, "", "limit 5")
	err = Wrap(KindProvider, "generate", inner)
	assert.Equal(t, KindTokenLimitExceeded, KindOf(err))
	assert.Equal(t, "generate", inner.Op)
}

func TestInStage(t *testing.T) {
	assert.Nil(t, InStage(StageEmbed, nil))

	err := InStage(StageEmbed, New(KindInvalidArgument, "", "bad"))
	assert.Equal(t, StageEmbed, StageOf(err))

	// first stage wins
	err = InStage(StageSearch, err)
	assert.Equal(t, StageEmbed, StageOf(err))

	plain := InStage(StageRerank, errors.New("boom"))
	assert.Equal(t, StageRerank, StageOf(plain))
	assert.Equal(t, KindUnknown, KindOf(plain))
	assert.Equal(t, StageNone, StageOf(errors.New("x")))
}
