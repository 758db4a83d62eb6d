package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_WalksWrappedChain(t *testing.T) {
	notFound := NewGraphNotFound("UserNode", "42")
	wrapped := fmt.Errorf("failed to create post: %w", notFound)

	assert.True(t, IsErrorType(wrapped, ErrorTypeGraph))
	assert.False(t, IsErrorType(wrapped, ErrorTypeConfig))
	assert.False(t, IsErrorType(stderrors.New("plain"), ErrorTypeGraph))
	assert.False(t, IsErrorType(nil, ErrorTypeGraph))
}

func TestIsErrorType_InnerTypeBehindOuterType(t *testing.T) {
	inner := NewContextTimeout("feed", time.Second, nil)
	outer := NewGraphQueryFailed("feed", inner)

	assert.True(t, IsErrorType(outer, ErrorTypeGraph))
	assert.True(t, IsErrorType(outer, ErrorTypeContext))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewGraphUnavailable("neo4j", stderrors.New("dial tcp"))))
	assert.True(t, IsRetryable(fmt.Errorf("upsert: %w", NewGraphConstraint("UserNode", "alice", nil))))
	assert.False(t, IsRetryable(NewGraphNotFound("PostNode", "7")))
	assert.False(t, IsRetryable(NewContextTimeout("trending", time.Second, nil)))
}

func TestBaseError_Message(t *testing.T) {
	err := NewGraphUnavailable("neo4j", stderrors.New("connection refused"))
	assert.Equal(t, "[graph] graph backend unavailable: neo4j: connection refused", err.Error())

	var target *ErrGraphUnavailable
	assert.True(t, stderrors.As(fmt.Errorf("wrap: %w", err), &target))
	assert.Equal(t, "neo4j", target.Backend)
}

func TestIsErrorType_MultiWrap(t *testing.T) {
	sentinel := stderrors.New("analytics unavailable")
	err := fmt.Errorf("%w: feed: %w", sentinel, NewContextTimeout("feed", time.Second, nil))

	assert.True(t, IsErrorType(err, ErrorTypeContext))
	assert.False(t, IsErrorType(err, ErrorTypeGraph))
}
