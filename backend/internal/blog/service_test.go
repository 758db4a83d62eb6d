package blog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialblog/backend/internal/graph"
	"socialblog/backend/internal/graphsync"
	"socialblog/backend/internal/trigger"
)

// recordingHooks logs each event name in call order
type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(format string, args ...any) graphsync.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, fmt.Sprintf(format, args...))
	return graphsync.OK()
}

func (h *recordingHooks) OnUserSaved(_ context.Context, e trigger.UserSaved) graphsync.Outcome {
	return h.record("user_saved:%s", e.Username)
}

func (h *recordingHooks) OnPostCreated(_ context.Context, e trigger.PostChanged) graphsync.Outcome {
	author := ""
	if e.Author != nil {
		author = e.Author.Username
	}
	return h.record("post_created:%d:%s", e.ID, author)
}

func (h *recordingHooks) OnPostUpdated(_ context.Context, e trigger.PostChanged) graphsync.Outcome {
	return h.record("post_updated:%d", e.ID)
}

func (h *recordingHooks) OnPostDeleted(_ context.Context, e trigger.PostChanged) graphsync.Outcome {
	return h.record("post_deleted:%d", e.ID)
}

func (h *recordingHooks) OnCommentCreated(_ context.Context, e trigger.CommentChanged) graphsync.Outcome {
	return h.record("comment_created:%d", e.ID)
}

func (h *recordingHooks) OnCommentDeleted(_ context.Context, e trigger.CommentChanged) graphsync.Outcome {
	return h.record("comment_deleted:%d", e.ID)
}

func (h *recordingHooks) OnLikeToggled(_ context.Context, e trigger.LikeToggled) graphsync.Outcome {
	return h.record("like_toggled:%d:%t", e.PostID, e.Liked)
}

func newRecordedService(t *testing.T) (*Service, *recordingHooks) {
	t.Helper()
	hooks := &recordingHooks{}
	return NewService(newTestRepository(t), hooks), hooks
}

func TestService_HooksFireAfterCommit(t *testing.T) {
	ctx := context.Background()
	svc, hooks := newRecordedService(t)

	alice, err := svc.SaveUser(ctx, &User{Username: "alice"})
	require.NoError(t, err)
	bob, err := svc.SaveUser(ctx, &User{Username: "bob"})
	require.NoError(t, err)

	post, err := svc.CreatePost(ctx, alice.ID, "#hi")
	require.NoError(t, err)
	comment, err := svc.CreateComment(ctx, bob.ID, post.ID, "hey")
	require.NoError(t, err)
	liked, count, err := svc.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)
	_, err = svc.UpdatePost(ctx, alice.ID, post.ID, "#bye")
	require.NoError(t, err)
	require.NoError(t, svc.DeletePost(ctx, alice.ID, post.ID))

	assert.Equal(t, []string{
		"user_saved:alice",
		"user_saved:bob",
		fmt.Sprintf("post_created:%d:alice", post.ID),
		fmt.Sprintf("comment_created:%d", comment.ID),
		fmt.Sprintf("like_toggled:%d:true", post.ID),
		fmt.Sprintf("post_updated:%d", post.ID),
		fmt.Sprintf("comment_deleted:%d", comment.ID),
		fmt.Sprintf("post_deleted:%d", post.ID),
	}, hooks.events)
}

func TestService_RelationalFailureSkipsHooks(t *testing.T) {
	ctx := context.Background()
	svc, hooks := newRecordedService(t)

	_, err := svc.CreatePost(ctx, 404, "nobody")
	assert.True(t, IsNotFound(err))
	_, err = svc.SaveUser(ctx, &User{})
	assert.ErrorIs(t, err, ErrEmptyUsername)
	_, _, err = svc.ToggleLike(ctx, 1, 1)
	assert.Error(t, err)

	assert.Empty(t, hooks.events)
}

func TestService_OnlyAuthorMayChangePost(t *testing.T) {
	ctx := context.Background()
	svc, hooks := newRecordedService(t)
	alice, err := svc.SaveUser(ctx, &User{Username: "alice"})
	require.NoError(t, err)
	bob, err := svc.SaveUser(ctx, &User{Username: "bob"})
	require.NoError(t, err)
	post, err := svc.CreatePost(ctx, alice.ID, "mine")
	require.NoError(t, err)
	comment, err := svc.CreateComment(ctx, alice.ID, post.ID, "also mine")
	require.NoError(t, err)
	hooks.events = nil

	_, err = svc.UpdatePost(ctx, bob.ID, post.ID, "stolen")
	assert.ErrorIs(t, err, ErrNotAuthor)
	assert.ErrorIs(t, svc.DeletePost(ctx, bob.ID, post.ID), ErrNotAuthor)
	assert.ErrorIs(t, svc.DeleteComment(ctx, bob.ID, comment.ID), ErrNotAuthor)
	assert.Empty(t, hooks.events)

	require.NoError(t, svc.DeleteComment(ctx, alice.ID, comment.ID))
	assert.Equal(t, []string{fmt.Sprintf("comment_deleted:%d", comment.ID)}, hooks.events)
}

func TestService_SyncUsers(t *testing.T) {
	ctx := context.Background()
	svc, hooks := newRecordedService(t)
	alice, err := svc.SaveUser(ctx, &User{Username: "alice"})
	require.NoError(t, err)
	hooks.events = nil

	require.NoError(t, svc.SyncUsers(ctx, alice.ID))
	assert.Equal(t, []string{"user_saved:alice"}, hooks.events)

	assert.True(t, IsNotFound(svc.SyncUsers(ctx, alice.ID, 404)))
}

func TestService_GraphOutageDoesNotFailWrites(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	svc := NewService(newTestRepository(t), trigger.NewSyncer(graphsync.NewService(store)))

	alice, err := svc.SaveUser(ctx, &User{Username: "alice"})
	require.NoError(t, err)
	post, err := svc.CreatePost(ctx, alice.ID, "replicated #yes")
	require.NoError(t, err)

	node, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, node.AuthorID)

	require.NoError(t, store.Close(ctx))

	second, err := svc.CreatePost(ctx, alice.ID, "still committed")
	require.NoError(t, err)
	_, err = svc.Repository().GetPost(ctx, second.ID)
	assert.NoError(t, err)
}
