package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialblog/backend/internal/analytics"
	"socialblog/backend/internal/graph"
	"socialblog/backend/internal/graphsync"
	"socialblog/backend/internal/social"
)

func newTestSyncer() (*Syncer, *graph.MemoryStore) {
	store := graph.NewMemoryStore()
	return NewSyncer(graphsync.NewService(store)), store
}

func TestOnPostCreated_UpsertsAuthorFirst(t *testing.T) {
	ctx := context.Background()
	syncer, store := newTestSyncer()

	out := syncer.OnPostCreated(ctx, PostChanged{
		ID:        10,
		AuthorID:  1,
		Content:   "hello #Go",
		CreatedAt: time.Now(),
		Author:    &UserSaved{ID: 1, Username: "alice"},
	})
	require.True(t, out.IsOK(), out.String())

	user, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	tags, err := store.PostTags(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "go", tags[0].Name)
}

func TestOnPostCreated_SkippedWithoutAuthorNode(t *testing.T) {
	syncer, _ := newTestSyncer()

	out := syncer.OnPostCreated(context.Background(), PostChanged{ID: 10, AuthorID: 1, Content: "x"})
	assert.Equal(t, graphsync.StatusSkipped, out.Status)
}

func TestPostAndCommentLifecycle(t *testing.T) {
	ctx := context.Background()
	syncer, store := newTestSyncer()
	require.True(t, syncer.OnUserSaved(ctx, UserSaved{ID: 1, Username: "alice"}).IsOK())
	require.True(t, syncer.OnUserSaved(ctx, UserSaved{ID: 2, Username: "bob"}).IsOK())
	require.True(t, syncer.OnPostCreated(ctx, PostChanged{ID: 10, AuthorID: 1, Content: "#a #b"}).IsOK())

	require.True(t, syncer.OnPostUpdated(ctx, PostChanged{ID: 10, AuthorID: 1, Content: "#b"}).IsOK())
	tags, err := store.PostTags(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "b", tags[0].Name)

	require.True(t, syncer.OnCommentCreated(ctx, CommentChanged{ID: 100, AuthorID: 2, PostID: 10, Content: "nice"}).IsOK())
	comments, err := store.PostComments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	require.True(t, syncer.OnLikeToggled(ctx, LikeToggled{UserID: 2, PostID: 10, Liked: true}).IsOK())
	liked, err := store.HasLiked(ctx, 2, 10)
	require.NoError(t, err)
	assert.True(t, liked)

	require.True(t, syncer.OnLikeToggled(ctx, LikeToggled{UserID: 2, PostID: 10, Liked: false}).IsOK())
	liked, err = store.HasLiked(ctx, 2, 10)
	require.NoError(t, err)
	assert.False(t, liked)

	require.True(t, syncer.OnCommentDeleted(ctx, CommentChanged{ID: 100}).IsOK())
	require.True(t, syncer.OnPostDeleted(ctx, PostChanged{ID: 10}).IsOK())
	assert.Equal(t, graphsync.StatusSkipped, syncer.OnPostDeleted(ctx, PostChanged{ID: 10}).Status)
}

func TestUnavailableGraphIsAnOutcome(t *testing.T) {
	ctx := context.Background()
	syncer, store := newTestSyncer()
	require.NoError(t, store.Close(ctx))

	out := syncer.OnUserSaved(ctx, UserSaved{ID: 1, Username: "alice"})
	assert.Equal(t, graphsync.StatusFailed, out.Status)
	assert.True(t, graph.IsUnavailable(out.Err))

	out = syncer.OnPostCreated(ctx, PostChanged{ID: 10, AuthorID: 1, Author: &UserSaved{ID: 1, Username: "alice"}})
	assert.Equal(t, graphsync.StatusFailed, out.Status)
}

func TestPanicBecomesFailedOutcome(t *testing.T) {
	syncer := NewSyncer(graphsync.NewService(nil))

	out := syncer.OnUserSaved(context.Background(), UserSaved{ID: 1})
	assert.Equal(t, graphsync.StatusFailed, out.Status)
	require.Error(t, out.Err)
	assert.Contains(t, out.Reason, "panic")
}

func TestFeedFollowsSocialGraph(t *testing.T) {
	ctx := context.Background()
	syncer, store := newTestSyncer()
	relations := social.NewService(store, social.Policy{})
	engine := analytics.NewEngine(store, analytics.Options{})

	require.True(t, syncer.OnUserSaved(ctx, UserSaved{ID: 1, Username: "alice"}).IsOK())
	require.True(t, syncer.OnUserSaved(ctx, UserSaved{ID: 2, Username: "bob"}).IsOK())
	require.True(t, syncer.OnPostCreated(ctx, PostChanged{ID: 10, AuthorID: 1, Content: "hi", CreatedAt: time.Now()}).IsOK())

	feed, err := engine.Feed(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, feed)

	ok, err := relations.Follow(ctx, 2, 1)
	require.NoError(t, err)
	require.True(t, ok)

	feed, err = engine.Feed(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, int64(10), feed[0].PostID)

	ok, err = relations.Unfollow(ctx, 2, 1)
	require.NoError(t, err)
	require.True(t, ok)

	feed, err = engine.Feed(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, feed)
}
