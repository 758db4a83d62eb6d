package backfill

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialblog/backend/internal/blog"
	"socialblog/backend/internal/graph"
	"socialblog/backend/internal/graphsync"
	"socialblog/backend/internal/trigger"
	"socialblog/backend/pkg/database"
)

type fixture struct {
	repo  *blog.Repository
	store *graph.MemoryStore
	users []*blog.User
	posts []*blog.Post
}

// seed writes two users, two posts, a comment and a like straight to the
// relational store, bypassing hooks
func seed(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(&database.Config{
		Driver:       "sqlite",
		FilePath:     "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, blog.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	f := fixture{repo: blog.NewRepository(db), store: graph.NewMemoryStore()}
	for _, name := range []string{"alice", "bob"} {
		user := &blog.User{Username: name}
		require.NoError(t, f.repo.SaveUser(ctx, user))
		f.users = append(f.users, user)
	}
	for _, content := range []string{"#go rocks", "#go and #graphs"} {
		post, err := f.repo.CreatePost(ctx, f.users[0].ID, content)
		require.NoError(t, err)
		f.posts = append(f.posts, post)
	}
	_, err = f.repo.CreateComment(ctx, f.users[1].ID, f.posts[0].ID, "agreed")
	require.NoError(t, err)
	_, _, err = f.repo.ToggleLike(ctx, f.users[1].ID, f.posts[1].ID)
	require.NoError(t, err)
	return f
}

func (f fixture) runner() *Runner {
	return NewRunner(f.repo, trigger.NewSyncer(graphsync.NewService(f.store)), f.store)
}

func TestRun_ReplaysEverything(t *testing.T) {
	ctx := context.Background()
	f := seed(t)

	report, err := f.runner().Run(ctx, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Users)
	assert.Equal(t, int64(2), report.Posts)
	assert.Equal(t, int64(1), report.Comments)
	assert.Equal(t, int64(1), report.Likes)
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Skipped)

	trending, err := f.store.TrendingInterests(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, "go", trending[0].Interest.Name)
	assert.Equal(t, int64(2), trending[0].Count)

	liked, err := f.store.HasLiked(ctx, f.users[1].ID, f.posts[1].ID)
	require.NoError(t, err)
	assert.True(t, liked)

	again, err := f.runner().Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, report.Posts, again.Posts)
	count, err := f.store.PostLikeCount(ctx, f.posts[1].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRun_ClearRemovesStaleNodes(t *testing.T) {
	ctx := context.Background()
	f := seed(t)
	_, err := f.store.UpsertUser(ctx, graph.UserNode{UserID: 999, Username: "ghost"})
	require.NoError(t, err)

	_, err = f.runner().Run(ctx, Options{Clear: true})
	require.NoError(t, err)

	_, err = f.store.GetUser(ctx, 999)
	assert.True(t, graph.IsNotFound(err))
}

func TestRun_GraphDownCountsFailures(t *testing.T) {
	ctx := context.Background()
	f := seed(t)
	require.NoError(t, f.store.Close(ctx))

	report, err := f.runner().Run(ctx, Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Users)
	assert.Equal(t, int64(6), report.Failed)

	_, err = f.runner().Run(ctx, Options{Clear: true})
	assert.True(t, graph.IsUnavailable(err))
}

type failingSource struct {
	Source
}

func (failingSource) ListUsers(ctx context.Context) ([]blog.User, error) {
	return nil, errors.New("relational store down")
}

func TestRun_SourceErrorAborts(t *testing.T) {
	store := graph.NewMemoryStore()
	runner := NewRunner(failingSource{}, trigger.NewSyncer(graphsync.NewService(store)), store)

	_, err := runner.Run(context.Background(), Options{})
	assert.EqualError(t, err, "relational store down")
}
