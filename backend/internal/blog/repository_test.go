package blog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"socialblog/backend/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&database.Config{
		Driver:       "sqlite",
		FilePath:     "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// newTestRepository returns a repository whose clock advances one minute per call
func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo := NewRepository(newTestDB(t))
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return repo
}

func saveUser(t *testing.T, repo *Repository, username string) *User {
	t.Helper()
	user := &User{Username: username, Email: username + "@example.test"}
	require.NoError(t, repo.SaveUser(context.Background(), user))
	require.NotZero(t, user.ID)
	return user
}

func tagNames(tags []Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

func TestSaveUser_UpdateKeepsDateJoined(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	user := saveUser(t, repo, "alice")
	joined := user.DateJoined

	update := &User{ID: user.ID, Username: "alice", Email: "new@example.test", Profile: &Profile{Bio: "hello"}}
	require.NoError(t, repo.SaveUser(ctx, update))

	got, err := repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.test", got.Email)
	assert.True(t, joined.Equal(got.DateJoined))
	assert.Equal(t, "hello", got.Bio())

	update.Profile = &Profile{Bio: "changed"}
	require.NoError(t, repo.SaveUser(ctx, update))
	got, err = repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Bio())
}

func TestSaveUser_Validation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	saveUser(t, repo, "alice")

	assert.ErrorIs(t, repo.SaveUser(ctx, &User{Username: "  "}), ErrEmptyUsername)
	assert.ErrorIs(t, repo.SaveUser(ctx, &User{Username: "alice"}), ErrUsernameTaken)

	_, err := repo.GetUser(ctx, 404)
	assert.True(t, IsNotFound(err))
}

func TestCreatePost_DerivesTags(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	alice := saveUser(t, repo, "alice")

	post, err := repo.CreatePost(ctx, alice.ID, "learning #Go with #go and #Graphs")
	require.NoError(t, err)
	require.NotNil(t, post.Author)
	assert.Equal(t, "alice", post.Author.Username)

	tags, err := repo.TagsOf(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "graphs"}, tagNames(tags))

	_, err = repo.CreatePost(ctx, 404, "orphan")
	assert.True(t, IsNotFound(err))

	_, err = repo.CreatePost(ctx, alice.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestCreatePost_UnicodeAndOverlongTags(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	alice := saveUser(t, repo, "alice")

	long := strings.Repeat("a", 150)
	post, err := repo.CreatePost(ctx, alice.ID, "Aprendiendo #Programación y #café #"+long)
	require.NoError(t, err)
	assert.Contains(t, post.Content, long)

	tags, err := repo.TagsOf(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"programación", "café"}, tagNames(tags))

	for _, tag := range tags {
		assert.LessOrEqual(t, len([]rune(tag.Name)), 100)
	}
}

func TestUpdatePost_RederivesTags(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	alice := saveUser(t, repo, "alice")

	first, err := repo.CreatePost(ctx, alice.ID, "#go #rust")
	require.NoError(t, err)
	_, err = repo.CreatePost(ctx, alice.ID, "more #go")
	require.NoError(t, err)

	updated, err := repo.UpdatePost(ctx, first.ID, "just #rust")
	require.NoError(t, err)
	assert.Equal(t, "just #rust", updated.Content)

	tags, err := repo.TagsOf(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"rust"}, tagNames(tags))

	var tagRows int64
	require.NoError(t, repo.db.Model(&Tag{}).Count(&tagRows).Error)
	assert.Equal(t, int64(2), tagRows)

	_, err = repo.UpdatePost(ctx, 404, "x")
	assert.True(t, IsNotFound(err))
}

func TestDeletePost_Cascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	alice := saveUser(t, repo, "alice")
	bob := saveUser(t, repo, "bob")

	post, err := repo.CreatePost(ctx, alice.ID, "#hello")
	require.NoError(t, err)
	comment, err := repo.CreateComment(ctx, bob.ID, post.ID, "hi")
	require.NoError(t, err)
	_, _, err = repo.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)

	deleted, comments, err := repo.DeletePost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, deleted.ID)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)

	_, err = repo.GetPost(ctx, post.ID)
	assert.True(t, IsNotFound(err))
	_, err = repo.GetComment(ctx, comment.ID)
	assert.True(t, IsNotFound(err))

	likes, err := repo.ListLikes(ctx)
	require.NoError(t, err)
	assert.Empty(t, likes)
	tags, err := repo.TagsOf(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, _, err = repo.DeletePost(ctx, post.ID)
	assert.True(t, IsNotFound(err))
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	alice := saveUser(t, repo, "alice")
	post, err := repo.CreatePost(ctx, alice.ID, "post")
	require.NoError(t, err)

	_, err = repo.CreateComment(ctx, alice.ID, 404, "x")
	assert.True(t, IsNotFound(err))
	_, err = repo.CreateComment(ctx, 404, post.ID, "x")
	assert.True(t, IsNotFound(err))

	first, err := repo.CreateComment(ctx, alice.ID, post.ID, "first")
	require.NoError(t, err)
	second, err := repo.CreateComment(ctx, alice.ID, post.ID, "second")
	require.NoError(t, err)

	comments, err := repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)

	removed, err := repo.DeleteComment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", removed.Content)

	all, err := repo.ListAllComments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	alice := saveUser(t, repo, "alice")
	bob := saveUser(t, repo, "bob")
	post, err := repo.CreatePost(ctx, alice.ID, "post")
	require.NoError(t, err)

	liked, count, err := repo.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	liked, count, err = repo.ToggleLike(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(2), count)

	users, err := repo.LikesOf(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, alice.ID, users[0].ID)

	liked, count, err = repo.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(1), count)

	_, _, err = repo.ToggleLike(ctx, bob.ID, 404)
	assert.True(t, IsNotFound(err))
}

func TestListPosts_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	alice := saveUser(t, repo, "alice")

	var ids []int64
	for _, content := range []string{"one", "two", "three"} {
		post, err := repo.CreatePost(ctx, alice.ID, content)
		require.NoError(t, err)
		ids = append(ids, post.ID)
	}

	posts, err := repo.ListPosts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, ids[2], posts[0].ID)
	assert.Equal(t, ids[1], posts[1].ID)

	all, err := repo.ListPosts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
