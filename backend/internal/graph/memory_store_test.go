package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return store
}

func seedUsers(t *testing.T, store Store, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		_, err := store.UpsertUser(context.Background(), UserNode{
			UserID:   id,
			Username: "user" + string(rune('a'+id)),
			Email:    "u@example.com",
		})
		require.NoError(t, err)
	}
}

func TestMemoryStore_UpsertUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)

	first, err := store.UpsertUser(ctx, UserNode{UserID: 1, Username: "alice", Email: "old@example.com"})
	require.NoError(t, err)
	second, err := store.UpsertUser(ctx, UserNode{UserID: 1, Username: "alice", Email: "new@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", second.Email)
	assert.Equal(t, first.DateJoined, second.DateJoined)
	assert.Len(t, store.users, 1)

	got, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
}

func TestMemoryStore_UpsertUserUsernameConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)

	_, err := store.UpsertUser(ctx, UserNode{UserID: 1, Username: "alice"})
	require.NoError(t, err)
	_, err = store.UpsertUser(ctx, UserNode{UserID: 2, Username: "alice"})
	assert.True(t, IsConstraint(err))
	assert.Contains(t, err.Error(), "username=alice")
	_, err = store.GetUser(ctx, 2)
	assert.True(t, IsNotFound(err))

	// Renaming frees the old username.
	_, err = store.UpsertUser(ctx, UserNode{UserID: 1, Username: "alicia"})
	require.NoError(t, err)
	_, err = store.UpsertUser(ctx, UserNode{UserID: 2, Username: "alice"})
	assert.NoError(t, err)
}

func TestMemoryStore_CreatePostRequiresAuthor(t *testing.T) {
	store := newTestMemoryStore(t)

	_, err := store.CreatePost(context.Background(), 99, PostNode{PostID: 1, Content: "hi"}, nil)
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_PostTagsCaseFoldAndReplace(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1)

	post, err := store.CreatePost(ctx, 1, PostNode{PostID: 10, Content: "hello #Foo #foo world"}, []string{"Foo", "foo"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.AuthorID)

	tags, err := store.PostTags(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "foo", tags[0].Name)
	assert.Len(t, store.interests, 1)

	_, err = store.UpdatePost(ctx, PostNode{PostID: 10, Content: "no tags"}, nil)
	require.NoError(t, err)

	tags, err = store.PostTags(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tags)

	// The interest node survives; only the edge is dropped.
	_, err = store.GetInterest(ctx, "FOO")
	assert.NoError(t, err)
}

func TestMemoryStore_DeletePostDetachesEdges(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2)

	_, err := store.CreatePost(ctx, 1, PostNode{PostID: 10, Content: "x"}, []string{"go"})
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, 2, 10, CommentNode{CommentID: 100, Content: "nice"})
	require.NoError(t, err)
	ok, err := store.Connect(ctx, Edge{From: UserRef(2), Rel: RelLikes, To: PostRef(10)})
	require.NoError(t, err)
	require.True(t, ok)

	deleted, err := store.DeletePost(ctx, 10)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.GetPost(ctx, 10)
	assert.True(t, IsNotFound(err))

	trending, err := store.TrendingInterests(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, trending)

	liked, err := store.HasLiked(ctx, 2, 10)
	require.NoError(t, err)
	assert.False(t, liked)

	comment, err := store.GetComment(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, comment.PostID)

	deleted, err = store.DeletePost(ctx, 10)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMemoryStore_ConnectIsSetLike(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2)

	edge := Edge{From: UserRef(1), Rel: RelFollows, To: UserRef(2)}
	for i := 0; i < 2; i++ {
		ok, err := store.Connect(ctx, edge)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	followers, err := store.Neighbors(ctx, 2, RelFollows, Incoming)
	require.NoError(t, err)
	assert.Len(t, followers, 1)

	stats, err := store.NetworkStats(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Followers)
}

func TestMemoryStore_ConnectMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1)

	ok, err := store.Connect(ctx, Edge{From: UserRef(1), Rel: RelFollows, To: UserRef(2)})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Disconnect(ctx, Edge{From: UserRef(1), Rel: RelFollows, To: UserRef(1)})
	require.NoError(t, err)
	assert.True(t, ok, "absent edge between existing nodes is not a failure")
}

func TestMemoryStore_ConnectRejectsWrongEndpointKinds(t *testing.T) {
	store := newTestMemoryStore(t)

	_, err := store.Connect(context.Background(), Edge{From: PostRef(1), Rel: RelFollows, To: UserRef(2)})
	assert.Error(t, err)
}

func TestMemoryStore_PairIsBidirectional(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2)

	ok, err := store.ConnectPair(ctx, 1, 2, RelFriendOf)
	require.NoError(t, err)
	require.True(t, ok)

	for _, e := range []Edge{
		{From: UserRef(1), Rel: RelFriendOf, To: UserRef(2)},
		{From: UserRef(2), Rel: RelFriendOf, To: UserRef(1)},
	} {
		has, err := store.HasEdge(ctx, e)
		require.NoError(t, err)
		assert.True(t, has, e.From.String())
	}

	ok, err = store.DisconnectPair(ctx, 2, 1, RelFriendOf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, store.out.list(UserRef(1), RelFriendOf))
	assert.Empty(t, store.out.list(UserRef(2), RelFriendOf))
}

func TestMemoryStore_PairWithMissingUserCreatesNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1)

	ok, err := store.ConnectPair(ctx, 1, 2, RelFriendOf)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.out.list(UserRef(1), RelFriendOf))
}

func TestMemoryStore_SuggestFriends(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2, 3, 4, 5, 6)

	// 1 is friends with 2 and 3; 4 is a friend of both, 5 only of 2, 6 of 3.
	for _, pair := range [][2]int64{{1, 2}, {1, 3}, {2, 4}, {3, 4}, {2, 5}, {3, 6}} {
		_, err := store.ConnectPair(ctx, pair[0], pair[1], RelFriendOf)
		require.NoError(t, err)
	}

	suggestions, err := store.SuggestFriends(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, int64(4), suggestions[0].User.UserID)
	assert.Equal(t, int64(2), suggestions[0].Score)
	assert.Equal(t, int64(5), suggestions[1].User.UserID, "ties broken by ascending id")
	assert.Equal(t, int64(6), suggestions[2].User.UserID)

	limited, err := store.SuggestFriends(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryStore_SuggestFriendsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1)

	for _, id := range []int64{1, 42} {
		suggestions, err := store.SuggestFriends(ctx, id, 10)
		require.NoError(t, err)
		assert.NotNil(t, suggestions)
		assert.Empty(t, suggestions)
	}
}

func TestMemoryStore_SuggestFollowsAndCommonInterests(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2, 3)

	for _, name := range []string{"go", "rust", "chess"} {
		_, err := store.UpsertInterest(ctx, name, "")
		require.NoError(t, err)
	}
	declare := func(user int64, names ...string) {
		for _, name := range names {
			_, err := store.Connect(ctx, Edge{From: UserRef(user), Rel: RelInterestedIn, To: InterestRef(name)})
			require.NoError(t, err)
		}
	}
	declare(1, "go", "rust")
	declare(2, "go", "rust", "chess")
	declare(3, "go")

	suggestions, err := store.SuggestFollows(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, int64(2), suggestions[0].User.UserID)
	assert.Equal(t, int64(2), suggestions[0].Score)

	_, err = store.Connect(ctx, Edge{From: UserRef(1), Rel: RelFollows, To: UserRef(2)})
	require.NoError(t, err)
	suggestions, err = store.SuggestFollows(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, int64(3), suggestions[0].User.UserID)

	common, err := store.CommonInterests(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, common, 2)
	assert.Equal(t, "go", common[0].Name)
	assert.Equal(t, "rust", common[1].Name)
}

func TestMemoryStore_TrendingInterests(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1)

	for id, tags := range map[int64][]string{10: {"a"}, 11: {"a", "b"}, 12: {"a"}} {
		_, err := store.CreatePost(ctx, 1, PostNode{PostID: id}, tags)
		require.NoError(t, err)
	}

	top, err := store.TrendingInterests(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "a", top[0].Interest.Name)
	assert.Equal(t, int64(3), top[0].Count)
}

func TestMemoryStore_Influencers(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2, 3, 4)

	for _, f := range [][2]int64{{1, 3}, {2, 3}, {4, 2}, {1, 2}, {3, 1}} {
		_, err := store.Connect(ctx, Edge{From: UserRef(f[0]), Rel: RelFollows, To: UserRef(f[1])})
		require.NoError(t, err)
	}

	ranked, err := store.Influencers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, int64(2), ranked[0].User.UserID)
	assert.Equal(t, int64(3), ranked[1].User.UserID)
	assert.Equal(t, int64(1), ranked[2].User.UserID)
}

func TestMemoryStore_NetworkStatsZero(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1)

	stats, err := store.NetworkStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, NetworkStats{}, stats)

	stats, err = store.NetworkStats(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, NetworkStats{}, stats)
}

func TestMemoryStore_NetworkStatsIndependentCounts(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2, 3)

	_, err := store.CreatePost(ctx, 1, PostNode{PostID: 10}, nil)
	require.NoError(t, err)
	_, err = store.ConnectPair(ctx, 1, 3, RelFriendOf)
	require.NoError(t, err)
	_, err = store.Connect(ctx, Edge{From: UserRef(2), Rel: RelFollows, To: UserRef(1)})
	require.NoError(t, err)

	stats, err := store.NetworkStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, NetworkStats{Followers: 1, Friends: 1, Posts: 1}, stats)
}

func TestMemoryStore_EgoNetworkMissingUser(t *testing.T) {
	store := newTestMemoryStore(t)

	net, err := store.EgoNetwork(context.Background(), 404)
	require.NoError(t, err)
	assert.Empty(t, net.Nodes)
	assert.Empty(t, net.Edges)
	assert.NotNil(t, net.Nodes)
	assert.Equal(t, EgoStats{}, net.Stats)
}

func TestMemoryStore_EgoNetworkMutualFollowIsOneNode(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2, 3, 4)

	follow := func(from, to int64) {
		_, err := store.Connect(ctx, Edge{From: UserRef(from), Rel: RelFollows, To: UserRef(to)})
		require.NoError(t, err)
	}
	follow(1, 2)
	follow(2, 1)
	follow(3, 1)
	follow(1, 4)
	follow(3, 4)

	net, err := store.EgoNetwork(ctx, 1)
	require.NoError(t, err)

	ids := make([]int64, 0, len(net.Nodes))
	for _, node := range net.Nodes {
		ids = append(ids, node.User.UserID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
	assert.Equal(t, 0, net.Nodes[0].Level)

	assert.Equal(t, NetworkNode{User: net.Nodes[1].User, Level: 1, FollowsYou: true, Followed: true}, net.Nodes[1])
	assert.True(t, net.Nodes[2].FollowsYou)
	assert.False(t, net.Nodes[2].Followed)
	assert.True(t, net.Nodes[3].Followed)

	assert.Equal(t, []NetworkEdge{
		{From: 2, To: 1},
		{From: 3, To: 1},
		{From: 1, To: 2},
		{From: 1, To: 4},
	}, net.Edges)
	assert.Equal(t, EgoStats{Followers: 2, Following: 2, TotalNodes: 4}, net.Stats)
}

func TestMemoryStore_FeedFollowAndUnfollow(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2)

	_, err := store.CreatePost(ctx, 1, PostNode{PostID: 10, Content: "Learning #rust today"}, []string{"rust"})
	require.NoError(t, err)

	follow := Edge{From: UserRef(2), Rel: RelFollows, To: UserRef(1)}
	_, err = store.Connect(ctx, follow)
	require.NoError(t, err)

	feed, err := store.Feed(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, int64(10), feed[0].PostID)
	assert.Equal(t, int64(1), feed[0].AuthorID)

	_, err = store.Disconnect(ctx, follow)
	require.NoError(t, err)

	feed, err = store.Feed(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestMemoryStore_FeedOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1, 2)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.CreatePost(ctx, 1, PostNode{PostID: 1, CreatedAt: at}, nil)
	require.NoError(t, err)
	_, err = store.CreatePost(ctx, 2, PostNode{PostID: 2, CreatedAt: at}, nil)
	require.NoError(t, err)
	_, err = store.CreatePost(ctx, 2, PostNode{PostID: 3, CreatedAt: at.Add(time.Hour)}, nil)
	require.NoError(t, err)
	_, err = store.Connect(ctx, Edge{From: UserRef(1), Rel: RelFollows, To: UserRef(2)})
	require.NoError(t, err)

	feed, err := store.Feed(ctx, 1, 10)
	require.NoError(t, err)
	ids := make([]int64, 0, len(feed))
	for _, p := range feed {
		ids = append(ids, p.PostID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
}

func TestMemoryStore_ClosedIsUnavailable(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(t)
	seedUsers(t, store, 1)
	require.NoError(t, store.Close(ctx))

	_, err := store.GetUser(ctx, 1)
	assert.True(t, IsUnavailable(err))
	_, err = store.Feed(ctx, 1, 10)
	assert.True(t, IsUnavailable(err))

	store.Reopen()
	_, err = store.GetUser(ctx, 1)
	assert.NoError(t, err)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, normalizeTags([]string{"Foo", " bar ", "FOO", ""}))
	assert.Empty(t, normalizeTags(nil))
}
