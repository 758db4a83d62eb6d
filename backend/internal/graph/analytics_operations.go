package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Traversal Queries
// ============================================================================

// SuggestFriends ranks friends-of-friends by the number of distinct mutual friends
func (s *Neo4jStore) SuggestFriends(ctx context.Context, userID int64, limit int) ([]UserScore, error) {
	query := `
		MATCH (u:UserNode {user_id: $user_id})-[:FRIEND_OF]->(f:UserNode)-[:FRIEND_OF]->(s:UserNode)
		WHERE s <> u AND NOT (u)-[:FRIEND_OF]->(s)
		WITH s, count(DISTINCT f) AS mutual
		RETURN s, mutual
		ORDER BY mutual DESC, s.user_id ASC
		LIMIT $limit
	`
	return s.scores(ctx, "suggest friends", query, map[string]any{
		"user_id": userID,
		"limit":   cypherLimit(limit),
	}, "s", "mutual")
}

// SuggestFollows ranks users sharing declared interests, excluding those already followed
func (s *Neo4jStore) SuggestFollows(ctx context.Context, userID int64, limit int) ([]UserScore, error) {
	query := `
		MATCH (u:UserNode {user_id: $user_id})-[:INTERESTED_IN]->(i:InterestNode)<-[:INTERESTED_IN]-(s:UserNode)
		WHERE s <> u AND NOT (u)-[:FOLLOWS]->(s)
		WITH s, count(DISTINCT i) AS shared
		RETURN s, shared
		ORDER BY shared DESC, s.user_id ASC
		LIMIT $limit
	`
	return s.scores(ctx, "suggest follows", query, map[string]any{
		"user_id": userID,
		"limit":   cypherLimit(limit),
	}, "s", "shared")
}

// CommonInterests is the intersection of two users' declared interests
func (s *Neo4jStore) CommonInterests(ctx context.Context, userA, userB int64) ([]InterestNode, error) {
	query := `
		MATCH (:UserNode {user_id: $user_a})-[:INTERESTED_IN]->(i:InterestNode)<-[:INTERESTED_IN]-(:UserNode {user_id: $user_b})
		RETURN DISTINCT i
		ORDER BY i.name ASC
	`
	return s.interests(ctx, "common interests", query, map[string]any{"user_a": userA, "user_b": userB})
}

// TrendingInterests ranks interests by the number of distinct posts tagged with them
func (s *Neo4jStore) TrendingInterests(ctx context.Context, limit int) ([]InterestCount, error) {
	query := `
		MATCH (p:PostNode)-[:TAGGED_WITH]->(i:InterestNode)
		WITH i, count(DISTINCT p) AS posts
		RETURN i, posts
		ORDER BY posts DESC, i.name ASC
		LIMIT $limit
	`

	out, err := s.read(ctx, "trending interests", func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := collect(ctx, tx, query, map[string]any{"limit": cypherLimit(limit)})
		if err != nil {
			return nil, err
		}
		counts := make([]InterestCount, 0, len(records))
		for _, record := range records {
			counts = append(counts, InterestCount{
				Interest: interestFromProps(getPropsFromRecord(record, "i")),
				Count:    getInt64FromRecord(record, "posts"),
			})
		}
		return counts, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]InterestCount), nil
}

// Influencers ranks users by distinct inbound FOLLOWS
func (s *Neo4jStore) Influencers(ctx context.Context, limit int) ([]UserScore, error) {
	query := `
		MATCH (f:UserNode)-[:FOLLOWS]->(u:UserNode)
		WITH u, count(DISTINCT f) AS followers
		RETURN u, followers
		ORDER BY followers DESC, u.user_id ASC
		LIMIT $limit
	`
	return s.scores(ctx, "influencers", query, map[string]any{"limit": cypherLimit(limit)}, "u", "followers")
}

// NetworkStats counts each relation in its own subquery so an empty
// category never nulls out the others. A missing user yields all zeros.
func (s *Neo4jStore) NetworkStats(ctx context.Context, userID int64) (NetworkStats, error) {
	query := `
		MATCH (u:UserNode {user_id: $user_id})
		CALL { WITH u OPTIONAL MATCH (u)-[:FOLLOWS]->(x:UserNode) RETURN count(DISTINCT x) AS following }
		CALL { WITH u OPTIONAL MATCH (u)<-[:FOLLOWS]-(x:UserNode) RETURN count(DISTINCT x) AS followers }
		CALL { WITH u OPTIONAL MATCH (u)-[:FRIEND_OF]-(x:UserNode) RETURN count(DISTINCT x) AS friends }
		CALL { WITH u OPTIONAL MATCH (u)-[:POSTED]->(x:PostNode) RETURN count(DISTINCT x) AS posts }
		CALL { WITH u OPTIONAL MATCH (u)-[:INTERESTED_IN]->(x:InterestNode) RETURN count(DISTINCT x) AS interests }
		RETURN following, followers, friends, posts, interests
	`

	out, err := s.read(ctx, "network stats", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{"user_id": userID})
		if err != nil || record == nil {
			return NetworkStats{}, err
		}
		return NetworkStats{
			Following: getInt64FromRecord(record, "following"),
			Followers: getInt64FromRecord(record, "followers"),
			Friends:   getInt64FromRecord(record, "friends"),
			Posts:     getInt64FromRecord(record, "posts"),
			Interests: getInt64FromRecord(record, "interests"),
		}, nil
	})
	if err != nil {
		return NetworkStats{}, err
	}
	return out.(NetworkStats), nil
}

// EgoNetwork collects the user's followers and followed users in one read.
// A missing user yields an empty network.
func (s *Neo4jStore) EgoNetwork(ctx context.Context, userID int64) (EgoNetwork, error) {
	query := `
		MATCH (u:UserNode {user_id: $user_id})
		OPTIONAL MATCH (f:UserNode)-[:FOLLOWS]->(u)
		WITH u, collect(DISTINCT f) AS followers
		OPTIONAL MATCH (u)-[:FOLLOWS]->(g:UserNode)
		RETURN u, followers, collect(DISTINCT g) AS following
	`

	out, err := s.read(ctx, "ego network", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{"user_id": userID})
		if err != nil || record == nil {
			return emptyEgoNetwork(), err
		}
		return buildEgoNetwork(
			userFromProps(getPropsFromRecord(record, "u")),
			usersFromList(record, "followers"),
			usersFromList(record, "following"),
		), nil
	})
	if err != nil {
		return EgoNetwork{}, err
	}
	return out.(EgoNetwork), nil
}

// Feed merges the user's own posts with posts of followed users, newest first
func (s *Neo4jStore) Feed(ctx context.Context, userID int64, limit int) ([]PostNode, error) {
	query := `
		MATCH (u:UserNode {user_id: $user_id})
		CALL {
			WITH u
			MATCH (u)-[:FOLLOWS]->(:UserNode)-[:POSTED]->(p:PostNode)
			RETURN p
			UNION
			WITH u
			MATCH (u)-[:POSTED]->(p:PostNode)
			RETURN p
		}
		WITH DISTINCT p
		OPTIONAL MATCH (a:UserNode)-[:POSTED]->(p)
		RETURN p, a.user_id AS author_id
		ORDER BY p.created_at DESC, p.post_id DESC
		LIMIT $limit
	`
	return s.posts(ctx, "feed", query, map[string]any{"user_id": userID, "limit": cypherLimit(limit)})
}

// UserPosts lists posts authored by the user, newest first
func (s *Neo4jStore) UserPosts(ctx context.Context, userID int64, limit int) ([]PostNode, error) {
	query := `
		MATCH (u:UserNode {user_id: $user_id})-[:POSTED]->(p:PostNode)
		RETURN DISTINCT p, u.user_id AS author_id
		ORDER BY p.created_at DESC, p.post_id DESC
		LIMIT $limit
	`
	return s.posts(ctx, "user posts", query, map[string]any{"user_id": userID, "limit": cypherLimit(limit)})
}

// AllPosts lists every post, newest first
func (s *Neo4jStore) AllPosts(ctx context.Context, limit int) ([]PostNode, error) {
	query := `
		MATCH (p:PostNode)
		OPTIONAL MATCH (a:UserNode)-[:POSTED]->(p)
		RETURN p, a.user_id AS author_id
		ORDER BY p.created_at DESC, p.post_id DESC
		LIMIT $limit
	`
	return s.posts(ctx, "all posts", query, map[string]any{"limit": cypherLimit(limit)})
}

// PostsByInterest lists posts tagged with the interest, newest first
func (s *Neo4jStore) PostsByInterest(ctx context.Context, name string, limit int) ([]PostNode, error) {
	query := `
		MATCH (p:PostNode)-[:TAGGED_WITH]->(:InterestNode {name: $name})
		WITH DISTINCT p
		OPTIONAL MATCH (a:UserNode)-[:POSTED]->(p)
		RETURN p, a.user_id AS author_id
		ORDER BY p.created_at DESC, p.post_id DESC
		LIMIT $limit
	`
	return s.posts(ctx, "posts by interest", query, map[string]any{
		"name":  normalizeName(name),
		"limit": cypherLimit(limit),
	})
}

// UserInterests lists the user's declared interests by name
func (s *Neo4jStore) UserInterests(ctx context.Context, userID int64) ([]InterestNode, error) {
	query := `
		MATCH (:UserNode {user_id: $user_id})-[:INTERESTED_IN]->(i:InterestNode)
		RETURN DISTINCT i
		ORDER BY i.name ASC
	`
	return s.interests(ctx, "user interests", query, map[string]any{"user_id": userID})
}

// PostLikeCount counts distinct users liking the post
func (s *Neo4jStore) PostLikeCount(ctx context.Context, postID int64) (int64, error) {
	query := `
		MATCH (u:UserNode)-[:LIKES]->(:PostNode {post_id: $post_id})
		RETURN count(DISTINCT u) AS likes
	`

	out, err := s.read(ctx, "post like count", func(tx neo4j.ManagedTransaction) (any, error) {
		record, err := first(ctx, tx, query, map[string]any{"post_id": postID})
		if err != nil || record == nil {
			return int64(0), err
		}
		return getInt64FromRecord(record, "likes"), nil
	})
	if err != nil {
		return 0, err
	}
	return out.(int64), nil
}

// HasLiked reports whether the user likes the post
func (s *Neo4jStore) HasLiked(ctx context.Context, userID, postID int64) (bool, error) {
	return s.HasEdge(ctx, Edge{From: UserRef(userID), Rel: RelLikes, To: PostRef(postID)})
}

// ============================================================================
// Query Runners
// ============================================================================

func (s *Neo4jStore) scores(ctx context.Context, op, query string, params map[string]any, userKey, scoreKey string) ([]UserScore, error) {
	out, err := s.read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := collect(ctx, tx, query, params)
		if err != nil {
			return nil, err
		}
		return scoresFromRecords(records, userKey, scoreKey), nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]UserScore), nil
}

func (s *Neo4jStore) posts(ctx context.Context, op, query string, params map[string]any) ([]PostNode, error) {
	out, err := s.read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := collect(ctx, tx, query, params)
		if err != nil {
			return nil, err
		}
		return postsFromRecords(records), nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]PostNode), nil
}

func (s *Neo4jStore) interests(ctx context.Context, op, query string, params map[string]any) ([]InterestNode, error) {
	out, err := s.read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := collect(ctx, tx, query, params)
		if err != nil {
			return nil, err
		}
		return interestsFromRecords(records, "i"), nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]InterestNode), nil
}
