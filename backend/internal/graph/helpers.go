package graph

import (
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

// getPropsFromRecord returns the property map of the node bound to key
func getPropsFromRecord(record *neo4j.Record, key string) map[string]any {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	if node, ok := val.(neo4j.Node); ok {
		return node.Props
	}
	return nil
}

func getStringProp(props map[string]any, key string) string {
	val, ok := props[key]
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64Prop(props map[string]any, key string) int64 {
	val, ok := props[key]
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func getTimeProp(props map[string]any, key string) time.Time {
	val, ok := props[key]
	if !ok || val == nil {
		return time.Time{}
	}
	switch t := val.(type) {
	case time.Time:
		return t.UTC()
	case neo4j.LocalDateTime:
		return t.Time().UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// ============================================================================
// Node Decoding
// ============================================================================

func userFromProps(props map[string]any) UserNode {
	return UserNode{
		UserID:     getInt64Prop(props, "user_id"),
		Username:   getStringProp(props, "username"),
		Email:      getStringProp(props, "email"),
		FirstName:  getStringProp(props, "first_name"),
		LastName:   getStringProp(props, "last_name"),
		Bio:        getStringProp(props, "bio"),
		DateJoined: getTimeProp(props, "date_joined"),
	}
}

func postFromProps(props map[string]any) PostNode {
	return PostNode{
		PostID:    getInt64Prop(props, "post_id"),
		Content:   getStringProp(props, "content"),
		CreatedAt: getTimeProp(props, "created_at"),
		UpdatedAt: getTimeProp(props, "updated_at"),
	}
}

func commentFromProps(props map[string]any) CommentNode {
	return CommentNode{
		CommentID: getInt64Prop(props, "comment_id"),
		Content:   getStringProp(props, "content"),
		CreatedAt: getTimeProp(props, "created_at"),
	}
}

func interestFromProps(props map[string]any) InterestNode {
	return InterestNode{
		Name:        getStringProp(props, "name"),
		Description: getStringProp(props, "description"),
		CreatedAt:   getTimeProp(props, "created_at"),
	}
}

// postFromRecord decodes a "p" node plus an optional "author_id" column
func postFromRecord(record *neo4j.Record) PostNode {
	post := postFromProps(getPropsFromRecord(record, "p"))
	post.AuthorID = getInt64FromRecord(record, "author_id")
	return post
}

func usersFromRecords(records []*neo4j.Record, key string) []UserNode {
	users := make([]UserNode, 0, len(records))
	for _, record := range records {
		users = append(users, userFromProps(getPropsFromRecord(record, key)))
	}
	return users
}

func postsFromRecords(records []*neo4j.Record) []PostNode {
	posts := make([]PostNode, 0, len(records))
	for _, record := range records {
		posts = append(posts, postFromRecord(record))
	}
	return posts
}

func interestsFromRecords(records []*neo4j.Record, key string) []InterestNode {
	interests := make([]InterestNode, 0, len(records))
	for _, record := range records {
		interests = append(interests, interestFromProps(getPropsFromRecord(record, key)))
	}
	return interests
}

func scoresFromRecords(records []*neo4j.Record, userKey, scoreKey string) []UserScore {
	scores := make([]UserScore, 0, len(records))
	for _, record := range records {
		scores = append(scores, UserScore{
			User:  userFromProps(getPropsFromRecord(record, userKey)),
			Score: getInt64FromRecord(record, scoreKey),
		})
	}
	return scores
}

// usersFromList decodes a collect()ed list of user nodes
func usersFromList(record *neo4j.Record, key string) []UserNode {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []UserNode{}
	}
	list, _ := val.([]any)
	users := make([]UserNode, 0, len(list))
	for _, item := range list {
		if node, ok := item.(neo4j.Node); ok {
			users = append(users, userFromProps(node.Props))
		}
	}
	return users
}

// ============================================================================
// Result Assembly
// ============================================================================

// emptyEgoNetwork is returned for a missing center user
func emptyEgoNetwork() EgoNetwork {
	return EgoNetwork{Nodes: []NetworkNode{}, Edges: []NetworkEdge{}}
}

// buildEgoNetwork merges followers and followed users around center.
// Neighbours are ordered by user id; follower edges come before following edges.
func buildEgoNetwork(center UserNode, followers, following []UserNode) EgoNetwork {
	net := emptyEgoNetwork()
	net.Nodes = append(net.Nodes, NetworkNode{User: center, Level: 0})

	index := map[int64]int{center.UserID: 0}
	node := func(user UserNode) *NetworkNode {
		if i, ok := index[user.UserID]; ok {
			return &net.Nodes[i]
		}
		index[user.UserID] = len(net.Nodes)
		net.Nodes = append(net.Nodes, NetworkNode{User: user, Level: 1})
		return &net.Nodes[len(net.Nodes)-1]
	}

	followers = sortedUsers(followers)
	following = sortedUsers(following)
	for _, user := range followers {
		node(user).FollowsYou = true
		net.Edges = append(net.Edges, NetworkEdge{From: user.UserID, To: center.UserID})
	}
	for _, user := range following {
		node(user).Followed = true
		net.Edges = append(net.Edges, NetworkEdge{From: center.UserID, To: user.UserID})
	}

	sort.SliceStable(net.Nodes[1:], func(i, j int) bool {
		return net.Nodes[1+i].User.UserID < net.Nodes[1+j].User.UserID
	})
	net.Stats = EgoStats{
		Followers:  int64(len(followers)),
		Following:  int64(len(following)),
		TotalNodes: int64(len(net.Nodes)),
	}
	return net
}

func sortedUsers(users []UserNode) []UserNode {
	out := make([]UserNode, len(users))
	copy(out, users)
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
