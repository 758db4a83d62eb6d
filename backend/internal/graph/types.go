package graph

import (
	"strconv"
	"time"
)

// ============================================================================
// Node Types
// ============================================================================

// NodeKind names a node label in the graph
type NodeKind string

const (
	KindUser     NodeKind = "UserNode"
	KindPost     NodeKind = "PostNode"
	KindComment  NodeKind = "CommentNode"
	KindInterest NodeKind = "InterestNode"
)

// keyProperty is the unique-indexed property that identifies a node of this kind
func (k NodeKind) keyProperty() string {
	switch k {
	case KindUser:
		return "user_id"
	case KindPost:
		return "post_id"
	case KindComment:
		return "comment_id"
	case KindInterest:
		return "name"
	}
	return ""
}

// UserNode mirrors a relational user
type UserNode struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Bio        string    `json:"bio"`
	DateJoined time.Time `json:"date_joined"`
}

// PostNode mirrors a relational post. AuthorID is read from the POSTED edge.
type PostNode struct {
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentNode mirrors a relational comment
type CommentNode struct {
	CommentID int64     `json:"comment_id"`
	AuthorID  int64     `json:"author_id,omitempty"`
	PostID    int64     `json:"post_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// InterestNode is a hashtag or a declared interest, keyed by lower-cased name
type InterestNode struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ============================================================================
// Edge Types
// ============================================================================

// RelType is a typed, directed relation between two nodes
type RelType string

const (
	RelPosted       RelType = "POSTED"        // UserNode -> PostNode
	RelCommented    RelType = "COMMENTED"     // UserNode -> CommentNode
	RelLikes        RelType = "LIKES"         // UserNode -> PostNode
	RelFollows      RelType = "FOLLOWS"       // UserNode -> UserNode
	RelFriendOf     RelType = "FRIEND_OF"     // UserNode <-> UserNode, always paired
	RelInterestedIn RelType = "INTERESTED_IN" // UserNode -> InterestNode
	RelTaggedWith   RelType = "TAGGED_WITH"   // PostNode -> InterestNode
	RelCommentOn    RelType = "COMMENT_ON"    // CommentNode -> PostNode
)

// endpoints lists the node kinds a relation connects
var endpoints = map[RelType][2]NodeKind{
	RelPosted:       {KindUser, KindPost},
	RelCommented:    {KindUser, KindComment},
	RelLikes:        {KindUser, KindPost},
	RelFollows:      {KindUser, KindUser},
	RelFriendOf:     {KindUser, KindUser},
	RelInterestedIn: {KindUser, KindInterest},
	RelTaggedWith:   {KindPost, KindInterest},
	RelCommentOn:    {KindComment, KindPost},
}

// Direction selects which end of an edge a neighbour lookup follows
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// Ref identifies a node. Interests are keyed by Name, all other kinds by ID.
type Ref struct {
	Kind NodeKind
	ID   int64
	Name string
}

func UserRef(id int64) Ref        { return Ref{Kind: KindUser, ID: id} }
func PostRef(id int64) Ref        { return Ref{Kind: KindPost, ID: id} }
func CommentRef(id int64) Ref     { return Ref{Kind: KindComment, ID: id} }
func InterestRef(name string) Ref { return Ref{Kind: KindInterest, Name: name} }

// key returns the value of the node's unique property
func (r Ref) key() any {
	if r.Kind == KindInterest {
		return r.Name
	}
	return r.ID
}

func (r Ref) String() string {
	if r.Kind == KindInterest {
		return string(r.Kind) + ":" + r.Name
	}
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}

// Edge is a directed typed relation
type Edge struct {
	From Ref
	Rel  RelType
	To   Ref
}

// ============================================================================
// Traversal Results
// ============================================================================

// UserScore pairs a user with a ranking score (common friends, shared interests, followers)
type UserScore struct {
	User  UserNode `json:"user"`
	Score int64    `json:"score"`
}

// InterestCount pairs an interest with the number of distinct posts tagged with it
type InterestCount struct {
	Interest InterestNode `json:"interest"`
	Count    int64        `json:"count"`
}

// NetworkStats holds independent per-user relation counts
type NetworkStats struct {
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
	Friends   int64 `json:"friends"`
	Posts     int64 `json:"posts"`
	Interests int64 `json:"interests"`
}

// EgoNetwork is a user's FOLLOWS neighbourhood in both directions.
// Nodes start with the center user; each user appears once.
type EgoNetwork struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
	Stats EgoStats      `json:"stats"`
}

// NetworkNode is a user in an ego network. Level 0 is the center, 1 a neighbour.
type NetworkNode struct {
	User       UserNode `json:"user"`
	Level      int      `json:"level"`
	FollowsYou bool     `json:"follows_you"`
	Followed   bool     `json:"followed"`
}

// NetworkEdge is a FOLLOWS edge between two user ids
type NetworkEdge struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type EgoStats struct {
	Followers  int64 `json:"followers"`
	Following  int64 `json:"following"`
	TotalNodes int64 `json:"total_nodes"`
}
