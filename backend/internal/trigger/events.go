package trigger

import (
	"time"

	"socialblog/backend/internal/graph"
)

// UserSaved is fired after a user or its profile is committed
type UserSaved struct {
	ID         int64
	Username   string
	Email      string
	FirstName  string
	LastName   string
	Bio        string
	DateJoined time.Time
}

func (e UserSaved) node() graph.UserNode {
	return graph.UserNode{
		UserID:     e.ID,
		Username:   e.Username,
		Email:      e.Email,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Bio:        e.Bio,
		DateJoined: e.DateJoined,
	}
}

// PostChanged is fired after a post is created, updated or deleted.
// Author is optional; when set on creation the author node is upserted first.
type PostChanged struct {
	ID        int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
	Author    *UserSaved
}

// CommentChanged is fired after a comment is created or deleted
type CommentChanged struct {
	ID        int64
	AuthorID  int64
	PostID    int64
	Content   string
	CreatedAt time.Time
}

// LikeToggled carries the like state after the toggle committed
type LikeToggled struct {
	UserID int64
	PostID int64
	Liked  bool
}
