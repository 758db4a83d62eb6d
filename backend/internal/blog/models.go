// Package blog is the relational source of truth for users, posts, comments,
// tags and likes. Every committed change is handed to Hooks for replication.
package blog

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"size:254" json:"email"`
	FirstName  string    `gorm:"size:150" json:"first_name"`
	LastName   string    `gorm:"size:150" json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
	Profile    *Profile  `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// Profile holds the optional bio; one per user
type Profile struct {
	ID     int64  `gorm:"primaryKey" json:"-"`
	UserID int64  `gorm:"uniqueIndex;not null" json:"user_id"`
	Bio    string `gorm:"type:text" json:"bio"`
}

// Bio returns the profile bio, or "" when the user has no profile
func (u *User) Bio() string {
	if u.Profile == nil {
		return ""
	}
	return u.Profile.Bio
}

type Post struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	AuthorID  int64     `gorm:"index;not null" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Likes     []User    `gorm:"many2many:post_likes" json:"-"`
}

type Comment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	AuthorID  int64     `gorm:"index;not null" json:"author_id"`
	PostID    int64     `gorm:"index;not null" json:"post_id"`
}

// Tag is a lower-cased hashtag name, stored once. Name size follows
// hashtag.MaxLength.
type Tag struct {
	ID   int64  `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

type PostTag struct {
	ID     int64 `gorm:"primaryKey"`
	PostID int64 `gorm:"uniqueIndex:uidx_post_tag;not null"`
	TagID  int64 `gorm:"uniqueIndex:uidx_post_tag;not null"`
}

// PostLike is a row of the post_likes join table behind Post.Likes
type PostLike struct {
	PostID int64 `gorm:"primaryKey" json:"post_id"`
	UserID int64 `gorm:"primaryKey" json:"user_id"`
}

func (PostLike) TableName() string { return "post_likes" }

// AutoMigrate creates or updates every blog table. post_likes is created
// through the Post.Likes association.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Profile{}, &Post{}, &Comment{}, &Tag{}, &PostTag{})
}
