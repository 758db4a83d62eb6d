package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"socialblog/backend/internal/hashtag"
	apperrors "socialblog/backend/pkg/errors"
)

var (
	ErrEmptyContent  = errors.New("content must not be empty")
	ErrEmptyUsername = errors.New("username must not be empty")
	ErrUsernameTaken = errors.New("username already taken")
	ErrNotAuthor     = errors.New("only the author may change this")
)

// IsNotFound reports whether err is a missing relational row
func IsNotFound(err error) bool {
	var target *apperrors.ErrRecordNotFound
	return errors.As(err, &target)
}

// Repository is the gorm-backed blog store
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a repository over an open, migrated connection
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func lookupErr(entity string, id int64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewRecordNotFound(entity, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}

// ============================================================================
// Users
// ============================================================================

// SaveUser inserts or updates user by ID, together with its profile when set.
// DateJoined is kept from the stored row when the caller leaves it zero.
func (r *Repository) SaveUser(ctx context.Context, user *User) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return ErrEmptyUsername
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if user.ID != 0 && user.DateJoined.IsZero() {
			var existing User
			err := tx.Select("date_joined").First(&existing, user.ID).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			user.DateJoined = existing.DateJoined
		}
		if user.DateJoined.IsZero() {
			user.DateJoined = r.now()
		}

		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return err
		}

		if user.Profile != nil {
			user.Profile.UserID = user.ID
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"bio"}),
			}).Create(user.Profile).Error
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, lookupErr("user", id, err)
	}
	return &user, nil
}

// ListUsers returns every user with its profile, by ID
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Preload("Profile").Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ============================================================================
// Posts
// ============================================================================

// CreatePost inserts the post and its hashtag rows in one transaction
func (r *Repository) CreatePost(ctx context.Context, authorID int64, content string) (*Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	var post Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author User
		if err := tx.Preload("Profile").First(&author, authorID).Error; err != nil {
			return lookupErr("user", authorID, err)
		}

		now := r.now()
		post = Post{Content: content, AuthorID: authorID, CreatedAt: now, UpdatedAt: now}
		if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
			return err
		}
		post.Author = &author

		return setTags(tx, post.ID, hashtag.Extract(content))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return &post, nil
}

// UpdatePost replaces the content and re-derives the post's tag rows from scratch
func (r *Repository) UpdatePost(ctx context.Context, postID int64, content string) (*Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	var post Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, postID).Error; err != nil {
			return lookupErr("post", postID, err)
		}

		post.Content = content
		post.UpdatedAt = r.now()
		if err := tx.Model(&post).Select("content", "updated_at").Updates(&post).Error; err != nil {
			return err
		}

		if err := tx.Where("post_id = ?", postID).Delete(&PostTag{}).Error; err != nil {
			return err
		}
		return setTags(tx, postID, hashtag.Extract(content))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return &post, nil
}

// setTags links postID to one Tag row per name, creating missing tags
func setTags(tx *gorm.DB, postID int64, names []string) error {
	for _, name := range names {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&Tag{Name: name}).Error
		if err != nil {
			return fmt.Errorf("failed to create tag %q: %w", name, err)
		}

		var tag Tag
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return fmt.Errorf("failed to load tag %q: %w", name, err)
		}

		err = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&PostTag{PostID: postID, TagID: tag.ID}).Error
		if err != nil {
			return fmt.Errorf("failed to tag post %d: %w", postID, err)
		}
	}
	return nil
}

// DeletePost removes the post with its comments, tag rows and likes. The
// deleted comments are returned so their removal can be replicated too.
func (r *Repository) DeletePost(ctx context.Context, postID int64) (*Post, []Comment, error) {
	var (
		post     Post
		comments []Comment
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, postID).Error; err != nil {
			return lookupErr("post", postID, err)
		}
		if err := tx.Where("post_id = ?", postID).Order("id").Find(&comments).Error; err != nil {
			return err
		}

		for _, model := range []any{&Comment{}, &PostTag{}, &PostLike{}} {
			if err := tx.Where("post_id = ?", postID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Post{}, postID).Error
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to delete post: %w", err)
	}
	return &post, comments, nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (*Post, error) {
	var post Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, lookupErr("post", id, err)
	}
	return &post, nil
}

// ListPosts returns posts newest first. A non-positive limit returns all of them.
func (r *Repository) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	query := r.db.WithContext(ctx).Preload("Author").Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// TagsOf returns the post's tags by name
func (r *Repository) TagsOf(ctx context.Context, postID int64) ([]Tag, error) {
	var tags []Tag
	err := r.db.WithContext(ctx).
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Where("post_tags.post_id = ?", postID).
		Order("tags.name").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tags of post %d: %w", postID, err)
	}
	return tags, nil
}

// ============================================================================
// Comments
// ============================================================================

func (r *Repository) CreateComment(ctx context.Context, authorID, postID int64, content string) (*Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	var comment Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&User{}, authorID).Error; err != nil {
			return lookupErr("user", authorID, err)
		}
		if err := tx.Select("id").First(&Post{}, postID).Error; err != nil {
			return lookupErr("post", postID, err)
		}

		comment = Comment{Content: content, AuthorID: authorID, PostID: postID, CreatedAt: r.now()}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &comment, nil
}

func (r *Repository) GetComment(ctx context.Context, id int64) (*Comment, error) {
	var comment Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, lookupErr("comment", id, err)
	}
	return &comment, nil
}

// DeleteComment removes the comment and returns it as it was
func (r *Repository) DeleteComment(ctx context.Context, id int64) (*Comment, error) {
	var comment Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, id).Error; err != nil {
			return lookupErr("comment", id, err)
		}
		return tx.Delete(&Comment{}, id).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}
	return &comment, nil
}

// ListComments returns a post's comments oldest first
func (r *Repository) ListComments(ctx context.Context, postID int64) ([]Comment, error) {
	var comments []Comment
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at, id").Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// ListAllComments returns every comment by ID
func (r *Repository) ListAllComments(ctx context.Context) ([]Comment, error) {
	var comments []Comment
	if err := r.db.WithContext(ctx).Order("id").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// ============================================================================
// Likes
// ============================================================================

// ToggleLike flips whether userID likes postID and returns the new state with
// the post's like count.
func (r *Repository) ToggleLike(ctx context.Context, userID, postID int64) (bool, int64, error) {
	var (
		liked bool
		count int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&User{}, userID).Error; err != nil {
			return lookupErr("user", userID, err)
		}
		if err := tx.Select("id").First(&Post{}, postID).Error; err != nil {
			return lookupErr("post", postID, err)
		}

		like := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&PostLike{})
		if like.Error != nil {
			return like.Error
		}
		if like.RowsAffected == 0 {
			if err := tx.Create(&PostLike{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			liked = true
		}

		return tx.Model(&PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to toggle like: %w", err)
	}
	return liked, count, nil
}

// LikesOf returns the users who like postID, by ID
func (r *Repository) LikesOf(ctx context.Context, postID int64) ([]User, error) {
	var users []User
	err := r.db.WithContext(ctx).
		Joins("JOIN post_likes ON post_likes.user_id = users.id").
		Where("post_likes.post_id = ?", postID).
		Order("users.id").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load likes of post %d: %w", postID, err)
	}
	return users, nil
}

// ListLikes returns every like row
func (r *Repository) ListLikes(ctx context.Context) ([]PostLike, error) {
	var likes []PostLike
	if err := r.db.WithContext(ctx).Order("post_id, user_id").Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	return likes, nil
}
