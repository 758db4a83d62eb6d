package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"socialblog/backend/internal/blog"
)

type saveUserRequest struct {
	ID        int64  `json:"id"`
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
}

type contentRequest struct {
	Content string `json:"content" binding:"required"`
}

// SaveUser creates or updates a user with its profile
func (h *Handler) SaveUser(c *gin.Context) {
	var req saveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.blog.SaveUser(c.Request.Context(), &blog.User{
		ID:        req.ID,
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Profile:   &blog.Profile{Bio: req.Bio},
	})
	if err != nil {
		h.respond(c, "save user", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "get user", err)
		return
	}

	user, err := h.blog.Repository().GetUser(c.Request.Context(), id)
	if err != nil {
		h.respond(c, "get user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ============================================================================
// Posts
// ============================================================================

func (h *Handler) ListPosts(c *gin.Context) {
	posts, err := h.blog.Repository().ListPosts(c.Request.Context(), queryLimit(c))
	if err != nil {
		h.respond(c, "list posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetPost returns the post with its comments, tags and like count
func (h *Handler) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "get post", err)
		return
	}

	repo := h.blog.Repository()
	post, err := repo.GetPost(ctx, id)
	if err != nil {
		h.respond(c, "get post", err)
		return
	}
	comments, err := repo.ListComments(ctx, id)
	if err != nil {
		h.respond(c, "get post", err)
		return
	}
	tags, err := repo.TagsOf(ctx, id)
	if err != nil {
		h.respond(c, "get post", err)
		return
	}
	likes, err := repo.LikesOf(ctx, id)
	if err != nil {
		h.respond(c, "get post", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":       post,
		"comments":   comments,
		"tags":       tags,
		"like_count": len(likes),
	})
}

func (h *Handler) CreatePost(c *gin.Context) {
	actor, err := actorID(c)
	if err != nil {
		h.respond(c, "create post", err)
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.blog.CreatePost(c.Request.Context(), actor, req.Content)
	if err != nil {
		h.respond(c, "create post", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	actor, err := actorID(c)
	if err != nil {
		h.respond(c, "update post", err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "update post", err)
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.blog.UpdatePost(c.Request.Context(), actor, id, req.Content)
	if err != nil {
		h.respond(c, "update post", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) DeletePost(c *gin.Context) {
	actor, err := actorID(c)
	if err != nil {
		h.respond(c, "delete post", err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "delete post", err)
		return
	}

	if err := h.blog.DeletePost(c.Request.Context(), actor, id); err != nil {
		h.respond(c, "delete post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ============================================================================
// Comments & Likes
// ============================================================================

func (h *Handler) CreateComment(c *gin.Context) {
	actor, err := actorID(c)
	if err != nil {
		h.respond(c, "create comment", err)
		return
	}
	postID, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "create comment", err)
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.blog.CreateComment(c.Request.Context(), actor, postID, req.Content)
	if err != nil {
		h.respond(c, "create comment", err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	actor, err := actorID(c)
	if err != nil {
		h.respond(c, "delete comment", err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "delete comment", err)
		return
	}

	if err := h.blog.DeleteComment(c.Request.Context(), actor, id); err != nil {
		h.respond(c, "delete comment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ToggleLike flips the acting user's like on the post
func (h *Handler) ToggleLike(c *gin.Context) {
	actor, err := actorID(c)
	if err != nil {
		h.respond(c, "toggle like", err)
		return
	}
	postID, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "toggle like", err)
		return
	}

	liked, count, err := h.blog.ToggleLike(c.Request.Context(), actor, postID)
	if err != nil {
		h.respond(c, "toggle like", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
}
