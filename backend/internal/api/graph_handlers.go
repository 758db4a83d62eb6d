package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"socialblog/backend/internal/graph"
	"socialblog/backend/internal/graphsync"
)

var errGraphOutOfSync = errors.New("graph is missing one of the users; retry later")

// ============================================================================
// Social Edges
// ============================================================================

func (h *Handler) Follow(c *gin.Context) {
	h.relate(c, "follow", h.social.Follow)
}

func (h *Handler) Unfollow(c *gin.Context) {
	h.relate(c, "unfollow", h.social.Unfollow)
}

func (h *Handler) AddFriend(c *gin.Context) {
	h.relate(c, "add friend", h.social.AddFriend)
}

func (h *Handler) RemoveFriend(c *gin.Context) {
	h.relate(c, "remove friend", h.social.RemoveFriend)
}

// relate replays the acting and target users into the graph, then applies
// the edge operation between them
func (h *Handler) relate(c *gin.Context, op string, apply func(context.Context, int64, int64) (bool, error)) {
	ctx := c.Request.Context()
	actor, err := actorID(c)
	if err != nil {
		h.respond(c, op, err)
		return
	}
	target, err := pathID(c, "id")
	if err != nil {
		h.respond(c, op, err)
		return
	}

	if err := h.blog.SyncUsers(ctx, actor, target); err != nil {
		h.respond(c, op, err)
		return
	}
	ok, err := apply(ctx, actor, target)
	if err != nil {
		h.respond(c, op, err)
		return
	}
	if !ok {
		h.respond(c, op, errGraphOutOfSync)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "user_id": actor, "target_id": target})
}

func (h *Handler) Followers(c *gin.Context) {
	h.listUsers(c, "list followers", h.social.Followers)
}

func (h *Handler) Following(c *gin.Context) {
	h.listUsers(c, "list following", h.social.Following)
}

func (h *Handler) Friends(c *gin.Context) {
	h.listUsers(c, "list friends", h.social.Friends)
}

func (h *Handler) listUsers(c *gin.Context, op string, list func(context.Context, int64) ([]graph.UserNode, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, op, err)
		return
	}
	users, err := list(c.Request.Context(), id)
	if err != nil {
		h.respond(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// ============================================================================
// Interests
// ============================================================================

type interestRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// AddInterest declares an interest for the user in the path
func (h *Handler) AddInterest(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "add interest", err)
		return
	}
	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.blog.SyncUsers(ctx, id); err != nil {
		h.respond(c, "add interest", err)
		return
	}
	h.writeOutcome(c, "add interest", h.sync.AddInterest(ctx, id, req.Name, req.Description))
}

func (h *Handler) RemoveInterest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, "remove interest", err)
		return
	}
	h.writeOutcome(c, "remove interest", h.sync.RemoveInterest(c.Request.Context(), id, c.Param("name")))
}

func (h *Handler) writeOutcome(c *gin.Context, op string, out graphsync.Outcome) {
	switch out.Status {
	case graphsync.StatusOK:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case graphsync.StatusSkipped:
		c.JSON(http.StatusNotFound, gin.H{"error": out.Reason})
	default:
		h.respond(c, op, out.Err)
	}
}

// ============================================================================
// Analytics
// ============================================================================

func (h *Handler) Feed(c *gin.Context) {
	h.userQuery(c, "load feed", func(ctx context.Context, id int64) (any, error) {
		posts, err := h.analytics.Feed(ctx, id, queryLimit(c))
		return gin.H{"posts": posts}, err
	})
}

func (h *Handler) UserPosts(c *gin.Context) {
	h.userQuery(c, "load user posts", func(ctx context.Context, id int64) (any, error) {
		posts, err := h.analytics.UserPosts(ctx, id, queryLimit(c))
		return gin.H{"posts": posts}, err
	})
}

func (h *Handler) NetworkStats(c *gin.Context) {
	h.userQuery(c, "load network stats", func(ctx context.Context, id int64) (any, error) {
		return h.analytics.NetworkStats(ctx, id)
	})
}

// EgoNetwork returns followers and followed users as nodes and edges
func (h *Handler) EgoNetwork(c *gin.Context) {
	h.userQuery(c, "load network", func(ctx context.Context, id int64) (any, error) {
		return h.analytics.EgoNetwork(ctx, id)
	})
}

func (h *Handler) SuggestFriends(c *gin.Context) {
	h.userQuery(c, "suggest friends", func(ctx context.Context, id int64) (any, error) {
		suggestions, err := h.analytics.SuggestFriends(ctx, id, queryLimit(c))
		return gin.H{"suggestions": suggestions}, err
	})
}

func (h *Handler) SuggestFollows(c *gin.Context) {
	h.userQuery(c, "suggest follows", func(ctx context.Context, id int64) (any, error) {
		suggestions, err := h.analytics.SuggestFollows(ctx, id, queryLimit(c))
		return gin.H{"suggestions": suggestions}, err
	})
}

func (h *Handler) UserInterests(c *gin.Context) {
	h.userQuery(c, "load interests", func(ctx context.Context, id int64) (any, error) {
		interests, err := h.analytics.UserInterests(ctx, id)
		return gin.H{"interests": interests}, err
	})
}

func (h *Handler) CommonInterests(c *gin.Context) {
	other, err := pathID(c, "other")
	if err != nil {
		h.respond(c, "load common interests", err)
		return
	}
	h.userQuery(c, "load common interests", func(ctx context.Context, id int64) (any, error) {
		interests, err := h.analytics.CommonInterests(ctx, id, other)
		return gin.H{"interests": interests}, err
	})
}

func (h *Handler) userQuery(c *gin.Context, op string, query func(context.Context, int64) (any, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respond(c, op, err)
		return
	}
	body, err := query(c.Request.Context(), id)
	if err != nil {
		h.respond(c, op, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) Influencers(c *gin.Context) {
	users, err := h.analytics.Influencers(c.Request.Context(), queryLimit(c))
	if err != nil {
		h.respond(c, "load influencers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) TrendingInterests(c *gin.Context) {
	interests, err := h.analytics.TrendingInterests(c.Request.Context(), queryLimit(c))
	if err != nil {
		h.respond(c, "load trending interests", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interests": interests})
}

func (h *Handler) PostsByInterest(c *gin.Context) {
	posts, err := h.analytics.PostsByInterest(c.Request.Context(), c.Param("name"), queryLimit(c))
	if err != nil {
		h.respond(c, "load posts by interest", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
