package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialblog/backend/internal/analytics"
	"socialblog/backend/internal/blog"
	"socialblog/backend/internal/graph"
	"socialblog/backend/internal/graphsync"
	"socialblog/backend/internal/social"
	"socialblog/backend/pkg/logger"
)

// UserIDHeader carries the acting user's id
const UserIDHeader = "X-User-ID"

type Handler struct {
	blog      *blog.Service
	social    *social.Service
	sync      *graphsync.Service
	analytics *analytics.Engine
	logger    *zap.Logger
}

func NewHandler(blogSvc *blog.Service, socialSvc *social.Service, syncSvc *graphsync.Service, engine *analytics.Engine) *Handler {
	return &Handler{
		blog:      blogSvc,
		social:    socialSvc,
		sync:      syncSvc,
		analytics: engine,
		logger:    logger.Named("api"),
	}
}

// RegisterRoutes mounts every /api route on r
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("", h.SaveUser)
			users.GET("/influencers", h.Influencers)
			users.GET("/:id", h.GetUser)

			users.POST("/:id/follow", h.Follow)
			users.DELETE("/:id/follow", h.Unfollow)
			users.POST("/:id/friends", h.AddFriend)
			users.DELETE("/:id/friends", h.RemoveFriend)
			users.GET("/:id/followers", h.Followers)
			users.GET("/:id/following", h.Following)
			users.GET("/:id/friends", h.Friends)

			users.GET("/:id/feed", h.Feed)
			users.GET("/:id/posts", h.UserPosts)
			users.GET("/:id/stats", h.NetworkStats)
			users.GET("/:id/network", h.EgoNetwork)
			users.GET("/:id/suggestions/friends", h.SuggestFriends)
			users.GET("/:id/suggestions/follow", h.SuggestFollows)
			users.GET("/:id/interests", h.UserInterests)
			users.POST("/:id/interests", h.AddInterest)
			users.DELETE("/:id/interests/:name", h.RemoveInterest)
			users.GET("/:id/interests/common/:other", h.CommonInterests)
		}

		posts := api.Group("/posts")
		{
			posts.GET("", h.ListPosts)
			posts.POST("", h.CreatePost)
			posts.GET("/:id", h.GetPost)
			posts.PUT("/:id", h.UpdatePost)
			posts.DELETE("/:id", h.DeletePost)
			posts.POST("/:id/comments", h.CreateComment)
			posts.POST("/:id/like", h.ToggleLike)
		}

		api.DELETE("/comments/:id", h.DeleteComment)

		interests := api.Group("/interests")
		{
			interests.GET("/trending", h.TrendingInterests)
			interests.GET("/:name/posts", h.PostsByInterest)
		}
	}
}

// ============================================================================
// Request Helpers
// ============================================================================

var (
	errMissingActor = errors.New("missing or invalid " + UserIDHeader + " header")
	errInvalidID    = errors.New("invalid id")
)

// actorID reads the acting user from the request header
func actorID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.GetHeader(UserIDHeader), 10, 64)
	if err != nil || id <= 0 {
		return 0, errMissingActor
	}
	return id, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// queryLimit returns the limit query parameter; bounds are applied by analytics
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}

// respond maps domain errors onto status codes
func (h *Handler) respond(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errMissingActor):
		status = http.StatusUnauthorized
	case errors.Is(err, errInvalidID),
		errors.Is(err, blog.ErrEmptyContent),
		errors.Is(err, blog.ErrEmptyUsername),
		errors.Is(err, social.ErrSelfRelation):
		status = http.StatusBadRequest
	case errors.Is(err, blog.ErrNotAuthor):
		status = http.StatusForbidden
	case errors.Is(err, blog.ErrUsernameTaken):
		status = http.StatusConflict
	case blog.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, analytics.ErrAnalyticsUnavailable),
		errors.Is(err, errGraphOutOfSync),
		graph.IsUnavailable(err):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		c.JSON(status, gin.H{"error": "failed to " + op})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
