package post

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abduss/postmedia/internal/auth"
	"github.com/abduss/postmedia/internal/media"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type postService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (Post, error)
	Get(ctx context.Context, id uuid.UUID) (Post, error)
	List(ctx context.Context, filter ListFilter) ([]Post, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Approve(ctx context.Context, actor Actor, id uuid.UUID) (Post, error)
}

type linker interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// RegisterPublicRoutes mounts the read-only record routes. They need no user.
func RegisterPublicRoutes(group *gin.RouterGroup, service postService, links linker, linkTTL time.Duration) {
	handler := &httpHandler{service: service, links: links, linkTTL: linkTTL}
	group.GET("/posts", handler.list)
	group.GET("/posts/:id", handler.get)
}

// RegisterRoutes mounts the mutating record routes. The group must carry
// authentication middleware.
func RegisterRoutes(group *gin.RouterGroup, service postService) {
	handler := &httpHandler{service: service}
	group.POST("/posts", handler.create)
	group.DELETE("/posts/:id", handler.remove)
	group.POST("/posts/approve/:id", handler.approve)
}

type listQuery struct {
	Limit  int `form:"limit" binding:"omitempty,gte=1,lte=100"`
	Offset int `form:"offset" binding:"omitempty,gte=0"`
}

type httpHandler struct {
	service postService
	links   linker
	linkTTL time.Duration
}

func (h *httpHandler) create(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "NOT_LOGGED_IN", "message": "unauthorized"})
		return
	}

	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "MALFORMED_REQUEST_BODY", "message": "invalid request body"})
		return
	}

	p, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		_ = c.Error(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *httpHandler) get(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		writeError(c, err)
		return
	}

	view, err := h.view(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_ERROR", "message": "failed to sign media links"})
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) list(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_QUERY", "message": "invalid limit or offset"})
		return
	}

	posts, err := h.service.List(c.Request.Context(), ListFilter{Limit: q.Limit, Offset: q.Offset, OnlyApproved: true})
	if err != nil {
		_ = c.Error(err)
		writeError(c, err)
		return
	}

	views := make([]View, 0, len(posts))
	for _, p := range posts {
		view, err := h.view(c.Request.Context(), p)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_ERROR", "message": "failed to sign media links"})
			return
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, views)
}

func (h *httpHandler) remove(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		_ = c.Error(err)
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) approve(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}

	p, err := h.service.Approve(c.Request.Context(), actor, id)
	if err != nil {
		_ = c.Error(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func requireActor(c *gin.Context) (Actor, bool) {
	userID, user, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "NOT_LOGGED_IN", "message": "unauthorized"})
		return Actor{}, false
	}
	return Actor{ID: userID, IsAdmin: user.IsAdmin}, true
}

// postID parses the :id path parameter. Unparseable ids cannot exist, so they
// are reported as not found.
func postID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "DOC_NOT_FOUND", "message": "post not found"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *httpHandler) view(ctx context.Context, p Post) (View, error) {
	var err error
	view := View{Post: p}
	if view.PictureLinks, err = h.presign(ctx, p.Pictures); err != nil {
		return View{}, err
	}
	if view.VideoLinks, err = h.presign(ctx, p.Videos); err != nil {
		return View{}, err
	}
	return view, nil
}

func (h *httpHandler) presign(ctx context.Context, objects []media.ObjectMetadata) ([]MediaLink, error) {
	links := make([]MediaLink, 0, len(objects))
	for _, obj := range objects {
		url, err := h.links.PresignGet(ctx, obj.Key, h.linkTTL)
		if err != nil {
			return nil, err
		}
		links = append(links, MediaLink{Key: obj.Key, ContentType: obj.ContentType, URL: url})
	}
	return links, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrFileNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "FILE_NOT_FOUND", "message": "referenced file not found"})
	case errors.Is(err, ErrInvalidFileMimeType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_FILE_MIME_TYPE", "message": "file is neither a picture nor a video"})
	case errors.Is(err, ErrInvalidPicsNum):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_PICS_NUM", "message": "too many pictures"})
	case errors.Is(err, ErrInvalidVidsNum):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_VIDS_NUM", "message": "too many videos"})
	case errors.Is(err, ErrInvalidPost):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_POST", "message": "post validation failed"})
	case errors.Is(err, ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "DOC_NOT_FOUND", "message": "post not found"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "FORBIDDEN", "message": "not allowed to modify this post"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_ERROR", "message": "internal error"})
	}
}
