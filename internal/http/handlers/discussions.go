package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bsebcampus/campus-api/internal/config"
	"github.com/bsebcampus/campus-api/internal/domain/discussion"
	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/bsebcampus/campus-api/internal/http/middlewares"
	"github.com/bsebcampus/campus-api/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultThreadLimit = 20
	maxThreadLimit     = 100
)

type DiscussionsStore interface {
	Create(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error)
	GetByID(ctx context.Context, id string) (discussion.Discussion, error)
	ListBySubject(ctx context.Context, subject string, limit, offset int) ([]discussion.Discussion, int, error)
	ListReplies(ctx context.Context, parentID string) ([]discussion.Discussion, error)
	Like(ctx context.Context, id string) (discussion.Discussion, error)
	Dislike(ctx context.Context, id string) (discussion.Discussion, error)
	Delete(ctx context.Context, id string) error
}

type DiscussionsHandler struct {
	store DiscussionsStore
}

func NewDiscussionsHandler(store DiscussionsStore) *DiscussionsHandler {
	return &DiscussionsHandler{store: store}
}

func (h *DiscussionsHandler) Create(ctx *gin.Context) {
	var req discussion.CreateDiscussionRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "invalid_session", "Not signed in")
		return
	}

	req.CreatedBy = userID

	if req.ParentID != nil && !utils.IsUUID(*req.ParentID) {
		RespondBadRequest(ctx, "Invalid parentId", gin.H{
			"fields": []FieldError{{Field: "parentId", Rule: "uuid"}},
		})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.store.Create(cctx, discussion.NewFromCreateRequest(req))

	if err != nil {
		if errors.Is(err, discussion.ErrParentNotFound) {
			RespondNotFound(ctx, "Parent discussion not found")
			return
		}

		RespondInternal(ctx, "Could not create discussion")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"discussion": created})
}

// List returns top-level threads for a subject, newest first.
func (h *DiscussionsHandler) List(ctx *gin.Context) {
	subject := strings.TrimSpace(ctx.Query("subject"))

	if subject == "" {
		RespondBadRequest(ctx, "Missing subject", gin.H{
			"fields": []FieldError{{Field: "subject", Rule: "required"}},
		})
		return
	}

	limit := defaultThreadLimit

	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	if limit > maxThreadLimit {
		limit = maxThreadLimit
	}

	offset := 0

	if raw := ctx.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.store.ListBySubject(cctx, subject, limit, offset)

	if err != nil {
		RespondInternal(ctx, "Could not list discussions")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
	})
}

func (h *DiscussionsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Discussion not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	d, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, discussion.ErrNotFound) {
			RespondNotFound(ctx, "Discussion not found")
			return
		}

		RespondInternal(ctx, "Could not load discussion")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"discussion": d})
}

func (h *DiscussionsHandler) Replies(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Discussion not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.store.ListReplies(cctx, id)

	if err != nil {
		if errors.Is(err, discussion.ErrNotFound) {
			RespondNotFound(ctx, "Discussion not found")
			return
		}

		RespondInternal(ctx, "Could not list replies")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *DiscussionsHandler) Like(ctx *gin.Context) {
	h.react(ctx, h.store.Like)
}

func (h *DiscussionsHandler) Dislike(ctx *gin.Context) {
	h.react(ctx, h.store.Dislike)
}

func (h *DiscussionsHandler) react(ctx *gin.Context, fn func(context.Context, string) (discussion.Discussion, error)) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Discussion not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	d, err := fn(cctx, id)

	if err != nil {
		if errors.Is(err, discussion.ErrNotFound) {
			RespondNotFound(ctx, "Discussion not found")
			return
		}

		RespondInternal(ctx, "Could not update discussion")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"discussion": d})
}

// Delete removes a post. Authors delete their own; admins delete anything.
// Deleting a thread takes its replies with it.
func (h *DiscussionsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Discussion not found")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	existing, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, discussion.ErrNotFound) {
			RespondNotFound(ctx, "Discussion not found")
			return
		}

		RespondInternal(ctx, "Could not load discussion")
		return
	}

	userID, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	if existing.CreatedBy != userID && role != user.RoleAdmin {
		RespondForbidden(ctx, "You do not own this discussion")
		return
	}

	err = h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, discussion.ErrNotFound) {
			RespondNotFound(ctx, "Discussion not found")
			return
		}

		RespondInternal(ctx, "Could not delete discussion")
		return
	}

	ctx.Status(http.StatusNoContent)
}
