package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/bsebcampus/campus-api/internal/cache"
	"github.com/bsebcampus/campus-api/internal/config"
	"github.com/bsebcampus/campus-api/internal/domain/note"
	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/bsebcampus/campus-api/internal/http/middlewares"
	"github.com/bsebcampus/campus-api/internal/storage"
	"github.com/bsebcampus/campus-api/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultNoteLimit = 20
	maxNoteLimit     = 100

	maxUploadBytes = 25 << 20 // 25 MiB

	presignExpiry = 15 * time.Minute
)

type NotesStore interface {
	Create(ctx context.Context, n note.Note) (note.Note, error)
	List(ctx context.Context, filter note.ListNotesFilter) ([]note.Note, int, error)
	ListCursor(ctx context.Context, filter note.ListNotesFilter, beforeCreatedAt time.Time, beforeID string) ([]note.Note, *string, bool, error)
	GetByID(ctx context.Context, id string) (note.Note, error)
	Peek(ctx context.Context, id string) (note.Note, error)
	Like(ctx context.Context, id string) (note.Note, error)
	Update(ctx context.Context, id string, req note.UpdateNoteRequest) (note.Note, error)
	SetFileURL(ctx context.Context, id, fileURL string) (note.Note, error)
	Delete(ctx context.Context, id string) error
}

type NotesHandler struct {
	store   NotesStore
	files   storage.Service
	listTTL *cache.Cache
}

// NewNotesHandler builds the notes handler. files may be nil when object
// storage is not configured; upload endpoints then return 503.
func NewNotesHandler(store NotesStore, files storage.Service, listTTL *cache.Cache) *NotesHandler {
	return &NotesHandler{store: store, files: files, listTTL: listTTL}
}

type noteListResponse struct {
	Items      []note.Note `json:"items"`
	Total      int         `json:"total,omitempty"`
	NextCursor *string     `json:"nextCursor,omitempty"`
	HasMore    bool        `json:"hasMore"`
}

func (h *NotesHandler) Create(ctx *gin.Context) {
	var req note.CreateNoteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "invalid_session", "Not signed in")
		return
	}

	req.UploadedBy = userID

	newNote, err := note.NewFromCreateRequest(req)

	if err != nil {
		if errors.Is(err, note.ErrNoContent) {
			RespondBadRequest(ctx, "Either content or fileUrl must be provided", gin.H{
				"fields": []FieldError{
					{Field: "content", Rule: "required_without", Param: "fileUrl"},
				},
			})
			return
		}

		RespondBadRequest(ctx, "Invalid note", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.store.Create(cctx, newNote)

	if err != nil {
		RespondInternal(ctx, "Could not create note")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusCreated, gin.H{"note": created})
}

func (h *NotesHandler) List(ctx *gin.Context) {
	filter := filterFromQuery(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// cursor paging wins over offset when both are sent
	if rawCursor := ctx.Query("cursor"); rawCursor != "" {
		cur, err := utils.DecodeNoteCursor(rawCursor)

		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}

		items, next, hasMore, err := h.store.ListCursor(cctx, filter, cur.CreatedAt, cur.ID)

		if err != nil {
			RespondInternal(ctx, "Could not list notes")
			return
		}

		ctx.JSON(http.StatusOK, noteListResponse{Items: items, NextCursor: next, HasMore: hasMore})
		return
	}

	key := listCacheKey(filter)

	if h.listTTL != nil {
		if v, ok := h.listTTL.Get(key); ok {
			if resp, ok := v.(noteListResponse); ok {
				ctx.JSON(http.StatusOK, resp)
				return
			}
		}
	}

	items, total, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list notes")
		return
	}

	resp := noteListResponse{
		Items:   items,
		Total:   total,
		HasMore: filter.Offset+len(items) < total,
	}

	if h.listTTL != nil {
		h.listTTL.Set(key, resp)
	}

	ctx.JSON(http.StatusOK, resp)
}

func (h *NotesHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Note not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// GetByID also counts the view
	n, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, note.ErrNotFound) {
			RespondNotFound(ctx, "Note not found")
			return
		}

		RespondInternal(ctx, "Could not load note")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"note": n})
}

func (h *NotesHandler) Like(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Note not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	n, err := h.store.Like(cctx, id)

	if err != nil {
		if errors.Is(err, note.ErrNotFound) {
			RespondNotFound(ctx, "Note not found")
			return
		}

		RespondInternal(ctx, "Could not like note")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"note": n})
}

func (h *NotesHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	var req note.UpdateNoteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if !h.requireOwner(ctx, cctx, id) {
		return
	}

	updated, err := h.store.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, note.ErrNotFound) {
			RespondNotFound(ctx, "Note not found")
			return
		}

		RespondInternal(ctx, "Could not update note")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusOK, gin.H{"note": updated})
}

func (h *NotesHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	existing, ok := h.ownerGate(ctx, cctx, id)

	if !ok {
		return
	}

	// drop the stored attachment first; a dangling object is worse than a
	// retryable delete
	if key, ok := objectKey(existing.FileURL); ok && h.files != nil {
		if err := h.files.DeleteObject(cctx, key); err != nil {
			RespondInternal(ctx, "Could not delete note file")
			return
		}
	}

	err := h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, note.ErrNotFound) {
			RespondNotFound(ctx, "Note not found")
			return
		}

		RespondInternal(ctx, "Could not delete note")
		return
	}

	h.invalidateLists()

	ctx.Status(http.StatusNoContent)
}

// Upload stores a multipart file for the note and records its location.
func (h *NotesHandler) Upload(ctx *gin.Context) {
	if h.files == nil {
		RespondError(ctx, http.StatusServiceUnavailable, "storage_unavailable", "File storage is not configured.", nil)
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	if !h.requireOwner(ctx, cctx, id) {
		return
	}

	fileHeader, err := ctx.FormFile("file")

	if err != nil {
		RespondBadRequest(ctx, "Missing file field", nil)
		return
	}

	if fileHeader.Size > maxUploadBytes {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the upload limit.", nil)
		return
	}

	src, err := fileHeader.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")

	key := fmt.Sprintf("notes/%s/%s", id, path.Base(fileHeader.Filename))

	fileURL, err := h.files.UploadObject(cctx, key, src, contentType)

	if err != nil {
		RespondInternal(ctx, "Could not store file")
		return
	}

	updated, err := h.store.SetFileURL(cctx, id, fileURL)

	if err != nil {
		if errors.Is(err, note.ErrNotFound) {
			RespondNotFound(ctx, "Note not found")
			return
		}

		RespondInternal(ctx, "Could not update note")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusOK, gin.H{"note": updated})
}

// FileLink hands out a short-lived download URL for the note attachment.
func (h *NotesHandler) FileLink(ctx *gin.Context) {
	if h.files == nil {
		RespondError(ctx, http.StatusServiceUnavailable, "storage_unavailable", "File storage is not configured.", nil)
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Note not found")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	n, err := h.store.Peek(cctx, id)

	if err != nil {
		if errors.Is(err, note.ErrNotFound) {
			RespondNotFound(ctx, "Note not found")
			return
		}

		RespondInternal(ctx, "Could not load note")
		return
	}

	key, ok := objectKey(n.FileURL)

	if !ok {
		RespondNotFound(ctx, "Note has no stored file")
		return
	}

	url, err := h.files.PresignGet(cctx, key, presignExpiry)

	if err != nil {
		RespondInternal(ctx, "Could not sign download link")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"url":       url,
		"expiresIn": int(presignExpiry.Seconds()),
	})
}

// Helper functions

func filterFromQuery(ctx *gin.Context) note.ListNotesFilter {
	var filter note.ListNotesFilter

	if v := strings.TrimSpace(ctx.Query("subject")); v != "" {
		filter.Subject = &v
	}

	if v := strings.TrimSpace(ctx.Query("chapter")); v != "" {
		filter.Chapter = &v
	}

	if v := strings.TrimSpace(ctx.Query("type")); v != "" {
		filter.Type = &v
	}

	filter.Limit = defaultNoteLimit

	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	if filter.Limit > maxNoteLimit {
		filter.Limit = maxNoteLimit
	}

	if raw := ctx.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	return filter
}

func listCacheKey(filter note.ListNotesFilter) string {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}

	return fmt.Sprintf("notes:%s:%s:%s:%d:%d",
		deref(filter.Subject), deref(filter.Chapter), deref(filter.Type), filter.Limit, filter.Offset)
}

func (h *NotesHandler) invalidateLists() {
	if h.listTTL != nil {
		h.listTTL.Clear()
	}
}

// requireOwner loads the note and rejects callers that neither own it nor
// hold the admin role. Responds on failure.
func (h *NotesHandler) requireOwner(ctx *gin.Context, cctx context.Context, id string) bool {
	_, ok := h.ownerGate(ctx, cctx, id)
	return ok
}

func (h *NotesHandler) ownerGate(ctx *gin.Context, cctx context.Context, id string) (note.Note, bool) {
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Note not found")
		return note.Note{}, false
	}

	existing, err := h.store.Peek(cctx, id)

	if err != nil {
		if errors.Is(err, note.ErrNotFound) {
			RespondNotFound(ctx, "Note not found")
			return note.Note{}, false
		}

		RespondInternal(ctx, "Could not load note")
		return note.Note{}, false
	}

	userID, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	if existing.UploadedBy != userID && role != user.RoleAdmin {
		RespondForbidden(ctx, "You do not own this note")
		return note.Note{}, false
	}

	return existing, true
}

// objectKey extracts the storage key from an s3://bucket/key url. External
// urls pass through unextracted.
func objectKey(fileURL string) (string, bool) {
	if !strings.HasPrefix(fileURL, "s3://") {
		return "", false
	}

	rest := strings.TrimPrefix(fileURL, "s3://")

	_, key, found := strings.Cut(rest, "/")

	if !found || key == "" {
		return "", false
	}

	return key, true
}
