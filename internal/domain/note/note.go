package note

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TypeText  = "text"
	TypePDF   = "pdf"
	TypeImage = "image"
	TypeVideo = "video"
)

var (
	ErrNotFound = errors.New("note not found")

	// a note must carry inline content or point at an uploaded file
	ErrNoContent = errors.New("either content or fileUrl must be provided")
)

type Note struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Subject       string    `json:"subject"`
	Chapter       string    `json:"chapter"`
	Topic         string    `json:"topic"`
	Description   string    `json:"description"`
	Content       string    `json:"content,omitempty"`
	Type          string    `json:"type"`
	Tags          []string  `json:"tags"`
	FileURL       string    `json:"fileUrl,omitempty"`
	IsHandwritten bool      `json:"isHandwritten"`
	UploadedBy    string    `json:"uploadedBy"`
	Views         int       `json:"views"`
	Likes         int       `json:"likes"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateNoteRequest struct {
	Title         string   `json:"title" binding:"required,min=2"`
	Subject       string   `json:"subject" binding:"required"`
	Chapter       string   `json:"chapter" binding:"required"`
	Topic         string   `json:"topic" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	Content       string   `json:"content"`
	Type          string   `json:"type" binding:"required,oneof=text pdf image video"`
	Tags          []string `json:"tags"`
	FileURL       string   `json:"fileUrl"`
	IsHandwritten bool     `json:"isHandwritten"`

	// set from the authenticated identity, never from the body
	UploadedBy string `json:"-"`
}

type UpdateNoteRequest struct {
	Title       string   `json:"title" binding:"required,min=2"`
	Subject     string   `json:"subject" binding:"required"`
	Chapter     string   `json:"chapter" binding:"required"`
	Topic       string   `json:"topic" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
}

type ListNotesFilter struct {
	Subject *string
	Chapter *string
	Type    *string
	Limit   int
	Offset  int
}

// NewFromCreateRequest builds a Note from the incoming DTO. Returns
// ErrNoContent when neither inline content nor a file url is present.
func NewFromCreateRequest(req CreateNoteRequest) (Note, error) {
	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.FileURL) == "" {
		return Note{}, ErrNoContent
	}

	now := time.Now().UTC()

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	return Note{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(req.Title),
		Subject:       strings.TrimSpace(req.Subject),
		Chapter:       strings.TrimSpace(req.Chapter),
		Topic:         strings.TrimSpace(req.Topic),
		Description:   strings.TrimSpace(req.Description),
		Content:       req.Content,
		Type:          req.Type,
		Tags:          tags,
		FileURL:       req.FileURL,
		IsHandwritten: req.IsHandwritten,
		UploadedBy:    req.UploadedBy,
		Views:         0,
		Likes:         0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
