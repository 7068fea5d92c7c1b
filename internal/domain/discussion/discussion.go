package discussion

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("discussion not found")
	ErrParentNotFound = errors.New("parent discussion not found")
)

// Discussion is a post in a subject forum. A nil ParentID means a top-level
// thread; replies point at their parent and bump its Comments counter.
type Discussion struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Subject   string    `json:"subject"`
	CreatedBy string    `json:"createdBy"`
	ParentID  *string   `json:"parentId"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateDiscussionRequest struct {
	Content  string  `json:"content" binding:"required,min=1"`
	Subject  string  `json:"subject" binding:"required"`
	ParentID *string `json:"parentId"`

	// from the authenticated identity
	CreatedBy string `json:"-"`
}

func NewFromCreateRequest(req CreateDiscussionRequest) Discussion {
	now := time.Now().UTC()

	return Discussion{
		ID:        uuid.NewString(),
		Content:   strings.TrimSpace(req.Content),
		Subject:   strings.TrimSpace(req.Subject),
		CreatedBy: req.CreatedBy,
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
