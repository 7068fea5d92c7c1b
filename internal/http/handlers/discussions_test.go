package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bsebcampus/campus-api/internal/domain/discussion"
	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/bsebcampus/campus-api/internal/http/handlers"
	"github.com/bsebcampus/campus-api/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type fakeDiscussionsStore struct {
	createFn        func(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error)
	getFn           func(ctx context.Context, id string) (discussion.Discussion, error)
	listBySubjectFn func(ctx context.Context, subject string, limit, offset int) ([]discussion.Discussion, int, error)
	listRepliesFn   func(ctx context.Context, parentID string) ([]discussion.Discussion, error)
	likeFn          func(ctx context.Context, id string) (discussion.Discussion, error)
	dislikeFn       func(ctx context.Context, id string) (discussion.Discussion, error)
	deleteFn        func(ctx context.Context, id string) error
}

func (f *fakeDiscussionsStore) Create(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error) {
	if f.createFn != nil {
		return f.createFn(ctx, d)
	}
	return d, nil
}

func (f *fakeDiscussionsStore) GetByID(ctx context.Context, id string) (discussion.Discussion, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return discussion.Discussion{}, discussion.ErrNotFound
}

func (f *fakeDiscussionsStore) ListBySubject(ctx context.Context, subject string, limit, offset int) ([]discussion.Discussion, int, error) {
	if f.listBySubjectFn != nil {
		return f.listBySubjectFn(ctx, subject, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeDiscussionsStore) ListReplies(ctx context.Context, parentID string) ([]discussion.Discussion, error) {
	if f.listRepliesFn != nil {
		return f.listRepliesFn(ctx, parentID)
	}
	return nil, nil
}

func (f *fakeDiscussionsStore) Like(ctx context.Context, id string) (discussion.Discussion, error) {
	if f.likeFn != nil {
		return f.likeFn(ctx, id)
	}
	return discussion.Discussion{}, discussion.ErrNotFound
}

func (f *fakeDiscussionsStore) Dislike(ctx context.Context, id string) (discussion.Discussion, error) {
	if f.dislikeFn != nil {
		return f.dislikeFn(ctx, id)
	}
	return discussion.Discussion{}, discussion.ErrNotFound
}

func (f *fakeDiscussionsStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func authedDiscussionsRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	am := middlewares.NewAuthMiddleware(testJWT())

	r := gin.New()
	r.Handle(method, path, am.RequireAuth(), h)

	return r
}

func TestCreateDiscussionHandler(t *testing.T) {
	authorID := newUUID()
	parentID := newUUID()

	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeDiscussionsStore)
		wantStatusCode int
	}{
		{
			name:           "top_level_thread",
			body:           `{"content": "how do capacitors store charge?", "subject": "physics"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "reply",
			body:           `{"content": "in the field between plates", "subject": "physics", "parentId": "` + parentID + `"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "missing_content",
			body:           `{"subject": "physics"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "malformed_parent_id",
			body:           `{"content": "x", "subject": "physics", "parentId": "nope"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "parent_gone",
			body: `{"content": "x", "subject": "physics", "parentId": "` + parentID + `"}`,
			storeSetUp: func(f *fakeDiscussionsStore) {
				f.createFn = func(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error) {
					return discussion.Discussion{}, discussion.ErrParentNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var captured discussion.Discussion

			store := &fakeDiscussionsStore{
				createFn: func(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error) {
					captured = d
					return d, nil
				},
			}

			if tt.storeSetUp != nil {
				tt.storeSetUp(store)
			}

			h := handlers.NewDiscussionsHandler(store)
			r := authedDiscussionsRouter(http.MethodPost, "/discussions", h.Create)

			req := httptest.NewRequest(http.MethodPost, "/discussions", jsonBody(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+sessionToken(t, authorID, user.RoleStudent))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusCreated && captured.CreatedBy != authorID {
				t.Errorf("createdBy %q, want the session user %q", captured.CreatedBy, authorID)
			}
		})
	}
}

func TestListDiscussionsRequiresSubject(t *testing.T) {
	store := &fakeDiscussionsStore{
		listBySubjectFn: func(ctx context.Context, subject string, limit, offset int) ([]discussion.Discussion, int, error) {
			return []discussion.Discussion{{ID: newUUID(), Subject: subject}}, 1, nil
		},
	}

	h := handlers.NewDiscussionsHandler(store)
	r := setupRouter(http.MethodGet, "/discussions", h.List)

	req := httptest.NewRequest(http.MethodGet, "/discussions?subject=physics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var out struct {
		Total int `json:"total"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("could not decode body: %v", err)
	}

	if out.Total != 1 {
		t.Errorf("got total %d, want 1", out.Total)
	}

	// no subject given
	req = httptest.NewRequest(http.MethodGet, "/discussions", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d without subject, want 400", w.Code)
	}
}

func TestListRepliesHandler(t *testing.T) {
	parentID := newUUID()

	store := &fakeDiscussionsStore{
		listRepliesFn: func(ctx context.Context, gotID string) ([]discussion.Discussion, error) {
			if gotID != parentID {
				return nil, discussion.ErrNotFound
			}
			return []discussion.Discussion{{ID: newUUID(), ParentID: &parentID}}, nil
		},
	}

	h := handlers.NewDiscussionsHandler(store)
	r := setupRouter(http.MethodGet, "/discussions/:id/replies", h.Replies)

	req := httptest.NewRequest(http.MethodGet, "/discussions/"+parentID+"/replies", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/discussions/"+newUUID()+"/replies", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d for unknown parent, want 404", w.Code)
	}
}

func TestDiscussionReactions(t *testing.T) {
	id := newUUID()

	store := &fakeDiscussionsStore{
		likeFn: func(ctx context.Context, gotID string) (discussion.Discussion, error) {
			return discussion.Discussion{ID: gotID, Likes: 3}, nil
		},
		dislikeFn: func(ctx context.Context, gotID string) (discussion.Discussion, error) {
			return discussion.Discussion{ID: gotID, Dislikes: 1}, nil
		},
	}

	h := handlers.NewDiscussionsHandler(store)

	likeRouter := authedDiscussionsRouter(http.MethodPost, "/discussions/:id/like", h.Like)
	dislikeRouter := authedDiscussionsRouter(http.MethodPost, "/discussions/:id/dislike", h.Dislike)

	token := sessionToken(t, newUUID(), user.RoleStudent)

	req := httptest.NewRequest(http.MethodPost, "/discussions/"+id+"/like", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	likeRouter.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("like got status %d, body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/discussions/"+id+"/dislike", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	dislikeRouter.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("dislike got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteDiscussionOwnership(t *testing.T) {
	id := newUUID()
	authorID := newUUID()
	strangerID := newUUID()

	tests := []struct {
		name           string
		callerID       string
		callerRole     string
		wantStatusCode int
	}{
		{"author_can_delete", authorID, user.RoleStudent, http.StatusNoContent},
		{"stranger_forbidden", strangerID, user.RoleStudent, http.StatusForbidden},
		{"admin_can_delete", strangerID, user.RoleAdmin, http.StatusNoContent},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeDiscussionsStore{
				getFn: func(ctx context.Context, gotID string) (discussion.Discussion, error) {
					return discussion.Discussion{ID: gotID, CreatedBy: authorID}, nil
				},
			}

			h := handlers.NewDiscussionsHandler(store)
			r := authedDiscussionsRouter(http.MethodDelete, "/discussions/:id", h.Delete)

			req := httptest.NewRequest(http.MethodDelete, "/discussions/"+id, nil)
			req.Header.Set("Authorization", "Bearer "+sessionToken(t, tt.callerID, tt.callerRole))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
