package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bsebcampus/campus-api/internal/auth"
	"github.com/bsebcampus/campus-api/internal/cache"
	"github.com/bsebcampus/campus-api/internal/domain/note"
	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/bsebcampus/campus-api/internal/http/handlers"
	"github.com/bsebcampus/campus-api/internal/http/middlewares"
	"github.com/bsebcampus/campus-api/internal/utils"
	"github.com/gin-gonic/gin"
)

type fakeNotesStore struct {
	createFn     func(ctx context.Context, n note.Note) (note.Note, error)
	listFn       func(ctx context.Context, filter note.ListNotesFilter) ([]note.Note, int, error)
	listCursorFn func(ctx context.Context, filter note.ListNotesFilter, beforeCreatedAt time.Time, beforeID string) ([]note.Note, *string, bool, error)
	getFn        func(ctx context.Context, id string) (note.Note, error)
	peekFn       func(ctx context.Context, id string) (note.Note, error)
	likeFn       func(ctx context.Context, id string) (note.Note, error)
	updateFn     func(ctx context.Context, id string, req note.UpdateNoteRequest) (note.Note, error)
	setFileURLFn func(ctx context.Context, id, fileURL string) (note.Note, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (f *fakeNotesStore) Create(ctx context.Context, n note.Note) (note.Note, error) {
	if f.createFn != nil {
		return f.createFn(ctx, n)
	}
	return n, nil
}

func (f *fakeNotesStore) List(ctx context.Context, filter note.ListNotesFilter) ([]note.Note, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (f *fakeNotesStore) ListCursor(ctx context.Context, filter note.ListNotesFilter, beforeCreatedAt time.Time, beforeID string) ([]note.Note, *string, bool, error) {
	if f.listCursorFn != nil {
		return f.listCursorFn(ctx, filter, beforeCreatedAt, beforeID)
	}
	return nil, nil, false, nil
}

func (f *fakeNotesStore) GetByID(ctx context.Context, id string) (note.Note, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return note.Note{}, note.ErrNotFound
}

func (f *fakeNotesStore) Peek(ctx context.Context, id string) (note.Note, error) {
	if f.peekFn != nil {
		return f.peekFn(ctx, id)
	}
	return note.Note{}, note.ErrNotFound
}

func (f *fakeNotesStore) Like(ctx context.Context, id string) (note.Note, error) {
	if f.likeFn != nil {
		return f.likeFn(ctx, id)
	}
	return note.Note{}, note.ErrNotFound
}

func (f *fakeNotesStore) Update(ctx context.Context, id string, req note.UpdateNoteRequest) (note.Note, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return note.Note{}, note.ErrNotFound
}

func (f *fakeNotesStore) SetFileURL(ctx context.Context, id, fileURL string) (note.Note, error) {
	if f.setFileURLFn != nil {
		return f.setFileURLFn(ctx, id, fileURL)
	}
	return note.Note{}, note.ErrNotFound
}

func (f *fakeNotesStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeStorage struct {
	uploadFn  func(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	presignFn func(ctx context.Context, key string, expires time.Duration) (string, error)
	deleteFn  func(ctx context.Context, key string) error

	deletedKeys []string
}

func (f *fakeStorage) UploadObject(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if f.uploadFn != nil {
		return f.uploadFn(ctx, key, body, contentType)
	}
	return "s3://test-bucket/" + key, nil
}

func (f *fakeStorage) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if f.presignFn != nil {
		return f.presignFn(ctx, key, expires)
	}
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	f.deletedKeys = append(f.deletedKeys, key)

	if f.deleteFn != nil {
		return f.deleteFn(ctx, key)
	}
	return nil
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func encodeCursor(t *testing.T, createdAt time.Time, id string) string {
	t.Helper()

	cursor, err := utils.EncodeNoteCursor(createdAt, id)
	if err != nil {
		t.Fatalf("could not encode cursor: %v", err)
	}

	return cursor
}

func sessionToken(t *testing.T, userID, role string) string {
	t.Helper()

	token, err := testJWT().GenerateSessionToken(auth.SessionIdentity{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("could not mint token: %v", err)
	}

	return token
}

func authedNotesRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	am := middlewares.NewAuthMiddleware(testJWT())

	r := gin.New()
	r.Handle(method, path, am.RequireAuth(), h)

	return r
}

func TestCreateNoteHandler(t *testing.T) {
	ownerID := newUUID()

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
	}{
		{
			name: "success_with_content",
			body: `{
				"title": "Electrostatics",
				"subject": "physics",
				"chapter": "1",
				"topic": "coulombs law",
				"description": "field basics",
				"content": "charge comes in two kinds",
				"type": "text"
			}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "success_with_file_url",
			body: `{
				"title": "Electrostatics",
				"subject": "physics",
				"chapter": "1",
				"topic": "coulombs law",
				"description": "scanned pages",
				"type": "pdf",
				"fileUrl": "https://example.com/scan.pdf"
			}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			// content and fileUrl both absent
			name: "no_content_no_file",
			body: `{
				"title": "Electrostatics",
				"subject": "physics",
				"chapter": "1",
				"topic": "coulombs law",
				"description": "empty",
				"type": "text"
			}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "bad_type",
			body: `{
				"title": "Electrostatics",
				"subject": "physics",
				"chapter": "1",
				"topic": "coulombs law",
				"description": "x",
				"content": "y",
				"type": "docx"
			}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var captured note.Note

			store := &fakeNotesStore{
				createFn: func(ctx context.Context, n note.Note) (note.Note, error) {
					captured = n
					return n, nil
				},
			}

			h := handlers.NewNotesHandler(store, nil, nil)
			r := authedNotesRouter(http.MethodPost, "/notes", h.Create)

			req := httptest.NewRequest(http.MethodPost, "/notes", jsonBody(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+sessionToken(t, ownerID, user.RoleStudent))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusCreated && captured.UploadedBy != ownerID {
				t.Errorf("uploadedBy %q, want the session user %q", captured.UploadedBy, ownerID)
			}
		})
	}
}

func TestListNotesUsesCache(t *testing.T) {
	calls := 0

	store := &fakeNotesStore{
		listFn: func(ctx context.Context, filter note.ListNotesFilter) ([]note.Note, int, error) {
			calls++
			return []note.Note{{ID: newUUID(), Title: "cached"}}, 1, nil
		},
	}

	h := handlers.NewNotesHandler(store, nil, cache.New(time.Minute))
	r := setupRouter(http.MethodGet, "/notes", h.List)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/notes?subject=physics", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}
	}

	if calls != 1 {
		t.Errorf("store was queried %d times, want 1 (cache miss only)", calls)
	}
}

func TestListNotesCursorPaging(t *testing.T) {
	var gotBeforeID string

	next := "opaque-cursor"

	store := &fakeNotesStore{
		listCursorFn: func(ctx context.Context, filter note.ListNotesFilter, beforeCreatedAt time.Time, beforeID string) ([]note.Note, *string, bool, error) {
			gotBeforeID = beforeID
			return []note.Note{{ID: newUUID()}}, &next, true, nil
		},
	}

	h := handlers.NewNotesHandler(store, nil, nil)
	r := setupRouter(http.MethodGet, "/notes", h.List)

	// a real cursor from the encoder
	id := newUUID()
	cursor := encodeCursor(t, time.Now().UTC(), id)

	req := httptest.NewRequest(http.MethodGet, "/notes?cursor="+cursor, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if gotBeforeID != id {
		t.Errorf("cursor id %q did not reach the store, got %q", id, gotBeforeID)
	}

	var out struct {
		NextCursor *string `json:"nextCursor"`
		HasMore    bool    `json:"hasMore"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("could not decode body: %v", err)
	}

	if out.NextCursor == nil || *out.NextCursor != next || !out.HasMore {
		t.Errorf("paging fields wrong: %+v", out)
	}

	// malformed cursor
	req = httptest.NewRequest(http.MethodGet, "/notes?cursor=%21%21%21", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d for bad cursor, want 400", w.Code)
	}
}

func TestGetNoteCountsView(t *testing.T) {
	id := newUUID()
	getCalls := 0

	store := &fakeNotesStore{
		getFn: func(ctx context.Context, gotID string) (note.Note, error) {
			getCalls++
			return note.Note{ID: gotID, Views: 7}, nil
		},
	}

	h := handlers.NewNotesHandler(store, nil, nil)
	r := setupRouter(http.MethodGet, "/notes/:id", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/notes/"+id, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if getCalls != 1 {
		t.Errorf("GetByID called %d times", getCalls)
	}

	// non-uuid ids never reach the store
	req = httptest.NewRequest(http.MethodGet, "/notes/not-a-uuid", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d for bad id, want 404", w.Code)
	}

	if getCalls != 1 {
		t.Errorf("store was called for a malformed id")
	}
}

func TestUpdateNoteOwnership(t *testing.T) {
	noteID := newUUID()
	ownerID := newUUID()
	strangerID := newUUID()

	stored := note.Note{ID: noteID, UploadedBy: ownerID, Title: "before"}

	body := `{
		"title": "after",
		"subject": "physics",
		"chapter": "1",
		"topic": "t",
		"description": "d",
		"content": "c"
	}`

	tests := []struct {
		name           string
		callerID       string
		callerRole     string
		wantStatusCode int
	}{
		{"owner_can_update", ownerID, user.RoleStudent, http.StatusOK},
		{"stranger_forbidden", strangerID, user.RoleStudent, http.StatusForbidden},
		{"admin_can_update", strangerID, user.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeNotesStore{
				peekFn: func(ctx context.Context, id string) (note.Note, error) {
					return stored, nil
				},
				updateFn: func(ctx context.Context, id string, req note.UpdateNoteRequest) (note.Note, error) {
					updated := stored
					updated.Title = req.Title
					return updated, nil
				},
			}

			h := handlers.NewNotesHandler(store, nil, nil)
			r := authedNotesRouter(http.MethodPut, "/notes/:id", h.Update)

			req := httptest.NewRequest(http.MethodPut, "/notes/"+noteID, jsonBody(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+sessionToken(t, tt.callerID, tt.callerRole))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteNoteRemovesStoredFile(t *testing.T) {
	noteID := newUUID()
	ownerID := newUUID()

	store := &fakeNotesStore{
		peekFn: func(ctx context.Context, id string) (note.Note, error) {
			return note.Note{ID: noteID, UploadedBy: ownerID, FileURL: "s3://test-bucket/notes/" + noteID + "/scan.pdf"}, nil
		},
	}

	files := &fakeStorage{}

	h := handlers.NewNotesHandler(store, files, nil)
	r := authedNotesRouter(http.MethodDelete, "/notes/:id", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/notes/"+noteID, nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, ownerID, user.RoleStudent))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if len(files.deletedKeys) != 1 || files.deletedKeys[0] != "notes/"+noteID+"/scan.pdf" {
		t.Errorf("stored object was not deleted: %v", files.deletedKeys)
	}
}

func TestNoteFileLink(t *testing.T) {
	noteID := newUUID()

	store := &fakeNotesStore{
		peekFn: func(ctx context.Context, id string) (note.Note, error) {
			return note.Note{ID: noteID, FileURL: "s3://test-bucket/notes/" + noteID + "/scan.pdf"}, nil
		},
	}

	h := handlers.NewNotesHandler(store, &fakeStorage{}, nil)
	r := setupRouter(http.MethodGet, "/notes/:id/file", h.FileLink)

	req := httptest.NewRequest(http.MethodGet, "/notes/"+noteID+"/file", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var out struct {
		URL string `json:"url"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("could not decode body: %v", err)
	}

	if out.URL != "https://signed.example.com/notes/"+noteID+"/scan.pdf" {
		t.Errorf("got url %q", out.URL)
	}

	// notes without attachments have no link to sign
	store.peekFn = func(ctx context.Context, id string) (note.Note, error) {
		return note.Note{ID: noteID}, nil
	}

	req = httptest.NewRequest(http.MethodGet, "/notes/"+noteID+"/file", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d for note without file, want 404", w.Code)
	}
}
