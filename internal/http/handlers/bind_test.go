package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bsebcampus/campus-api/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindTarget(ctx *gin.Context) {
	var req handlers.RegisterRequest
	if !handlers.BindJSON(ctx, &req) {
		return
	}
	ctx.Status(http.StatusCreated)
}

func postBind(t *testing.T, body string) (*httptest.ResponseRecorder, bindErrorResponse) {
	t.Helper()

	r := gin.New()
	r.POST("/auth/register", bindTarget)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp bindErrorResponse

	if w.Code != http.StatusCreated {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
		}
	}

	return w, resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w, resp := postBind(t, `{"username": "ab", "email": "not-an-email"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"username": "min",
		"email":    "email",
		"name":     "required",
		"number":   "required",
		"password": "required",
	}

	got := map[string]string{}
	for _, fe := range resp.Error.Details.Fields {
		got[fe.Field] = fe.Rule
	}

	for field, rule := range wantRules {
		if got[field] != rule {
			t.Errorf("field %q: got rule %q, want %q (all: %v)", field, got[field], rule, got)
		}
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w, resp := postBind(t, `{"username": `)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if resp.Error.Details.JSON != "invalid_json_syntax" {
		t.Errorf("got json detail %q", resp.Error.Details.JSON)
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w, resp := postBind(t, `{"username": 42}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Errorf("got json detail %q", resp.Error.Details.JSON)
	}

	if resp.Error.Details.Field != "username" {
		t.Errorf("got field %q, want username", resp.Error.Details.Field)
	}
}

func TestBindJSON_ValidBodyPasses(t *testing.T) {
	w, _ := postBind(t, registerBody)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}
