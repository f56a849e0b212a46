package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/botcast/worker/internal/repo"
)

func newTestServer() (*Server, *repo.MemoryScriptRepo, *repo.MemoryTaskRepo, *repo.MemoryUserRepo) {
	scripts := repo.NewMemoryScriptRepo()
	tasks := repo.NewMemoryTaskRepo()
	users := repo.NewMemoryUserRepo()

	s := New(Deps{
		Scripts: scripts,
		Tasks:   tasks,
		Users:   users,
	})
	return s, scripts, tasks, users
}

func TestVersionRequiresNoAuth(t *testing.T) {
	s, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTaskRequiresAuth(t *testing.T) {
	s, _, _, _ := newTestServer()

	body := `{"type":"EvaluateScript","scriptId":"s1"}`
	req := httptest.NewRequest(http.MethodPost, "/createTask", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTaskInsertsPendingTask(t *testing.T) {
	s, _, tasks, users := newTestServer()
	users.Put("Bearer pk_12345678abcdef", &repo.User{ID: "u1", Name: "Ada"})

	body := `{"type":"EvaluateScript","scriptId":"s1"}`
	req := httptest.NewRequest(http.MethodPost, "/createTask", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer pk_12345678abcdef")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got repo.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Args.ScriptID != "s1" || got.Status != repo.TaskPending {
		t.Fatalf("unexpected task: %+v", got)
	}

	stored, err := tasks.FindByID(req.Context(), got.ID)
	if err != nil {
		t.Fatalf("find created task: %v", err)
	}
	if stored.Status != repo.TaskPending {
		t.Fatalf("expected Pending, got %s", stored.Status)
	}
}

func TestCreateTaskRejectsUnknownArgsType(t *testing.T) {
	s, _, _, users := newTestServer()
	users.Put("Bearer pk_12345678abcdef", &repo.User{ID: "u1"})

	body := `{"type":"Bogus"}`
	req := httptest.NewRequest(http.MethodPost, "/createTask", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer pk_12345678abcdef")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateScriptNotFound(t *testing.T) {
	s, _, _, users := newTestServer()
	users.Put("Bearer pk_12345678abcdef", &repo.User{ID: "u1"})

	req := httptest.NewRequest(http.MethodPost, "/scripts/missing", bytes.NewBufferString(`{"title":"x","sections":[]}`))
	req.Header.Set("Authorization", "Bearer pk_12345678abcdef")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateScriptUpdatesTemplate(t *testing.T) {
	s, scripts, _, users := newTestServer()
	users.Put("Bearer pk_12345678abcdef", &repo.User{ID: "u1"})
	scripts.Put(&repo.Script{ID: "s1", OwnerID: "u1", Title: "old", Template: []byte(`{"title":"old","sections":[]}`)})

	req := httptest.NewRequest(http.MethodPost, "/scripts/s1", bytes.NewBufferString(`{"title":"new","sections":[]}`))
	req.Header.Set("Authorization", "Bearer pk_12345678abcdef")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := scripts.FindByID(req.Context(), "s1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if string(got.Template) != `{"title":"new","sections":[]}` {
		t.Fatalf("unexpected template: %s", got.Template)
	}
}

func TestEvalTemplateRendersWithContextBindings(t *testing.T) {
	s, _, _, users := newTestServer()
	users.Put("Bearer pk_12345678abcdef", &repo.User{ID: "u1"})

	body := `{"template": {"$eval": "a"}, "context": {"a": 42}}`
	req := httptest.NewRequest(http.MethodPost, "/evalTemplate", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer pk_12345678abcdef")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "42\n" && rec.Body.String() != "42" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestInvalidAPIKeyRejected(t *testing.T) {
	s, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/createTask", bytes.NewBufferString(`{}`))
	req.Header.Set("Authorization", "Bearer not-a-real-key")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}
