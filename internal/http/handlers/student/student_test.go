package student

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svharshitha92-max/CRUD/internal/storage"
	"github.com/svharshitha92-max/CRUD/internal/storage/memory"
	"github.com/svharshitha92-max/CRUD/internal/types"
)

func newRouter(store storage.Storage) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/students", GetList(store))
	r.Post("/api/students", New(store))
	r.Get("/api/students/{id}", GetByID(store))
	r.Put("/api/students/{id}", Update(store))
	r.Delete("/api/students/{id}", Delete(store))
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rr.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	}
	return rr, decoded
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"valid", `{"name":"Asha","usn":"U001","sem":"3"}`, http.StatusCreated, ""},
		{"legacy class", `{"name":"Asha","usn":"U001","class":"3"}`, http.StatusCreated, ""},
		{"numeric sem", `{"name":"Asha","usn":"U001","sem":3}`, http.StatusCreated, ""},
		{"numeric legacy class", `{"name":"Asha","usn":"U001","class":3}`, http.StatusCreated, ""},
		{"bool sem", `{"name":"Asha","usn":"U001","sem":true}`, http.StatusBadRequest, "field sem must be a string or number"},
		{"numeric name", `{"name":5,"usn":"U001","sem":"3"}`, http.StatusBadRequest, "field name must be a string"},
		{"empty body", ``, http.StatusBadRequest, "request body is empty"},
		{"malformed json", `{"name":`, http.StatusBadRequest, ""},
		{"missing sem", `{"name":"Asha","usn":"U001"}`, http.StatusBadRequest, "field sem is required"},
		{"missing all", `{}`, http.StatusBadRequest, "field name is required, field usn is required, field sem is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			rr, body := do(t, newRouter(store), http.MethodPost, "/api/students", tt.body)

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, "Student added", body["message"])
				assert.Equal(t, "ok", body["status"])
				student := body["student"].(map[string]any)
				assert.Equal(t, "1", student["id"])
				assert.Equal(t, "3", student["sem"])
				assert.NotContains(t, student, "class")
				assert.NotContains(t, student, "createdAt")
				assert.Equal(t, 1, store.Len())
				return
			}

			assert.Equal(t, "error", body["status"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
			assert.Equal(t, 0, store.Len(), "nothing may be persisted on failure")
		})
	}
}

func TestCreateDuplicateUSN(t *testing.T) {
	h := newRouter(memory.New())

	rr, _ := do(t, h, http.MethodPost, "/api/students", `{"name":"Asha","usn":"U001","sem":"3"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, body := do(t, h, http.MethodPost, "/api/students", `{"name":"Other","usn":"U001","sem":"5"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, storage.ErrConflict.Error(), body["error"])
}

func TestClientCannotChooseID(t *testing.T) {
	h := newRouter(memory.New())

	rr, body := do(t, h, http.MethodPost, "/api/students", `{"id":"999","name":"Asha","usn":"U001","sem":"3"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "1", body["student"].(map[string]any)["id"])
}

func TestLifecycle(t *testing.T) {
	h := newRouter(memory.New())

	rr, body := do(t, h, http.MethodPost, "/api/students", `{"name":"Asha","usn":"U001","sem":"3"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := body["student"].(map[string]any)["id"].(string)

	rr, body = do(t, h, http.MethodGet, "/api/students/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Asha", body["name"])
	assert.Equal(t, "U001", body["usn"])
	assert.Equal(t, "3", body["sem"])

	rr, body = do(t, h, http.MethodPut, "/api/students/"+id, `{"name":"Asha K","usn":"U001","sem":"4"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Student updated", body["message"])
	updated := body["updated"].(map[string]any)
	assert.Equal(t, "4", updated["sem"])
	assert.Equal(t, "Asha K", updated["name"])
	assert.Equal(t, id, updated["id"])

	rr, body = do(t, h, http.MethodDelete, "/api/students/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Student deleted", body["message"])
	assert.Equal(t, id, body["deleted"].(map[string]any)["id"])

	rr, _ = do(t, h, http.MethodGet, "/api/students/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateErrors(t *testing.T) {
	h := newRouter(memory.New())

	do(t, h, http.MethodPost, "/api/students", `{"name":"Asha","usn":"U001","sem":"3"}`)
	do(t, h, http.MethodPost, "/api/students", `{"name":"Bob","usn":"U002","sem":"3"}`)

	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
	}{
		{"unknown id", "42", `{"name":"X","usn":"U9","sem":"1"}`, http.StatusNotFound},
		{"usn of another student", "1", `{"name":"Asha","usn":"U002","sem":"3"}`, http.StatusBadRequest},
		{"missing name", "1", `{"usn":"U001","sem":"3"}`, http.StatusBadRequest},
		{"empty body", "1", ``, http.StatusBadRequest},
		{"legacy class", "1", `{"name":"Asha","usn":"U001","class":"6"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, _ := do(t, h, http.MethodPut, "/api/students/"+tt.id, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}

	rr, body := do(t, h, http.MethodGet, "/api/students/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "U001", body["usn"])
	assert.Equal(t, "6", body["sem"])
}

func TestDeleteUnknown(t *testing.T) {
	rr, body := do(t, newRouter(memory.New()), http.MethodDelete, "/api/students/7", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, storage.ErrNotFound.Error(), body["error"])
}

func TestGetList(t *testing.T) {
	h := newRouter(memory.New())

	rr, _ := do(t, h, http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	for _, body := range []string{
		`{"name":"Anna","usn":"U1","sem":"3"}`,
		`{"name":"Sanjay","usn":"U2","sem":"4"}`,
		`{"name":"Bob","usn":"U3","sem":"3"}`,
	} {
		rr, _ := do(t, h, http.MethodPost, "/api/students", body)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no filter", "", []string{"Anna", "Sanjay", "Bob"}},
		{"name", "?name=an", []string{"Anna", "Sanjay"}},
		{"usn", "?usn=U2", []string{"Sanjay"}},
		{"sem", "?sem=3", []string{"Anna", "Bob"}},
		{"class alias", "?class=4", []string{"Sanjay"}},
		{"combined", "?name=AN&sem=3", []string{"Anna"}},
		{"no match", "?name=zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/students"+tt.query, nil)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, http.StatusOK, rr.Code)

			var students []types.Student
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &students))

			got := make([]string, 0, len(students))
			for _, s := range students {
				got = append(got, s.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

// failingStore returns err from every call.
type failingStore struct{ err error }

func (f failingStore) CreateStudent(context.Context, types.Student) (types.Student, error) {
	return types.Student{}, f.err
}

func (f failingStore) GetStudents(context.Context, types.Filter) ([]types.Student, error) {
	return nil, f.err
}

func (f failingStore) GetStudentByID(context.Context, string) (types.Student, error) {
	return types.Student{}, f.err
}

func (f failingStore) UpdateStudentByID(context.Context, string, types.Student) (types.Student, error) {
	return types.Student{}, f.err
}

func (f failingStore) DeleteStudentByID(context.Context, string) (types.Student, error) {
	return types.Student{}, f.err
}

func TestUnexpectedStoreErrors(t *testing.T) {
	h := newRouter(failingStore{err: errors.New("connection reset")})
	valid := `{"name":"Asha","usn":"U001","sem":"3"}`

	tests := []struct {
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{http.MethodGet, "/api/students", "", http.StatusInternalServerError},
		{http.MethodGet, "/api/students/1", "", http.StatusInternalServerError},
		{http.MethodPost, "/api/students", valid, http.StatusBadRequest},
		{http.MethodPut, "/api/students/1", valid, http.StatusBadRequest},
		{http.MethodDelete, "/api/students/1", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rr, body := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "connection reset", body["error"])
		})
	}
}
