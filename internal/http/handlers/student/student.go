// Package student contains the HTTP handlers for the Student resource.
//
// Each handler is built by a factory that receives the store and returns
// an http.HandlerFunc closing over it:
//
//	r.Post("/", student.New(store))
//
// The factory runs once at route registration; the returned closure runs
// on every request. Handlers only decode input, call the store and map
// the outcome to a status code.
package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/svharshitha92-max/CRUD/internal/storage"
	"github.com/svharshitha92-max/CRUD/internal/types"
	"github.com/svharshitha92-max/CRUD/internal/utils/response"
)

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
//
// Request body (JSON), "class" is accepted in place of "sem" and either
// may be a string or a number:
//
//	{ "name": "Asha", "usn": "U001", "sem": "3" }
//
// Success response (201 Created):
//
//	{ "message": "Student added", "student": { "id": "1", ... } }
//
// Error responses:
//
//	400 Bad Request - empty or malformed body, missing field, duplicate usn,
//	                  or any storage failure
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		created, err := store.CreateStudent(r.Context(), student)
		if err != nil {
			slog.Error("error creating student", slog.String("error", err.Error()))
			writeStoreError(w, err, http.StatusBadRequest)
			return
		}

		slog.Info("student created", slog.String("id", created.ID))
		response.WriteJSON(w, http.StatusCreated,
			response.WithMessage("Student added", "student", created))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
//
// Optional query parameters:
//
//	name - case-insensitive substring
//	usn  - exact
//	sem  - exact ("class" accepted as an alias)
//
// Returns a JSON array, [] when nothing matches.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := types.Filter{
			Name: q.Get("name"),
			USN:  q.Get("usn"),
			Sem:  q.Get("sem"),
		}
		if filter.Sem == "" {
			filter.Sem = q.Get("class")
		}

		slog.Info("getting students",
			slog.String("name", filter.Name),
			slog.String("usn", filter.USN),
			slog.String("sem", filter.Sem))

		students, err := store.GetStudents(r.Context(), filter)
		if err != nil {
			slog.Error("error getting students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
//
//	200 OK        - the student
//	404 Not Found - unknown id
//	500 Internal  - storage failure
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("getting a student", slog.String("id", id))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			slog.Error("error getting student",
				slog.String("id", id),
				slog.String("error", err.Error()))
			writeStoreError(w, err, http.StatusInternalServerError)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Replaces name, usn and sem; the id and creation time are kept.
//
// Success response (200 OK):
//
//	{ "message": "Student updated", "updated": { ... } }
//
// Error responses:
//
//	404 Not Found   - unknown id
//	400 Bad Request - empty or malformed body, missing field, usn taken by
//	                  another student, or any storage failure
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("updating a student", slog.String("id", id))

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		updated, err := store.UpdateStudentByID(r.Context(), id, student)
		if err != nil {
			slog.Error("error updating student",
				slog.String("id", id),
				slog.String("error", err.Error()))
			writeStoreError(w, err, http.StatusBadRequest)
			return
		}

		slog.Info("student updated", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK,
			response.WithMessage("Student updated", "updated", updated))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
//
//	200 OK          - { "message": "Student deleted", "deleted": { ... } }
//	404 Not Found   - unknown id
//	400 Bad Request - storage failure
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("deleting a student", slog.String("id", id))

		deleted, err := store.DeleteStudentByID(r.Context(), id)
		if err != nil {
			slog.Error("error deleting student",
				slog.String("id", id),
				slog.String("error", err.Error()))
			writeStoreError(w, err, http.StatusBadRequest)
			return
		}

		slog.Info("student deleted", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK,
			response.WithMessage("Student deleted", "deleted", deleted))
	}
}

// decodeStudent reads the JSON body. On failure it has already written a
// 400 response and returns false.
func decodeStudent(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return types.Student{}, false
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(fmt.Errorf("field %s must be a string", typeErr.Field)))
		return types.Student{}, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Student{}, false
	}

	// Ids are assigned by the store, never taken from the client.
	student.ID = ""
	student.CreatedAt = nil
	return student, true
}

// writeStoreError maps the storage error taxonomy to HTTP. Anything
// outside the taxonomy is written with fallback.
func writeStoreError(w http.ResponseWriter, err error, fallback int) {
	var verr *storage.ValidationError

	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
	case errors.As(err, &verr):
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verr.Fields))
	case errors.Is(err, storage.ErrConflict):
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
	default:
		response.WriteJSON(w, fallback, response.GeneralError(err))
	}
}
