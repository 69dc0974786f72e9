// Package storage defines the Storage interface, the contract every
// student backend satisfies, together with the error taxonomy and the
// validation step shared by all backends.
//
// Handlers depend only on this interface. The concrete backend (SQL or
// in-memory) is picked once at startup by the selector package and
// injected into the handlers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/svharshitha92-max/CRUD/internal/types"
)

var (
	// ErrNotFound is returned when no student has the requested id.
	ErrNotFound = errors.New("student not found")

	// ErrConflict is returned when a write would duplicate an existing USN.
	ErrConflict = errors.New("student with this USN already exists")
)

// ValidationError reports which required fields were missing from a
// create or update payload.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field())
	}
	return "name, usn and sem are required: missing " + strings.Join(names, ", ")
}

// Storage is the student store contract. Implementations must be safe
// for concurrent use.
type Storage interface {
	// CreateStudent validates and stores a new student and returns the
	// stored record with its backend-assigned id.
	// Errors: *ValidationError, ErrConflict.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// GetStudents returns every student matching filter. It returns an
	// empty slice (not nil) when nothing matches.
	GetStudents(ctx context.Context, filter types.Filter) ([]types.Student, error)

	// GetStudentByID returns one student or ErrNotFound.
	GetStudentByID(ctx context.Context, id string) (types.Student, error)

	// UpdateStudentByID replaces name, usn and sem of an existing student.
	// The id and creation time are preserved.
	// Errors: ErrNotFound, *ValidationError, ErrConflict.
	UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error)

	// DeleteStudentByID removes a student and returns the removed record,
	// or ErrNotFound.
	DeleteStudentByID(ctx context.Context, id string) (types.Student, error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names ("sem", not "Sem").
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Prepare normalizes student and checks the required fields. Every
// backend calls it before writing, so validation outcomes do not depend
// on the backend in use.
func Prepare(student types.Student) (types.Student, error) {
	student = student.Normalize()

	if err := validate.Struct(student); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			return types.Student{}, &ValidationError{Fields: fields}
		}
		return types.Student{}, fmt.Errorf("storage.Prepare: %w", err)
	}

	return student, nil
}
