// Package memory provides a volatile, process-local implementation of
// storage.Storage. It is the fallback used when the durable database
// cannot be reached at startup; its contents are lost on restart.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/svharshitha92-max/CRUD/internal/storage"
	"github.com/svharshitha92-max/CRUD/internal/types"
)

// Memory keeps students in insertion order. A single RWMutex guards the
// slice and the id counter, so concurrent creates never hand out the same
// id and uniqueness checks never race with writes.
type Memory struct {
	mu       sync.RWMutex
	students []types.Student
	nextID   int64
}

// New returns an empty store whose first id is "1".
func New() *Memory {
	return &Memory{
		students: make([]types.Student, 0),
		nextID:   1,
	}
}

var _ storage.Storage = (*Memory)(nil)

func (m *Memory) CreateStudent(_ context.Context, student types.Student) (types.Student, error) {
	student, err := storage.Prepare(student)
	if err != nil {
		return types.Student{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usnTaken(student.USN, "") {
		return types.Student{}, storage.ErrConflict
	}

	student.ID = strconv.FormatInt(m.nextID, 10)
	student.CreatedAt = nil
	m.nextID++

	m.students = append(m.students, student)
	return student, nil
}

func (m *Memory) GetStudents(_ context.Context, filter types.Filter) ([]types.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	students := make([]types.Student, 0)
	for _, s := range m.students {
		if filter.Matches(s) {
			students = append(students, s)
		}
	}
	return students, nil
}

func (m *Memory) GetStudentByID(_ context.Context, id string) (types.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(id)
	if i < 0 {
		return types.Student{}, storage.ErrNotFound
	}
	return m.students[i], nil
}

func (m *Memory) UpdateStudentByID(_ context.Context, id string, student types.Student) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return types.Student{}, storage.ErrNotFound
	}

	student, err := storage.Prepare(student)
	if err != nil {
		return types.Student{}, err
	}

	if m.usnTaken(student.USN, id) {
		return types.Student{}, storage.ErrConflict
	}

	current := m.students[i]
	current.Name = student.Name
	current.USN = student.USN
	current.Sem = student.Sem
	m.students[i] = current

	return current, nil
}

func (m *Memory) DeleteStudentByID(_ context.Context, id string) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return types.Student{}, storage.ErrNotFound
	}

	deleted := m.students[i]
	m.students = append(m.students[:i], m.students[i+1:]...)
	return deleted, nil
}

// Len returns the number of stored students.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students)
}

// indexOf must be called with mu held.
func (m *Memory) indexOf(id string) int {
	for i, s := range m.students {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// usnTaken reports whether usn belongs to a student other than exceptID.
// Must be called with mu held.
func (m *Memory) usnTaken(usn, exceptID string) bool {
	for _, s := range m.students {
		if s.USN == usn && s.ID != exceptID {
			return true
		}
	}
	return false
}
