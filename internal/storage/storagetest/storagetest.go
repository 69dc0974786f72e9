// Package storagetest holds a behavioural test suite that every
// storage.Storage implementation must pass. Backends call Run from their
// own _test.go files with a constructor for a fresh, empty store.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svharshitha92-max/CRUD/internal/storage"
	"github.com/svharshitha92-max/CRUD/internal/types"
)

// Factory returns a new empty store. It is called once per subtest.
type Factory func(t *testing.T) storage.Storage

// Options tunes expectations that legitimately differ between backends.
type Options struct {
	// WantCreatedAt is true for backends that stamp a creation time.
	WantCreatedAt bool
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory, opts Options) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		s := newStore(t)

		created, err := s.CreateStudent(ctx, types.Student{Name: "Asha", USN: "U001", Sem: "3"})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		if opts.WantCreatedAt {
			require.NotNil(t, created.CreatedAt)
		} else {
			require.Nil(t, created.CreatedAt)
		}

		got, err := s.GetStudentByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Asha", got.Name)
		assert.Equal(t, "U001", got.USN)
		assert.Equal(t, "3", got.Sem)
		assert.Empty(t, got.Class)
	})

	t.Run("legacy class is stored as sem", func(t *testing.T) {
		s := newStore(t)

		created, err := s.CreateStudent(ctx, types.Student{Name: "Ravi", USN: "U010", Class: "6"})
		require.NoError(t, err)
		assert.Equal(t, "6", created.Sem)

		got, err := s.GetStudents(ctx, types.Filter{Sem: "6"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, created.ID, got[0].ID)
	})

	t.Run("ids are unique", func(t *testing.T) {
		s := newStore(t)

		a, err := s.CreateStudent(ctx, types.Student{Name: "A", USN: "U1", Sem: "1"})
		require.NoError(t, err)
		b, err := s.CreateStudent(ctx, types.Student{Name: "B", USN: "U2", Sem: "1"})
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("duplicate usn on create", func(t *testing.T) {
		s := newStore(t)

		_, err := s.CreateStudent(ctx, types.Student{Name: "Asha", USN: "U001", Sem: "3"})
		require.NoError(t, err)

		_, err = s.CreateStudent(ctx, types.Student{Name: "Someone Else", USN: "U001", Sem: "5"})
		require.ErrorIs(t, err, storage.ErrConflict)

		all, err := s.GetStudents(ctx, types.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		s := newStore(t)

		for _, in := range []types.Student{
			{USN: "U1", Sem: "1"},
			{Name: "A", Sem: "1"},
			{Name: "A", USN: "U1"},
		} {
			_, err := s.CreateStudent(ctx, in)
			var verr *storage.ValidationError
			require.True(t, errors.As(err, &verr), "create %+v: got %v", in, err)
		}

		all, err := s.GetStudents(ctx, types.Filter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("update", func(t *testing.T) {
		s := newStore(t)

		asha, err := s.CreateStudent(ctx, types.Student{Name: "Asha", USN: "U001", Sem: "3"})
		require.NoError(t, err)
		_, err = s.CreateStudent(ctx, types.Student{Name: "Bob", USN: "U002", Sem: "3"})
		require.NoError(t, err)

		updated, err := s.UpdateStudentByID(ctx, asha.ID, types.Student{Name: "Asha K", USN: "U001", Sem: "4"})
		require.NoError(t, err, "keeping its own usn must succeed")
		assert.Equal(t, asha.ID, updated.ID)
		assert.Equal(t, "Asha K", updated.Name)
		assert.Equal(t, "4", updated.Sem)
		if opts.WantCreatedAt {
			require.NotNil(t, updated.CreatedAt)
			assert.True(t, asha.CreatedAt.Equal(*updated.CreatedAt))
		}

		_, err = s.UpdateStudentByID(ctx, asha.ID, types.Student{Name: "Asha", USN: "U002", Sem: "4"})
		require.ErrorIs(t, err, storage.ErrConflict)

		_, err = s.UpdateStudentByID(ctx, asha.ID, types.Student{Name: "Asha", USN: "U001"})
		var verr *storage.ValidationError
		require.True(t, errors.As(err, &verr))

		got, err := s.GetStudentByID(ctx, asha.ID)
		require.NoError(t, err)
		assert.Equal(t, "Asha K", got.Name)
		assert.Equal(t, "U001", got.USN)
	})

	t.Run("update unknown id", func(t *testing.T) {
		s := newStore(t)

		_, err := s.UpdateStudentByID(ctx, "does-not-exist", types.Student{Name: "A", USN: "U1", Sem: "1"})
		require.ErrorIs(t, err, storage.ErrNotFound)

		// Existence is checked before the payload.
		_, err = s.UpdateStudentByID(ctx, "does-not-exist", types.Student{})
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)

		created, err := s.CreateStudent(ctx, types.Student{Name: "Asha", USN: "U001", Sem: "3"})
		require.NoError(t, err)

		deleted, err := s.DeleteStudentByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, deleted.ID)
		assert.Equal(t, "Asha", deleted.Name)

		_, err = s.GetStudentByID(ctx, created.ID)
		require.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.DeleteStudentByID(ctx, created.ID)
		require.ErrorIs(t, err, storage.ErrNotFound)

		// The usn is free again.
		_, err = s.CreateStudent(ctx, types.Student{Name: "Asha", USN: "U001", Sem: "3"})
		require.NoError(t, err)
	})

	t.Run("list and filter", func(t *testing.T) {
		s := newStore(t)

		all, err := s.GetStudents(ctx, types.Filter{})
		require.NoError(t, err)
		require.NotNil(t, all)
		assert.Empty(t, all)

		ids := map[string]string{}
		for _, in := range []types.Student{
			{Name: "Anna", USN: "U1", Sem: "3"},
			{Name: "Sanjay", USN: "U2", Sem: "4"},
			{Name: "Bob", USN: "U3", Sem: "3"},
		} {
			created, err := s.CreateStudent(ctx, in)
			require.NoError(t, err)
			ids[created.Name] = created.ID
		}

		_, err = s.DeleteStudentByID(ctx, ids["Bob"])
		require.NoError(t, err)

		all, err = s.GetStudents(ctx, types.Filter{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Anna", "Sanjay"}, names(all))

		_, err = s.CreateStudent(ctx, types.Student{Name: "Bob", USN: "U3", Sem: "3"})
		require.NoError(t, err)
		_, err = s.CreateStudent(ctx, types.Student{Name: "Élodie", USN: "U4", Sem: "5"})
		require.NoError(t, err)

		tests := []struct {
			name   string
			filter types.Filter
			want   []string
		}{
			{"name substring, case-insensitive", types.Filter{Name: "an"}, []string{"Anna", "Sanjay"}},
			{"name upper case", types.Filter{Name: "AN"}, []string{"Anna", "Sanjay"}},
			{"usn exact", types.Filter{USN: "U2"}, []string{"Sanjay"}},
			{"usn is not a substring match", types.Filter{USN: "U"}, []string{}},
			{"sem exact", types.Filter{Sem: "3"}, []string{"Anna", "Bob"}},
			{"combined", types.Filter{Name: "b", Sem: "3"}, []string{"Bob"}},
			{"like wildcards are literal", types.Filter{Name: "%"}, []string{}},
			{"name folds non-ascii case", types.Filter{Name: "élo"}, []string{"Élodie"}},
			{"name upper non-ascii", types.Filter{Name: "ÉLODIE"}, []string{"Élodie"}},
			{"no match", types.Filter{Name: "zzz"}, []string{}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.GetStudents(ctx, tt.filter)
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.ElementsMatch(t, tt.want, names(got))
			})
		}
	})

	t.Run("get unknown id", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetStudentByID(ctx, "not-an-id")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("concurrent creates", func(t *testing.T) {
		s := newStore(t)

		const workers = 20
		var wg sync.WaitGroup
		errs := make(chan error, workers*2)

		for i := 0; i < workers; i++ {
			wg.Add(2)
			usn := fmt.Sprintf("U%03d", i)
			// Two goroutines race for every usn; exactly one may win.
			for j := 0; j < 2; j++ {
				go func() {
					defer wg.Done()
					_, err := s.CreateStudent(ctx, types.Student{Name: "Student", USN: usn, Sem: "1"})
					errs <- err
				}()
			}
		}
		wg.Wait()
		close(errs)

		var ok, conflicts int
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, storage.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, workers, ok)
		assert.Equal(t, workers, conflicts)

		all, err := s.GetStudents(ctx, types.Filter{})
		require.NoError(t, err)
		require.Len(t, all, workers)

		seen := make(map[string]bool, len(all))
		for _, st := range all {
			assert.False(t, seen[st.ID], "duplicate id %s", st.ID)
			seen[st.ID] = true
		}
	})
}

func names(students []types.Student) []string {
	out := make([]string, 0, len(students))
	for _, s := range students {
		out = append(out, s.Name)
	}
	return out
}
