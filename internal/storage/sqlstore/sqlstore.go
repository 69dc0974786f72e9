// Package sqlstore provides the durable implementation of storage.Storage
// on top of database/sql. The driver is picked from the connection
// string: PostgreSQL through lib/pq, SQLite through mattn/go-sqlite3.
//
// The students table is created on first use if it does not exist. A
// nullable legacy "class" column is kept so rows written before the
// field was renamed to "sem" are still served with a semester.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/svharshitha92-max/CRUD/internal/storage"
	"github.com/svharshitha92-max/CRUD/internal/types"
)

const (
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25

	// Column list shared by every SELECT and RETURNING clause. The order
	// must match scanStudent.
	columns = `id, name, usn, COALESCE(NULLIF(sem, ''), class, ''), created_at`
)

// Store is the SQL-backed student store. The embedded *sql.DB is a
// connection pool and is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect dialect
}

var _ storage.Storage = (*Store)(nil)

// Open connects to dsn, verifies the connection and creates the schema.
// Every step runs under ctx, so a deadline on ctx bounds the whole call.
func Open(ctx context.Context, dsn string) (*Store, error) {
	d, source, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Open: %w", err)
	}

	db, err := sql.Open(d.driver, source)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Open: open db: %w", err)
	}

	if d.driver == sqliteDialect.driver {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxIdleTime(defaultConnMaxIdle)
		db.SetConnMaxLifetime(defaultConnMaxLife)
		db.SetMaxIdleConns(defaultMaxIdleConns)
		db.SetMaxOpenConns(defaultMaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore.Open: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore.Open: create table: %w", err)
	}

	return &Store{db: db, dialect: d}, nil
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.dialect.driver
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	student, err := storage.Prepare(student)
	if err != nil {
		return types.Student{}, err
	}

	taken, err := s.usnTaken(ctx, student.USN, "")
	if err != nil {
		return types.Student{}, fmt.Errorf("sqlstore.CreateStudent: %w", err)
	}
	if taken {
		return types.Student{}, storage.ErrConflict
	}

	// Microsecond precision survives a round-trip through both drivers.
	now := time.Now().UTC().Truncate(time.Microsecond)

	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`
			INSERT INTO students (id, name, usn, sem, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING `+columns),
		uuid.NewString(), student.Name, student.USN, student.Sem, now,
	)

	created, err := scanStudent(row)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent insert of the same usn.
			return types.Student{}, storage.ErrConflict
		}
		return types.Student{}, fmt.Errorf("sqlstore.CreateStudent: insert: %w", err)
	}

	return created, nil
}

func (s *Store) GetStudents(ctx context.Context, filter types.Filter) ([]types.Student, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Name != "" {
		conds = append(conds, s.dialect.lower+`(name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Name))+"%")
	}
	if filter.USN != "" {
		conds = append(conds, `usn = ?`)
		args = append(args, filter.USN)
	}
	if filter.Sem != "" {
		conds = append(conds, `COALESCE(NULLIF(sem, ''), class) = ?`)
		args = append(args, filter.Sem)
	}

	query := `SELECT ` + columns + ` FROM students`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore.GetStudents: scan row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore.GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

func (s *Store) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+columns+` FROM students WHERE id = ?`), id)

	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("sqlstore.GetStudentByID: scan: %w", err)
	}

	return student, nil
}

func (s *Store) UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error) {
	if _, err := s.GetStudentByID(ctx, id); err != nil {
		return types.Student{}, err
	}

	student, err := storage.Prepare(student)
	if err != nil {
		return types.Student{}, err
	}

	taken, err := s.usnTaken(ctx, student.USN, id)
	if err != nil {
		return types.Student{}, fmt.Errorf("sqlstore.UpdateStudentByID: %w", err)
	}
	if taken {
		return types.Student{}, storage.ErrConflict
	}

	// class is cleared so the legacy value can no longer shadow sem.
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`
			UPDATE students SET name = ?, usn = ?, sem = ?, class = NULL
			WHERE id = ?
			RETURNING `+columns),
		student.Name, student.USN, student.Sem, id,
	)

	updated, err := scanStudent(row)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Deleted between the lookup and the update.
			return types.Student{}, storage.ErrNotFound
		case isUniqueViolation(err):
			return types.Student{}, storage.ErrConflict
		}
		return types.Student{}, fmt.Errorf("sqlstore.UpdateStudentByID: exec: %w", err)
	}

	return updated, nil
}

func (s *Store) DeleteStudentByID(ctx context.Context, id string) (types.Student, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`DELETE FROM students WHERE id = ? RETURNING `+columns), id)

	deleted, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("sqlstore.DeleteStudentByID: exec: %w", err)
	}

	return deleted, nil
}

func (s *Store) usnTaken(ctx context.Context, usn, exceptID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT COUNT(*) FROM students WHERE usn = ? AND id <> ?`),
		usn, exceptID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check usn: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (types.Student, error) {
	var (
		student   types.Student
		createdAt timestamp
	)

	if err := row.Scan(
		&student.ID,
		&student.Name,
		&student.USN,
		&student.Sem,
		&createdAt,
	); err != nil {
		return types.Student{}, err
	}

	t := time.Time(createdAt).UTC()
	student.CreatedAt = &t
	return student, nil
}

// escapeLike makes % and _ in s match literally under ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
