package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// sqliteDriver is go-sqlite3 with go_lower registered on every
// connection. SQLite's own LOWER and LIKE only fold ASCII letters.
const sqliteDriver = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("go_lower", strings.ToLower, true)
		},
	})
}

// dialect captures the few places where SQLite and PostgreSQL differ.
type dialect struct {
	driver string
	schema string

	// lower is the SQL function used for case-insensitive name matching.
	lower string

	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	sqliteDialect = dialect{
		driver: sqliteDriver,
		lower:  "go_lower",
		schema: `
			CREATE TABLE IF NOT EXISTS students (
				id         TEXT     PRIMARY KEY,
				name       TEXT     NOT NULL,
				usn        TEXT     NOT NULL UNIQUE,
				sem        TEXT     NOT NULL DEFAULT '',
				class      TEXT,
				created_at DATETIME NOT NULL
			)`,
	}

	postgresDialect = dialect{
		driver:   "postgres",
		lower:    "LOWER",
		numbered: true,
		schema: `
			CREATE TABLE IF NOT EXISTS students (
				id         TEXT        PRIMARY KEY,
				name       TEXT        NOT NULL,
				usn        TEXT        NOT NULL UNIQUE,
				sem        TEXT        NOT NULL DEFAULT '',
				class      TEXT,
				created_at TIMESTAMPTZ NOT NULL
			)`,
	}
)

// parseDSN picks the dialect from the connection string scheme and returns
// the data source name understood by that driver.
//
//	postgres://... | postgresql://...      -> lib/pq, unchanged
//	sqlite://path  | sqlite3://path         -> go-sqlite3, "path"
//	file:path                               -> go-sqlite3, unchanged
func parseDSN(dsn string) (dialect, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgresDialect, dsn, nil
	case strings.HasPrefix(dsn, "sqlite3://"):
		return sqliteDialect, strings.TrimPrefix(dsn, "sqlite3://"), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqliteDialect, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "file:"):
		return sqliteDialect, dsn, nil
	default:
		return dialect{}, "", fmt.Errorf("unsupported database url %q: expected postgres://, sqlite:// or file:", redact(dsn))
	}
}

// rebind rewrites ? placeholders for drivers that want $n.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure
// from either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}

	return false
}

// redact hides the password of a URL-style DSN for log and error output.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return dsn[:scheme+3] + userinfo[:colon] + ":xxxxx" + dsn[at:]
	}
	return dsn
}

// timestamp scans created_at from either driver. go-sqlite3 only converts
// to time.Time when it can see the column's declared type, which it cannot
// for RETURNING clauses, so the text form is parsed here as well.
type timestamp time.Time

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = timestamp(v)
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = timestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("sqlstore: cannot parse timestamp %q", s)
}
