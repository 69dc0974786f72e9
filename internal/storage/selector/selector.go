// Package selector chooses the student backend once, at process start.
//
// The durable SQL store is tried first under a bounded timeout. If no
// database URL is configured, or the database cannot be reached in time,
// an empty in-memory store is used instead for the rest of the process
// lifetime. There is no reconnection later on.
package selector

import (
	"context"
	"log/slog"
	"time"

	"github.com/svharshitha92-max/CRUD/internal/storage"
	"github.com/svharshitha92-max/CRUD/internal/storage/memory"
	"github.com/svharshitha92-max/CRUD/internal/storage/sqlstore"
)

// Mode names the backend that was selected.
type Mode string

const (
	ModeDurable  Mode = "durable"
	ModeVolatile Mode = "volatile"
)

// DefaultTimeout bounds the startup connection attempt when the caller
// does not supply one.
const DefaultTimeout = 5 * time.Second

// Selection is the outcome of Select. It is immutable.
type Selection struct {
	Store  storage.Storage
	Mode   Mode
	Driver string

	closer interface{ Close() error }
}

// Connected reports whether the durable backend is in use.
func (s *Selection) Connected() bool {
	return s.Mode == ModeDurable
}

// Close releases the durable backend's resources, if any.
func (s *Selection) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Select tries to open the durable store at dsn within timeout and falls
// back to an in-memory store on any failure. It never returns an error:
// the fallback is the documented behaviour, and it is logged.
func Select(ctx context.Context, dsn string, timeout time.Duration, log *slog.Logger) *Selection {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if dsn == "" {
		log.Warn("no database url configured, using in-memory storage",
			slog.String("mode", string(ModeVolatile)))
		return volatile()
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store, err := sqlstore.Open(connectCtx, dsn)
	if err != nil {
		log.Warn("database connection failed, using in-memory storage",
			slog.String("error", err.Error()),
			slog.Duration("timeout", timeout),
			slog.String("mode", string(ModeVolatile)))
		log.Info("data will be lost on restart; set DATABASE_URL to a reachable database and restart")
		return volatile()
	}

	log.Info("connected to database",
		slog.String("driver", store.Driver()),
		slog.String("mode", string(ModeDurable)))

	return &Selection{
		Store:  store,
		Mode:   ModeDurable,
		Driver: store.Driver(),
		closer: store,
	}
}

func volatile() *Selection {
	return &Selection{
		Store:  memory.New(),
		Mode:   ModeVolatile,
		Driver: "memory",
	}
}
