// Package repo selects and opens the storage backend shared by the user and task repositories.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/mkrupp/taskmanager/internal/infra/logging"
	"github.com/mkrupp/taskmanager/internal/repo/task"
	"github.com/mkrupp/taskmanager/internal/repo/user"
)

// ErrUnsupportedStore is returned for a store URL with an unknown scheme.
var ErrUnsupportedStore = errors.New("unsupported store url")

const defaultMongoDatabase = "taskmanager"

// StoreConfig holds configuration for the storage backend.
type StoreConfig struct {
	// URL selects the backend by scheme: sqlite://<path>, postgres://..., mongodb://...
	URL string `env:"URL" default:"sqlite://var/storage/tasksvc.db"`

	// ConnectTimeout bounds the initial connection check
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" default:"10s"`
}

// Store is an open storage backend.
type Store struct {
	Backend string

	UserRepositoryFactory user.RepositoryFactory
	TaskRepositoryFactory task.RepositoryFactory

	close func(ctx context.Context) error
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// Open connects to the backend named by cfg.URL.
func Open(ctx context.Context, cfg StoreConfig) (_ *Store, err error) {
	log := logging.GetLogger("repo.store")

	scheme, _, ok := strings.Cut(cfg.URL, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStore, cfg.URL)
	}

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "open store failed", "backend", scheme, "error", err)
		} else {
			log.InfoContext(ctx, "store opened", "backend", scheme)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	switch scheme {
	case "sqlite":
		return openSQLite(ctx, strings.TrimPrefix(cfg.URL, "sqlite://"))
	case "postgres", "postgresql":
		return openPostgres(ctx, cfg.URL)
	case "mongodb", "mongodb+srv":
		return openMongo(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStore, scheme)
	}
}

// SQLiteDSN builds a modernc.org/sqlite data source name with foreign keys
// enabled and a busy timeout on every connection.
func SQLiteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func openSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedStore)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	writeLock := new(sync.Mutex)

	return &Store{
		Backend:               "sqlite",
		UserRepositoryFactory: user.SQLiteUserRepositoryFactory(db, writeLock),
		TaskRepositoryFactory: task.SQLiteTaskRepositoryFactory(db, writeLock),
		close:                 closeSQL(db),
	}, nil
}

func openPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{
		Backend:               "postgres",
		UserRepositoryFactory: user.PostgresUserRepositoryFactory(db),
		TaskRepositoryFactory: task.PostgresTaskRepositoryFactory(db),
		close:                 closeSQL(db),
	}, nil
}

func openMongo(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))

		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(MongoDatabaseName(uri))

	return &Store{
		Backend:               "mongodb",
		UserRepositoryFactory: user.MongoUserRepositoryFactory(db),
		TaskRepositoryFactory: task.MongoTaskRepositoryFactory(db),
		close: func(ctx context.Context) error {
			if err := client.Disconnect(ctx); err != nil {
				return fmt.Errorf("disconnect mongo: %w", err)
			}

			return nil
		},
	}, nil
}

// MongoDatabaseName returns the database named in the URI path, or "taskmanager".
func MongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}

	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}

	return defaultMongoDatabase
}

func closeSQL(db *sql.DB) func(context.Context) error {
	return func(context.Context) error {
		if err := db.Close(); err != nil {
			return fmt.Errorf("close db: %w", err)
		}

		return nil
	}
}
