package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/infra/firestore"
	"github.com/m-mizutani/releasepost/pkg/infra/memory"
	"github.com/m-mizutani/releasepost/pkg/infra/sqlite"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Storage backends
const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StorageFirestore = "firestore"
)

// Storage holds record store configuration
type Storage struct {
	Backend             string
	SQLitePath          string
	FirestoreProjectID  string
	FirestoreDatabaseID string
	FirestoreCollection string
	CredentialsFile     string
}

// Flags returns CLI flags for storage configuration
func (c *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage",
			Usage:       "Record store backend (memory, sqlite, firestore)",
			Value:       StorageSQLite,
			Destination: &c.Backend,
			Sources:     cli.EnvVars("RELEASEPOST_STORAGE"),
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file",
			Value:       "releasepost.db",
			Destination: &c.SQLitePath,
			Sources:     cli.EnvVars("RELEASEPOST_SQLITE_PATH"),
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project ID of Firestore",
			Destination: &c.FirestoreProjectID,
			Sources:     cli.EnvVars("RELEASEPOST_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Destination: &c.FirestoreDatabaseID,
			Sources:     cli.EnvVars("RELEASEPOST_FIRESTORE_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection holding records",
			Value:       firestore.DefaultCollection,
			Destination: &c.FirestoreCollection,
			Sources:     cli.EnvVars("RELEASEPOST_FIRESTORE_COLLECTION"),
		},
		&cli.StringFlag{
			Name:        "google-credentials",
			Usage:       "Service account credentials file for Google Cloud (default: application default credentials)",
			Destination: &c.CredentialsFile,
			Sources:     cli.EnvVars("RELEASEPOST_GOOGLE_CREDENTIALS"),
		},
	}
}

// ClientOptions returns Google Cloud client options shared by Firestore and Cloud Storage
func (c *Storage) ClientOptions() []option.ClientOption {
	if c.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
}

// Configure opens the configured record store. The returned function releases it.
func (c *Storage) Configure(ctx context.Context) (interfaces.RecordRepository, func(), error) {
	logger := ctxlog.From(ctx)

	switch c.Backend {
	case StorageMemory:
		logger.Warn("Using in-memory record store; records are lost on exit")
		return memory.New(), func() {}, nil

	case StorageSQLite:
		repo, err := sqlite.Open(ctx, c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using SQLite record store", slog.String("path", c.SQLitePath))
		return repo, closer(ctx, repo.Close), nil

	case StorageFirestore:
		if c.FirestoreProjectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required for firestore storage")
		}
		repo, err := firestore.New(ctx, c.FirestoreProjectID, c.FirestoreDatabaseID,
			firestore.WithCollection(c.FirestoreCollection),
			firestore.WithClientOptions(c.ClientOptions()...),
		)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Firestore record store",
			slog.String("project_id", c.FirestoreProjectID),
			slog.String("database_id", c.FirestoreDatabaseID),
		)
		return repo, closer(ctx, repo.Close), nil

	default:
		return nil, nil, goerr.New("unknown storage backend", goerr.V("backend", c.Backend))
	}
}

// MigrateFirestore creates the Firestore indexes the record store queries with.
func (c *Storage) MigrateFirestore(ctx context.Context) error {
	if c.Backend != StorageFirestore {
		return goerr.New("migration is only needed for firestore storage", goerr.V("backend", c.Backend))
	}
	if c.FirestoreProjectID == "" {
		return goerr.New("firestore-project-id is required for firestore storage")
	}

	ctxlog.From(ctx).Info("Migrating Firestore indexes",
		slog.String("project_id", c.FirestoreProjectID),
		slog.String("database_id", c.FirestoreDatabaseID),
		slog.String("collection", c.FirestoreCollection),
	)
	return firestore.Migrate(ctx, c.FirestoreProjectID, c.FirestoreDatabaseID, c.FirestoreCollection)
}

func closer(ctx context.Context, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			ctxlog.From(ctx).Warn("Failed to close resource", slog.Any("error", err))
		}
	}
}
