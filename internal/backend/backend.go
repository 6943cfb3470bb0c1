// Package backend builds the configured store.Store.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"gigledger/internal/config"
	"gigledger/internal/store"
	"gigledger/internal/store/firestore"
	"gigledger/internal/store/memory"
	"gigledger/internal/storage"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the store and an optional cleanup function. Tracker
// is set when the backend records export state; Ping when it can be probed.
type BackendResult struct {
	Store   store.Store
	Tracker store.SyncTracker
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Firestore specific
	FirestoreProjectID    string
	GoogleCredentialsFile string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend    BackendType = "memory"
	SQLiteBackend    BackendType = "sqlite"
	FirestoreBackend BackendType = "firestore"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	bt := BackendType(appConfig.DataBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:                  bt,
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		FirestoreProjectID:    appConfig.FirestoreProjectID,
		GoogleCredentialsFile: appConfig.GoogleCredentialsFile,
		DataDirectory:         appConfig.DataDir,
	}, nil
}

// Create opens the store selected by cfg.Type.
func Create(ctx context.Context, logger *slog.Logger, cfg Config) (*BackendResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &BackendResult{Store: repo, Tracker: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil

	case FirestoreBackend:
		fs, err := firestore.New(ctx, firestore.Config{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firestore: %w", err)
		}
		logger.Info("Initialized Firestore backend", "project_id", cfg.FirestoreProjectID)
		return &BackendResult{Store: fs, Ping: fs.Ping, Cleanup: fs.Close}, nil

	case MemoryBackend:
		dataDir := cfg.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		logger.Info("Initialized memory backend", "data_directory", dataDir)
		return &BackendResult{Store: memory.NewFromFiles(dataDir)}, nil

	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}
}
