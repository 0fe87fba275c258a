// Package backup keeps one whole-state backup file in a remote file store.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultFileName is the backup file's name in the user's storage.
const DefaultFileName = "xpert_studio_backup.json"

var ErrNoBackup = errors.New("no backup found")

// FileStore is the slice of a remote drive the backup needs.
type FileStore interface {
	// Find returns the id of the first non-trashed file called name.
	Find(ctx context.Context, name string) (id string, found bool, err error)
	Create(ctx context.Context, name string, data []byte) error
	Update(ctx context.Context, id string, data []byte) error
	Download(ctx context.Context, id string) ([]byte, error)
}

// Result reports which branch of the upsert ran.
type Result struct {
	Created bool `json:"created,omitempty"`
	Updated bool `json:"updated,omitempty"`
}

type Service struct {
	fileName string
	logger   *slog.Logger
}

func NewService(fileName string) *Service {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Service{
		fileName: fileName,
		logger:   slog.Default().With("component", "backup"),
	}
}

func (s *Service) FileName() string { return s.fileName }

// Save replaces the backup file's content, creating it on first use.
// Concurrent saves are last writer wins.
func (s *Service) Save(ctx context.Context, fs FileStore, data []byte) (Result, error) {
	id, found, err := fs.Find(ctx, s.fileName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to look up backup: %w", err)
	}

	if found {
		if err := fs.Update(ctx, id, data); err != nil {
			return Result{}, fmt.Errorf("failed to update backup: %w", err)
		}
		s.logger.Info("backup updated", "file", s.fileName, "bytes", len(data))
		return Result{Updated: true}, nil
	}

	if err := fs.Create(ctx, s.fileName, data); err != nil {
		return Result{}, fmt.Errorf("failed to create backup: %w", err)
	}
	s.logger.Info("backup created", "file", s.fileName, "bytes", len(data))
	return Result{Created: true}, nil
}

// Load returns the raw backup content or ErrNoBackup.
func (s *Service) Load(ctx context.Context, fs FileStore) ([]byte, error) {
	id, found, err := fs.Find(ctx, s.fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up backup: %w", err)
	}
	if !found {
		return nil, ErrNoBackup
	}

	data, err := fs.Download(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to download backup: %w", err)
	}
	return data, nil
}
