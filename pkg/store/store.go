package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/studio/internal/models"
)

var ErrUnknownTab = errors.New("unknown tab")

// Backend persists the state blob under a key.
type Backend interface {
	// Load returns nil data when the key is absent.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type StoreConfig struct {
	Driver string // file, sqlite, postgres, memory
	Path   string
	URL    string
	Key    string
}

// Open returns the backend named by config.Driver.
func Open(ctx context.Context, config StoreConfig) (Backend, error) {
	switch config.Driver {
	case "", "file":
		return NewFileBackend(config.Path)
	case "sqlite":
		return NewSQLiteBackend(config.Path)
	case "postgres":
		return NewPostgresBackend(ctx, PostgresConfig{ConnString: config.URL})
	case "memory":
		return NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", config.Driver)
}

// StateStore holds the live state and writes it back after every change.
type StateStore struct {
	mu      sync.Mutex
	key     string
	backend Backend
	state   State
	lastTS  int64
	now     func() time.Time
	logger  *slog.Logger
}

func NewStateStore(backend Backend, key string) *StateStore {
	if key == "" {
		key = DefaultKey
	}
	return &StateStore{
		key:     key,
		backend: backend,
		state:   Empty(),
		now:     time.Now,
		logger:  slog.Default().With("component", "store"),
	}
}

// Load replaces the in-memory state with the stored one.
func (s *StateStore) Load(ctx context.Context) error {
	data, err := s.backend.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Decode(data)
	s.lastTS = latestTimestamp(s.state.GenImg)
	return nil
}

func (s *StateStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// AddInputs appends images to a tab's inputs.
func (s *StateStore) AddInputs(ctx context.Context, tab models.Tab, images ...string) error {
	return s.update(ctx, func(st *State) error {
		list := st.inputs(tab)
		if list == nil {
			return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
		}
		*list = append(*list, images...)
		return nil
	})
}

// Transfer puts an image at the front of a tab's inputs.
func (s *StateStore) Transfer(ctx context.Context, image string, tab models.Tab) error {
	return s.update(ctx, func(st *State) error {
		list := st.inputs(tab)
		if list == nil {
			return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
		}
		*list = append([]string{image}, *list...)
		return nil
	})
}

// RemoveInput drops the input at index. Out of range indexes are ignored.
func (s *StateStore) RemoveInput(ctx context.Context, tab models.Tab, index int) error {
	return s.update(ctx, func(st *State) error {
		list := st.inputs(tab)
		if list == nil {
			return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
		}
		if index < 0 || index >= len(*list) {
			return nil
		}
		*list = append((*list)[:index:index], (*list)[index+1:]...)
		return nil
	})
}

func (s *StateStore) ClearInputs(ctx context.Context, tab models.Tab) error {
	return s.update(ctx, func(st *State) error {
		list := st.inputs(tab)
		if list == nil {
			return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
		}
		*list = []string{}
		return nil
	})
}

// AddGenerated puts img at the front of the gallery. Missing ids are filled in
// and timestamps always increase.
func (s *StateStore) AddGenerated(ctx context.Context, img models.GeneratedImage) models.GeneratedImage {
	_ = s.update(ctx, func(st *State) error {
		if img.ID == "" {
			img.ID = uuid.NewString()
		}
		ts := s.now().UnixMilli()
		if ts <= s.lastTS {
			ts = s.lastTS + 1
		}
		s.lastTS = ts
		img.Timestamp = ts

		st.GenImg = append([]models.GeneratedImage{img}, st.GenImg...)
		return nil
	})
	return img
}

// ClearHistory drops the stored blob, empties the gallery and saves the
// remaining inputs again.
func (s *StateStore) ClearHistory(ctx context.Context) {
	_ = s.update(ctx, func(st *State) error {
		if err := s.backend.Delete(ctx, s.key); err != nil {
			s.logger.Warn("failed to delete stored state", "key", s.key, "error", err)
		}
		st.GenImg = []models.GeneratedImage{}
		return nil
	})
}

// Replace swaps in a whole state, as when restoring a backup.
func (s *StateStore) Replace(ctx context.Context, state State) {
	_ = s.update(ctx, func(st *State) error {
		*st = state.normalized().clone()
		s.lastTS = max(s.lastTS, latestTimestamp(st.GenImg))
		return nil
	})
}

func (s *StateStore) Close() error {
	return s.backend.Close()
}

// update applies fn and saves. Save failures are logged, not returned.
func (s *StateStore) update(ctx context.Context, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(&s.state); err != nil {
		return err
	}

	data, err := s.state.Encode()
	if err != nil {
		s.logger.Warn("failed to encode state", "error", err)
		return nil
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		s.logger.Warn("failed to save state", "key", s.key, "error", err)
	}
	return nil
}

func latestTimestamp(images []models.GeneratedImage) int64 {
	var latest int64
	for _, img := range images {
		latest = max(latest, img.Timestamp)
	}
	return latest
}
