package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/store"
)

func TestDecodeTolerance(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"missing", nil},
		{"empty", []byte{}},
		{"corrupt", []byte("{not json")},
		{"wrong shape", []byte(`[1,2,3]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, store.Empty(), store.Decode(tt.data))
		})
	}
}

func TestDecodeFillsMissingLists(t *testing.T) {
	s := store.Decode([]byte(`{"gen":["data:image/png;base64,AAA"]}`))
	assert.Equal(t, []string{"data:image/png;base64,AAA"}, s.Gen)
	assert.NotNil(t, s.Ang)
	assert.NotNil(t, s.GenImg)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := store.Empty()
	in.Gen = []string{"a", "b"}
	in.Style = []string{"s"}
	in.GenImg = []models.GeneratedImage{{ID: "1", ResultURL: "r", Type: models.TypeAngle, Timestamp: 5}}

	data, err := in.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"genImg"`)
	assert.Contains(t, string(data), `"style":["s"]`)

	assert.Equal(t, in, store.Decode(data))
}

func newStore(t *testing.T) (*store.StateStore, *store.MemoryBackend) {
	t.Helper()
	backend := store.NewMemoryBackend()
	s := store.NewStateStore(backend, "")
	require.NoError(t, s.Load(context.Background()))
	return s, backend
}

func persisted(t *testing.T, b store.Backend) store.State {
	t.Helper()
	data, err := b.Load(context.Background(), store.DefaultKey)
	require.NoError(t, err)
	return store.Decode(data)
}

func TestInputsMutators(t *testing.T) {
	ctx := context.Background()
	s, backend := newStore(t)

	require.NoError(t, s.AddInputs(ctx, models.TabGenerator, "a", "b"))
	require.NoError(t, s.Transfer(ctx, "front", models.TabGenerator))
	assert.Equal(t, []string{"front", "a", "b"}, s.Snapshot().Gen)

	require.NoError(t, s.RemoveInput(ctx, models.TabGenerator, 1))
	assert.Equal(t, []string{"front", "b"}, s.Snapshot().Gen)

	require.NoError(t, s.RemoveInput(ctx, models.TabGenerator, 9))
	assert.Equal(t, []string{"front", "b"}, s.Snapshot().Gen)

	require.NoError(t, s.Transfer(ctx, "x", models.TabEditor))
	assert.Equal(t, []string{"x"}, persisted(t, backend).Edit)

	require.NoError(t, s.ClearInputs(ctx, models.TabGenerator))
	assert.Empty(t, persisted(t, backend).Gen)

	err := s.AddInputs(ctx, models.Tab("history"), "a")
	assert.ErrorIs(t, err, store.ErrUnknownTab)
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.AddInputs(ctx, models.TabUpscale, "a"))

	snap := s.Snapshot()
	snap.Up[0] = "mutated"
	assert.Equal(t, "a", s.Snapshot().Up[0])
}

func TestAddGeneratedMonotonic(t *testing.T) {
	ctx := context.Background()
	s, backend := newStore(t)

	var ids = map[string]bool{}
	var last int64
	for i := 0; i < 50; i++ {
		img := s.AddGenerated(ctx, models.GeneratedImage{ResultURL: "r", Type: models.TypeMockup})
		assert.NotEmpty(t, img.ID)
		assert.False(t, ids[img.ID], "duplicate id %s", img.ID)
		ids[img.ID] = true
		assert.Greater(t, img.Timestamp, last)
		last = img.Timestamp
	}

	gallery := persisted(t, backend).GenImg
	require.Len(t, gallery, 50)
	assert.Equal(t, last, gallery[0].Timestamp, "newest first")
}

func TestAddGeneratedKeepsGivenID(t *testing.T) {
	s, _ := newStore(t)
	img := s.AddGenerated(context.Background(), models.GeneratedImage{ID: "fixed"})
	assert.Equal(t, "fixed", img.ID)
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	s, backend := newStore(t)

	require.NoError(t, s.AddInputs(ctx, models.TabGenerator, "a"))
	s.AddGenerated(ctx, models.GeneratedImage{ResultURL: "r"})
	s.ClearHistory(ctx)

	assert.Empty(t, s.Snapshot().GenImg)
	assert.Equal(t, []string{"a"}, s.Snapshot().Gen)

	// Inputs survive a restart; the gallery does not.
	reloaded := store.NewStateStore(backend, "")
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, []string{"a"}, reloaded.Snapshot().Gen)
	assert.Empty(t, reloaded.Snapshot().GenImg)
}

func TestReplaceAndReload(t *testing.T) {
	ctx := context.Background()
	s, backend := newStore(t)

	restored := store.Empty()
	restored.Ang = []string{"angle"}
	restored.GenImg = []models.GeneratedImage{{ID: "old", Timestamp: time.Now().Add(time.Hour).UnixMilli()}}
	s.Replace(ctx, restored)

	img := s.AddGenerated(ctx, models.GeneratedImage{})
	assert.Greater(t, img.Timestamp, restored.GenImg[0].Timestamp)

	reloaded := store.NewStateStore(backend, "")
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, []string{"angle"}, reloaded.Snapshot().Ang)
	assert.Len(t, reloaded.Snapshot().GenImg, 2)
}

type failingBackend struct{ *store.MemoryBackend }

func (failingBackend) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestSaveFailureIsNotReturned(t *testing.T) {
	s := store.NewStateStore(&failingBackend{store.NewMemoryBackend()}, "")
	assert.NoError(t, s.AddInputs(context.Background(), models.TabGenerator, "a"))
	assert.Equal(t, []string{"a"}, s.Snapshot().Gen)
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := store.NewFileBackend(dir)
	require.NoError(t, err)

	data, err := b.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, b.Save(ctx, "k", []byte(`{"gen":["a"]}`)))
	data, err = b.Load(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"gen":["a"]}`, string(data))

	// A corrupt file decodes to the empty state.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k.json"), []byte("garbage"), 0644))
	data, err = b.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, store.Empty(), store.Decode(data))

	require.NoError(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Delete(ctx, "k"))
	data, err = b.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileBackendDefaultsToCacheDir(t *testing.T) {
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)

	b, err := store.NewFileBackend("")
	require.NoError(t, err)
	require.NoError(t, b.Save(context.Background(), store.DefaultKey, []byte("{}")))

	_, err = os.Stat(filepath.Join(cache, "studio", store.DefaultKey+".json"))
	assert.NoError(t, err)
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	b, err := store.NewSQLiteBackend(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer b.Close()

	data, err := b.Load(ctx, store.DefaultKey)
	require.NoError(t, err)
	assert.Nil(t, data)

	s := store.NewStateStore(b, "")
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.AddInputs(ctx, models.TabStyleTransfer, "one"))
	require.NoError(t, s.AddInputs(ctx, models.TabStyleTransfer, "two"))

	reloaded := store.NewStateStore(b, "")
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, []string{"one", "two"}, reloaded.Snapshot().Style)

	require.NoError(t, b.Delete(ctx, store.DefaultKey))
	data, err = b.Load(ctx, store.DefaultKey)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := store.Open(ctx, store.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryBackend{}, b)

	b, err = store.Open(ctx, store.StoreConfig{Driver: "file", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &store.FileBackend{}, b)

	_, err = store.Open(ctx, store.StoreConfig{Driver: "sqlite"})
	assert.Error(t, err)

	_, err = store.Open(ctx, store.StoreConfig{Driver: "redis"})
	assert.Error(t, err)
}

func TestPostgresBackend(t *testing.T) {
	url := os.Getenv("STUDIO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("STUDIO_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	b, err := store.NewPostgresBackend(ctx, store.PostgresConfig{ConnString: url, TableName: "test_app_state"})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Save(ctx, "k", []byte(`{"gen":["a"]}`)))
	data, err := b.Load(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"gen":["a"]}`, string(data))

	require.NoError(t, b.Delete(ctx, "k"))
	data, err = b.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}
