package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"animeshelf/internal/catalog"
	"animeshelf/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog 按作品ID返回结果，errs 中的ID返回对应错误
type fakeCatalog struct {
	mu      sync.Mutex
	missing map[int64]bool
	errs    map[int64]error
	calls   []int64
}

func (f *fakeCatalog) FetchByID(_ context.Context, mediaType model.MediaType, id int64) (*catalog.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	if f.missing[id] {
		return nil, nil
	}
	return &catalog.Item{
		ID:        id,
		MediaType: mediaType,
		Title:     "Synced",
		ImageURL:  "https://cdn.example/synced.jpg",
		Genres:    []string{"Drama"},
	}, nil
}

func seedUnsynced(t *testing.T, e *testEnv, userID uint, n int) {
	t.Helper()
	items := make([]ImportItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, ImportItem{
			Media:    Media{ID: int64(i), Type: model.MediaAnime},
			Status:   model.StatusCompleted,
			Snapshot: model.MediaSnapshot{Title: "Imported"},
		})
	}
	_, err := e.library.BulkImport(t.Context(), userID, items)
	require.NoError(t, err)
}

func newBackfill(e *testEnv, fetcher ItemFetcher) (*BackfillService, *[]time.Duration) {
	var sleeps []time.Duration
	svc := NewBackfillService(e.libraryRepo, fetcher, 5, 400*time.Millisecond)
	svc.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return svc, &sleeps
}

func TestBackfillProcessesInBatches(t *testing.T) {
	e := newTestEnv(t, 1)
	seedUnsynced(t, e, 1, 12)
	fetcher := &fakeCatalog{}
	svc, sleeps := newBackfill(e, fetcher)

	var synced []int
	for range 4 {
		result, err := svc.Run(t.Context(), 1)
		require.NoError(t, err)
		synced = append(synced, result.Synced)
	}
	assert.Equal(t, []int{5, 5, 2, 0}, synced)
	assert.Len(t, fetcher.calls, 12)
	assert.Len(t, *sleeps, 4+4+1, "delay only between requests")

	entry, err := e.library.Entry(t.Context(), 1, Media{ID: 7, Type: model.MediaAnime})
	require.NoError(t, err)
	assert.Equal(t, "Synced", entry.Title)
	assert.Equal(t, []string{"Drama"}, []string(entry.Genres))
	assert.NotNil(t, entry.MetadataSyncedAt)
}

func TestBackfillNotFoundMarksSynced(t *testing.T) {
	e := newTestEnv(t, 1)
	seedUnsynced(t, e, 1, 2)
	svc, _ := newBackfill(e, &fakeCatalog{missing: map[int64]bool{1: true}})

	result, err := svc.Run(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)

	entry, err := e.library.Entry(t.Context(), 1, Media{ID: 1, Type: model.MediaAnime})
	require.NoError(t, err)
	assert.Equal(t, "Imported", entry.Title, "snapshot kept when upstream has no record")
	assert.NotNil(t, entry.MetadataSyncedAt)
}

func TestBackfillRateLimitAborts(t *testing.T) {
	e := newTestEnv(t, 1)
	seedUnsynced(t, e, 1, 5)
	fetcher := &fakeCatalog{errs: map[int64]error{3: catalog.ErrRateLimited}}
	svc, _ := newBackfill(e, fetcher)

	result, err := svc.Run(t.Context(), 1)
	require.NoError(t, err)
	assert.True(t, result.RateLimited)
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, []int64{1, 2, 3}, fetcher.calls)

	pending, err := e.libraryRepo.PendingMetadata(t.Context(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestBackfillSkipsUpstreamFailures(t *testing.T) {
	e := newTestEnv(t, 1)
	seedUnsynced(t, e, 1, 3)
	svc, _ := newBackfill(e, &fakeCatalog{errs: map[int64]error{2: errors.New("boom")}})

	result, err := svc.Run(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{Synced: 2, Skipped: 1}, result)
}
