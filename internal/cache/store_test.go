package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-transcripts-go/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(videoID string) types.Transcript {
	return types.Transcript{
		VideoID:         videoID,
		Text:            "a transcript long enough to matter for the downstream consumers of this text",
		Language:        "en",
		WordCount:       13,
		DurationSeconds: 2160,
		Source:          types.SourceProvider,
	}
}

func TestGetMiss(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrMiss)
}

func TestPutThenGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sample("vid-1")))

	got, err := s.Get(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, "vid-1", got.VideoID)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, 13, got.WordCount)
	assert.Equal(t, 2160.0, got.DurationSeconds)
	assert.Equal(t, types.SourceCache, got.Source, "hits are tagged as cache")
}

func TestGetRefreshesLastUsedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sample("vid-1")))
	first, err := s.Get(ctx, "vid-1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	second, err := s.Get(ctx, "vid-1")
	require.NoError(t, err)

	assert.True(t, second.LastUsedAt.After(first.LastUsedAt),
		"last_used_at must advance on every hit: %v vs %v", first.LastUsedAt, second.LastUsedAt)
}

func TestPutUpsertsLastWriteWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sample("vid-1")))

	updated := sample("vid-1")
	updated.Text = "a replacement transcript that came from the caption fallback provider instead"
	updated.Source = types.SourceCaptions
	require.NoError(t, s.Put(ctx, updated))

	got, err := s.Get(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, updated.Text, got.Text)
}

func TestStoresAreIsolatedPerVideo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sample("vid-1")))
	require.NoError(t, s.Put(ctx, sample("vid-2")))

	_, err := s.Get(ctx, "vid-1")
	require.NoError(t, err)
	_, err = s.Get(ctx, "vid-2")
	require.NoError(t, err)
	_, err = s.Get(ctx, "vid-3")
	require.ErrorIs(t, err, ErrMiss)
}
