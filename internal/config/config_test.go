package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"TRANSCRIBE_API_KEY", "TRANSCRIBE_BASE_URL", "CHUNK_MINUTES",
		"MAX_WORKERS", "POLL_INTERVAL", "POLL_CEILING", "JOB_TIMEOUT",
		"FFMPEG_SEARCH_PATHS", "YTDLP_PATH",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, 12, cfg.ChunkMinutes)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 6*time.Second, cfg.PollInterval)
	assert.Equal(t, 8*time.Minute, cfg.PollCeiling)
	assert.Equal(t, "yt-dlp", cfg.YTDLPPath)
	assert.NotEmpty(t, cfg.FFmpegSearchDirs, "platform defaults are always appended")
	assert.Empty(t, cfg.APIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHUNK_MINUTES", "5")
	t.Setenv("MAX_WORKERS", "8")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("FFMPEG_SEARCH_PATHS", "/custom/bin")

	cfg := Load()
	assert.Equal(t, 5, cfg.ChunkMinutes)
	assert.Equal(t, 8, cfg.MaxWorkers)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "/custom/bin", cfg.FFmpegSearchDirs[0], "env entries come before platform defaults")
}

func TestLoadRejectsGarbageValues(t *testing.T) {
	t.Setenv("CHUNK_MINUTES", "-3")
	t.Setenv("MAX_WORKERS", "zero")
	t.Setenv("POLL_INTERVAL", "soon")

	cfg := Load()
	assert.Equal(t, 12, cfg.ChunkMinutes)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 6*time.Second, cfg.PollInterval)
}
