package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the pipeline needs from the environment. It is
// built once at startup and passed by reference; no package reads env vars
// at call time.
type Config struct {
	// Remote STT provider. An empty APIKey disables the primary pipeline
	// entirely and the service runs in captions-only mode.
	APIKey  string
	BaseURL string

	// Fallback caption source.
	CaptionsBaseURL string

	ChunkMinutes int
	MaxWorkers   int
	PollInterval time.Duration
	PollCeiling  time.Duration
	JobTimeout   time.Duration

	// External tooling.
	YTDLPPath        string
	FFmpegSearchDirs []string

	CachePath string
	TempRoot  string

	Port string
}

// Load reads the configuration from the process environment. Callers that
// want .env support load it (godotenv) before calling Load.
func Load() Config {
	cfg := Config{
		APIKey:           os.Getenv("TRANSCRIBE_API_KEY"),
		BaseURL:          envOr("TRANSCRIBE_BASE_URL", "https://api.assemblyai.com/v2"),
		CaptionsBaseURL:  envOr("CAPTIONS_BASE_URL", "https://www.youtube.com"),
		ChunkMinutes:     envInt("CHUNK_MINUTES", 12),
		MaxWorkers:       envInt("MAX_WORKERS", 4),
		PollInterval:     envDuration("POLL_INTERVAL", 6*time.Second),
		PollCeiling:      envDuration("POLL_CEILING", 8*time.Minute),
		JobTimeout:       envDuration("JOB_TIMEOUT", 30*time.Minute),
		YTDLPPath:        envOr("YTDLP_PATH", "yt-dlp"),
		FFmpegSearchDirs: ffmpegSearchDirs(),
		CachePath:        envOr("CACHE_PATH", filepath.Join(".", "data")),
		TempRoot:         envOr("TEMP_ROOT", os.TempDir()),
		Port:             envOr("PORT", "8080"),
	}
	if cfg.ChunkMinutes < 1 {
		cfg.ChunkMinutes = 12
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 4
	}
	return cfg
}

// ffmpegSearchDirs merges the env override with well-known install
// locations for the current platform. Order matters: env entries win.
func ffmpegSearchDirs() []string {
	var dirs []string
	if raw := os.Getenv("FFMPEG_SEARCH_PATHS"); raw != "" {
		for _, d := range strings.Split(raw, string(os.PathListSeparator)) {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
	}
	switch runtime.GOOS {
	case "darwin":
		dirs = append(dirs, "/opt/homebrew/bin", "/usr/local/bin")
	case "windows":
		dirs = append(dirs, `C:\ffmpeg\bin`, `C:\Program Files\ffmpeg\bin`)
	default:
		dirs = append(dirs, "/usr/local/bin", "/usr/bin", "/snap/bin")
	}
	return dirs
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
