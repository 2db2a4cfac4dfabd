package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"video-transcripts-go/internal/logger"
)

// ExtractionReason classifies why the downloader could not produce audio.
type ExtractionReason string

const (
	ReasonPrivate       ExtractionReason = "private"
	ReasonUnavailable   ExtractionReason = "unavailable"
	ReasonAgeRestricted ExtractionReason = "age-restricted"
	ReasonUnknown       ExtractionReason = "unknown"
)

// ExtractionError is fatal for the primary pipeline and routes the caller
// to the caption fallback.
type ExtractionError struct {
	Reason ExtractionReason
	Detail string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %s", e.Reason, e.Detail)
}

// audioExtensions are the container formats we accept from the downloader,
// in preference order. mp3 first because the converted path produces it.
var audioExtensions = []string{".mp3", ".m4a", ".webm", ".opus", ".ogg", ".wav"}

// Extractor downloads a video's audio track to local disk via yt-dlp.
type Extractor struct {
	ytdlpPath string
	ffmpegDir string // empty when the toolchain is unavailable
	runner    Runner
	log       *logrus.Entry
}

// NewExtractor builds an extractor. ffmpegDir may be empty; in that case no
// conversion is requested and the best available audio-only format is
// accepted as-is.
func NewExtractor(ytdlpPath, ffmpegDir string, runner Runner) *Extractor {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Extractor{
		ytdlpPath: ytdlpPath,
		ffmpegDir: ffmpegDir,
		runner:    runner,
		log:       logger.New().WithField("component", "extractor"),
	}
}

// Extract downloads the audio track for videoID into dir and returns the
// local file path. The subprocess exit code is not authoritative: yt-dlp can
// fail its conversion stage after the download stage already produced a
// usable file, so we look for candidate files on disk either way.
func (e *Extractor) Extract(ctx context.Context, videoID, dir string) (string, error) {
	outTemplate := filepath.Join(dir, "audio.%(ext)s")
	url := "https://www.youtube.com/watch?v=" + videoID

	args := []string{"--no-playlist", "--no-warnings", "-q"}
	if e.ffmpegDir != "" {
		args = append(args, "-x", "--audio-format", "mp3", "--ffmpeg-location", e.ffmpegDir)
	} else {
		args = append(args, "-f", "bestaudio")
	}
	args = append(args, "-o", outTemplate, url)

	log := e.log.WithField("video_id", videoID)
	log.WithField("converted", e.ffmpegDir != "").Info("downloading audio")

	result, runErr := e.runner.Run(ctx, e.ytdlpPath, args...)
	if runErr != nil {
		log.WithFields(logrus.Fields{
			"exit_code": result.ExitCode,
			"stderr":    truncate(result.Stderr, 500),
		}).Warn("downloader exited non-zero, checking for output anyway")
	}

	// A cancelled job may leave a truncated file behind; never accept it.
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if path, ok := findAudioFile(dir); ok {
		log.WithField("path", path).Info("audio extracted")
		return path, nil
	}
	diag := result.Stderr
	if diag == "" {
		diag = result.Stdout
	}
	return "", &ExtractionError{
		Reason: classifyExtraction(diag),
		Detail: firstLine(diag, runErr),
	}
}

// findAudioFile returns the first file in dir matching an accepted audio
// extension, in preference order.
func findAudioFile(dir string) (string, bool) {
	for _, ext := range audioExtensions {
		matches, _ := filepath.Glob(filepath.Join(dir, "audio"+ext))
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Size() > 0 {
				return m, true
			}
		}
	}
	return "", false
}

// classifyExtraction maps downloader diagnostics to a failure reason.
func classifyExtraction(diag string) ExtractionReason {
	lower := strings.ToLower(diag)
	switch {
	case strings.Contains(lower, "private video"):
		return ReasonPrivate
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "has been removed"),
		strings.Contains(lower, "no longer available"):
		return ReasonUnavailable
	case strings.Contains(lower, "age") && strings.Contains(lower, "restrict"),
		strings.Contains(lower, "sign in to confirm your age"):
		return ReasonAgeRestricted
	default:
		return ReasonUnknown
	}
}

func firstLine(diag string, fallback error) string {
	for _, line := range strings.Split(strings.TrimSpace(diag), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	if fallback != nil {
		return fallback.Error()
	}
	return "no audio file produced"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
