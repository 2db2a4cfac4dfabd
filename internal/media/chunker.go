package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"video-transcripts-go/internal/logger"
	"video-transcripts-go/internal/types"
)

// Chunker slices extracted audio into fixed-length segments so they can be
// transcribed in parallel. Only the text matters downstream, so chunks are
// re-encoded at a low bitrate to keep uploads fast.
type Chunker struct {
	ffmpegDir string
	runner    Runner
	log       *logrus.Entry
}

func NewChunker(ffmpegDir string, runner Runner) *Chunker {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Chunker{
		ffmpegDir: ffmpegDir,
		runner:    runner,
		log:       logger.New().WithField("component", "chunker"),
	}
}

// ProbeDuration returns the total duration of the audio file in seconds.
func (c *Chunker) ProbeDuration(ctx context.Context, audioPath string) (float64, error) {
	result, err := c.runner.Run(ctx, filepath.Join(c.ffmpegDir, ffprobeBinary()),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w (%s)", err, strings.TrimSpace(result.Stderr))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(result.Stdout), 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("ffprobe returned unusable duration %q", result.Stdout)
	}
	return d, nil
}

// Plan computes chunk boundaries without touching the filesystem. Chunks are
// contiguous, non-overlapping, index-ordered, and cover exactly [0, total).
func Plan(jobID string, totalSec float64, chunkMinutes int) []types.Chunk {
	chunkLen := float64(chunkMinutes) * 60
	n := int(math.Ceil(totalSec / chunkLen))
	if n < 1 {
		n = 1
	}
	chunks := make([]types.Chunk, 0, n)
	for i := 0; i < n; i++ {
		end := float64(i+1) * chunkLen
		if end > totalSec {
			end = totalSec
		}
		chunks = append(chunks, types.Chunk{
			JobID:    jobID,
			Index:    i,
			StartSec: float64(i) * chunkLen,
			EndSec:   end,
			Status:   types.ChunkStatusPending,
		})
	}
	return chunks
}

// Split plans the chunk layout for an already-probed duration and
// materializes each chunk as an independent mp3 under
// <dir of audioPath>/chunks/. The caller probes once and passes totalSec in.
func (c *Chunker) Split(ctx context.Context, jobID, audioPath string, totalSec float64, chunkMinutes int) ([]types.Chunk, error) {
	chunkDir := filepath.Join(filepath.Dir(audioPath), "chunks")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}

	chunks := Plan(jobID, totalSec, chunkMinutes)
	log := c.log.WithFields(logrus.Fields{"job_id": jobID, "chunks": len(chunks), "duration_sec": totalSec})
	log.Info("splitting audio")

	for i := range chunks {
		ch := &chunks[i]
		ch.Path = filepath.Join(chunkDir, fmt.Sprintf("chunk-%03d.mp3", ch.Index))
		result, err := c.runner.Run(ctx, filepath.Join(c.ffmpegDir, ffmpegBinary()),
			"-hide_banner", "-nostdin", "-y",
			"-ss", formatSeconds(ch.StartSec),
			"-t", formatSeconds(ch.EndSec-ch.StartSec),
			"-i", audioPath,
			"-vn",
			"-b:a", "64k",
			ch.Path,
		)
		if err != nil {
			return nil, fmt.Errorf("ffmpeg chunk %d: %w (%s)", ch.Index, err, strings.TrimSpace(result.Stderr))
		}
		if info, err := os.Stat(ch.Path); err != nil || info.Size() == 0 {
			return nil, fmt.Errorf("ffmpeg completed but chunk %d file is missing", ch.Index)
		}
	}
	return chunks, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
