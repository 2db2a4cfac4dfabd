package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"video-transcripts-go/internal/cache"
	"video-transcripts-go/internal/captions"
	"video-transcripts-go/internal/config"
	"video-transcripts-go/internal/language"
	"video-transcripts-go/internal/logger"
	"video-transcripts-go/internal/media"
	"video-transcripts-go/internal/stt"
	"video-transcripts-go/internal/types"
	"video-transcripts-go/internal/worker"
)

// Dependency slices, narrowed so tests can substitute fakes.

type audioExtractor interface {
	Extract(ctx context.Context, videoID, dir string) (string, error)
}

type audioChunker interface {
	ProbeDuration(ctx context.Context, audioPath string) (float64, error)
	Split(ctx context.Context, jobID, audioPath string, totalSec float64, chunkMinutes int) ([]types.Chunk, error)
}

type transcriber interface {
	Transcribe(ctx context.Context, chunks []types.Chunk) (string, string, error)
	TranscribeFile(ctx context.Context, path string) (stt.Result, error)
}

type captionSource interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

type transcriptStore interface {
	Get(ctx context.Context, videoID string) (types.Transcript, error)
	Put(ctx context.Context, t types.Transcript) error
}

// Service is the single entry point to the transcription pipeline. It owns
// configuration and all collaborators; there is no package-level state.
type Service struct {
	cfg       config.Config
	store     transcriptStore
	extractor audioExtractor
	chunker   audioChunker
	pool      transcriber
	captions  captionSource
	detector  language.Detector

	ffmpegAvailable bool
	flight          singleflight.Group
	log             *logger.Logger
}

// New wires the production pipeline from configuration. The toolchain is
// resolved once here; its absence only changes the extraction strategy and
// disables chunking, never the service itself.
func New(cfg config.Config, store *cache.Store) *Service {
	log := logger.New()

	ffmpegDir, ok := media.ResolveFFmpeg(cfg.FFmpegSearchDirs)
	if !ok {
		log.WithField("component", "service").
			Warn("ffmpeg not found: downloading raw audio formats, chunking disabled")
	}

	client := stt.NewClient(cfg.BaseURL, cfg.APIKey, cfg.PollInterval, cfg.PollCeiling)
	runner := &media.ExecRunner{}

	return &Service{
		cfg:             cfg,
		store:           store,
		extractor:       media.NewExtractor(cfg.YTDLPPath, ffmpegDir, runner),
		chunker:         media.NewChunker(ffmpegDir, runner),
		pool:            worker.NewPool(client, cfg.MaxWorkers),
		captions:        captions.NewProvider(cfg.CaptionsBaseURL),
		detector:        language.NewRangeDetector(),
		ffmpegAvailable: ok,
		log:             log,
	}
}

// GetTranscript returns the transcript for videoID: from cache when
// present, otherwise by running the pipeline. Concurrent calls for the same
// video id share one in-flight job.
func (s *Service) GetTranscript(ctx context.Context, videoID string) (types.Transcript, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return types.Transcript{}, fmt.Errorf("video id is required")
	}

	if t, err := s.store.Get(ctx, videoID); err == nil {
		s.log.WithJob("", videoID).Info("cache hit")
		return t, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.WithJob("", videoID).WithField("error", err.Error()).Warn("cache read failed, running pipeline")
	}

	v, err, shared := s.flight.Do(videoID, func() (interface{}, error) {
		t, err := s.runJob(ctx, videoID)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return types.Transcript{}, err
	}
	t := v.(types.Transcript)
	if shared {
		s.log.WithJob("", videoID).Debug("request coalesced with in-flight job")
	}
	return t, nil
}

// runJob executes the primary pipeline and, on any failure or invalid
// output, falls through to the caption provider before giving up.
func (s *Service) runJob(ctx context.Context, videoID string) (types.Transcript, error) {
	job := types.Job{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		SourceURL: "https://www.youtube.com/watch?v=" + videoID,
		Status:    types.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	log := s.log.WithJob(job.ID, videoID)
	start := time.Now()

	primary, primaryErr := s.runPrimary(ctx, &job, log)
	if primaryErr == nil && primary.Valid() {
		s.persist(ctx, primary, log)
		log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("transcript ready")
		return primary, nil
	}
	if primaryErr == nil {
		primaryErr = &ValidationError{Chars: len(primary.Text), Words: primary.WordCount}
	}
	log.WithField("error", primaryErr.Error()).Warn("primary pipeline failed, trying captions")

	fallback, fallbackErr := s.runFallback(ctx, videoID)
	if fallbackErr != nil {
		if primary.Text != "" {
			// Below-threshold primary text is still better than nothing.
			log.Warn("captions unavailable, returning uncached primary text")
			return primary, nil
		}
		transition(&job, types.JobStatusFailed, log)
		return types.Transcript{}, &NoFallbackError{Primary: primaryErr, Fallback: fallbackErr}
	}

	if fallback.Valid() {
		s.persist(ctx, fallback, log)
	} else {
		log.WithFields(logrus.Fields{"chars": len(fallback.Text), "words": fallback.WordCount}).
			Warn("fallback transcript below threshold, returning uncached")
	}
	transition(&job, types.JobStatusCompleted, log)
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("fallback transcript ready")
	return fallback, nil
}

// runPrimary is extract → (chunk →) transcribe → detect. The per-job temp
// directory is removed on every exit path; cleanup failures are logged and
// swallowed.
func (s *Service) runPrimary(ctx context.Context, job *types.Job, log *logrus.Entry) (types.Transcript, error) {
	if s.cfg.APIKey == "" {
		return types.Transcript{}, ErrPrimaryDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	tempDir, err := os.MkdirTemp(s.cfg.TempRoot, "transcribe-"+job.VideoID+"-*")
	if err != nil {
		return types.Transcript{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.WithField("error", err.Error()).Warn("temp dir cleanup failed")
		}
	}()

	transition(job, types.JobStatusExtracting, log)
	audioPath, err := s.extractor.Extract(ctx, job.VideoID, tempDir)
	if err != nil {
		transition(job, types.JobStatusFailed, log)
		return types.Transcript{}, err
	}

	var (
		text     string
		lang     string
		duration float64
	)
	if s.ffmpegAvailable {
		transition(job, types.JobStatusChunking, log)
		total, err := s.chunker.ProbeDuration(ctx, audioPath)
		if err != nil {
			transition(job, types.JobStatusFailed, log)
			return types.Transcript{}, err
		}
		duration = total

		if total > float64(s.cfg.ChunkMinutes)*60 {
			chunks, err := s.chunker.Split(ctx, job.ID, audioPath, total, s.cfg.ChunkMinutes)
			if err != nil {
				transition(job, types.JobStatusFailed, log)
				return types.Transcript{}, err
			}
			transition(job, types.JobStatusTranscribing, log)
			text, lang, err = s.pool.Transcribe(ctx, chunks)
			if err != nil {
				transition(job, types.JobStatusFailed, log)
				return types.Transcript{}, err
			}
			transition(job, types.JobStatusMerging, log)
		} else {
			text, lang, err = s.transcribeWhole(ctx, job, audioPath, log)
			if err != nil {
				return types.Transcript{}, err
			}
		}
	} else {
		// No ffmpeg means no ffprobe and no chunk trimming: send the file
		// the downloader produced as one task.
		text, lang, err = s.transcribeWhole(ctx, job, audioPath, log)
		if err != nil {
			return types.Transcript{}, err
		}
	}

	transition(job, types.JobStatusCompleted, log)
	return s.finalize(job.VideoID, text, lang, duration, types.SourceProvider), nil
}

func (s *Service) transcribeWhole(ctx context.Context, job *types.Job, audioPath string, log *logrus.Entry) (string, string, error) {
	transition(job, types.JobStatusTranscribing, log)
	res, err := s.pool.TranscribeFile(ctx, audioPath)
	if err != nil {
		transition(job, types.JobStatusFailed, log)
		return "", "", err
	}
	return strings.TrimSpace(res.Text), res.LanguageCode, nil
}

// transition advances the job state machine and logs the change so the
// lifecycle is observable from the outside.
func transition(job *types.Job, status types.JobStatus, log *logrus.Entry) {
	job.Status = status
	log.WithField("status", string(status)).Info("job transition")
}

func (s *Service) runFallback(ctx context.Context, videoID string) (types.Transcript, error) {
	text, err := s.captions.Fetch(ctx, videoID)
	if err != nil {
		return types.Transcript{}, err
	}
	return s.finalize(videoID, text, "", 0, types.SourceCaptions), nil
}

// finalize assembles the transcript, filling language via the detector when
// the provider gave no signal.
func (s *Service) finalize(videoID, text, lang string, duration float64, source types.TranscriptSource) types.Transcript {
	text = strings.TrimSpace(text)
	if lang == "" {
		lang = s.detector.Detect(text)
	}
	return types.Transcript{
		VideoID:         videoID,
		Text:            text,
		Language:        lang,
		WordCount:       len(strings.Fields(text)),
		DurationSeconds: duration,
		Source:          source,
		LastUsedAt:      time.Now().UTC(),
	}
}

// persist upserts into the cache. Cache writes never fail the request.
func (s *Service) persist(ctx context.Context, t types.Transcript, log *logrus.Entry) {
	if err := s.store.Put(ctx, t); err != nil {
		log.WithField("error", err.Error()).Warn("cache write failed")
	}
}
