package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"video-transcripts-go/internal/logger"
	"video-transcripts-go/internal/stt"
	"video-transcripts-go/internal/types"
)

// TaskClient is the slice of the remote client the pool needs.
type TaskClient interface {
	Upload(ctx context.Context, path string) (string, error)
	CreateTask(ctx context.Context, audioURL string, opts stt.TaskOptions) (string, error)
	Await(ctx context.Context, task *types.RemoteTask) (stt.Result, error)
}

// Pool transcribes audio chunks concurrently with a bounded number of
// workers and merges the results in chunk-index order.
//
// Failure policy is fail-fast: the first chunk that exhausts upload, task
// creation, or polling cancels the remaining work and fails the whole job.
// A partial transcript with silent holes is worse for downstream question
// generation than an explicit failure that routes to the caption fallback.
type Pool struct {
	client  TaskClient
	workers int
	log     *logrus.Entry
}

func NewPool(client TaskClient, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		client:  client,
		workers: workers,
		log:     logger.New().WithField("component", "worker-pool"),
	}
}

// Transcribe runs every chunk through upload → create task → poll and
// returns the index-ordered concatenation of their texts. Merge order never
// depends on completion order. The first detected language wins.
func (p *Pool) Transcribe(ctx context.Context, chunks []types.Chunk) (string, string, error) {
	texts := make([]string, len(chunks))
	langs := make([]string, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range chunks {
		chunk := &chunks[i]
		g.Go(func() error {
			res, err := p.transcribeChunk(ctx, chunk)
			if err != nil {
				chunk.Status = types.ChunkStatusFailed
				return fmt.Errorf("chunk %d: %w", chunk.Index, err)
			}
			chunk.Status = types.ChunkStatusCompleted
			texts[chunk.Index] = strings.TrimSpace(res.Text)
			langs[chunk.Index] = res.LanguageCode
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	merged := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			merged = append(merged, t)
		}
	}
	lang := ""
	for _, l := range langs {
		if l != "" {
			lang = l
			break
		}
	}
	return strings.Join(merged, " "), lang, nil
}

// TranscribeFile handles the non-chunked path for a whole audio file. The
// auxiliary analyses are enabled here since a single task carries the full
// cost anyway.
func (p *Pool) TranscribeFile(ctx context.Context, path string) (stt.Result, error) {
	uploadURL, err := p.client.Upload(ctx, path)
	if err != nil {
		return stt.Result{}, err
	}
	taskID, err := p.client.CreateTask(ctx, uploadURL, stt.TaskOptions{Aux: true})
	if err != nil {
		return stt.Result{}, err
	}
	p.log.WithField("task_id", taskID).Info("whole-file task created")

	task := &types.RemoteTask{TaskID: taskID}
	res, err := p.client.Await(ctx, task)
	p.log.WithFields(logrus.Fields{
		"task_id":  taskID,
		"attempts": task.Attempts,
	}).Info("whole-file task resolved")
	return res, err
}

func (p *Pool) transcribeChunk(ctx context.Context, chunk *types.Chunk) (stt.Result, error) {
	log := p.log.WithFields(logrus.Fields{"job_id": chunk.JobID, "chunk": chunk.Index})

	uploadURL, err := p.client.Upload(ctx, chunk.Path)
	if err != nil {
		return stt.Result{}, err
	}
	chunk.Status = types.ChunkStatusUploaded

	taskID, err := p.client.CreateTask(ctx, uploadURL, stt.TaskOptions{Aux: false})
	if err != nil {
		return stt.Result{}, err
	}
	chunk.Status = types.ChunkStatusTranscribing
	log.WithField("task_id", taskID).Debug("chunk task created")

	task := &types.RemoteTask{ChunkIndex: chunk.Index, TaskID: taskID}
	res, err := p.client.Await(ctx, task)
	if err != nil {
		log.WithFields(logrus.Fields{
			"task_id":  task.TaskID,
			"attempts": task.Attempts,
			"error":    task.Err,
		}).Warn("chunk task failed")
		return stt.Result{}, err
	}
	log.WithFields(logrus.Fields{
		"task_id":  task.TaskID,
		"attempts": task.Attempts,
	}).Debug("chunk completed")
	return res, nil
}
