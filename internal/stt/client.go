package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"video-transcripts-go/internal/logger"
	"video-transcripts-go/internal/types"
)

// ErrTaskNotFound means the provider does not know the task id. It is
// non-retryable: polling again will never succeed.
var ErrTaskNotFound = errors.New("transcription task not found")

// UploadError is a network/provider failure while sending audio bytes.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload failed: %v", e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// TranscriptionError means the provider reported the job itself failed.
type TranscriptionError struct {
	TaskID string
	Detail string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription task %s failed: %s", e.TaskID, e.Detail)
}

// TimeoutError means the polling ceiling was exceeded.
type TimeoutError struct {
	TaskID  string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transcription task %s timed out after %s", e.TaskID, e.Elapsed)
}

// TaskOptions controls what the provider computes for a task.
type TaskOptions struct {
	// Aux enables the expensive auxiliary analyses (summary, sentiment,
	// highlights). Off for chunk tasks, optionally on for whole files.
	Aux bool
}

// Result is the terminal state of a remote task.
type Result struct {
	Status       string `json:"status"`
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
	Error        string `json:"error"`
	Summary      string `json:"summary,omitempty"`
}

// Client is a thin protocol client for the remote speech-to-text provider:
// upload → create task → poll.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	uploadClient *http.Client
	pollInterval time.Duration
	pollCeiling  time.Duration
	log          *logrus.Entry
}

func NewClient(baseURL, apiKey string, pollInterval, pollCeiling time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		uploadClient: &http.Client{Timeout: 10 * time.Minute},
		pollInterval: pollInterval,
		pollCeiling:  pollCeiling,
		log:          logger.New().WithField("component", "stt"),
	}
}

// Upload sends the raw file bytes and returns the provider-hosted URL.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", f)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	if info, err := f.Stat(); err == nil {
		req.ContentLength = info.Size()
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("content-type", "application/octet-stream")

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", &UploadError{Err: fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 300))}
	}
	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.UploadURL == "" {
		return "", &UploadError{Err: fmt.Errorf("unexpected upload response: %s", truncate(body, 300))}
	}
	return out.UploadURL, nil
}

// CreateTask requests transcription of an uploaded file. Language detection
// is always on; auxiliary analyses only when opts.Aux is set.
func (c *Client) CreateTask(ctx context.Context, audioURL string, opts TaskOptions) (string, error) {
	payload := map[string]interface{}{
		"audio_url":          audioURL,
		"language_detection": true,
	}
	if opts.Aux {
		payload["summarization"] = true
		payload["sentiment_analysis"] = true
		payload["auto_highlights"] = true
	}
	data, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("content-type", "application/json")

	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("provider returned no task id")
	}
	return out.ID, nil
}

// Poll fetches the current state of a task once.
func (c *Client) Poll(ctx context.Context, taskID string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+taskID, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return Result{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("poll http %d: %s", resp.StatusCode, truncate(body, 300))
	}
	var out Result
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, fmt.Errorf("poll decode: %w", err)
	}
	return out, nil
}

// Await polls a task at a fixed interval until it completes, errors, or the
// ceiling is hit, recording every attempt on task (Attempts, LastPolledAt,
// and the terminal Text or Err). Transient poll failures are retried
// silently under the ceiling; a not-found task id fails immediately.
func (c *Client) Await(ctx context.Context, task *types.RemoteTask) (Result, error) {
	log := c.log.WithField("task_id", task.TaskID)
	deadline := time.Now().Add(c.pollCeiling)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			task.Err = ctx.Err().Error()
			return Result{}, ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			timeoutErr := &TimeoutError{TaskID: task.TaskID, Elapsed: c.pollCeiling}
			task.Err = timeoutErr.Error()
			return Result{}, timeoutErr
		}

		task.Attempts++
		task.LastPolledAt = time.Now().UTC()
		res, err := c.Poll(ctx, task.TaskID)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) || ctx.Err() != nil {
				task.Err = err.Error()
				return Result{}, err
			}
			log.WithField("error", err.Error()).Debug("poll failed, will retry")
			continue
		}

		switch res.Status {
		case "completed":
			task.Text = res.Text
			return res, nil
		case "error":
			task.Err = res.Error
			return Result{}, &TranscriptionError{TaskID: task.TaskID, Detail: res.Error}
		default:
			log.WithField("status", res.Status).Debug("task in progress")
		}
	}
}

// doJSON sends a request and decodes a JSON response, retrying transient
// failures (network errors and 5xx) with exponential backoff.
func (c *Client) doJSON(req *http.Request, target interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 20 * time.Second
	var lastErr error
	op := func() error {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Body = body
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %s", truncate(body, 300))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 300))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, truncate(body, 300))
			return lastErr
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, req.Context())); err != nil {
		// lastErr is nil when Retry fails without running the operation
		// (body rewind failure, context cancellation between attempts).
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
