package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-transcripts-go/internal/types"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 10*time.Millisecond, 300*time.Millisecond), srv
}

func TestUploadReturnsHostedURL(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		gotAuth = r.Header.Get("authorization")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/a1"})
	}))

	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio-bytes"), 0o644))

	url, err := client.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a1", url)
	assert.Equal(t, "test-key", gotAuth)
	assert.Equal(t, "audio-bytes", string(gotBody))
}

func TestUploadErrorOnServerFailure(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusServiceUnavailable)
	}))

	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := client.Upload(context.Background(), path)
	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
}

func TestCreateTaskRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try later", http.StatusBadGateway)
			return
		}
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, true, payload["language_detection"])
		assert.Nil(t, payload["summarization"], "chunk tasks must not request aux analyses")
		json.NewEncoder(w).Encode(map[string]string{"id": "task-9"})
	}))

	id, err := client.CreateTask(context.Background(), "https://cdn.example/a1", TaskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "task-9", id)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateTaskAuxEnabled(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, true, payload["summarization"])
		assert.Equal(t, true, payload["sentiment_analysis"])
		json.NewEncoder(w).Encode(map[string]string{"id": "task-1"})
	}))

	_, err := client.CreateTask(context.Background(), "https://cdn.example/a1", TaskOptions{Aux: true})
	require.NoError(t, err)
}

func TestAwaitCompletes(t *testing.T) {
	var polls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transcript/task-1", r.URL.Path)
		if polls.Add(1) < 3 {
			json.NewEncoder(w).Encode(Result{Status: "processing"})
			return
		}
		json.NewEncoder(w).Encode(Result{Status: "completed", Text: "hello there", LanguageCode: "en"})
	}))

	task := &types.RemoteTask{TaskID: "task-1"}
	res, err := client.Await(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Text)
	assert.Equal(t, "en", res.LanguageCode)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
	assert.Equal(t, int(polls.Load()), task.Attempts, "every poll must be counted on the task")
	assert.False(t, task.LastPolledAt.IsZero())
	assert.Equal(t, "hello there", task.Text)
}

func TestAwaitProviderError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{Status: "error", Error: "unsupported codec"})
	}))

	_, err := client.Await(context.Background(), &types.RemoteTask{TaskID: "task-1"})
	var trErr *TranscriptionError
	require.ErrorAs(t, err, &trErr)
	assert.Contains(t, trErr.Detail, "unsupported codec")
}

func TestAwaitCeilingYieldsTimeout(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{Status: "processing"})
	}))

	task := &types.RemoteTask{TaskID: "task-1"}
	_, err := client.Await(context.Background(), task)
	var toErr *TimeoutError
	require.ErrorAs(t, err, &toErr)
	assert.Contains(t, task.Err, "timed out")
}

func TestAwaitNotFoundIsImmediatelyFatal(t *testing.T) {
	var polls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		http.NotFound(w, r)
	}))

	task := &types.RemoteTask{TaskID: "task-ghost"}
	_, err := client.Await(context.Background(), task)
	require.ErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, int32(1), polls.Load(), "not-found must not be retried")
}

func TestAwaitRetriesTransientPollFailures(t *testing.T) {
	var polls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch polls.Add(1) {
		case 1:
			http.Error(w, "hiccup", http.StatusInternalServerError)
		case 2:
			fmt.Fprint(w, "not json at all")
		default:
			json.NewEncoder(w).Encode(Result{Status: "completed", Text: "survived"})
		}
	}))

	task := &types.RemoteTask{TaskID: "task-1"}
	res, err := client.Await(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "survived", res.Text)
}

func TestDoJSONSurfacesRetryErrorWhenNoAttemptRan(t *testing.T) {
	client, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "never-reached"})
	}))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/transcript", nil)
	require.NoError(t, err)
	req.GetBody = func() (io.ReadCloser, error) {
		return nil, errors.New("body gone")
	}

	var out struct{}
	err = client.doJSON(req, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body gone", "the real cause must surface, not nil")
}
