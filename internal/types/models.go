package types

import "time"

// JobStatus tracks where a transcription job is in the pipeline.
type JobStatus string

const (
	JobStatusPending      JobStatus = "pending"
	JobStatusExtracting   JobStatus = "extracting"
	JobStatusChunking     JobStatus = "chunking"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusMerging      JobStatus = "merging"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusFailed       JobStatus = "failed"
)

// Job is one in-flight transcription run for a single video. At most one
// active job exists per video id; concurrent callers share it.
type Job struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	SourceURL string    `json:"source_url"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ChunkStatus tracks a single audio slice through upload and transcription.
type ChunkStatus string

const (
	ChunkStatusPending      ChunkStatus = "pending"
	ChunkStatusUploaded     ChunkStatus = "uploaded"
	ChunkStatusTranscribing ChunkStatus = "transcribing"
	ChunkStatusCompleted    ChunkStatus = "completed"
	ChunkStatusFailed       ChunkStatus = "failed"
)

// Chunk is a fixed-length slice of the extracted audio. Chunks for a job are
// contiguous, non-overlapping, and cover [0, total duration) in index order.
type Chunk struct {
	JobID    string      `json:"job_id"`
	Index    int         `json:"index"`
	StartSec float64     `json:"start_sec"`
	EndSec   float64     `json:"end_sec"`
	Path     string      `json:"-"`
	Status   ChunkStatus `json:"status"`
}

// RemoteTask is the provider-side job created for one chunk.
type RemoteTask struct {
	ChunkIndex   int       `json:"chunk_index"`
	TaskID       string    `json:"task_id"`
	Attempts     int       `json:"attempts"`
	LastPolledAt time.Time `json:"last_polled_at"`
	Text         string    `json:"text,omitempty"`
	Err          string    `json:"error,omitempty"`
}

// TranscriptSource tells callers which path produced the text.
type TranscriptSource string

const (
	SourceCache    TranscriptSource = "cache"
	SourceProvider TranscriptSource = "assemblyai"
	SourceCaptions TranscriptSource = "captions"
)

// Validity threshold: anything below this is returned but never cached.
const (
	MinTranscriptChars = 50
	MinTranscriptWords = 10
)

// Transcript is the final product handed to downstream consumers.
type Transcript struct {
	VideoID         string           `json:"video_id"`
	Text            string           `json:"text"`
	Language        string           `json:"language"`
	WordCount       int              `json:"word_count"`
	DurationSeconds float64          `json:"duration_seconds"`
	Source          TranscriptSource `json:"source"`
	LastUsedAt      time.Time        `json:"last_used_at"`
}

// Valid reports whether the transcript meets the caching threshold.
func (t Transcript) Valid() bool {
	return len(t.Text) >= MinTranscriptChars && t.WordCount >= MinTranscriptWords
}
