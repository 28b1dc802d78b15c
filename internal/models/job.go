package models

import (
	"fmt"
	"time"
)

// JobState состояние фоновой задачи сборки базы знаний
type JobState string

const (
	JobIdle       JobState = "idle"
	JobProcessing JobState = "processing"
	JobReady      JobState = "ready"
	JobCancelled  JobState = "cancelled"
	// JobFailed is reported by the backend as "error" when indexing aborts.
	JobFailed JobState = "error"
)

// Valid reports whether s is a state the backend documents.
func (s JobState) Valid() bool {
	switch s {
	case JobIdle, JobProcessing, JobReady, JobCancelled, JobFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition happens without a new job.
func (s JobState) Terminal() bool {
	return s == JobReady || s == JobCancelled || s == JobFailed
}

// JobStatus снимок состояния задачи
type JobStatus struct {
	TimeTaken *time.Duration
	State     JobState
	Progress  int
}

// Validate checks state and progress bounds.
func (s JobStatus) Validate() error {
	if !s.State.Valid() {
		return fmt.Errorf("unknown job status %q", s.State)
	}
	if s.Progress < 0 || s.Progress > 100 {
		return fmt.Errorf("progress %d out of range 0..100", s.Progress)
	}
	return nil
}

// String is used by the CLI status line.
func (s JobStatus) String() string {
	if s.TimeTaken != nil {
		return fmt.Sprintf("%s %d%% (%s)", s.State, s.Progress, s.TimeTaken.Round(10*time.Millisecond))
	}
	return fmt.Sprintf("%s %d%%", s.State, s.Progress)
}

// UploadedFile результат загрузки документа
type UploadedFile struct {
	UploadedAt time.Time
	ID         string
	Filename   string
	Filepath   string
	Message    string
}
