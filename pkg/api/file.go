package api

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iudanet/chatdesk/internal/models"
)

// UploadResponse представляет ответ POST /file/upload.
// Существуют два варианта: запись о файле {filename, filepath, id, uploaded_at}
// и ответ о запуске задачи {message, file_id}.
type UploadResponse struct {
	Filename   string `json:"filename,omitempty"`
	Filepath   string `json:"filepath,omitempty"`
	ID         string `json:"id,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty"`
	Message    string `json:"message,omitempty"`
	FileID     string `json:"file_id,omitempty"`
}

// ToModel resolves which variant was sent and validates it.
func (r *UploadResponse) ToModel() (models.UploadedFile, error) {
	switch {
	case r.ID != "":
		if r.Filename == "" {
			return models.UploadedFile{}, errors.New("filename is missing")
		}
		return models.UploadedFile{
			ID:         r.ID,
			Filename:   r.Filename,
			Filepath:   r.Filepath,
			UploadedAt: models.ParseTimestamp(r.UploadedAt),
		}, nil
	case r.FileID != "":
		return models.UploadedFile{
			ID:       r.FileID,
			Filename: r.Filename,
			Message:  r.Message,
		}, nil
	}
	return models.UploadedFile{}, errors.New("neither id nor file_id present")
}

// JobStatusResponse представляет ответ GET /file/vector-status
type JobStatusResponse struct {
	Status         string   `json:"status"`
	Progress       *float64 `json:"progress,omitempty"`
	TimeTaken      *float64 `json:"time_taken,omitempty"` // секунды
	TimeTakenCamel *float64 `json:"timeTaken,omitempty"`  // camelCase вариант
}

// ToModel validates the payload and converts it into a JobStatus.
func (r *JobStatusResponse) ToModel() (models.JobStatus, error) {
	st := models.JobStatus{State: models.JobState(r.Status)}
	if r.Status == "" {
		return st, errors.New("status is missing")
	}
	if r.Progress != nil {
		st.Progress = int(math.Round(*r.Progress))
	}
	seconds := r.TimeTaken
	if seconds == nil {
		seconds = r.TimeTakenCamel
	}
	if seconds != nil {
		if *seconds < 0 {
			return st, fmt.Errorf("negative time_taken %v", *seconds)
		}
		d := time.Duration(*seconds * float64(time.Second))
		st.TimeTaken = &d
	}
	if err := st.Validate(); err != nil {
		return st, err
	}
	return st, nil
}

// FromModel builds the wire form; used by the reference backend.
func FromModel(st models.JobStatus) JobStatusResponse {
	progress := float64(st.Progress)
	resp := JobStatusResponse{Status: string(st.State), Progress: &progress}
	if st.TimeTaken != nil {
		s := math.Round(st.TimeTaken.Seconds()*100) / 100
		resp.TimeTaken = &s
	}
	return resp
}
