package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIngestJob(t *testing.T) {
	now := time.Now()
	job := NewIngestJob("job1", "doc1", IngestJobStatusPending, now)

	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, "doc1", job.DocumentID)
	assert.Equal(t, IngestJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Equal(t, now, job.CreatedAt)
	assert.Nil(t, job.ProcessedAt)
}

func TestValidateIngestJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		job     *IngestJob
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid job",
			job:  NewIngestJob("job1", "doc1", IngestJobStatusProcessing, now),
		},
		{
			name:    "nil job",
			job:     nil,
			wantErr: true,
			errMsg:  "ingest job cannot be nil",
		},
		{
			name:    "missing ID",
			job:     NewIngestJob("", "doc1", IngestJobStatusPending, now),
			wantErr: true,
			errMsg:  "ingest job ID is required",
		},
		{
			name:    "missing document",
			job:     NewIngestJob("job1", "", IngestJobStatusPending, now),
			wantErr: true,
			errMsg:  "ingest job DocumentID is required",
		},
		{
			name:    "unknown status",
			job:     NewIngestJob("job1", "doc1", "queued", now),
			wantErr: true,
			errMsg:  "invalid ingest job status",
		},
		{
			name:    "negative retries",
			job:     &IngestJob{ID: "job1", DocumentID: "doc1", Status: IngestJobStatusFailed, Retries: -1},
			wantErr: true,
			errMsg:  "Retries cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestJob(tt.job)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
