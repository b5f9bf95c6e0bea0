//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	docs := NewDocumentRepository(pool)
	repo := NewIngestJobRepository(pool)

	doc := createTestDocument(ctx, t, docs, "Sepsis", "Early antibiotics.")
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := domain.NewIngestJob(uuid.NewString(), doc.ID, domain.IngestJobStatusPending, base)
	second := domain.NewIngestJob(uuid.NewString(), doc.ID, domain.IngestJobStatusPending, base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	claimed, err := repo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, first.ID, claimed[0].ID, "oldest job is claimed first")
	assert.Equal(t, domain.IngestJobStatusProcessing, claimed[0].Status)

	require.NoError(t, repo.IncrementRetries(ctx, first.ID))
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, domain.IngestJobStatusPending, "retry 1: timeout"))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Retries)
	assert.Equal(t, "retry 1: timeout", got.Error)
	assert.Nil(t, got.ProcessedAt)

	require.NoError(t, repo.UpdateStatus(ctx, second.ID, domain.IngestJobStatusCompleted, ""))
	got, err = repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusCompleted, got.Status)
	assert.NotNil(t, got.ProcessedAt)

	claimed, err = repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, first.ID, claimed[0].ID)
	assert.Empty(t, claimed[0].Error, "claiming clears the previous error")
}

func TestIngestJobRepository_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewIngestJobRepository(pool)

	err := repo.Create(ctx, &domain.IngestJob{ID: uuid.NewString(), Status: domain.IngestJobStatusPending})
	assert.Error(t, err)
}

func TestIngestJobRepository_MissingJob(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewIngestJobRepository(pool)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.NewString(), domain.IngestJobStatusFailed, "x"), domain.ErrIngestJobNotFound)
	assert.ErrorIs(t, repo.IncrementRetries(ctx, uuid.NewString()), domain.ErrIngestJobNotFound)
}

func TestIngestJobRepository_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	docs := NewDocumentRepository(pool)
	repo := NewIngestJobRepository(pool)

	doc := createTestDocument(ctx, t, docs, "Stroke", "Time is brain.")
	const total = 20
	for i := 0; i < total; i++ {
		job := domain.NewIngestJob(uuid.NewString(), doc.ID, domain.IngestJobStatusPending, time.Now().UTC())
		require.NoError(t, repo.Create(ctx, job))
	}

	var (
		mu   sync.Mutex
		seen = map[string]int{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				jobs, err := repo.ClaimPending(ctx, 3)
				if err != nil || len(jobs) == 0 {
					return
				}
				mu.Lock()
				for _, j := range jobs {
					seen[j.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}
