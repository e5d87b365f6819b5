package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobRemovesExpiredEntries(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Store("current_prices", "STALE", testRecord{Price: 1}, -time.Minute))
	require.NoError(t, repo.Store("current_prices", "FRESH", testRecord{Price: 2}, time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	require.NoError(t, job.Run())

	data, err := repo.Get("current_prices", "STALE")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = repo.Get("current_prices", "FRESH")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(setupTestRepo(t), zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}
