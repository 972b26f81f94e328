package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	fixedNow  = time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	oldTime   = fixedNow.AddDate(0, 0, -40)
	freshTime = fixedNow.AddDate(0, 0, -5)
	cutoff30  = FormatCutoff(Cutoff(30, fixedNow))
)

func TestDeleteOlderThan_BatchBoundary(t *testing.T) {
	store := newMemStore()
	store.seed("u1", "old", 501, oldTime)

	n, err := NewDeleter(store, zap.NewNop()).DeleteOlderThan(context.Background(), "u1", cutoff30)

	require.NoError(t, err)
	assert.Equal(t, 501, n)
	assert.Equal(t, []int{500, 1}, store.commits["u1"])
	assert.Zero(t, store.count("u1"))
}

func TestDeleteOlderThan_ExactBatch(t *testing.T) {
	store := newMemStore()
	store.seed("u1", "old", 500, oldTime)

	n, err := NewDeleter(store, zap.NewNop()).DeleteOlderThan(context.Background(), "u1", cutoff30)

	require.NoError(t, err)
	assert.Equal(t, 500, n)
	assert.Equal(t, []int{500}, store.commits["u1"])
}

func TestDeleteOlderThan_NothingStale(t *testing.T) {
	store := newMemStore()
	store.seed("u1", "new", 3, freshTime)

	n, err := NewDeleter(store, zap.NewNop()).DeleteOlderThan(context.Background(), "u1", cutoff30)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.commits["u1"])
	assert.Equal(t, 3, store.count("u1"))
}

func TestDeleteOlderThan_CutoffIsExclusive(t *testing.T) {
	store := newMemStore()
	store.put("u1", "at-cutoff", cutoff30)
	store.put("u1", "just-before", FormatCutoff(Cutoff(30, fixedNow).Add(-time.Microsecond)))

	n, err := NewDeleter(store, zap.NewNop()).DeleteOlderThan(context.Background(), "u1", cutoff30)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.has("u1", "at-cutoff"))
	assert.False(t, store.has("u1", "just-before"))
}

func TestWithBatchSize(t *testing.T) {
	store := newMemStore()
	store.seed("u1", "old", 5, oldTime)

	d := NewDeleter(store, zap.NewNop(), WithBatchSize(2))
	n, err := d.DeleteOlderThan(context.Background(), "u1", cutoff30)

	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{2, 2, 1}, store.commits["u1"])

	assert.Equal(t, MaxBatchSize, NewDeleter(store, nil, WithBatchSize(0)).BatchSize())
	assert.Equal(t, MaxBatchSize, NewDeleter(store, nil, WithBatchSize(1000)).BatchSize())
}

func TestDeleteOlderThan_QueryError(t *testing.T) {
	store := newMemStore()
	store.addTenant("u1")
	store.queryErr["u1"] = errors.New("deadline exceeded")

	n, err := NewDeleter(store, zap.NewNop()).DeleteOlderThan(context.Background(), "u1", cutoff30)

	assert.Zero(t, n)
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, OpQuery, be.Op)
	assert.Equal(t, "u1", be.Tenant)
	assert.ErrorContains(t, err, "deadline exceeded")
}

func TestDeleteOlderThan_CommitError(t *testing.T) {
	store := newMemStore()
	store.seed("u1", "old", 3, oldTime)
	store.commitErr["u1"] = errors.New("aborted")

	n, err := NewDeleter(store, zap.NewNop()).DeleteOlderThan(context.Background(), "u1", cutoff30)

	assert.Zero(t, n)
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, OpCommit, be.Op)
	assert.Equal(t, 3, store.count("u1"))
}

func TestDeleteOlderThan_ArchivesEachBatchBeforeCommit(t *testing.T) {
	store := newMemStore()
	store.seed("u1", "old", 3, oldTime)

	arch := new(MockArchiver)
	arch.On("Archive", mock.Anything, "u1", cutoff30, 2).Return(nil).Once()
	arch.On("Archive", mock.Anything, "u1", cutoff30, 1).Return(nil).Once()

	d := NewDeleter(store, zap.NewNop(), WithBatchSize(2), WithArchiver(arch))
	n, err := d.DeleteOlderThan(context.Background(), "u1", cutoff30)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	arch.AssertExpectations(t)
}

func TestDeleteOlderThan_ArchiveFailureKeepsBatch(t *testing.T) {
	store := newMemStore()
	store.seed("u1", "old", 3, oldTime)

	arch := new(MockArchiver)
	arch.On("Archive", mock.Anything, "u1", cutoff30, 3).Return(errors.New("bucket gone"))

	n, err := NewDeleter(store, zap.NewNop(), WithArchiver(arch)).DeleteOlderThan(context.Background(), "u1", cutoff30)

	assert.Zero(t, n)
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, OpArchive, be.Op)
	assert.Equal(t, 3, store.count("u1"))
	assert.Empty(t, store.commits["u1"])
}
