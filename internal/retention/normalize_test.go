package retention

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizer_RewritesLegacyTimestamps(t *testing.T) {
	store := newMemStore()
	store.put("u1", "naive", "2025-10-02T18:00:00.123456")
	store.put("u1", "offset", "2025-10-02T18:00:00+09:00")
	store.put("u1", "canonical", "2025-10-02T18:00:00.000000Z")
	store.put("u1", "garbage", "yesterday")

	rep := NewNormalizer(store, false, zap.NewNop()).Run(context.Background())

	require.NoError(t, rep.Err)
	assert.Equal(t, 1, rep.TenantsProcessed)
	assert.Equal(t, 4, rep.Scanned)
	assert.Equal(t, 2, rep.Rewritten)
	assert.Equal(t, 1, rep.Invalid)
	assert.Equal(t, "2025-10-02T18:00:00.123456Z", store.docs["u1"]["naive"].CreatedAt)
	assert.Equal(t, "2025-10-02T09:00:00.000000Z", store.docs["u1"]["offset"].CreatedAt)
	assert.Equal(t, "yesterday", store.docs["u1"]["garbage"].CreatedAt)
}

func TestNormalizer_DryRunWritesNothing(t *testing.T) {
	store := newMemStore()
	store.put("u1", "naive", "2025-10-02 18:00:00")

	rep := NewNormalizer(store, true, zap.NewNop()).Run(context.Background())

	assert.Equal(t, 1, rep.Rewritten)
	assert.Zero(t, store.updates)
	assert.Equal(t, "2025-10-02 18:00:00", store.docs["u1"]["naive"].CreatedAt)
}

func TestNormalizer_IsolatesTenantFailures(t *testing.T) {
	store := newMemStore()
	store.put("a", "x", "2025-10-02")
	store.put("b", "y", "2025-10-02")
	store.updateErr["a"] = errors.New("write conflict")

	rep := NewNormalizer(store, false, zap.NewNop()).Run(context.Background())

	assert.Equal(t, []string{"a"}, rep.FailedTenants)
	assert.Equal(t, 2, rep.TenantsProcessed)
	assert.Equal(t, "2025-10-02T00:00:00.000000Z", store.docs["b"]["y"].CreatedAt)
}

func TestNormalizer_EnumerationFailure(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("offline")

	rep := NewNormalizer(store, false, zap.NewNop()).Run(context.Background())

	var be *BackendError
	require.ErrorAs(t, rep.Err, &be)
	assert.Equal(t, OpEnumerate, be.Op)
}
