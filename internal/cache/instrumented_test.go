package cache

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/content-cache/content-cache/internal/content"
)

func TestInstrumentCountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	store := Instrument(NewMemoryStore(), logger, metrics)
	defer store.Close()
	ctx := context.Background()
	id := content.NewID(1, 7, 100)

	require.NoError(t, store.Store(ctx, sampleRecord(id, "hello")))
	_, err := store.Load(ctx, id)
	require.NoError(t, err)
	_, err = store.Load(ctx, content.NewID(1, 999, 100))
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("store", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("load", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("load", "not_found")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.latency))

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "cache_store", entries[0].Message)
	assert.Equal(t, "store", entries[0].Data["action"])
	assert.Equal(t, "1.7.100", entries[0].Data["content_id"])
	assert.Equal(t, logrus.DebugLevel, entries[2].Level, "misses are not warnings")
	assert.Equal(t, "memory", store.String())
}

func TestInstrumentWarnsOnFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	store := Instrument(NewMemoryStore(), logger, NewMetrics(nil))
	require.NoError(t, store.Close())

	err := store.Store(context.Background(), sampleRecord(content.NewID(1, 1, 1), "x"))
	require.ErrorIs(t, err, ErrClosed)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, "cache_store_failed", last.Message)
	assert.Equal(t, "error", last.Data["result"])
	assert.Contains(t, last.Data, logrus.ErrorKey)
}

func TestInstrumentToleratesNilMetrics(t *testing.T) {
	store := Instrument(NewMemoryStore(), nil, nil)
	defer store.Close()
	require.NoError(t, store.Sync(context.Background()))
}
