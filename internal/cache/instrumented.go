package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/content-cache/content-cache/internal/content"
)

// Metrics 汇总存储操作的计数与延迟直方图。
type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewMetrics 创建指标并注册到 reg；reg 为 nil 时只创建不注册。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "content_cache",
			Name:      "operations_total",
			Help:      "Content cache operations by operation and result.",
		}, []string{"op", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "content_cache",
			Name:      "operation_duration_seconds",
			Help:      "Content cache operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 16),
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.latency)
	}
	return m
}

func (m *Metrics) observe(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// Instrument 为 store 的每个操作输出 debug 级结构化日志并更新指标，
// 失败（ErrNotFound 除外）以 warn 级别记录。
func Instrument(store Store, logger *logrus.Logger, metrics *Metrics) Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &instrumentedStore{
		store:   store,
		logger:  logger.WithField("store", store.String()),
		metrics: metrics,
	}
}

type instrumentedStore struct {
	store   Store
	logger  *logrus.Entry
	metrics *Metrics
}

func (i *instrumentedStore) record(op string, id *content.ID, started time.Time, err error) {
	i.metrics.observe(op, started, err)

	fields := logrus.Fields{
		"action":      op,
		"duration_ms": float64(time.Since(started).Microseconds()) / 1000,
		"result":      resultLabel(err),
	}
	if id != nil {
		fields["content_id"] = id.String()
	}
	entry := i.logger.WithFields(fields)
	if err != nil && !errors.Is(err, ErrNotFound) {
		entry.WithError(err).Warn("cache_" + op + "_failed")
		return
	}
	entry.Debug("cache_" + op)
}

func (i *instrumentedStore) Store(ctx context.Context, rec *content.Record) error {
	started := time.Now()
	err := i.store.Store(ctx, rec)
	var id *content.ID
	if rec != nil {
		id = &rec.ID
	}
	i.record("store", id, started, err)
	return err
}

func (i *instrumentedStore) Sync(ctx context.Context) error {
	started := time.Now()
	err := i.store.Sync(ctx)
	i.record("sync", nil, started, err)
	return err
}

func (i *instrumentedStore) Load(ctx context.Context, id content.ID) (*content.Record, error) {
	started := time.Now()
	rec, err := i.store.Load(ctx, id)
	i.record("load", &id, started, err)
	return rec, err
}

func (i *instrumentedStore) Delete(ctx context.Context, id content.ID) error {
	started := time.Now()
	err := i.store.Delete(ctx, id)
	i.record("delete", &id, started, err)
	return err
}

func (i *instrumentedStore) Has(ctx context.Context, id content.ID) (bool, error) {
	started := time.Now()
	ok, err := i.store.Has(ctx, id)
	i.record("has", &id, started, err)
	return ok, err
}

func (i *instrumentedStore) Walk(ctx context.Context, fn func(content.ID) error) error {
	started := time.Now()
	err := i.store.Walk(ctx, fn)
	i.record("walk", nil, started, err)
	return err
}

func (i *instrumentedStore) Close() error {
	started := time.Now()
	err := i.store.Close()
	i.record("close", nil, started, err)
	return err
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}
