package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/content-cache/content-cache/internal/cache"
	"github.com/content-cache/content-cache/internal/logging"
)

const (
	PhaseWrite = "write"
	PhaseRead  = "read"

	// 直方图以微秒记录，上限 60s，保留 3 位有效数字。
	minLatencyMicros = 1
	maxLatencyMicros = int64(60 * time.Second / time.Microsecond)
	latencySigFigs   = 3
)

// ErrMismatch 表示读回的记录与写入时不一致。
var ErrMismatch = errors.New("record mismatch")

// Options 控制一次基准运行。
type Options struct {
	Count            int
	Concurrency      int
	Verify           bool
	ProgressInterval time.Duration
}

// PhaseResult 汇总单个阶段的结果。Bytes 只在开启校验时统计。
type PhaseResult struct {
	Phase   string
	Ops     int
	Bytes   int64
	Elapsed time.Duration
	P50     time.Duration
	P99     time.Duration
	Max     time.Duration
}

// OpsPerSecond 按墙钟时间计算吞吐。
func (p PhaseResult) OpsPerSecond() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Ops) / p.Elapsed.Seconds()
}

// Runner 对一个 Store 依次执行写阶段与读阶段。
type Runner struct {
	store  cache.Store
	gen    *Generator
	opts   Options
	logger *logrus.Logger

	// fingerprints[i-1] 保存第 i 条记录写入时的编码摘要，仅在 Verify 时填充。
	fingerprints []uint64
}

// NewRunner 创建 Runner；logger 为 nil 时使用 logrus 标准 logger。
func NewRunner(store cache.Store, gen *Generator, opts Options, logger *logrus.Logger) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Count < 0 {
		opts.Count = 0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{store: store, gen: gen, opts: opts, logger: logger}
}

// Run 依次执行写、读两个阶段。
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	write, err := r.Write(ctx)
	if err != nil {
		return nil, err
	}
	read, err := r.Read(ctx)
	if err != nil {
		return nil, err
	}
	return &Report{Store: r.store.String(), Write: write, Read: read}, nil
}

// Write 逐条存储记录 1..Count，每次存储后调用 Sync。
func (r *Runner) Write(ctx context.Context) (PhaseResult, error) {
	if r.opts.Verify {
		r.fingerprints = make([]uint64, r.opts.Count)
	}
	var bytes atomic.Int64

	result, err := r.phase(ctx, PhaseWrite, func(ctx context.Context, i int) error {
		rec := r.gen.Record(i)
		if r.opts.Verify {
			sum, size, err := cache.Fingerprint(rec)
			if err != nil {
				return err
			}
			r.fingerprints[i-1] = sum
			bytes.Add(int64(size))
		}
		if err := r.store.Store(ctx, rec); err != nil {
			return err
		}
		return r.store.Sync(ctx)
	})
	result.Bytes = bytes.Load()
	return result, err
}

// Read 逐条加载记录 1..Count；开启校验时比对写入时的摘要。
func (r *Runner) Read(ctx context.Context) (PhaseResult, error) {
	verify := r.opts.Verify && len(r.fingerprints) == r.opts.Count
	var bytes atomic.Int64

	result, err := r.phase(ctx, PhaseRead, func(ctx context.Context, i int) error {
		id := r.gen.ID(i)
		rec, err := r.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if !verify {
			return nil
		}
		sum, size, err := cache.Fingerprint(rec)
		if err != nil {
			return err
		}
		if sum != r.fingerprints[i-1] {
			return fmt.Errorf("%w: %s", ErrMismatch, id)
		}
		bytes.Add(int64(size))
		return nil
	})
	result.Bytes = bytes.Load()
	return result, err
}

func (r *Runner) phase(ctx context.Context, name string, op func(ctx context.Context, i int) error) (PhaseResult, error) {
	hist := newLatencyHistogram()
	var done atomic.Int64

	stopProgress := r.reportProgress(name, &done)
	defer stopProgress()

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i := 1; i <= r.opts.Count; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			opStarted := time.Now()
			if err := op(gctx, i); err != nil {
				return fmt.Errorf("%s %s: %w", name, r.gen.ID(i), err)
			}
			hist.record(time.Since(opStarted))
			done.Add(1)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	result := hist.result(name, int(done.Load()), time.Since(started))
	if err != nil {
		r.logger.WithFields(logging.BenchFields(name, result.Ops, r.opts.Count)).
			WithError(err).Error("bench_phase_failed")
		return result, err
	}
	r.logger.WithFields(logging.BenchFields(name, result.Ops, r.opts.Count)).
		WithField("ops_per_sec", result.OpsPerSecond()).
		Info("bench_phase_done")
	return result, nil
}

// reportProgress 按 ProgressInterval 输出进度日志，返回停止函数。
func (r *Runner) reportProgress(name string, done *atomic.Int64) func() {
	if r.opts.ProgressInterval <= 0 {
		return func() {}
	}
	ticker := time.NewTicker(r.opts.ProgressInterval)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ticker.C:
				r.logger.WithFields(logging.BenchFields(name, int(done.Load()), r.opts.Count)).
					Info("bench_progress")
			case <-stop:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(stop)
		wg.Wait()
	}
}

// latencyHistogram 为 hdrhistogram 加锁，供并发 worker 共享。
type latencyHistogram struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func newLatencyHistogram() *latencyHistogram {
	return &latencyHistogram{hist: hdrhistogram.New(minLatencyMicros, maxLatencyMicros, latencySigFigs)}
}

func (h *latencyHistogram) record(d time.Duration) {
	v := d.Microseconds()
	if v < minLatencyMicros {
		v = minLatencyMicros
	}
	if v > maxLatencyMicros {
		v = maxLatencyMicros
	}
	h.mu.Lock()
	_ = h.hist.RecordValue(v)
	h.mu.Unlock()
}

func (h *latencyHistogram) result(name string, ops int, elapsed time.Duration) PhaseResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	res := PhaseResult{Phase: name, Ops: ops, Elapsed: elapsed}
	if h.hist.TotalCount() == 0 {
		return res
	}
	res.P50 = time.Duration(h.hist.ValueAtQuantile(50)) * time.Microsecond
	res.P99 = time.Duration(h.hist.ValueAtQuantile(99)) * time.Microsecond
	res.Max = time.Duration(h.hist.Max()) * time.Microsecond
	return res
}

