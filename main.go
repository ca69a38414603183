package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/content-cache/content-cache/internal/backend"
	"github.com/content-cache/content-cache/internal/bench"
	"github.com/content-cache/content-cache/internal/cache"
	"github.com/content-cache/content-cache/internal/config"
	"github.com/content-cache/content-cache/internal/logging"
	"github.com/content-cache/content-cache/internal/version"
)

// configEnv 在未传 --config 时提供配置文件路径。
const configEnv = "CONTENT_CACHE_CONFIG"

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
// 指针字段为 nil 表示未在命令行指定，沿用配置文件的值。
type cliOptions struct {
	configPath  string
	storagePath *string
	backend     *string
	count       *int
	concurrency *int
	metricsOut  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行基准流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Global, stdErr)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	storeFields := logging.StoreFields(cfg.Global.Backend, cfg.Global.StoragePath, cfg.Global.ShardDepth, cfg.Global.SyncOnStore)
	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		for k, v := range storeFields {
			fields[k] = v
		}
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 后端 Store → 指标包装 → 写阶段 → 读阶段 → 报告。
	raw, err := backend.Open(cfg.Global.Backend, backend.Options{
		Path:        cfg.Global.StoragePath,
		ShardDepth:  cfg.Global.ShardDepth,
		SyncOnStore: cfg.Global.SyncOnStore,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "打开缓存失败: %v\n", err)
		return 1
	}

	registry := prometheus.NewRegistry()
	store := cache.Instrument(raw, logger, cache.NewMetrics(registry))

	fields := logging.BaseFields("startup", opts.configPath)
	for k, v := range storeFields {
		fields[k] = v
	}
	fields["count"] = cfg.Bench.Count
	fields["concurrency"] = cfg.Bench.Concurrency
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := runBench(ctx, store, cfg, logger)
	if err := store.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("关闭缓存失败: %w", err)
	}
	if runErr != nil {
		fmt.Fprintf(stdErr, "基准运行失败: %v\n", runErr)
		return 1
	}

	if opts.metricsOut != "" {
		if err := writeMetrics(registry, opts.metricsOut); err != nil {
			fmt.Fprintf(stdErr, "写入指标失败: %v\n", err)
			return 1
		}
	}
	return 0
}

func runBench(ctx context.Context, store cache.Store, cfg *config.Config, logger *logrus.Logger) error {
	runner := bench.NewRunner(store, bench.NewGenerator(cfg.Bench), bench.Options{
		Count:            cfg.Bench.Count,
		Concurrency:      cfg.Bench.Concurrency,
		Verify:           cfg.Bench.Verify,
		ProgressInterval: cfg.Bench.ProgressInterval.DurationValue(),
	}, logger)

	fmt.Fprint(stdOut, bench.Banner(bench.PhaseWrite, cfg.Bench.Count))
	write, err := runner.Write(ctx)
	if err != nil {
		fmt.Fprintln(stdOut)
		return err
	}
	fmt.Fprintln(stdOut, bench.Done())

	fmt.Fprint(stdOut, bench.Banner(bench.PhaseRead, cfg.Bench.Count))
	read, err := runner.Read(ctx)
	if err != nil {
		fmt.Fprintln(stdOut)
		return err
	}
	fmt.Fprintln(stdOut, bench.Done())

	report := &bench.Report{Store: store.String(), Write: write, Read: read}
	return report.Render(stdOut)
}

// loadConfig 读取配置并叠加命令行覆盖项，覆盖后重新校验。
func loadConfig(opts cliOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.storagePath != nil {
		abs, err := filepath.Abs(*opts.storagePath)
		if err != nil {
			return nil, fmt.Errorf("无法解析缓存目录: %w", err)
		}
		cfg.Global.StoragePath = abs
	}
	if opts.backend != nil {
		cfg.Global.Backend = *opts.backend
	}
	if opts.count != nil {
		cfg.Bench.Count = *opts.count
	}
	if opts.concurrency != nil {
		cfg.Bench.Concurrency = *opts.concurrency
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := pflag.NewFlagSet("content-cache", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag  string
		storagePath string
		backendKey  string
		count       int
		concurrency int
		opts        cliOptions
	)

	fs.StringVarP(&configFlag, "config", "c", "", "配置文件路径（可被 "+configEnv+" 提供）")
	fs.StringVarP(&storagePath, "path", "p", "", "缓存根目录，覆盖 StoragePath")
	fs.StringVarP(&backendKey, "backend", "b", "", "存储后端："+joinKeys())
	fs.IntVarP(&count, "count", "n", 0, "写入/读取的记录数，覆盖 Bench.Count")
	fs.IntVar(&concurrency, "concurrency", 0, "并发 worker 数，覆盖 Bench.Concurrency")
	fs.StringVar(&opts.metricsOut, "metrics-out", "", "运行结束后以 Prometheus 文本格式写出指标")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return cliOptions{}, fmt.Errorf("usage: content-cache [flags]\n%s", fs.FlagUsages())
		}
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("解析参数失败: 未知参数 %v", fs.Args())
	}

	opts.configPath = os.Getenv(configEnv)
	if configFlag != "" {
		opts.configPath = configFlag
	}
	if fs.Changed("path") {
		opts.storagePath = &storagePath
	}
	if fs.Changed("backend") {
		opts.backend = &backendKey
	}
	if fs.Changed("count") {
		opts.count = &count
	}
	if fs.Changed("concurrency") {
		opts.concurrency = &concurrency
	}
	return opts, nil
}

func joinKeys() string {
	return strings.Join(backend.Keys(), "|")
}

// writeMetrics 把 registry 中的指标以文本格式写入 path。
func writeMetrics(registry *prometheus.Registry, path string) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeMetricFamilies(file, families); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeMetricFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
