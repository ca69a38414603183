package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/content-cache/content-cache/internal/backend"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 CONTENT_CACHE_STORAGEPATH、CONTENT_CACHE_BENCH_COUNT。
const EnvPrefix = "CONTENT_CACHE"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyBenchDefaults(&cfg.Bench)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.resolveStoragePath(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回不读取文件时的配置，等价于 Load("")。
func Default() (*Config, error) {
	return Load("")
}

func (c *Config) resolveStoragePath() error {
	absStorage, err := filepath.Abs(c.Global.StoragePath)
	if err != nil {
		return fmt.Errorf("无法解析缓存目录: %w", err)
	}
	c.Global.StoragePath = absStorage
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("Backend", backend.DefaultKey())
	v.SetDefault("ShardDepth", 2)
	v.SetDefault("SyncOnStore", false)

	v.SetDefault("Bench.Count", 100000)
	v.SetDefault("Bench.Concurrency", 1)
	v.SetDefault("Bench.FillerSize", 4096)
	v.SetDefault("Bench.Verify", true)
	v.SetDefault("Bench.ProgressInterval", "1s")
	v.SetDefault("Bench.ContentID", 1)
	v.SetDefault("Bench.CommitID", 100)
	v.SetDefault("Bench.PrincipalID", "18.10.100")
	v.SetDefault("Bench.Creator", "principal_1")
	v.SetDefault("Bench.Modifier", "principal_2")
	v.SetDefault("Bench.Committer", "principal_3")
}

func applyGlobalDefaults(g *GlobalConfig) {
	g.LogLevel = strings.ToLower(strings.TrimSpace(g.LogLevel))
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	g.Backend = strings.ToLower(strings.TrimSpace(g.Backend))
	if g.Backend == "" {
		g.Backend = backend.DefaultKey()
	}
}

func applyBenchDefaults(b *BenchConfig) {
	if b.Concurrency == 0 {
		b.Concurrency = 1
	}
	if b.ProgressInterval.DurationValue() < 0 {
		b.ProgressInterval = Duration(0)
	}
	b.PrincipalID = strings.TrimSpace(b.PrincipalID)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
