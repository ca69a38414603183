package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/content-cache/content-cache/internal/content"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if seconds, err := time.ParseDuration(raw); err == nil {
		*d = Duration(seconds)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述日志与存储相关的全局参数。
type GlobalConfig struct {
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	StoragePath   string `mapstructure:"StoragePath"`
	Backend       string `mapstructure:"Backend"`
	ShardDepth    int    `mapstructure:"ShardDepth"`
	SyncOnStore   bool   `mapstructure:"SyncOnStore"`
}

// BenchConfig 控制基准命令生成的记录数量、并发与记录中的主体标识。
type BenchConfig struct {
	Count            int      `mapstructure:"Count"`
	Concurrency      int      `mapstructure:"Concurrency"`
	FillerSize       int      `mapstructure:"FillerSize"`
	Verify           bool     `mapstructure:"Verify"`
	ProgressInterval Duration `mapstructure:"ProgressInterval"`
	ContentID        int      `mapstructure:"ContentID"`
	CommitID         int      `mapstructure:"CommitID"`
	PrincipalID      string   `mapstructure:"PrincipalID"`
	Creator          string   `mapstructure:"Creator"`
	Modifier         string   `mapstructure:"Modifier"`
	Committer        string   `mapstructure:"Committer"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Bench  BenchConfig  `mapstructure:"Bench"`
}

// Principal 解析 PrincipalID，假定 Validate 已经通过。
func (b BenchConfig) Principal() content.ID {
	id, err := content.ParseID(b.PrincipalID)
	if err != nil {
		return content.ID{}
	}
	return id
}
