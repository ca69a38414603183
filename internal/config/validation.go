package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/content-cache/content-cache/internal/backend"
	"github.com/content-cache/content-cache/internal/content"
)

const maxShardDepth = 3

// Validate 针对语义级别做进一步校验，防止非法配置启动基准。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "仅支持 panic|fatal|error|warn|info|debug|trace")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if _, ok := backend.Resolve(g.Backend); !ok {
		return newFieldError("Global.Backend", fmt.Sprintf("未注册后端: %s，可选 %s", g.Backend, strings.Join(backend.Keys(), "|")))
	}
	if g.ShardDepth < 0 || g.ShardDepth > maxShardDepth {
		return newFieldError("Global.ShardDepth", fmt.Sprintf("必须在 0-%d", maxShardDepth))
	}

	return c.Bench.validate()
}

func (b BenchConfig) validate() error {
	if b.Count < 0 {
		return newFieldError(benchField("Count"), "不能为负数")
	}
	if b.Concurrency < 1 {
		return newFieldError(benchField("Concurrency"), "必须大于 0")
	}
	if b.FillerSize < 0 {
		return newFieldError(benchField("FillerSize"), "不能为负数")
	}
	if b.CommitID < 0 {
		return newFieldError(benchField("CommitID"), "不能为负数")
	}
	if _, err := content.ParseID(b.PrincipalID); err != nil {
		return newFieldError(benchField("PrincipalID"), "必须形如 contentId.minor.commitId")
	}
	principals := []struct{ field, value string }{
		{"Creator", b.Creator},
		{"Modifier", b.Modifier},
		{"Committer", b.Committer},
	}
	for _, p := range principals {
		if strings.TrimSpace(p.value) == "" {
			return newFieldError(benchField(p.field), "不能为空")
		}
	}
	return nil
}
