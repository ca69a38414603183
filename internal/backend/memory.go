package backend

import "github.com/content-cache/content-cache/internal/cache"

// 内存后端忽略 Path，主要用于测试与基准对照。
func init() {
	MustRegister(Backend{
		Key:         "memory",
		Description: "In-process map datastore, contents are lost on exit",
		Open: func(Options) (cache.Store, error) {
			return cache.NewMemoryStore(), nil
		},
	})
}
