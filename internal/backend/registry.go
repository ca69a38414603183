package backend

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/content-cache/content-cache/internal/cache"
)

const defaultBackendKey = "disk"

var globalRegistry = newRegistry()

// Options 是打开任一后端所需的参数，各后端按需取用。
type Options struct {
	Path        string
	ShardDepth  int
	SyncOnStore bool
}

// Backend 描述一个可注册的存储后端。
type Backend struct {
	Key         string
	Description string
	// Persistent 为 false 表示进程退出后数据即丢失。
	Persistent bool
	Open       func(opts Options) (cache.Store, error)
}

type registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

func newRegistry() *registry {
	return &registry{backends: make(map[string]Backend)}
}

// DefaultKey 返回未配置 Backend 时使用的键。
func DefaultKey() string {
	return defaultBackendKey
}

// Register 将后端加入全局注册表，重复键会返回错误。
func Register(b Backend) error {
	return globalRegistry.register(b)
}

// MustRegister 在注册失败时 panic，适合后端 init() 中调用。
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的后端，键大小写不敏感。
func Resolve(key string) (Backend, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的后端列表。
func List() []Backend {
	return globalRegistry.list()
}

// Keys 返回所有已注册后端的键。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, b := range items {
		result[i] = b.Key
	}
	return result
}

// Open 解析 key 并打开对应后端；空键使用默认后端。
func Open(key string, opts Options) (cache.Store, error) {
	if strings.TrimSpace(key) == "" {
		key = defaultBackendKey
	}
	b, ok := Resolve(key)
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %s)", key, strings.Join(Keys(), ", "))
	}
	return b.Open(opts)
}

func (r *registry) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(b Backend) error {
	key := r.normalizeKey(b.Key)
	if key == "" {
		return fmt.Errorf("backend key is required")
	}
	if b.Open == nil {
		return fmt.Errorf("backend %s has no Open function", key)
	}
	b.Key = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[key]; exists {
		return fmt.Errorf("backend %s already registered", key)
	}
	r.backends[key] = b
	return nil
}

func (r *registry) resolve(key string) (Backend, bool) {
	if key == "" {
		return Backend{}, false
	}
	normalized := r.normalizeKey(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[normalized]
	return b, ok
}

func (r *registry) list() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.backends) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.backends))
	for key := range r.backends {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Backend, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.backends[key])
	}
	return result
}
