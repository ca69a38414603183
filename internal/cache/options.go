package cache

import (
	"os"

	"github.com/spf13/afero"
)

type diskOptions struct {
	fs          afero.Fs
	shardDepth  int
	syncOnStore bool
	dirMode     os.FileMode
	fileMode    os.FileMode
}

func defaultDiskOptions() diskOptions {
	return diskOptions{
		shardDepth: DefaultShardDepth,
		dirMode:    0o755,
		fileMode:   0o644,
	}
}

// Option 调整磁盘存储的行为。
type Option func(*diskOptions)

// WithFs 注入底层文件系统，测试中常用 afero.NewMemMapFs()。默认使用 afero.NewOsFs()。
func WithFs(fs afero.Fs) Option {
	return func(o *diskOptions) {
		o.fs = fs
	}
}

// WithShardDepth 设置分片目录层数（0-3）。
func WithShardDepth(depth int) Option {
	return func(o *diskOptions) {
		o.shardDepth = depth
	}
}

// WithSyncOnStore 让每次 Store 在返回前直接 fsync，Sync 因此变为空操作。
func WithSyncOnStore(enabled bool) Option {
	return func(o *diskOptions) {
		o.syncOnStore = enabled
	}
}
