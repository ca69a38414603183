package backend

import "github.com/content-cache/content-cache/internal/cache"

func init() {
	MustRegister(Backend{
		Key:         defaultBackendKey,
		Description: "One checksummed file per record under a sharded directory tree",
		Persistent:  true,
		Open: func(opts Options) (cache.Store, error) {
			return cache.Open(opts.Path,
				cache.WithShardDepth(opts.ShardDepth),
				cache.WithSyncOnStore(opts.SyncOnStore),
			)
		},
	})
}
