package backend

import "github.com/content-cache/content-cache/internal/cache"

func init() {
	MustRegister(Backend{
		Key:         "badger",
		Description: "Badger LSM datastore rooted at the storage path",
		Persistent:  true,
		Open: func(opts Options) (cache.Store, error) {
			return cache.OpenBadger(opts.Path)
		},
	})
}
