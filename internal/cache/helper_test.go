package cache

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/content-cache/content-cache/internal/content"
)

// storeBackend 描述一种待测实现；reopen 为 nil 表示该实现不跨实例持久化。
type storeBackend struct {
	name   string
	open   func(t *testing.T) Store
	reopen func(t *testing.T) Store
}

func backends(t *testing.T) []storeBackend {
	t.Helper()
	return []storeBackend{
		diskBackend(t, "disk-osfs", nil),
		diskBackend(t, "disk-memfs", afero.NewMemMapFs()),
		{
			name: "memory",
			open: func(t *testing.T) Store { return NewMemoryStore() },
		},
		badgerBackend(t),
	}
}

func diskBackend(t *testing.T, name string, fs afero.Fs) storeBackend {
	t.Helper()
	var root string
	opener := func(t *testing.T) Store {
		if root == "" {
			if fs == nil {
				root = t.TempDir()
			} else {
				root = "/cache"
			}
		}
		var opts []Option
		if fs != nil {
			opts = append(opts, WithFs(fs))
		}
		store, err := Open(root, opts...)
		require.NoError(t, err)
		return store
	}
	return storeBackend{name: name, open: opener, reopen: opener}
}

func badgerBackend(t *testing.T) storeBackend {
	t.Helper()
	var root string
	opener := func(t *testing.T) Store {
		if root == "" {
			root = filepath.Join(t.TempDir(), "badger")
		}
		store, err := OpenBadger(root)
		require.NoError(t, err)
		return store
	}
	return storeBackend{name: "badger", open: opener, reopen: opener}
}

// newTestStore returns a disk Store backed by a temporary directory.
func newTestStore(t *testing.T, opts ...Option) *diskStore {
	t.Helper()
	store, err := Open(t.TempDir(), opts...)
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { _ = store.Close() })

	ds, ok := store.(*diskStore)
	require.Truef(t, ok, "unexpected store type %T", store)
	return ds
}

func sampleRecord(id content.ID, payload string) *content.Record {
	rec := content.NewRecord(id)
	rec.Info = content.Info{
		Created:        true,
		Creator:        "principal_1",
		Modifier:       "principal_2",
		Timestamp:      int64(id.Minor) * 1000,
		InputTemplate:  content.NewRef(1, 1),
		SecurityParent: content.NewRef(1, 2),
		RealID:         id,
	}
	rec.Version = content.Version{
		ID:         id,
		Number:     0,
		CommitTime: int64(id.CommitID) + int64(id.Minor)*1000,
		Committer:  "principal_3",
		Parent:     content.NewID(18, 10, 100),
	}
	rec.SetComponent("foo", "bar", payload)
	rec.Components.Set("binary", "raw", []byte{0x00, 0x01, 0xfe, 0xff})
	return rec
}
