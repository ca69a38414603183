package integration

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"github.com/content-cache/content-cache/internal/cache"
	"github.com/content-cache/content-cache/internal/content"
)

func TestCacheWriteCleanupOnInterruptedStore(t *testing.T) {
	fs := &flakyFs{Fs: afero.NewMemMapFs()}
	store, err := cache.Open("/cache", cache.WithFs(fs))
	if err != nil {
		t.Fatalf("store init error: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	id := content.NewID(1, 7, 100)
	first := content.NewRecord(id)
	first.SetComponent("foo", "bar", "hello")
	if err := store.Store(ctx, first); err != nil {
		t.Fatalf("first store error: %v", err)
	}

	fs.failWrites.Store(true)
	second := content.NewRecord(id)
	second.SetComponent("foo", "bar", "replacement")
	err = store.Store(ctx, second)
	if err == nil {
		t.Fatalf("expected error from interrupted write")
	}
	if !cache.IsIOError(err) {
		t.Fatalf("expected IOError, got %T: %v", err, err)
	}
	fs.failWrites.Store(false)

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("previous record should survive: %v", err)
	}
	if v, _ := loaded.Component("foo", "bar"); v != "hello" {
		t.Fatalf("expected previous value, got %q", v)
	}

	var leftovers []string
	_ = afero.Walk(fs.Fs, "/cache", func(path string, info os.FileInfo, err error) error {
		if err == nil && strings.HasPrefix(info.Name(), ".tmp-") {
			leftovers = append(leftovers, path)
		}
		return nil
	})
	if len(leftovers) != 0 {
		t.Fatalf("temporary files should be cleaned up, found %v", leftovers)
	}
}

var errInjected = errors.New("injected write failure")

// flakyFs 在 failWrites 置位后让所有文件写入失败。
type flakyFs struct {
	afero.Fs
	failWrites atomic.Bool
}

func (f *flakyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	file, err := f.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &flakyFile{File: file, fs: f}, nil
}

type flakyFile struct {
	afero.File
	fs *flakyFs
}

func (f *flakyFile) Write(p []byte) (int, error) {
	if f.fs.failWrites.Load() {
		n := len(p) / 2
		_, _ = f.File.Write(p[:n])
		return n, errInjected
	}
	return f.File.Write(p)
}
