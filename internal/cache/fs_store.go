package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/content-cache/content-cache/internal/content"
)

// Open 以 root 为根目录打开磁盘缓存（不存在则创建）。root 已存在但不是目录，
// 或目录不可写时返回 IOError。
func Open(root string, opts ...Option) (Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, &IOError{Op: "open", Err: errors.New("storage path required")}
	}

	o := defaultDiskOptions()
	for _, opt := range opts {
		opt(&o)
	}

	base := o.fs
	if base == nil {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, &IOError{Op: "open", Key: root, Err: fmt.Errorf("resolve storage path: %w", err)}
		}
		root = abs
		base = afero.NewOsFs()
	}

	info, err := base.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return nil, &IOError{Op: "open", Key: root, Err: ErrNotDirectory}
	case err != nil && !os.IsNotExist(err):
		return nil, &IOError{Op: "open", Key: root, Err: err}
	}

	if err := base.MkdirAll(root, o.dirMode); err != nil {
		return nil, &IOError{Op: "open", Key: root, Err: fmt.Errorf("create storage path: %w", err)}
	}
	if err := checkWritable(base, root, o.fileMode); err != nil {
		return nil, &IOError{Op: "open", Key: root, Err: fmt.Errorf("storage path not writable: %w", err)}
	}
	layout := Layout{Depth: o.shardDepth}
	if err := checkLayout(base, root, layout, o.fileMode); err != nil {
		return nil, &IOError{Op: "open", Key: root, Err: err}
	}

	return &diskStore{
		root:         root,
		fs:           afero.NewBasePathFs(base, root),
		layout:       layout,
		opts:         o,
		locks:        newEntryLocks(),
		pendingFiles: make(map[string]struct{}),
		pendingDirs:  make(map[string]struct{}),
	}, nil
}

func checkWritable(fs afero.Fs, root string, mode os.FileMode) error {
	name := filepath.Join(root, tempPrefix+"writable-"+uuid.NewString())
	f, err := fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	closeErr := f.Close()
	removeErr := fs.Remove(name)
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}

// checkLayout 首次打开时写入分片层数标记，之后的打开必须使用相同层数。
func checkLayout(fs afero.Fs, root string, layout Layout, mode os.FileMode) error {
	name := filepath.Join(root, layoutFile)
	data, err := afero.ReadFile(fs, name)
	if err == nil {
		depth, err := parseLayoutMarker(data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLayoutMismatch, err)
		}
		if depth != layout.depth() {
			return fmt.Errorf("%w: root uses shard depth %d, requested %d", ErrLayoutMismatch, depth, layout.depth())
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("read layout marker: %w", err)
	}

	tempName := filepath.Join(root, tempPrefix+layoutFile+"-"+uuid.NewString())
	f, err := fs.OpenFile(tempName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("write layout marker: %w", err)
	}
	_, err = f.Write(layout.marker())
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = fs.Rename(tempName, name)
	}
	if err != nil {
		_ = fs.Remove(tempName)
		return fmt.Errorf("write layout marker: %w", err)
	}
	return nil
}

// diskStore 每个 ID 一个文件；写入经临时文件 + rename 原子替换，
// 待 fsync 的文件和目录记录在 pending 集合中，由 Sync 统一刷盘。
type diskStore struct {
	root   string
	fs     afero.Fs
	layout Layout
	opts   diskOptions
	locks  *entryLocks
	closed atomic.Bool

	pendingMu    sync.Mutex
	pendingFiles map[string]struct{}
	pendingDirs  map[string]struct{}
}

func (s *diskStore) Store(ctx context.Context, rec *content.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return invalidRecord(rec, err)
	}
	id := rec.ID
	if s.closed.Load() {
		return ioError("store", id, ErrClosed)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	data, err := Encode(rec)
	if err != nil {
		return ioError("store", id, err)
	}

	dirtyDirs, err := s.ensureDirs(id)
	if err != nil {
		return ioError("store", id, err)
	}

	final := s.entryPath(id)
	if err := s.writeAtomic(final, data); err != nil {
		return ioError("store", id, err)
	}

	if s.opts.syncOnStore {
		for _, dir := range dirtyDirs {
			if err := s.syncPath(dir); err != nil {
				return ioError("store", id, err)
			}
		}
		return nil
	}

	s.markDirty([]string{final}, dirtyDirs)
	return nil
}

// writeAtomic 先写同目录下的临时文件再 rename，失败时清理临时文件。
func (s *diskStore) writeAtomic(final string, data []byte) error {
	tempName := filepath.Join(filepath.Dir(final), tempPrefix+uuid.NewString())
	tempFile, err := s.fs.OpenFile(tempName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, s.opts.fileMode)
	if err != nil {
		return err
	}

	_, err = tempFile.Write(data)
	if err == nil && s.opts.syncOnStore {
		err = tempFile.Sync()
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tempName)
		return err
	}

	if err := s.fs.Rename(tempName, final); err != nil {
		_ = s.fs.Remove(tempName)
		return err
	}
	return nil
}

// ensureDirs 确保分片目录存在，返回需要 fsync 才能让新目录项持久化的目录。
func (s *diskStore) ensureDirs(id content.ID) ([]string, error) {
	parents := s.layout.Parents(id)
	leaf := filepath.FromSlash(parents[0])

	dirty := []string{leaf}
	if _, err := s.fs.Stat(leaf); err == nil {
		return dirty, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	for _, dir := range parents {
		native := filepath.FromSlash(dir)
		if _, err := s.fs.Stat(native); err == nil {
			break
		}
		dirty = append(dirty, filepath.Dir(native))
	}
	if err := s.fs.MkdirAll(leaf, s.opts.dirMode); err != nil {
		return nil, err
	}
	return dirty, nil
}

func (s *diskStore) markDirty(files, dirs []string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for _, f := range files {
		s.pendingFiles[f] = struct{}{}
	}
	for _, d := range dirs {
		s.pendingDirs[d] = struct{}{}
	}
}

func (s *diskStore) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return &IOError{Op: "sync", Err: ErrClosed}
	}

	s.pendingMu.Lock()
	files := sortedKeys(s.pendingFiles)
	dirs := sortedKeys(s.pendingDirs)
	s.pendingFiles = make(map[string]struct{})
	s.pendingDirs = make(map[string]struct{})
	s.pendingMu.Unlock()

	// 先刷文件内容，再刷目录项，保证 rename 持久化时正文已落盘。
	for i, name := range files {
		if err := s.syncPath(name); err != nil {
			s.markDirty(files[i:], dirs)
			return &IOError{Op: "sync", Key: name, Err: err}
		}
	}
	for i, dir := range dirs {
		if err := s.syncPath(dir); err != nil {
			s.markDirty(nil, dirs[i:])
			return &IOError{Op: "sync", Key: dir, Err: err}
		}
	}
	return nil
}

// syncPath fsync 文件或目录；已被删除的文件视为无需刷盘。
func (s *diskStore) syncPath(name string) error {
	f, err := s.fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	syncErr := f.Sync()
	closeErr := f.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

func (s *diskStore) Load(ctx context.Context, id content.ID) (*content.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ioError("load", id, ErrClosed)
	}

	filePath := s.entryPath(id)
	info, err := s.fs.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, ioError("load", id, err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	data, err := afero.ReadFile(s.fs, filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, ioError("load", id, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, ioError("load", id, err)
	}
	if rec.ID != id {
		return nil, ioError("load", id, fmt.Errorf("%w: file holds record %s", ErrCorrupt, rec.ID))
	}
	return rec, nil
}

func (s *diskStore) Delete(ctx context.Context, id content.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ioError("delete", id, ErrClosed)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	filePath := s.entryPath(id)
	info, err := s.fs.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return ioError("delete", id, err)
	}
	if info.IsDir() {
		return ErrNotFound
	}
	if err := s.fs.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return ioError("delete", id, err)
	}

	dir := filepath.Dir(filePath)
	if s.opts.syncOnStore {
		if err := s.syncPath(dir); err != nil {
			return ioError("delete", id, err)
		}
		return nil
	}

	s.pendingMu.Lock()
	delete(s.pendingFiles, filePath)
	s.pendingDirs[dir] = struct{}{}
	s.pendingMu.Unlock()
	return nil
}

func (s *diskStore) Has(ctx context.Context, id content.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.closed.Load() {
		return false, ioError("has", id, ErrClosed)
	}
	info, err := s.fs.Stat(s.entryPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, ioError("has", id, err)
	}
	return !info.IsDir(), nil
}

func (s *diskStore) Walk(ctx context.Context, fn func(content.ID) error) error {
	if s.closed.Load() {
		return &IOError{Op: "walk", Err: ErrClosed}
	}
	return afero.Walk(s.fs, shardDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == shardDir && os.IsNotExist(err) {
				return nil
			}
			return &IOError{Op: "walk", Key: p, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		id, ok := parseRecordName(filepath.Base(p))
		if !ok {
			return nil
		}
		return fn(id)
	})
}

// Close 标记存储为关闭；未 Sync 的写入不会被隐式刷盘。
func (s *diskStore) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *diskStore) String() string {
	return "disk@" + s.root
}

func (s *diskStore) entryPath(id content.ID) string {
	return filepath.FromSlash(s.layout.Path(id))
}

// pendingCount 返回尚未 Sync 的文件与目录数量。
func (s *diskStore) pendingCount() (int, int) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pendingFiles), len(s.pendingDirs)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
