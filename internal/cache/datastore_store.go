package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	badgerds "github.com/ipfs/go-ds-badger"

	"github.com/content-cache/content-cache/internal/content"
)

var contentPrefix = datastore.NewKey("/content")

// NewDatastoreStore 把任意 go-datastore 后端适配为 Store，值使用与磁盘存储相同的帧编码。
func NewDatastoreStore(ds datastore.Datastore, name string) Store {
	if name == "" {
		name = "datastore"
	}
	return &datastoreStore{
		ds:    ds,
		name:  name,
		locks: newEntryLocks(),
	}
}

// NewMemoryStore 返回进程内存储，适合作为测试替身；Sync 为空操作，Close 后数据丢弃。
func NewMemoryStore() Store {
	return NewDatastoreStore(dssync.MutexWrap(datastore.NewMapDatastore()), "memory")
}

// OpenBadger 在 path 下打开 badger 嵌入式键值库作为存储后端。
func OpenBadger(path string) (Store, error) {
	if path == "" {
		return nil, &IOError{Op: "open", Err: errors.New("storage path required")}
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return nil, &IOError{Op: "open", Key: path, Err: ErrNotDirectory}
	case err != nil && !os.IsNotExist(err):
		return nil, &IOError{Op: "open", Key: path, Err: err}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, &IOError{Op: "open", Key: path, Err: fmt.Errorf("create storage path: %w", err)}
	}

	opts := badgerds.DefaultOptions
	ds, err := badgerds.NewDatastore(path, &opts)
	if err != nil {
		return nil, &IOError{Op: "open", Key: path, Err: err}
	}
	return NewDatastoreStore(ds, "badger@"+path), nil
}

type datastoreStore struct {
	ds     datastore.Datastore
	name   string
	locks  *entryLocks
	closed atomic.Bool
}

func datastoreKey(id content.ID) datastore.Key {
	return contentPrefix.ChildString(id.String())
}

func (s *datastoreStore) Store(ctx context.Context, rec *content.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return invalidRecord(rec, err)
	}
	if s.closed.Load() {
		return ioError("store", rec.ID, ErrClosed)
	}

	unlock := s.locks.lock(rec.ID)
	defer unlock()

	data, err := Encode(rec)
	if err != nil {
		return ioError("store", rec.ID, err)
	}
	if err := s.ds.Put(ctx, datastoreKey(rec.ID), data); err != nil {
		return ioError("store", rec.ID, err)
	}
	return nil
}

func (s *datastoreStore) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return &IOError{Op: "sync", Err: ErrClosed}
	}
	if err := s.ds.Sync(ctx, contentPrefix); err != nil {
		return &IOError{Op: "sync", Err: err}
	}
	return nil
}

func (s *datastoreStore) Load(ctx context.Context, id content.ID) (*content.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ioError("load", id, ErrClosed)
	}

	data, err := s.ds.Get(ctx, datastoreKey(id))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ioError("load", id, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, ioError("load", id, err)
	}
	if rec.ID != id {
		return nil, ioError("load", id, fmt.Errorf("%w: value holds record %s", ErrCorrupt, rec.ID))
	}
	return rec, nil
}

func (s *datastoreStore) Delete(ctx context.Context, id content.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ioError("delete", id, ErrClosed)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	key := datastoreKey(id)
	exists, err := s.ds.Has(ctx, key)
	if err != nil {
		return ioError("delete", id, err)
	}
	if !exists {
		return ErrNotFound
	}
	if err := s.ds.Delete(ctx, key); err != nil {
		return ioError("delete", id, err)
	}
	return nil
}

func (s *datastoreStore) Has(ctx context.Context, id content.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.closed.Load() {
		return false, ioError("has", id, ErrClosed)
	}
	exists, err := s.ds.Has(ctx, datastoreKey(id))
	if err != nil {
		return false, ioError("has", id, err)
	}
	return exists, nil
}

func (s *datastoreStore) Walk(ctx context.Context, fn func(content.ID) error) error {
	if s.closed.Load() {
		return &IOError{Op: "walk", Err: ErrClosed}
	}
	results, err := s.ds.Query(ctx, query.Query{Prefix: contentPrefix.String(), KeysOnly: true})
	if err != nil {
		return &IOError{Op: "walk", Err: err}
	}
	defer results.Close()

	for {
		res, ok := results.NextSync()
		if !ok {
			return nil
		}
		if res.Error != nil {
			return &IOError{Op: "walk", Err: res.Error}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := content.ParseID(datastore.RawKey(res.Key).BaseNamespace())
		if err != nil {
			continue
		}
		if err := fn(id); err != nil {
			return err
		}
	}
}

func (s *datastoreStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.ds.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	return nil
}

func (s *datastoreStore) String() string {
	return s.name
}
