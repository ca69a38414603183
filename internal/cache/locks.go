package cache

import (
	"sync"

	"github.com/content-cache/content-cache/internal/content"
)

// entryLocks 通过引用计数的 entryLock 串行化同一 ID 的写入/删除，不同 ID 互不阻塞。
type entryLocks struct {
	mu    sync.Mutex
	locks map[content.ID]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func newEntryLocks() *entryLocks {
	return &entryLocks{locks: make(map[content.ID]*entryLock)}
}

// lock 获取 id 的独占锁，返回的函数负责释放，并在无人持有时回收条目。
func (l *entryLocks) lock(id content.ID) func() {
	l.mu.Lock()
	entry := l.locks[id]
	if entry == nil {
		entry = &entryLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *entryLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
