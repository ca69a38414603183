package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/content-cache/content-cache/internal/content"
)

// Store 负责内容记录的持久化。磁盘布局遵循：
//
//	<root>/shard/<hh>/<hh>/<contentId>.<minor>.<commitId>.rec
//
// 每个 ID 只对应一个文件，覆盖写入时整体替换。
type Store interface {
	// Store 序列化记录并写入由 ID 决定的位置；重复写入同一 ID 为覆盖语义。
	// 若未随后调用 Sync，不保证崩溃后仍然存在。
	Store(ctx context.Context, rec *content.Record) error

	// Sync 把此前所有 Store/Delete 的结果刷到稳定存储。
	Sync(ctx context.Context) error

	// Load 读取指定 ID 的最新记录，不需要先 Sync。不存在时返回 ErrNotFound。
	Load(ctx context.Context, id content.ID) (*content.Record, error)

	// Delete 删除指定 ID 的记录，不存在时返回 ErrNotFound。
	Delete(ctx context.Context, id content.ID) error

	// Has 判断记录是否存在。
	Has(ctx context.Context, id content.ID) (bool, error)

	// Walk 遍历当前存储的所有 ID，fn 返回错误时提前终止。
	Walk(ctx context.Context, fn func(content.ID) error) error

	// Close 释放资源，可重复调用。
	Close() error

	String() string
}

var (
	// ErrNotFound 表示记录不存在（从未写入或已删除）。
	ErrNotFound = errors.New("content record not found")
	// ErrCorrupt 表示磁盘上的记录无法解码，总是包裹在 IOError 中返回。
	ErrCorrupt = errors.New("corrupt content record")
	// ErrClosed 表示存储已关闭。
	ErrClosed = errors.New("content cache closed")
	// ErrNotDirectory 表示根路径存在但不是目录。
	ErrNotDirectory = errors.New("storage path is not a directory")
	// ErrLayoutMismatch 表示根目录以不同的分片层数创建，按当前配置无法定位已有记录。
	ErrLayoutMismatch = errors.New("storage layout mismatch")
)

// IOError 描述一次存储失败：磁盘满、权限不足、记录损坏或存储已关闭。
// 与 ErrNotFound 区分，便于调用方判断“缺失”还是“损坏”。
type IOError struct {
	Op  string
	Key string
	Err error
}

func (e *IOError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("content cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("content cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioError(op string, id content.ID, err error) error {
	return &IOError{Op: op, Key: id.String(), Err: err}
}

// invalidRecord 把校验失败包装为 store 操作的 IOError，nil 记录没有键。
func invalidRecord(rec *content.Record, err error) error {
	if rec == nil {
		return &IOError{Op: "store", Err: err}
	}
	return ioError("store", rec.ID, err)
}

// IsIOError 判断 err 链上是否存在 IOError。
func IsIOError(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}
