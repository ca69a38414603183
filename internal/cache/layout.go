package cache

import (
	"encoding/hex"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/content-cache/content-cache/internal/content"
)

const (
	shardDir      = "shard"
	recordSuffix  = ".rec"
	tempPrefix    = ".tmp-"
	maxShardDepth = 3
	// DefaultShardDepth 两级目录，每级 256 个分片。
	DefaultShardDepth = 2
)

// layoutFile 记录根目录创建时的分片层数，重新打开时据此校验。
const (
	layoutFile     = "layout"
	layoutDepthKey = "shard_depth"
)

// Layout 把 ID 确定性地映射为相对路径。文件名携带完整 ID，因此映射无冲突；
// 哈希只用于打散目录，避免单目录条目过多。
type Layout struct {
	Depth int
}

// Path 返回 ID 对应的记录文件相对路径（正斜杠分隔）。
func (l Layout) Path(id content.ID) string {
	return path.Join(l.Dir(id), id.String()+recordSuffix)
}

// Dir 返回 ID 所在的分片目录。
func (l Layout) Dir(id content.ID) string {
	key := id.String()
	sum := xxhash.Sum64String(key)

	parts := []string{shardDir}
	for i := 0; i < l.depth(); i++ {
		b := byte(sum >> (56 - 8*i))
		parts = append(parts, hex.EncodeToString([]byte{b}))
	}
	return path.Join(parts...)
}

// Parents 返回从分片目录到根（不含根）的所有目录，自深到浅。
func (l Layout) Parents(id content.ID) []string {
	dirs := []string{}
	for dir := l.Dir(id); dir != "." && dir != ""; dir = path.Dir(dir) {
		dirs = append(dirs, dir)
	}
	return dirs
}

func (l Layout) depth() int {
	switch {
	case l.Depth < 0:
		return 0
	case l.Depth > maxShardDepth:
		return maxShardDepth
	default:
		return l.Depth
	}
}

// parseRecordName 把记录文件名还原为 ID；临时文件与其它文件返回 false。
func parseRecordName(name string) (content.ID, bool) {
	if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, recordSuffix) {
		return content.ID{}, false
	}
	id, err := content.ParseID(strings.TrimSuffix(name, recordSuffix))
	if err != nil {
		return content.ID{}, false
	}
	return id, true
}

// marker 返回写入 layoutFile 的内容。
func (l Layout) marker() []byte {
	return []byte(layoutDepthKey + "=" + strconv.Itoa(l.depth()) + "\n")
}

// parseLayoutMarker 解析 marker 的输出，返回记录的分片层数。
func parseLayoutMarker(data []byte) (int, error) {
	line := strings.TrimSpace(string(data))
	key, value, ok := strings.Cut(line, "=")
	if !ok || strings.TrimSpace(key) != layoutDepthKey {
		return 0, fmt.Errorf("malformed layout marker %q", line)
	}
	depth, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || depth < 0 || depth > maxShardDepth {
		return 0, fmt.Errorf("malformed layout marker %q", line)
	}
	return depth, nil
}
