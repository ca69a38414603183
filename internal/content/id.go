package content

import (
	"fmt"
	"strconv"
	"strings"
)

// ID 唯一定位某个内容的某个版本，既是缓存键，也嵌入在记录元数据中。
type ID struct {
	ContentID int `json:"contentId"`
	Minor     int `json:"minor"`
	CommitID  int `json:"commitId"`
}

// NewID 构造 (contentId, minor, commitId) 三元组。
func NewID(contentID, minor, commitID int) ID {
	return ID{ContentID: contentID, Minor: minor, CommitID: commitID}
}

// String 输出规范文本形式 "<contentId>.<minor>.<commitId>"，磁盘文件名与数据库键都基于它。
func (id ID) String() string {
	return strconv.Itoa(id.ContentID) + "." + strconv.Itoa(id.Minor) + "." + strconv.Itoa(id.CommitID)
}

// IsZero 表示三元组尚未赋值。
func (id ID) IsZero() bool {
	return id == ID{}
}

// ParseID 解析 String 的输出；任何多余或缺失的分段都会报错。
func ParseID(raw string) (ID, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("invalid content id %q: expected <contentId>.<minor>.<commitId>", raw)
	}
	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return ID{}, fmt.Errorf("invalid content id %q: %w", raw, err)
		}
		values[i] = v
	}
	return NewID(values[0], values[1], values[2]), nil
}

// MustParseID 供测试与常量初始化使用，解析失败时 panic。
func MustParseID(raw string) ID {
	id, err := ParseID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Ref 是不带 commit 的内容引用（major.minor），用于信息块里指向相关内容。
type Ref struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// NewRef 构造内容引用。
func NewRef(major, minor int) Ref {
	return Ref{Major: major, Minor: minor}
}

func (r Ref) String() string {
	return strconv.Itoa(r.Major) + "." + strconv.Itoa(r.Minor)
}
