package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// StatusCode 描述记录的加载状态。
type StatusCode int

const (
	StatusOK StatusCode = iota
	StatusNotFound
	StatusError
)

var statusNames = map[StatusCode]string{
	StatusOK:       "OK",
	StatusNotFound: "NOT_FOUND",
	StatusError:    "ERROR",
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StatusCode(%d)", int(s))
}

// MarshalText 让状态码在 JSON 中以 OK/NOT_FOUND/ERROR 文本出现。
func (s StatusCode) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown status code %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText 接受 MarshalText 的输出，大小写不敏感。
func (s *StatusCode) UnmarshalText(text []byte) error {
	raw := strings.ToUpper(strings.TrimSpace(string(text)))
	for code, name := range statusNames {
		if name == raw {
			*s = code
			return nil
		}
	}
	return fmt.Errorf("unknown status code %q", string(text))
}

// Info 是内容的信息块：创建标记、创建者/修改者、时间戳、两个关联内容引用与所属的版本标识。
type Info struct {
	Created        bool   `json:"created"`
	Creator        string `json:"creator"`
	Modifier       string `json:"modifier"`
	Timestamp      int64  `json:"timestamp"`
	InputTemplate  Ref    `json:"inputTemplate"`
	SecurityParent Ref    `json:"securityParent"`
	RealID         ID     `json:"realId"`
}

// Version 是版本块：所属标识、版本号、提交时间、提交者与父标识。
type Version struct {
	ID         ID     `json:"id"`
	Number     int    `json:"number"`
	CommitTime int64  `json:"commitTime"`
	Committer  string `json:"committer"`
	Parent     ID     `json:"parent"`
}

// Components 是 组件名 → (子键 → 值) 的两级映射，值按字节保存以兼容二进制负载。
type Components map[string]map[string][]byte

// Set 写入一个组件值，必要时创建组件。
func (c Components) Set(name, key string, value []byte) {
	block, ok := c[name]
	if !ok {
		block = make(map[string][]byte)
		c[name] = block
	}
	block[key] = value
}

// Get 读取一个组件值。
func (c Components) Get(name, key string) ([]byte, bool) {
	block, ok := c[name]
	if !ok {
		return nil, false
	}
	value, ok := block[key]
	return value, ok
}

// Names 返回排序后的组件名。
func (c Components) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record 是缓存持久化的最小单元。同一 ID 的再次写入整体替换旧记录。
type Record struct {
	ID         ID         `json:"id"`
	Info       Info       `json:"info"`
	Version    Version    `json:"version"`
	Components Components `json:"components"`
	Status     StatusCode `json:"status"`
}

// NewRecord 以给定 ID 初始化记录，版本块与信息块默认指向该 ID。
func NewRecord(id ID) *Record {
	return &Record{
		ID:         id,
		Info:       Info{RealID: id},
		Version:    Version{ID: id},
		Components: make(Components),
		Status:     StatusOK,
	}
}

// SetComponent 是 Components.Set 的字符串便捷方法。
func (r *Record) SetComponent(name, key, value string) {
	if r.Components == nil {
		r.Components = make(Components)
	}
	r.Components.Set(name, key, []byte(value))
}

// Component 以字符串形式读取组件值。
func (r *Record) Component(name, key string) (string, bool) {
	value, ok := r.Components.Get(name, key)
	if !ok {
		return "", false
	}
	return string(value), true
}

// ErrInvalidRecord 表示记录自身不一致，无法写入。
var ErrInvalidRecord = errors.New("invalid content record")

// Validate 检查信息块/版本块引用的标识与记录自身一致，组件名、子键非空，且所有文本字段是合法 UTF-8。
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	// JSON 编码会把非法字节替换为 U+FFFD，写入前必须拒绝，否则读回的记录与写入的不同。
	texts := map[string]string{
		"info creator":      r.Info.Creator,
		"info modifier":     r.Info.Modifier,
		"version committer": r.Version.Committer,
	}
	for field, value := range texts {
		if !utf8.ValidString(value) {
			return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidRecord, field)
		}
	}
	if !r.Version.ID.IsZero() && r.Version.ID != r.ID {
		return fmt.Errorf("%w: version block id %s differs from record id %s", ErrInvalidRecord, r.Version.ID, r.ID)
	}
	if !r.Info.RealID.IsZero() && r.Info.RealID != r.ID {
		return fmt.Errorf("%w: info block id %s differs from record id %s", ErrInvalidRecord, r.Info.RealID, r.ID)
	}
	for name, block := range r.Components {
		if name == "" {
			return fmt.Errorf("%w: empty component name", ErrInvalidRecord)
		}
		if !utf8.ValidString(name) {
			return fmt.Errorf("%w: component name %q is not valid UTF-8", ErrInvalidRecord, name)
		}
		for key := range block {
			if key == "" {
				return fmt.Errorf("%w: component %s has an empty key", ErrInvalidRecord, name)
			}
			if !utf8.ValidString(key) {
				return fmt.Errorf("%w: component %s key %q is not valid UTF-8", ErrInvalidRecord, name, key)
			}
		}
	}
	if _, ok := statusNames[r.Status]; !ok {
		return fmt.Errorf("%w: unknown status code %d", ErrInvalidRecord, int(r.Status))
	}
	return nil
}
