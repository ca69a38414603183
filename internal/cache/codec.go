package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/content-cache/content-cache/internal/content"
)

// 帧格式：magic(4) | 正文长度(4, 大端) | xxhash64(8, 大端) | JSON 正文。
// 截断、篡改或错误 magic 都会解码为 ErrCorrupt。
const (
	frameMagic     = "CCR1"
	frameHeaderLen = len(frameMagic) + 4 + 8
)

// recordJSON 使用与标准库兼容的配置（map 键有序），同一记录总是编码为相同字节。
var recordJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode 把记录编码为带校验和的帧。
func Encode(rec *content.Record) ([]byte, error) {
	body, err := recordJSON.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}

	buf := make([]byte, frameHeaderLen, frameHeaderLen+len(body))
	copy(buf, frameMagic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(body)))
	binary.BigEndian.PutUint64(buf[8:16], xxhash.Sum64(body))
	return append(buf, body...), nil
}

// Decode 校验帧并还原记录。
func Decode(data []byte) (*content.Record, error) {
	if len(data) < frameHeaderLen {
		return nil, fmt.Errorf("%w: frame too short (%d bytes)", ErrCorrupt, len(data))
	}
	if !bytes.Equal(data[:4], []byte(frameMagic)) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[:4])
	}
	size := binary.BigEndian.Uint32(data[4:8])
	body := data[frameHeaderLen:]
	if uint32(len(body)) != size {
		return nil, fmt.Errorf("%w: body length %d, header says %d", ErrCorrupt, len(body), size)
	}
	if sum := xxhash.Sum64(body); sum != binary.BigEndian.Uint64(data[8:16]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	var rec content.Record
	if err := recordJSON.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &rec, nil
}

// Fingerprint 返回记录编码后的 xxhash64 与帧长度，便于在不保留整条记录的情况下比对内容。
func Fingerprint(rec *content.Record) (uint64, int, error) {
	frame, err := Encode(rec)
	if err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint64(frame[8:16]), len(frame), nil
}
