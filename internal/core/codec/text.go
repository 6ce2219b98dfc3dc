package codec

import (
	"bytes"
	"fmt"
)

// BytesToText 将定长字节串（如 bytes32）转为文本，去掉尾部的零填充
func BytesToText(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

// Bytes32ToText BytesToText 的 [32]byte 版本
func Bytes32ToText(b [32]byte) string {
	return BytesToText(b[:])
}

// TextToBytes32 将文本转为右侧零填充的 bytes32；超过 32 字节时报错
func TextToBytes32(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) > len(out) {
		return out, fmt.Errorf("text %q exceeds 32 bytes", s)
	}
	copy(out[:], s)
	return out, nil
}
