// Package codec 提供链上元数据的编解码
//
// 元数据以 CBOR 编码为紧凑二进制，再渲染成 0x 前缀的十六进制字符串写入链上 bytes 字段。
// 解码失败不是错误：链上字节可能为空、旧格式或已损坏，调用方把 nil 视为"没有元数据"。
package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fxamacker/cbor/v2"

	"github.com/weisyn/marketclient/pkg/types"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core Deterministic Encoding：相同输入总是得到相同字节
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: build cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]interface{}(nil)),
		MaxNestedLevels: 32,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: build cbor dec mode: %v", err))
	}
}

// errEmpty 链上字节为空
var errEmpty = errors.New("empty metadata")

// Marshal 将结构化值编码为紧凑二进制
func Marshal(v interface{}) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

// Encode 将结构化值（map/slice/标量树或带 cbor 标签的结构体）编码为 0x 前缀的十六进制字符串
func Encode(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(b), nil
}

// Decode 解码十六进制字符串为通用值树；任何格式问题都返回 nil
func Decode(s string) interface{} {
	var out interface{}
	if err := Unmarshal(s, &out); err != nil {
		return nil
	}
	return out
}

// DecodeBytes 与 Decode 相同，但输入为原始字节
func DecodeBytes(b []byte) interface{} {
	var out interface{}
	if err := UnmarshalBytes(b, &out); err != nil {
		return nil
	}
	return out
}

// Unmarshal 解码十六进制字符串到 out，失败时返回 *types.DecodeError
func Unmarshal(s string, out interface{}) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" || s == "0X" {
		return &types.DecodeError{Err: errEmpty}
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return &types.DecodeError{Err: err}
	}
	return UnmarshalBytes(b, out)
}

// UnmarshalBytes 解码原始字节到 out，失败时返回 *types.DecodeError
func UnmarshalBytes(b []byte, out interface{}) error {
	if len(b) == 0 {
		return &types.DecodeError{Err: errEmpty}
	}
	if err := decMode.Unmarshal(b, out); err != nil {
		return &types.DecodeError{Err: err}
	}
	return nil
}
