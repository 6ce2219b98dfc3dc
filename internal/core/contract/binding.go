// Package contract 提供远程合约字段的类型化读写访问
//
// Binding 由字段列表生成：每个字段一个 getter `name()`，每个可写字段一个
// setter `setName(value)`。Proxy 在 Binding 之上维护只读快照，
// 并把部分字段更新转换为有序的调用描述（Call），由 Batcher 合并为一笔交易。
package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/marketclient/internal/core/codec"
	"github.com/weisyn/marketclient/pkg/types"
)

// FieldType 字段的链上标量类型
type FieldType string

const (
	FieldBool    FieldType = "bool"
	FieldBytes32 FieldType = "bytes32"
	FieldUint    FieldType = "uint256"
	FieldAddress FieldType = "address"
	FieldBytes   FieldType = "bytes"
	FieldString  FieldType = "string"
)

// Field 字段声明
type Field struct {
	Name     string
	Type     FieldType
	ReadOnly bool
}

// Binding 某一种合约的类型化绑定
type Binding struct {
	kind    types.ContractKind
	abi     abi.ABI
	fields  []Field
	byName  map[string]Field
	setters map[string]string // 字段名 -> setter 方法名
}

// NewBinding 根据字段列表生成绑定
func NewBinding(kind types.ContractKind, fields []Field) (*Binding, error) {
	b := &Binding{
		kind:    kind,
		abi:     abi.ABI{Methods: make(map[string]abi.Method, len(fields)*2)},
		byName:  make(map[string]Field, len(fields)),
		setters: make(map[string]string, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%s binding: empty field name", kind)
		}
		if _, dup := b.byName[f.Name]; dup {
			return nil, fmt.Errorf("%s binding: duplicate field %s", kind, f.Name)
		}
		typ, err := abi.NewType(string(f.Type), "", nil)
		if err != nil {
			return nil, fmt.Errorf("%s binding: field %s: %w", kind, f.Name, err)
		}
		args := abi.Arguments{{Type: typ}}

		b.abi.Methods[f.Name] = abi.NewMethod(f.Name, f.Name, abi.Function, "view", true, false, nil, args)
		if !f.ReadOnly {
			setter := setterName(f.Name)
			b.abi.Methods[setter] = abi.NewMethod(setter, setter, abi.Function, "nonpayable", false, false, args, nil)
			b.setters[f.Name] = setter
		}
		b.fields = append(b.fields, f)
		b.byName[f.Name] = f
	}
	return b, nil
}

// MustBinding 与 NewBinding 相同，失败时 panic
func MustBinding(kind types.ContractKind, fields []Field) *Binding {
	b, err := NewBinding(kind, fields)
	if err != nil {
		panic(err)
	}
	return b
}

// Kind 合约种类
func (b *Binding) Kind() types.ContractKind { return b.kind }

// ABI 生成的 ABI
func (b *Binding) ABI() abi.ABI { return b.abi }

// Fields 字段声明（按声明顺序）
func (b *Binding) Fields() []Field { return append([]Field(nil), b.fields...) }

// Field 查询字段声明
func (b *Binding) Field(name string) (Field, bool) {
	f, ok := b.byName[name]
	return f, ok
}

// PackGet 编码 getter 调用
func (b *Binding) PackGet(name string) ([]byte, error) {
	if _, ok := b.byName[name]; !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownField, name)
	}
	return b.abi.Pack(name)
}

// UnpackGet 解码 getter 返回值
func (b *Binding) UnpackGet(name string, data []byte) (interface{}, error) {
	out, err := b.abi.Unpack(name, data)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s(): expected 1 return value, got %d", name, len(out))
	}
	return out[0], nil
}

// PackSet 编码 setter 调用，value 会先转换为字段类型
func (b *Binding) PackSet(name string, value interface{}) ([]byte, error) {
	f, ok := b.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownField, name)
	}
	if f.ReadOnly {
		return nil, fmt.Errorf("%w: %s", types.ErrReadOnlyField, name)
	}
	v, err := Coerce(f.Type, value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	return b.abi.Pack(b.setters[name], v)
}

// SetterName setter 方法名（只读字段返回空）
func (b *Binding) SetterName(field string) string {
	return b.setters[field]
}

func setterName(field string) string {
	r := []rune(field)
	r[0] = unicode.ToUpper(r[0])
	return "set" + string(r)
}

// ==================== 类型转换 ====================

// Coerce 把调用方给出的值转换为 abi 编码所需的 Go 类型
func Coerce(t FieldType, value interface{}) (interface{}, error) {
	switch t {
	case FieldBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
	case FieldBytes32:
		switch v := value.(type) {
		case [32]byte:
			return v, nil
		case common.Hash:
			return [32]byte(v), nil
		case string:
			return codec.TextToBytes32(v)
		case []byte:
			if len(v) > 32 {
				return nil, fmt.Errorf("bytes32 overflow: %d bytes", len(v))
			}
			var out [32]byte
			copy(out[:], v)
			return out, nil
		}
	case FieldUint:
		return coerceUint(value)
	case FieldAddress:
		switch v := value.(type) {
		case common.Address:
			return v, nil
		case string:
			if common.IsHexAddress(v) {
				return common.HexToAddress(v), nil
			}
		}
	case FieldBytes:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return hexutil.Decode(v)
		}
	case FieldString:
		if v, ok := value.(string); ok {
			return v, nil
		}
	default:
		return nil, fmt.Errorf("unsupported field type %s", t)
	}
	return nil, fmt.Errorf("cannot use %T as %s", value, t)
}

func coerceUint(value interface{}) (*big.Int, error) {
	var n *big.Int
	switch v := value.(type) {
	case *big.Int:
		if v != nil {
			n = new(big.Int).Set(v)
		}
	case uint64:
		n = new(big.Int).SetUint64(v)
	case uint:
		n = new(big.Int).SetUint64(uint64(v))
	case uint32:
		n = new(big.Int).SetUint64(uint64(v))
	case int:
		n = big.NewInt(int64(v))
	case int64:
		n = big.NewInt(v)
	case float64:
		if v == float64(int64(v)) {
			n = big.NewInt(int64(v))
		}
	case json.Number:
		n, _ = new(big.Int).SetString(v.String(), 10)
	case string:
		n, _ = new(big.Int).SetString(v, 10)
	}
	if n == nil {
		return nil, fmt.Errorf("cannot use %v (%T) as uint256", value, value)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for uint256", n)
	}
	if n.BitLen() > 256 {
		return nil, fmt.Errorf("value %s overflows uint256", n)
	}
	return n, nil
}
