// Package validator 提供声明式约束校验
//
// 一个 Schema 把字段名映射到一组规则（presence、type、numericality、length、
// inclusion、addrOfContract 等）。Check 会先剔除 schema 之外的字段，
// 然后按字段名的字典序逐个校验，遇到第一个违反的规则立即返回 ValidationError。
package validator

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/weisyn/marketclient/pkg/types"
)

// TypeTag 字段类型标签
type TypeTag string

const (
	TypeString  TypeTag = "string"
	TypeArray   TypeTag = "array"
	TypeAddress TypeTag = "address"
	TypeAlias   TypeTag = "alias"
	TypeURL     TypeTag = "url"
	TypeNumber  TypeTag = "number"
	TypeBool    TypeTag = "bool"
)

func (t TypeTag) valid() bool {
	switch t {
	case TypeString, TypeArray, TypeAddress, TypeAlias, TypeURL, TypeNumber, TypeBool:
		return true
	}
	return false
}

// Numericality 数值规则
//
// 值可以是 Go 数值类型、json.Number 或可解析为十进制数的字符串。
type Numericality struct {
	OnlyInteger          bool
	GreaterThan          *big.Rat
	GreaterThanOrEqualTo *big.Rat
	LessThan             *big.Rat
	LessThanOrEqualTo    *big.Rat
}

// Length 长度规则，0 表示不限制
type Length struct {
	Minimum int
	Maximum int
}

// Constraint 单个字段的约束
type Constraint struct {
	Type           TypeTag
	Presence       bool // 必须存在且非空
	Exists         bool // 必须存在（允许为空）
	Numericality   *Numericality
	Length         *Length
	Inclusion      []string
	AddrOfContract types.ContractKind
}

// Schema 已编译的约束集合，创建后不可变
type Schema struct {
	fields      map[string]Constraint
	order       []string
	needsLedger bool
}

// Num 构造数值边界
func Num(v int64) *big.Rat { return big.NewRat(v, 1) }

// Compile 编译约束集合
//
// 任一字段未声明 type 时立即返回 ErrSchemaMisconfigured。
func Compile(constraints map[string]Constraint) (*Schema, error) {
	s := &Schema{fields: make(map[string]Constraint, len(constraints))}
	for name, c := range constraints {
		if c.Type == "" {
			return nil, fmt.Errorf("%w: %s must be constrained by type", types.ErrSchemaMisconfigured, name)
		}
		if !c.Type.valid() {
			return nil, fmt.Errorf("%w: %s has unknown type %q", types.ErrSchemaMisconfigured, name, c.Type)
		}
		if c.Length != nil && c.Length.Maximum != 0 && c.Length.Maximum < c.Length.Minimum {
			return nil, fmt.Errorf("%w: %s length maximum below minimum", types.ErrSchemaMisconfigured, name)
		}
		if c.AddrOfContract != types.KindNone {
			s.needsLedger = true
		}
		if c.Inclusion != nil {
			c.Inclusion = append([]string(nil), c.Inclusion...)
		}
		s.fields[name] = c
		s.order = append(s.order, name)
	}
	sort.Strings(s.order)
	return s, nil
}

// MustCompile 与 Compile 相同，配置错误时 panic
//
// 用于包级静态 schema。
func MustCompile(constraints map[string]Constraint) *Schema {
	s, err := Compile(constraints)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields 按校验顺序返回字段名
func (s *Schema) Fields() []string {
	return append([]string(nil), s.order...)
}

// Has 字段是否在 schema 中
func (s *Schema) Has(field string) bool {
	_, ok := s.fields[field]
	return ok
}
