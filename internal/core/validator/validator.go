package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	playground "github.com/go-playground/validator/v10"

	logInterface "github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/types"
)

// ContractChecker 判断地址上部署的是否为指定种类的合约
//
// 返回 (false, nil) 表示没有合约或字节码指纹不匹配；
// 返回 error 表示远程读取失败。
type ContractChecker interface {
	IsContract(ctx context.Context, addr common.Address, kind types.ContractKind) (bool, error)
}

// aliasPattern 别名：小写字母、数字、下划线，长度 1~32（bytes32）
var aliasPattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// IsAlias 判断字符串是否为合法别名
func IsAlias(s string) bool {
	return aliasPattern.MatchString(s)
}

// Validator 约束校验器
type Validator struct {
	checker ContractChecker
	logger  logInterface.Logger
}

// New 创建校验器
//
// checker 可以为 nil，此时使用 addrOfContract 规则的 schema 会返回 ErrSchemaMisconfigured。
func New(checker ContractChecker, logger logInterface.Logger) *Validator {
	return &Validator{checker: checker, logger: logger}
}

// Check 校验 data
//
// data 中不在 schema 内的字段会被删除（原地修改）。
// 第一个违反的规则以 *types.ValidationError 返回，prefix 会加在错误信息前面。
func (v *Validator) Check(ctx context.Context, data map[string]interface{}, schema *Schema, prefix string) error {
	if schema == nil {
		return fmt.Errorf("%w: nil schema", types.ErrSchemaMisconfigured)
	}
	if data == nil {
		return &types.ValidationError{Prefix: prefix, Rule: "object", Message: "data is not an object"}
	}
	if schema.needsLedger && v.checker == nil {
		return fmt.Errorf("%w: addrOfContract rule without contract checker", types.ErrSchemaMisconfigured)
	}

	for key := range data {
		if !schema.Has(key) {
			delete(data, key)
		}
	}

	for _, field := range schema.order {
		if err := v.checkField(ctx, field, data, schema.fields[field], prefix); err != nil {
			if ve, ok := types.IsValidationError(err); ok && v.logger != nil {
				v.logger.Debugf("校验失败: field=%s rule=%s", ve.Field, ve.Rule)
			}
			return err
		}
	}
	return nil
}

func (v *Validator) checkField(ctx context.Context, field string, data map[string]interface{}, c Constraint, prefix string) error {
	value, present := data[field]
	fail := func(rule, msg string) error {
		return &types.ValidationError{
			Prefix:  prefix,
			Field:   field,
			Rule:    rule,
			Message: capitalize(prettify(field) + " " + msg),
		}
	}

	if c.Exists && !present {
		return fail("exists", "must exist")
	}
	if c.Presence && isEmpty(value) {
		return fail("presence", "can't be blank")
	}
	// 其余规则只作用于非 nil 的值
	if value == nil {
		return nil
	}

	if msg, ok := checkType(c.Type, value); !ok {
		return fail("type", msg)
	}

	if c.Numericality != nil {
		if msg, ok := checkNumericality(c.Numericality, value); !ok {
			return fail("numericality", msg)
		}
	}

	if c.Length != nil {
		if msg, ok := checkLength(c.Length, value); !ok {
			return fail("length", msg)
		}
	}

	if c.Inclusion != nil {
		s := fmt.Sprint(value)
		found := false
		for _, allowed := range c.Inclusion {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			return &types.ValidationError{
				Prefix:  prefix,
				Field:   field,
				Rule:    "inclusion",
				Message: s + " is not included in the list",
			}
		}
	}

	if c.AddrOfContract != types.KindNone {
		addr, ok := toAddress(value)
		if !ok {
			return fail("addrOfContract", "is not a valid address")
		}
		match, err := v.checker.IsContract(ctx, addr, c.AddrOfContract)
		if err != nil {
			return err
		}
		if !match {
			return fail("addrOfContract", fmt.Sprintf("must be the address of a %s contract", c.AddrOfContract))
		}
	}
	return nil
}

// ==================== 类型规则 ====================

func checkType(t TypeTag, value interface{}) (string, bool) {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return "must be a string", ok
	case TypeArray:
		return "must be an array", isArray(value)
	case TypeAddress:
		_, ok := toAddress(value)
		return "must be a valid address", ok
	case TypeAlias:
		s, ok := value.(string)
		return "must be a valid alias", ok && IsAlias(s)
	case TypeURL:
		s, ok := value.(string)
		return "must be a valid url", ok && isURL(s)
	case TypeNumber:
		_, ok := toRat(value)
		_, isStr := value.(string)
		return "must be a number", ok && !isStr
	case TypeBool:
		_, ok := value.(bool)
		return "must be a boolean", ok
	}
	return "has unknown type", false
}

func isArray(value interface{}) bool {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		// []byte 视为字节串而不是数组
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}

// leaf 单值规则（url、地址格式）交给 go-playground/validator
var leaf = playground.New()

func isURL(s string) bool {
	return leaf.Var(s, "required,http_url") == nil
}

func isHexAddress(s string) bool {
	return leaf.Var(s, "required,eth_addr") == nil
}

func toAddress(value interface{}) (common.Address, bool) {
	switch a := value.(type) {
	case common.Address:
		return a, true
	case *common.Address:
		if a == nil {
			return common.Address{}, false
		}
		return *a, true
	case string:
		if !isHexAddress(a) {
			return common.Address{}, false
		}
		return common.HexToAddress(a), true
	}
	return common.Address{}, false
}

// ==================== 数值规则 ====================

func checkNumericality(n *Numericality, value interface{}) (string, bool) {
	r, ok := toRat(value)
	if !ok {
		return "is not a number", false
	}
	if n.OnlyInteger && !r.IsInt() {
		return "must be an integer", false
	}
	if n.GreaterThan != nil && r.Cmp(n.GreaterThan) <= 0 {
		return "must be greater than " + ratString(n.GreaterThan), false
	}
	if n.GreaterThanOrEqualTo != nil && r.Cmp(n.GreaterThanOrEqualTo) < 0 {
		return "must be greater than or equal to " + ratString(n.GreaterThanOrEqualTo), false
	}
	if n.LessThan != nil && r.Cmp(n.LessThan) >= 0 {
		return "must be less than " + ratString(n.LessThan), false
	}
	if n.LessThanOrEqualTo != nil && r.Cmp(n.LessThanOrEqualTo) > 0 {
		return "must be less than or equal to " + ratString(n.LessThanOrEqualTo), false
	}
	return "", true
}

// toRat 把数值或十进制字符串转换为 big.Rat
func toRat(value interface{}) (*big.Rat, bool) {
	switch n := value.(type) {
	case string:
		return parseDecimal(n)
	case json.Number:
		return parseDecimal(n.String())
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return new(big.Rat).SetInt(n), true
	case *big.Rat:
		if n == nil {
			return nil, false
		}
		return new(big.Rat).Set(n), true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return new(big.Rat).SetInt64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Rat).SetInt(new(big.Int).SetUint64(rv.Uint())), true
	case reflect.Float32, reflect.Float64:
		r := new(big.Rat)
		if r.SetFloat64(rv.Float()) == nil {
			return nil, false
		}
		return r, true
	}
	return nil, false
}

// decimalPattern 普通十进制写法，拒绝 big.Rat 额外接受的 "1/3"、"0x10" 等形式
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)([eE][+-]?\d+)?$`)

func parseDecimal(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return nil, false
	}
	return new(big.Rat).SetString(s)
}

func ratString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.FloatString(8)
}

// ==================== 长度规则 ====================

func checkLength(l *Length, value interface{}) (string, bool) {
	var n int
	switch v := value.(type) {
	case string:
		n = len([]rune(v))
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			n = rv.Len()
		default:
			return "has an incorrect length", false
		}
	}
	if l.Minimum > 0 && n < l.Minimum {
		return fmt.Sprintf("is too short (minimum is %d)", l.Minimum), false
	}
	if l.Maximum > 0 && n > l.Maximum {
		return fmt.Sprintf("is too long (maximum is %d)", l.Maximum), false
	}
	return "", true
}

// ==================== 辅助函数 ====================

// isEmpty nil、空白字符串、空数组、空 map 视为空
func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// prettify 把 camelCase / snake_case 字段名转为空格分隔的小写词
func prettify(field string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range field {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(' ')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteRune(' ')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
