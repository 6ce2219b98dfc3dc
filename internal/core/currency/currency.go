package currency

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/weisyn/marketclient/internal/core/validator"
	"github.com/weisyn/marketclient/pkg/types"
)

// ETH 以太币代码
const ETH = "ETH"

// Converter 汇率换算器
type Converter struct {
	source    RateSource
	validator *validator.Validator
}

// NewConverter 创建换算器
func NewConverter(source RateSource) *Converter {
	return &Converter{source: source, validator: validator.New(nil, nil)}
}

// Convert 把 amount 从 from 换算为 to
//
// amount 可以是十进制字符串或 *big.Rat；from/to 必须出现在汇率表中且汇率大于 0。
func (c *Converter) Convert(ctx context.Context, amount interface{}, from, to string) (*big.Rat, error) {
	rates, err := c.source.Rates(ctx)
	if err != nil {
		return nil, err
	}

	amountText, err := amountString(amount)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	schema, err := validator.Compile(map[string]validator.Constraint{
		"amount": {Type: validator.TypeString, Presence: true, Numericality: &validator.Numericality{}},
		"from":   {Type: validator.TypeString, Presence: true, Inclusion: codes},
		"to":     {Type: validator.TypeString, Presence: true, Inclusion: codes},
	})
	if err != nil {
		return nil, err
	}
	if err := c.validator.Check(ctx, map[string]interface{}{"amount": amountText, "from": from, "to": to}, schema, ""); err != nil {
		return nil, err
	}

	for _, side := range [][2]string{{"from", from}, {"to", to}} {
		if r := rates[side[1]]; r == nil || r.Sign() <= 0 {
			return nil, &types.ValidationError{Field: side[0], Rule: "numericality",
				Message: fmt.Sprintf("Rate for %s must be greater than 0", side[1])}
		}
	}

	value, _ := new(big.Rat).SetString(amountText)
	value.Quo(value, rates[from])
	return value.Mul(value, rates[to]), nil
}

// ConvertAndFormat 换算后按目标币种格式化
func (c *Converter) ConvertAndFormat(ctx context.Context, amount interface{}, from, to string) (string, error) {
	value, err := c.Convert(ctx, amount, from, to)
	if err != nil {
		return "", err
	}
	return Format(value, to), nil
}

// Format ETH 保留 4 位小数，其余币种 2 位
func Format(amount *big.Rat, currency string) string {
	if amount == nil {
		amount = new(big.Rat)
	}
	if currency == ETH {
		return amount.FloatString(4)
	}
	return amount.FloatString(2)
}

func amountString(amount interface{}) (string, error) {
	switch v := amount.(type) {
	case string:
		return v, nil
	case *big.Rat:
		if v == nil {
			return "", &types.ValidationError{Field: "amount", Rule: "presence", Message: "Amount can't be blank"}
		}
		// 足够的精度保证精确表示常见的十进制金额
		return v.FloatString(18), nil
	case *big.Int:
		if v == nil {
			return "", &types.ValidationError{Field: "amount", Rule: "presence", Message: "Amount can't be blank"}
		}
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}
