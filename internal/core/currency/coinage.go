package currency

import (
	"context"
	"fmt"
	"math/big"
)

// Coinage 金额 + 币种
type Coinage struct {
	Amount   *big.Rat
	Currency string
}

// NewCoinage 从十进制字符串创建
func NewCoinage(amount, currency string) (Coinage, error) {
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return Coinage{}, fmt.Errorf("invalid amount %q", amount)
	}
	return Coinage{Amount: r, Currency: currency}, nil
}

// In 换算为另一币种
func (c Coinage) In(ctx context.Context, conv *Converter, currency string) (*big.Rat, error) {
	if currency == c.Currency {
		return new(big.Rat).Set(c.amount()), nil
	}
	return conv.Convert(ctx, c.amount(), c.Currency, currency)
}

// String 按自身币种格式化
func (c Coinage) String() string {
	return Format(c.amount(), c.Currency) + " " + c.Currency
}

// Equal 金额与币种都相同
func (c Coinage) Equal(o Coinage) bool {
	return c.Currency == o.Currency && c.amount().Cmp(o.amount()) == 0
}

func (c Coinage) amount() *big.Rat {
	if c.Amount == nil {
		return new(big.Rat)
	}
	return c.Amount
}
