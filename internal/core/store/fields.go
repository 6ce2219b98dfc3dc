package store

import (
	"fmt"
	"math/big"

	"github.com/weisyn/marketclient/internal/core/codec"
	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/pkg/types"
)

// tera 链上 minTotal 的缩放系数（10^12）
var tera = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

// Fields 创建店铺时的标量字段
type Fields struct {
	IsOpen                 bool
	Currency               string
	DisputeSeconds         uint64
	MinTotal               string // 以店铺币种计的十进制金额
	AffiliateFeeCentiperun uint64
}

// FieldUpdate set 时的部分字段更新，nil 表示不修改
type FieldUpdate struct {
	IsOpen                 *bool
	Currency               *string
	DisputeSeconds         *uint64
	MinTotal               *string
	AffiliateFeeCentiperun *uint64
}

// Update 把完整字段转换为更新
func (f Fields) Update() FieldUpdate {
	return FieldUpdate{
		IsOpen:                 &f.IsOpen,
		Currency:               &f.Currency,
		DisputeSeconds:         &f.DisputeSeconds,
		MinTotal:               &f.MinTotal,
		AffiliateFeeCentiperun: &f.AffiliateFeeCentiperun,
	}
}

// Empty 没有任何字段
func (u FieldUpdate) Empty() bool {
	return u.IsOpen == nil && u.Currency == nil && u.DisputeSeconds == nil &&
		u.MinTotal == nil && u.AffiliateFeeCentiperun == nil
}

// data 校验前的原始形式
func (u FieldUpdate) data() map[string]interface{} {
	m := make(map[string]interface{})
	if u.IsOpen != nil {
		m[contract.StoreIsOpen] = *u.IsOpen
	}
	if u.Currency != nil {
		m[contract.StoreCurrency] = *u.Currency
	}
	if u.DisputeSeconds != nil {
		m[contract.StoreDisputeSeconds] = *u.DisputeSeconds
	}
	if u.MinTotal != nil {
		m[contract.StoreMinTotal] = *u.MinTotal
	}
	if u.AffiliateFeeCentiperun != nil {
		m[contract.StoreAffiliateFeeCentiperun] = *u.AffiliateFeeCentiperun
	}
	return m
}

// chainValues 已校验字段的链上表示
func (u FieldUpdate) chainValues() (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if u.IsOpen != nil {
		m[contract.StoreIsOpen] = *u.IsOpen
	}
	if u.Currency != nil {
		b, err := codec.TextToBytes32(*u.Currency)
		if err != nil {
			return nil, err
		}
		m[contract.StoreCurrency] = b
	}
	if u.DisputeSeconds != nil {
		m[contract.StoreDisputeSeconds] = new(big.Int).SetUint64(*u.DisputeSeconds)
	}
	if u.MinTotal != nil {
		scaled, err := scaleMinTotal(*u.MinTotal)
		if err != nil {
			return nil, err
		}
		m[contract.StoreMinTotal] = scaled
	}
	if u.AffiliateFeeCentiperun != nil {
		m[contract.StoreAffiliateFeeCentiperun] = new(big.Int).SetUint64(*u.AffiliateFeeCentiperun)
	}
	return m, nil
}

// scaleMinTotal 十进制金额 × 10^12，结果必须是整数
func scaleMinTotal(amount string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, &types.ValidationError{Field: "minTotal", Rule: "numericality", Message: "Min total is not a number"}
	}
	r.Mul(r, new(big.Rat).SetInt(tera))
	if !r.IsInt() {
		return nil, &types.ValidationError{
			Field:   "minTotal",
			Rule:    "numericality",
			Message: fmt.Sprintf("Min total %s has more than 12 decimal places", amount),
		}
	}
	return new(big.Int).Set(r.Num()), nil
}

// unscaleMinTotal 链上值 / 10^12
func unscaleMinTotal(raw *big.Int) *big.Rat {
	return new(big.Rat).SetFrac(raw, tera)
}
