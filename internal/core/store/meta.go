package store

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/marketclient/internal/core/codec"
	"github.com/weisyn/marketclient/internal/core/currency"
)

// ==================== 链上元数据格式 ====================

// wireProduct 元数据中的商品（所有标量均为字符串）
type wireProduct struct {
	ID       string `cbor:"id"`
	Name     string `cbor:"name"`
	Price    string `cbor:"price"`
	Info     string `cbor:"info,omitempty"`
	ImageURL string `cbor:"imageUrl,omitempty"`
}

// wireTransport 元数据中的配送方式
type wireTransport struct {
	ID    string `cbor:"id"`
	Type  string `cbor:"type"`
	Price string `cbor:"price"`
}

// wireMeta 店铺元数据 blob 的结构
type wireMeta struct {
	Name           string          `cbor:"name"`
	Info           string          `cbor:"info,omitempty"`
	Products       []wireProduct   `cbor:"products"`
	Transports     []wireTransport `cbor:"transports"`
	SubmarketAddrs []string        `cbor:"submarketAddrs"`
}

// decodeMeta 解码元数据；空数据或格式错误返回 DecodeError
func decodeMeta(raw []byte) (*wireMeta, error) {
	var m wireMeta
	if err := codec.UnmarshalBytes(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ==================== 值类型 ====================

// Product 商品
//
// Quantity 是仅存在于客户端的购物车数量，每次刷新都重置为 0。
type Product struct {
	ID       uint64
	Name     string
	Price    currency.Coinage
	Info     string
	ImageURL string
	Quantity int
}

// NewProduct 创建商品，id 必须是非负整数，price 必须是非负十进制数
func NewProduct(id, name, price, info, imageURL, currencyCode string) (Product, error) {
	n, err := parseID(id)
	if err != nil {
		return Product{}, fmt.Errorf("product: %w", err)
	}
	amount, err := parsePrice(price)
	if err != nil {
		return Product{}, fmt.Errorf("product %d: %w", n, err)
	}
	return Product{
		ID:       n,
		Name:     name,
		Price:    currency.Coinage{Amount: amount, Currency: currencyCode},
		Info:     info,
		ImageURL: imageURL,
	}, nil
}

// Transport 配送方式
type Transport struct {
	ID    uint64
	Type  string
	Price currency.Coinage
	Label string // "<type> (<按展示币种格式化的价格>)"
}

// NewTransport 创建配送方式，id 必须是非负整数，price 必须是非负十进制数
func NewTransport(id, typ, price, currencyCode string) (Transport, error) {
	n, err := parseID(id)
	if err != nil {
		return Transport{}, fmt.Errorf("transport: %w", err)
	}
	amount, err := parsePrice(price)
	if err != nil {
		return Transport{}, fmt.Errorf("transport %d: %w", n, err)
	}
	return Transport{
		ID:    n,
		Type:  typ,
		Price: currency.Coinage{Amount: amount, Currency: currencyCode},
	}, nil
}

func parseID(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be a non-negative integer", s)
	}
	return n, nil
}

func parsePrice(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid price %q", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative price %q", s)
	}
	return r, nil
}

// parseSubmarkets 非法地址被忽略
func parseSubmarkets(raw []string) []common.Address {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if common.IsHexAddress(s) {
			out = append(out, common.HexToAddress(s))
		}
	}
	return out
}

// ==================== 输入元数据 ====================

// cloneMeta 复制一层，校验时删除未知字段不影响调用方
func cloneMeta(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// elements 把数组类的输入展开为 []interface{}
func elements(v interface{}) []interface{} {
	switch s := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return s
	case []string:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// toWire 已校验的元数据 -> 链上格式
func toWire(meta map[string]interface{}) *wireMeta {
	w := &wireMeta{
		Name:           str(meta, "name"),
		Info:           str(meta, "info"),
		Products:       []wireProduct{},
		Transports:     []wireTransport{},
		SubmarketAddrs: []string{},
	}
	for _, e := range elements(meta["products"]) {
		p, _ := e.(map[string]interface{})
		w.Products = append(w.Products, wireProduct{
			ID:       str(p, "id"),
			Name:     str(p, "name"),
			Price:    str(p, "price"),
			Info:     str(p, "info"),
			ImageURL: str(p, "imageUrl"),
		})
	}
	for _, e := range elements(meta["transports"]) {
		t, _ := e.(map[string]interface{})
		w.Transports = append(w.Transports, wireTransport{
			ID:    str(t, "id"),
			Type:  str(t, "type"),
			Price: str(t, "price"),
		})
	}
	for _, e := range elements(meta["submarketAddrs"]) {
		if addr, ok := toAddressString(e); ok {
			w.SubmarketAddrs = append(w.SubmarketAddrs, addr)
		}
	}
	return w
}

func toAddressString(v interface{}) (string, bool) {
	switch a := v.(type) {
	case string:
		return common.HexToAddress(a).Hex(), common.IsHexAddress(a)
	case common.Address:
		return a.Hex(), true
	}
	return "", false
}
