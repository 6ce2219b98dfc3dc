package currency

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/marketclient/pkg/types"
)

func testRates(t *testing.T) StaticRates {
	t.Helper()
	rates, err := ParseStaticRates(map[string]string{"ETH": "1", "USD": "2000", "EUR": "1800"})
	require.NoError(t, err)
	return rates
}

// TestConvert 测试换算公式 amount / rate[from] * rate[to]
func TestConvert(t *testing.T) {
	conv := NewConverter(testRates(t))
	ctx := context.Background()

	v, err := conv.Convert(ctx, "1", "ETH", "USD")
	require.NoError(t, err)
	assert.Equal(t, "2000.00", Format(v, "USD"))

	v, err = conv.Convert(ctx, "1000", "USD", "ETH")
	require.NoError(t, err)
	assert.Equal(t, "0.5000", Format(v, "ETH"))

	s, err := conv.ConvertAndFormat(ctx, big.NewRat(20, 1), "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "18.00", s)
}

// TestConvert_Validation 测试输入校验
func TestConvert_Validation(t *testing.T) {
	conv := NewConverter(testRates(t))
	ctx := context.Background()

	_, err := conv.Convert(ctx, "5", "ETH", "GBP")
	ve, ok := types.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "inclusion", ve.Rule)
	assert.Equal(t, "to", ve.Field)

	_, err = conv.Convert(ctx, "five", "ETH", "USD")
	ve, ok = types.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "numericality", ve.Rule)
}

// TestConvert_NonPositiveRate 汇率为 0 或负数时拒绝换算
func TestConvert_NonPositiveRate(t *testing.T) {
	conv := NewConverter(StaticRates{"ETH": big.NewRat(0, 1), "USD": big.NewRat(2000, 1), "EUR": big.NewRat(-1, 1)})
	ctx := context.Background()

	_, err := conv.Convert(ctx, "1", "ETH", "USD")
	ve, ok := types.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "from", ve.Field)
	assert.Equal(t, "numericality", ve.Rule)

	_, err = conv.Convert(ctx, "1", "USD", "EUR")
	ve, ok = types.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "to", ve.Field)

	assert.NotPanics(t, func() {
		_, _ = conv.ConvertAndFormat(ctx, "3", "ETH", "ETH")
	})
}

// TestFormat 测试小数位
func TestFormat(t *testing.T) {
	assert.Equal(t, "5.0000", Format(big.NewRat(5, 1), "ETH"))
	assert.Equal(t, "5.00", Format(big.NewRat(5, 1), "USD"))
	assert.Equal(t, "0.33", Format(big.NewRat(1, 3), "USD"))
	assert.Equal(t, "0.0000", Format(nil, "ETH"))
}

// TestCoinage 测试金额换算
func TestCoinage(t *testing.T) {
	conv := NewConverter(testRates(t))
	c, err := NewCoinage("5", "ETH")
	require.NoError(t, err)

	same, err := c.In(context.Background(), conv, "ETH")
	require.NoError(t, err)
	assert.Equal(t, 0, same.Cmp(big.NewRat(5, 1)))

	usd, err := c.In(context.Background(), conv, "USD")
	require.NoError(t, err)
	assert.Equal(t, "10000.00", Format(usd, "USD"))
	assert.Equal(t, "5.0000 ETH", c.String())

	other, _ := NewCoinage("5.0", "ETH")
	assert.True(t, c.Equal(other))

	_, err = NewCoinage("x", "ETH")
	assert.Error(t, err)
}

// TestParseStaticRates 测试非法汇率
func TestParseStaticRates(t *testing.T) {
	_, err := ParseStaticRates(map[string]string{"ETH": "0"})
	assert.Error(t, err)
	_, err = ParseStaticRates(map[string]string{"ETH": "abc"})
	assert.Error(t, err)
}

// mockHashReader 模拟 Redis 哈希读取
type mockHashReader struct {
	values map[string]string
	err    error
	keys   []string
}

func (m *mockHashReader) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	m.keys = append(m.keys, key)
	return redis.NewMapStringStringResult(m.values, m.err)
}

// TestRedisRates 测试从 Redis 哈希读取汇率
func TestRedisRates(t *testing.T) {
	client := &mockHashReader{values: map[string]string{"ETH": "1", "USD": "2500.5"}}
	src := newRedisRates(client, "")

	rates, err := src.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"marketclient:rates"}, client.keys)
	assert.Equal(t, 0, rates["USD"].Cmp(big.NewRat(50010, 20)))

	conv := NewConverter(src)
	s, err := conv.ConvertAndFormat(context.Background(), "2", "ETH", "USD")
	require.NoError(t, err)
	assert.Equal(t, "5001.00", s)
}

// TestRedisRates_Errors 测试 Redis 错误与空数据
func TestRedisRates_Errors(t *testing.T) {
	_, err := newRedisRates(&mockHashReader{err: errors.New("conn refused")}, "k").Rates(context.Background())
	assert.Error(t, err)

	_, err = newRedisRates(&mockHashReader{values: map[string]string{}}, "k").Rates(context.Background())
	assert.Error(t, err)

	_, _, err = NewRedisRates("", "k")
	assert.Error(t, err)
}
