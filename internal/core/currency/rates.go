// Package currency 提供汇率换算与金额格式化
//
// 汇率表把币种代码映射到相对同一基准的汇率，换算公式为 amount / rate[from] * rate[to]。
package currency

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateSource 汇率来源
type RateSource interface {
	Rates(ctx context.Context) (map[string]*big.Rat, error)
}

// StaticRates 固定汇率表
type StaticRates map[string]*big.Rat

// Rates 实现 RateSource
func (s StaticRates) Rates(context.Context) (map[string]*big.Rat, error) {
	out := make(map[string]*big.Rat, len(s))
	for k, v := range s {
		out[k] = new(big.Rat).Set(v)
	}
	return out, nil
}

// ParseStaticRates 解析配置中的十进制汇率字符串
func ParseStaticRates(raw map[string]string) (StaticRates, error) {
	rates := make(StaticRates, len(raw))
	for code, value := range raw {
		r, ok := new(big.Rat).SetString(value)
		if !ok || r.Sign() <= 0 {
			return nil, fmt.Errorf("invalid rate %q for %s", value, code)
		}
		rates[code] = r
	}
	return rates, nil
}

// hashReader go-redis 客户端的最小子集，便于测试替换
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisRates 从 Redis 哈希读取汇率（字段为币种代码，值为十进制字符串）
type RedisRates struct {
	client hashReader
	key    string
}

// NewRedisRates 连接 Redis 并创建汇率来源
func NewRedisRates(addr, key string) (*RedisRates, *redis.Client, error) {
	if addr == "" {
		return nil, nil, fmt.Errorf("redis address cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 3 * time.Second,
		ReadTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedisRates(client, key), client, nil
}

func newRedisRates(client hashReader, key string) *RedisRates {
	if key == "" {
		key = "marketclient:rates"
	}
	return &RedisRates{client: client, key: key}
}

// Rates 实现 RateSource
func (r *RedisRates) Rates(ctx context.Context) (map[string]*big.Rat, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read rates %s: %w", r.key, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("rates %s: empty hash", r.key)
	}
	rates, err := ParseStaticRates(raw)
	if err != nil {
		return nil, err
	}
	return rates, nil
}
