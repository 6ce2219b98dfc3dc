// Package cache 提供基于BigCache的合约字节码缓存
//
// 合约部署后的运行时字节码不可变，因此按地址缓存 getCode 结果是安全的；
// 空字节码（地址上尚无合约）不缓存，因为之后可能有合约被部署到该地址。
package cache

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
)

// CodeReader 字节码读取原语（ledger.Reader 的子集）
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Options 缓存配置
type Options struct {
	LifeWindow  time.Duration // 条目存活时间
	CleanWindow time.Duration // 过期条目清理间隔
	MaxEntries  int           // 生命周期窗口内的预估条目数
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		LifeWindow:  30 * time.Minute,
		CleanWindow: 5 * time.Minute,
		MaxEntries:  1024,
	}
}

// CodeCache 带缓存的字节码读取器，自身也实现 CodeReader
type CodeCache struct {
	reader CodeReader
	cache  *bigcache.BigCache
	group  singleflight.Group
	logger log.Logger

	mu     sync.Mutex
	closed bool
}

// New 创建字节码缓存
func New(reader CodeReader, opts Options, logger log.Logger) (*CodeCache, error) {
	if reader == nil {
		return nil, errors.New("code reader is required")
	}
	def := DefaultOptions()
	if opts.LifeWindow <= 0 {
		opts.LifeWindow = def.LifeWindow
	}
	if opts.CleanWindow <= 0 {
		opts.CleanWindow = def.CleanWindow
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = def.MaxEntries
	}

	cfg := bigcache.DefaultConfig(opts.LifeWindow)
	cfg.CleanWindow = opts.CleanWindow
	cfg.MaxEntriesInWindow = opts.MaxEntries
	cfg.MaxEntrySize = 8 * 1024 // 典型运行时字节码大小
	cfg.Shards = 64
	cfg.Verbose = false

	bc, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &CodeCache{reader: reader, cache: bc, logger: logger}, nil
}

// CodeAt 读取字节码，命中缓存时不访问远程
//
// 指定了 blockNumber 的历史查询直接透传。
func (c *CodeCache) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	if blockNumber != nil {
		return c.reader.CodeAt(ctx, account, blockNumber)
	}

	key := account.Hex()
	if code, err := c.cache.Get(key); err == nil {
		return code, nil
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) && c.logger != nil {
		c.logger.Warnf("读取字节码缓存[%s]失败: %v", key, err)
	}

	// 并发的相同地址查询合并为一次远程调用
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		code, err := c.reader.CodeAt(ctx, account, nil)
		if err != nil {
			return nil, err
		}
		if len(code) > 0 {
			if err := c.cache.Set(key, code); err != nil && c.logger != nil {
				c.logger.Warnf("写入字节码缓存[%s]失败: %v", key, err)
			}
		}
		return code, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate 移除某个地址的缓存
func (c *CodeCache) Invalidate(account common.Address) {
	if err := c.cache.Delete(account.Hex()); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) && c.logger != nil {
		c.logger.Warnf("删除字节码缓存失败: %v", err)
	}
}

// Len 当前缓存条目数
func (c *CodeCache) Len() int {
	return c.cache.Len()
}

// Close 关闭缓存并释放资源
func (c *CodeCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.cache.Close()
}
