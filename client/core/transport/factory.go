package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
)

// ClientConfig 连接配置
type ClientConfig struct {
	// 节点端点(按优先级排序)
	Endpoints []EndpointConfig `json:"endpoints"`

	// 单次请求超时，同时作为连接探测的超时
	Timeout time.Duration `json:"timeout"`
}

// EndpointConfig 端点配置
type EndpointConfig struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"` // 优先级,数字越小越优先
	URL      string `json:"url"`
}

// Dial 按优先级依次连接端点，返回第一个可用的
func Dial(ctx context.Context, config ClientConfig, logger log.Logger) (*EthLedger, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	endpoints := append([]EndpointConfig(nil), config.Endpoints...)
	sort.SliceStable(endpoints, func(i, j int) bool { return endpoints[i].Priority < endpoints[j].Priority })

	var errs []error
	for _, ep := range endpoints {
		l, err := dialOne(ctx, ep, config.Timeout)
		if err != nil {
			if logger != nil {
				logger.Warnf("端点不可用: %s (%s): %v", ep.Name, ep.URL, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", ep.Name, err))
			continue
		}
		if logger != nil {
			logger.Infof("已连接端点: %s (%s)", ep.Name, ep.URL)
		}
		return l, nil
	}
	return nil, fmt.Errorf("all endpoints failed: %w", errors.Join(errs...))
}

func dialOne(ctx context.Context, ep EndpointConfig, timeout time.Duration) (*EthLedger, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := rpc.DialContext(dctx, ep.URL)
	if err != nil {
		return nil, err
	}
	l := NewEthLedger(ep.Name, ep.URL, client)
	if err := l.Ping(dctx); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}
