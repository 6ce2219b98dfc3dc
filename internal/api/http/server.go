// Package http 只读/校验用 HTTP 网关
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/marketclient/internal/api/http/handlers"
	"github.com/weisyn/marketclient/internal/api/http/middleware"
	"github.com/weisyn/marketclient/internal/core/alias"
	infralog "github.com/weisyn/marketclient/internal/core/infrastructure/log"
	"github.com/weisyn/marketclient/internal/core/store"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
)

// DefaultListen 默认监听地址
const DefaultListen = "127.0.0.1:8645"

// Config HTTP 网关配置
type Config struct {
	Listen string // host:port；端口为 0 时由系统分配
}

// Deps 网关依赖
type Deps struct {
	Stores     *store.Service
	Aliases    *alias.Registry
	Monitor    *txmonitor.Monitor
	Ledger     handlers.Pinger      // 可为 nil
	Registerer prometheus.Registerer // 可为 nil，此时不采集请求指标
	Gatherer   prometheus.Gatherer   // 可为 nil，此时不暴露 /metrics
	Logger     log.Logger
}

// Server HTTP服务器
type Server struct {
	config     Config
	router     *gin.Engine
	logger     log.Logger
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer 创建服务器并注册所有路由
func NewServer(config Config, deps Deps) *Server {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	logger := infralog.OrNop(deps.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewRequestID().Middleware())
	router.Use(middleware.NewLogger(logger).Middleware())
	if deps.Registerer != nil {
		router.Use(middleware.NewMetrics(deps.Registerer).Middleware())
	}

	s := &Server{
		config: config,
		router: router,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s
}

// setupRoutes 设置HTTP路由
func (s *Server) setupRoutes(deps Deps) {
	s.router.GET("/health", handlers.NewHealthHandlers(deps.Ledger).Health)
	if deps.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/api/v1")
	handlers.NewStoreHandlers(deps.Stores, s.logger).RegisterRoutes(v1)
	handlers.NewAliasHandlers(deps.Aliases).RegisterRoutes(v1)
	handlers.NewTransactionHandlers(deps.Monitor).RegisterRoutes(v1)

	s.logger.Debugf("HTTP路由注册完成: %d 条", len(s.router.Routes()))
}

// Handler 返回路由引擎（测试中直接配合 httptest 使用）
func (s *Server) Handler() http.Handler { return s.router }

// Start 绑定端口并在后台提供服务
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", s.config.Listen, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP服务器异常退出: %v", err)
		}
	}()

	s.logger.Infof("HTTP服务器启动成功，监听地址: %s", ln.Addr())
	return nil
}

// Addr 实际监听地址；未启动时为空
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("正在停止HTTP服务器...")
	return srv.Shutdown(ctx)
}
