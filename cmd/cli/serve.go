package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	httpapi "github.com/weisyn/marketclient/internal/api/http"
	"github.com/weisyn/marketclient/internal/app"
)

var serveFlags struct {
	Listen string
}

// serveCmd 启动HTTP网关
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动只读/校验 HTTP 网关",
	Long: `启动 HTTP 网关，提供:
  GET  /api/v1/stores/:ref
  POST /api/v1/stores/check
  POST /api/v1/stores/estimate
  GET  /api/v1/aliases/:alias
  GET  /api/v1/transactions/pending
  GET  /health, /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []app.Option{app.WithAPI()}
		if listen := serveFlags.Listen; listen != "" {
			opts = append(opts, app.WithFxOptions(fx.Decorate(func(*httpapi.Config) *httpapi.Config {
				return &httpapi.Config{Listen: listen}
			})))
		}

		a, err := openApp("info", opts...)
		if err != nil {
			return err
		}
		formatter.PrintInfo(fmt.Sprintf("HTTP 网关已启动: http://%s (Ctrl+C 停止)", a.Services().Server.Addr()))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		formatter.PrintInfo("正在停止...")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Listen, "listen", "", "监听地址 host:port（默认使用 profile 的 http_listen）")
}
