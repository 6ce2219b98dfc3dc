package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/marketclient/client/core/config"
	"github.com/weisyn/marketclient/client/core/output"
	logconfig "github.com/weisyn/marketclient/internal/config/log"
	"github.com/weisyn/marketclient/internal/app"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	Profile      string // Profile名称
	ConfigDir    string // 配置目录
	OutputFormat string // 输出格式
	Silent       bool   // 静默模式
	Verbose      bool   // 详细模式
}

var (
	globalFlags GlobalFlags
	profileMgr  *config.ProfileManager
	formatter   *output.Formatter

	// newApp 装配应用（测试中替换以注入内存账本）
	newApp = app.New

	// openedApps 本次命令启动的应用，命令结束后统一停止
	openedApps []app.App
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "marketcli",
	Short: "去中心化市场店铺客户端",
	Long: `marketcli - 去中心化市场的店铺管理客户端

通过节点 JSON-RPC 读取与维护链上店铺合约:
- 按地址或别名读取店铺快照
- 提交前静态校验别名与元数据
- 创建店铺并认领别名，估算创建成本
- 合并提交字段与元数据更新
- 解析、反查与分类别名

多环境配置通过 profile 管理（默认目录 ~/.marketclient）。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(globalFlags.OutputFormat)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format, cmd.OutOrStdout())
		formatter.SetLogWriter(cmd.ErrOrStderr())
		formatter.SetSilent(globalFlags.Silent)

		profileMgr, err = config.NewProfileManager(globalFlags.ConfigDir)
		if err != nil {
			return fmt.Errorf("初始化配置: %w", err)
		}
		return nil
	},
}

// Execute 执行根命令
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run 执行命令并返回退出码；失败时按错误分类输出
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	formatter, profileMgr = nil, nil
	defer stopApps()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(stdout, stderr, err)
		return 1
	}
	return 0
}

func reportError(stdout, stderr io.Writer, err error) {
	if formatter == nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return
	}
	formatter.PrintError(err)
	if globalFlags.OutputFormat == string(output.FormatJSON) || globalFlags.OutputFormat == string(output.FormatPretty) {
		raw, _ := json.Marshal(output.ErrorOutputFor(err))
		fmt.Fprintln(stdout, string(raw))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Profile, "profile", "", "使用指定的Profile (默认使用当前Profile)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.ConfigDir, "config-dir", "", "配置目录 (默认: ~/.marketclient)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.OutputFormat, "output", "o", "json", "输出格式: json|pretty|table|text")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Silent, "silent", false, "静默模式 (不输出结果)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "详细输出 (debug 日志)")

	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(versionCmd)
}

// currentProfile 获取 --profile 指定的或当前的 profile
func currentProfile() (*config.Profile, error) {
	var (
		profile *config.Profile
		err     error
	)
	if globalFlags.Profile != "" {
		profile, err = profileMgr.GetProfile(globalFlags.Profile)
	} else {
		profile, err = profileMgr.GetCurrentProfile()
	}
	if err != nil {
		return nil, fmt.Errorf("获取Profile: %w", err)
	}
	return profile, nil
}

// openApp 按当前 profile 装配应用
//
// 命令行默认只输出 warn 以上日志；-v 打开 debug。
func openApp(defaultLevel string, opts ...app.Option) (app.App, error) {
	profile, err := currentProfile()
	if err != nil {
		return nil, err
	}
	p := *profile
	p.Log = cliLogOptions(profile.Log, defaultLevel, globalFlags.Verbose)

	a, err := newApp(append([]app.Option{app.WithProfile(&p)}, opts...)...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancel()
	if err := a.Start(ctx); err != nil {
		return nil, err
	}
	openedApps = append(openedApps, a)
	return a, nil
}

// stopApps 停止本次命令启动的应用（关闭连接与缓存）
func stopApps() {
	ctx, cancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancel()
	for _, a := range openedApps {
		_ = a.Stop(ctx)
	}
	openedApps = nil
}

func cliLogOptions(base *logconfig.LogOptions, defaultLevel string, verbose bool) *logconfig.LogOptions {
	opts := logconfig.DefaultOptions()
	if base != nil {
		o := *base
		opts = &o
	}
	switch {
	case verbose:
		opts.Level = "debug"
	case base == nil || base.Level == "":
		opts.Level = defaultLevel
	}
	return opts
}
