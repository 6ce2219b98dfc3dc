package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/weisyn/marketclient/client/core/config"
)

// profileCmd Profile管理命令
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile管理",
	Long:  "管理连接Profile,支持多环境切换(local/testnet/mainnet)",
}

// profileSummary profile 的列表摘要
func profileSummary(p *config.Profile, current bool) map[string]interface{} {
	endpoint := ""
	if eps := p.SortedEndpoints(); len(eps) > 0 {
		endpoint = eps[0].URL
	}
	return map[string]interface{}{
		"name":           p.Name,
		"endpoint":       endpoint,
		"from":           p.From,
		"alias_registry": p.AliasRegistry,
		"current":        current,
	}
}

// profileListCmd 列出所有profiles
var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		result := make([]map[string]interface{}, 0)
		for _, name := range profileMgr.ListProfiles() {
			profile, err := profileMgr.GetProfile(name)
			if err != nil {
				continue
			}
			result = append(result, profileSummary(profile, name == profileMgr.CurrentName()))
		}
		return formatter.Print(result)
	},
}

// profileShowCmd 显示profile详情
var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "显示profile详情",
	Long:  "显示指定profile的完整配置(不指定则显示当前profile)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			profile *config.Profile
			err     error
		)
		if len(args) > 0 {
			profile, err = profileMgr.GetProfile(args[0])
		} else {
			profile, err = profileMgr.GetCurrentProfile()
		}
		if err != nil {
			return err
		}
		return formatter.Print(profile)
	},
}

// profileSwitchCmd 切换profile
var profileSwitchCmd = &cobra.Command{
	Use:   "switch <name>",
	Short: "切换profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := profileMgr.SwitchProfile(name); err != nil {
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("已切换到 profile '%s'", name))

		profile, err := profileMgr.GetProfile(name)
		if err != nil {
			return err
		}
		return formatter.Print(profileSummary(profile, true))
	},
}

// profileCurrentCmd 显示当前profile
var profileCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "显示当前profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileMgr.GetCurrentProfile()
		if err != nil {
			return err
		}
		return formatter.Print(profileSummary(profile, true))
	},
}

var profileCreateFlags struct {
	URL           string
	From          string
	AliasRegistry string
	StoreRegistry string
	Batcher       string
	Timeout       time.Duration
}

// profileCreateCmd 创建新profile
var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "创建新profile",
	Example: `  marketcli profile create dev --url http://localhost:8545 \
    --from 0x... --alias-registry 0x... --store-registry 0x...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, err := profileMgr.GetProfile(name); err == nil {
			return fmt.Errorf("profile '%s' 已存在", name)
		}

		f := profileCreateFlags
		profile := &config.Profile{
			Name: name,
			Endpoints: []config.EndpointConfig{
				{Name: name + "-primary", Priority: 1, URL: f.URL},
			},
			Timeout:       config.Duration(f.Timeout),
			From:          f.From,
			AliasRegistry: f.AliasRegistry,
			StoreRegistry: f.StoreRegistry,
			Batcher:       f.Batcher,
		}
		profile.ApplyDefaults()
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("profile '%s' 无效: %w", name, err)
		}
		if err := profileMgr.SaveProfile(profile); err != nil {
			return fmt.Errorf("保存 profile 失败: %w", err)
		}

		formatter.PrintSuccess(fmt.Sprintf("Profile '%s' 创建成功", name))
		return formatter.Print(profileSummary(profile, name == profileMgr.CurrentName()))
	},
}

// profileImportCmd 导入profile
var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "从JSON文件导入profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		//nolint:gosec // G304: 路径由用户显式指定
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("读取文件失败: %w", err)
		}

		var profile config.Profile
		if err := json.Unmarshal(data, &profile); err != nil {
			return fmt.Errorf("解析JSON失败: %w", err)
		}
		if strings.TrimSpace(profile.Name) == "" {
			return fmt.Errorf("profile 缺少 name")
		}
		if _, err := profileMgr.GetProfile(profile.Name); err == nil {
			return fmt.Errorf("profile '%s' 已存在", profile.Name)
		}
		profile.ApplyDefaults()
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("profile '%s' 无效: %w", profile.Name, err)
		}
		if err := profileMgr.SaveProfile(&profile); err != nil {
			return fmt.Errorf("保存 profile 失败: %w", err)
		}

		formatter.PrintSuccess(fmt.Sprintf("Profile '%s' 导入成功", profile.Name))
		return formatter.Print(profileSummary(&profile, profile.Name == profileMgr.CurrentName()))
	},
}

// profileExportCmd 导出profile
var profileExportCmd = &cobra.Command{
	Use:   "export <name> [file]",
	Short: "将profile导出为JSON文件",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		profile, err := profileMgr.GetProfile(name)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return fmt.Errorf("序列化JSON失败: %w", err)
		}

		outputFile := name + "-profile.json"
		if len(args) > 1 {
			outputFile = args[1]
		}
		if err := os.WriteFile(outputFile, data, 0600); err != nil {
			return fmt.Errorf("写入文件失败: %w", err)
		}

		formatter.PrintSuccess(fmt.Sprintf("Profile '%s' 已导出到 %s", name, outputFile))
		return formatter.Print(map[string]interface{}{
			"profile": name,
			"file":    outputFile,
		})
	},
}

var profileDeleteYes bool

// profileDeleteCmd 删除profile
var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "删除profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, err := profileMgr.GetProfile(name); err != nil {
			return err
		}
		if name == profileMgr.CurrentName() {
			return fmt.Errorf("不能删除当前正在使用的 profile")
		}

		if !profileDeleteYes {
			fmt.Fprintf(cmd.ErrOrStderr(), "确认删除 profile '%s'? (yes/no): ", name)
			var confirm string
			if _, err := fmt.Fscanln(cmd.InOrStdin(), &confirm); err != nil {
				return fmt.Errorf("读取输入失败: %w", err)
			}
			if strings.ToLower(confirm) != "yes" {
				formatter.PrintInfo("取消删除")
				return nil
			}
		}

		if err := profileMgr.DeleteProfile(name); err != nil {
			return fmt.Errorf("删除 profile 失败: %w", err)
		}
		formatter.PrintSuccess(fmt.Sprintf("Profile '%s' 已删除", name))
		return nil
	},
}

func init() {
	cf := profileCreateCmd.Flags()
	cf.StringVar(&profileCreateFlags.URL, "url", "http://localhost:8545", "节点 JSON-RPC 地址")
	cf.StringVar(&profileCreateFlags.From, "from", "", "发送账户地址（节点托管）")
	cf.StringVar(&profileCreateFlags.AliasRegistry, "alias-registry", "", "别名注册表合约地址")
	cf.StringVar(&profileCreateFlags.StoreRegistry, "store-registry", "", "店铺注册表合约地址")
	cf.StringVar(&profileCreateFlags.Batcher, "batcher", "", "批量调用合约地址（可选）")
	cf.DurationVar(&profileCreateFlags.Timeout, "timeout", 30*time.Second, "单次请求超时")

	profileDeleteCmd.Flags().BoolVarP(&profileDeleteYes, "yes", "y", false, "跳过确认")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSwitchCmd)
	profileCmd.AddCommand(profileCurrentCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}
