package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/marketclient/internal/core/store"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
)

// storeCmd 店铺命令
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "店铺管理",
	Long:  "读取、校验、创建与更新链上店铺",
}

// storeFlags 店铺子命令共用的标志
var storeFlags struct {
	Alias        string
	MetaFile     string
	Open         bool
	Currency     string
	Dispute      uint64
	MinTotal     string
	AffiliateFee uint64
	Wait         bool
}

// ProposalOutput 已提交交易的输出
type ProposalOutput struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	TxHash      string `json:"tx_hash"`
	Status      string `json:"status"`
}

func proposalOutput(p *txmonitor.Proposal) ProposalOutput {
	return ProposalOutput{
		ID:          p.ID,
		Description: p.Description,
		TxHash:      p.TxHash().Hex(),
		Status:      string(p.Status()),
	}
}

// storeShowCmd 读取店铺快照
var storeShowCmd = &cobra.Command{
	Use:   "show <address|alias>",
	Short: "读取店铺快照",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := a.Services().Stores.Open(ctx, args[0])
		if err != nil {
			return err
		}
		view, err := st.Ready(ctx)
		if err != nil {
			return err
		}
		name, err := st.Alias(ctx)
		if err != nil {
			formatter.PrintWarning(fmt.Sprintf("反查别名失败: %v", err))
		}
		return formatter.Print(view.Document(name))
	},
}

// storeCheckCmd 静态校验
var storeCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "校验别名与元数据（不提交交易）",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := readMeta(cmd, storeFlags.MetaFile)
		if err != nil {
			return err
		}
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		if err := a.Services().Stores.Check(cmd.Context(), storeFlags.Alias, meta); err != nil {
			return err
		}
		formatter.PrintSuccess("校验通过")
		return formatter.Print(map[string]interface{}{"valid": true})
	},
}

// storeCreateCmd 创建店铺
var storeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "创建店铺并认领别名",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := readMeta(cmd, storeFlags.MetaFile)
		if err != nil {
			return err
		}
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		creation, err := a.Services().Stores.Create(ctx, store.Fields{
			IsOpen:                 storeFlags.Open,
			Currency:               storeFlags.Currency,
			DisputeSeconds:         storeFlags.Dispute,
			MinTotal:               storeFlags.MinTotal,
			AffiliateFeeCentiperun: storeFlags.AffiliateFee,
		}, meta, storeFlags.Alias)
		if err != nil {
			return err
		}

		if !storeFlags.Wait {
			if _, err := creation.Proposal().Submitted(ctx); err != nil {
				return err
			}
			return formatter.Print(proposalOutput(creation.Proposal()))
		}

		formatter.PrintInfo("等待交易确认...")
		st, err := creation.Store(ctx)
		if err != nil {
			return err
		}
		view, err := st.Ready(ctx)
		if err != nil {
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("店铺已创建: %s", st.Address().Hex()))
		return formatter.Print(view.Document(storeFlags.Alias))
	},
}

// storeSetCmd 更新店铺
var storeSetCmd = &cobra.Command{
	Use:   "set <address|alias>",
	Short: "更新店铺字段和/或元数据（合并为一笔交易）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var upd store.FieldUpdate
		flags := cmd.Flags()
		if flags.Changed("open") {
			upd.IsOpen = &storeFlags.Open
		}
		if flags.Changed("currency") {
			upd.Currency = &storeFlags.Currency
		}
		if flags.Changed("dispute") {
			upd.DisputeSeconds = &storeFlags.Dispute
		}
		if flags.Changed("min-total") {
			upd.MinTotal = &storeFlags.MinTotal
		}
		if flags.Changed("affiliate-fee") {
			upd.AffiliateFeeCentiperun = &storeFlags.AffiliateFee
		}
		var meta map[string]interface{}
		if storeFlags.MetaFile != "" {
			m, err := readMeta(cmd, storeFlags.MetaFile)
			if err != nil {
				return err
			}
			meta = m
		}

		a, err := openApp("warn")
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := a.Services().Stores.Open(ctx, args[0])
		if err != nil {
			return err
		}
		if _, err := st.Ready(ctx); err != nil {
			return err
		}
		proposal, err := st.Set(ctx, upd, meta)
		if err != nil {
			return err
		}

		if !storeFlags.Wait {
			if _, err := proposal.Submitted(ctx); err != nil {
				return err
			}
			return formatter.Print(proposalOutput(proposal))
		}

		formatter.PrintInfo("等待交易确认...")
		if _, err := proposal.Wait(ctx); err != nil {
			return err
		}
		view, err := st.Update(ctx)
		if err != nil {
			return err
		}
		name, _ := st.Alias(ctx)
		return formatter.Print(view.Document(name))
	},
}

// storeEstimateCmd 估算创建成本
var storeEstimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "估算创建店铺（部署 + 认领别名）的 gas",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := readMeta(cmd, storeFlags.MetaFile)
		if err != nil {
			return err
		}
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		cost, err := a.Services().Stores.EstimateCreationCost(cmd.Context(), storeFlags.Alias, meta)
		if err != nil {
			return err
		}
		return formatter.Print(map[string]interface{}{
			"deploy_gas": cost.DeployGas,
			"claim_gas":  cost.ClaimGas,
			"gas":        cost.Total(),
		})
	},
}

// readMeta 读取元数据 JSON 文件；"-" 表示标准输入
func readMeta(cmd *cobra.Command, path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, fmt.Errorf("需要通过 --meta 指定元数据文件")
	}
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("读取元数据: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("解析元数据: %w", err)
	}
	return meta, nil
}

func init() {
	for _, c := range []*cobra.Command{storeCheckCmd, storeCreateCmd, storeEstimateCmd} {
		c.Flags().StringVar(&storeFlags.Alias, "alias", "", "店铺别名")
		c.Flags().StringVar(&storeFlags.MetaFile, "meta", "", "元数据 JSON 文件（- 表示标准输入）")
	}
	storeSetCmd.Flags().StringVar(&storeFlags.MetaFile, "meta", "", "替换元数据的 JSON 文件（- 表示标准输入）")

	for _, c := range []*cobra.Command{storeCreateCmd, storeSetCmd} {
		c.Flags().BoolVar(&storeFlags.Open, "open", false, "是否营业")
		c.Flags().StringVar(&storeFlags.Currency, "currency", "ETH", "店铺币种")
		c.Flags().Uint64Var(&storeFlags.Dispute, "dispute", 86400, "争议期（秒）")
		c.Flags().StringVar(&storeFlags.MinTotal, "min-total", "0", "最低订单金额（店铺币种）")
		c.Flags().Uint64Var(&storeFlags.AffiliateFee, "affiliate-fee", 0, "推广费（百分之一，0~100）")
		c.Flags().BoolVar(&storeFlags.Wait, "wait", false, "等待交易确认后输出店铺快照")
	}

	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeCheckCmd)
	storeCmd.AddCommand(storeCreateCmd)
	storeCmd.AddCommand(storeSetCmd)
	storeCmd.AddCommand(storeEstimateCmd)
}
