package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/weisyn/marketclient/pkg/types"
)

// aliasCmd 别名命令
var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "别名查询",
	Long:  "通过链上别名注册表在别名与合约地址之间解析",
}

// aliasResolveCmd 别名 -> 地址
var aliasResolveCmd = &cobra.Command{
	Use:   "resolve <alias>",
	Short: "解析别名（未认领时为零地址）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		addr, err := a.Services().Aliases.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return formatter.Print(map[string]interface{}{
			"alias":   args[0],
			"address": addr.Hex(),
		})
	},
}

// aliasReverseCmd 地址 -> 别名
var aliasReverseCmd = &cobra.Command{
	Use:   "reverse <address>",
	Short: "反查地址的别名",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return &types.ValidationError{Field: "address", Rule: "type", Message: fmt.Sprintf("%s is not an address", args[0])}
		}
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		addr := common.HexToAddress(args[0])
		name, err := a.Services().Aliases.ReverseResolve(cmd.Context(), addr)
		if err != nil {
			return err
		}
		return formatter.Print(map[string]interface{}{
			"address": addr.Hex(),
			"alias":   name,
		})
	},
}

// aliasAvailableCmd 别名是否可认领
var aliasAvailableCmd = &cobra.Command{
	Use:   "available <alias>",
	Short: "检查别名是否可认领",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		ok, err := a.Services().Aliases.IsAvailable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return formatter.Print(map[string]interface{}{
			"alias":     args[0],
			"available": ok,
		})
	},
}

// aliasClassifyCmd 别名指向的合约种类
var aliasClassifyCmd = &cobra.Command{
	Use:   "classify <alias>",
	Short: "识别别名指向的合约种类",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		kind, err := a.Services().Aliases.Classify(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return formatter.Print(map[string]interface{}{
			"alias": args[0],
			"kind":  string(kind),
		})
	},
}

// aliasValidateCmd 别名是否指向指定种类的合约
var aliasValidateCmd = &cobra.Command{
	Use:   "validate <alias> <kind>",
	Short: "检查别名是否指向指定种类的合约",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseContractKind(args[1])
		if err != nil {
			return &types.ValidationError{Field: "kind", Rule: "inclusion", Message: err.Error()}
		}
		a, err := openApp("warn")
		if err != nil {
			return err
		}
		ok, err := a.Services().Aliases.Validate(cmd.Context(), args[0], kind)
		if err != nil {
			return err
		}
		return formatter.Print(map[string]interface{}{
			"alias": args[0],
			"kind":  string(kind),
			"valid": ok,
		})
	},
}

func init() {
	aliasCmd.AddCommand(aliasResolveCmd)
	aliasCmd.AddCommand(aliasReverseCmd)
	aliasCmd.AddCommand(aliasAvailableCmd)
	aliasCmd.AddCommand(aliasClassifyCmd)
	aliasCmd.AddCommand(aliasValidateCmd)
}
