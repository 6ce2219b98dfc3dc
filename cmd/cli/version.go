package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/marketclient/internal/app/version"
)

// versionCmd 版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	RunE: func(cmd *cobra.Command, args []string) error {
		if globalFlags.OutputFormat == "text" {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			return nil
		}
		return formatter.Print(version.GetBuildInfo())
	},
}
