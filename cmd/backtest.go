/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/backtest-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay strategies over stored historical bars",
	Long: `Replay the configured strategies over the stored bar history of the
configured symbols and record the resulting equity curve.`,
	Run: bootstrap.StartBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
}
