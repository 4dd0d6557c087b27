/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/backtest-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// paperCmd represents the paper command
var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Run paper trading against a live price feed",
	Long: `Run the paper broker against a live websocket kline feed, simulating
submission latency and execution slippage.`,
	Run: bootstrap.StartPaperTrade,
}

func init() {
	rootCmd.AddCommand(paperCmd)
}
