package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"futsim/sim"
)

// newRunCmd builds the headless batch runner: advance N batches, print the
// final report, exit.
func newRunCmd(rc *RootConfig) *cobra.Command {
	var (
		batches int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation headless for a fixed number of batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}
			if seed != 0 {
				cfg.Sim.Seed = seed
			}

			ctx := cmd.Context()
			session, cleanup, err := buildSession(ctx, cfg, rc)
			if err != nil {
				return err
			}
			defer cleanup()

			session.Start(0)
			var report sim.Report
			for i := 0; i < batches; i++ {
				report, err = session.RunBatch(ctx)
				if errors.Is(err, sim.ErrAccountViolated) {
					slog.Warn("account violated, stopping run", "batch", i)
					break
				}
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			}

			printReport(report)
			return nil
		},
	}

	cmd.Flags().IntVar(&batches, "batches", 100, "Number of batches to advance")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time-based)")
	return cmd
}

func printReport(r sim.Report) {
	fmt.Printf("candles: %d  balance: %.2f  net: %+.2f  max drawdown: %.2f\n",
		r.CurrentIndex, r.Balance, r.NetPnL, r.MaxDrawdown)
	fmt.Printf("trades: %d wins / %d losses (%.1f%% win rate)\n",
		r.Wins, r.Losses, r.WinRate*100)
	fmt.Printf("costs: commission %.2f  slippage %.2f  spread %.2f  gap %.2f\n",
		r.Costs.Commission, r.Costs.Slippage, r.Costs.Spread, r.Costs.GapLoss)
	fmt.Printf("execution: %d orders, %d rejected (%.1f%%), %d partial fills, avg latency %.0fms\n",
		r.Exec.OrdersSubmitted, r.Exec.OrdersRejected, r.Exec.RejectRate*100,
		r.Exec.PartialFills, r.Exec.AvgLatencyMs)
	for name, pnl := range r.StrategyPnL {
		fmt.Printf("  %-12s %+.2f\n", name, pnl)
	}
}
