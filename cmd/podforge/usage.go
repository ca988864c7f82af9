package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/podforge-ai/podforge/pkg/ledger"
)

func newUsageCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show token and cost usage vs budget limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(false)

			store, err := ledger.NewFileStore(cfg.UsageFile)
			if err != nil {
				return err
			}
			led := ledger.New(store, cfg.CostLimits, logger)

			s := led.Summary()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCOPE\tTOKENS\tCOST (USD)\tREQUESTS\tREMAINING")
			fmt.Fprintf(w, "today\t%d\t%.4f\t%d\t%d tokens\n",
				s.DailyTokensUsed, s.DailyCostUSD, s.DailyRequests, s.DailyTokensRemaining)
			fmt.Fprintf(w, "month\t%d\t%.4f\t%d\t$%.2f\n",
				s.MonthlyTokens, s.MonthlyCostUSD, s.MonthlyRequests, s.MonthlyRemainingUSD)
			if err := w.Flush(); err != nil {
				return err
			}

			if len(s.RecentEpisodes) == 0 {
				return nil
			}
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EPISODE\tTOKENS\tCOST (USD)")
			for _, e := range s.RecentEpisodes {
				fmt.Fprintf(w, "%s\t%d\t%.4f\n", e.EpisodeID, e.Tokens, e.CostUSD)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "podforge.yaml", "path to config file")
	return cmd
}
