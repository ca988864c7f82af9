package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/podforge-ai/podforge/pkg/decisions"
	"github.com/podforge-ai/podforge/pkg/models"
)

func newDecisionsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Inspect the agent decision log",
	}

	var (
		agentName    string
		decisionType string
		episodeID    string
		since        string
		limit        int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded decisions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			log, err := decisions.Open(cfg.Decisions.DBPath, cfg.Decisions.RetentionDays)
			if err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			opts := models.DecisionQueryOpts{
				Agent:     agentName,
				Type:      decisionType,
				EpisodeID: episodeID,
				Limit:     limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("parse --since: %w", err)
				}
				opts.Since = t
			}

			recs, err := log.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No decisions recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tAGENT\tTYPE\tOUTCOME\tEPISODE")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.Format(time.RFC3339), r.Agent, r.Type, r.Outcome, r.EpisodeID)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&agentName, "agent", "", "filter by agent name")
	listCmd.Flags().StringVar(&decisionType, "type", "", "filter by decision type")
	listCmd.Flags().StringVar(&episodeID, "episode", "", "filter by episode ID")
	listCmd.Flags().StringVar(&since, "since", "", "only decisions on or after this date (YYYY-MM-DD)")
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show decision counts per agent per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			log, err := decisions.Open(cfg.Decisions.DBPath, cfg.Decisions.RetentionDays)
			if err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			stats, err := log.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No decisions recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tAGENT\tDECISIONS")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%s\t%d\n", s.Day, s.Agent, s.Count)
			}
			return w.Flush()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "podforge.yaml", "path to config file")
	cmd.AddCommand(listCmd, statsCmd)
	return cmd
}
