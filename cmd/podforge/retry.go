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

func newRetryCmd() *cobra.Command {
	var configPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Show content whose publishing failed and was queued for retry",
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

			recs, err := log.Query(cmd.Context(), models.DecisionQueryOpts{
				Type:  "content_publish_failed",
				Limit: limit,
			})
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No failed publications on record.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEPISODE\tCONTENT ID\tKIND")
			for _, r := range recs {
				contentID, _ := r.Context["content_id"].(string)
				kind, _ := r.Context["content_kind"].(string)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					r.CreatedAt.Format(time.RFC3339), r.EpisodeID, contentID, kind)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "podforge.yaml", "path to config file")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")
	return cmd
}
