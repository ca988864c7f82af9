package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/podforge-ai/podforge/pkg/typefully"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show drafts and scheduled posts at the publishing provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(false)

			client := typefully.New(
				cfg.Typefully.URL, cfg.Typefully.APIKey, cfg.Typefully.Timeout,
				cfg.Typefully.RateLimit.Calls, cfg.Typefully.RateLimit.Period, logger)

			drafts, err := client.Drafts(cmd.Context())
			if err != nil {
				return err
			}
			scheduled, err := client.Scheduled(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%d drafts, %d scheduled\n", len(drafts), len(scheduled))
			if len(scheduled) == 0 {
				return nil
			}

			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCHEDULED FOR\tCONTENT")
			for _, p := range scheduled {
				content := p.Content
				if len(content) > 60 {
					content = content[:57] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.ScheduleTime, content)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "podforge.yaml", "path to config file")
	return cmd
}
