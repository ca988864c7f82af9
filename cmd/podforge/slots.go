package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/podforge-ai/podforge/pkg/schedule"
)

func newSlotsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Preview the publishing slots currently available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			slots := schedule.New(cfg.Publishing).GenerateSlots()
			if len(slots) == 0 {
				fmt.Println("No publishing slots in the current horizon.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tTIME")
			for _, s := range slots {
				fmt.Fprintf(w, "%s %s\t%s\n", s.Weekday(), s.Format("2006-01-02"), s.Format("15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "podforge.yaml", "path to config file")
	return cmd
}
