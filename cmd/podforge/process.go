package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/podforge-ai/podforge/pkg/agent"
	"github.com/podforge-ai/podforge/pkg/budget"
	"github.com/podforge-ai/podforge/pkg/cache"
	"github.com/podforge-ai/podforge/pkg/decisions"
	"github.com/podforge-ai/podforge/pkg/ledger"
	"github.com/podforge-ai/podforge/pkg/openrouter"
	"github.com/podforge-ai/podforge/pkg/pipeline"
	"github.com/podforge-ai/podforge/pkg/publish"
	"github.com/podforge-ai/podforge/pkg/router"
	"github.com/podforge-ai/podforge/pkg/schedule"
	"github.com/podforge-ai/podforge/pkg/typefully"
)

func newProcessCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "process <transcript>...",
		Short: "Run the full pipeline on one or more transcript files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(verbose)

			store, err := ledger.NewFileStore(cfg.UsageFile)
			if err != nil {
				return err
			}
			led := ledger.New(store, cfg.CostLimits, logger)
			gate := budget.New(led, cfg.CostLimits, cfg.Pricing)

			gen := openrouter.New(cfg.OpenRouter.URL, cfg.OpenRouter.APIKey, cfg.OpenRouter.Timeout, logger)

			var genCache *cache.Cache
			if cfg.Cache.Enabled {
				genCache, err = cache.New(cfg.Cache.DBPath, cfg.Cache.TTL)
				if err != nil {
					return fmt.Errorf("open cache: %w", err)
				}
				defer func() { _ = genCache.Close() }()
			}

			rt := router.New(cfg.Router, cfg.Pricing, gen, gate, led, genCache, logger)

			declog, err := decisions.Open(cfg.Decisions.DBPath, cfg.Decisions.RetentionDays)
			if err != nil {
				return fmt.Errorf("open decision log: %w", err)
			}
			defer func() { _ = declog.Close() }()

			planner := schedule.New(cfg.Publishing)
			publisher := typefully.New(
				cfg.Typefully.URL, cfg.Typefully.APIKey, cfg.Typefully.Timeout,
				cfg.Typefully.RateLimit.Calls, cfg.Typefully.RateLimit.Period, logger)
			coordinator := publish.New(planner, publisher, declog, logger)

			memories := agent.NewMemoryStore(filepath.Join(cfg.DataDir, "memory"), logger)
			insightMem := memories.Load("cmo_orchestrator")
			researchMem := memories.Load("research_agent")
			contentMem := memories.Load("content_agent")
			publishMem := memories.Load("publishing_agent")
			coordinator.OnSuccess(publishMem.LearnFromSuccess)

			insights := agent.NewInsightAgent(rt, insightMem, cfg.Content, logger)
			research := agent.NewResearchAgent(rt, agent.SimulatedSearcher{}, researchMem, cfg.Research, logger)
			content := agent.NewContentAgent(rt, contentMem, cfg.Content, logger)

			orch := pipeline.New(insights, research, content, coordinator, declog, memories, cfg.DataDir, logger)

			for _, path := range args {
				summary, err := orch.ProcessTranscript(cmd.Context(), path)
				if err != nil {
					logger.Error("transcript processing failed", "file", path, "error", err)
					continue
				}
				fmt.Printf("%s: %d insights extracted, %d processed, %d pending retries\n",
					summary.EpisodeID, summary.InsightsExtracted,
					summary.InsightsProcessed, summary.PendingRetries)
				for _, r := range summary.Results {
					fmt.Printf("  %-40s %s (approved %d, scheduled %d, failed %d)\n",
						r.Title, r.Status, r.PiecesApproved, r.Scheduled, r.Failed)
				}
			}

			orch.SaveMemories(insightMem, researchMem, contentMem, publishMem)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "podforge.yaml", "path to config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}
