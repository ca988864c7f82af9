package config

import (
	"fmt"
	"os"
	"time"

	"github.com/podforge-ai/podforge/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all Podforge configuration.
type Config struct {
	DataDir    string                         `yaml:"data_dir"`
	UsageFile  string                         `yaml:"usage_file"`
	Decisions  DecisionsConfig                `yaml:"decisions"`
	Cache      CacheConfig                    `yaml:"cache"`
	CostLimits models.CostLimits              `yaml:"cost_limits"`
	Pricing    map[string]models.ModelPricing `yaml:"pricing"`
	Router     RouterConfig                   `yaml:"router"`
	Publishing PublishingConfig               `yaml:"publishing"`
	Research   ResearchConfig                 `yaml:"research"`
	Content    ContentConfig                  `yaml:"content"`
	OpenRouter ProviderConfig                 `yaml:"openrouter"`
	Typefully  TypefullyConfig                `yaml:"typefully"`
}

// DecisionsConfig controls the decision audit log.
type DecisionsConfig struct {
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// CacheConfig controls the exact-match generation cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	DBPath  string        `yaml:"db_path"`
	TTL     time.Duration `yaml:"ttl"`
}

// RateLimitConfig defines a call quota per rolling time window.
type RateLimitConfig struct {
	Calls  int           `yaml:"calls"`
	Period time.Duration `yaml:"period"`
}

// BackoffWindow is a randomized retry sleep range.
type BackoffWindow struct {
	MinSeconds int `yaml:"min_seconds"`
	MaxSeconds int `yaml:"max_seconds"`
}

// Min returns the lower bound of the window as a duration.
func (w BackoffWindow) Min() time.Duration { return time.Duration(w.MinSeconds) * time.Second }

// Max returns the upper bound of the window as a duration.
func (w BackoffWindow) Max() time.Duration { return time.Duration(w.MaxSeconds) * time.Second }

// RouterConfig defines task routing and backend tiers.
type RouterConfig struct {
	// Tiers maps a tier name to the backend model it resolves to.
	Tiers map[string]string `yaml:"tiers"`
	// TaskRoutes maps a task type to a tier name.
	TaskRoutes map[string]string `yaml:"task_routes"`
	// DefaultTier receives unknown task types; never the expensive tier.
	DefaultTier      string                     `yaml:"default_tier"`
	CharsPerToken    int                        `yaml:"chars_per_token"`
	RateLimits       map[string]RateLimitConfig `yaml:"rate_limits"`
	RateLimitBackoff BackoffWindow              `yaml:"rate_limit_backoff"`
}

// PublishingConfig controls slot generation and batch scheduling.
type PublishingConfig struct {
	PostsPerDay           int           `yaml:"posts_per_day"`
	OptimalTimes          []string      `yaml:"optimal_times"`
	AvoidWeekends         bool          `yaml:"avoid_weekends"`
	MinThreadSpacingHours int           `yaml:"min_thread_spacing_hours"`
	HorizonDays           int           `yaml:"horizon_days"`
	RetryBackoff          BackoffWindow `yaml:"retry_backoff"`
}

// MinThreadSpacing returns the thread spacing as a duration.
func (p PublishingConfig) MinThreadSpacing() time.Duration {
	return time.Duration(p.MinThreadSpacingHours) * time.Hour
}

// ResearchConfig controls the research agent.
type ResearchConfig struct {
	MaxSearchesPerInsight int     `yaml:"max_searches_per_insight"`
	CredibilityThreshold  float64 `yaml:"source_credibility_threshold"`
	MaxSources            int     `yaml:"max_sources"`
}

// ContentConfig controls content generation and validation.
type ContentConfig struct {
	MaxPostLength       int     `yaml:"max_post_length"`
	MaxPerEpisode       int     `yaml:"max_content_per_episode"`
	MinPriorityScore    float64 `yaml:"min_priority_score"`
	ThreadLengthMin     int     `yaml:"thread_length_min"`
	ThreadLengthMax     int     `yaml:"thread_length_max"`
	BrandVoiceThreshold float64 `yaml:"brand_voice_threshold"`
	QualityThreshold    float64 `yaml:"quality_threshold"`
}

// ProviderConfig defines an upstream HTTP capability.
type ProviderConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// TypefullyConfig defines the publishing capability.
type TypefullyConfig struct {
	URL       string          `yaml:"url"`
	APIKey    string          `yaml:"api_key"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DataDir:   "data",
		UsageFile: "data/memory/api_usage.json",
		Decisions: DecisionsConfig{
			DBPath:        "data/decisions.db",
			RetentionDays: 90,
		},
		Cache: CacheConfig{
			Enabled: false,
			DBPath:  "data/cache.db",
			TTL:     24 * time.Hour,
		},
		CostLimits: models.CostLimits{
			DailyTokenLimit:   50000,
			EpisodeTokenLimit: 25000,
			MonthlyBudgetUSD:  100,
		},
		Pricing: map[string]models.ModelPricing{
			"anthropic/claude-3.5-sonnet": {
				InputCostPerToken:  0.000003,
				OutputCostPerToken: 0.000015,
			},
			"deepseek/deepseek-chat": {
				InputCostPerToken:  0.00000014,
				OutputCostPerToken: 0.00000028,
			},
		},
		Router: RouterConfig{
			Tiers: map[string]string{
				"reasoning": "anthropic/claude-3.5-sonnet",
				"content":   "deepseek/deepseek-chat",
			},
			TaskRoutes: map[string]string{
				"insight_extraction":      "reasoning",
				"insight_prioritization":  "reasoning",
				"brand_voice_validation":  "reasoning",
				"search_query_generation": "content",
				"research_analysis":       "content",
				"framework_thread":        "content",
				"contrarian_content":      "content",
				"case_study_content":      "content",
				"tactical_content":        "content",
			},
			DefaultTier:   "content",
			CharsPerToken: 4,
			RateLimits: map[string]RateLimitConfig{
				"reasoning": {Calls: 50, Period: time.Minute},
				"content":   {Calls: 50, Period: time.Minute},
			},
			RateLimitBackoff: BackoffWindow{MinSeconds: 60, MaxSeconds: 90},
		},
		Publishing: PublishingConfig{
			PostsPerDay:           3,
			OptimalTimes:          []string{"09:00", "14:00", "18:00"},
			AvoidWeekends:         true,
			MinThreadSpacingHours: 48,
			HorizonDays:           7,
			RetryBackoff:          BackoffWindow{MinSeconds: 30, MaxSeconds: 45},
		},
		Research: ResearchConfig{
			MaxSearchesPerInsight: 3,
			CredibilityThreshold:  0.7,
			MaxSources:            3,
		},
		Content: ContentConfig{
			MaxPostLength:       280,
			MaxPerEpisode:       15,
			MinPriorityScore:    0.6,
			ThreadLengthMin:     5,
			ThreadLengthMax:     7,
			BrandVoiceThreshold: 0.8,
			QualityThreshold:    0.7,
		},
		OpenRouter: ProviderConfig{
			URL:     "https://openrouter.ai/api",
			APIKey:  "${OPENROUTER_API_KEY}",
			Timeout: 60 * time.Second,
		},
		Typefully: TypefullyConfig{
			URL:       "https://api.typefully.com",
			APIKey:    "${TYPEFULLY_API_KEY}",
			Timeout:   30 * time.Second,
			RateLimit: RateLimitConfig{Calls: 30, Period: time.Hour},
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the pieces the pipeline cannot run without.
func (c *Config) Validate() error {
	if len(c.Router.Tiers) == 0 {
		return fmt.Errorf("config: no router tiers defined")
	}
	if _, ok := c.Router.Tiers[c.Router.DefaultTier]; !ok {
		return fmt.Errorf("config: default tier %q has no backend model", c.Router.DefaultTier)
	}
	for task, tier := range c.Router.TaskRoutes {
		if _, ok := c.Router.Tiers[tier]; !ok {
			return fmt.Errorf("config: task %q routes to unknown tier %q", task, tier)
		}
	}
	if c.Publishing.HorizonDays <= 0 {
		return fmt.Errorf("config: publishing horizon must be positive")
	}
	if len(c.Publishing.OptimalTimes) == 0 {
		return fmt.Errorf("config: no optimal publishing times defined")
	}
	return nil
}
