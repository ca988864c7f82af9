package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/podforge-ai/podforge/pkg/budget"
	"github.com/podforge-ai/podforge/pkg/cache"
	"github.com/podforge-ai/podforge/pkg/config"
	"github.com/podforge-ai/podforge/pkg/ledger"
	"github.com/podforge-ai/podforge/pkg/models"
)

// ErrRateLimited signals a retryable rate-limit response from a backend.
var ErrRateLimited = errors.New("rate limited")

// ErrGenerationFailed is the sentinel for terminal generation failures.
var ErrGenerationFailed = errors.New("generation failed")

// GenerationError wraps a terminal backend failure with the task that
// triggered it.
type GenerationError struct {
	TaskType string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for task %s: %v", e.TaskType, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

// Generator is the text-generation capability a Router delegates to.
// Implementations may return an error wrapping ErrRateLimited to
// request a retry; any other error is terminal.
type Generator interface {
	Generate(ctx context.Context, model, systemPrompt, userPrompt string, maxTokens int) (text string, inputTokens, outputTokens int, err error)
}

// Router maps task types to backend tiers, enforces the budget gate
// before every call, applies per-tier rate limiting, and records true
// usage after each successful generation.
type Router struct {
	cfg     config.RouterConfig
	pricing map[string]models.ModelPricing
	gen     Generator
	gate    *budget.Gate
	ledger  *ledger.Ledger
	cache   *cache.Cache
	logger  *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	sleep     func(time.Duration)
	randFloat func() float64
}

// New creates a Router. The cache may be nil when disabled.
func New(cfg config.RouterConfig, pricing map[string]models.ModelPricing, gen Generator, gate *budget.Gate, l *ledger.Ledger, c *cache.Cache, logger *slog.Logger) *Router {
	return &Router{
		cfg:       cfg,
		pricing:   pricing,
		gen:       gen,
		gate:      gate,
		ledger:    l,
		cache:     c,
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
}

// Route resolves a task type to its tier and backend model. Unknown
// task types fall back to the default tier; routing never silently
// escalates to a more expensive backend for unrecognized work.
func (r *Router) Route(taskType string) (tier, model string) {
	tier, ok := r.cfg.TaskRoutes[taskType]
	if !ok {
		tier = r.cfg.DefaultTier
		r.logger.Debug("unknown task type, using default tier",
			"task_type", taskType, "tier", tier)
	}
	return tier, r.cfg.Tiers[tier]
}

// Generate runs one guarded generation call:
// estimate, budget check, rate-limit wait, call, retry once on a
// rate-limit signal, then record true usage.
func (r *Router) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	tier, model := r.Route(req.TaskType)
	if model == "" {
		return "", &GenerationError{TaskType: req.TaskType,
			Err: fmt.Errorf("no backend model for tier %q", tier)}
	}

	estimated := budget.EstimateTokens(req.SystemPrompt, req.UserPrompt, req.MaxOutputTokens, r.cfg.CharsPerToken)
	decision := r.gate.Check(req.AgentName, model, estimated, req.EpisodeID)
	if !decision.Allowed {
		r.logger.Error("request blocked, would exceed limits",
			"agent", req.AgentName,
			"task_type", req.TaskType,
			"reasons", decision.Reasons,
		)
		return "", &budget.ExceededError{
			Agent:            req.AgentName,
			Reasons:          decision.Reasons,
			EstimatedCostUSD: decision.EstimatedCostUSD,
		}
	}

	var key string
	if r.cache != nil {
		key = cache.Key(model, req.SystemPrompt, req.UserPrompt, req.MaxOutputTokens)
		if text, ok := r.cache.Get(key, model); ok {
			r.logger.Info("cache hit", "agent", req.AgentName, "task_type", req.TaskType)
			return text, nil
		}
	}

	if err := r.limiter(tier).Wait(ctx); err != nil {
		return "", &GenerationError{TaskType: req.TaskType, Err: err}
	}

	text, in, out, err := r.gen.Generate(ctx, model, req.SystemPrompt, req.UserPrompt, req.MaxOutputTokens)
	if errors.Is(err, ErrRateLimited) {
		backoff := r.backoff()
		r.logger.Warn("backend rate limited, retrying once",
			"agent", req.AgentName, "task_type", req.TaskType, "backoff", backoff)
		r.sleep(backoff)
		text, in, out, err = r.gen.Generate(ctx, model, req.SystemPrompt, req.UserPrompt, req.MaxOutputTokens)
	}
	if err != nil {
		r.logger.Error("generation failed",
			"agent", req.AgentName, "task_type", req.TaskType, "error", err)
		return "", &GenerationError{TaskType: req.TaskType, Err: err}
	}

	r.ledger.Record(req.AgentName, in, out, req.EpisodeID, r.pricing[model])
	if r.cache != nil {
		if err := r.cache.Put(key, model, text); err != nil {
			r.logger.Warn("cache put failed", "error", err)
		}
	}
	return text, nil
}

// limiter returns the token-bucket limiter for a tier, constructing it
// lazily from config. Tiers with no configured quota are unlimited.
func (r *Router) limiter(tier string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lim, ok := r.limiters[tier]; ok {
		return lim
	}
	rl, ok := r.cfg.RateLimits[tier]
	var lim *rate.Limiter
	if !ok || rl.Calls <= 0 || rl.Period <= 0 {
		lim = rate.NewLimiter(rate.Inf, 1)
	} else {
		lim = rate.NewLimiter(rate.Limit(float64(rl.Calls)/rl.Period.Seconds()), rl.Calls)
	}
	r.limiters[tier] = lim
	return lim
}

// backoff samples a uniform random duration from the configured window.
func (r *Router) backoff() time.Duration {
	lo, hi := r.cfg.RateLimitBackoff.Min(), r.cfg.RateLimitBackoff.Max()
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.randFloat()*float64(hi-lo))
}
