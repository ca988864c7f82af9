package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// maxDecisions bounds the per-agent decision history.
	maxDecisions = 100
	// maxPatterns bounds each success/failure pattern list.
	maxPatterns = 50
)

// MemoryDecision is one remembered decision with its context.
type MemoryDecision struct {
	Type      string         `json:"decision_type"`
	Context   map[string]any `json:"context,omitempty"`
	Outcome   string         `json:"outcome"`
	Timestamp time.Time      `json:"timestamp"`
}

// Memory is an agent's bounded learning state: recent decisions,
// success/failure patterns, and performance metrics. It is an explicit
// state object passed into and persisted after each agent run; appends
// cap at the most recent entries, oldest dropped first.
type Memory struct {
	Decisions       []MemoryDecision   `json:"decisions"`
	SuccessPatterns []map[string]any   `json:"successful_patterns"`
	FailurePatterns []map[string]any   `json:"failed_patterns"`
	Metrics         map[string]float64 `json:"performance_metrics"`
	LastUpdated     time.Time          `json:"last_updated"`
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{Metrics: make(map[string]float64)}
}

// RecordDecision appends a decision, dropping the oldest beyond the cap.
func (m *Memory) RecordDecision(decisionType string, context map[string]any, outcome string) {
	m.Decisions = append(m.Decisions, MemoryDecision{
		Type:      decisionType,
		Context:   context,
		Outcome:   outcome,
		Timestamp: time.Now(),
	})
	if len(m.Decisions) > maxDecisions {
		m.Decisions = m.Decisions[len(m.Decisions)-maxDecisions:]
	}
	m.LastUpdated = time.Now()
}

// LearnFromSuccess records a successful pattern.
func (m *Memory) LearnFromSuccess(pattern map[string]any) {
	m.SuccessPatterns = appendBounded(m.SuccessPatterns, pattern)
	m.LastUpdated = time.Now()
}

// LearnFromFailure records a failed pattern to avoid in future.
func (m *Memory) LearnFromFailure(pattern map[string]any) {
	m.FailurePatterns = appendBounded(m.FailurePatterns, pattern)
	m.LastUpdated = time.Now()
}

// SetMetric updates a performance metric.
func (m *Memory) SetMetric(name string, value float64) {
	if m.Metrics == nil {
		m.Metrics = make(map[string]float64)
	}
	m.Metrics[name] = value
	m.LastUpdated = time.Now()
}

func appendBounded(list []map[string]any, pattern map[string]any) []map[string]any {
	list = append(list, pattern)
	if len(list) > maxPatterns {
		list = list[len(list)-maxPatterns:]
	}
	return list
}

// MemoryStore persists per-agent memory as JSON files under one
// directory. Load failures yield a fresh memory; save failures are
// logged, never propagated.
type MemoryStore struct {
	dir    string
	logger *slog.Logger
}

// NewMemoryStore creates a store rooted at dir.
func NewMemoryStore(dir string, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{dir: dir, logger: logger}
}

// Load reads an agent's memory, returning a fresh one on any failure.
func (s *MemoryStore) Load(agentName string) *Memory {
	data, err := os.ReadFile(s.path(agentName))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("memory load failed", "agent", agentName, "error", err)
		}
		return NewMemory()
	}
	m := NewMemory()
	if err := json.Unmarshal(data, m); err != nil {
		s.logger.Warn("memory parse failed", "agent", agentName, "error", err)
		return NewMemory()
	}
	if m.Metrics == nil {
		m.Metrics = make(map[string]float64)
	}
	return m
}

// Save writes an agent's memory. Errors are logged and swallowed.
func (s *MemoryStore) Save(agentName string, m *Memory) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("memory dir create failed", "agent", agentName, "error", err)
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		s.logger.Warn("memory encode failed", "agent", agentName, "error", err)
		return
	}
	if err := os.WriteFile(s.path(agentName), data, 0o644); err != nil {
		s.logger.Warn("memory save failed", "agent", agentName, "error", err)
	}
}

func (s *MemoryStore) path(agentName string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_memory.json", agentName))
}
