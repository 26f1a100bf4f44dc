// internal/models/result.go
package models

import "time"

// ResolutionStatus is the terminal state of one placeholder's pipeline.
type ResolutionStatus string

const (
	StatusSucceeded ResolutionStatus = "succeeded"
	StatusFailed    ResolutionStatus = "failed"
	StatusSkipped   ResolutionStatus = "skipped" // parse-error stubs are never resolved
)

// ResolvedPlaceholder is the full per-placeholder result.
type ResolvedPlaceholder struct {
	Spec      *PlaceholderSpec       `json:"spec"`
	Status    ResolutionStatus       `json:"status"`
	Value     *ResolvedValue         `json:"value,omitempty"`
	Semantic  *SemanticAnalysis      `json:"semantic,omitempty"`
	Context   *ContextAnalysisResult `json:"context,omitempty"`
	Weight    *WeightBreakdown       `json:"weight,omitempty"`
	Attempts  []QueryAttempt         `json:"attempts,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorCode string                 `json:"errorCode,omitempty"`
	FromCache bool                   `json:"fromCache"`
	Duration  time.Duration          `json:"duration"`
}

// StageTimings are the per-stage wall-clock totals across all placeholders.
type StageTimings struct {
	Parse    time.Duration `json:"parse"`
	Semantic time.Duration `json:"semantic"`
	Context  time.Duration `json:"context"`
	Weight   time.Duration `json:"weight"`
	Query    time.Duration `json:"query"`
}

// PerformanceReport aggregates counters and timings for one document run.
type PerformanceReport struct {
	TotalDuration time.Duration `json:"totalDuration"`
	Stages        StageTimings  `json:"stages"`
	CacheHits     int           `json:"cacheHits"`
	CacheMisses   int           `json:"cacheMisses"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	ParseErrors   int           `json:"parseErrors"`
}

// ProcessingResult is the document-level output. Placeholders keep the
// original document order regardless of completion order.
type ProcessingResult struct {
	RunID        string                `json:"runId"`
	Placeholders []ResolvedPlaceholder `json:"placeholders"`
	QualityScore float64               `json:"qualityScore"`
	Partial      bool                  `json:"partial"` // document deadline hit before all pipelines finished
	Report       PerformanceReport     `json:"report"`
	StartedAt    time.Time             `json:"startedAt"`
	FinishedAt   time.Time             `json:"finishedAt"`
}
