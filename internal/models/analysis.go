// internal/models/analysis.go
package models

// Intent is the classified business purpose of a placeholder.
type Intent string

const (
	IntentStatistic  Intent = "statistic"
	IntentTrend      Intent = "trend"
	IntentExtremum   Intent = "extremum"
	IntentListing    Intent = "listing"
	IntentChart      Intent = "chart"
	IntentComparison Intent = "comparison"
	IntentForecast   Intent = "forecast"
	IntentPeriod     Intent = "period"
	IntentRegion     Intent = "region"
	IntentUnknown    Intent = "unknown"
)

// ParameterProvenance records whether a parameter was written in the token
// or inferred from surrounding context.
type ParameterProvenance string

const (
	ProvenanceExplicit ParameterProvenance = "explicit"
	ProvenanceInferred ParameterProvenance = "inferred"
)

// InferredParameter is a resolved parameter plus where it came from.
type InferredParameter struct {
	Value      string              `json:"value"`
	Provenance ParameterProvenance `json:"provenance"`
}

// EntityKind classifies a recognized entity.
type EntityKind string

const (
	EntityTime     EntityKind = "time"
	EntityLocation EntityKind = "location"
	EntityMetric   EntityKind = "metric"
)

// Entity is one recognized entity from the NAME field or its neighborhood.
type Entity struct {
	Kind  EntityKind `json:"kind"`
	Text  string     `json:"text"`
	Value string     `json:"value,omitempty"` // normalized form, e.g. "2024-01"
}

// SemanticAnalysis is the per-placeholder output of the semantic analyzer.
type SemanticAnalysis struct {
	Intent     Intent                       `json:"intent"`
	Confidence float64                      `json:"confidence"` // [0,1]
	Parameters map[string]InferredParameter `json:"parameters,omitempty"`
	Entities   []Entity                     `json:"entities,omitempty"`
}

// Scope names one of the four context-analysis granularities.
type Scope string

const (
	ScopeParagraph Scope = "paragraph"
	ScopeSection   Scope = "section"
	ScopeDocument  Scope = "document"
	ScopeBusiness  Scope = "business"
)

// ScopeScore is one scope analyzer's verdict.
type ScopeScore struct {
	Scope     Scope   `json:"scope"`
	Score     float64 `json:"score"` // [0,1], 0.5 when the scope is unavailable
	Rationale string  `json:"rationale,omitempty"`
}

// ContextAnalysisResult bundles the four independent scope scores.
type ContextAnalysisResult struct {
	Paragraph ScopeScore `json:"paragraph"`
	Section   ScopeScore `json:"section"`
	Document  ScopeScore `json:"document"`
	Business  ScopeScore `json:"business"`
}

// WeightBreakdown explains how the final weight was aggregated.
type WeightBreakdown struct {
	ScopeScores   map[Scope]float64  `json:"scopeScores"`
	SemanticScore float64            `json:"semanticScore"`
	Weights       map[string]float64 `json:"weights"`     // aggregation weights actually used
	FinalWeight   float64            `json:"finalWeight"` // [0,1]
	Adjusted      bool               `json:"adjusted"`    // true when learning altered the defaults
	StoreVersion  int64              `json:"storeVersion,omitempty"`
}
