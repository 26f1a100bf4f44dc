// internal/models/query.go
package models

import "time"

// AttemptOutcome classifies how one query attempt ended.
type AttemptOutcome string

const (
	OutcomeSuccess        AttemptOutcome = "success"
	OutcomeSchemaError    AttemptOutcome = "schema_error"
	OutcomeExecutionError AttemptOutcome = "execution_error"
	OutcomeDataError      AttemptOutcome = "data_error"
	OutcomeShapeError     AttemptOutcome = "shape_error"
)

// QueryAttempt records one Draft/Correct→Execute→Validate cycle.
type QueryAttempt struct {
	Number    int            `json:"number"` // 1-based
	Query     string         `json:"query"`
	Outcome   AttemptOutcome `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	BadIdent  string         `json:"badIdent,omitempty"`  // identifier rejected by the data source
	FixedWith string         `json:"fixedWith,omitempty"` // catalog identifier substituted for it
	Duration  time.Duration  `json:"duration"`
}

// ResolvedValue is the validated data value produced for a placeholder.
type ResolvedValue struct {
	Scalar interface{}              `json:"scalar,omitempty"`
	Rows   []map[string]interface{} `json:"rows,omitempty"`
}
