// internal/query/executor.go
package query

import (
	"context"
	"fmt"
)

// ErrorKind classifies executor failures. The agent's state machine needs
// schema errors (correctable), execution errors (retryable as-is) and data
// errors (terminal) kept apart.
type ErrorKind string

const (
	KindSchema    ErrorKind = "schema"
	KindExecution ErrorKind = "execution"
	KindTimeout   ErrorKind = "timeout"
	KindData      ErrorKind = "data"
)

// ExecError is the structured error contract of every executor.
type ExecError struct {
	Kind  ErrorKind
	Ident string // offending identifier for schema errors
	Err   error
}

func (e *ExecError) Error() string {
	if e.Ident != "" {
		return fmt.Sprintf("%s error on %q: %v", e.Kind, e.Ident, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Result is the structured result set of one query execution.
type Result struct {
	Columns []string
	Rows    []map[string]interface{}
}

// Executor submits a rendered query to a data source. Implementations must
// return *ExecError for every failure so the agent can branch on Kind.
type Executor interface {
	Execute(ctx context.Context, query string) (*Result, error)
}

// RoutingExecutor dispatches on the rendered form: search envelopes are
// JSON objects, SQL is everything else.
type RoutingExecutor struct {
	sql    Executor
	search Executor
}

func NewRoutingExecutor(sql, search Executor) *RoutingExecutor {
	return &RoutingExecutor{sql: sql, search: search}
}

func (r *RoutingExecutor) Execute(ctx context.Context, query string) (*Result, error) {
	if len(query) > 0 && query[0] == '{' {
		return r.search.Execute(ctx, query)
	}
	return r.sql.Execute(ctx, query)
}
