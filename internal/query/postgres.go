// internal/query/postgres.go
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/lib/pq"
)

// PostgresExecutor runs rendered SQL against a PostgreSQL data source and
// translates driver errors into the structured executor contract.
type PostgresExecutor struct {
	db *sql.DB
}

func NewPostgresExecutor(db *sql.DB) *PostgresExecutor {
	return &PostgresExecutor{db: db}
}

var (
	relationPattern = regexp.MustCompile(`relation "([^"]+)" does not exist`)
	columnPattern   = regexp.MustCompile(`column "?([^" ]+)"? does not exist`)
)

func (e *PostgresExecutor) Execute(ctx context.Context, query string) (*Result, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyPostgresError(ctx, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ExecError{Kind: KindExecution, Err: err}
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ExecError{Kind: KindExecution, Err: err}
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgresError(ctx, err)
	}

	if len(result.Rows) == 0 {
		return nil, &ExecError{Kind: KindData, Err: fmt.Errorf("query returned no rows")}
	}

	return result, nil
}

// classifyPostgresError maps lib/pq failures onto the executor contract.
// SQLSTATE 42P01 is undefined_table, 42703 undefined_column.
func classifyPostgresError(ctx context.Context, err error) *ExecError {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &ExecError{Kind: KindTimeout, Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42P01", "42703":
			return &ExecError{Kind: KindSchema, Ident: extractIdent(pqErr.Message), Err: err}
		}
		return &ExecError{Kind: KindExecution, Err: err}
	}

	// Fall back to message matching for drivers (and mocks) that don't
	// surface a pq.Error.
	if ident := extractIdent(err.Error()); ident != "" {
		return &ExecError{Kind: KindSchema, Ident: ident, Err: err}
	}

	return &ExecError{Kind: KindExecution, Err: err}
}

func extractIdent(message string) string {
	if m := relationPattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	if m := columnPattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}
