package query

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Execution Tests
// ==========================

func TestPostgresExecutor_Execute_Rows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT SUM\(sales_amount\) AS value FROM online_retail`).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(12345.5))

	executor := NewPostgresExecutor(db)
	result, err := executor.Execute(context.Background(), "SELECT SUM(sales_amount) AS value FROM online_retail")
	require.NoError(t, err)

	assert.Equal(t, []string{"value"}, result.Columns)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 12345.5, result.Rows[0]["value"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExecutor_Execute_ByteColumnsBecomeStrings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT region FROM online_retail`).
		WillReturnRows(sqlmock.NewRows([]string{"region"}).AddRow([]byte("华东")))

	executor := NewPostgresExecutor(db)
	result, err := executor.Execute(context.Background(), "SELECT region FROM online_retail")
	require.NoError(t, err)
	assert.Equal(t, "华东", result.Rows[0]["region"])
}

// ==========================
// Error Classification Tests
// ==========================

func TestPostgresExecutor_Execute_ErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		driverErr error
		wantKind  ErrorKind
		wantIdent string
	}{
		{
			name:      "undefined table sqlstate",
			driverErr: &pq.Error{Code: "42P01", Message: `relation "transactions" does not exist`},
			wantKind:  KindSchema,
			wantIdent: "transactions",
		},
		{
			name:      "undefined column sqlstate",
			driverErr: &pq.Error{Code: "42703", Message: `column "revenue" does not exist`},
			wantKind:  KindSchema,
			wantIdent: "revenue",
		},
		{
			name:      "plain error with relation message",
			driverErr: errors.New(`pq: relation "transactions" does not exist`),
			wantKind:  KindSchema,
			wantIdent: "transactions",
		},
		{
			name:      "other sqlstate is an execution error",
			driverErr: &pq.Error{Code: "53300", Message: "too many connections"},
			wantKind:  KindExecution,
		},
		{
			name:      "opaque error is an execution error",
			driverErr: errors.New("connection reset"),
			wantKind:  KindExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(`SELECT`).WillReturnError(tt.driverErr)

			executor := NewPostgresExecutor(db)
			_, err = executor.Execute(context.Background(), "SELECT 1")
			require.Error(t, err)

			var execErr *ExecError
			require.True(t, errors.As(err, &execErr))
			assert.Equal(t, tt.wantKind, execErr.Kind)
			assert.Equal(t, tt.wantIdent, execErr.Ident)
		})
	}
}

func TestPostgresExecutor_Execute_EmptyResultIsDataError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows([]string{"value"}))

	executor := NewPostgresExecutor(db)
	_, err = executor.Execute(context.Background(), "SELECT value FROM online_retail")
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, KindData, execErr.Kind)
}

func TestPostgresExecutor_Execute_CanceledContextIsTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(context.DeadlineExceeded)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := NewPostgresExecutor(db)
	_, err = executor.Execute(ctx, "SELECT 1")
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, KindTimeout, execErr.Kind)
}

// ==========================
// Routing Tests
// ==========================

type recordingExecutor struct {
	queries []string
}

func (r *recordingExecutor) Execute(_ context.Context, query string) (*Result, error) {
	r.queries = append(r.queries, query)
	return &Result{Columns: []string{"v"}, Rows: []map[string]interface{}{{"v": 1.0}}}, nil
}

func TestRoutingExecutor(t *testing.T) {
	sqlExec := &recordingExecutor{}
	searchExec := &recordingExecutor{}
	router := NewRoutingExecutor(sqlExec, searchExec)

	_, err := router.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	_, err = router.Execute(context.Background(), `{"index":"sales","size":10}`)
	require.NoError(t, err)

	assert.Len(t, sqlExec.queries, 1)
	assert.Len(t, searchExec.queries, 1)
}
