package query

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeholder-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// createSearchClient builds a client whose transport answers every request
// with the given canned response.
func createSearchClient(t *testing.T, status int, body string) *elasticsearch.Client {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://search.test:9200"},
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Header: http.Header{
					"X-Elastic-Product": []string{"Elasticsearch"},
					"Content-Type":      []string{"application/json"},
				},
				Body: io.NopCloser(strings.NewReader(body)),
			}, nil
		}),
	})
	require.NoError(t, err)
	return client
}

func searchEnvelope() string {
	plan := &Plan{
		Driver: DriverElasticsearch,
		Intent: models.IntentListing,
		Table:  "sales_docs",
		Limit:  5,
	}
	return plan.Render()
}

// ==========================
// Execution Tests
// ==========================

func TestElasticsearchExecutor_Execute_Hits(t *testing.T) {
	body := `{"hits":{"hits":[
		{"_source":{"region":"华东","value":42.5}},
		{"_source":{"region":"华南","value":17.0}}
	]}}`
	executor := NewElasticsearchExecutor(createSearchClient(t, http.StatusOK, body))

	result, err := executor.Execute(context.Background(), searchEnvelope())
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "华东", result.Rows[0]["region"])
	assert.Contains(t, result.Columns, "region")
	assert.Contains(t, result.Columns, "value")
}

// ==========================
// Error Classification Tests
// ==========================

func TestElasticsearchExecutor_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
	}{
		{
			name:     "missing index is a schema error",
			status:   http.StatusNotFound,
			body:     `{"error":{"type":"index_not_found_exception","reason":"no such index [sales_docs]"}}`,
			wantKind: KindSchema,
		},
		{
			name:     "server failure is an execution error",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"type":"search_phase_execution_exception"}}`,
			wantKind: KindExecution,
		},
		{
			name:     "no hits is a data error",
			status:   http.StatusOK,
			body:     `{"hits":{"hits":[]}}`,
			wantKind: KindData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewElasticsearchExecutor(createSearchClient(t, tt.status, tt.body))
			_, err := executor.Execute(context.Background(), searchEnvelope())
			require.Error(t, err)

			var execErr *ExecError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, tt.wantKind, execErr.Kind)
		})
	}
}

func TestElasticsearchExecutor_SchemaErrorCarriesIndexIdent(t *testing.T) {
	body := `{"error":{"type":"index_not_found_exception","reason":"no such index [sales_docs]"}}`
	executor := NewElasticsearchExecutor(createSearchClient(t, http.StatusNotFound, body))

	_, err := executor.Execute(context.Background(), searchEnvelope())
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "sales_docs", execErr.Ident, "the rejected index feeds the agent's correction loop")
}

func TestElasticsearchExecutor_InvalidEnvelopeIsExecutionError(t *testing.T) {
	executor := NewElasticsearchExecutor(createSearchClient(t, http.StatusOK, `{}`))

	_, err := executor.Execute(context.Background(), "SELECT 1")
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindExecution, execErr.Kind)
}

func TestElasticsearchExecutor_CanceledContextIsTimeout(t *testing.T) {
	executor := NewElasticsearchExecutor(createSearchClient(t, http.StatusOK, `{"hits":{"hits":[]}}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, searchEnvelope())
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindTimeout, execErr.Kind)
}
