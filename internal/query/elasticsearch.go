// internal/query/elasticsearch.go
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchExecutor runs rendered search envelopes against an
// Elasticsearch data source. The rendered query is a JSON object of the
// form {"index": "...", "query": {...}, "size": N}.
type ElasticsearchExecutor struct {
	client *elasticsearch.Client
}

func NewElasticsearchExecutor(client *elasticsearch.Client) *ElasticsearchExecutor {
	return &ElasticsearchExecutor{client: client}
}

type esEnvelope struct {
	Index string          `json:"index"`
	Query json.RawMessage `json:"query"`
	Size  int             `json:"size"`
}

func (e *ElasticsearchExecutor) Execute(ctx context.Context, query string) (*Result, error) {
	var envelope esEnvelope
	if err := json.Unmarshal([]byte(query), &envelope); err != nil {
		return nil, &ExecError{Kind: KindExecution, Err: fmt.Errorf("invalid search envelope: %w", err)}
	}

	body := map[string]interface{}{"size": envelope.Size}
	if envelope.Query != nil {
		body["query"] = json.RawMessage(envelope.Query)
	}
	payload, _ := json.Marshal(body)

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(envelope.Index),
		e.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &ExecError{Kind: KindTimeout, Err: err}
		}
		return nil, &ExecError{Kind: KindExecution, Err: err}
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.IsError() {
		if strings.Contains(string(raw), "index_not_found_exception") {
			return nil, &ExecError{Kind: KindSchema, Ident: envelope.Index, Err: fmt.Errorf("index not found: %s", envelope.Index)}
		}
		return nil, &ExecError{Kind: KindExecution, Err: fmt.Errorf("search failed: %s", res.Status())}
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ExecError{Kind: KindExecution, Err: fmt.Errorf("decode search response: %w", err)}
	}

	if len(parsed.Hits.Hits) == 0 {
		return nil, &ExecError{Kind: KindData, Err: fmt.Errorf("search returned no hits")}
	}

	result := &Result{}
	seen := map[string]bool{}
	for _, hit := range parsed.Hits.Hits {
		result.Rows = append(result.Rows, hit.Source)
		for field := range hit.Source {
			if !seen[field] {
				seen[field] = true
				result.Columns = append(result.Columns, field)
			}
		}
	}
	return result, nil
}
