package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeholder-engine/internal/models"
	"placeholder-engine/internal/schema"
)

// ==========================
// Test Helper Functions
// ==========================

func createRetailCatalog() *schema.Catalog {
	return schema.NewCatalog("ds-1", []schema.Table{
		{Name: "online_retail", Columns: []schema.Column{
			{Name: "invoice_date", Type: "timestamp"},
			{Name: "region", Type: "text"},
			{Name: "sales_amount", Type: "numeric"},
			{Name: "quantity", Type: "integer"},
		}},
	})
}

func createDraftRequest(intent models.Intent) *Request {
	return &Request{
		Spec: &models.PlaceholderSpec{Type: models.TypeStatistic, Name: "销售额"},
		Semantic: &models.SemanticAnalysis{
			Intent:     intent,
			Confidence: 0.9,
			Parameters: map[string]models.InferredParameter{
				"指标":   {Value: "销售额", Provenance: models.ProvenanceInferred},
				"时间范围": {Value: "2024-01", Provenance: models.ProvenanceInferred},
				"区域":   {Value: "华东", Provenance: models.ProvenanceInferred},
			},
		},
		Catalog: createRetailCatalog(),
		Driver:  DriverPostgres,
	}
}

// ==========================
// Drafting Tests
// ==========================

func TestCatalogDrafter_Draft_IdentifiersFromCatalog(t *testing.T) {
	plan, err := CatalogDrafter{}.Draft(createDraftRequest(models.IntentStatistic))
	require.NoError(t, err)

	assert.Equal(t, "online_retail", plan.Table)
	assert.Equal(t, "sales_amount", plan.Column, "metric synonym must map onto a real column")
	assert.Equal(t, "invoice_date", plan.TimeColumn)
	assert.Equal(t, "region", plan.RegionColumn)
	assert.Equal(t, "2024-01", plan.TimeRange)
	assert.Equal(t, "华东", plan.Region)
}

func TestCatalogDrafter_Draft_EmptyCatalog(t *testing.T) {
	req := createDraftRequest(models.IntentStatistic)
	req.Catalog = schema.NewCatalog("ds-1", nil)

	_, err := CatalogDrafter{}.Draft(req)
	assert.Error(t, err)
}

// ==========================
// SQL Rendering Tests
// ==========================

func TestPlan_Render_SQL(t *testing.T) {
	tests := []struct {
		name     string
		intent   models.Intent
		contains []string
	}{
		{"statistic sums", models.IntentStatistic, []string{"SELECT SUM(sales_amount)", "FROM online_retail", "WHERE"}},
		{"extremum takes max", models.IntentExtremum, []string{"SELECT MAX(sales_amount)"}},
		{"trend groups by period", models.IntentTrend, []string{"to_char(invoice_date, 'YYYY-MM')", "GROUP BY 1", "ORDER BY 1"}},
		{"comparison groups by region", models.IntentComparison, []string{"SELECT region, SUM(sales_amount)", "GROUP BY 1"}},
		{"listing selects rows", models.IntentListing, []string{"SELECT * FROM online_retail", "LIMIT 20"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := CatalogDrafter{}.Draft(createDraftRequest(tt.intent))
			require.NoError(t, err)

			rendered := plan.Render()
			for _, fragment := range tt.contains {
				assert.Contains(t, rendered, fragment)
			}
		})
	}
}

func TestPlan_Render_TimePredicateGranularity(t *testing.T) {
	tests := []struct {
		timeRange string
		want      string
	}{
		{"2024-01", `to_char(invoice_date, 'YYYY-MM') = '2024-01'`},
		{"2024-Q2", `to_char(invoice_date, 'YYYY-"Q"Q') = '2024-Q2'`},
		{"2024", `to_char(invoice_date, 'YYYY') = '2024'`},
	}

	for _, tt := range tests {
		t.Run(tt.timeRange, func(t *testing.T) {
			assert.Equal(t, tt.want, timePredicate("invoice_date", tt.timeRange))
		})
	}
}

func TestPlan_Render_EscapesLiterals(t *testing.T) {
	plan := &Plan{
		Driver: DriverPostgres, Intent: models.IntentStatistic,
		Table: "online_retail", Column: "sales_amount",
		RegionColumn: "region", Region: "O'Brien",
	}
	assert.Contains(t, plan.Render(), "''Brien")
}

// ==========================
// Search Rendering Tests
// ==========================

func TestPlan_Render_SearchEnvelope(t *testing.T) {
	req := createDraftRequest(models.IntentListing)
	req.Driver = DriverElasticsearch

	plan, err := CatalogDrafter{}.Draft(req)
	require.NoError(t, err)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(plan.Render()), &envelope))
	assert.Equal(t, "online_retail", envelope["index"])
	assert.Equal(t, float64(defaultListingLimit), envelope["size"])
	assert.NotNil(t, envelope["query"])
}

// ==========================
// Correction Tests
// ==========================

func TestPlan_RewriteIdentifier(t *testing.T) {
	cat := schema.NewCatalog("ds-1", []schema.Table{
		{Name: "online_retail", Columns: []schema.Column{
			{Name: "invoice_date", Type: "timestamp"},
			{Name: "sales_amount", Type: "numeric"},
		}},
		{Name: "orders", Columns: []schema.Column{
			{Name: "order_date", Type: "timestamp"},
			{Name: "amount", Type: "numeric"},
		}},
	})

	plan := &Plan{
		Driver: DriverPostgres, Intent: models.IntentStatistic,
		Table: "transactions", Column: "amount",
		TableHints:  []string{"transactions", "retail"},
		ColumnHints: []string{"amount", "sales"},
	}

	// Table substitution comes from the catalog, never re-proposing the
	// rejected name, and re-derives the column choices.
	replacement, ok := plan.RewriteIdentifier(cat, "transactions", map[string]bool{"transactions": true})
	require.True(t, ok)
	assert.Equal(t, "online_retail", replacement)
	assert.Equal(t, "online_retail", plan.Table)
	assert.Equal(t, "sales_amount", plan.Column)
	assert.Equal(t, "invoice_date", plan.TimeColumn)

	// Rejected column gets a different catalog column.
	replacement, ok = plan.RewriteIdentifier(cat, "sales_amount", map[string]bool{"sales_amount": true})
	require.True(t, ok)
	assert.NotEqual(t, "sales_amount", replacement)
	assert.NotEqual(t, "sales_amount", plan.Column)

	// A bad time column drops the filter instead of guessing.
	plan.TimeColumn = "created_at"
	_, ok = plan.RewriteIdentifier(cat, "created_at", nil)
	require.True(t, ok)
	assert.Empty(t, plan.TimeColumn)
}

func TestPlan_RewriteIdentifier_NoSubstitute(t *testing.T) {
	cat := schema.NewCatalog("ds-1", []schema.Table{
		{Name: "orders", Columns: []schema.Column{{Name: "amount", Type: "numeric"}}},
	})

	plan := &Plan{Table: "transactions", TableHints: []string{"transactions"}}
	_, ok := plan.RewriteIdentifier(cat, "transactions", map[string]bool{"transactions": true, "orders": true})
	assert.False(t, ok)
}
