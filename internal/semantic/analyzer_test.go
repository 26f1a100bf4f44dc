package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestAnalyzer(t *testing.T) *Analyzer {
	return New(0.3, logger.NewTestLogger(t))
}

func createTestDocument() *models.DocumentContext {
	return &models.DocumentContext{
		DocumentType: "monthly sales report",
		Domain:       "sales",
		Language:     "zh",
		Sections: []models.Section{
			{Index: 0, Heading: "2024年1月销售概况", Level: 1, Start: 0, End: 200, Text: "本月销售额持续增长。"},
		},
		Paragraphs: []models.Paragraph{
			{Index: 0, Text: "本月华东区域销售额持续增长。", Section: "2024年1月销售概况", Start: 0, End: 200},
		},
	}
}

// ==========================
// Intent Classification Tests
// ==========================

func TestAnalyzer_Analyze_IntentFromType(t *testing.T) {
	tests := []struct {
		specType models.PlaceholderType
		intent   models.Intent
	}{
		{models.TypeStatistic, models.IntentStatistic},
		{models.TypeTrend, models.IntentTrend},
		{models.TypeExtremum, models.IntentExtremum},
		{models.TypeListing, models.IntentListing},
		{models.TypeComparison, models.IntentComparison},
		{models.TypeForecast, models.IntentForecast},
	}

	a := createTestAnalyzer(t)
	for _, tt := range tests {
		t.Run(string(tt.specType), func(t *testing.T) {
			spec := &models.PlaceholderSpec{Type: tt.specType, Name: "x"}
			result := a.Analyze(spec, nil)
			assert.Equal(t, tt.intent, result.Intent)
			assert.GreaterOrEqual(t, result.Confidence, 0.9)
		})
	}
}

func TestAnalyzer_Analyze_Deterministic(t *testing.T) {
	a := createTestAnalyzer(t)
	spec := &models.PlaceholderSpec{Type: models.TypeStatistic, Name: "2024年1月华东销售额"}
	doc := createTestDocument()

	first := a.Analyze(spec, doc)
	second := a.Analyze(spec, doc)

	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Parameters, second.Parameters)
	assert.Equal(t, first.Entities, second.Entities)
}

// ==========================
// Parameter Inference Tests
// ==========================

func TestAnalyzer_Analyze_ExplicitParamsWin(t *testing.T) {
	a := createTestAnalyzer(t)
	spec := &models.PlaceholderSpec{
		Type:       models.TypeStatistic,
		Name:       "2024年1月销售额",
		Parameters: map[string]string{"时间范围": "2023-12"},
	}

	result := a.Analyze(spec, nil)

	param := result.Parameters["时间范围"]
	assert.Equal(t, "2023-12", param.Value, "explicit parameter must not be overwritten by inference")
	assert.Equal(t, models.ProvenanceExplicit, param.Provenance)
}

func TestAnalyzer_Analyze_InfersFromName(t *testing.T) {
	a := createTestAnalyzer(t)
	spec := &models.PlaceholderSpec{Type: models.TypeStatistic, Name: "2024年1月华东销售额"}

	result := a.Analyze(spec, nil)

	timeParam, ok := result.Parameters["时间范围"]
	require.True(t, ok)
	assert.Equal(t, "2024-01", timeParam.Value)
	assert.Equal(t, models.ProvenanceInferred, timeParam.Provenance)

	regionParam, ok := result.Parameters["区域"]
	require.True(t, ok)
	assert.Equal(t, "华东", regionParam.Value)

	metricParam, ok := result.Parameters["指标"]
	require.True(t, ok)
	assert.Equal(t, "销售额", metricParam.Value)
}

func TestAnalyzer_Analyze_TimeRangeFromSectionHeading(t *testing.T) {
	a := createTestAnalyzer(t)
	spec := &models.PlaceholderSpec{Type: models.TypeStatistic, Name: "销售额", Position: 50}

	result := a.Analyze(spec, createTestDocument())

	timeParam, ok := result.Parameters["时间范围"]
	require.True(t, ok, "time range should fall back to the nearest section heading")
	assert.Equal(t, "2024-01", timeParam.Value)
	assert.Equal(t, models.ProvenanceInferred, timeParam.Provenance)
}

// ==========================
// Entity Extraction Tests
// ==========================

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     models.EntityKind
		value    string
	}{
		{"month", "2024年1月销售额", models.EntityTime, "2024-01"},
		{"month dashed", "2024-03 revenue", models.EntityTime, "2024-03"},
		{"quarter", "2024年第2季度利润", models.EntityTime, "2024-Q2"},
		{"bare year", "2023年收入", models.EntityTime, "2023"},
		{"location", "华北订单量", models.EntityLocation, "华北"},
		{"metric", "销售额", models.EntityMetric, "销售额"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := ExtractEntities(tt.input, "")
			found := false
			for _, e := range entities {
				if e.Kind == tt.kind && e.Value == tt.value {
					found = true
				}
			}
			assert.True(t, found, "expected %s entity %q in %v", tt.kind, tt.value, entities)
		})
	}
}

func TestExtractEntities_MonthBeatsYear(t *testing.T) {
	entities := ExtractEntities("2024年1月销售额", "")
	for _, e := range entities {
		if e.Kind == models.EntityTime {
			assert.Equal(t, "2024-01", e.Value, "month granularity must win over bare year")
		}
	}
}
