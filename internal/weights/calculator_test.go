package weights

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeholder-engine/internal/common/config"
	commonerrors "placeholder-engine/internal/common/errors"
	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func defaultWeights() config.WeightsConfig {
	return config.WeightsConfig{
		Paragraph: 0.25,
		Section:   0.25,
		Document:  0.20,
		Business:  0.15,
		Semantic:  0.15,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewTestLogger(t)
}

func testInputs() (*models.SemanticAnalysis, *models.ContextAnalysisResult) {
	sem := &models.SemanticAnalysis{Intent: models.IntentStatistic, Confidence: 0.9}
	ctx := &models.ContextAnalysisResult{
		Paragraph: models.ScopeScore{Scope: models.ScopeParagraph, Score: 0.8},
		Section:   models.ScopeScore{Scope: models.ScopeSection, Score: 0.6},
		Document:  models.ScopeScore{Scope: models.ScopeDocument, Score: 0.7},
		Business:  models.ScopeScore{Scope: models.ScopeBusiness, Score: 0.5},
	}
	return sem, ctx
}

// ==========================
// Configuration Tests
// ==========================

func TestNewCalculator_RejectsBadWeightSum(t *testing.T) {
	bad := config.WeightsConfig{Paragraph: 0.5, Section: 0.2, Document: 0.1, Business: 0.05, Semantic: 0.05}

	_, err := NewCalculator(bad, nil, false, false, createTestLogger(t))
	require.Error(t, err)

	stdErr, ok := err.(*commonerrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeWeightConfigInvalid, stdErr.Code)
}

func TestNewCalculator_AcceptsFloatNoise(t *testing.T) {
	// 0.1*3 + 0.7 style accumulation error must stay within tolerance.
	noisy := config.WeightsConfig{Paragraph: 0.1, Section: 0.1, Document: 0.1, Business: 0.1, Semantic: 0.6}
	_, err := NewCalculator(noisy, nil, false, false, createTestLogger(t))
	assert.NoError(t, err)
}

// ==========================
// Static Calculation Tests
// ==========================

func TestCalculator_Calculate_StaticWeightedAverage(t *testing.T) {
	calc, err := NewCalculator(defaultWeights(), nil, false, false, createTestLogger(t))
	require.NoError(t, err)

	sem, ctx := testInputs()
	breakdown := calc.Calculate(sem, ctx, Key{DocumentType: "report", PlaceholderType: models.TypeStatistic})

	want := 0.25*0.8 + 0.25*0.6 + 0.20*0.7 + 0.15*0.5 + 0.15*0.9
	assert.InDelta(t, want, breakdown.FinalWeight, 1e-9)
	assert.False(t, breakdown.Adjusted)
	assert.Equal(t, 0.9, breakdown.SemanticScore)
}

func TestCalculator_Calculate_DisabledAdjustmentIsStatic(t *testing.T) {
	store := NewStore(0.2)
	key := Key{DocumentType: "report", PlaceholderType: models.TypeStatistic}
	store.Record(key, map[string]float64{
		SignalParagraph: 0.9, SignalSection: 0.1, SignalDocument: 0.5, SignalBusiness: 0.5, SignalSemantic: 0.9,
	}, true)

	calc, err := NewCalculator(defaultWeights(), store, false, false, createTestLogger(t))
	require.NoError(t, err)

	sem, ctx := testInputs()
	breakdown := calc.Calculate(sem, ctx, key)

	want := 0.25*0.8 + 0.25*0.6 + 0.20*0.7 + 0.15*0.5 + 0.15*0.9
	assert.InDelta(t, want, breakdown.FinalWeight, 1e-9,
		"a populated store must not leak into static mode")
	assert.False(t, breakdown.Adjusted)
}

// ==========================
// Dynamic Adjustment Tests
// ==========================

func TestCalculator_Calculate_DynamicAdjustsAndRenormalizes(t *testing.T) {
	store := NewStore(0.5)
	key := Key{DocumentType: "report", PlaceholderType: models.TypeStatistic}
	// Paragraph signal strongly correlated with success.
	for i := 0; i < 5; i++ {
		store.Record(key, map[string]float64{
			SignalParagraph: 1.0, SignalSection: 0.0, SignalDocument: 0.5, SignalBusiness: 0.5, SignalSemantic: 0.5,
		}, true)
	}

	calc, err := NewCalculator(defaultWeights(), store, true, true, createTestLogger(t))
	require.NoError(t, err)

	sem, ctx := testInputs()
	breakdown := calc.Calculate(sem, ctx, key)

	assert.True(t, breakdown.Adjusted)
	assert.Greater(t, breakdown.Weights[SignalParagraph], breakdown.Weights[SignalSection],
		"the correlated signal must gain weight over the anticorrelated one")

	sum := 0.0
	for _, w := range breakdown.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "adjusted weights must stay normalized")
	assert.GreaterOrEqual(t, breakdown.FinalWeight, 0.0)
	assert.LessOrEqual(t, breakdown.FinalWeight, 1.0)
}

func TestCalculator_Calculate_EmptyStoreStaysStatic(t *testing.T) {
	store := NewStore(0.2)
	calc, err := NewCalculator(defaultWeights(), store, true, true, createTestLogger(t))
	require.NoError(t, err)

	sem, ctx := testInputs()
	breakdown := calc.Calculate(sem, ctx, Key{DocumentType: "report", PlaceholderType: models.TypeStatistic})
	assert.False(t, breakdown.Adjusted, "no recorded feedback means no adjustment")
}

// ==========================
// Learning Store Tests
// ==========================

func TestStore_RecordAndSnapshot(t *testing.T) {
	store := NewStore(0.2)
	key := Key{DocumentType: "report", PlaceholderType: models.TypeTrend}

	_, _, ok := store.Snapshot(key)
	assert.False(t, ok)

	version := store.Record(key, map[string]float64{SignalParagraph: 1.0}, true)
	assert.Equal(t, int64(1), version)

	ewma, version, ok := store.Snapshot(key)
	require.True(t, ok)
	assert.Equal(t, int64(1), version)
	// Prior 0.5 moved toward the observed 1.0 by alpha.
	assert.InDelta(t, 0.6, ewma[SignalParagraph], 1e-9)
	assert.InDelta(t, 0.5, ewma[SignalSection], 1e-9)
}

func TestStore_FailureInvertsCredit(t *testing.T) {
	store := NewStore(0.2)
	key := Key{DocumentType: "report", PlaceholderType: models.TypeTrend}

	store.Record(key, map[string]float64{SignalParagraph: 1.0}, false)

	ewma, _, ok := store.Snapshot(key)
	require.True(t, ok)
	// High signal on a failure is anticorrelation: credit 1-1.0 = 0.
	assert.InDelta(t, 0.4, ewma[SignalParagraph], 1e-9)
}

func TestStore_VersionMonotonic(t *testing.T) {
	store := NewStore(0.2)
	key := Key{DocumentType: "report", PlaceholderType: models.TypeTrend}

	var last int64
	for i := 0; i < 10; i++ {
		v := store.Record(key, map[string]float64{SignalParagraph: 0.5}, i%2 == 0)
		assert.Greater(t, v, last)
		last = v
	}
	assert.Equal(t, int64(10), store.Version(key))
}

func TestCalculator_RecordFeedback_RequiresLearning(t *testing.T) {
	store := NewStore(0.2)
	key := Key{DocumentType: "report", PlaceholderType: models.TypeStatistic}

	calc, err := NewCalculator(defaultWeights(), store, false, false, createTestLogger(t))
	require.NoError(t, err)

	sem, ctx := testInputs()
	breakdown := calc.Calculate(sem, ctx, key)
	calc.RecordFeedback(key, breakdown, true)
	assert.Equal(t, int64(0), store.Version(key), "feedback must be dropped with learning off")

	learning, err := NewCalculator(defaultWeights(), store, true, true, createTestLogger(t))
	require.NoError(t, err)
	learning.RecordFeedback(key, breakdown, true)
	assert.Equal(t, int64(1), store.Version(key))
}

func TestAdjustWeights_NeutralEwmaIsIdentity(t *testing.T) {
	weights := map[string]float64{
		SignalParagraph: 0.25, SignalSection: 0.25, SignalDocument: 0.20,
		SignalBusiness: 0.15, SignalSemantic: 0.15,
	}
	neutral := map[string]float64{}
	for _, sig := range allSignals {
		neutral[sig] = 0.5
	}

	adjustWeights(weights, neutral)

	assert.True(t, math.Abs(weights[SignalParagraph]-0.25) < 1e-9)
	assert.True(t, math.Abs(weights[SignalSemantic]-0.15) < 1e-9)
}
