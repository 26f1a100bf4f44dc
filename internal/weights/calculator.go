// internal/weights/calculator.go
package weights

import (
	"math"

	"placeholder-engine/internal/common/config"
	commonerrors "placeholder-engine/internal/common/errors"
	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/models"
)

// Calculator merges the semantic confidence and the four scope scores into
// one final weight. With dynamic adjustment off it is a plain weighted
// average of the configured defaults; with it on, the defaults are nudged
// by the learning store's per-(documentType, placeholderType) correlation
// estimates. Disabling adjustment reproduces the static math exactly.
type Calculator struct {
	defaults config.WeightsConfig
	store    *Store
	dynamic  bool
	learning bool
	logger   logger.Logger
}

// NewCalculator validates the aggregation weights (must sum to 1.0) and
// fails fast otherwise.
func NewCalculator(defaults config.WeightsConfig, store *Store, dynamic, learning bool, log logger.Logger) (*Calculator, error) {
	if sum := defaults.Sum(); math.Abs(sum-1.0) > 1e-9 {
		return nil, commonerrors.NewWeightConfigInvalidError(sum)
	}
	return &Calculator{
		defaults: defaults,
		store:    store,
		dynamic:  dynamic,
		learning: learning,
		logger:   log.WithFields(map[string]interface{}{"component": "weights"}),
	}, nil
}

// Calculate produces the weight breakdown for one placeholder.
func (c *Calculator) Calculate(sem *models.SemanticAnalysis, ctx *models.ContextAnalysisResult, key Key) *models.WeightBreakdown {
	signals := map[string]float64{
		SignalParagraph: ctx.Paragraph.Score,
		SignalSection:   ctx.Section.Score,
		SignalDocument:  ctx.Document.Score,
		SignalBusiness:  ctx.Business.Score,
		SignalSemantic:  sem.Confidence,
	}

	weights := map[string]float64{
		SignalParagraph: c.defaults.Paragraph,
		SignalSection:   c.defaults.Section,
		SignalDocument:  c.defaults.Document,
		SignalBusiness:  c.defaults.Business,
		SignalSemantic:  c.defaults.Semantic,
	}

	adjusted := false
	var storeVersion int64
	if c.dynamic && c.store != nil {
		if ewma, version, ok := c.store.Snapshot(key); ok {
			adjustWeights(weights, ewma)
			adjusted = true
			storeVersion = version
		}
	}

	final := 0.0
	for sig, w := range weights {
		final += w * signals[sig]
	}
	final = clamp01(final)

	return &models.WeightBreakdown{
		ScopeScores: map[models.Scope]float64{
			models.ScopeParagraph: ctx.Paragraph.Score,
			models.ScopeSection:   ctx.Section.Score,
			models.ScopeDocument:  ctx.Document.Score,
			models.ScopeBusiness:  ctx.Business.Score,
		},
		SemanticScore: sem.Confidence,
		Weights:       weights,
		FinalWeight:   final,
		Adjusted:      adjusted,
		StoreVersion:  storeVersion,
	}
}

// RecordFeedback folds one resolution outcome into the learning store.
// No-op unless learning is enabled.
func (c *Calculator) RecordFeedback(key Key, breakdown *models.WeightBreakdown, success bool) {
	if !c.learning || c.store == nil || breakdown == nil {
		return
	}
	signals := map[string]float64{
		SignalParagraph: breakdown.ScopeScores[models.ScopeParagraph],
		SignalSection:   breakdown.ScopeScores[models.ScopeSection],
		SignalDocument:  breakdown.ScopeScores[models.ScopeDocument],
		SignalBusiness:  breakdown.ScopeScores[models.ScopeBusiness],
		SignalSemantic:  breakdown.SemanticScore,
	}
	version := c.store.Record(key, signals, success)
	c.logger.Debug("recorded weight feedback", map[string]interface{}{
		"documentType":    key.DocumentType,
		"placeholderType": key.PlaceholderType,
		"success":         success,
		"version":         version,
	})
}

// adjustWeights nudges the defaults toward the learned correlations and
// renormalizes so the sum stays 1.0.
func adjustWeights(weights map[string]float64, ewma map[string]float64) {
	total := 0.0
	for sig := range weights {
		corr, ok := ewma[sig]
		if !ok {
			corr = 0.5
		}
		weights[sig] *= 0.5 + corr
		total += weights[sig]
	}
	if total <= 0 {
		return
	}
	for sig := range weights {
		weights[sig] /= total
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
