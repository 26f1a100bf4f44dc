// internal/semantic/analyzer.go
package semantic

import (
	"strings"

	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/models"
)

const (
	// Confidence for an intent taken directly from the declared TYPE.
	explicitTypeConfidence = 0.9
	// Confidence for an intent recovered from natural-language cues only.
	cueConfidence = 0.5

	paramTimeRange = "时间范围"
	paramRegion    = "区域"
	paramMetric    = "指标"
)

// intentCues maps natural-language fragments to intents, checked in order.
// Used when the declared TYPE is missing or too generic to classify alone.
var intentCues = []struct {
	cues   []string
	intent models.Intent
}{
	{[]string{"趋势", "增长", "变化", "trend", "growth"}, models.IntentTrend},
	{[]string{"最高", "最低", "峰值", "极值", "max", "min", "peak"}, models.IntentExtremum},
	{[]string{"对比", "比较", "相比", "compare", "versus", "vs"}, models.IntentComparison},
	{[]string{"预测", "预计", "forecast", "predict"}, models.IntentForecast},
	{[]string{"列表", "清单", "明细", "list", "top"}, models.IntentListing},
	{[]string{"图表", "图", "chart", "graph"}, models.IntentChart},
	{[]string{"合计", "总计", "总额", "统计", "sum", "total"}, models.IntentStatistic},
}

// typeToIntent maps each declared placeholder TYPE to its intent.
var typeToIntent = map[models.PlaceholderType]models.Intent{
	models.TypeStatistic:  models.IntentStatistic,
	models.TypeTrend:      models.IntentTrend,
	models.TypeExtremum:   models.IntentExtremum,
	models.TypeListing:    models.IntentListing,
	models.TypeChart:      models.IntentChart,
	models.TypeComparison: models.IntentComparison,
	models.TypeForecast:   models.IntentForecast,
	models.TypePeriod:     models.IntentPeriod,
	models.TypeRegion:     models.IntentRegion,
}

// Analyzer classifies placeholder intent, infers implicit parameters and
// recognizes entities.
type Analyzer struct {
	minConfidence float64
	logger        logger.Logger
}

func New(minConfidence float64, log logger.Logger) *Analyzer {
	if minConfidence <= 0 {
		minConfidence = 0.3
	}
	return &Analyzer{
		minConfidence: minConfidence,
		logger:        log.WithFields(map[string]interface{}{"component": "semantic"}),
	}
}

// Analyze produces the SemanticAnalysis for one spec. It never returns an
// error: an unclassifiable intent yields a low-confidence result that the
// weighting stage naturally discounts.
func (a *Analyzer) Analyze(spec *models.PlaceholderSpec, doc *models.DocumentContext) *models.SemanticAnalysis {
	neighborhood := a.neighborhood(spec, doc)

	intent, confidence := a.classify(spec, neighborhood)
	entities := ExtractEntities(spec.Name, neighborhood)

	params := make(map[string]models.InferredParameter, len(spec.Parameters)+3)
	for k, v := range spec.Parameters {
		params[k] = models.InferredParameter{Value: v, Provenance: models.ProvenanceExplicit}
	}
	a.inferParameters(params, entities, spec, doc)

	// Entity evidence firms up the classification a little.
	for _, e := range entities {
		if e.Kind == models.EntityMetric || e.Kind == models.EntityTime {
			confidence += 0.05
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	if confidence < a.minConfidence {
		a.logger.Debug("intent below confidence floor", map[string]interface{}{
			"name":       spec.Name,
			"confidence": confidence,
		})
	}

	return &models.SemanticAnalysis{
		Intent:     intent,
		Confidence: confidence,
		Parameters: params,
		Entities:   entities,
	}
}

// classify maps the declared TYPE to an intent, falling back to
// natural-language cues from the NAME and neighborhood.
func (a *Analyzer) classify(spec *models.PlaceholderSpec, neighborhood string) (models.Intent, float64) {
	if intent, ok := typeToIntent[spec.Type]; ok {
		return intent, explicitTypeConfidence
	}

	haystack := strings.ToLower(spec.Name + " " + neighborhood)
	for _, group := range intentCues {
		for _, cue := range group.cues {
			if strings.Contains(haystack, cue) {
				return group.intent, cueConfidence
			}
		}
	}

	return models.IntentUnknown, 0.1
}

// inferParameters fills parameters absent from the spec by pattern-matching
// against the recognized entities and the document structure.
func (a *Analyzer) inferParameters(params map[string]models.InferredParameter, entities []models.Entity, spec *models.PlaceholderSpec, doc *models.DocumentContext) {
	for _, e := range entities {
		switch e.Kind {
		case models.EntityTime:
			if _, ok := params[paramTimeRange]; !ok {
				params[paramTimeRange] = models.InferredParameter{Value: e.Value, Provenance: models.ProvenanceInferred}
			}
		case models.EntityLocation:
			if _, ok := params[paramRegion]; !ok {
				params[paramRegion] = models.InferredParameter{Value: e.Value, Provenance: models.ProvenanceInferred}
			}
		case models.EntityMetric:
			if _, ok := params[paramMetric]; !ok {
				params[paramMetric] = models.InferredParameter{Value: e.Value, Provenance: models.ProvenanceInferred}
			}
		}
	}

	// Default time range from the nearest heading when nothing closer matched.
	if _, ok := params[paramTimeRange]; !ok && doc != nil {
		if section := doc.SectionAt(spec.Position); section != nil {
			if value, _, found := extractTime(section.Heading); found {
				params[paramTimeRange] = models.InferredParameter{Value: value, Provenance: models.ProvenanceInferred}
			}
		}
	}
}

// neighborhood returns the text of the paragraph enclosing the spec.
func (a *Analyzer) neighborhood(spec *models.PlaceholderSpec, doc *models.DocumentContext) string {
	if doc == nil {
		return ""
	}
	if para := doc.ParagraphAt(spec.Position); para != nil {
		return para.Text
	}
	return ""
}
