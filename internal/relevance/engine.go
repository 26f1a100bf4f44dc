// internal/relevance/engine.go
package relevance

import (
	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/models"
)

// Engine runs the four scope analyzers for one spec. The analyzers are
// independent pure functions, so they may run in any order (or in parallel);
// Analyze simply runs them in sequence since each is microseconds of work.
type Engine struct {
	logger logger.Logger
}

func New(log logger.Logger) *Engine {
	return &Engine{
		logger: log.WithFields(map[string]interface{}{"component": "relevance"}),
	}
}

// Analyze produces the four scope scores for a spec. Missing scopes come
// back neutral, never as errors.
func (e *Engine) Analyze(spec *models.PlaceholderSpec, doc *models.DocumentContext, biz *models.BusinessContext) *models.ContextAnalysisResult {
	result := &models.ContextAnalysisResult{
		Paragraph: ScoreParagraph(spec, doc),
		Section:   ScoreSection(spec, doc),
		Document:  ScoreDocument(spec, doc),
		Business:  ScoreBusiness(spec, biz),
	}

	e.logger.Debug("context scores", map[string]interface{}{
		"hash":      spec.ContentHash,
		"paragraph": result.Paragraph.Score,
		"section":   result.Section.Score,
		"document":  result.Document.Score,
		"business":  result.Business.Score,
	})

	return result
}
