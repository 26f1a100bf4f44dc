// internal/engine/engine.go
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"placeholder-engine/internal/cache"
	"placeholder-engine/internal/common/config"
	commonerrors "placeholder-engine/internal/common/errors"
	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/common/observability"
	"placeholder-engine/internal/models"
	"placeholder-engine/internal/parser"
	"placeholder-engine/internal/query"
	"placeholder-engine/internal/relevance"
	"placeholder-engine/internal/schema"
	"placeholder-engine/internal/semantic"
	"placeholder-engine/internal/weights"
)

// Request is one document-processing job: the template text plus the
// contexts and data source the placeholders resolve against.
type Request struct {
	Text         string
	Document     *models.DocumentContext
	Business     *models.BusinessContext
	DataSourceID string
	Driver       string
}

// Engine orchestrates the full pipeline for a document: parse, fan out
// semantic and context analysis per placeholder, calculate weights, drive
// the query agent, and reassemble results in document order.
type Engine struct {
	cfg       config.EngineConfig
	parser    *parser.Parser
	semantic  *semantic.Analyzer
	relevance *relevance.Engine
	weights   *weights.Calculator
	agent     *query.Agent
	schemas   schema.Provider
	cache     *cache.ResultCache
	obs       *observability.Observability
	logger    logger.Logger
}

// Options carries the collaborators the engine composes. Cache and
// observability are optional.
type Options struct {
	Config    config.EngineConfig
	Weights   config.WeightsConfig
	Store     *weights.Store
	Drafter   query.Drafter
	Executor  query.Executor
	Schemas   schema.Provider
	Cache     *cache.ResultCache
	Obs       *observability.Observability
	Logger    logger.Logger
}

func New(opts Options) (*Engine, error) {
	calc, err := weights.NewCalculator(opts.Weights, opts.Store, opts.Config.EnableDynamicWeights, opts.Config.EnableLearning, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       opts.Config,
		parser:    parser.New(opts.Config.MaxNestingDepth, opts.Logger),
		semantic:  semantic.New(opts.Config.MinIntentConfidence, opts.Logger),
		relevance: relevance.New(opts.Logger),
		weights:   calc,
		agent:     query.NewAgent(opts.Drafter, opts.Executor, opts.Config.MaxRetryAttempts, opts.Logger),
		schemas:   opts.Schemas,
		cache:     opts.Cache,
		obs:       opts.Obs,
		logger:    opts.Logger.WithFields(map[string]interface{}{"component": "engine"}),
	}, nil
}

// stageClock accumulates per-stage wall time across concurrent pipelines.
type stageClock struct {
	mu     sync.Mutex
	stages models.StageTimings
}

// recordStage feeds one stage measurement to both the report clock and
// the metrics pipeline.
func (e *Engine) recordStage(ctx context.Context, clock *stageClock, stage string, d time.Duration) {
	clock.add(stage, d)
	if e.obs != nil {
		e.obs.RecordStageDuration(ctx, stage, d)
	}
}

func (s *stageClock) add(stage string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch stage {
	case "parse":
		s.stages.Parse += d
	case "semantic":
		s.stages.Semantic += d
	case "context":
		s.stages.Context += d
	case "weight":
		s.stages.Weight += d
	case "query":
		s.stages.Query += d
	}
}

// Process resolves every placeholder in the document text. The returned
// result always lists placeholders in document order, whatever order the
// workers finished in. A document deadline marks the result partial rather
// than failing it.
func (e *Engine) Process(ctx context.Context, req *Request) (*models.ProcessingResult, error) {
	started := time.Now()
	runID := uuid.New().String()
	log := e.logger.WithFields(map[string]interface{}{"runId": runID})

	if e.cfg.DocumentTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.DocumentTimeoutSeconds)*time.Second)
		defer cancel()
	}

	clock := &stageClock{}

	parseStart := time.Now()
	specs := e.parser.Extract(req.Text)
	e.recordStage(ctx, clock, "parse", time.Since(parseStart))

	catalog, err := e.schemas.Catalog(ctx, req.DataSourceID)
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError(err)
	}

	log.Info("processing document", map[string]interface{}{
		"placeholders": len(specs),
		"dataSource":   req.DataSourceID,
	})

	results := make([]models.ResolvedPlaceholder, len(specs))

	maxWorkers := e.cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if !e.cfg.ParallelProcessing {
		maxWorkers = 1
	}

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, spec *models.PlaceholderSpec) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.resolveOne(ctx, req, spec, catalog, clock)
		}(i, spec)
	}
	wg.Wait()

	finished := time.Now()
	result := &models.ProcessingResult{
		RunID:        runID,
		Placeholders: results,
		Partial:      ctx.Err() != nil,
		StartedAt:    started.UTC(),
		FinishedAt:   finished.UTC(),
	}
	result.Report = e.buildReport(results, clock, finished.Sub(started))
	result.QualityScore = qualityScore(results)

	log.Info("document processed", map[string]interface{}{
		"succeeded":    result.Report.Succeeded,
		"failed":       result.Report.Failed,
		"parseErrors":  result.Report.ParseErrors,
		"cacheHits":    result.Report.CacheHits,
		"qualityScore": result.QualityScore,
		"partial":      result.Partial,
	})
	return result, nil
}

// resolveOne runs the per-placeholder pipeline under the per-placeholder
// deadline.
func (e *Engine) resolveOne(ctx context.Context, req *Request, spec *models.PlaceholderSpec, catalog *schema.Catalog, clock *stageClock) models.ResolvedPlaceholder {
	start := time.Now()
	out := models.ResolvedPlaceholder{Spec: spec}
	defer func() {
		out.Duration = time.Since(start)
		if e.obs != nil {
			e.obs.RecordPlaceholderProcessed(ctx, string(out.Status))
		}
	}()

	if spec.HasError {
		// Parse-error stubs are reported, never resolved; a malformed token
		// must not block its well-formed neighbors.
		out.Status = models.StatusSkipped
		out.Error = spec.ParseError
		out.ErrorCode = string(commonerrors.ErrCodeParseError)
		return out
	}

	docCtx := ctx
	if e.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	if spec.Kind == models.SyntaxConditional {
		keep, err := e.evaluateCondition(spec, req)
		if err != nil {
			out.Status = models.StatusFailed
			out.Error = err.Error()
			out.ErrorCode = string(commonerrors.ErrCodeParseError)
			return out
		}
		if !keep {
			out.Status = models.StatusSkipped
			return out
		}
	}

	if spec.Kind == models.SyntaxComposite {
		return e.resolveComposite(ctx, req, spec, catalog, clock, out)
	}

	sem, rel := e.analyze(ctx, req, spec, clock)
	out.Semantic, out.Context = sem, rel

	weightStart := time.Now()
	key := weights.Key{DocumentType: documentType(req), PlaceholderType: spec.Type}
	out.Weight = e.weights.Calculate(sem, rel, key)
	e.recordStage(ctx, clock, "weight", time.Since(weightStart))

	queryStart := time.Now()
	value, fromCache, resolveErr := e.resolveValue(ctx, req, spec, sem, catalog, &out)
	e.recordStage(ctx, clock, "query", time.Since(queryStart))

	out.FromCache = fromCache
	if e.obs != nil && e.cache != nil {
		e.obs.RecordCacheLookup(ctx, fromCache)
	}

	if resolveErr != nil {
		// A deadline hit is an orchestration failure, whatever error the
		// query layer surfaced when the context was cut from under it.
		if ctx.Err() != nil {
			scope := "placeholder"
			if docCtx.Err() != nil {
				scope = "document"
			}
			resolveErr = commonerrors.NewOrchestrationTimeoutError(scope)
		}
		out.Status = models.StatusFailed
		out.Error = resolveErr.Error()
		if std, ok := resolveErr.(*commonerrors.StandardError); ok {
			out.ErrorCode = string(std.Code)
		}
		e.weights.RecordFeedback(key, out.Weight, false)
		return out
	}

	out.Status = models.StatusSucceeded
	out.Value = value
	e.weights.RecordFeedback(key, out.Weight, true)
	return out
}

// analyze fans out semantic and context analysis for one placeholder and
// joins the results. The two stages share no state, so they always run
// concurrently.
func (e *Engine) analyze(ctx context.Context, req *Request, spec *models.PlaceholderSpec, clock *stageClock) (*models.SemanticAnalysis, *models.ContextAnalysisResult) {
	var (
		sem *models.SemanticAnalysis
		rel *models.ContextAnalysisResult
		wg  sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		if e.cfg.EnableSemanticAnalysis {
			sem = e.semantic.Analyze(spec, req.Document)
		} else {
			sem = baselineSemantic(spec)
		}
		e.recordStage(ctx, clock, "semantic", time.Since(start))
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		if e.cfg.EnableContextAnalysis {
			rel = e.relevance.Analyze(spec, req.Document, req.Business)
		} else {
			rel = neutralContext()
		}
		e.recordStage(ctx, clock, "context", time.Since(start))
	}()
	wg.Wait()

	return sem, rel
}

// resolveValue drives the query agent, deduplicating through the result
// cache when one is configured. Concurrent placeholders with the same
// content hash coalesce to a single agent session.
func (e *Engine) resolveValue(ctx context.Context, req *Request, spec *models.PlaceholderSpec, sem *models.SemanticAnalysis, catalog *schema.Catalog, out *models.ResolvedPlaceholder) (*models.ResolvedValue, bool, error) {
	run := func(ctx context.Context) (*models.ResolvedValue, error) {
		res := e.agent.Resolve(ctx, &query.Request{
			Spec:     spec,
			Semantic: sem,
			Catalog:  catalog,
			Business: req.Business,
			Driver:   req.Driver,
		})
		out.Attempts = res.Attempts
		if e.obs != nil {
			for _, attempt := range res.Attempts {
				e.obs.RecordQueryAttempt(ctx, string(attempt.Outcome))
			}
		}
		if res.State != query.StateSucceeded {
			return nil, res.Err
		}
		return res.Value, nil
	}

	if e.cache == nil || !e.cfg.CacheEnabled {
		value, err := run(ctx)
		return value, false, err
	}
	return e.cache.GetOrResolve(ctx, spec.ContentHash, run)
}

// resolveComposite resolves each child through the normal pipeline and
// aggregates the child values into one row set. The composite succeeds
// only when every child does.
func (e *Engine) resolveComposite(ctx context.Context, req *Request, spec *models.PlaceholderSpec, catalog *schema.Catalog, clock *stageClock, out models.ResolvedPlaceholder) models.ResolvedPlaceholder {
	rows := make([]map[string]interface{}, 0, len(spec.Children))
	out.Status = models.StatusSucceeded

	var weightSum float64
	var weighted int
	for _, child := range spec.Children {
		childResult := e.resolveOne(ctx, req, child, catalog, clock)
		row := map[string]interface{}{
			"name":   child.Name,
			"status": string(childResult.Status),
		}
		if childResult.Value != nil {
			if childResult.Value.Scalar != nil {
				row["value"] = childResult.Value.Scalar
			} else {
				row["value"] = childResult.Value.Rows
			}
		}
		rows = append(rows, row)

		if childResult.Weight != nil {
			weightSum += childResult.Weight.FinalWeight
			weighted++
		}
		if childResult.Status == models.StatusFailed {
			out.Status = models.StatusFailed
			out.Error = childResult.Error
			out.ErrorCode = childResult.ErrorCode
		}
	}

	// The composite carries the mean of its children's weights so the
	// document quality score covers it like any other placeholder.
	if weighted > 0 {
		out.Weight = &models.WeightBreakdown{FinalWeight: weightSum / float64(weighted)}
	}

	if out.Status == models.StatusSucceeded {
		out.Value = &models.ResolvedValue{Rows: rows}
	}
	return out
}

// evaluateCondition decides whether a conditional placeholder applies.
// Variables come from the placeholder's own parameters overlaid on the
// document metadata.
func (e *Engine) evaluateCondition(spec *models.PlaceholderSpec, req *Request) (bool, error) {
	expr, err := parser.ParseCondition(spec.Condition)
	if err != nil {
		return false, err
	}

	vars := map[string]string{}
	if req.Document != nil {
		vars["documentType"] = req.Document.DocumentType
		vars["domain"] = req.Document.Domain
		vars["language"] = req.Document.Language
	}
	if req.Business != nil {
		vars["businessType"] = req.Business.BusinessType
	}
	for k, v := range spec.Parameters {
		vars[k] = v
	}
	return expr.Evaluate(vars)
}

// baselineSemantic is the degraded analysis used when semantic analysis is
// switched off: the declared type maps straight to its intent, explicit
// parameters pass through, nothing is inferred.
func baselineSemantic(spec *models.PlaceholderSpec) *models.SemanticAnalysis {
	params := make(map[string]models.InferredParameter, len(spec.Parameters))
	for k, v := range spec.Parameters {
		params[k] = models.InferredParameter{Value: v, Provenance: models.ProvenanceExplicit}
	}
	return &models.SemanticAnalysis{
		Intent:     models.Intent(spec.Type),
		Confidence: 0.5,
		Parameters: params,
	}
}

// neutralContext is the all-scopes-missing result: every score is the
// neutral 0.5 so disabled context analysis neither boosts nor punishes.
func neutralContext() *models.ContextAnalysisResult {
	neutral := func(scope models.Scope) models.ScopeScore {
		return models.ScopeScore{Scope: scope, Score: 0.5, Rationale: "context analysis disabled"}
	}
	return &models.ContextAnalysisResult{
		Paragraph: neutral(models.ScopeParagraph),
		Section:   neutral(models.ScopeSection),
		Document:  neutral(models.ScopeDocument),
		Business:  neutral(models.ScopeBusiness),
	}
}

func documentType(req *Request) string {
	if req.Document != nil {
		return req.Document.DocumentType
	}
	return ""
}

func (e *Engine) buildReport(results []models.ResolvedPlaceholder, clock *stageClock, total time.Duration) models.PerformanceReport {
	report := models.PerformanceReport{
		TotalDuration: total,
		Stages:        clock.stages,
	}
	for _, r := range results {
		switch r.Status {
		case models.StatusSucceeded:
			report.Succeeded++
			if r.FromCache {
				report.CacheHits++
			} else {
				report.CacheMisses++
			}
		case models.StatusFailed:
			report.Failed++
			report.CacheMisses++
		case models.StatusSkipped:
			if r.Spec != nil && r.Spec.HasError {
				report.ParseErrors++
			}
		}
	}
	return report
}

// qualityScore is the weight-weighted success ratio over every placeholder
// that reached resolution. Skipped placeholders are excluded; a document
// with nothing to resolve scores zero.
func qualityScore(results []models.ResolvedPlaceholder) float64 {
	var total, succeeded float64
	for _, r := range results {
		if r.Status == models.StatusSkipped {
			continue
		}
		w := 1.0
		if r.Weight != nil {
			w = r.Weight.FinalWeight
			if w <= 0 {
				w = 0.01
			}
		}
		total += w
		if r.Status == models.StatusSucceeded {
			succeeded += w
		}
	}
	if total == 0 {
		return 0
	}
	return succeeded / total
}
