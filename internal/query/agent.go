// internal/query/agent.go
package query

import (
	"context"
	"errors"
	"time"

	commonerrors "placeholder-engine/internal/common/errors"
	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/models"
)

// State is the agent's per-placeholder state machine position.
type State string

const (
	StateDraft      State = "draft"
	StateExecuting  State = "executing"
	StateValidating State = "validating"
	StateCorrecting State = "correcting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Resolution is the terminal output of one agent session.
type Resolution struct {
	State    State
	Value    *models.ResolvedValue
	Attempts []models.QueryAttempt
	Err      *commonerrors.StandardError
}

// Agent synthesizes a query from resolved intent and the schema context,
// executes it, validates the result shape and self-corrects on schema
// errors. Two invariants are enforced mechanically, never trusted to the
// drafter: every identifier comes from the catalog, and a query rejected
// with a schema error is never resubmitted verbatim.
type Agent struct {
	drafter     Drafter
	executor    Executor
	maxAttempts int
	logger      logger.Logger
}

func NewAgent(drafter Drafter, executor Executor, maxAttempts int, log logger.Logger) *Agent {
	if drafter == nil {
		drafter = CatalogDrafter{}
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Agent{
		drafter:     drafter,
		executor:    executor,
		maxAttempts: maxAttempts,
		logger:      log.WithFields(map[string]interface{}{"component": "agent"}),
	}
}

// Resolve drives Draft→Executing→Validating→(Correcting→Executing)* until
// a terminal state. The loop is strictly sequential: every step's input is
// the previous step's outcome.
func (a *Agent) Resolve(ctx context.Context, req *Request) *Resolution {
	res := &Resolution{State: StateDraft}

	plan, err := a.drafter.Draft(req)
	if err != nil {
		res.State = StateFailed
		res.Err = commonerrors.NewQueryExecutionFailedError(err)
		return res
	}

	// Identifiers proven invalid in this session; never re-proposed.
	rejected := make(map[string]bool)

	for attemptNum := 1; attemptNum <= a.maxAttempts; attemptNum++ {
		queryText := plan.Render()
		res.State = StateExecuting

		start := time.Now()
		result, execErr := a.executor.Execute(ctx, queryText)
		attempt := models.QueryAttempt{
			Number:   attemptNum,
			Query:    queryText,
			Duration: time.Since(start),
		}

		if execErr != nil {
			var structured *ExecError
			if !errors.As(execErr, &structured) {
				structured = &ExecError{Kind: KindExecution, Err: execErr}
			}
			attempt.Error = structured.Error()

			switch structured.Kind {
			case KindSchema:
				attempt.Outcome = models.OutcomeSchemaError
				attempt.BadIdent = structured.Ident
				res.State = StateCorrecting

				rejected[structured.Ident] = true
				replacement, ok := plan.RewriteIdentifier(req.Catalog, structured.Ident, rejected)
				if !ok {
					res.Attempts = append(res.Attempts, attempt)
					res.State = StateFailed
					res.Err = commonerrors.NewSchemaMismatchError(structured.Ident, structured.Err)
					return res
				}
				attempt.FixedWith = replacement

				// The correction must change the query before re-execution.
				if plan.Render() == queryText {
					res.Attempts = append(res.Attempts, attempt)
					res.State = StateFailed
					res.Err = commonerrors.NewSchemaMismatchError(structured.Ident, structured.Err)
					return res
				}

				res.Attempts = append(res.Attempts, attempt)
				a.logger.Info("corrected schema mismatch", map[string]interface{}{
					"badIdent":  structured.Ident,
					"fixedWith": replacement,
					"attempt":   attemptNum,
				})
				continue

			case KindTimeout, KindExecution:
				attempt.Outcome = models.OutcomeExecutionError
				res.Attempts = append(res.Attempts, attempt)
				if ctx.Err() != nil {
					res.State = StateFailed
					res.Err = commonerrors.NewQueryTimeoutError()
					return res
				}
				a.logger.Warn("query execution failed, retrying", map[string]interface{}{
					"attempt": attemptNum,
					"error":   structured.Err.Error(),
				})
				continue

			default: // KindData: empty result is terminal, retrying cannot help
				attempt.Outcome = models.OutcomeDataError
				res.Attempts = append(res.Attempts, attempt)
				res.State = StateFailed
				res.Err = commonerrors.NewEmptyResultError(queryText)
				return res
			}
		}

		res.State = StateValidating
		value, shapeErr := ShapeResult(req.Semantic.Intent, result)
		if shapeErr != nil {
			attempt.Outcome = models.OutcomeShapeError
			attempt.Error = shapeErr.Error()
			res.Attempts = append(res.Attempts, attempt)

			// Shape mismatches usually mean the wrong column was picked;
			// reject it and correct from the catalog like a schema error.
			rejected[plan.Column] = true
			replacement, ok := plan.RewriteIdentifier(req.Catalog, plan.Column, rejected)
			if !ok || plan.Render() == queryText {
				res.State = StateFailed
				res.Err = commonerrors.NewResultShapeMismatchError(string(req.Semantic.Intent), shapeErr.Error())
				return res
			}
			res.State = StateCorrecting
			a.logger.Info("corrected result shape mismatch", map[string]interface{}{
				"fixedWith": replacement,
				"attempt":   attemptNum,
			})
			continue
		}

		attempt.Outcome = models.OutcomeSuccess
		res.Attempts = append(res.Attempts, attempt)
		res.State = StateSucceeded
		res.Value = value
		return res
	}

	res.State = StateFailed
	res.Err = commonerrors.NewRetryBudgetExhaustedError(len(res.Attempts))
	return res
}
