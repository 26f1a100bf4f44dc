// internal/query/shape.go
package query

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"placeholder-engine/internal/models"
)

// Each intent expects a particular result shape: a single scalar for
// statistic-like intents, a non-empty row set for listing-like ones. The
// expectation is expressed as a JSON schema over the resolved-value
// envelope and checked in the agent's Validating state.

var scalarShape = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"scalar"},
	"properties": map[string]interface{}{
		"scalar": map[string]interface{}{"type": "number"},
	},
}

var rowsShape = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"rows"},
	"properties": map[string]interface{}{
		"rows": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items":    map[string]interface{}{"type": "object"},
		},
	},
}

var intentShapes = map[models.Intent]map[string]interface{}{
	models.IntentStatistic:  scalarShape,
	models.IntentExtremum:   scalarShape,
	models.IntentTrend:      rowsShape,
	models.IntentListing:    rowsShape,
	models.IntentChart:      rowsShape,
	models.IntentComparison: rowsShape,
	models.IntentForecast:   rowsShape,
	models.IntentPeriod:     rowsShape,
	models.IntentRegion:     rowsShape,
}

// ShapeResult coerces the executor result into the value envelope for the
// intent and validates it. A mismatch is recoverable, not fatal: the agent
// rewrites the query and tries again within its budget.
func ShapeResult(intent models.Intent, result *Result) (*models.ResolvedValue, error) {
	shape, ok := intentShapes[intent]
	if !ok {
		shape = rowsShape
	}

	value := coerce(intent, result)

	envelope := map[string]interface{}{}
	if value.Scalar != nil {
		envelope["scalar"] = value.Scalar
	}
	if value.Rows != nil {
		envelope["rows"] = value.Rows
	}

	validation, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(shape),
		gojsonschema.NewGoLoader(envelope),
	)
	if err != nil {
		return nil, fmt.Errorf("shape validation failed: %w", err)
	}
	if !validation.Valid() {
		return nil, fmt.Errorf("result shape mismatch for intent %s: %s", intent, validation.Errors()[0].String())
	}

	return value, nil
}

// coerce maps the row set onto the envelope form the intent expects. A
// single-row single-column numeric result collapses to a scalar.
func coerce(intent models.Intent, result *Result) *models.ResolvedValue {
	if intent == models.IntentStatistic || intent == models.IntentExtremum {
		if len(result.Rows) == 1 {
			if scalar, ok := singleNumeric(result.Rows[0], result.Columns); ok {
				return &models.ResolvedValue{Scalar: scalar}
			}
		}
		return &models.ResolvedValue{Rows: result.Rows}
	}
	return &models.ResolvedValue{Rows: result.Rows}
}

func singleNumeric(row map[string]interface{}, columns []string) (float64, bool) {
	if len(row) != 1 {
		return 0, false
	}
	var value interface{}
	if len(columns) == 1 {
		value = row[columns[0]]
	} else {
		for _, v := range row {
			value = v
		}
	}
	return toFloat(value)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
