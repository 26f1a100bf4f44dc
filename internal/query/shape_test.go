package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeholder-engine/internal/models"
)

func TestShapeResult_ScalarIntents(t *testing.T) {
	result := &Result{
		Columns: []string{"value"},
		Rows:    []map[string]interface{}{{"value": 1234.5}},
	}

	value, err := ShapeResult(models.IntentStatistic, result)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, value.Scalar)
	assert.Nil(t, value.Rows)
}

func TestShapeResult_ScalarFromNumericString(t *testing.T) {
	// Aggregates over numeric columns often come back as strings from the
	// driver; the envelope still has to be a scalar.
	result := &Result{
		Columns: []string{"value"},
		Rows:    []map[string]interface{}{{"value": "99.5"}},
	}

	value, err := ShapeResult(models.IntentExtremum, result)
	require.NoError(t, err)
	assert.Equal(t, 99.5, value.Scalar)
}

func TestShapeResult_ScalarIntentRejectsRowSet(t *testing.T) {
	result := &Result{
		Columns: []string{"region", "value"},
		Rows: []map[string]interface{}{
			{"region": "华东", "value": 1.0},
			{"region": "华北", "value": 2.0},
		},
	}

	_, err := ShapeResult(models.IntentStatistic, result)
	assert.Error(t, err, "a multi-row result is not a valid scalar envelope")
}

func TestShapeResult_RowsIntents(t *testing.T) {
	result := &Result{
		Columns: []string{"period", "value"},
		Rows: []map[string]interface{}{
			{"period": "2024-01", "value": 1.0},
			{"period": "2024-02", "value": 2.0},
		},
	}

	value, err := ShapeResult(models.IntentTrend, result)
	require.NoError(t, err)
	assert.Nil(t, value.Scalar)
	assert.Len(t, value.Rows, 2)
}

func TestShapeResult_ScalarIntentRejectsNonNumeric(t *testing.T) {
	result := &Result{
		Columns: []string{"value"},
		Rows:    []map[string]interface{}{{"value": "not a number"}},
	}

	_, err := ShapeResult(models.IntentStatistic, result)
	assert.Error(t, err)
}
