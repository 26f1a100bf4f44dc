// internal/parser/validator.go
package parser

import (
	"fmt"

	"placeholder-engine/internal/models"
)

// Validate runs the post-parse syntax validation pass. It catches
// cross-field inconsistencies the grammar itself cannot express and marks
// offending specs in place; parse-error stubs are left untouched.
func Validate(specs []*models.PlaceholderSpec) {
	for _, spec := range specs {
		validateSpec(spec)
	}
}

func validateSpec(spec *models.PlaceholderSpec) {
	if spec.HasError {
		return
	}

	for key, value := range spec.Parameters {
		if value == "" {
			spec.HasError = true
			spec.ParseError = fmt.Sprintf("parameter %q has an empty value", key)
			return
		}
	}

	// A token may spell the condition key one way, not both.
	if _, zh := spec.Parameters["条件"]; zh {
		if _, en := spec.Parameters["cond"]; en {
			spec.HasError = true
			spec.ParseError = "condition given under both 条件 and cond"
			return
		}
	}

	for _, child := range spec.Children {
		validateSpec(child)
		if child.HasError {
			spec.HasError = true
			spec.ParseError = child.ParseError
			return
		}
	}
}
