// internal/parser/parser.go
package parser

import (
	"fmt"
	"strings"

	commonerrors "placeholder-engine/internal/common/errors"
	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/models"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"

	// DefaultMaxNestingDepth bounds composite recursion.
	DefaultMaxNestingDepth = 5
)

// Parser converts raw markup text into ordered PlaceholderSpec sequences.
// One malformed token never aborts the document: it becomes an error stub
// and scanning continues after it.
type Parser struct {
	maxDepth int
	logger   logger.Logger
}

func New(maxDepth int, log logger.Logger) *Parser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxNestingDepth
	}
	return &Parser{
		maxDepth: maxDepth,
		logger:   log.WithFields(map[string]interface{}{"component": "parser"}),
	}
}

// Extract parses every placeholder token in text, in document order.
func (p *Parser) Extract(text string) []*models.PlaceholderSpec {
	var specs []*models.PlaceholderSpec

	offset := 0
	for {
		rel := strings.Index(text[offset:], openDelim)
		if rel < 0 {
			break
		}
		start := offset + rel

		end, ok := matchClose(text, start)
		if !ok {
			stub := errorStub(text[start:], start, commonerrors.NewParseError(text[start:], "unterminated placeholder"))
			specs = append(specs, stub)
			p.logger.Warn("unterminated placeholder token", map[string]interface{}{
				"position": start,
			})
			break
		}

		raw := text[start:end]
		spec := p.parseToken(raw, start, 1)
		specs = append(specs, spec)
		offset = end
	}

	Validate(specs)
	return specs
}

// matchClose finds the byte offset just past the `}}` matching the `{{`
// at start, tracking nesting depth.
func matchClose(text string, start int) (int, bool) {
	depth := 0
	i := start
	for i < len(text)-1 {
		switch {
		case text[i] == '{' && text[i+1] == '{':
			depth++
			i += 2
		case text[i] == '}' && text[i+1] == '}':
			depth--
			i += 2
			if depth == 0 {
				return i, true
			}
		default:
			i++
		}
	}
	return 0, false
}

// parseToken parses one raw token (including delimiters) at the given
// nesting depth. Errors are attached to a stub spec rather than returned.
func (p *Parser) parseToken(raw string, pos, depth int) *models.PlaceholderSpec {
	if depth > p.maxDepth {
		return errorStub(raw, pos, commonerrors.NewNestingTooDeepError(depth, p.maxDepth))
	}

	inner := raw[len(openDelim) : len(raw)-len(closeDelim)]

	segments := splitTopLevel(inner, '|')
	head := segments[0]

	typeToken, name, ok := splitTypeName(head)
	if !ok {
		return errorStub(raw, pos, commonerrors.NewParseError(raw, "missing type separator"))
	}

	placeholderType, known := models.ParsePlaceholderType(typeToken)
	if !known {
		return errorStub(raw, pos, commonerrors.NewUnknownTypeError(typeToken))
	}

	spec := &models.PlaceholderSpec{
		RawText:  raw,
		Type:     placeholderType,
		Name:     strings.TrimSpace(name),
		Position: pos,
	}

	// Nested tokens in the NAME region make this a composite; children are
	// parsed (and therefore resolved) before the enclosing spec.
	if strings.Contains(name, openDelim) {
		children, childErr := p.parseChildren(name, pos, depth)
		spec.Children = children
		if childErr != nil {
			spec.HasError = true
			spec.ParseError = childErr.Error()
		}
		for _, c := range children {
			if c.HasError {
				spec.HasError = true
				if spec.ParseError == "" {
					spec.ParseError = c.ParseError
				}
			}
		}
	}

	if len(spec.Children) == 0 && spec.Name == "" {
		return errorStub(raw, pos, commonerrors.NewParseError(raw, "empty placeholder name"))
	}

	params, parseErr := parseParams(segments[1:])
	if parseErr != nil {
		return errorStub(raw, pos, parseErr)
	}
	if len(params) > 0 {
		spec.Parameters = params
	}

	if cond, ok := conditionParam(params); ok {
		spec.Condition = cond
		if _, err := ParseCondition(cond); err != nil {
			return errorStub(raw, pos, commonerrors.NewParseError(raw, fmt.Sprintf("invalid condition: %v", err)))
		}
	}

	spec.Kind = classify(spec)
	spec.ContentHash = models.ComputeContentHash(string(spec.Type), spec.Name, params)
	return spec
}

// parseChildren extracts and parses the nested tokens inside a composite's
// NAME region.
func (p *Parser) parseChildren(name string, parentPos, depth int) ([]*models.PlaceholderSpec, *commonerrors.StandardError) {
	var children []*models.PlaceholderSpec

	offset := 0
	for {
		rel := strings.Index(name[offset:], openDelim)
		if rel < 0 {
			break
		}
		start := offset + rel
		end, ok := matchClose(name, start)
		if !ok {
			return children, commonerrors.NewParseError(name, "unterminated nested placeholder")
		}
		child := p.parseToken(name[start:end], parentPos+start, depth+1)
		children = append(children, child)
		offset = end
	}

	return children, nil
}

// splitTypeName splits the head segment at the first top-level type
// separator. The full-width colon is the canonical separator; ASCII ':'
// is accepted as an alias.
func splitTypeName(head string) (typeToken, name string, ok bool) {
	depth := 0
	for i := 0; i < len(head); i++ {
		switch {
		case i+1 < len(head) && head[i] == '{' && head[i+1] == '{':
			depth++
			i++
		case i+1 < len(head) && head[i] == '}' && head[i+1] == '}':
			depth--
			i++
		case depth == 0:
			if strings.HasPrefix(head[i:], "：") {
				return head[:i], head[i+len("："):], true
			}
			if head[i] == ':' {
				return head[:i], head[i+1:], true
			}
		}
	}
	return "", "", false
}

// splitTopLevel splits s on sep occurrences outside nested {{ }} pairs.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch {
		case i+1 < len(s) && s[i] == '{' && s[i+1] == '{':
			depth++
			i++
		case i+1 < len(s) && s[i] == '}' && s[i+1] == '}':
			depth--
			i++
		case depth == 0 && s[i] == sep:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	parts = append(parts, s[last:])
	return parts
}

// parseParams parses KEY=VALUE segments. A repeated key is a validation
// error per the grammar.
func parseParams(segments []string) (map[string]string, *commonerrors.StandardError) {
	if len(segments) == 0 {
		return nil, nil
	}

	params := make(map[string]string, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		eq := strings.Index(seg, "=")
		if eq <= 0 {
			return nil, commonerrors.NewParseError(seg, "parameter must be KEY=VALUE")
		}
		key := strings.TrimSpace(seg[:eq])
		value := strings.TrimSpace(seg[eq+1:])
		if _, dup := params[key]; dup {
			return nil, commonerrors.NewDuplicateParamError(key)
		}
		params[key] = value
	}
	return params, nil
}

// conditionParam returns the conditional expression parameter, if present.
func conditionParam(params map[string]string) (string, bool) {
	if v, ok := params["条件"]; ok {
		return v, true
	}
	if v, ok := params["cond"]; ok {
		return v, true
	}
	return "", false
}

// classify selects the syntax kind, most specific first.
func classify(spec *models.PlaceholderSpec) models.SyntaxKind {
	switch {
	case len(spec.Children) > 0:
		return models.SyntaxComposite
	case spec.Condition != "":
		return models.SyntaxConditional
	case len(spec.Parameters) > 0:
		return models.SyntaxParameterized
	default:
		return models.SyntaxBasic
	}
}

func errorStub(raw string, pos int, stdErr *commonerrors.StandardError) *models.PlaceholderSpec {
	return &models.PlaceholderSpec{
		RawText:    raw,
		Kind:       models.SyntaxBasic,
		Position:   pos,
		HasError:   true,
		ParseError: stdErr.Error(),
	}
}
