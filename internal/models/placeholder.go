// internal/models/placeholder.go
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// SyntaxKind identifies which grammar rule matched a placeholder token.
type SyntaxKind string

const (
	SyntaxBasic         SyntaxKind = "basic"
	SyntaxParameterized SyntaxKind = "parameterized"
	SyntaxComposite     SyntaxKind = "composite"
	SyntaxConditional   SyntaxKind = "conditional"
)

// PlaceholderType is the declared TYPE token of a placeholder.
type PlaceholderType string

const (
	TypeStatistic  PlaceholderType = "statistic"
	TypeTrend      PlaceholderType = "trend"
	TypeExtremum   PlaceholderType = "extremum"
	TypeListing    PlaceholderType = "listing"
	TypeChart      PlaceholderType = "chart"
	TypeComparison PlaceholderType = "comparison"
	TypeForecast   PlaceholderType = "forecast"
	TypePeriod     PlaceholderType = "period"
	TypeRegion     PlaceholderType = "region"
)

// placeholderTypeAliases maps the token spellings accepted by the grammar
// (Chinese and English) to the canonical type.
var placeholderTypeAliases = map[string]PlaceholderType{
	"statistic":  TypeStatistic,
	"统计":         TypeStatistic,
	"trend":      TypeTrend,
	"趋势":         TypeTrend,
	"extremum":   TypeExtremum,
	"极值":         TypeExtremum,
	"listing":    TypeListing,
	"列表":         TypeListing,
	"chart":      TypeChart,
	"图表":         TypeChart,
	"comparison": TypeComparison,
	"对比":         TypeComparison,
	"forecast":   TypeForecast,
	"预测":         TypeForecast,
	"period":     TypePeriod,
	"周期":         TypePeriod,
	"region":     TypeRegion,
	"区域":         TypeRegion,
}

// ParsePlaceholderType resolves a raw TYPE token to its canonical type.
// The second return value is false for unknown types.
func ParsePlaceholderType(raw string) (PlaceholderType, bool) {
	t, ok := placeholderTypeAliases[strings.TrimSpace(strings.ToLower(raw))]
	return t, ok
}

// PlaceholderSpec is the immutable parse result of one placeholder token.
type PlaceholderSpec struct {
	RawText     string             `json:"rawText"`
	Kind        SyntaxKind         `json:"kind"`
	Type        PlaceholderType    `json:"type"`
	Name        string             `json:"name"`
	Parameters  map[string]string  `json:"parameters,omitempty"`
	Condition   string             `json:"condition,omitempty"`
	Children    []*PlaceholderSpec `json:"children,omitempty"`
	ContentHash string             `json:"contentHash"`
	Position    int                `json:"position"` // byte offset in the source document
	HasError    bool               `json:"hasError"`
	ParseError  string             `json:"parseError,omitempty"`
}

// ComputeContentHash derives the stable dedup key for a spec: SHA-256 over
// the normalized token text (whitespace collapsed, parameter keys sorted).
func ComputeContentHash(typeToken, name string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(typeToken))
	b.WriteString("：")
	b.WriteString(strings.Join(strings.Fields(name), " "))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strings.TrimSpace(params[k]))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
