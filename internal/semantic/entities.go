// internal/semantic/entities.go
package semantic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"placeholder-engine/internal/models"
)

// Entity recognition is deterministic pattern matching, not NLP: the same
// input always yields the same entities, which keeps resolution reproducible.

var (
	monthPattern   = regexp.MustCompile(`(20\d{2})[-/年](0?[1-9]|1[0-2])月?`)
	quarterPattern = regexp.MustCompile(`(20\d{2})年?第?\s*[Q季]?([1-4])季?度?|[Qq]([1-4])[\s-]*(20\d{2})`)
	yearPattern    = regexp.MustCompile(`(20\d{2})年?`)
)

// knownLocations is the location cue list, Chinese regions first since the
// markup grammar originates from Chinese report templates.
var knownLocations = []string{
	"华东", "华北", "华南", "华中", "西南", "西北", "东北",
	"北京", "上海", "广州", "深圳", "杭州", "成都", "武汉",
	"east", "west", "north", "south", "central",
}

// knownMetrics is the metric cue vocabulary used when the NAME field is not
// itself a single metric term.
var knownMetrics = []string{
	"销售额", "销量", "利润", "收入", "成本", "订单量", "客户数", "毛利率", "增长率",
	"revenue", "sales", "profit", "income", "cost", "orders", "customers", "amount",
}

// ExtractEntities pulls time, location and metric entities out of the
// placeholder NAME plus its immediate textual neighborhood.
func ExtractEntities(name, neighborhood string) []models.Entity {
	var entities []models.Entity
	combined := name + " " + neighborhood

	if value, text, ok := extractTime(combined); ok {
		entities = append(entities, models.Entity{Kind: models.EntityTime, Text: text, Value: value})
	}

	for _, loc := range knownLocations {
		if strings.Contains(combined, loc) {
			entities = append(entities, models.Entity{Kind: models.EntityLocation, Text: loc, Value: loc})
			break
		}
	}

	if metric, ok := extractMetric(name); ok {
		entities = append(entities, models.Entity{Kind: models.EntityMetric, Text: metric, Value: metric})
	}

	return entities
}

// extractTime returns the normalized time range and the matched text.
// Month granularity wins over quarter, quarter over bare year.
func extractTime(text string) (value, matched string, ok bool) {
	if m := monthPattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-%02d", m[1], month), m[0], true
	}
	if m := quarterPattern.FindStringSubmatch(text); m != nil {
		year, q := m[1], m[2]
		if year == "" {
			year, q = m[4], m[3]
		}
		if year != "" && q != "" {
			return fmt.Sprintf("%s-Q%s", year, q), m[0], true
		}
	}
	if m := yearPattern.FindStringSubmatch(text); m != nil {
		return m[1], m[0], true
	}
	return "", "", false
}

// extractMetric treats the whole NAME as the metric when it matches the
// vocabulary, otherwise looks for a known metric term inside it.
func extractMetric(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}
	for _, metric := range knownMetrics {
		if strings.EqualFold(trimmed, metric) {
			return metric, true
		}
	}
	for _, metric := range knownMetrics {
		if strings.Contains(strings.ToLower(trimmed), strings.ToLower(metric)) {
			return metric, true
		}
	}
	// NAME without time or location content is itself the metric term.
	stripped := monthPattern.ReplaceAllString(trimmed, "")
	stripped = yearPattern.ReplaceAllString(stripped, "")
	for _, loc := range knownLocations {
		stripped = strings.ReplaceAll(stripped, loc, "")
	}
	stripped = strings.TrimSpace(stripped)
	if stripped != "" {
		return stripped, true
	}
	return "", false
}
