// internal/relevance/scopes.go
package relevance

import (
	"fmt"
	"strings"

	"placeholder-engine/internal/models"
)

// Each scope analyzer is a pure function of its scope's text/structure:
// same spec + same scope always gives the same score. A missing scope gets
// the neutral 0.5 so one empty section never sinks a placeholder.

const neutralScore = 0.5

// specTerms collects the searchable terms of a spec: the NAME tokens plus
// parameter values (condition expressions excluded).
func specTerms(spec *models.PlaceholderSpec) []string {
	var terms []string
	if name := strings.TrimSpace(spec.Name); name != "" {
		terms = append(terms, strings.Fields(name)...)
	}
	for key, value := range spec.Parameters {
		if key == "条件" || key == "cond" {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			terms = append(terms, v)
		}
	}
	return terms
}

// overlapScore maps the fraction of spec terms present in the scope text
// onto [0.2, 1.0]; a scope that mentions none of the terms still carries a
// small baseline relevance because the placeholder was written there.
func overlapScore(terms []string, text string) float64 {
	if len(terms) == 0 {
		return neutralScore
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			hits++
		}
	}
	return 0.2 + 0.8*float64(hits)/float64(len(terms))
}

// ScoreParagraph scores relevance against the enclosing paragraph.
func ScoreParagraph(spec *models.PlaceholderSpec, doc *models.DocumentContext) models.ScopeScore {
	if doc == nil {
		return unavailable(models.ScopeParagraph)
	}
	para := doc.ParagraphAt(spec.Position)
	if para == nil || strings.TrimSpace(para.Text) == "" {
		return unavailable(models.ScopeParagraph)
	}

	terms := specTerms(spec)
	score := overlapScore(terms, para.Text)
	return models.ScopeScore{
		Scope:     models.ScopeParagraph,
		Score:     score,
		Rationale: fmt.Sprintf("term overlap with paragraph %d", para.Index),
	}
}

// ScoreSection scores relevance against the enclosing section, with the
// heading weighted in since headings name what the section is about.
func ScoreSection(spec *models.PlaceholderSpec, doc *models.DocumentContext) models.ScopeScore {
	if doc == nil {
		return unavailable(models.ScopeSection)
	}
	section := doc.SectionAt(spec.Position)
	if section == nil || (strings.TrimSpace(section.Text) == "" && strings.TrimSpace(section.Heading) == "") {
		return unavailable(models.ScopeSection)
	}

	terms := specTerms(spec)
	body := overlapScore(terms, section.Text)
	heading := overlapScore(terms, section.Heading)
	score := 0.6*heading + 0.4*body
	return models.ScopeScore{
		Scope:     models.ScopeSection,
		Score:     score,
		Rationale: fmt.Sprintf("heading %q and body overlap", section.Heading),
	}
}

// ScoreDocument scores relevance against the document-level descriptors:
// type, domain and title.
func ScoreDocument(spec *models.PlaceholderSpec, doc *models.DocumentContext) models.ScopeScore {
	if doc == nil || (doc.DocumentType == "" && doc.Domain == "" && doc.Title == "") {
		return unavailable(models.ScopeDocument)
	}

	descriptor := strings.Join([]string{doc.DocumentType, doc.Domain, doc.Title}, " ")
	terms := specTerms(spec)
	score := overlapScore(terms, descriptor)

	// Placeholder types that summarize (statistic, chart, comparison) fit
	// report-style documents better than free-form ones.
	if strings.Contains(strings.ToLower(doc.DocumentType), "report") ||
		strings.Contains(doc.DocumentType, "报告") {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return models.ScopeScore{
		Scope:     models.ScopeDocument,
		Score:     score,
		Rationale: fmt.Sprintf("document type %q, domain %q", doc.DocumentType, doc.Domain),
	}
}

// ScoreBusiness scores relevance against the caller's business rules.
func ScoreBusiness(spec *models.PlaceholderSpec, biz *models.BusinessContext) models.ScopeScore {
	if biz == nil || (biz.PrimaryDomain == "" && len(biz.Rules) == 0) {
		return unavailable(models.ScopeBusiness)
	}

	terms := specTerms(spec)
	score := neutralScore

	if biz.PrimaryDomain != "" {
		score = overlapScore(terms, biz.PrimaryDomain+" "+strings.Join(biz.Metrics, " "))
	}

	applicable := 0
	for _, rule := range biz.Rules {
		if ruleApplies(rule, spec, terms) {
			applicable++
		}
	}
	if len(biz.Rules) > 0 {
		ruleScore := float64(applicable) / float64(len(biz.Rules))
		score = 0.7*score + 0.3*ruleScore
	}

	return models.ScopeScore{
		Scope:     models.ScopeBusiness,
		Score:     score,
		Rationale: fmt.Sprintf("%d of %d business rules apply", applicable, len(biz.Rules)),
	}
}

func ruleApplies(rule models.BusinessRule, spec *models.PlaceholderSpec, terms []string) bool {
	for _, t := range rule.Applies {
		if t == string(spec.Type) {
			return true
		}
	}
	for _, kw := range rule.Keywords {
		for _, term := range terms {
			if strings.EqualFold(kw, term) || strings.Contains(term, kw) {
				return true
			}
		}
	}
	return false
}

func unavailable(scope models.Scope) models.ScopeScore {
	return models.ScopeScore{
		Scope:     scope,
		Score:     neutralScore,
		Rationale: "scope unavailable",
	}
}
