// internal/query/builder.go
package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"placeholder-engine/internal/models"
	"placeholder-engine/internal/schema"
)

// Driver names accepted in a connection descriptor.
const (
	DriverPostgres      = "postgres"
	DriverElasticsearch = "elasticsearch"
)

const defaultListingLimit = 20

// Request carries everything the agent needs to resolve one placeholder.
type Request struct {
	Spec     *models.PlaceholderSpec
	Semantic *models.SemanticAnalysis
	Catalog  *schema.Catalog
	Business *models.BusinessContext
	Driver   string
}

// Plan is a structured query: identifiers, filters and the intent shape.
// Rendering a plan is deterministic, so substituting one identifier and
// re-rendering provably changes the query text.
type Plan struct {
	Driver       string
	Intent       models.Intent
	Table        string
	Column       string
	TimeColumn   string
	TimeRange    string
	RegionColumn string
	Region       string
	Limit        int

	// Hints preserved from drafting so Correcting can re-match against the
	// catalog without re-deriving intent.
	TableHints  []string
	ColumnHints []string
}

// Drafter builds the initial plan for a request. The default drafter works
// purely from the catalog; implementations backed by a generative model may
// propose identifiers the catalog does not contain — the agent validates
// and corrects regardless, it never trusts the draft.
type Drafter interface {
	Draft(req *Request) (*Plan, error)
}

// metricSynonyms expands a recognized metric term into the column-name
// vocabulary data sources conventionally use.
var metricSynonyms = map[string][]string{
	"销售额":       {"sales_amount", "amount", "revenue", "sales", "total_amount"},
	"销量":        {"quantity", "units_sold", "sales_count", "volume"},
	"利润":        {"profit", "margin", "net_profit"},
	"收入":        {"revenue", "income", "amount"},
	"成本":        {"cost", "expense"},
	"订单量":       {"order_count", "orders", "order_total"},
	"客户数":       {"customer_count", "customers"},
	"毛利率":       {"gross_margin", "margin_rate"},
	"增长率":       {"growth_rate", "growth"},
	"revenue":   {"revenue", "amount", "income"},
	"sales":     {"sales", "amount", "sales_amount"},
	"amount":    {"amount", "total_amount", "value"},
	"profit":    {"profit", "margin"},
	"cost":      {"cost", "expense"},
	"orders":    {"orders", "order_count"},
	"customers": {"customers", "customer_count"},
}

// domainTableHints maps a business domain to conventional table names.
var domainTableHints = map[string][]string{
	"sales":     {"sales", "orders", "transactions", "online_retail"},
	"销售":        {"sales", "orders", "transactions"},
	"finance":   {"ledger", "accounts", "transactions"},
	"财务":        {"ledger", "accounts"},
	"marketing": {"campaigns", "leads"},
}

// CatalogDrafter is the default deterministic drafter: every identifier it
// emits is drawn from the catalog.
type CatalogDrafter struct{}

func (CatalogDrafter) Draft(req *Request) (*Plan, error) {
	metric := requestMetric(req)
	tableHints := expandSynonyms(metric)
	if req.Business != nil {
		tableHints = append(tableHints, domainTableHints[strings.ToLower(req.Business.PrimaryDomain)]...)
	}
	tableHints = append(tableHints, strings.Fields(req.Spec.Name)...)

	table, ok := req.Catalog.MatchTable(tableHints, nil)
	if !ok {
		return nil, fmt.Errorf("catalog has no tables for data source %q", req.Catalog.DataSourceID)
	}

	columnHints := expandSynonyms(metric)
	column, _ := req.Catalog.MatchColumn(table, columnHints, nil)

	plan := &Plan{
		Driver:      req.Driver,
		Intent:      req.Semantic.Intent,
		Table:       table,
		Column:      column,
		TimeColumn:  timeColumn(req.Catalog, table),
		TimeRange:   paramValue(req.Semantic, "时间范围", "time_range"),
		Region:      paramValue(req.Semantic, "区域", "region"),
		Limit:       defaultListingLimit,
		TableHints:  tableHints,
		ColumnHints: columnHints,
	}
	if plan.Region != "" {
		plan.RegionColumn = regionColumn(req.Catalog, table)
	}
	if plan.Driver == "" {
		plan.Driver = DriverPostgres
	}
	return plan, nil
}

func requestMetric(req *Request) string {
	if v := paramValue(req.Semantic, "指标", "metric"); v != "" {
		return v
	}
	for _, e := range req.Semantic.Entities {
		if e.Kind == models.EntityMetric {
			return e.Value
		}
	}
	return strings.TrimSpace(req.Spec.Name)
}

func paramValue(sem *models.SemanticAnalysis, keys ...string) string {
	for _, key := range keys {
		if p, ok := sem.Parameters[key]; ok {
			return p.Value
		}
	}
	return ""
}

func expandSynonyms(metric string) []string {
	if metric == "" {
		return nil
	}
	hints := []string{metric}
	if syns, ok := metricSynonyms[strings.ToLower(metric)]; ok {
		hints = append(hints, syns...)
	} else if syns, ok := metricSynonyms[metric]; ok {
		hints = append(hints, syns...)
	}
	return hints
}

// timeColumn picks the table's first date-like column.
func timeColumn(cat *schema.Catalog, table string) string {
	for _, col := range cat.Columns(table) {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "date") || strings.Contains(lower, "time") ||
			strings.Contains(lower, "period") || strings.Contains(lower, "created") {
			return col
		}
	}
	return ""
}

// regionColumn picks the table's region/area column, if any.
func regionColumn(cat *schema.Catalog, table string) string {
	for _, col := range cat.Columns(table) {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "region") || strings.Contains(lower, "area") ||
			strings.Contains(lower, "city") || strings.Contains(lower, "province") {
			return col
		}
	}
	return ""
}

// Render produces the query text for the plan's driver.
func (p *Plan) Render() string {
	if p.Driver == DriverElasticsearch {
		return p.renderSearch()
	}
	return p.renderSQL()
}

func (p *Plan) renderSQL() string {
	where := p.whereClause()
	switch p.Intent {
	case models.IntentStatistic:
		return fmt.Sprintf("SELECT SUM(%s) AS value FROM %s%s", p.Column, p.Table, where)
	case models.IntentExtremum:
		return fmt.Sprintf("SELECT MAX(%s) AS value FROM %s%s", p.Column, p.Table, where)
	case models.IntentForecast:
		// Forecast inputs are the trailing history; projection happens downstream.
		fallthrough
	case models.IntentTrend, models.IntentChart, models.IntentPeriod:
		if p.TimeColumn == "" {
			return fmt.Sprintf("SELECT %s AS value FROM %s%s LIMIT %d", p.Column, p.Table, where, p.Limit)
		}
		return fmt.Sprintf(
			"SELECT to_char(%s, 'YYYY-MM') AS period, SUM(%s) AS value FROM %s%s GROUP BY 1 ORDER BY 1",
			p.TimeColumn, p.Column, p.Table, where,
		)
	case models.IntentComparison, models.IntentRegion:
		if p.RegionColumn != "" {
			return fmt.Sprintf(
				"SELECT %s, SUM(%s) AS value FROM %s%s GROUP BY 1 ORDER BY 2 DESC",
				p.RegionColumn, p.Column, p.Table, where,
			)
		}
		return fmt.Sprintf("SELECT SUM(%s) AS value FROM %s%s", p.Column, p.Table, where)
	default: // listing and anything unclassified
		return fmt.Sprintf("SELECT * FROM %s%s LIMIT %d", p.Table, where, p.Limit)
	}
}

func (p *Plan) whereClause() string {
	var conds []string
	if p.TimeColumn != "" && p.TimeRange != "" {
		conds = append(conds, timePredicate(p.TimeColumn, p.TimeRange))
	}
	if p.RegionColumn != "" && p.Region != "" {
		conds = append(conds, fmt.Sprintf("%s = '%s'", p.RegionColumn, escapeLiteral(p.Region)))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// timePredicate matches the granularity of the normalized time range:
// YYYY-MM, YYYY-Qn or YYYY.
func timePredicate(column, timeRange string) string {
	switch {
	case strings.Contains(timeRange, "-Q"):
		return fmt.Sprintf("to_char(%s, 'YYYY-\"Q\"Q') = '%s'", column, escapeLiteral(timeRange))
	case strings.Contains(timeRange, "-"):
		return fmt.Sprintf("to_char(%s, 'YYYY-MM') = '%s'", column, escapeLiteral(timeRange))
	default:
		return fmt.Sprintf("to_char(%s, 'YYYY') = '%s'", column, escapeLiteral(timeRange))
	}
}

func escapeLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func (p *Plan) renderSearch() string {
	var filters []map[string]interface{}
	if p.RegionColumn != "" && p.Region != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{p.RegionColumn: p.Region},
		})
	}

	var queryBody interface{}
	if len(filters) > 0 {
		queryBody = map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		}
	} else {
		queryBody = map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	envelope := map[string]interface{}{
		"index": p.Table,
		"query": queryBody,
		"size":  p.Limit,
	}
	raw, _ := json.Marshal(envelope)
	return string(raw)
}

// RewriteIdentifier substitutes the offending identifier with one drawn
// from the catalog, never inventing a new guess. Identifiers in rejected
// must not be re-proposed. Returns the substitute (empty when a filter was
// dropped instead) and false when no valid substitute exists.
func (p *Plan) RewriteIdentifier(cat *schema.Catalog, ident string, rejected map[string]bool) (string, bool) {
	switch ident {
	case p.Table:
		table, ok := cat.MatchTable(p.TableHints, rejected)
		if !ok {
			return "", false
		}
		p.Table = table
		// Column choices are per-table; re-derive them for the new table.
		p.Column, _ = cat.MatchColumn(table, p.ColumnHints, nil)
		p.TimeColumn = timeColumn(cat, table)
		if p.Region != "" {
			p.RegionColumn = regionColumn(cat, table)
		}
		return table, true
	case p.Column:
		column, ok := cat.MatchColumn(p.Table, p.ColumnHints, rejected)
		if !ok {
			return "", false
		}
		p.Column = column
		return column, true
	case p.TimeColumn:
		// No alternative date column to trust; drop the filter instead.
		p.TimeColumn = ""
		return "", true
	case p.RegionColumn:
		p.RegionColumn = ""
		return "", true
	}
	return "", false
}
