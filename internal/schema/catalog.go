// internal/schema/catalog.go
package schema

import (
	"context"
	"sort"
	"strings"
)

// Column is one column of a catalog table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is one table with its columns.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Catalog is the authoritative set of valid table and column names for one
// data source. The query agent must never reference an identifier that is
// not in here.
type Catalog struct {
	DataSourceID string
	tables       map[string]Table
}

// Provider looks up the catalog for a data source.
type Provider interface {
	Catalog(ctx context.Context, dataSourceID string) (*Catalog, error)
}

// NewCatalog builds a catalog from a table list.
func NewCatalog(dataSourceID string, tables []Table) *Catalog {
	m := make(map[string]Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return &Catalog{DataSourceID: dataSourceID, tables: m}
}

// Tables returns the table names in deterministic order.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTable reports whether the table exists.
func (c *Catalog) HasTable(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// HasColumn reports whether the column exists on the table.
func (c *Catalog) HasColumn(table, column string) bool {
	t, ok := c.tables[table]
	if !ok {
		return false
	}
	for _, col := range t.Columns {
		if col.Name == column {
			return true
		}
	}
	return false
}

// Columns returns the column names of a table in catalog order.
func (c *Catalog) Columns(table string) []string {
	t, ok := c.tables[table]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		names = append(names, col.Name)
	}
	return names
}

// NumericColumns returns the columns with a numeric type, for metric
// aggregation targets.
func (c *Catalog) NumericColumns(table string) []string {
	t, ok := c.tables[table]
	if !ok {
		return nil
	}
	var names []string
	for _, col := range t.Columns {
		if isNumericType(col.Type) {
			names = append(names, col.Name)
		}
	}
	return names
}

func isNumericType(typ string) bool {
	switch strings.ToLower(typ) {
	case "integer", "int", "int4", "int8", "bigint", "smallint",
		"numeric", "decimal", "real", "float", "float4", "float8",
		"double precision", "money", "long", "double", "scaled_float":
		return true
	}
	return false
}

// MatchTable picks the catalog table best matching the given hint terms:
// exact name first, then substring containment either way, in
// deterministic table order. Tables in the exclude set are never returned.
func (c *Catalog) MatchTable(hints []string, exclude map[string]bool) (string, bool) {
	names := c.Tables()

	for _, hint := range hints {
		for _, name := range names {
			if exclude[name] {
				continue
			}
			if strings.EqualFold(name, hint) {
				return name, true
			}
		}
	}
	for _, hint := range hints {
		lower := strings.ToLower(hint)
		for _, name := range names {
			if exclude[name] {
				continue
			}
			if strings.Contains(strings.ToLower(name), lower) || strings.Contains(lower, strings.ToLower(name)) {
				return name, true
			}
		}
	}
	// Any remaining table is better than an invented one.
	for _, name := range names {
		if !exclude[name] {
			return name, true
		}
	}
	return "", false
}

// MatchColumn picks the best column of a table for the hint terms, falling
// back to the first numeric column (metrics aggregate numbers).
func (c *Catalog) MatchColumn(table string, hints []string, exclude map[string]bool) (string, bool) {
	cols := c.Columns(table)

	for _, hint := range hints {
		for _, name := range cols {
			if exclude[name] {
				continue
			}
			if strings.EqualFold(name, hint) {
				return name, true
			}
		}
	}
	for _, hint := range hints {
		lower := strings.ToLower(hint)
		for _, name := range cols {
			if exclude[name] {
				continue
			}
			if strings.Contains(strings.ToLower(name), lower) || strings.Contains(lower, strings.ToLower(name)) {
				return name, true
			}
		}
	}
	for _, name := range c.NumericColumns(table) {
		if !exclude[name] {
			return name, true
		}
	}
	for _, name := range cols {
		if !exclude[name] {
			return name, true
		}
	}
	return "", false
}
