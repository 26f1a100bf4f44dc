// internal/schema/postgres.go
package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresProvider reads the catalog out of information_schema.
type PostgresProvider struct {
	db *sql.DB
}

func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

const catalogQuery = `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`

// Catalog loads every public table and column. The dataSourceID is carried
// through for cache keying and diagnostics.
func (p *PostgresProvider) Catalog(ctx context.Context, dataSourceID string) (*Catalog, error) {
	rows, err := p.db.QueryContext(ctx, catalogQuery)
	if err != nil {
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}
	defer rows.Close()

	byTable := make(map[string]*Table)
	var order []string
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("catalog scan failed: %w", err)
		}
		t, ok := byTable[table]
		if !ok {
			t = &Table{Name: table}
			byTable[table] = t
			order = append(order, table)
		}
		t.Columns = append(t.Columns, Column{Name: column, Type: dataType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog rows failed: %w", err)
	}

	tables := make([]Table, 0, len(order))
	for _, name := range order {
		tables = append(tables, *byTable[name])
	}
	return NewCatalog(dataSourceID, tables), nil
}

// StaticProvider serves a fixed catalog; used in tests and for data sources
// whose schema is declared in configuration rather than introspected.
type StaticProvider struct {
	catalogs map[string]*Catalog
}

func NewStaticProvider(catalogs map[string]*Catalog) *StaticProvider {
	return &StaticProvider{catalogs: catalogs}
}

func (p *StaticProvider) Catalog(_ context.Context, dataSourceID string) (*Catalog, error) {
	c, ok := p.catalogs[dataSourceID]
	if !ok {
		return nil, fmt.Errorf("unknown data source %q", dataSourceID)
	}
	return c, nil
}
