package querysql

import (
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repoerr"
	"github.com/roach88/repokit/internal/repository"
)

var statements = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Statement is a compiled, parameterized SQL statement.
type Statement struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

func toStatement(s sq.Sqlizer) (Statement, error) {
	sql, args, err := s.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build sql: %w", err)
	}
	return Statement{SQL: sql, Args: args}, nil
}

// Compiler compiles query descriptors against one table.
//
// Every SELECT orders by the requested sort keys, then the identity column
// ascending, so results are deterministic. All operands are bound as
// placeholders; identifiers are quoted.
type Compiler struct {
	Table   string
	IDField string

	// Columns lists the table's columns. Required for exclude projections.
	Columns []string
}

// Find compiles a SELECT for q's filter, projection and sort.
// limit <= 0 means no limit.
func (c Compiler) Find(q queryir.Query, limit, offset int64) (Statement, error) {
	cols, err := c.projection(q.Projection)
	if err != nil {
		return Statement{}, err
	}
	where, err := Filter(q.Filter)
	if err != nil {
		return Statement{}, err
	}

	b := statements.Select(cols...).From(Quote(c.Table))
	if where != nil {
		b = b.Where(where)
	}

	order := make([]string, 0, len(q.Sort)+1)
	for _, s := range q.Sort {
		if err := checkColumn(s.Field); err != nil {
			return Statement{}, err
		}
		dir := "ASC"
		if s.Direction == queryir.Desc {
			dir = "DESC"
		}
		order = append(order, Quote(s.Field)+" "+dir)
	}
	order = append(order, Quote(c.IDField)+" ASC")
	b = b.OrderBy(order...)

	switch {
	case limit > 0:
		b = b.Limit(uint64(limit))
		if offset > 0 {
			b = b.Offset(uint64(offset))
		}
	case offset > 0:
		// SQLite requires a LIMIT before OFFSET
		b = b.Suffix("LIMIT -1 OFFSET ?", offset)
	}
	return toStatement(b)
}

// Count compiles a single-row COUNT(*) for filter.
func (c Compiler) Count(filter []queryir.Predicate) (Statement, error) {
	where, err := Filter(filter)
	if err != nil {
		return Statement{}, err
	}
	b := statements.Select("COUNT(*)").From(Quote(c.Table))
	if where != nil {
		b = b.Where(where)
	}
	return toStatement(b)
}

// Update compiles an UPDATE applying m to every row matching filter.
// Increments treat NULL as zero.
func (c Compiler) Update(filter []queryir.Predicate, m repository.Mutation) (Statement, error) {
	if err := m.Validate(); err != nil {
		return Statement{}, err
	}
	where, err := Filter(filter)
	if err != nil {
		return Statement{}, err
	}

	b := statements.Update(Quote(c.Table))
	for _, a := range m.Set {
		if err := c.checkAssignable(a.Field); err != nil {
			return Statement{}, err
		}
		b = b.Set(Quote(a.Field), ir.ToGo(a.Value))
	}
	for _, a := range m.Inc {
		if err := c.checkAssignable(a.Field); err != nil {
			return Statement{}, err
		}
		col := Quote(a.Field)
		b = b.Set(col, sq.Expr("COALESCE("+col+", 0) + ?", ir.ToGo(a.Value)))
	}
	if where != nil {
		b = b.Where(where)
	}
	return toStatement(b)
}

// Delete compiles a DELETE of the row whose identity equals id.
func (c Compiler) Delete(id any) (Statement, error) {
	return toStatement(statements.Delete(Quote(c.Table)).
		Where(sq.Expr(Quote(c.IDField)+" = ?", id)))
}

// Insert compiles an INSERT of one record returning its identity.
// Columns are written in sorted order.
func (c Compiler) Insert(record map[string]any) (Statement, error) {
	if len(record) == 0 {
		return Statement{}, repoerr.Validation("", "record has no fields")
	}
	keys := make([]string, 0, len(record))
	for k := range record {
		if err := checkColumn(k); err != nil {
			return Statement{}, err
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	cols := make([]string, len(keys))
	vals := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = Quote(k)
		vals[i] = record[k]
	}
	return toStatement(statements.Insert(Quote(c.Table)).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING " + Quote(c.IDField)))
}

// Replace compiles an UPDATE that overwrites every non-identity column of
// the row whose identity matches record's. Columns the record omits become
// NULL. Requires Columns.
func (c Compiler) Replace(record map[string]any) (Statement, error) {
	id, ok := record[c.IDField]
	if !ok || id == nil {
		return Statement{}, repoerr.Validation(c.IDField, "record has no identity")
	}
	for k := range record {
		if err := checkColumn(k); err != nil {
			return Statement{}, err
		}
		if !slices.Contains(c.Columns, k) {
			return Statement{}, repoerr.Validation(k, "no such column in %s", c.Table)
		}
	}

	b := statements.Update(Quote(c.Table))
	for _, col := range c.Columns {
		if col == c.IDField {
			continue
		}
		b = b.Set(Quote(col), record[col])
	}
	return toStatement(b.Where(sq.Expr(Quote(c.IDField)+" = ?", id)))
}

// projection returns the select list. Include always carries the identity
// column; exclude needs the table's column list.
func (c Compiler) projection(p queryir.Projection) ([]string, error) {
	switch {
	case len(p.Include) > 0:
		cols := []string{Quote(c.IDField)}
		seen := map[string]bool{c.IDField: true}
		for _, f := range p.Include {
			if err := checkColumn(f); err != nil {
				return nil, err
			}
			if !seen[f] {
				seen[f] = true
				cols = append(cols, Quote(f))
			}
		}
		return cols, nil

	case len(p.Exclude) > 0:
		if len(c.Columns) == 0 {
			return nil, fmt.Errorf("exclude projection on %s: column list unknown", c.Table)
		}
		for _, f := range p.Exclude {
			if err := checkColumn(f); err != nil {
				return nil, err
			}
		}
		var cols []string
		for _, col := range c.Columns {
			if !slices.Contains(p.Exclude, col) {
				cols = append(cols, Quote(col))
			}
		}
		if len(cols) == 0 {
			return nil, repoerr.Validation("", "projection excludes every column")
		}
		return cols, nil

	default:
		return []string{"*"}, nil
	}
}

func (c Compiler) checkAssignable(field string) error {
	if err := checkColumn(field); err != nil {
		return err
	}
	if field == c.IDField {
		return repoerr.Validation(field, "identity field cannot be updated")
	}
	return nil
}

// checkColumn rejects names that cannot address a single column.
func checkColumn(name string) error {
	if name == "" {
		return repoerr.Validation("", "column name must not be empty")
	}
	if strings.Contains(name, ".") {
		return repoerr.Validation(name, "nested field paths are not supported by the relational compiler")
	}
	return nil
}

// Quote quotes an SQL identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
