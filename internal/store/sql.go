package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	log "github.com/sirupsen/logrus"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQL: реализация Store поверх *sql.DB (pgx stdlib или modernc sqlite).
type SQL struct {
	db      *sql.DB
	q       querier
	dialect string
	inTx    bool
}

func New(db *sql.DB, dialect string) *SQL {
	return &SQL{db: db, q: db, dialect: dialect}
}

func (s *SQL) Dialect() string { return s.dialect }
func (s *SQL) DB() *sql.DB     { return s.db }

func (s *SQL) Tx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if s.db == nil {
		return ErrNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	child := &SQL{db: s.db, q: tx, dialect: s.dialect, inTx: true}
	if err := fn(child); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQL) Select(ctx context.Context, q Select) ([]Row, error) {
	query, args, err := s.renderSelect(q)
	if err != nil {
		return nil, err
	}
	s.trace(ctx, query, args)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			r[c] = normalize(vals[i])
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQL) Insert(ctx context.Context, q Insert) (any, error) {
	query, args, err := s.renderInsert(q)
	if err != nil {
		return nil, err
	}
	s.trace(ctx, query, args)

	if q.Returning == "" {
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("insert %s: %w", q.Table, err)
		}
		return nil, nil
	}
	var v any
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return nil, fmt.Errorf("insert %s: %w", q.Table, err)
	}
	return normalize(v), nil
}

func (s *SQL) Update(ctx context.Context, q Update) (int64, error) {
	query, args, err := s.renderUpdate(q)
	if err != nil {
		return 0, err
	}
	s.trace(ctx, query, args)
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", q.Table, err)
	}
	return res.RowsAffected()
}

func (s *SQL) Delete(ctx context.Context, q Delete) (int64, error) {
	query, args, err := s.renderDelete(q)
	if err != nil {
		return 0, err
	}
	s.trace(ctx, query, args)
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	return res.RowsAffected()
}

// ===== рендер =====

func (s *SQL) format() sq.PlaceholderFormat {
	if s.dialect == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

func cond(c Cond) (sq.Sqlizer, error) {
	op, err := normalizeOp(c.Op)
	if err != nil {
		return nil, err
	}
	col := QuoteIdent(c.Column)
	if c.Value == nil {
		switch op {
		case "=":
			return sq.Eq{col: nil}, nil
		case "!=", "<>":
			return sq.NotEq{col: nil}, nil
		}
	}
	// sq.Eq развернул бы []byte в IN (...), поэтому значение идёт через Expr
	return sq.Expr(col+" "+op+" ?", c.Value), nil
}

// where: Where через AND плюс одна OR-группа из AnyOf.
func where(f Filter) ([]sq.Sqlizer, error) {
	var parts []sq.Sqlizer
	for _, c := range f.Where {
		p, err := cond(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	if len(f.AnyOf) > 0 {
		or := make(sq.Or, 0, len(f.AnyOf))
		for _, g := range f.AnyOf {
			and := make(sq.And, 0, len(g))
			for _, c := range g {
				p, err := cond(c)
				if err != nil {
					return nil, err
				}
				and = append(and, p)
			}
			or = append(or, and)
		}
		parts = append(parts, or)
	}
	return parts, nil
}

func quoteAlias(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

func tableRef(table, alias string) string {
	if alias == "" || alias == table {
		return QuoteIdent(table)
	}
	return QuoteIdent(table) + " AS " + quoteAlias(alias)
}

func (s *SQL) renderSelect(q Select) (string, []any, error) {
	cols := make([]string, 0, len(q.Columns))
	for _, c := range q.Columns {
		as := c.As
		if as == "" {
			as = c.Expr
		}
		cols = append(cols, QuoteIdent(c.Expr)+" AS "+quoteAlias(as))
	}
	if len(cols) == 0 {
		cols = append(cols, "*")
	}
	b := sq.Select(cols...).From(tableRef(q.Table, q.Alias)).PlaceholderFormat(s.format())
	if q.Distinct {
		b = b.Distinct()
	}
	for _, j := range q.Joins {
		op, err := normalizeOp(j.Op)
		if err != nil {
			return "", nil, err
		}
		b = b.LeftJoin(tableRef(j.Table, j.Alias) + " ON " + QuoteIdent(j.Left) + " " + op + " " + QuoteIdent(j.Right))
	}
	parts, err := where(q.Filter)
	if err != nil {
		return "", nil, err
	}
	for _, p := range parts {
		b = b.Where(p)
	}
	if len(q.OrderBy) > 0 {
		ob := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			ob = append(ob, QuoteIdent(o))
		}
		b = b.OrderBy(ob...)
	}
	return b.ToSql()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *SQL) renderInsert(q Insert) (string, []any, error) {
	if len(q.Values) == 0 {
		// squirrel не умеет INSERT без колонок
		query := "INSERT INTO " + QuoteIdent(q.Table) + " DEFAULT VALUES"
		if q.Returning != "" {
			query += " RETURNING " + QuoteIdent(q.Returning)
		}
		return query, nil, nil
	}
	keys := sortedKeys(q.Values)
	cols := make([]string, 0, len(keys))
	vals := make([]any, 0, len(keys))
	for _, k := range keys {
		cols = append(cols, QuoteIdent(k))
		vals = append(vals, q.Values[k])
	}
	b := sq.Insert(QuoteIdent(q.Table)).Columns(cols...).Values(vals...).PlaceholderFormat(s.format())
	if q.Returning != "" {
		b = b.Suffix("RETURNING " + QuoteIdent(q.Returning))
	}
	return b.ToSql()
}

func (s *SQL) renderUpdate(q Update) (string, []any, error) {
	if len(q.Set) == 0 {
		return "", nil, fmt.Errorf("update %s: nothing to set", q.Table)
	}
	parts, err := where(q.Filter)
	if err != nil {
		return "", nil, err
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("update %s: refusing to update without a filter", q.Table)
	}
	b := sq.Update(QuoteIdent(q.Table)).PlaceholderFormat(s.format())
	for _, k := range sortedKeys(q.Set) {
		b = b.Set(QuoteIdent(k), q.Set[k])
	}
	for _, p := range parts {
		b = b.Where(p)
	}
	return b.ToSql()
}

func (s *SQL) renderDelete(q Delete) (string, []any, error) {
	parts, err := where(q.Filter)
	if err != nil {
		return "", nil, err
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("delete %s: refusing to delete without a filter", q.Table)
	}
	b := sq.Delete(QuoteIdent(q.Table)).PlaceholderFormat(s.format())
	for _, p := range parts {
		b = b.Where(p)
	}
	return b.ToSql()
}

// normalize приводит []byte к string: драйверы по-разному отдают text.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
