package validate

import (
	"context"
	"fmt"
	"strings"

	"crudbind/internal/editor"
	"crudbind/internal/nested"
	"crudbind/internal/store"
)

// Lookup: где искать значение. Пустые поля берутся из списка значений поля
// (Options.Table/Value) либо из самого поля.
type Lookup struct {
	Table  string
	Column string
	Values []any // допустимы без запроса в БД
}

// DBValues: значение должно существовать в колонке таблицы.
func DBValues(l Lookup, opts ...Options) editor.Validator {
	o := pick(opts)
	return func(ctx context.Context, v any, _ nested.Record, h editor.Host) (string, error) {
		if msg, done := o.common(v); done {
			return msg, nil
		}
		for _, a := range l.Values {
			if fmt.Sprint(a) == fmt.Sprint(v) {
				return "", nil
			}
		}
		table, column := l.Table, l.Column
		if src := h.Field.OptionsSource(); src != nil {
			if table == "" {
				table = src.Table
			}
			if column == "" {
				column = src.Value
			}
		}
		if table == "" || column == "" {
			return "", fmt.Errorf("table or column for database value check is not defined for field %s", h.Field.Name())
		}
		rows, err := h.Editor.Store().Select(ctx, store.Select{
			Table:   table,
			Columns: []store.Column{{Expr: column, As: column}},
			Filter:  store.Filter{Where: []store.Cond{store.Eq(column, v)}},
		})
		if err != nil {
			return "", err
		}
		if len(rows) == 0 {
			return o.msg(), nil
		}
		return "", nil
	}
}

// DBUnique: значения ещё нет в колонке. При правке строка с тем же ключом
// не считается дубликатом.
func DBUnique(l Lookup, opts ...Options) editor.Validator {
	o := pick(opts)
	return func(ctx context.Context, v any, _ nested.Record, h editor.Host) (string, error) {
		if msg, done := o.common(v); done {
			return msg, nil
		}
		e := h.Editor
		table, column := e.ResolveTable(h.Field.DBField())
		if l.Table != "" {
			table = l.Table
		}
		if l.Column != "" {
			column = l.Column
		}

		// исключить свою строку можно только в таблице с ключом редактора
		primary, _ := e.ResolveTable(e.PKey()[0])
		exclude := h.Action == editor.ActionEdit && h.ID != "" && table == primary

		var pkCols []string
		cols := []store.Column{{Expr: column, As: column}}
		if exclude {
			for _, pk := range e.PKey() {
				c := pk[strings.LastIndex(pk, ".")+1:]
				pkCols = append(pkCols, c)
				cols = append(cols, store.Column{Expr: c, As: "pk." + c})
			}
		}
		rows, err := e.Store().Select(ctx, store.Select{
			Table:   table,
			Columns: cols,
			Filter:  store.Filter{Where: []store.Cond{store.Eq(column, v)}},
		})
		if err != nil {
			return "", err
		}

		var self map[string]string
		if exclude {
			if self, err = e.Codec().Decode(h.ID); err != nil {
				return "", err
			}
		}
		for _, r := range rows {
			if self != nil && sameKey(r, e.PKey(), pkCols, self) {
				continue
			}
			return o.msg(), nil
		}
		return "", nil
	}
}

func sameKey(row store.Row, pkey, cols []string, self map[string]string) bool {
	for i, pk := range pkey {
		if fmt.Sprint(row["pk."+cols[i]]) != self[pk] {
			return false
		}
	}
	return true
}
