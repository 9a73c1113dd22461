package editor

import (
	"context"

	"crudbind/internal/nested"
	"crudbind/internal/store"
)

// get читает строки одним запросом по основной таблице и всем соединениям.
// ids == nil: все строки, плюс списки значений полей.
func (r *request) get(ctx context.Context, ids []string) ([]nested.Record, map[string][]Choice, error) {
	e := r.e
	opts := map[string][]Choice{}

	v, err := e.trigger(ctx, EventPreGet, &EventArgs{Action: ActionRead, IDs: ids})
	if err != nil {
		return nil, nil, err
	}
	if v == Cancel {
		return []nested.Record{}, opts, nil
	}

	q, err := e.selectQuery(ids)
	if err != nil {
		return nil, nil, err
	}
	rows, err := e.st.Select(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	out := make([]nested.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := e.shape(row)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rec)
	}

	if ids == nil {
		for _, f := range e.fields {
			if f.options == nil {
				continue
			}
			list, err := f.options.Exec(ctx, e.st)
			if err != nil {
				return nil, nil, err
			}
			opts[f.name] = list
		}
	}

	if _, err := e.trigger(ctx, EventPostGet, &EventArgs{Action: ActionRead, IDs: ids, Rows: out}); err != nil {
		return nil, nil, err
	}
	return out, opts, nil
}

// selectQuery: сначала колонки ключа, затем читаемые поля, которых ещё нет.
func (e *Editor) selectQuery(ids []string) (store.Select, error) {
	primary := e.tables[0]
	palias := aliasOf(primary)
	q := store.Select{Table: origOf(primary)}
	if palias != q.Table {
		q.Alias = palias
	}

	selected := map[string]bool{}
	add := func(name string) {
		if selected[name] {
			return
		}
		selected[name] = true
		q.Columns = append(q.Columns, store.Column{Expr: name, As: name})
	}
	for _, pk := range e.pkey {
		add(pk)
	}
	for _, f := range e.fields {
		if f.Apply(ActionRead, nil) {
			add(f.dbField)
		}
	}

	joined := map[string]bool{palias: true}
	for _, j := range e.joins {
		a := j.alias()
		if joined[a] {
			continue
		}
		joined[a] = true
		sj := store.Join{Table: j.orig(), Left: j.Left, Op: j.Op, Right: j.Right}
		if a != sj.Table {
			sj.Alias = a
		}
		q.Joins = append(q.Joins, sj)
	}

	if ids != nil {
		for _, id := range ids {
			parts, err := e.codec.Decode(id)
			if err != nil {
				return store.Select{}, err
			}
			g := make([]store.Cond, 0, len(e.pkey))
			for _, pk := range e.pkey {
				col := columnOf(pk)
				if len(e.joins) > 0 || len(e.tables) > 1 || q.Alias != "" {
					col = palias + "." + col
				}
				g = append(g, store.Eq(col, parts[pk]))
			}
			q.Filter.AnyOf = append(q.Filter.AnyOf, g)
		}
	}
	return q, nil
}

// shape раскладывает плоскую строку БД во вложенную запись ответа.
func (e *Editor) shape(row store.Row) (nested.Record, error) {
	val, err := e.codec.Value(row, true)
	if err != nil {
		return nil, err
	}
	rec := nested.Record{e.rowIDField: e.codec.prefix + val}
	for _, f := range e.fields {
		if !f.Apply(ActionRead, nil) {
			continue
		}
		if err := nested.Write(rec, f.name, f.GetVal(row)); err != nil {
			return nil, configErr("%s: %v", e.name, err)
		}
	}
	return rec, nil
}
