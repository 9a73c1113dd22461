package editor

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"crudbind/internal/nested"
	"crudbind/internal/store"
)

// create пишет одну новую строку и возвращает её id (без префикса).
func (e *Editor) create(ctx context.Context, tx store.Store, values nested.Record) (string, error) {
	// значения для id, включая статические, а не только присланные
	all := nested.Record{}
	for _, f := range e.fields {
		if v := f.SetVal(values); v != nil {
			if err := nested.Write(all, f.name, v); err != nil {
				return "", configErr("%s: %v", e.name, err)
			}
		}
	}
	if err := e.checkCompoundInsert(values); err != nil {
		return "", err
	}
	if _, err := e.trigger(ctx, EventValidatedCreate, &EventArgs{Store: tx, Action: ActionCreate, Values: values}); err != nil {
		return "", err
	}

	id, err := e.insertOrUpdate(ctx, tx, "", values, ActionCreate)
	if err != nil {
		return "", err
	}
	if len(e.pkey) > 1 {
		id, err = e.codec.Value(all, false)
	} else {
		if id == "" {
			return "", fmt.Errorf("%s: %w", e.tables[0], ErrNoKeyGenerated)
		}
		id, err = e.submitMerge(id, values)
	}
	if err != nil {
		return "", err
	}

	if _, err := e.trigger(ctx, EventWriteCreate, &EventArgs{Store: tx, Action: ActionCreate, ID: id, Values: values}); err != nil {
		return "", err
	}
	return id, nil
}

// update правит строку по присланному ключу; возвращает id с учётом
// изменённых колонок ключа.
func (e *Editor) update(ctx context.Context, tx store.Store, key string, values nested.Record) (string, error) {
	id := e.codec.Strip(key)
	if _, err := e.trigger(ctx, EventValidateEdit, &EventArgs{Store: tx, Action: ActionEdit, ID: id, Values: values}); err != nil {
		return "", err
	}
	if _, err := e.insertOrUpdate(ctx, tx, id, values, ActionEdit); err != nil {
		return "", err
	}
	newID, err := e.submitMerge(id, values)
	if err != nil {
		return "", err
	}
	if _, err := e.trigger(ctx, EventWriteEdit, &EventArgs{Store: tx, Action: ActionEdit, ID: id, Values: values}); err != nil {
		return "", err
	}
	return newID, nil
}

// checkCompoundInsert: для составного ключа все его колонки должны прийти
// значениями: иначе сгенерированную часть ключа не узнать.
func (e *Editor) checkCompoundInsert(values nested.Record) error {
	if len(e.pkey) < 2 {
		return nil
	}
	for _, col := range e.pkey {
		f := e.fieldByDB(col)
		if f == nil || !f.Apply(ActionCreate, values) || f.SetVal(values) == nil {
			return fmt.Errorf("%w: %s", ErrCompoundKeyIncomplete, col)
		}
	}
	return nil
}

// submitMerge накладывает присланные значения колонок ключа на исходный id.
func (e *Editor) submitMerge(id string, row nested.Record) (string, error) {
	parts, err := e.codec.Decode(id)
	if err != nil {
		return "", err
	}
	flat := make(map[string]any, len(parts))
	for k, v := range parts {
		flat[k] = v
	}
	for _, col := range e.pkey {
		if f := e.fieldByDB(col); f != nil && f.Apply(ActionEdit, row) {
			flat[col] = f.SetVal(row)
		}
	}
	return e.codec.Value(flat, true)
}

// insertOrUpdate пишет основные таблицы, затем присоединённые.
func (e *Editor) insertOrUpdate(ctx context.Context, tx store.Store, id string, values nested.Record, action Action) (string, error) {
	var where []store.Cond
	if id != "" {
		parts, err := e.codec.Decode(id)
		if err != nil {
			return "", err
		}
		for _, col := range e.pkey {
			where = append(where, store.Eq(columnOf(col), parts[col]))
		}
	}

	for _, t := range e.tables {
		res, err := e.writeTable(ctx, tx, t, values, action, where)
		if err != nil {
			return "", err
		}
		// первая вставка с ключом даёт id
		if res != "" && id == "" {
			id = res
		}
	}

	for _, j := range e.joins {
		parent, child := j.links()
		var link any
		if len(e.pkey) == 1 && parent == e.pkey[0] {
			link = id
		} else {
			f := e.fieldByDB(parent)
			if f == nil || !f.Apply(action, values) {
				f = e.fieldByDB(child)
				if f == nil || !f.Apply(action, values) {
					// связать нечем: сироту не создаём
					continue
				}
			}
			link = f.SetVal(values)
		}
		if link == nil || link == "" {
			log.WithFields(log.Fields{"editor": e.name, "join": j.Table}).Debug("join link value empty, skipped")
			continue
		}
		if _, err := e.writeTable(ctx, tx, j.Table, values, action, []store.Cond{store.Eq(columnOf(child), link)}); err != nil {
			return "", err
		}
	}
	return id, nil
}

// writeTable пишет в одну таблицу поля, которые к ней относятся.
// where == nil: вставка в основную таблицу; для присоединённых делается upsert.
func (e *Editor) writeTable(ctx context.Context, tx store.Store, table string, values nested.Record, action Action, where []store.Cond) (string, error) {
	alias, orig := aliasOf(table), origOf(table)

	set := map[string]any{}
	for _, f := range e.fields {
		if len(e.joins) > 0 && tableOf(f.dbField) != alias {
			continue
		}
		if !f.Apply(action, values) {
			continue
		}
		set[columnOf(f.dbField)] = f.SetVal(values)
	}
	if len(set) == 0 {
		return "", nil
	}

	primary := e.isPrimary(table)
	switch {
	case where == nil:
		q := store.Insert{Table: orig, Values: set}
		if primary && len(e.pkey) == 1 && (len(e.joins) == 0 || tableOf(e.pkey[0]) == alias) {
			q.Returning = columnOf(e.pkey[0])
		}
		v, err := tx.Insert(ctx, q)
		if err != nil {
			return "", err
		}
		if v == nil {
			return "", nil
		}
		return keyString(v), nil

	case !primary:
		// строки в присоединённой таблице может ещё не быть
		cols := make([]store.Column, 0, len(where))
		for _, c := range where {
			cols = append(cols, store.Column{Expr: c.Column, As: c.Column})
		}
		rows, err := tx.Select(ctx, store.Select{Table: orig, Columns: cols, Filter: store.Filter{Where: where}})
		if err != nil {
			return "", err
		}
		if len(rows) > 0 {
			_, err = tx.Update(ctx, store.Update{Table: orig, Set: set, Filter: store.Filter{Where: where}})
			return "", err
		}
		for _, c := range where {
			set[c.Column] = c.Value
		}
		_, err = tx.Insert(ctx, store.Insert{Table: orig, Values: set})
		return "", err

	default:
		_, err := tx.Update(ctx, store.Update{Table: orig, Set: set, Filter: store.Filter{Where: where}})
		return "", err
	}
}
