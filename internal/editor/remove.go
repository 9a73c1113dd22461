package editor

import (
	"context"

	log "github.com/sirupsen/logrus"

	"crudbind/internal/nested"
	"crudbind/internal/store"
)

// remove удаляет пакет строк одной транзакцией.
func (r *request) remove(ctx context.Context) error {
	e := r.e
	var ids []string
	keyByID := map[string]string{}
	for _, k := range r.req.keys() {
		id := e.codec.Strip(k)
		v, err := e.trigger(ctx, EventPreRemove, &EventArgs{Action: ActionDelete, ID: id, Values: r.req.Data[k]})
		if err != nil {
			return err
		}
		if v == Cancel {
			r.out.Cancelled = append(r.out.Cancelled, k)
			continue
		}
		ids = append(ids, id)
		keyByID[id] = k
	}
	if len(ids) == 0 {
		return nil
	}

	err := e.st.Tx(ctx, func(tx store.Store) error {
		if e.leftJoinRemove {
			for _, j := range e.joins {
				parent, child := j.links()
				// только по одноколоночному ключу: иначе удалили бы чужие строки
				if len(e.pkey) == 1 && parent == e.pkey[0] {
					if err := e.removeTable(ctx, tx, j.Table, ids, []string{child}); err != nil {
						return err
					}
					continue
				}
				log.WithFields(log.Fields{"editor": e.name, "join": j.Table}).
					Warn("cascade remove skipped: join is not linked by a single-column primary key")
			}
		}
		for _, t := range e.tables {
			if err := e.removeTable(ctx, tx, t, ids, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if fatal(err) {
			return err
		}
		r.log.WithError(err).Warn("remove failed")
		r.out.Error = err.Error()
		return nil
	}

	submitted := make(map[string]nested.Record, len(ids))
	for _, id := range ids {
		values := r.req.Data[keyByID[id]]
		submitted[id] = values
		if _, err := e.trigger(ctx, EventPostRemove, &EventArgs{Action: ActionDelete, ID: id, Values: values}); err != nil {
			return err
		}
	}
	_, err = e.trigger(ctx, EventPostRemoveAll, &EventArgs{Action: ActionDelete, IDs: ids, Submitted: submitted})
	return err
}

// removeTable удаляет строки таблицы по id. columns: колонки, по которым
// раскладывается id (по умолчанию ключ редактора). Таблица без пишущихся полей
// не трогается.
func (e *Editor) removeTable(ctx context.Context, tx store.Store, table string, ids []string, columns []string) error {
	alias, orig := aliasOf(table), origOf(table)

	count := 0
	for _, f := range e.fields {
		if !qualified(f.dbField) || (tableOf(f.dbField) == alias && f.set != SetNone) {
			count++
		}
	}
	if count == 0 {
		return nil
	}

	if columns == nil {
		columns = e.pkey
	}
	groups := make([][]store.Cond, 0, len(ids))
	for _, id := range ids {
		parts, err := e.codec.DecodeWith(id, columns)
		if err != nil {
			return err
		}
		g := make([]store.Cond, 0, len(columns))
		for _, c := range columns {
			g = append(g, store.Eq(columnOf(c), parts[c]))
		}
		groups = append(groups, g)
	}
	_, err := tx.Delete(ctx, store.Delete{Table: orig, Filter: store.Filter{AnyOf: groups}})
	return err
}
