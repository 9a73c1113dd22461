package editor

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"crudbind/internal/nested"
	"crudbind/internal/store"
)

const noDataMessage = "No data detected. Submit rows under data[<key>][<field>]."

// request: состояние одного вызова Process. Editor не меняется.
type request struct {
	e     *Editor
	req   *Request
	out   *Output
	debug []any
	log   *log.Entry
}

// Process обрабатывает запрос целиком. Клиентские ошибки (проверка, сбой записи
// строки, глобальный валидатор) возвращаются в Output; error: только ошибки
// конфигурации, неверный идентификатор строки и ошибки обработчиков событий.
func (e *Editor) Process(ctx context.Context, req *Request) (*Output, error) {
	if req == nil {
		req = &Request{}
	}
	if req.Data == nil {
		req.Data = map[string]nested.Record{}
	}
	r := &request{
		e:   e,
		req: req,
		out: newOutput(),
		log: log.WithFields(log.Fields{"editor": e.name, "action": req.Action}),
	}
	if e.debug {
		ctx = store.WithTrace(ctx, func(query string, args []any) {
			r.debug = append(r.debug, map[string]any{"query": query, "bindings": args})
		})
	}
	if err := r.run(ctx); err != nil {
		return nil, err
	}
	if e.debug {
		r.out.Debug = r.debug
	}
	return r.out, nil
}

func (r *request) run(ctx context.Context) error {
	e := r.e
	action := ParseAction(r.req.Action)

	for _, v := range e.validators {
		msg, err := v(ctx, e, action, r.req)
		if err != nil {
			return err
		}
		if msg != "" {
			r.out.Error = msg
			break
		}
	}

	if r.out.Error == "" && r.req.Action != "" && action != ActionUpload && len(r.req.Data) == 0 {
		r.out.Error = noDataMessage
	}

	if r.out.Error == "" {
		var err error
		switch action {
		case ActionRead:
			err = r.read(ctx)
		case ActionCreate, ActionEdit:
			if r.writable() {
				err = r.write(ctx, action)
			}
		case ActionDelete:
			if r.writable() {
				err = r.remove(ctx)
			}
		case ActionUpload:
			if r.writable() {
				err = r.upload(ctx)
			}
		case ActionUnknown:
			r.note(fmt.Sprintf("unknown action %q ignored", r.req.Action))
		}
		if err != nil {
			return err
		}
	}

	_, err := e.trigger(ctx, EventProcessed, &EventArgs{Action: action, Output: r.out})
	return err
}

func (r *request) writable() bool {
	if !r.e.write {
		r.out.Error = "This editor is read-only"
		return false
	}
	return true
}

func (r *request) note(s string) {
	r.log.Debug(s)
	r.debug = append(r.debug, s)
}

// rowFailed: строка не записана, соседние продолжают.
func (r *request) rowFailed(key string, err error) {
	r.log.WithError(err).WithField("row", key).Warn("row write failed")
	msg := fmt.Sprintf("%s: %v", key, err)
	if r.out.Error == "" {
		r.out.Error = msg
		return
	}
	r.out.Error = strings.Join([]string{r.out.Error, msg}, "; ")
}

func (r *request) read(ctx context.Context) error {
	rows, opts, err := r.get(ctx, nil)
	if err != nil {
		return err
	}
	r.out.Data = rows
	r.out.Options = opts
	return nil
}

// write обрабатывает create/edit пакета: pre-события, проверка, запись каждой строки в
// своей транзакции, перечитывание, post-события.
func (r *request) write(ctx context.Context, action Action) error {
	e := r.e
	keys := r.req.keys()
	pre, writeAll, post, postAll := EventPreCreate, EventWriteCreateAll, EventPostCreate, EventPostCreateAll
	if action == ActionEdit {
		pre, writeAll, post, postAll = EventPreEdit, EventWriteEditAll, EventPostEdit, EventPostEditAll
	}

	working := make([]string, 0, len(keys))
	for _, k := range keys {
		args := &EventArgs{Action: action, Values: r.req.Data[k]}
		if action == ActionEdit {
			args.ID = e.codec.Strip(k)
		}
		v, err := e.trigger(ctx, pre, args)
		if err != nil {
			return err
		}
		if v == Cancel {
			r.out.Cancelled = append(r.out.Cancelled, k)
			continue
		}
		working = append(working, k)
	}

	valid, err := r.validate(ctx, action, working)
	if err != nil {
		return err
	}
	if !valid {
		return nil
	}

	type written struct{ submitKey, id string }
	var done []written
	for _, k := range working {
		values := r.req.Data[k]
		var id string
		err := e.st.Tx(ctx, func(tx store.Store) error {
			var err error
			if action == ActionCreate {
				id, err = e.create(ctx, tx, values)
			} else {
				id, err = e.update(ctx, tx, k, values)
			}
			return err
		})
		if err != nil {
			if fatal(err) {
				return err
			}
			r.rowFailed(k, err)
			continue
		}
		done = append(done, written{submitKey: k, id: id})
	}

	ids := make([]string, 0, len(done))
	submitted := make(map[string]nested.Record, len(done))
	for _, w := range done {
		ids = append(ids, w.id)
		submitted[w.id] = r.req.Data[w.submitKey]
	}

	if _, err := e.trigger(ctx, writeAll, &EventArgs{Action: action, IDs: ids, Submitted: submitted}); err != nil {
		return err
	}

	var rows []nested.Record
	if len(ids) > 0 {
		rows, _, err = r.get(ctx, ids)
		if err != nil {
			return err
		}
	}
	if rows == nil {
		rows = []nested.Record{}
	}
	r.out.Data = rows

	for _, w := range done {
		rowID := e.codec.prefix + w.id
		var match []nested.Record
		for _, row := range rows {
			if row[e.rowIDField] == rowID {
				match = append(match, row)
			}
		}
		args := &EventArgs{Action: action, ID: w.id, Values: r.req.Data[w.submitKey], Rows: match}
		if _, err := e.trigger(ctx, post, args); err != nil {
			return err
		}
	}
	_, err = e.trigger(ctx, postAll, &EventArgs{Action: action, IDs: ids, Submitted: submitted, Rows: rows})
	return err
}

// validate прогоняет проверки полей по рабочему набору; true: ошибок нет.
func (r *request) validate(ctx context.Context, action Action, keys []string) (bool, error) {
	errs, err := r.e.validateRows(ctx, action, r.req.Data, keys)
	if err != nil {
		return false, err
	}
	r.out.FieldErrors = append(r.out.FieldErrors, errs...)
	return len(r.out.FieldErrors) == 0, nil
}

func (e *Editor) validateRows(ctx context.Context, action Action, data map[string]nested.Record, keys []string) ([]FieldError, error) {
	if !e.doValidate || (action != ActionCreate && action != ActionEdit) {
		return nil, nil
	}
	var errs []FieldError
	for _, k := range keys {
		values := data[k]
		host := Host{Action: action, Editor: e}
		if action == ActionEdit {
			host.ID = e.codec.Strip(k)
		}
		for _, f := range e.fields {
			msg, err := f.validate(ctx, values, host)
			if err != nil {
				return nil, fmt.Errorf("validate %s: %w", f.dbField, err)
			}
			if msg != "" {
				errs = append(errs, FieldError{ID: k, Name: f.dbField, Status: msg})
			}
		}
	}
	return errs, nil
}

// Validate проверяет запрос без записи.
func (e *Editor) Validate(ctx context.Context, req *Request) ([]FieldError, bool, error) {
	errs, err := e.validateRows(ctx, ParseAction(req.Action), req.Data, req.keys())
	if err != nil {
		return nil, false, err
	}
	if errs == nil {
		errs = []FieldError{}
	}
	return errs, len(errs) == 0, nil
}
