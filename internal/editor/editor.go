// Package editor реализует движок CRUD-привязки. Он принимает вложенный запрос
// (read/create/edit/remove/upload) по декларативной конфигурации основной
// таблицы, полей и левых соединений и превращает его в последовательность
// запросов к хранилищу.
package editor

import (
	"context"
	"sort"
	"strings"

	"crudbind/internal/nested"
	"crudbind/internal/store"
)

// TableSchema: явное описание таблицы, по которому New проверяет ссылки на колонки.
type TableSchema struct {
	Name    string
	Columns []string
	PKey    []string
}

func (s TableSchema) has(col string) bool {
	for _, c := range s.Columns {
		if strings.EqualFold(c, col) {
			return true
		}
	}
	return false
}

// GlobalValidator проверяет весь запрос до обработки строк. Непустое сообщение
// становится ошибкой верхнего уровня.
type GlobalValidator func(ctx context.Context, e *Editor, action Action, req *Request) (string, error)

// Editor: неизменяемая после New конфигурация; безопасна для параллельных запросов.
type Editor struct {
	name           string
	st             store.Store
	tables         []string
	pkey           []string
	codec          KeyCodec
	fields         []*Field
	joins          []Join
	leftJoinRemove bool
	doValidate     bool
	write          bool
	debug          bool
	idPrefix       string
	rowIDField     string
	validators     []GlobalValidator
	events         map[Event][]Handler
	schemas        map[string]TableSchema
}

type Option func(*Editor)

func WithName(name string) Option { return func(e *Editor) { e.name = name } }

// WithTables добавляет основные таблицы (сущность, разложенная на несколько таблиц).
func WithTables(tables ...string) Option {
	return func(e *Editor) { e.tables = append(e.tables, tables...) }
}

func WithPKey(columns ...string) Option {
	return func(e *Editor) { e.pkey = append([]string(nil), columns...) }
}

func WithFields(fields ...*Field) Option {
	return func(e *Editor) { e.fields = append(e.fields, fields...) }
}

func WithLeftJoin(table, left, op, right string) Option {
	return func(e *Editor) { e.joins = append(e.joins, Join{Table: table, Left: left, Op: op, Right: right}) }
}

// WithLeftJoinRemove включает каскадное удаление из присоединённых таблиц.
func WithLeftJoinRemove(on bool) Option { return func(e *Editor) { e.leftJoinRemove = on } }
func WithoutValidation() Option         { return func(e *Editor) { e.doValidate = false } }
func WithWrite(on bool) Option          { return func(e *Editor) { e.write = on } }
func WithDebug(on bool) Option          { return func(e *Editor) { e.debug = on } }
func WithIDPrefix(p string) Option      { return func(e *Editor) { e.idPrefix = p } }
func WithRowIDField(name string) Option { return func(e *Editor) { e.rowIDField = name } }

func WithValidator(v GlobalValidator) Option {
	return func(e *Editor) { e.validators = append(e.validators, v) }
}

// On регистрирует обработчик события; порядок вызова: порядок регистрации.
func On(ev Event, h Handler) Option {
	return func(e *Editor) { e.events[ev] = append(e.events[ev], h) }
}

func WithSchema(schemas ...TableSchema) Option {
	return func(e *Editor) {
		for _, s := range schemas {
			e.schemas[strings.ToLower(s.Name)] = s
		}
	}
}

// New собирает и проверяет конфигурацию. Ошибки: ErrConfig.
func New(st store.Store, table string, opts ...Option) (*Editor, error) {
	e := &Editor{
		st:         st,
		tables:     []string{table},
		pkey:       []string{"id"},
		doValidate: true,
		write:      true,
		idPrefix:   "row_",
		rowIDField: "DT_RowId",
		events:     map[Event][]Handler{},
		schemas:    map[string]TableSchema{},
	}
	for _, o := range opts {
		o(e)
	}
	if e.name == "" {
		e.name = aliasOf(table)
	}
	if err := e.prepare(); err != nil {
		return nil, err
	}
	e.codec = NewKeyCodec(e.idPrefix, e.pkey)
	return e, nil
}

func (e *Editor) prepare() error {
	if e.st == nil {
		return configErr("%s: no store", e.name)
	}
	for _, t := range e.tables {
		if strings.TrimSpace(t) == "" {
			return configErr("%s: empty table name", e.name)
		}
	}
	if len(e.pkey) == 0 {
		return configErr("%s: empty primary key", e.name)
	}

	known := map[string]string{} // alias -> физическая таблица
	for _, t := range e.tables {
		known[aliasOf(t)] = origOf(t)
	}
	for i, j := range e.joins {
		if strings.TrimSpace(j.Table) == "" || j.Left == "" || j.Right == "" {
			return configErr("%s: join #%d is incomplete", e.name, i+1)
		}
		if j.Op == "" {
			e.joins[i].Op = "="
		}
		a := j.alias()
		if !strings.EqualFold(tableOf(j.Left), a) && !strings.EqualFold(tableOf(j.Right), a) {
			return configErr("%s: join on %q has no side referencing %q", e.name, j.Table, a)
		}
		known[a] = j.orig()
	}

	if len(e.joins) > 0 {
		primary := aliasOf(e.tables[0])
		for i, pk := range e.pkey {
			if !qualified(pk) {
				e.pkey[i] = primary + "." + pk
			}
		}
		for _, f := range e.fields {
			if !qualified(f.dbField) {
				return configErr("%s: table part of the field %q was not found; with joins every field must name its table",
					e.name, f.dbField)
			}
			if _, ok := known[tableOf(f.dbField)]; !ok {
				return configErr("%s: table %q being referenced by %q but undefined", e.name, tableOf(f.dbField), f.dbField)
			}
		}
	}

	probe := nested.Record{e.rowIDField: ""}
	for _, f := range e.fields {
		if err := nested.Write(probe, f.name, struct{}{}); err != nil {
			return configErr("%s: field %q: %v", e.name, f.name, err)
		}
	}

	if len(e.schemas) > 0 {
		return e.checkSchema(known)
	}
	return nil
}

// checkSchema сверяет таблицы и колонки с явными описаниями.
func (e *Editor) checkSchema(known map[string]string) error {
	for alias, orig := range known {
		if _, ok := e.schemas[strings.ToLower(orig)]; !ok {
			return configErr("%s: table %q (as %q) being referenced but undefined", e.name, orig, alias)
		}
	}
	check := func(name string) error {
		t := tableOf(name)
		if t == "" {
			t = aliasOf(e.tables[0])
		}
		orig, ok := known[t]
		if !ok {
			return configErr("%s: table %q being referenced but undefined", e.name, t)
		}
		s := e.schemas[strings.ToLower(orig)]
		if !s.has(columnOf(name)) {
			return configErr("%s: column %q being referenced but undefined", e.name, name)
		}
		return nil
	}
	for _, pk := range e.pkey {
		if err := check(pk); err != nil {
			return err
		}
	}
	for _, f := range e.fields {
		if err := check(f.dbField); err != nil {
			return err
		}
		if o := f.options; o != nil && o.Table != "" {
			s, ok := e.schemas[strings.ToLower(o.Table)]
			if !ok {
				return configErr("%s: options table %q undefined", e.name, o.Table)
			}
			for _, c := range append([]string{o.Value}, o.Label...) {
				if !s.has(c) {
					return configErr("%s: options column %s.%s undefined", e.name, o.Table, c)
				}
			}
		}
	}
	for _, j := range e.joins {
		for _, side := range []string{j.Left, j.Right} {
			if err := check(side); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Editor) Name() string          { return e.name }
func (e *Editor) Store() store.Store    { return e.st }
func (e *Editor) Codec() KeyCodec       { return e.codec }
func (e *Editor) PKey() []string        { return append([]string(nil), e.pkey...) }
func (e *Editor) Tables() []string      { return append([]string(nil), e.tables...) }
func (e *Editor) Joins() []Join         { return append([]Join(nil), e.joins...) }
func (e *Editor) Fields() []*Field      { return append([]*Field(nil), e.fields...) }
func (e *Editor) Writable() bool        { return e.write }
func (e *Editor) RowIDField() string    { return e.rowIDField }
func (e *Editor) IDPrefix() string      { return e.idPrefix }
func (e *Editor) LeftJoinRemove() bool  { return e.leftJoinRemove }
func (e *Editor) ValidationOn() bool    { return e.doValidate }
func (e *Editor) Schema() []TableSchema { return e.schemaList() }

func (e *Editor) schemaList() []TableSchema {
	out := make([]TableSchema, 0, len(e.schemas))
	for _, s := range e.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveTable раскладывает имя колонки поля на физическую таблицу и колонку.
// Неквалифицированное имя относится к первой основной таблице.
func (e *Editor) ResolveTable(dbField string) (table, column string) {
	column = columnOf(dbField)
	a := tableOf(dbField)
	if a == "" {
		return origOf(e.tables[0]), column
	}
	for _, t := range e.tables {
		if aliasOf(t) == a {
			return origOf(t), column
		}
	}
	for _, j := range e.joins {
		if j.alias() == a {
			return j.orig(), column
		}
	}
	return a, column
}

// Field ищет поле по имени в ответе.
func (e *Editor) Field(name string) *Field {
	for _, f := range e.fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

// fieldByDB ищет поле по колонке.
func (e *Editor) fieldByDB(db string) *Field {
	for _, f := range e.fields {
		if f.dbField == db {
			return f
		}
	}
	return nil
}

func (e *Editor) isPrimary(table string) bool {
	for _, t := range e.tables {
		if t == table {
			return true
		}
	}
	return false
}
