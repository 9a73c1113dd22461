package editor

import (
	"context"

	"crudbind/internal/nested"
)

// Formatter преобразует значение с учётом всей строки.
type Formatter func(val any, row nested.Record) any

// Validator: пустое сообщение означает, что значение допустимо; error означает сбой самой проверки
// (например, запрос в БД), он прерывает обработку.
type Validator func(ctx context.Context, val any, row nested.Record, host Host) (string, error)

// Host описывает контекст проверки (действие, строка, поле).
type Host struct {
	Action Action
	ID     string // пусто при create
	Field  *Field
	Editor *Editor
}

type fieldValidator struct {
	fn        Validator
	formatted bool
}

// Field: одна привязанная колонка. После NewField не меняется.
type Field struct {
	dbField      string
	name         string
	get          bool
	set          SetType
	getFormatter Formatter
	setFormatter Formatter
	getValue     func() any
	setValue     func() any
	validators   []fieldValidator
	options      *Options
	upload       *Upload
}

type FieldOption func(*Field)

// NewField: имя в ответе по умолчанию совпадает с колонкой.
func NewField(dbField string, opts ...FieldOption) *Field {
	f := &Field{dbField: dbField, name: dbField, get: true, set: SetBoth}
	for _, o := range opts {
		o(f)
	}
	return f
}

func FieldName(name string) FieldOption { return func(f *Field) { f.name = name } }
func Readable(on bool) FieldOption      { return func(f *Field) { f.get = on } }
func Writable(t SetType) FieldOption    { return func(f *Field) { f.set = t } }
func GetFormat(fn Formatter) FieldOption {
	return func(f *Field) { f.getFormatter = fn }
}
func SetFormat(fn Formatter) FieldOption {
	return func(f *Field) { f.setFormatter = fn }
}

// GetStatic: значение (или func() any), которое отдаётся вместо значения из БД.
func GetStatic(v any) FieldOption { return func(f *Field) { f.getValue = static(v) } }

// SetStatic: значение (или func() any), которое пишется вместо присланного.
func SetStatic(v any) FieldOption { return func(f *Field) { f.setValue = static(v) } }

// Check добавляет проверку по сырому присланному значению.
func Check(v Validator) FieldOption {
	return func(f *Field) { f.validators = append(f.validators, fieldValidator{fn: v}) }
}

// CheckFormatted добавляет проверку по значению после set-форматтера.
func CheckFormatted(v Validator) FieldOption {
	return func(f *Field) { f.validators = append(f.validators, fieldValidator{fn: v, formatted: true}) }
}

func WithOptions(o *Options) FieldOption { return func(f *Field) { f.options = o } }
func WithUpload(u *Upload) FieldOption   { return func(f *Field) { f.upload = u } }

func static(v any) func() any {
	switch t := v.(type) {
	case func() any:
		return t
	default:
		return func() any { return v }
	}
}

func (f *Field) DBField() string         { return f.dbField }
func (f *Field) Name() string            { return f.name }
func (f *Field) SetType() SetType        { return f.set }
func (f *Field) IsReadable() bool        { return f.get }
func (f *Field) OptionsSource() *Options { return f.options }
func (f *Field) UploadTarget() *Upload   { return f.upload }

// Apply: участвует ли поле в операции. Для записи поле без присланного и без
// статического значения молча пропускается.
func (f *Field) Apply(action Action, row nested.Record) bool {
	switch action {
	case ActionRead:
		return f.get
	case ActionCreate:
		if f.set == SetNone || f.set == SetEdit {
			return false
		}
	case ActionEdit:
		if f.set == SetNone || f.set == SetCreate {
			return false
		}
	default:
		return false
	}
	if f.setValue == nil && !nested.Exists(f.name, row) {
		return false
	}
	return true
}

// GetVal: значение для ответа из плоской строки БД (ключ равен колонке).
func (f *Field) GetVal(row map[string]any) any {
	var v any
	if f.getValue != nil {
		v = f.getValue()
	} else {
		v = row[f.dbField]
	}
	if f.getFormatter == nil {
		return v
	}
	return f.getFormatter(v, row)
}

// SetVal: значение для записи из присланной вложенной строки.
func (f *Field) SetVal(row nested.Record) any {
	var v any
	if f.setValue != nil {
		v = f.setValue()
	} else {
		v, _ = nested.Read(f.name, row)
	}
	if f.setFormatter == nil {
		return v
	}
	return f.setFormatter(v, row)
}

// validate прогоняет проверки по порядку; первая неудача останавливает остальные.
func (f *Field) validate(ctx context.Context, row nested.Record, host Host) (string, error) {
	if len(f.validators) == 0 {
		return "", nil
	}
	raw, _ := nested.Read(f.name, row)
	host.Field = f
	for _, v := range f.validators {
		val := raw
		if v.formatted {
			val = f.SetVal(row)
		}
		msg, err := v.fn(ctx, val, row, host)
		if err != nil {
			return "", err
		}
		if msg != "" {
			return msg, nil
		}
	}
	return "", nil
}
