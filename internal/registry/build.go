package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"crudbind/internal/dsl"
	"crudbind/internal/editor"
	"crudbind/internal/reference"
	"crudbind/internal/store"
)

// Колонки таблицы файлов, если в DSL не сказано иначе.
var defaultUploadColumns = editor.UploadColumns{
	Name: "filename",
	Mime: "mime",
	Size: "size",
	Key:  "storage_key",
	Hash: "hash",
}

// builder собирает editor.Editor из описания DSL.
type builder struct {
	st    store.Store
	doc   *dsl.Document
	enums reference.Catalog
	blob  editor.BlobStore
	debug bool
	now   time.Time
}

func (b *builder) schemas() []editor.TableSchema {
	out := make([]editor.TableSchema, 0, len(b.doc.Tables))
	for _, t := range b.doc.Tables {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, c.Name)
		}
		out = append(out, editor.TableSchema{Name: t.Name, Columns: cols, PKey: t.PKey()})
	}
	return out
}

func (b *builder) editor(d *dsl.Editor) (*editor.Editor, error) {
	opts := []editor.Option{editor.WithName(d.Name)}
	if len(d.Tables) > 0 {
		opts = append(opts, editor.WithTables(d.Tables...))
	}
	pkey := d.PKey
	if len(pkey) == 0 {
		// pk берём из описания таблицы
		if t, ok := b.doc.Tables[strings.ToLower(d.Table)]; ok && len(t.PKey()) > 0 {
			pkey = t.PKey()
		}
	}
	if len(pkey) > 0 {
		opts = append(opts, editor.WithPKey(pkey...))
	}
	if d.Prefix != "" {
		opts = append(opts, editor.WithIDPrefix(d.Prefix))
	}
	for _, j := range d.Joins {
		opts = append(opts, editor.WithLeftJoin(j.Table, j.Left, j.Op, j.Right))
	}
	if d.Flags["readonly"] {
		opts = append(opts, editor.WithWrite(false))
	}
	if d.Flags["debug"] || b.debug {
		opts = append(opts, editor.WithDebug(true))
	}
	if d.Flags["novalidate"] {
		opts = append(opts, editor.WithoutValidation())
	}
	if d.Flags["remove_joined"] {
		opts = append(opts, editor.WithLeftJoinRemove(true))
	}
	if len(b.doc.Tables) > 0 {
		opts = append(opts, editor.WithSchema(b.schemas()...))
	}
	for _, f := range d.Fields {
		field, err := b.field(f)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: editor %s: field %s: %w", d.File, f.Line, d.Name, f.DB, err)
		}
		opts = append(opts, editor.WithFields(field))
	}
	return editor.New(b.st, d.Table, opts...)
}

func (b *builder) field(f dsl.Field) (*editor.Field, error) {
	o := f.Options
	var opts []editor.FieldOption
	if v := o["name"]; v != "" {
		opts = append(opts, editor.FieldName(v))
	}
	if v, ok := o["set"]; ok {
		st, ok := editor.ParseSetType(v)
		if !ok {
			return nil, fmt.Errorf("bad set=%q, want none|both|create|edit", v)
		}
		opts = append(opts, editor.Writable(st))
	}
	if v, ok := o["get"]; ok {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("bad get=%q", v)
		}
		opts = append(opts, editor.Readable(on))
	}
	if v := o["get_format"]; v != "" {
		fn, err := parseFormatter(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, editor.GetFormat(fn))
	}
	if v := o["set_format"]; v != "" {
		fn, err := parseFormatter(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, editor.SetFormat(fn))
	}
	if v, ok := o["set_static"]; ok {
		if v == "now" {
			opts = append(opts, editor.SetStatic(func() any { return time.Now().UTC().Format(time.RFC3339) }))
		} else {
			opts = append(opts, editor.SetStatic(v))
		}
	}
	if v, ok := o["get_static"]; ok {
		opts = append(opts, editor.GetStatic(v))
	}

	var enum *reference.EnumDirectory
	if v := o["options"]; v != "" {
		src, dir, err := b.options(v, o["options_order"])
		if err != nil {
			return nil, err
		}
		enum = dir
		opts = append(opts, editor.WithOptions(src))
	}

	fc := fieldContext{msg: o["msg"], enum: enum, now: b.now}
	for _, tok := range f.Validate {
		v, err := parseValidator(tok, fc)
		if err != nil {
			return nil, err
		}
		if o["check_formatted"] == "true" {
			opts = append(opts, editor.CheckFormatted(v))
		} else {
			opts = append(opts, editor.Check(v))
		}
	}

	if v := o["upload"]; v != "" {
		up, err := b.upload(v, o)
		if err != nil {
			return nil, err
		}
		opts = append(opts, editor.WithUpload(up))
	}
	return editor.NewField(f.DB, opts...), nil
}

// options: "enum:<справочник>" или "<таблица>:<значение>[:<подпись>+<подпись>]".
func (b *builder) options(tok, order string) (*editor.Options, *reference.EnumDirectory, error) {
	parts := strings.Split(tok, ":")
	if strings.EqualFold(parts[0], "enum") {
		if len(parts) != 2 || parts[1] == "" {
			return nil, nil, fmt.Errorf("bad options=%q, want enum:<name>", tok)
		}
		dir, ok := b.enums.Get(parts[1])
		if !ok {
			return nil, nil, fmt.Errorf("unknown enum %q", parts[1])
		}
		// у справочника свой порядок
		return &editor.Options{Manual: dir.Choices(b.now), Order: "order"}, &dir, nil
	}
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return nil, nil, fmt.Errorf("bad options=%q, want <table>:<value>[:<label>+<label>]", tok)
	}
	src := &editor.Options{Table: parts[0], Value: parts[1], Order: order}
	if len(parts) == 3 {
		src.Label = strings.Split(parts[2], "+")
	}
	return src, nil, nil
}

func (b *builder) upload(table string, o map[string]string) (*editor.Upload, error) {
	if b.blob == nil {
		return nil, fmt.Errorf("upload=%s: no blob storage configured", table)
	}
	up := &editor.Upload{Blob: b.blob, Table: table, PKey: o["upload_pkey"], Columns: defaultUploadColumns}
	if v := o["upload_ext"]; v != "" {
		up.Extensions = strings.Split(v, "|")
	}
	if v := o["upload_max"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad upload_max=%q", v)
		}
		up.MaxSize = n
	}
	return up, nil
}
