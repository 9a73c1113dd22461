package registry

import (
	"fmt"
	"sort"
	"strings"

	"crudbind/internal/dsl"
	"crudbind/internal/editor"
	"crudbind/internal/reference"
)

// Issue: одна найденная проблема конфигурации.
type Issue struct {
	Entity  string `json:"entity"` // редактор или таблица
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var knownFlags = map[string]bool{"readonly": true, "debug": true, "novalidate": true, "remove_joined": true}

// "users as manager" -> ("users", "manager")
func joinTable(s string) (table, alias string) {
	f := strings.Fields(s)
	if len(f) == 3 && strings.EqualFold(f[1], "as") {
		return f[0], f[2]
	}
	return s, s
}

// Lint проверяет документ на противоречия до сборки редакторов. Ссылки на
// колонки сверяются, только если в документе описана хотя бы одна таблица.
func Lint(doc *dsl.Document, enums reference.Catalog) []Issue {
	var issues []Issue
	add := func(entity, field, code, format string, args ...any) {
		issues = append(issues, Issue{Entity: entity, Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}
	strict := len(doc.Tables) > 0
	table := func(name string) *dsl.Table { return doc.Tables[strings.ToLower(name)] }

	for _, t := range doc.Tables {
		if len(t.PKey()) == 0 {
			add(t.Name, "", "pkey_missing", "table has no pk column")
		}
		for _, c := range t.Columns {
			if c.Ref == "" {
				continue
			}
			rt, rc, ok := strings.Cut(c.Ref, ".")
			if !ok || table(rt) == nil || !hasColumn(table(rt), rc) {
				add(t.Name, c.Name, "ref_target_unknown", "ref=%s points to an unknown column", c.Ref)
			}
		}
	}

	for _, e := range doc.Editors {
		// alias -> таблица
		aliases := map[string]string{}
		for _, name := range append([]string{e.Table}, e.Tables...) {
			aliases[strings.ToLower(name)] = name
			if strict && table(name) == nil {
				add(e.Name, "", "table_unknown", "table %q is not declared", name)
			}
		}
		for _, j := range e.Joins {
			t, alias := joinTable(j.Table)
			aliases[strings.ToLower(alias)] = t
			if strict && table(t) == nil {
				add(e.Name, "", "join_table_unknown", "joined table %q is not declared", t)
			}
		}
		for f := range e.Flags {
			if !knownFlags[f] {
				add(e.Name, "", "flag_unknown", "unknown flag %q", f)
			}
		}

		for _, f := range e.Fields {
			lintField(e, f, aliases, doc, enums, strict, add)
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Entity != issues[j].Entity {
			return issues[i].Entity < issues[j].Entity
		}
		return issues[i].Field < issues[j].Field
	})
	return issues
}

func hasColumn(t *dsl.Table, col string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, col) {
			return true
		}
	}
	return false
}

func lintField(e *dsl.Editor, f dsl.Field, aliases map[string]string, doc *dsl.Document, enums reference.Catalog, strict bool,
	add func(entity, field, code, format string, args ...any)) {
	qual, col, qualified := strings.Cut(f.DB, ".")
	if !qualified {
		col = f.DB
		if len(e.Joins) > 0 {
			add(e.Name, f.DB, "field_unqualified", "fields must be written as table.column when the editor has joins")
		}
	}

	if strict {
		tname := e.Table
		if qualified {
			tname = aliases[strings.ToLower(qual)]
		}
		switch t := doc.Tables[strings.ToLower(tname)]; {
		case tname == "":
			add(e.Name, f.DB, "table_unknown", "%q is neither a table nor a join alias of the editor", qual)
		case t != nil && !hasColumn(t, col):
			add(e.Name, f.DB, "column_unknown", "table %s has no column %q", t.Name, col)
		}
	}

	if v, ok := f.Options["set"]; ok {
		if _, ok := editor.ParseSetType(v); !ok {
			add(e.Name, f.DB, "set_invalid", "set=%q, want none|both|create|edit", v)
		}
	}
	for _, k := range []string{"get_format", "set_format"} {
		if v := f.Options[k]; v != "" {
			if _, err := parseFormatter(v); err != nil {
				add(e.Name, f.DB, "formatter_invalid", "%s: %v", k, err)
			}
		}
	}

	var enum *reference.EnumDirectory
	if v := f.Options["options"]; v != "" {
		name, rest, _ := strings.Cut(v, ":")
		if strings.EqualFold(name, "enum") {
			if dir, ok := enums.Get(rest); ok {
				enum = &dir
			} else {
				add(e.Name, f.DB, "enum_unknown", "enum %q is not loaded", rest)
			}
		} else if strict {
			if t := doc.Tables[strings.ToLower(name)]; t == nil {
				add(e.Name, f.DB, "options_table_unknown", "options table %q is not declared", name)
			} else {
				cols := strings.Split(rest, ":")
				if len(cols) > 1 {
					cols = append(cols[:1], strings.Split(cols[1], "+")...)
				}
				for _, c := range cols {
					if c != "" && !hasColumn(t, c) {
						add(e.Name, f.DB, "options_column_unknown", "options table %s has no column %q", t.Name, c)
					}
				}
			}
		}
	}
	fc := fieldContext{msg: f.Options["msg"], enum: enum}
	for _, tok := range f.Validate {
		if _, err := parseValidator(tok, fc); err != nil {
			add(e.Name, f.DB, "validator_invalid", "%v", err)
		}
	}

	if v := f.Options["upload"]; v != "" && strict {
		if t := doc.Tables[strings.ToLower(v)]; t == nil {
			add(e.Name, f.DB, "upload_table_unknown", "upload table %q is not declared", v)
		} else {
			for _, c := range []string{defaultUploadColumns.Name, defaultUploadColumns.Mime, defaultUploadColumns.Size,
				defaultUploadColumns.Key, defaultUploadColumns.Hash} {
				if !hasColumn(t, c) {
					add(e.Name, f.DB, "upload_table_invalid", "upload table %s has no column %q", t.Name, c)
				}
			}
		}
	}
}
