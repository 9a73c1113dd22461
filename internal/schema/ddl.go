// Package schema генерирует DDL из описаний таблиц и применяет его идемпотентно.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"crudbind/internal/dsl"
	"crudbind/internal/store"
)

var pgTypes = map[string]string{
	"serial":   "bigserial",
	"int":      "bigint",
	"bigint":   "bigint",
	"float":    "double precision",
	"decimal":  "numeric(18,2)",
	"string":   "text",
	"text":     "text",
	"bool":     "boolean",
	"date":     "date",
	"datetime": "timestamp with time zone",
}

var sqliteTypes = map[string]string{
	"serial":   "integer",
	"int":      "integer",
	"bigint":   "integer",
	"float":    "real",
	"decimal":  "numeric",
	"string":   "text",
	"text":     "text",
	"bool":     "integer",
	"date":     "text",
	"datetime": "text",
}

func ident(s string) string { return store.QuoteIdent(strings.ToLower(s)) }

func literal(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

// splitRef: "sites.id" -> sites, id; "sites" -> sites, id.
func splitRef(ref string) (string, string) {
	i := strings.LastIndex(ref, ".")
	if i < 0 {
		return ref, "id"
	}
	return ref[:i], ref[i+1:]
}

// GenerateDDL возвращает карту ключ -> SQL. Ключи задают порядок применения:
// 100_* таблицы и индексы, 200_* внешние ключи (только Postgres).
func GenerateDDL(tables map[string]*dsl.Table, dialect string) (map[string]string, error) {
	types := pgTypes
	if dialect == store.DialectSQLite {
		types = sqliteTypes
	}

	names := make([]string, 0, len(tables))
	for k := range tables {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make(map[string]string, len(tables)+1)
	var fks strings.Builder
	for _, key := range names {
		t := tables[key]
		tbl := strings.ToLower(t.Name)
		pkey := t.PKey()
		if len(pkey) == 0 {
			return nil, fmt.Errorf("table %s: no pk column", t.Name)
		}
		inlinePK := len(pkey) == 1

		var sb strings.Builder
		cols := make([]string, 0, len(t.Columns)+1)
		for _, c := range t.Columns {
			typ, ok := types[c.Type]
			if !ok {
				return nil, fmt.Errorf("%s.%s: unknown type %s", t.Name, c.Name, c.Type)
			}
			def := ident(c.Name) + " " + typ
			switch {
			case c.PK && inlinePK && c.Type == "serial" && dialect == store.DialectSQLite:
				def += " primary key autoincrement"
			case c.PK && inlinePK:
				def += " primary key"
			case c.Required:
				def += " not null"
			}
			if c.Default != "" {
				def += " default " + literal(c.Default)
			}
			if c.Ref != "" && dialect == store.DialectSQLite {
				rt, rc := splitRef(c.Ref)
				def += fmt.Sprintf(" references %s(%s)", ident(rt), ident(rc))
			}
			cols = append(cols, def)
		}
		if !inlinePK {
			parts := make([]string, 0, len(pkey))
			for _, p := range pkey {
				parts = append(parts, ident(p))
			}
			cols = append(cols, "primary key ("+strings.Join(parts, ", ")+")")
		}
		fmt.Fprintf(&sb, "create table if not exists %s (\n  %s\n);\n", ident(tbl), strings.Join(cols, ",\n  "))

		for _, c := range t.Columns {
			if c.Unique && !c.PK {
				fmt.Fprintf(&sb, "create unique index if not exists %s on %s(%s);\n",
					ident(tbl+"_"+strings.ToLower(c.Name)+"_uq"), ident(tbl), ident(c.Name))
			}
			if c.Ref != "" && dialect != store.DialectSQLite {
				rt, rc := splitRef(c.Ref)
				fmt.Fprintf(&fks, "alter table %s add constraint %s foreign key (%s) references %s(%s) on delete restrict;\n",
					ident(tbl), ident(tbl+"_"+strings.ToLower(c.Name)+"_fk"), ident(c.Name), ident(rt), ident(rc))
			}
		}
		out["100_"+tbl] = sb.String()
	}
	if fks.Len() > 0 {
		out["200_foreign_keys"] = fks.String()
	}
	return out, nil
}
