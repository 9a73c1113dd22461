package editor

import "strings"

// splitName разбирает "db.table.column" / "table.column" / "column".
func splitName(name string) (db, table, column string) {
	a := strings.Split(name, ".")
	switch len(a) {
	case 3:
		return a[0], a[1], a[2]
	case 2:
		return "", a[0], a[1]
	default:
		return "", "", name
	}
}

// tableOf: табличная часть имени вместе с префиксом БД, если он есть.
func tableOf(name string) string {
	db, table, _ := splitName(name)
	if db != "" {
		return db + "." + table
	}
	return table
}

func columnOf(name string) string {
	_, _, c := splitName(name)
	return c
}

func qualified(name string) bool { return strings.Contains(name, ".") }

// aliasOf: "users as manager" / "users manager" -> "manager"; "users" -> "users".
func aliasOf(table string) string {
	_, alias := splitAlias(table)
	return alias
}

// origOf: "users as manager" -> "users".
func origOf(table string) string {
	orig, _ := splitAlias(table)
	return orig
}

func splitAlias(table string) (string, string) {
	t := strings.TrimSpace(table)
	if i := strings.Index(strings.ToLower(t), " as "); i >= 0 {
		return strings.TrimSpace(t[:i]), strings.TrimSpace(t[i+4:])
	}
	if f := strings.Fields(t); len(f) == 2 {
		return f[0], f[1]
	}
	return t, t
}
