package store

import (
	"fmt"
	"strings"
)

// Поддерживаемые диалекты.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DetectDialect определяет диалект по DSN. Пустой DSN: SQLite в памяти.
func DetectDialect(dsn string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case lower == "":
		return DialectSQLite, nil
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, nil
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") || strings.Contains(lower, "sslmode="):
		return DialectPostgres, nil
	case strings.HasPrefix(lower, "file:"),
		strings.HasPrefix(lower, "sqlite://"),
		lower == ":memory:",
		!strings.Contains(lower, "://"):
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("store: unsupported dsn: %s", dsn)
	}
}

// QuoteIdent квотирует "db.table.column" по частям.
func QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(strings.TrimSpace(p), `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

var allowedOps = map[string]struct{}{
	"=": {}, "!=": {}, "<>": {}, "<": {}, "<=": {}, ">": {}, ">=": {}, "like": {},
}

func normalizeOp(op string) (string, error) {
	op = strings.ToLower(strings.TrimSpace(op))
	if op == "" {
		return "=", nil
	}
	if _, ok := allowedOps[op]; !ok {
		return "", fmt.Errorf("store: unsupported operator %q", op)
	}
	if op == "like" {
		return "LIKE", nil
	}
	return op, nil
}
