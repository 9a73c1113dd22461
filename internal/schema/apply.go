package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

// duplicate_object: внешний ключ уже есть
const pgDuplicateObject = "42710"

// Apply выполняет DDL по порядку ключей. Повторное применение не ошибка.
func Apply(ctx context.Context, db *sql.DB, ddl map[string]string) error {
	keys := make([]string, 0, len(ddl))
	for k := range ddl {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		text := strings.TrimSpace(ddl[k])
		if text == "" {
			continue
		}
		for _, stmt := range statements(text) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateObject {
					log.WithField("constraint", pgErr.ConstraintName).Debug("DDL skipped: already exists")
					continue
				}
				e := strings.ToLower(err.Error())
				if strings.Contains(e, "already exists") || strings.Contains(e, "duplicate") {
					log.WithError(err).Debug("DDL skipped: already exists")
					continue
				}
				return fmt.Errorf("apply %s: %w", k, err)
			}
		}
	}
	return nil
}

// statements режет блок по ";" в конце строки: каждый оператор выполняется
// отдельно, чтобы пропуск дубликата не отменял остальные.
func statements(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ";\n") {
		s = strings.TrimSuffix(strings.TrimSpace(s), ";")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
