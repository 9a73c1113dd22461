// Package nested читает и пишет значения по точечному пути ("users.first_name")
// во вложенных записях map[string]any.
package nested

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateField: по пути уже лежит значение.
	ErrDuplicateField = errors.New("duplicate field")
	// ErrConflictingPath: промежуточный сегмент пути не является контейнером.
	ErrConflictingPath = errors.New("conflicting path")
)

// Record: вложенная запись (строка запроса или ответа).
type Record = map[string]any

func segments(path string) []string { return strings.Split(path, ".") }

// Exists сообщает, есть ли значение по пути. Отсутствующий промежуточный
// сегмент: это просто "нет", не ошибка.
func Exists(path string, rec Record) bool {
	_, ok := Read(path, rec)
	return ok
}

// Read возвращает значение по пути.
func Read(path string, rec Record) (any, bool) {
	if rec == nil {
		return nil, false
	}
	parts := segments(path)
	cur := rec
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = m
	}
	return nil, false
}

// Write кладёт значение по пути, создавая промежуточные записи.
func Write(rec Record, path string, val any) error {
	return writeSegments(rec, segments(path), val, path)
}

func writeSegments(rec Record, parts []string, val any, path string) error {
	cur := rec
	for _, p := range parts[:len(parts)-1] {
		v, ok := cur[p]
		if !ok {
			m := map[string]any{}
			cur[p] = m
			cur = m
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q (segment %q holds a value)", ErrConflictingPath, path, p)
		}
		cur = m
	}
	leaf := parts[len(parts)-1]
	if existing, ok := cur[leaf]; ok {
		if _, isMap := existing.(map[string]any); isMap {
			return fmt.Errorf("%w: %q (already a container)", ErrConflictingPath, path)
		}
		return fmt.Errorf("%w: %q", ErrDuplicateField, path)
	}
	cur[leaf] = val
	return nil
}
