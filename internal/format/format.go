// Package format: готовые get/set-форматтеры полей.
// Раскладки дат: в нотации Go (time.Layout).
package format

import (
	"fmt"
	"strings"
	"time"

	"crudbind/internal/editor"
	"crudbind/internal/nested"
)

// SQLDate: формат DATE в БД.
const SQLDate = time.DateOnly

func parseDate(v any, layout string) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		d, err := time.Parse(layout, t)
		return d, err == nil
	}
	return time.Time{}, false
}

// SQLDateToFormat: дата из БД -> строка в layout. Для get.
func SQLDateToFormat(layout string) editor.Formatter {
	return func(v any, _ nested.Record) any {
		if v == nil {
			return nil
		}
		d, ok := parseDate(v, SQLDate)
		if !ok {
			return v
		}
		return d.Format(layout)
	}
}

// FormatToSQLDate: строка в layout -> дата для БД. Пустое значение даёт NULL. Для set.
func FormatToSQLDate(layout string) editor.Formatter {
	return func(v any, _ nested.Record) any {
		if v == nil || v == "" {
			return nil
		}
		d, ok := parseDate(v, layout)
		if !ok {
			return v
		}
		return d.Format(SQLDate)
	}
}

// DateTime переводит строку из одной раскладки в другую; не разобралось: nil.
func DateTime(from, to string) editor.Formatter {
	return func(v any, _ nested.Record) any {
		if v == nil {
			return nil
		}
		d, ok := parseDate(v, from)
		if !ok {
			return nil
		}
		return d.Format(to)
	}
}

// Explode: "a|b" -> []any{"a", "b"} (для чекбоксов).
func Explode(sep string) editor.Formatter {
	return func(v any, _ nested.Record) any {
		if v == nil {
			return []any{}
		}
		parts := strings.Split(fmt.Sprint(v), sep)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	}
}

// Implode: обратное к Explode.
func Implode(sep string) editor.Formatter {
	return func(v any, _ nested.Record) any {
		switch t := v.(type) {
		case nil:
			return ""
		case []string:
			return strings.Join(t, sep)
		case []any:
			parts := make([]string, len(t))
			for i, p := range t {
				parts[i] = fmt.Sprint(p)
			}
			return strings.Join(parts, sep)
		}
		return fmt.Sprint(v)
	}
}

// IfEmpty заменяет пустую строку значением.
func IfEmpty(value any) editor.Formatter {
	return func(v any, _ nested.Record) any {
		if v == "" {
			return value
		}
		return v
	}
}

// FromDecimalChar: "12,5" -> "12.5". Для set.
func FromDecimalChar(char string) editor.Formatter {
	return func(v any, _ nested.Record) any {
		if v == nil {
			return nil
		}
		return strings.ReplaceAll(fmt.Sprint(v), char, ".")
	}
}

// ToDecimalChar: 12.5 -> "12,5". Для get.
func ToDecimalChar(char string) editor.Formatter {
	return func(v any, _ nested.Record) any {
		if v == nil {
			return nil
		}
		return strings.ReplaceAll(fmt.Sprint(v), ".", char)
	}
}
