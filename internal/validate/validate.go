// Package validate: готовые проверки полей редактора.
//
// Каждая функция возвращает editor.Validator. Общие правила задаёт Options:
// отсутствующее значение (nil) и пустая строка по умолчанию допустимы, тогда
// собственная проверка не выполняется.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	govalidator "github.com/go-playground/validator/v10"

	"crudbind/internal/editor"
	"crudbind/internal/nested"
)

const DefaultMessage = "Input not valid"

// Options: общие настройки проверки.
type Options struct {
	Message  string
	Required bool // значение обязано прийти (не nil)
	NotEmpty bool // пустая строка недопустима
}

func (o Options) msg() string {
	if o.Message == "" {
		return DefaultMessage
	}
	return o.Message
}

func pick(opts []Options) Options {
	if len(opts) == 0 {
		return Options{}
	}
	return opts[0]
}

// common: при done=true решение принято без собственной проверки.
func (o Options) common(v any) (msg string, done bool) {
	if v == nil {
		if o.Required {
			return o.msg(), true
		}
		return "", true
	}
	if s, ok := v.(string); ok && s == "" {
		if o.NotEmpty {
			return o.msg(), true
		}
		return "", true
	}
	return "", false
}

// check оборачивает проверку значения, уже прошедшего common.
func check(o Options, ok func(v any) bool) editor.Validator {
	return func(_ context.Context, v any, _ nested.Record, _ editor.Host) (string, error) {
		if msg, done := o.common(v); done {
			return msg, nil
		}
		if ok(v) {
			return "", nil
		}
		return o.msg(), nil
	}
}

// Basic проверяет только общие правила.
func Basic(opts ...Options) editor.Validator {
	return check(pick(opts), func(any) bool { return true })
}

// Required: значение должно прийти и быть непустым.
func Required(opts ...Options) editor.Validator {
	o := pick(opts)
	o.Required, o.NotEmpty = true, true
	return Basic(o)
}

// NotEmpty: может не прийти, но если пришло, то непустое.
func NotEmpty(opts ...Options) editor.Validator {
	o := pick(opts)
	o.NotEmpty = true
	return Basic(o)
}

var boolWords = map[string]bool{
	"1": true, "true": true, "t": true, "on": true, "yes": true, "✓": true,
	"0": true, "false": true, "f": true, "off": true, "no": true, "x": true,
}

func Boolean(opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		switch t := v.(type) {
		case bool:
			return true
		case int, int64, float64:
			s := fmt.Sprint(t)
			return s == "0" || s == "1"
		case string:
			return boolWords[strings.ToLower(t)]
		}
		return false
	})
}

// ===== числа =====

// toFloat понимает числа и строки с заданным десятичным разделителем.
func toFloat(v any, decimal string) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if decimal != "" && decimal != "." {
			s = strings.ReplaceAll(s, decimal, ".")
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// Numeric: decimal задаёт десятичный разделитель во входных строках ("", точка).
func Numeric(decimal string, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		_, ok := toFloat(v, decimal)
		return ok
	})
}

func MinNum(min float64, decimal string, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		f, ok := toFloat(v, decimal)
		return ok && f >= min
	})
}

func MaxNum(max float64, decimal string, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		f, ok := toFloat(v, decimal)
		return ok && f <= max
	})
}

func MinMaxNum(min, max float64, decimal string, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		f, ok := toFloat(v, decimal)
		return ok && f >= min && f <= max
	})
}

// ===== строки =====

func length(v any) int {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s)
	}
	return utf8.RuneCountInString(fmt.Sprint(v))
}

func MinLen(min int, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool { return length(v) >= min })
}

func MaxLen(max int, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool { return length(v) <= max })
}

func MinMaxLen(min, max int, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		n := length(v)
		return n >= min && n <= max
	})
}

var tags = govalidator.New()

// byTag: строковая проверка тегом go-playground/validator.
func byTag(tag string, opts []Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		s, ok := v.(string)
		return ok && tags.Var(s, tag) == nil
	})
}

func Email(opts ...Options) editor.Validator { return byTag("email", opts) }
func URL(opts ...Options) editor.Validator   { return byTag("url", opts) }
func IP(opts ...Options) editor.Validator    { return byTag("ip", opts) }

// Values: значение должно совпасть с одним из списка (сравнение строкой).
func Values(allowed []any, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		s := fmt.Sprint(v)
		for _, a := range allowed {
			if fmt.Sprint(a) == s {
				return true
			}
		}
		return false
	})
}

var tagRe = regexp.MustCompile(`<.*>`)

func NoTags(opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		return !tagRe.MatchString(fmt.Sprint(v))
	})
}

// DateFormat: строка разбирается по layout и при обратном форматировании
// совпадает с исходной.
func DateFormat(layout string, opts ...Options) editor.Validator {
	return check(pick(opts), func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		t, err := time.Parse(layout, s)
		return err == nil && t.Format(layout) == s
	})
}
