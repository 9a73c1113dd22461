package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"crudbind/internal/editor"
	"crudbind/internal/format"
	"crudbind/internal/reference"
	"crudbind/internal/validate"
)

// Запись в DSL: "имя" или "имя:арг1|арг2".
func splitToken(tok string) (string, []string) {
	name, rest, ok := strings.Cut(strings.TrimSpace(tok), ":")
	name = strings.ToLower(strings.TrimSpace(name))
	if !ok || rest == "" {
		return name, nil
	}
	return name, strings.Split(rest, "|")
}

func wantArgs(name string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: want %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func floats(name string, args []string, n int) ([]float64, error) {
	if err := wantArgs(name, args, n); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad number %q", name, a)
		}
		out[i] = f
	}
	return out, nil
}

func ints(name string, args []string, n int) ([]int, error) {
	if err := wantArgs(name, args, n); err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("%s: bad integer %q", name, a)
		}
		out[i] = v
	}
	return out, nil
}

// fieldContext: то, что нужно проверкам кроме самой строки из DSL.
type fieldContext struct {
	msg   string
	enum  *reference.EnumDirectory // справочник поля, если options=enum:...
	now   time.Time
	table string // для db_* по умолчанию
}

// parseValidator строит проверку по спецификации из DSL.
func parseValidator(tok string, fc fieldContext) (editor.Validator, error) {
	name, args := splitToken(tok)
	o := validate.Options{Message: fc.msg}
	switch name {
	case "basic":
		return validate.Basic(o), nil
	case "required":
		return validate.Required(o), nil
	case "not_empty":
		return validate.NotEmpty(o), nil
	case "boolean":
		return validate.Boolean(o), nil
	case "numeric":
		dec := ""
		if len(args) > 0 {
			dec = args[0]
		}
		return validate.Numeric(dec, o), nil
	case "min_num":
		f, err := floats(name, args, 1)
		if err != nil {
			return nil, err
		}
		return validate.MinNum(f[0], "", o), nil
	case "max_num":
		f, err := floats(name, args, 1)
		if err != nil {
			return nil, err
		}
		return validate.MaxNum(f[0], "", o), nil
	case "min_max_num":
		f, err := floats(name, args, 2)
		if err != nil {
			return nil, err
		}
		return validate.MinMaxNum(f[0], f[1], "", o), nil
	case "min_len":
		n, err := ints(name, args, 1)
		if err != nil {
			return nil, err
		}
		return validate.MinLen(n[0], o), nil
	case "max_len":
		n, err := ints(name, args, 1)
		if err != nil {
			return nil, err
		}
		return validate.MaxLen(n[0], o), nil
	case "min_max_len":
		n, err := ints(name, args, 2)
		if err != nil {
			return nil, err
		}
		return validate.MinMaxLen(n[0], n[1], o), nil
	case "email":
		return validate.Email(o), nil
	case "url":
		return validate.URL(o), nil
	case "ip":
		return validate.IP(o), nil
	case "no_tags":
		return validate.NoTags(o), nil
	case "date_format":
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		return validate.DateFormat(args[0], o), nil
	case "values":
		if len(args) > 0 {
			vals := make([]any, len(args))
			for i, a := range args {
				vals[i] = a
			}
			return validate.Values(vals, o), nil
		}
		if fc.enum == nil {
			return nil, fmt.Errorf("values: no list given and the field has no enum options")
		}
		return validate.Values(fc.enum.Codes(fc.now), o), nil
	case "db_values":
		l := validate.Lookup{}
		if len(args) == 2 {
			l.Table, l.Column = args[0], args[1]
		}
		return validate.DBValues(l, o), nil
	case "db_unique":
		return validate.DBUnique(validate.Lookup{}, o), nil
	}
	return nil, fmt.Errorf("unknown validator %q", name)
}

// parseFormatter строит get/set-форматтер по спецификации из DSL.
func parseFormatter(tok string) (editor.Formatter, error) {
	name, args := splitToken(tok)
	arg := func(def string) string {
		if len(args) > 0 {
			return args[0]
		}
		return def
	}
	switch name {
	case "sql_date":
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		return format.SQLDateToFormat(args[0]), nil
	case "to_sql_date":
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		return format.FormatToSQLDate(args[0]), nil
	case "date_time":
		if err := wantArgs(name, args, 2); err != nil {
			return nil, err
		}
		return format.DateTime(args[0], args[1]), nil
	case "explode":
		return format.Explode(arg("|")), nil
	case "implode":
		return format.Implode(arg("|")), nil
	case "if_empty":
		if len(args) == 0 {
			return format.IfEmpty(nil), nil
		}
		return format.IfEmpty(args[0]), nil
	case "from_decimal_char":
		return format.FromDecimalChar(arg(",")), nil
	case "to_decimal_char":
		return format.ToDecimalChar(arg(",")), nil
	}
	return nil, fmt.Errorf("unknown formatter %q", name)
}
