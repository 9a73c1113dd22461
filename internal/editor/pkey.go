package editor

import (
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
	"time"

	"crudbind/internal/nested"
)

// KeyCodec склеивает значения колонок первичного ключа в один идентификатор строки
// и разбирает его обратно. Разделитель выводится из имён колонок (CRC32), так что
// он не совпадёт со случайным символом внутри значения.
type KeyCodec struct {
	prefix  string
	columns []string
	sep     string
}

func NewKeyCodec(prefix string, columns []string) KeyCodec {
	cols := append([]string(nil), columns...)
	sum := crc32.ChecksumIEEE([]byte(strings.Join(cols, ",")))
	return KeyCodec{
		prefix:  prefix,
		columns: cols,
		sep:     "_" + strconv.FormatUint(uint64(sum), 16) + "_",
	}
}

func (k KeyCodec) Separator() string { return k.sep }
func (k KeyCodec) Prefix() string    { return k.prefix }
func (k KeyCodec) Columns() []string { return append([]string(nil), k.columns...) }

// Encode возвращает идентификатор строки с префиксом.
func (k KeyCodec) Encode(values map[string]any, flat bool) (string, error) {
	v, err := k.Value(values, flat)
	if err != nil {
		return "", err
	}
	return k.prefix + v, nil
}

// Value: идентификатор без префикса. flat: ключи values, имена колонок как есть;
// иначе значения читаются по вложенному пути.
func (k KeyCodec) Value(values map[string]any, flat bool) (string, error) {
	parts := make([]string, 0, len(k.columns))
	for _, col := range k.columns {
		var (
			v  any
			ok bool
		)
		if flat {
			v, ok = values[col]
		} else {
			v, ok = nested.Read(col, values)
		}
		if !ok || v == nil {
			return "", fmt.Errorf("%w: %s", ErrMissingKeyComponent, col)
		}
		parts = append(parts, keyString(v))
	}
	return strings.Join(parts, k.sep), nil
}

// Strip снимает префикс с присланного ключа.
func (k KeyCodec) Strip(id string) string { return strings.TrimPrefix(id, k.prefix) }

// Decode разбирает идентификатор по колонкам кодека.
func (k KeyCodec) Decode(id string) (map[string]string, error) {
	return k.DecodeWith(id, k.columns)
}

// DecodeWith разбирает идентификатор, раскладывая части по columns. Разделитель
// всегда от колонок кодека: id, собранный для другого набора колонок, не сойдётся.
func (k KeyCodec) DecodeWith(id string, columns []string) (map[string]string, error) {
	parts := strings.Split(k.Strip(id), k.sep)
	if len(parts) != len(columns) {
		return nil, fmt.Errorf("%w: got %d parts for %d key columns", ErrKeyArity, len(parts), len(columns))
	}
	out := make(map[string]string, len(columns))
	for i, c := range columns {
		out[c] = parts[i]
	}
	return out, nil
}

// keyString пишет даты в ISO-8601, чтобы не было неоднозначных разделителей.
func keyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 && t.Location() == time.UTC {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
