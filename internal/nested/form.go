package nested

import (
	"sort"
	"strings"
)

// Unflatten сворачивает ключи формы в скобочной нотации во вложенную запись:
//
//	data[7][profile][name]=Ann  -> {"data": {"7": {"profile": {"name": "Ann"}}}}
//	data[7][tags][]=a&...[]=b   -> {"data": {"7": {"tags": ["a", "b"]}}}
//
// Результат не зависит от порядка ключей. Ключ, который одновременно лист и
// контейнер, даёт ErrConflictingPath.
func Unflatten(form map[string][]string) (Record, error) {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := Record{}
	for _, k := range keys {
		parts, list := parseKey(k)
		vals := form[k]

		var v any
		switch {
		case list:
			arr := make([]any, 0, len(vals))
			for _, s := range vals {
				arr = append(arr, s)
			}
			v = arr
		case len(vals) == 0:
			v = ""
		default:
			// повтор скалярного ключа: берём последнее значение
			v = vals[len(vals)-1]
		}

		if err := writeSegments(out, parts, v, k); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parseKey: "data[7][name]" -> ["data","7","name"]; хвостовые "[]" означают список.
func parseKey(key string) ([]string, bool) {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}, false
	}
	parts := []string{key[:i]}
	rest := key[i:]
	list := false
	for len(rest) > 0 {
		if rest[0] != '[' {
			// мусор между скобками: считаем ключ литералом
			return []string{key}, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}, false
		}
		seg := rest[1:end]
		rest = rest[end+1:]
		if seg == "" && rest == "" {
			list = true
			break
		}
		parts = append(parts, seg)
	}
	return parts, list
}
