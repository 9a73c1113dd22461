package nested

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// FormKeyOrder возвращает ключи второго уровня под root в порядке первого
// появления в urlencoded-строке: "data[10][a]=1&data[2][a]=2" -> ["10", "2"].
func FormKeyOrder(encoded, root string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, pair := range strings.Split(encoded, "&") {
		if pair == "" {
			continue
		}
		k, _, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		parts, _ := parseKey(key)
		if len(parts) < 2 || parts[0] != root {
			continue
		}
		if _, ok := seen[parts[1]]; ok {
			continue
		}
		seen[parts[1]] = struct{}{}
		out = append(out, parts[1])
	}
	return out
}

// JSONKeyOrder: ключи объекта body[root] в порядке следования в документе.
// Если тело или root не объект, возвращает nil.
func JSONKeyOrder(body []byte, root string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if key, _ := tok.(string); key != root {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, nil
		}
		var out []string
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			out = append(out, tok.(string))
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, nil
}
