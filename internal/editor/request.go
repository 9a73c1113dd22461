package editor

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"crudbind/internal/nested"
)

// Request: уже декодированный конверт запроса.
type Request struct {
	Action string
	Data   map[string]nested.Record
	// Keys: порядок строк в пакете. Ключи Data, которых нет в Keys, идут
	// следом в естественном порядке.
	Keys   []string
	Upload *UploadRequest
}

// UploadRequest: файл для действия upload.
type UploadRequest struct {
	Field  string
	Name   string
	Mime   string
	Reader io.Reader
}

// RequestFromRecord собирает Request из вложенной записи (форма после
// nested.Unflatten или JSON-тело).
func RequestFromRecord(rec nested.Record) (*Request, error) {
	req := &Request{Data: map[string]nested.Record{}}
	if a, ok := rec["action"]; ok && a != nil {
		s, ok := a.(string)
		if !ok {
			return nil, fmt.Errorf("action must be a string, got %T", a)
		}
		req.Action = s
	}
	raw, ok := rec["data"]
	if !ok || raw == nil {
		return req, nil
	}
	data, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("data must be an object keyed by row, got %T", raw)
	}
	for k, v := range data {
		row, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("data[%s] must be an object, got %T", k, v)
		}
		req.Data[k] = row
	}
	return req, nil
}

func (r *Request) keys() []string {
	out := make([]string, 0, len(r.Data))
	seen := make(map[string]struct{}, len(r.Data))
	for _, k := range r.Keys {
		if _, ok := r.Data[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	rest := make([]string, 0, len(r.Data)-len(out))
	for k := range r.Data {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return naturalLess(rest[i], rest[j]) })
	return append(out, rest...)
}

// naturalLess: числовые ключи ("2" < "10") по значению, остальные: строкой.
func naturalLess(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return ai < bi
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// FieldError: ошибка проверки конкретного поля строки.
type FieldError struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// UploadResult: id записи о загруженном файле.
type UploadResult struct {
	ID string `json:"id"`
}

// Output: конверт ответа.
type Output struct {
	Data        []nested.Record     `json:"data"`
	FieldErrors []FieldError        `json:"fieldErrors"`
	Cancelled   []string            `json:"cancelled"`
	Options     map[string][]Choice `json:"options"`
	Error       string              `json:"error,omitempty"`
	Upload      *UploadResult       `json:"upload,omitempty"`
	Debug       []any               `json:"debug,omitempty"`
}

func newOutput() *Output {
	return &Output{
		Data:        []nested.Record{},
		FieldErrors: []FieldError{},
		Cancelled:   []string{},
		Options:     map[string][]Choice{},
	}
}
