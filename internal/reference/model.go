package reference

import (
	"sort"
	"time"

	"crudbind/internal/editor"
)

// EnumDirectory: один справочник-перечисление.
type EnumDirectory struct {
	Name  string     `yaml:"name" json:"name"`
	Items []EnumItem `yaml:"items" json:"items"`
}

type EnumItem struct {
	Code      string `yaml:"code" json:"code"`
	Name      string `yaml:"name" json:"name"`
	Order     int    `yaml:"order,omitempty" json:"order,omitempty"`
	ValidFrom string `yaml:"valid_from,omitempty" json:"valid_from,omitempty"` // YYYY-MM-DD, включительно
	ValidTo   string `yaml:"valid_to,omitempty" json:"valid_to,omitempty"`
}

// Active: действует ли пункт на дату at. Неразборчивые даты не ограничивают.
func (it EnumItem) Active(at time.Time) bool {
	day := at.Format(time.DateOnly)
	if it.ValidFrom != "" {
		if _, err := time.Parse(time.DateOnly, it.ValidFrom); err == nil && day < it.ValidFrom {
			return false
		}
	}
	if it.ValidTo != "" {
		if _, err := time.Parse(time.DateOnly, it.ValidTo); err == nil && day > it.ValidTo {
			return false
		}
	}
	return true
}

func (d EnumDirectory) active(at time.Time) []EnumItem {
	out := make([]EnumItem, 0, len(d.Items))
	for _, it := range d.Items {
		if it.Active(at) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Choices: пункты для списка значений поля. Подпись берётся из Name (или Code), значение из Code.
func (d EnumDirectory) Choices(at time.Time) []editor.Choice {
	items := d.active(at)
	out := make([]editor.Choice, 0, len(items))
	for _, it := range items {
		label := it.Name
		if label == "" {
			label = it.Code
		}
		out = append(out, editor.Choice{Label: label, Value: it.Code})
	}
	return out
}

// Codes: допустимые значения для проверки.
func (d EnumDirectory) Codes(at time.Time) []any {
	items := d.active(at)
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.Code)
	}
	return out
}
