package editor

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"crudbind/internal/store"
)

// Choice: один пункт списка значений для поля.
type Choice struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Options описывает, откуда брать список значений поля: DISTINCT value/label из
// таблицы плюс ручные пункты. Без Order список сортируется по подписи.
type Options struct {
	Table  string
	Value  string
	Label  []string
	Where  []store.Cond
	Order  string
	Manual []Choice
	Render func(row map[string]any) string
	Lang   language.Tag
}

// Exec строит список. Запрос идемпотентен.
func (o *Options) Exec(ctx context.Context, st store.Store) ([]Choice, error) {
	var out []Choice
	if o.Table != "" {
		label := o.Label
		if len(label) == 0 {
			label = []string{o.Value}
		}
		cols := []store.Column{{Expr: o.Value, As: o.Value}}
		for _, l := range label {
			if l != o.Value {
				cols = append(cols, store.Column{Expr: l, As: l})
			}
		}
		q := store.Select{Table: o.Table, Columns: cols, Distinct: true, Filter: store.Filter{Where: o.Where}}
		if o.Order != "" {
			q.OrderBy = []string{o.Order}
		}
		rows, err := st.Select(ctx, q)
		if err != nil {
			return nil, err
		}
		render := o.Render
		if render == nil {
			render = func(row map[string]any) string {
				parts := make([]string, 0, len(label))
				for _, l := range label {
					parts = append(parts, keyString(row[l]))
				}
				return strings.Join(parts, " ")
			}
		}
		for _, r := range rows {
			out = append(out, Choice{Label: render(r), Value: r[o.Value]})
		}
	}
	out = append(out, o.Manual...)

	if o.Order == "" {
		// нулевой Lang: language.Und
		c := collate.New(o.Lang)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Label, out[j].Label) < 0
		})
	}
	if out == nil {
		out = []Choice{}
	}
	return out, nil
}
