// Package store выполняет структурированные SELECT/INSERT/UPDATE/DELETE поверх
// database/sql. Значения всегда уходят параметрами, идентификаторы квотируются.
package store

import (
	"context"
	"errors"
)

var ErrNoDB = errors.New("store: no database")

// Cond: одно условие "column op value". Column может быть квалифицирован
// ("users.id") в SELECT; в UPDATE/DELETE используется имя колонки таблицы.
type Cond struct {
	Column string
	Op     string // "=" по умолчанию
	Value  any
}

// Eq: короткая запись для равенства.
func Eq(column string, v any) Cond { return Cond{Column: column, Op: "=", Value: v} }

// Filter: все Where через AND, плюс AnyOf как OR из AND-групп.
type Filter struct {
	Where []Cond
	AnyOf [][]Cond
}

// Column в списке выборки. Ключ в Row: As (или Expr, если As пуст).
type Column struct {
	Expr string
	As   string
}

type Join struct {
	Table string // физическая таблица
	Alias string // пусто, если совпадает с Table
	Left  string
	Op    string
	Right string
}

type Select struct {
	Table    string
	Alias    string
	Columns  []Column
	Joins    []Join
	Filter   Filter
	Distinct bool
	OrderBy  []string
}

type Insert struct {
	Table     string
	Values    map[string]any
	Returning string // колонка, значение которой вернуть (обычно pkey)
}

type Update struct {
	Table  string
	Set    map[string]any
	Filter Filter
}

type Delete struct {
	Table  string
	Filter Filter
}

// Row: строка результата, ключ = алиас колонки.
type Row map[string]any

// Store: то, что нужно движку от хранилища.
type Store interface {
	Select(ctx context.Context, q Select) ([]Row, error)
	// Insert возвращает значение колонки Returning (nil, если она не задана).
	Insert(ctx context.Context, q Insert) (any, error)
	Update(ctx context.Context, q Update) (int64, error)
	Delete(ctx context.Context, q Delete) (int64, error)
	// Tx выполняет fn в одной транзакции. Вложенный вызов переиспользует текущую.
	Tx(ctx context.Context, fn func(Store) error) error
}
