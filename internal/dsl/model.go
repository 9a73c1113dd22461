package dsl

// Column: колонка таблицы из блока table.
type Column struct {
	Name     string
	Type     string // serial, int, bigint, float, decimal, string, text, bool, date, datetime
	PK       bool
	Required bool
	Unique   bool
	Default  string
	Ref      string // "table.column"
}

// Table описывает таблицу; по нему генерируется DDL и проверяются ссылки редакторов.
type Table struct {
	Name    string
	Columns []Column
	File    string
}

// PKey: колонки с флагом pk в порядке объявления.
func (t *Table) PKey() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PK {
			out = append(out, c.Name)
		}
	}
	return out
}

type Join struct {
	Table string // может быть "users as manager"
	Left  string
	Op    string
	Right string
}

// Field: строка "field <колонка>: опции".
type Field struct {
	DB       string
	Options  map[string]string // name, set, get, options, upload, msg ...
	Validate []string          // по порядку: "required", "min_len:3", "values:a|b"
	Line     int
}

// Editor: блок editor.
type Editor struct {
	Name   string
	Table  string   // основная таблица
	Tables []string // дополнительные основные таблицы
	PKey   []string
	Prefix string
	Joins  []Join
	Fields []Field
	Flags  map[string]bool // readonly, debug, novalidate, remove_joined
	File   string
	Line   int
}

// Document: всё, что прочитано из набора .dsl файлов. Ключи в нижнем регистре.
type Document struct {
	Tables  map[string]*Table
	Editors map[string]*Editor
}

func NewDocument() *Document {
	return &Document{Tables: map[string]*Table{}, Editors: map[string]*Editor{}}
}
