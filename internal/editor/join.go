package editor

import "strings"

// Join: левое соединение основной сущности с дополнительной таблицей.
// Table может содержать алиас: "users as manager".
type Join struct {
	Table string `json:"table"`
	Left  string `json:"left"`
	Op    string `json:"op"`
	Right string `json:"right"`
}

func (j Join) alias() string { return aliasOf(j.Table) }
func (j Join) orig() string  { return origOf(j.Table) }

// links определяет, какая сторона ссылается на уже известную (родительскую)
// строку, а какая: колонка дочерней таблицы. Если табличная часть левой
// стороны совпадает с алиасом присоединяемой таблицы, стороны меняются местами.
func (j Join) links() (parent, child string) {
	if strings.EqualFold(tableOf(j.Left), j.alias()) {
		return j.Right, j.Left
	}
	return j.Left, j.Right
}
