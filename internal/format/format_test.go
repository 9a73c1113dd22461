package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDates(t *testing.T) {
	get := SQLDateToFormat("02/01/2006")
	assert.Equal(t, "29/02/2024", get("2024-02-29", nil))
	assert.Equal(t, "01/03/2024", get(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), nil))
	assert.Nil(t, get(nil, nil))
	assert.Equal(t, "garbage", get("garbage", nil))

	set := FormatToSQLDate("02/01/2006")
	assert.Equal(t, "2024-02-29", set("29/02/2024", nil))
	assert.Nil(t, set("", nil))

	dt := DateTime("2006-01-02 15:04", time.Kitchen)
	assert.Equal(t, "3:04PM", dt("2024-01-01 15:04", nil))
	assert.Nil(t, dt("nope", nil))
}

func TestLists(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, Explode("|")("a|b", nil))
	assert.Equal(t, []any{}, Explode("|")(nil, nil))
	assert.Equal(t, "a|b", Implode("|")([]any{"a", "b"}, nil))
	assert.Equal(t, "a,b", Implode(",")([]string{"a", "b"}, nil))
}

func TestScalars(t *testing.T) {
	assert.Nil(t, IfEmpty(nil)("", nil))
	assert.Equal(t, "x", IfEmpty(nil)("x", nil))
	assert.Equal(t, "12.5", FromDecimalChar(",")("12,5", nil))
	assert.Equal(t, "12,5", ToDecimalChar(",")(12.5, nil))
}
