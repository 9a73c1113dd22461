package nested

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnflatten(t *testing.T) {
	form := map[string][]string{
		"action":                         {"edit"},
		"data[row_7][users][id]":         {"7"},
		"data[row_7][users][first_name]": {"Ann"},
		"data[row_7][tags][]":            {"a", "b"},
		"data[row_8][name]":              {"old", "new"},
	}

	got, err := Unflatten(form)
	require.NoError(t, err)

	assert.Equal(t, Record{
		"action": "edit",
		"data": map[string]any{
			"row_7": map[string]any{
				"users": map[string]any{"id": "7", "first_name": "Ann"},
				"tags":  []any{"a", "b"},
			},
			"row_8": map[string]any{"name": "new"},
		},
	}, got)
}

func TestUnflattenConflict(t *testing.T) {
	form := map[string][]string{
		"data[1][users]":       {"x"},
		"data[1][users][name]": {"y"},
	}
	_, err := Unflatten(form)
	assert.ErrorIs(t, err, ErrConflictingPath)
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key      string
		want     []string
		wantList bool
	}{
		{key: "action", want: []string{"action"}},
		{key: "data[7][name]", want: []string{"data", "7", "name"}},
		{key: "data[7][tags][]", want: []string{"data", "7", "tags"}, wantList: true},
		{key: "data[7", want: []string{"data[7"}},
		{key: "[x]", want: []string{"[x]"}},
		{key: "data[7]x[y]", want: []string{"data[7]x[y]"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, list := parseKey(tt.key)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantList, list)
		})
	}
}
