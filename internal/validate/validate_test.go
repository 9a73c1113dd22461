package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudbind/internal/editor"
	"crudbind/internal/nested"
	"crudbind/internal/store"
)

func run(t *testing.T, v editor.Validator, val any) string {
	t.Helper()
	msg, err := v(context.Background(), val, nested.Record{}, editor.Host{})
	require.NoError(t, err)
	return msg
}

func TestCommonOptions(t *testing.T) {
	tests := []struct {
		name string
		v    editor.Validator
		val  any
		want string
	}{
		{"basic nil", Basic(), nil, ""},
		{"basic empty", Basic(), "", ""},
		{"required nil", Required(), nil, DefaultMessage},
		{"required empty", Required(Options{Message: "Name is required"}), "", "Name is required"},
		{"required value", Required(), "x", ""},
		{"not empty nil", NotEmpty(), nil, ""},
		{"not empty empty", NotEmpty(), "", DefaultMessage},
		{"email skips nil", Email(), nil, ""},
		{"email required nil", Email(Options{Required: true}), nil, DefaultMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.v, tt.val))
		})
	}
}

func TestValueValidators(t *testing.T) {
	tests := []struct {
		name string
		v    editor.Validator
		val  any
		ok   bool
	}{
		{"bool word", Boolean(), "Yes", true},
		{"bool native", Boolean(), false, true},
		{"bool number", Boolean(), int64(1), true},
		{"bool garbage", Boolean(), "maybe", false},
		{"numeric string", Numeric(""), "12.5", true},
		{"numeric comma", Numeric(","), "12,5", true},
		{"numeric int", Numeric(""), 3, true},
		{"numeric garbage", Numeric(""), "12a", false},
		{"min num", MinNum(10, ""), "9", false},
		{"max num", MaxNum(10, ""), 10, true},
		{"min max num", MinMaxNum(1, 5, ""), 6.0, false},
		{"min len", MinLen(3), "ab", false},
		{"max len runes", MaxLen(3), "ёжи", true},
		{"min max len", MinMaxLen(2, 4), "abcde", false},
		{"email", Email(), "ann@example.com", true},
		{"email bad", Email(), "ann@", false},
		{"url", URL(), "https://example.com/x", true},
		{"url bad", URL(), "example", false},
		{"ip v4", IP(), "192.168.0.1", true},
		{"ip bad", IP(), "300.1.1.1", false},
		{"values", Values([]any{"a", 2}), 2, true},
		{"values string form", Values([]any{"a", 2}), "2", true},
		{"values miss", Values([]any{"a"}), "b", false},
		{"no tags", NoTags(), "plain text", true},
		{"tags", NoTags(), "<b>bold</b>", false},
		{"date", DateFormat("2006-01-02"), "2024-02-29", true},
		{"date invalid day", DateFormat("2006-01-02"), "2023-02-29", false},
		{"date wrong layout", DateFormat("2006-01-02"), "29/02/2024", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := run(t, tt.v, tt.val)
			if tt.ok {
				assert.Empty(t, msg)
			} else {
				assert.Equal(t, DefaultMessage, msg)
			}
		})
	}
}

func newStore(t *testing.T) *store.SQL {
	t.Helper()
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = st.DB().Exec(`
CREATE TABLE sites (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, site INTEGER);
INSERT INTO sites (id, name) VALUES (1, 'Edinburgh'), (2, 'London');
INSERT INTO users (id, email, site) VALUES (1, 'ann@example.com', 1), (2, 'bob@example.com', 2);
`)
	require.NoError(t, err)
	return st
}

func TestDBValues(t *testing.T) {
	st := newStore(t)
	site := editor.NewField("site", editor.WithOptions(&editor.Options{Table: "sites", Value: "id", Label: []string{"name"}}))
	e, err := editor.New(st, "users", editor.WithFields(site))
	require.NoError(t, err)
	host := editor.Host{Action: editor.ActionCreate, Field: site, Editor: e}

	v := DBValues(Lookup{})
	msg, err := v(context.Background(), 2, nil, host)
	require.NoError(t, err)
	assert.Empty(t, msg)

	msg, err = v(context.Background(), 9, nil, host)
	require.NoError(t, err)
	assert.Equal(t, DefaultMessage, msg)

	msg, err = DBValues(Lookup{Values: []any{9}})(context.Background(), "9", nil, host)
	require.NoError(t, err)
	assert.Empty(t, msg)

	bare := editor.NewField("email")
	_, err = DBValues(Lookup{})(context.Background(), "x", nil, editor.Host{Field: bare, Editor: e})
	assert.Error(t, err)
}

func TestDBUnique(t *testing.T) {
	st := newStore(t)
	email := editor.NewField("email", editor.Check(DBUnique(Lookup{}, Options{Message: "Email already in use"})))
	e, err := editor.New(st, "users", editor.WithFields(email))
	require.NoError(t, err)
	ctx := context.Background()

	errs, ok, err := e.Validate(ctx, &editor.Request{
		Action: "create",
		Data:   map[string]nested.Record{"0": {"email": "ann@example.com"}},
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []editor.FieldError{{ID: "0", Name: "email", Status: "Email already in use"}}, errs)

	// своя строка не дубликат
	_, ok, err = e.Validate(ctx, &editor.Request{
		Action: "edit",
		Data:   map[string]nested.Record{"row_1": {"email": "ann@example.com"}},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = e.Validate(ctx, &editor.Request{
		Action: "edit",
		Data:   map[string]nested.Record{"row_2": {"email": "ann@example.com"}},
	})
	require.NoError(t, err)
	assert.False(t, ok)

	out, err := e.Process(ctx, &editor.Request{
		Action: "create",
		Data:   map[string]nested.Record{"0": {"email": "cy@example.com"}},
	})
	require.NoError(t, err)
	assert.Empty(t, out.FieldErrors)
	require.Len(t, out.Data, 1)
}
