package editor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudbind/internal/nested"
)

func TestFieldApply(t *testing.T) {
	sent := nested.Record{"name": "Ann"}
	empty := nested.Record{}

	tests := []struct {
		name   string
		field  *Field
		action Action
		row    nested.Record
		want   bool
	}{
		{"read default", NewField("name"), ActionRead, nil, true},
		{"read disabled", NewField("name", Readable(false)), ActionRead, nil, false},
		{"create sent", NewField("name"), ActionCreate, sent, true},
		{"create not sent", NewField("name"), ActionCreate, empty, false},
		{"create static not sent", NewField("name", SetStatic("x")), ActionCreate, empty, true},
		{"set none", NewField("name", Writable(SetNone)), ActionEdit, sent, false},
		{"edit only on create", NewField("name", Writable(SetEdit)), ActionCreate, sent, false},
		{"create only on edit", NewField("name", Writable(SetCreate)), ActionEdit, sent, false},
		{"create only on create", NewField("name", Writable(SetCreate)), ActionCreate, sent, true},
		{"delete never", NewField("name"), ActionDelete, sent, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.field.Apply(tt.action, tt.row))
		})
	}
}

func TestFieldValues(t *testing.T) {
	upper := func(v any, _ nested.Record) any { return strings.ToUpper(v.(string)) }

	f := NewField("users.first_name", FieldName("user.first"), GetFormat(upper), SetFormat(upper))
	assert.Equal(t, "ANN", f.GetVal(map[string]any{"users.first_name": "ann"}))
	assert.Equal(t, "BOB", f.SetVal(nested.Record{"user": map[string]any{"first": "bob"}}))

	calls := 0
	dyn := NewField("updated", SetStatic(func() any { calls++; return calls }))
	assert.Equal(t, 1, dyn.SetVal(nil))
	assert.Equal(t, 2, dyn.SetVal(nil))

	g := NewField("kind", GetStatic("fixed"))
	assert.Equal(t, "fixed", g.GetVal(map[string]any{"kind": "db"}))
}

func TestFieldValidateFirstFailureWins(t *testing.T) {
	var seen []string
	check := func(name, msg string) Validator {
		return func(_ context.Context, _ any, _ nested.Record, h Host) (string, error) {
			seen = append(seen, name)
			require.NotNil(t, h.Field)
			return msg, nil
		}
	}
	f := NewField("email", Check(check("a", "")), Check(check("b", "bad")), Check(check("c", "worse")))

	msg, err := f.validate(context.Background(), nested.Record{"email": "x"}, Host{Action: ActionCreate})
	require.NoError(t, err)
	assert.Equal(t, "bad", msg)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestFieldValidateFormatted(t *testing.T) {
	trim := func(v any, _ nested.Record) any { return strings.TrimSpace(v.(string)) }
	var raw, formatted any
	f := NewField("code", SetFormat(trim),
		Check(func(_ context.Context, v any, _ nested.Record, _ Host) (string, error) { raw = v; return "", nil }),
		CheckFormatted(func(_ context.Context, v any, _ nested.Record, _ Host) (string, error) { formatted = v; return "", nil }),
	)
	_, err := f.validate(context.Background(), nested.Record{"code": "  A1 "}, Host{})
	require.NoError(t, err)
	assert.Equal(t, "  A1 ", raw)
	assert.Equal(t, "A1", formatted)
}

func TestParseAction(t *testing.T) {
	assert.Equal(t, ActionRead, ParseAction(""))
	assert.Equal(t, ActionCreate, ParseAction("create"))
	assert.Equal(t, ActionDelete, ParseAction("remove"))
	assert.Equal(t, ActionUpload, ParseAction("upload"))
	assert.Equal(t, ActionUnknown, ParseAction("drop"))
	assert.Equal(t, "remove", ActionDelete.String())
}

func TestNames(t *testing.T) {
	assert.Equal(t, "users", tableOf("users.name"))
	assert.Equal(t, "crm.users", tableOf("crm.users.name"))
	assert.Equal(t, "", tableOf("name"))
	assert.Equal(t, "name", columnOf("crm.users.name"))

	assert.Equal(t, "manager", aliasOf("users as manager"))
	assert.Equal(t, "manager", aliasOf("users AS manager"))
	assert.Equal(t, "manager", aliasOf("users manager"))
	assert.Equal(t, "users", origOf("users as manager"))
	assert.Equal(t, "users", aliasOf("users"))
}

func TestJoinLinks(t *testing.T) {
	parent, child := Join{Table: "sites", Left: "sites.id", Right: "users.site"}.links()
	assert.Equal(t, "users.site", parent)
	assert.Equal(t, "sites.id", child)

	parent, child = Join{Table: "users_visits", Left: "users.id", Right: "users_visits.user_id"}.links()
	assert.Equal(t, "users.id", parent)
	assert.Equal(t, "users_visits.user_id", child)

	parent, child = Join{Table: "users as manager", Left: "manager.id", Right: "users.manager"}.links()
	assert.Equal(t, "users.manager", parent)
	assert.Equal(t, "manager.id", child)
}

func TestNaturalKeyOrder(t *testing.T) {
	r := &Request{Data: map[string]nested.Record{"10": {}, "2": {}, "b": {}, "a": {}, "1": {}}}
	assert.Equal(t, []string{"1", "2", "10", "a", "b"}, r.keys())

	// отправленный порядок первым, неупомянутые строки не теряются
	r.Keys = []string{"b", "missing", "10", "b"}
	assert.Equal(t, []string{"b", "10", "1", "2", "a"}, r.keys())
}

func TestRequestFromRecord(t *testing.T) {
	req, err := RequestFromRecord(nested.Record{
		"action": "edit",
		"data":   map[string]any{"row_1": map[string]any{"name": "Ann"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "edit", req.Action)
	assert.Equal(t, "Ann", req.Data["row_1"]["name"])

	_, err = RequestFromRecord(nested.Record{"action": 1})
	assert.Error(t, err)
	_, err = RequestFromRecord(nested.Record{"data": "x"})
	assert.Error(t, err)
	_, err = RequestFromRecord(nested.Record{"data": map[string]any{"1": "x"}})
	assert.Error(t, err)
}
