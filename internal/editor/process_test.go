package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudbind/internal/nested"
	"crudbind/internal/store"
)

func usersEditor(t *testing.T, st *store.SQL, opts ...Option) *Editor {
	t.Helper()
	base := []Option{WithFields(NewField("first_name"), NewField("last_name"), NewField("site"))}
	e, err := New(st, "users", append(base, opts...)...)
	require.NoError(t, err)
	return e
}

// joinedEditor: users + sites (справочник) + users_visits (один-к-одному).
func joinedEditor(t *testing.T, st *store.SQL, opts ...Option) *Editor {
	t.Helper()
	base := []Option{
		WithLeftJoin("sites", "sites.id", "=", "users.site"),
		WithLeftJoin("users_visits", "users.id", "=", "users_visits.user_id"),
		WithFields(
			NewField("users.first_name"),
			NewField("users.site"),
			NewField("sites.name"),
			NewField("users_visits.site_id"),
		),
	}
	e, err := New(st, "users", append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func process(t *testing.T, e *Editor, req *Request) *Output {
	t.Helper()
	out, err := e.Process(context.Background(), req)
	require.NoError(t, err)
	return out
}

func TestProcessRead(t *testing.T) {
	e := usersEditor(t, newSQLite(t))

	out := process(t, e, &Request{})
	assert.ElementsMatch(t, []nested.Record{
		{"DT_RowId": "row_1", "first_name": "Ann", "last_name": "Lee", "site": int64(1)},
		{"DT_RowId": "row_2", "first_name": "Bob", "last_name": "Ray", "site": int64(2)},
	}, out.Data)
	assert.Empty(t, out.FieldErrors)
	assert.Empty(t, out.Error)

	again := process(t, e, &Request{})
	assert.Equal(t, out, again)
}

func TestProcessReadJoined(t *testing.T) {
	e := joinedEditor(t, newSQLite(t))

	out := process(t, e, &Request{})
	require.Len(t, out.Data, 2)
	byID := map[any]nested.Record{}
	for _, r := range out.Data {
		byID[r["DT_RowId"]] = r
	}
	ann := byID["row_1"]
	require.NotNil(t, ann)
	assert.Equal(t, "Ann", ann["users"].(map[string]any)["first_name"])
	assert.Equal(t, "Edinburgh", ann["sites"].(map[string]any)["name"])
	assert.Nil(t, ann["users_visits"].(map[string]any)["site_id"])
}

func TestProcessReadOptions(t *testing.T) {
	st := newSQLite(t)
	e := usersEditor(t, st, WithFields(NewField("updated", WithOptions(&Options{
		Table:  "sites",
		Value:  "id",
		Label:  []string{"name"},
		Manual: []Choice{{Label: "Glasgow", Value: 0}},
	}))))

	out := process(t, e, &Request{})
	require.Contains(t, out.Options, "updated")
	labels := []string{}
	for _, c := range out.Options["updated"] {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"Edinburgh", "Glasgow", "London"}, labels)
}

func TestProcessCreate(t *testing.T) {
	st := newSQLite(t)
	var postIDs []string
	var postRows int
	e := usersEditor(t, st,
		On(EventPostCreate, func(_ context.Context, _ Event, a *EventArgs) (Verdict, error) {
			postRows += len(a.Rows)
			return NoVerdict, nil
		}),
		On(EventPostCreateAll, func(_ context.Context, _ Event, a *EventArgs) (Verdict, error) {
			postIDs = a.IDs
			return NoVerdict, nil
		}),
	)

	out := process(t, e, &Request{
		Action: "create",
		Data:   map[string]nested.Record{"0": {"first_name": "Cy", "last_name": "Zed", "site": 2}},
	})
	require.Empty(t, out.Error)
	require.Len(t, out.Data, 1)
	assert.Equal(t, "row_3", out.Data[0]["DT_RowId"])
	assert.Equal(t, "Cy", out.Data[0]["first_name"])
	assert.Equal(t, []string{"3"}, postIDs)
	assert.Equal(t, 1, postRows)
	assert.Equal(t, 3, count(t, st, "SELECT COUNT(*) FROM users"))
}

func TestProcessEdit(t *testing.T) {
	st := newSQLite(t)
	e := usersEditor(t, st)

	out := process(t, e, &Request{
		Action: "edit",
		Data:   map[string]nested.Record{"row_2": {"last_name": "Roe"}},
	})
	require.Empty(t, out.Error)
	require.Len(t, out.Data, 1)
	assert.Equal(t, "Roe", out.Data[0]["last_name"])
	assert.Equal(t, "Bob", out.Data[0]["first_name"])
}

func TestProcessValidationBlocksBatch(t *testing.T) {
	st := newSQLite(t)
	required := func(_ context.Context, v any, _ nested.Record, _ Host) (string, error) {
		if v == nil || v == "" {
			return "This field is required", nil
		}
		return "", nil
	}
	e, err := New(st, "users", WithFields(NewField("first_name", Check(required)), NewField("last_name")))
	require.NoError(t, err)

	out := process(t, e, &Request{
		Action: "create",
		Data: map[string]nested.Record{
			"0": {"first_name": "Cy", "last_name": "Zed"},
			"1": {"first_name": "", "last_name": "Nil"},
		},
	})
	assert.Equal(t, []FieldError{{ID: "1", Name: "first_name", Status: "This field is required"}}, out.FieldErrors)
	assert.Empty(t, out.Data)
	assert.Equal(t, 2, count(t, st, "SELECT COUNT(*) FROM users"))

	errs, ok, err := e.Validate(context.Background(), &Request{
		Action: "create",
		Data:   map[string]nested.Record{"0": {"first_name": "x"}},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, errs)

	off, err := New(st, "users", WithoutValidation(), WithFields(NewField("first_name", Check(required))))
	require.NoError(t, err)
	out = process(t, off, &Request{Action: "create", Data: map[string]nested.Record{"0": {"first_name": ""}}})
	assert.Empty(t, out.FieldErrors)
	assert.Equal(t, 3, count(t, st, "SELECT COUNT(*) FROM users"))
}

func TestProcessCancelledRowIsolated(t *testing.T) {
	st := newSQLite(t)
	e := usersEditor(t, st, On(EventPreCreate, func(_ context.Context, _ Event, a *EventArgs) (Verdict, error) {
		if a.Values["first_name"] == "skip" {
			return Cancel, nil
		}
		return NoVerdict, nil
	}))

	out := process(t, e, &Request{
		Action: "create",
		Data: map[string]nested.Record{
			"0": {"first_name": "one"},
			"1": {"first_name": "skip"},
			"2": {"first_name": "three"},
		},
	})
	assert.Equal(t, []string{"1"}, out.Cancelled)
	assert.Len(t, out.Data, 2)
	assert.Equal(t, 0, count(t, st, "SELECT COUNT(*) FROM users WHERE first_name = 'skip'"))
	assert.Equal(t, 4, count(t, st, "SELECT COUNT(*) FROM users"))
}

func TestProcessRowFailureDoesNotStopSiblings(t *testing.T) {
	st := newSQLite(t)
	e, err := New(st, "sites", WithFields(NewField("name")))
	require.NoError(t, err)

	out := process(t, e, &Request{
		Action: "create",
		Data: map[string]nested.Record{
			"0": {"name": "Glasgow"},
			"1": {"name": nil},
			"2": {"name": "Leeds"},
		},
	})
	assert.Contains(t, out.Error, "1: ")
	assert.Len(t, out.Data, 2)
	assert.Equal(t, 4, count(t, st, "SELECT COUNT(*) FROM sites"))
}

func TestProcessJoinedUpsert(t *testing.T) {
	st := newSQLite(t)
	e := joinedEditor(t, st)

	for _, site := range []int{1, 2} {
		out := process(t, e, &Request{
			Action: "edit",
			Data:   map[string]nested.Record{"row_1": {"users_visits": map[string]any{"site_id": site}}},
		})
		require.Empty(t, out.Error)
		require.Len(t, out.Data, 1)
		assert.Equal(t, int64(site), out.Data[0]["users_visits"].(map[string]any)["site_id"])
	}
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM users_visits WHERE user_id = 1"))
	assert.Equal(t, 2, count(t, st, "SELECT site_id FROM users_visits WHERE user_id = 1"))
}

func TestProcessJoinedCreateLinksNewID(t *testing.T) {
	st := newSQLite(t)
	e := joinedEditor(t, st)

	out := process(t, e, &Request{
		Action: "create",
		Data: map[string]nested.Record{"0": {
			"users":        map[string]any{"first_name": "Cy", "site": 1},
			"users_visits": map[string]any{"site_id": 2},
		}},
	})
	require.Empty(t, out.Error)
	require.Len(t, out.Data, 1)
	assert.Equal(t, "row_3", out.Data[0]["DT_RowId"])
	assert.Equal(t, "Edinburgh", out.Data[0]["sites"].(map[string]any)["name"])
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM users_visits WHERE user_id = 3 AND site_id = 2"))
}

func TestProcessJoinedFieldScoping(t *testing.T) {
	st := newSQLite(t)
	e := joinedEditor(t, st, WithDebug(true))

	out := process(t, e, &Request{
		Action: "edit",
		Data:   map[string]nested.Record{"row_1": {"users": map[string]any{"first_name": "Anna"}}},
	})
	require.Empty(t, out.Error)

	var writes []string
	for _, d := range out.Debug {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		q := m["query"].(string)
		if !strings.HasPrefix(q, "SELECT") {
			writes = append(writes, q)
		}
	}
	assert.Equal(t, []string{`UPDATE "users" SET "first_name" = ? WHERE "id" = ?`}, writes)
	assert.Equal(t, 0, count(t, st, "SELECT COUNT(*) FROM users_visits"))

	// справочник правится через значение связи из присланных данных
	out = process(t, e, &Request{
		Action: "edit",
		Data: map[string]nested.Record{"row_1": {
			"users": map[string]any{"site": 2},
			"sites": map[string]any{"name": "Greater London"},
		}},
	})
	require.Empty(t, out.Error)
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM sites WHERE id = 2 AND name = 'Greater London'"))
	assert.Equal(t, 2, count(t, st, "SELECT COUNT(*) FROM sites"))
}

func TestProcessCompoundKey(t *testing.T) {
	st := newSQLite(t)
	e, err := New(st, "visits", WithPKey("user_id", "site_id"),
		WithFields(NewField("user_id"), NewField("site_id"), NewField("note")))
	require.NoError(t, err)
	sep := e.Codec().Separator()

	out := process(t, e, &Request{
		Action: "create",
		Data:   map[string]nested.Record{"0": {"user_id": 1, "note": "no site"}},
	})
	assert.Contains(t, out.Error, ErrCompoundKeyIncomplete.Error())
	assert.Equal(t, 0, count(t, st, "SELECT COUNT(*) FROM visits"))

	out = process(t, e, &Request{
		Action: "create",
		Data:   map[string]nested.Record{"0": {"user_id": 1, "site_id": 2, "note": "hi"}},
	})
	require.Empty(t, out.Error)
	require.Len(t, out.Data, 1)
	id := "row_1" + sep + "2"
	assert.Equal(t, id, out.Data[0]["DT_RowId"])

	// смена части ключа даёт новый id
	out = process(t, e, &Request{
		Action: "edit",
		Data:   map[string]nested.Record{id: {"site_id": 1}},
	})
	require.Empty(t, out.Error)
	require.Len(t, out.Data, 1)
	assert.Equal(t, "row_1"+sep+"1", out.Data[0]["DT_RowId"])

	_, err = e.Process(context.Background(), &Request{
		Action: "edit",
		Data:   map[string]nested.Record{"row_1": {"note": "x"}},
	})
	assert.True(t, errors.Is(err, ErrKeyArity))
}

func TestProcessRemove(t *testing.T) {
	st := newSQLite(t)
	_, err := st.DB().Exec(`INSERT INTO users_visits (user_id, site_id) VALUES (1, 2), (2, 1)`)
	require.NoError(t, err)

	var removed []string
	e := joinedEditor(t, st, WithLeftJoinRemove(true),
		On(EventPostRemoveAll, func(_ context.Context, _ Event, a *EventArgs) (Verdict, error) {
			removed = a.IDs
			return NoVerdict, nil
		}))

	out := process(t, e, &Request{Action: "remove", Data: map[string]nested.Record{"row_1": {}}})
	require.Empty(t, out.Error)
	assert.Equal(t, []string{"1"}, removed)
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 0, count(t, st, "SELECT COUNT(*) FROM users_visits WHERE user_id = 1"))
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM users_visits"))
	// справочник по связи "многие к одному" не трогается
	assert.Equal(t, 2, count(t, st, "SELECT COUNT(*) FROM sites"))
}

func TestProcessRemoveCompoundKeyKeepsJoined(t *testing.T) {
	st := newSQLite(t)
	_, err := st.DB().Exec(`
INSERT INTO visits (user_id, site_id, note) VALUES (1, 2, 'a'), (1, 1, 'b');
INSERT INTO users_visits (user_id, site_id) VALUES (1, 2);`)
	require.NoError(t, err)

	e, err := New(st, "visits", WithPKey("user_id", "site_id"),
		WithLeftJoin("users_visits", "visits.user_id", "=", "users_visits.user_id"),
		WithLeftJoinRemove(true),
		WithFields(
			NewField("visits.user_id"),
			NewField("visits.site_id"),
			NewField("visits.note"),
			NewField("users_visits.visit_date"),
		))
	require.NoError(t, err)
	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)

	id := "row_1" + e.Codec().Separator() + "2"
	out := process(t, e, &Request{Action: "remove", Data: map[string]nested.Record{id: {}}})
	require.Empty(t, out.Error)

	assert.Equal(t, 0, count(t, st, "SELECT COUNT(*) FROM visits WHERE user_id = 1 AND site_id = 2"))
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM visits"))
	// user_id не уникален в visits: строку users_visits трогать нельзя
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM users_visits"))

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel && strings.HasPrefix(entry.Message, "cascade remove skipped") {
			warned = true
			assert.Equal(t, "users_visits", entry.Data["join"])
		}
	}
	assert.True(t, warned)
}

func TestProcessRemoveCancelled(t *testing.T) {
	st := newSQLite(t)
	e := usersEditor(t, st, On(EventPreRemove, func(_ context.Context, _ Event, a *EventArgs) (Verdict, error) {
		if a.ID == "2" {
			return Cancel, nil
		}
		return NoVerdict, nil
	}))

	out := process(t, e, &Request{Action: "remove", Data: map[string]nested.Record{"row_1": {}, "row_2": {}}})
	assert.Equal(t, []string{"row_2"}, out.Cancelled)
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM users WHERE id = 2"))
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM users"))
}

func TestProcessEnvelopeErrors(t *testing.T) {
	st := newSQLite(t)

	t.Run("global validator", func(t *testing.T) {
		e := usersEditor(t, st, WithValidator(func(_ context.Context, _ *Editor, a Action, _ *Request) (string, error) {
			if a == ActionDelete {
				return "Deleting is disabled", nil
			}
			return "", nil
		}))
		out := process(t, e, &Request{Action: "remove", Data: map[string]nested.Record{"row_1": {}}})
		assert.Equal(t, "Deleting is disabled", out.Error)
		assert.Equal(t, 2, count(t, st, "SELECT COUNT(*) FROM users"))
	})

	t.Run("no data", func(t *testing.T) {
		out := process(t, usersEditor(t, st), &Request{Action: "create"})
		assert.Equal(t, noDataMessage, out.Error)
	})

	t.Run("unknown action", func(t *testing.T) {
		out := process(t, usersEditor(t, st, WithDebug(true)), &Request{
			Action: "archive",
			Data:   map[string]nested.Record{"row_1": {}},
		})
		assert.Empty(t, out.Error)
		assert.Empty(t, out.Data)
		assert.Contains(t, fmt.Sprint(out.Debug), "archive")
	})

	t.Run("read only", func(t *testing.T) {
		out := process(t, usersEditor(t, st, WithWrite(false)), &Request{
			Action: "edit",
			Data:   map[string]nested.Record{"row_1": {"first_name": "x"}},
		})
		assert.Equal(t, "This editor is read-only", out.Error)
		assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM users WHERE first_name = 'Ann'"))
	})

	t.Run("hook error aborts", func(t *testing.T) {
		boom := errors.New("audit log unavailable")
		e := usersEditor(t, st, On(EventWriteCreate, func(context.Context, Event, *EventArgs) (Verdict, error) {
			return NoVerdict, boom
		}))
		_, err := e.Process(context.Background(), &Request{
			Action: "create",
			Data:   map[string]nested.Record{"0": {"first_name": "Rolled"}},
		})
		assert.True(t, errors.Is(err, boom))
		assert.Equal(t, 0, count(t, st, "SELECT COUNT(*) FROM users WHERE first_name = 'Rolled'"))
	})

	t.Run("processed sees output", func(t *testing.T) {
		var seen *Output
		e := usersEditor(t, st, On(EventProcessed, func(_ context.Context, _ Event, a *EventArgs) (Verdict, error) {
			seen = a.Output
			return NoVerdict, nil
		}))
		out := process(t, e, &Request{})
		assert.Same(t, out, seen)
	})
}

func TestProcessPreGetCancel(t *testing.T) {
	e := usersEditor(t, newSQLite(t), On(EventPreGet, func(context.Context, Event, *EventArgs) (Verdict, error) {
		return Cancel, nil
	}))
	out := process(t, e, &Request{})
	assert.Empty(t, out.Data)
	assert.NotNil(t, out.Data)
}

type memBlob struct {
	data map[string][]byte
}

func (m *memBlob) Put(_ string, r io.Reader) (string, int64, string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := fmt.Sprintf("blob-%d", len(m.data)+1)
	m.data[key] = b
	return key, int64(len(b)), "sum", nil
}

func (m *memBlob) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func TestProcessUpload(t *testing.T) {
	st := newSQLite(t)
	blob := &memBlob{data: map[string][]byte{}}
	up := &Upload{
		Blob:       blob,
		Table:      "files",
		Columns:    UploadColumns{Name: "filename", Mime: "mime", Size: "size", Key: "storage_key", Hash: "hash"},
		Extensions: []string{"png", "jpg"},
		MaxSize:    16,
	}
	e := usersEditor(t, st, WithFields(NewField("updated", FieldName("avatar"), WithUpload(up))))

	upload := func(field, name, body string) *Output {
		return process(t, e, &Request{Action: "upload", Upload: &UploadRequest{
			Field: field, Name: name, Mime: "image/png", Reader: strings.NewReader(body),
		}})
	}

	out := upload("avatar", "me.png", "png-bytes")
	require.Empty(t, out.Error)
	require.NotNil(t, out.Upload)
	assert.Equal(t, "1", out.Upload.ID)
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM files WHERE filename = 'me.png' AND size = 9 AND storage_key = 'blob-1'"))

	out = upload("nope", "me.png", "x")
	assert.Equal(t, "Unknown upload field name submitted", out.Error)

	out = upload("avatar", "me.exe", "x")
	require.Len(t, out.FieldErrors, 1)
	assert.Equal(t, "This file type cannot be uploaded", out.FieldErrors[0].Status)

	out = upload("avatar", "big.png", strings.Repeat("x", 40))
	require.Len(t, out.FieldErrors, 1)
	assert.Equal(t, "File exceeds the maximum size", out.FieldErrors[0].Status)
	assert.Equal(t, 1, count(t, st, "SELECT COUNT(*) FROM files"))
	assert.Len(t, blob.data, 1)
}
