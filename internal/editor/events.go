package editor

import (
	"context"

	"crudbind/internal/nested"
	"crudbind/internal/store"
)

type Event string

const (
	EventPreGet          Event = "preGet"
	EventPostGet         Event = "postGet"
	EventPreCreate       Event = "preCreate"
	EventValidatedCreate Event = "validatedCreate"
	EventWriteCreate     Event = "writeCreate"
	EventPostCreate      Event = "postCreate"
	EventWriteCreateAll  Event = "writeCreateAll"
	EventPostCreateAll   Event = "postCreateAll"
	EventPreEdit         Event = "preEdit"
	EventValidateEdit    Event = "validateEdit"
	EventWriteEdit       Event = "writeEdit"
	EventPostEdit        Event = "postEdit"
	EventWriteEditAll    Event = "writeEditAll"
	EventPostEditAll     Event = "postEditAll"
	EventPreRemove       Event = "preRemove"
	EventPostRemove      Event = "postRemove"
	EventPostRemoveAll   Event = "postRemoveAll"
	EventProcessed       Event = "processed"
)

// Verdict: результат обработчика. NoVerdict не влияет на итог.
type Verdict int

const (
	NoVerdict Verdict = iota
	Allow
	Cancel
)

// EventArgs: всё, что есть у события; заполнены только относящиеся к нему поля.
type EventArgs struct {
	Editor    *Editor
	Store     store.Store // текущая транзакция для validated*/write*
	Action    Action
	ID        string
	IDs       []string
	Values    nested.Record
	Submitted map[string]nested.Record // id -> присланные значения
	Rows      []nested.Record
	Output    *Output
}

// Handler вызывается синхронно. Ошибка прерывает обработку запроса.
type Handler func(ctx context.Context, ev Event, args *EventArgs) (Verdict, error)

// trigger вызывает все обработчики по порядку; побеждает последний не-NoVerdict.
func (e *Editor) trigger(ctx context.Context, ev Event, args *EventArgs) (Verdict, error) {
	hs := e.events[ev]
	if len(hs) == 0 {
		return NoVerdict, nil
	}
	args.Editor = e
	out := NoVerdict
	for _, h := range hs {
		v, err := h(ctx, ev, args)
		if err != nil {
			return NoVerdict, &hookError{event: ev, err: err}
		}
		if v != NoVerdict {
			out = v
		}
	}
	return out, nil
}
