package inject

import (
	"encoding/json"
	"testing"
)

func TestDispatchRoutesByTopic(t *testing.T) {
	var got json.RawMessage
	calls := 0
	d := NewDispatcher(HandlerTable{
		"x": func(_ *Session, data json.RawMessage) {
			calls++
			got = data
		},
	})

	d.Dispatch(nil, []byte(`{"t":"x","d":{"n":1}}`))
	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if string(got) != `{"n":1}` {
		t.Errorf("handler data = %s, want {\"n\":1}", got)
	}
}

func TestDispatchDropsMalformed(t *testing.T) {
	calls := 0
	d := NewDispatcher(HandlerTable{
		"x": func(*Session, json.RawMessage) { calls++ },
	})

	inputs := []string{
		`not json`,
		`[]`,
		`{"d":"no topic"}`,
		`{"t":5,"d":"numeric topic"}`,
		`{"t":["x"],"d":"array topic"}`,
		`{"t":{"a":1}}`,
	}
	for _, in := range inputs {
		d.Dispatch(nil, []byte(in))
	}
	if calls != 0 {
		t.Errorf("handler called %d times for malformed input, want 0", calls)
	}
}

func TestDispatchIgnoresUnknownTopic(t *testing.T) {
	calls := 0
	d := NewDispatcher(HandlerTable{
		"x": func(*Session, json.RawMessage) { calls++ },
	})

	d.Dispatch(nil, []byte(`{"t":"y","d":1}`))
	if calls != 0 {
		t.Error("handler for x called for topic y")
	}
}

func TestDispatchMissingData(t *testing.T) {
	var got json.RawMessage = json.RawMessage(`sentinel`)
	d := NewDispatcher(HandlerTable{
		"x": func(_ *Session, data json.RawMessage) { got = data },
	})

	d.Dispatch(nil, []byte(`{"t":"x"}`))
	if got != nil {
		t.Errorf("handler data = %s, want nil for missing d", got)
	}
}

func TestDispatchNilTable(t *testing.T) {
	d := NewDispatcher(nil)
	// Must not panic.
	d.Dispatch(nil, []byte(`{"t":"x","d":1}`))
}
