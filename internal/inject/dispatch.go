package inject

import (
	"encoding/json"
)

// Outbound and inbound topics.
const (
	TopicAuth    = "auth"
	TopicCore    = "core"
	TopicExecute = "execute"
	TopicError   = "error"
)

// Envelope is the structured message unit exchanged over the connection.
type Envelope struct {
	Topic string          `json:"t"`
	Data  json.RawMessage `json:"d,omitempty"`
}

// Handler consumes one dispatched inbound unit for a session.
type Handler func(s *Session, data json.RawMessage)

// HandlerTable routes inbound topics. Supplied by the command API.
type HandlerTable map[string]Handler

// Dispatcher decodes inbound envelopes and routes them by topic.
// Malformed input and unknown topics are dropped without response; on an
// adversarial channel that is routine, not an error.
type Dispatcher struct {
	handlers HandlerTable
}

func NewDispatcher(handlers HandlerTable) *Dispatcher {
	if handlers == nil {
		handlers = HandlerTable{}
	}
	return &Dispatcher{handlers: handlers}
}

// Dispatch parses raw and invokes the matching handler, if any.
func (d *Dispatcher) Dispatch(s *Session, raw []byte) {
	topic, data, ok := decodeEnvelope(raw)
	if !ok {
		return
	}
	if h, ok := d.handlers[topic]; ok {
		h(s, data)
	}
}

// decodeEnvelope enforces the envelope shape: an object whose "t" field is
// a string. Anything else is dropped.
func decodeEnvelope(raw []byte) (topic string, data json.RawMessage, ok bool) {
	var env struct {
		Topic json.RawMessage `json:"t"`
		Data  json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, false
	}
	if err := json.Unmarshal(env.Topic, &topic); err != nil {
		return "", nil, false
	}
	return topic, env.Data, true
}
