// Package wire implements the host's ops message socket: a framed
// request/reply channel in both bind (server) and connect (client)
// modes, carrying length-prefixed JSON envelopes.
package wire

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome carried by a reply envelope.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Message is the structured key/value document on the wire. req is
// present on requests; status/error/data are present on replies. Every
// other key (actor_name, port, uid, realm, ...) rides alongside these at
// the top level, exactly like the dict-based messages this protocol was
// distilled from.
type Message struct {
	fields map[string]interface{}
}

// NewRequest builds a request envelope: "req" plus any extra fields.
func NewRequest(req string, fields map[string]interface{}) *Message {
	m := &Message{fields: make(map[string]interface{}, len(fields)+1)}
	for k, v := range fields {
		m.fields[k] = v
	}
	m.fields["req"] = req
	return m
}

// SuccessMessage builds an {status: ok, data?} reply.
func SuccessMessage(data map[string]interface{}) *Message {
	m := &Message{fields: map[string]interface{}{"status": string(StatusOK)}}
	if data != nil {
		m.fields["data"] = data
	}
	return m
}

// ErrorMessage builds an {status: error, error: reason, data?} reply.
func ErrorMessage(reason string, data map[string]interface{}) *Message {
	m := &Message{fields: map[string]interface{}{
		"status": string(StatusError),
		"error":  reason,
	}}
	if data != nil {
		m.fields["data"] = data
	}
	return m
}

// Req returns the "req" field, if present.
func (m *Message) Req() (string, bool) {
	return m.stringField("req")
}

// Status returns the "status" field, if present.
func (m *Message) Status() (Status, bool) {
	s, ok := m.stringField("status")
	return Status(s), ok
}

// ErrorReason returns the "error" field, if present.
func (m *Message) ErrorReason() (string, bool) {
	return m.stringField("error")
}

// Data returns the "data" field as a map, if present and shaped that way.
func (m *Message) Data() (map[string]interface{}, bool) {
	v, ok := m.fields["data"]
	if !ok {
		return nil, false
	}
	asMap, ok := v.(map[string]interface{})
	return asMap, ok
}

// Field returns an arbitrary top-level field.
func (m *Message) Field(name string) (interface{}, bool) {
	v, ok := m.fields[name]
	return v, ok
}

// StringField returns a top-level field coerced to string.
func (m *Message) StringField(name string) (string, bool) {
	return m.stringField(name)
}

// IntField returns a top-level field coerced to int. JSON numbers decode
// as float64, which this normalizes.
func (m *Message) IntField(name string) (int, bool) {
	v, ok := m.fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func (m *Message) stringField(name string) (string, bool) {
	v, ok := m.fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MarshalJSON implements json.Marshaler.
func (m *Message) MarshalJSON() ([]byte, error) {
	if m.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(b []byte) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("decoding message envelope: %w", err)
	}
	m.fields = fields
	return nil
}
