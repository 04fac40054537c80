package bus

import (
	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"clob/internal/schema"
)

// Envelope is the JSON shape sinks publish.
type Envelope struct {
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	Timestamp uint64          `json:"timestamp"`
	RecvTime  int64           `json:"recvTime"`
	TraceID   uint64          `json:"traceId,omitempty"`
	Caller    schema.Identity `json:"caller"`
	Events    []EventBody     `json:"events"`
}

// EventBody tags one emitted event with its type name.
type EventBody struct {
	Type string       `json:"type"`
	Body schema.Event `json:"body"`
}

// NewEnvelope converts a bus event into its published form.
func NewEnvelope(e Event) Envelope {
	env := Envelope{
		Seq:       e.Header.Seq,
		Type:      e.Header.Type.String(),
		Timestamp: e.Header.Timestamp,
		RecvTime:  e.Header.RecvTime,
		TraceID:   e.Header.TraceID,
		Caller:    e.Caller,
		Events:    make([]EventBody, 0, len(e.Events)),
	}
	for _, ev := range e.Events {
		env.Events = append(env.Events, EventBody{Type: ev.EventType().String(), Body: ev})
	}
	return env
}

// Marshal encodes the event as an Envelope.
func Marshal(e Event) ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(NewEnvelope(e))
	if err != nil {
		return nil, errors.Wrapf(err, "marshal event envelope, seq: %d", e.Header.Seq)
	}
	return data, nil
}
