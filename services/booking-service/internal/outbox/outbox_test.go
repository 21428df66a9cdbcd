package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agendasalon/agenda/libs/kafkax"
)

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent("appointment", "42", AppointmentCreated, map[string]any{"id": 42, "status": "agendado"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if payload["status"] != "agendado" {
		t.Fatalf("unexpected payload %v", payload)
	}

	if _, err := NewEvent("appointment", "1", AppointmentCreated, make(chan int)); err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestToMessage(t *testing.T) {
	msg := toMessage(context.Background(), Record{
		EventID:       "6f1c",
		AggregateType: "appointment",
		AggregateID:   "42",
		EventType:     AppointmentStatusChanged,
		Payload:       []byte(`{}`),
	})
	if msg.Topic != AppointmentStatusChanged || string(msg.Key) != "42" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if kafkax.HeaderValue(msg.Headers, "event_id") != "6f1c" {
		t.Fatalf("missing event_id header")
	}
}
