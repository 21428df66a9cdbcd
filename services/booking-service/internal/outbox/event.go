package outbox

import (
	"encoding/json"
	"fmt"
)

// Event is the envelope written to outbox_events in the same transaction as
// the change it describes. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AppointmentCreated       = "booking.appointment.created.v1"
	AppointmentUpdated       = "booking.appointment.updated.v1"
	AppointmentRescheduled   = "booking.appointment.rescheduled.v1"
	AppointmentStatusChanged = "booking.appointment.status_changed.v1"
)

func NewEvent(aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}
