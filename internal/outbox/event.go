package outbox

// Event is a booking lifecycle event written to the outbox table in the
// same transaction as the state change it describes. The Kafka topic
// name equals EventType. Delivery is fully decoupled: a relay failure
// never rolls back or blocks the booking mutation that produced it.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateBooking = "booking"

	EventBookingCreated       = "booking.created.v1"
	EventBookingStatusChanged = "booking.status_changed.v1"
)
