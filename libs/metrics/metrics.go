// Package metrics exposes the engine's Prometheus instruments and the
// /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReservationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservations_created_total",
			Help: "Bookings successfully reserved, by payment method.",
		},
		[]string{"payment_method"},
	)

	SlotConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_slot_conflicts_total",
			Help: "Reservation attempts rejected because the slot filled first.",
		},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_status_transitions_total",
			Help: "Lifecycle transitions applied, by target status.",
		},
		[]string{"to"},
	)

	AvailabilityQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_availability_queries_total",
			Help: "Availability reads served, by day reason.",
		},
		[]string{"reason"},
	)

	OutboxPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_outbox_events_published_total",
			Help: "Lifecycle events relayed from the outbox to Kafka.",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
