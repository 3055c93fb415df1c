package model

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	StatusPending       BookingStatus = "pending"
	StatusPaymentReview BookingStatus = "payment_review"
	StatusConfirmed     BookingStatus = "confirmed"
	StatusCancelled     BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case StatusPending, StatusPaymentReview, StatusConfirmed, StatusCancelled:
		return BookingStatus(s), nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// Active reports whether a booking in this status holds capacity.
// Cancelled bookings stay in the table but release their slot.
func (s BookingStatus) Active() bool {
	switch s {
	case StatusPending, StatusPaymentReview, StatusConfirmed:
		return true
	}
	return false
}

// CanTransitionTo encodes the lifecycle matrix. Confirmed and cancelled
// are terminal: a cancelled booking is never reopened.
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusPaymentReview:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	}
	return false
}

// ActiveStatuses lists the statuses that count toward slot occupancy.
func ActiveStatuses() []string {
	return []string{string(StatusPending), string(StatusPaymentReview), string(StatusConfirmed)}
}

type PaymentMethod string

const (
	// PayAtVenue is settled in person after the session; no proof required.
	PayAtVenue PaymentMethod = "pay_at_venue"
	// MobileWallet is prepaid; the customer submits a wallet transaction
	// reference that an admin verifies before confirming.
	MobileWallet PaymentMethod = "mobile_wallet"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PayAtVenue, MobileWallet:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// RequiresProof reports whether the method needs a transaction reference
// up front. Such bookings start in payment_review instead of pending.
func (m PaymentMethod) RequiresProof() bool {
	return m == MobileWallet
}

// InitialStatus is the status assigned by the reservation writer.
func (m PaymentMethod) InitialStatus() BookingStatus {
	if m.RequiresProof() {
		return StatusPaymentReview
	}
	return StatusPending
}

// Booking is one reserved unit of capacity in a slot. Bookings are never
// deleted; cancellation is a status so occupancy history survives.
type Booking struct {
	ID            string
	ServiceID     string
	Date          time.Time
	Slot          string
	StartMinute   int
	Duration      int
	UserName      string
	UserEmail     string
	UserPhone     string
	PaymentMethod PaymentMethod
	TransactionID string
	Status        BookingStatus
	CreatedAt     time.Time
}
