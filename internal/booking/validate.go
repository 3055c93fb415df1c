package booking

import (
	"regexp"
	"strings"

	"github.com/tahmid-khan/recoverylab/internal/model"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

const minTransactionRef = 4

// ReservationRequest is the request-scoped input to the reservation
// writer. All fields arrive as submitted by the client.
type ReservationRequest struct {
	ServiceID     string
	Date          string // YYYY-MM-DD
	Slot          string // slot label, e.g. "5:00 PM"
	Duration      int    // minutes, 30 or 60
	UserName      string
	UserEmail     string
	UserPhone     string
	PaymentMethod string
	TransactionID string
}

// validate checks every precondition before anything touches the store.
// The first failing field is reported; no partial state is ever written.
func (r *ReservationRequest) validate() (model.PaymentMethod, *ValidationError) {
	if strings.TrimSpace(r.ServiceID) == "" {
		return "", invalid("service_id", "service is required")
	}
	if strings.TrimSpace(r.Date) == "" {
		return "", invalid("booking_date", "date is required")
	}
	if strings.TrimSpace(r.Slot) == "" {
		return "", invalid("time", "slot is required")
	}
	if r.Duration != 30 && r.Duration != 60 {
		return "", invalid("duration", "duration must be 30 or 60 minutes")
	}
	if strings.TrimSpace(r.UserName) == "" {
		return "", invalid("user_name", "name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(r.UserEmail)) {
		return "", invalid("user_email", "email address is not valid")
	}
	if !phonePattern.MatchString(strings.TrimSpace(r.UserPhone)) {
		return "", invalid("user_phone", "phone number must be exactly 10 digits")
	}

	method, err := model.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return "", invalid("payment_method", "payment method is not supported")
	}
	if method.RequiresProof() && len(strings.TrimSpace(r.TransactionID)) < minTransactionRef {
		return "", invalid("transaction_id", "transaction reference is required for prepaid bookings")
	}
	return method, nil
}
