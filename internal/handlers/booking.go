package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tahmid-khan/recoverylab/internal/booking"
	"github.com/tahmid-khan/recoverylab/internal/model"
)

type BookingHandler struct {
	engine *booking.Engine
	logger *slog.Logger
}

func NewBookingHandler(engine *booking.Engine, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{engine: engine, logger: logger}
}

type slotsResponse struct {
	ServiceID string   `json:"service_id"`
	Date      string   `json:"date"`
	Reason    string   `json:"reason"`
	Slots     []string `json:"slots"`
}

type reserveRequest struct {
	ServiceID     string `json:"service_id"`
	Date          string `json:"booking_date"`
	Slot          string `json:"time"`
	Duration      int    `json:"duration"`
	UserName      string `json:"user_name"`
	UserEmail     string `json:"user_email"`
	UserPhone     string `json:"user_phone"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

type bookingItem struct {
	BookingID     string `json:"booking_id"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"booking_date"`
	Slot          string `json:"time"`
	Duration      int    `json:"duration"`
	UserName      string `json:"user_name"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

type transitionRequest struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// Slots serves the public availability projection for one service and
// date. Closed days, undefined schedules, and inactive services all
// come back as an empty list; the distinction stays server-side.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if serviceID == "" || dateStr == "" {
		writeFieldError(w, http.StatusBadRequest, "service_id", "service_id and date are required")
		return
	}

	day, err := h.engine.Day(r.Context(), serviceID, dateStr)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	labels := make([]string, 0, len(day.Slots))
	for _, s := range day.Slots {
		labels = append(labels, s.Label)
	}
	writeJSON(w, http.StatusOK, slotsResponse{ServiceID: serviceID, Date: dateStr, Reason: day.Reason, Slots: labels})
}

// Reserve is the public write endpoint. The engine revalidates the
// schedule and occupancy atomically; a 409 here means the slot filled
// between the client's read and this write.
func (h *BookingHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	b, err := h.engine.Reserve(r.Context(), booking.ReservationRequest{
		ServiceID:     req.ServiceID,
		Date:          req.Date,
		Slot:          req.Slot,
		Duration:      req.Duration,
		UserName:      req.UserName,
		UserEmail:     req.UserEmail,
		UserPhone:     req.UserPhone,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItem(b))
}

// Status looks up the caller's latest booking by contact pair. Public,
// so the response carries no more than the caller already submitted.
func (h *BookingHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	email := strings.TrimSpace(r.URL.Query().Get("email"))

	b, err := h.engine.StatusByContact(r.Context(), phone, email)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(b))
}

// List returns every booking on a date, optionally narrowed to one
// service. Admin surface.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeFieldError(w, http.StatusBadRequest, "booking_date", "date is required")
		return
	}
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))

	bookings, err := h.engine.ListDay(r.Context(), dateStr, serviceID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toItem(b))
	}
	writeJSON(w, http.StatusOK, items)
}

// Transition applies one lifecycle step to a booking. Admin surface;
// the engine rejects anything the lifecycle matrix does not allow.
func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		writeFieldError(w, http.StatusBadRequest, "booking_id", "booking_id is required")
		return
	}

	b, err := h.engine.Transition(r.Context(), req.BookingID, strings.TrimSpace(req.Status))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(b))
}

func (h *BookingHandler) writeEngineError(w http.ResponseWriter, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		writeFieldError(w, http.StatusBadRequest, verr.Field, verr.Reason)
	case errors.Is(err, booking.ErrSlotConflict):
		writeFieldError(w, http.StatusConflict, "", "slot is no longer available")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeFieldError(w, http.StatusConflict, "", "status transition not allowed")
	case errors.Is(err, booking.ErrServiceNotFound):
		writeFieldError(w, http.StatusNotFound, "", "service not found")
	case errors.Is(err, booking.ErrBookingNotFound):
		writeFieldError(w, http.StatusNotFound, "", "booking not found")
	default:
		h.logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toItem(b model.Booking) bookingItem {
	return bookingItem{
		BookingID:     b.ID,
		ServiceID:     b.ServiceID,
		Date:          b.Date.Format("2006-01-02"),
		Slot:          b.Slot,
		Duration:      b.Duration,
		UserName:      b.UserName,
		PaymentMethod: string(b.PaymentMethod),
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeFieldError(w http.ResponseWriter, status int, field, msg string) {
	body, err := json.Marshal(errorResponse{Error: msg, Field: field})
	if err != nil {
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
