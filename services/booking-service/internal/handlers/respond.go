package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/agendasalon/agenda/libs/httpx"
	"github.com/agendasalon/agenda/services/booking-service/internal/booking"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/go-playground/validator/v10"
)

// retryAfter is the Retry-After hint sent with 503 responses.
const retryAfter = 1 * time.Second

type conflictRef struct {
	ID   int64  `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
}

type errorResponse struct {
	Code                   int               `json:"code"`
	Message                string            `json:"message"`
	Details                map[string]string `json:"details,omitempty"`
	ConflictingAppointment *conflictRef      `json:"conflictingAppointment,omitempty"`
}

type appointmentResponse struct {
	ID             int64     `json:"id"`
	TenantID       int64     `json:"tenantId"`
	ProfessionalID int64     `json:"professionalId"`
	ServiceID      int64     `json:"serviceId"`
	ClientID       int64     `json:"clientId"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	EndTime        string    `json:"endTime"`
	Status         string    `json:"status"`
	Price          string    `json:"price"`
	Notes          string    `json:"notes"`
	ReplacedByID   *int64    `json:"replacedById,omitempty"`
	CreatedBy      string    `json:"createdBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             a.ID,
		TenantID:       a.TenantID,
		ProfessionalID: a.ProfessionalID,
		ServiceID:      a.ServiceID,
		ClientID:       a.ClientID,
		Date:           a.Date,
		Time:           a.Time.String(),
		EndTime:        a.EndTime.String(),
		Status:         string(a.Status),
		Price:          a.Price.StringFixed(2),
		Notes:          a.Notes,
		ReplacedByID:   a.ReplacedByID,
		CreatedBy:      a.CreatedBy,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message, Details: details})
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// writeServiceError maps booking errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var conflict *booking.ConflictError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{
			Code:    http.StatusConflict,
			Message: "time slot already booked",
			ConflictingAppointment: &conflictRef{
				ID:   conflict.ID,
				Date: conflict.Date,
				Time: conflict.Time.String(),
			},
		})
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, "invalid request", validationDetails(verrs))
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, booking.ErrTransient):
		logger.Warn("booking temporarily unavailable", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		writeError(w, http.StatusServiceUnavailable, booking.ErrTransient.Error(), nil)
	default:
		logger.Error("booking request failed", "request_id", httpx.RequestIDFromContext(r.Context()), "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
