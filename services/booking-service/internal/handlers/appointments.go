package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/agendasalon/agenda/libs/httpx"
	"github.com/agendasalon/agenda/services/booking-service/internal/booking"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	UserHeader           = "X-User-Id"
	IdempotencyKeyHeader = "Idempotency-Key"
)

// BookingService is implemented by *booking.Service.
type BookingService interface {
	Availability(ctx context.Context, q booking.AvailabilityQuery) (booking.Availability, error)
	Create(ctx context.Context, in booking.CreateInput) (model.Appointment, error)
	Update(ctx context.Context, in booking.UpdateInput) (model.Appointment, error)
	Reschedule(ctx context.Context, in booking.RescheduleInput) (booking.Rescheduled, error)
	UpdateStatus(ctx context.Context, tenantID, id int64, status model.Status) (model.Appointment, error)
	Cancel(ctx context.Context, tenantID, id int64) (model.Appointment, error)
	Get(ctx context.Context, tenantID, id int64) (model.Appointment, error)
	List(ctx context.Context, tenantID int64, f booking.ListFilter) ([]model.Appointment, error)
}

type AppointmentHandler struct {
	svc    BookingService
	val    *validator.Validate
	logger *slog.Logger
}

func NewAppointmentHandler(svc BookingService, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, val: newValidator(), logger: logger}
}

// Mount registers the appointment routes on r. writeLimit, when non-nil,
// wraps every route that writes.
func (h *AppointmentHandler) Mount(r chi.Router, writeLimit httpx.Middleware) {
	r.Route("/api/v1/appointments", func(r chi.Router) {
		r.Use(RequireTenant)
		r.Get("/availability", h.Availability)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			if writeLimit != nil {
				r.Use(writeLimit)
			}
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Post("/{id}/reschedule", h.Reschedule)
			r.Patch("/{id}/status", h.UpdateStatus)
			r.Patch("/{id}/cancel", h.Cancel)
		})
	})
}

type professionalResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type availabilityResponse struct {
	Professional *professionalResponse `json:"professional"`
	Slots        []string              `json:"slots"`
}

func (h *AppointmentHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	professionalID, ok := queryID(w, q.Get("professionalId"), "professionalId")
	if !ok {
		return
	}
	serviceID, ok := queryID(w, q.Get("serviceId"), "serviceId")
	if !ok {
		return
	}

	res, err := h.svc.Availability(r.Context(), booking.AvailabilityQuery{
		TenantID:       tenantFromContext(r.Context()),
		Date:           strings.TrimSpace(q.Get("date")),
		ProfessionalID: professionalID,
		ServiceID:      serviceID,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := availabilityResponse{Slots: make([]string, 0, len(res.Slots))}
	if res.Professional != nil {
		resp.Professional = &professionalResponse{ID: res.Professional.ID, Name: res.Professional.Name}
	}
	for _, s := range res.Slots {
		resp.Slots = append(resp.Slots, s.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

type walkInRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"max=40"`
	Email string `json:"email" validate:"omitempty,email"`
}

type createRequest struct {
	ProfessionalID int64            `json:"professionalId" validate:"required,gt=0"`
	ServiceID      int64            `json:"serviceId" validate:"required,gt=0"`
	ClientID       int64            `json:"clientId" validate:"omitempty,gt=0"`
	Client         *walkInRequest   `json:"client" validate:"required_without=ClientID"`
	Date           string           `json:"date" validate:"required,date"`
	Time           string           `json:"time" validate:"required,clock"`
	Notes          string           `json:"notes" validate:"max=2000"`
	Price          *decimal.Decimal `json:"price"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	in := booking.CreateInput{
		TenantID:       tenantFromContext(r.Context()),
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		ClientID:       req.ClientID,
		Date:           req.Date,
		Time:           req.Time,
		Notes:          req.Notes,
		Price:          req.Price,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)),
		CreatedBy:      strings.TrimSpace(r.Header.Get(UserHeader)),
	}
	if req.Client != nil {
		in.Client = &booking.WalkIn{Name: req.Client.Name, Phone: req.Client.Phone, Email: req.Client.Email}
	}

	appt, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

type updateRequest struct {
	ProfessionalID *int64           `json:"professionalId" validate:"omitempty,gt=0"`
	ServiceID      *int64           `json:"serviceId" validate:"omitempty,gt=0"`
	Date           *string          `json:"date" validate:"omitempty,date"`
	Time           *string          `json:"time" validate:"omitempty,clock"`
	Notes          *string          `json:"notes" validate:"omitempty,max=2000"`
	Price          *decimal.Decimal `json:"price"`
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	appt, err := h.svc.Update(r.Context(), booking.UpdateInput{
		TenantID:       tenantFromContext(r.Context()),
		ID:             id,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
		Time:           req.Time,
		Notes:          req.Notes,
		Price:          req.Price,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type rescheduleRequest struct {
	Date           string  `json:"date" validate:"required,date"`
	Time           string  `json:"time" validate:"required,clock"`
	ProfessionalID int64   `json:"professionalId" validate:"omitempty,gt=0"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

type rescheduleResponse struct {
	Previous    appointmentResponse `json:"previous"`
	Appointment appointmentResponse `json:"appointment"`
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.Reschedule(r.Context(), booking.RescheduleInput{
		TenantID:       tenantFromContext(r.Context()),
		ID:             id,
		Date:           req.Date,
		Time:           req.Time,
		ProfessionalID: req.ProfessionalID,
		Notes:          req.Notes,
		CreatedBy:      strings.TrimSpace(r.Header.Get(UserHeader)),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rescheduleResponse{
		Previous:    toAppointmentResponse(res.Previous),
		Appointment: toAppointmentResponse(res.Replacement),
	})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	appt, err := h.svc.UpdateStatus(r.Context(), tenantFromContext(r.Context()), id, model.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Cancel(r.Context(), tenantFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Get(r.Context(), tenantFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	professionalID, ok := queryID(w, q.Get("professionalId"), "professionalId")
	if !ok {
		return
	}
	clientID, ok := queryID(w, q.Get("clientId"), "clientId")
	if !ok {
		return
	}
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = n
	}

	appts, err := h.svc.List(r.Context(), tenantFromContext(r.Context()), booking.ListFilter{
		Date:           strings.TrimSpace(q.Get("date")),
		DateFrom:       strings.TrimSpace(q.Get("dateFrom")),
		DateTo:         strings.TrimSpace(q.Get("dateTo")),
		ProfessionalID: professionalID,
		ClientID:       clientID,
		Status:         model.Status(strings.TrimSpace(q.Get("status"))),
		Limit:          limit,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id", nil)
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive id query parameter. Empty means zero.
func queryID(w http.ResponseWriter, raw, name string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}
