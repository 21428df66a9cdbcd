package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agendasalon/agenda/services/booking-service/internal/availability"
	"github.com/agendasalon/agenda/services/booking-service/internal/model"
	"github.com/agendasalon/agenda/services/booking-service/internal/outbox"
)

// memStore serializes every transaction behind one mutex, the single-writer
// discipline the Postgres store gets from serializable isolation.
type memStore struct {
	mu          sync.Mutex
	st          memState
	failCommits int
	commits     int
}

type memClient struct {
	ID          int64
	TenantID    int64
	Name        string
	Phone       string
	Email       string
	TotalVisits int
	LastVisitAt *time.Time
}

type memState struct {
	tenants  map[int64]model.Tenant
	profs    map[int64]model.Professional
	services map[int64]model.Service
	clients  map[int64]memClient
	appts    map[int64]model.Appointment
	idem     map[string]int64
	events   []outbox.Event
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{st: memState{
		tenants:  map[int64]model.Tenant{},
		profs:    map[int64]model.Professional{},
		services: map[int64]model.Service{},
		clients:  map[int64]memClient{},
		appts:    map[int64]model.Appointment{},
		idem:     map[string]int64{},
		nextID:   1000,
	}}
}

func (s memState) clone() memState {
	c := s
	c.clients = make(map[int64]memClient, len(s.clients))
	for k, v := range s.clients {
		c.clients[k] = v
	}
	c.appts = make(map[int64]model.Appointment, len(s.appts))
	for k, v := range s.appts {
		c.appts[k] = v
	}
	c.idem = make(map[string]int64, len(s.idem))
	for k, v := range s.idem {
		c.idem[k] = v
	}
	c.events = append([]outbox.Event(nil), s.events...)
	return c
}

func (m *memStore) appointments() []model.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Appointment, 0, len(m.st.appts))
	for _, a := range m.st.appts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) events() []outbox.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]outbox.Event(nil), m.st.events...)
}

func (m *memStore) Tenant(_ context.Context, tenantID int64) (model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.st.tenants[tenantID]
	if !ok {
		return model.Tenant{}, notFound("tenant")
	}
	return t, nil
}

func (m *memStore) Professional(ctx context.Context, tenantID, id int64) (model.Professional, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: &m.st}).Professional(ctx, tenantID, id)
}

func (m *memStore) Professionals(ctx context.Context, tenantID int64) ([]model.Professional, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: &m.st}).Professionals(ctx, tenantID)
}

func (m *memStore) Service(ctx context.Context, tenantID, id int64) (model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: &m.st}).Service(ctx, tenantID, id)
}

func (m *memStore) ActiveBookings(_ context.Context, tenantID, professionalID int64, date string) ([]availability.Booked, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []availability.Booked
	for _, a := range m.st.appts {
		if a.TenantID == tenantID && a.ProfessionalID == professionalID && a.Date == date && a.Status.Active() {
			out = append(out, availability.Booked{Start: a.Time, Duration: m.st.services[a.ServiceID].Duration})
		}
	}
	return out, nil
}

func (m *memStore) GetAppointment(ctx context.Context, tenantID, id int64) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{st: &m.st}).LockAppointment(ctx, tenantID, id)
}

func (m *memStore) ListAppointments(_ context.Context, tenantID int64, f ListFilter) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, a := range m.st.appts {
		switch {
		case a.TenantID != tenantID:
		case f.Date != "" && a.Date != f.Date:
		case f.DateFrom != "" && a.Date < f.DateFrom:
		case f.DateTo != "" && a.Date > f.DateTo:
		case f.ProfessionalID > 0 && a.ProfessionalID != f.ProfessionalID:
		case f.ClientID > 0 && a.ClientID != f.ClientID:
		case f.Status != "" && a.Status != f.Status:
		default:
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	staged := m.st.clone()
	if err := fn(ctx, &memTx{st: &staged}); err != nil {
		return err
	}
	if m.failCommits > 0 {
		m.failCommits--
		return fmt.Errorf("%w: could not serialize access due to read/write dependencies", ErrTransient)
	}
	m.st = staged
	m.commits++
	return nil
}

type memTx struct {
	st *memState
}

func (t *memTx) Professional(_ context.Context, tenantID, id int64) (model.Professional, error) {
	p, ok := t.st.profs[id]
	if !ok || p.TenantID != tenantID {
		return model.Professional{}, notFound("professional")
	}
	return p, nil
}

func (t *memTx) Professionals(_ context.Context, tenantID int64) ([]model.Professional, error) {
	var out []model.Professional
	for _, p := range t.st.profs {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) Service(_ context.Context, tenantID, id int64) (model.Service, error) {
	s, ok := t.st.services[id]
	if !ok || s.TenantID != tenantID {
		return model.Service{}, notFound("service")
	}
	return s, nil
}

func (t *memTx) ClientExists(_ context.Context, tenantID, id int64) (bool, error) {
	c, ok := t.st.clients[id]
	return ok && c.TenantID == tenantID, nil
}

func (t *memTx) FindOrCreateClient(_ context.Context, tenantID int64, w WalkIn) (int64, error) {
	if w.Phone != "" {
		for _, c := range t.st.clients {
			if c.TenantID == tenantID && c.Phone == w.Phone {
				return c.ID, nil
			}
		}
	}
	t.st.nextID++
	id := t.st.nextID
	t.st.clients[id] = memClient{ID: id, TenantID: tenantID, Name: w.Name, Phone: w.Phone, Email: w.Email}
	return id, nil
}

func (t *memTx) RecordVisit(_ context.Context, tenantID, clientID int64, at time.Time) error {
	c, ok := t.st.clients[clientID]
	if !ok || c.TenantID != tenantID {
		return notFound("client")
	}
	c.TotalVisits++
	c.LastVisitAt = &at
	t.st.clients[clientID] = c
	return nil
}

func (t *memTx) FindActiveForUpdate(_ context.Context, key model.SlotKey, excludeID int64) (model.Appointment, bool, error) {
	for _, a := range t.st.appts {
		if a.ID != excludeID && a.Status.Active() && a.Key() == key {
			return a, true, nil
		}
	}
	return model.Appointment{}, false, nil
}

func (t *memTx) LockAppointment(_ context.Context, tenantID, id int64) (model.Appointment, error) {
	a, ok := t.st.appts[id]
	if !ok || a.TenantID != tenantID {
		return model.Appointment{}, notFound("appointment")
	}
	return a, nil
}

func (t *memTx) InsertAppointment(_ context.Context, appt *model.Appointment) error {
	t.st.nextID++
	appt.ID = t.st.nextID
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	t.st.appts[appt.ID] = *appt
	return nil
}

func (t *memTx) UpdateAppointment(_ context.Context, appt *model.Appointment) error {
	if _, ok := t.st.appts[appt.ID]; !ok {
		return notFound("appointment")
	}
	appt.UpdatedAt = time.Now()
	t.st.appts[appt.ID] = *appt
	return nil
}

func (t *memTx) ClaimIdempotencyKey(_ context.Context, tenantID int64, key string) (int64, bool, error) {
	id, ok := t.st.idem[fmt.Sprintf("%d:%s", tenantID, key)]
	return id, ok, nil
}

func (t *memTx) SaveIdempotencyKey(_ context.Context, tenantID int64, key string, appointmentID int64) error {
	t.st.idem[fmt.Sprintf("%d:%s", tenantID, key)] = appointmentID
	return nil
}

func (t *memTx) Emit(_ context.Context, evt outbox.Event) error {
	t.st.events = append(t.st.events, evt)
	return nil
}
