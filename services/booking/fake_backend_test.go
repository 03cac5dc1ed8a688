package booking

import (
	"context"
	"sync"

	"clinicbook/models"
)

// fakeBackend is an in-memory SchedulingBackend. Availability is keyed the
// same way as the session cache: "<practitioner-or-any>|<date>".
type fakeBackend struct {
	mu sync.Mutex

	policy        models.BookingPolicy
	types         []models.AppointmentType
	instructions  map[string]string
	practitioners []models.Practitioner
	availability  map[string][]models.TimeSlot

	policyErr     error
	batchErr      error
	singleErr     error
	createErr     error
	rescheduleErr error
	notifyErr     error

	createResult *models.CreatedAppointment

	batchCalls      []AvailabilityBatchRequest
	singleCalls     []AvailabilityRequest
	createCalls     []CreateAppointmentRequest
	rescheduleCalls []RescheduleRequest
	rescheduleIDs   []string
	notifyCalls     []models.AvailabilityNotificationRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		types: []models.AppointmentType{consultType, procedureType},
		practitioners: []models.Practitioner{
			{ID: "dr-chen", DisplayName: "Dr. Chen", TypeIDs: []string{"consult"}},
			{ID: "dr-lin", DisplayName: "Dr. Lin", TypeIDs: []string{"consult"}},
		},
		availability: make(map[string][]models.TimeSlot),
	}
}

func (b *fakeBackend) offer(practitionerKey string, date models.CalendarDate, startsAt ...int) {
	key := models.AvailabilityEntryKey(practitionerKey, date)
	slots := make([]models.TimeSlot, 0, len(startsAt))
	for _, start := range startsAt {
		slots = append(slots, models.TimeSlot{Date: date, Start: start})
	}
	b.availability[key] = slots
}

func practitionerKeyOf(id string) string {
	if id == "" {
		return "any"
	}
	return id
}

func (b *fakeBackend) ListAppointmentTypes(ctx context.Context, clinicID, patientID string) ([]models.AppointmentType, map[string]string, error) {
	return b.types, b.instructions, nil
}

func (b *fakeBackend) ListPractitioners(ctx context.Context, clinicID, appointmentTypeID, patientID string) ([]models.Practitioner, error) {
	out := make([]models.Practitioner, 0, len(b.practitioners))
	for _, p := range b.practitioners {
		if p.OffersType(appointmentTypeID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *fakeBackend) GetAvailability(ctx context.Context, req AvailabilityRequest) ([]models.TimeSlot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.singleCalls = append(b.singleCalls, req)
	if b.singleErr != nil {
		return nil, b.singleErr
	}
	return b.availability[models.AvailabilityEntryKey(practitionerKeyOf(req.PractitionerID), req.Date)], nil
}

func (b *fakeBackend) GetAvailabilityBatch(ctx context.Context, req AvailabilityBatchRequest) (map[models.CalendarDate][]models.TimeSlot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batchCalls = append(b.batchCalls, req)
	if b.batchErr != nil {
		return nil, b.batchErr
	}
	out := make(map[models.CalendarDate][]models.TimeSlot)
	for _, date := range req.Dates {
		key := models.AvailabilityEntryKey(practitionerKeyOf(req.PractitionerID), date)
		if slots, ok := b.availability[key]; ok {
			out[date] = slots
		}
	}
	return out, nil
}

func (b *fakeBackend) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*models.CreatedAppointment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createCalls = append(b.createCalls, req)
	if b.createErr != nil {
		return nil, b.createErr
	}
	if b.createResult != nil {
		return b.createResult, nil
	}
	created := &models.CreatedAppointment{AppointmentID: "appt-new"}
	if req.Slot != nil {
		created.Date = req.Slot.Date
		created.Start = req.Slot.Start
	} else {
		created.Pending = true
	}
	return created, nil
}

func (b *fakeBackend) RescheduleAppointment(ctx context.Context, appointmentID string, req RescheduleRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rescheduleIDs = append(b.rescheduleIDs, appointmentID)
	b.rescheduleCalls = append(b.rescheduleCalls, req)
	return b.rescheduleErr
}

func (b *fakeBackend) CreateAvailabilityNotification(ctx context.Context, req models.AvailabilityNotificationRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifyCalls = append(b.notifyCalls, req)
	return b.notifyErr
}

func (b *fakeBackend) GetClinicBookingPolicy(ctx context.Context, clinicID string) (models.BookingPolicy, error) {
	return b.policy, b.policyErr
}

// memoryStore is a map-backed SessionStore for tests that do not exercise
// Redis behaviour.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.FlowSession
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]*models.FlowSession)}
}

func (m *memoryStore) Save(ctx context.Context, session *models.FlowSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.SessionID] = &copied
	return nil
}

func (m *memoryStore) Load(ctx context.Context, sessionID string) (*models.FlowSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, NewFlowError(ReasonSessionNotFound, "booking session not found or expired")
	}
	copied := *session
	return &copied, nil
}

func (m *memoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// fakeQueue records notification requests synchronously.
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []models.AvailabilityNotificationRequest
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, req models.AvailabilityNotificationRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, req)
	return nil
}
