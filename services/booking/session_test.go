package booking

import (
	"context"
	"testing"
	"time"

	"clinicbook/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisStore(t *testing.T) *RedisSessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSessionStore(client, time.Hour)
}

func newService(t *testing.T, backend *fakeBackend) (*DefaultFlowSessionService, *fakeQueue) {
	t.Helper()
	queue := &fakeQueue{}
	svc := &DefaultFlowSessionService{
		Backend:          backend,
		Store:            redisStore(t),
		NotifyQueue:      queue,
		Evaluator:        NewConstraintEvaluator(taipei(t)),
		ClinicID:         "clinic-1",
		Variant:          models.VariantTypeFirst,
		AllowRetreat:     true,
		MultiSlotEnabled: true,
	}
	svc.Now = func() time.Time { return at(t, svc.Evaluator.Loc, "2024-02-01T08:00") }
	return svc, queue
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := redisStore(t)
	ctx := context.Background()

	session := flowSession(models.VariantTypeFirst)
	session.Draft.AppointmentType = &consultType
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, loaded.SessionID)
	require.NotNil(t, loaded.Draft.AppointmentType)
	assert.Equal(t, "consult", loaded.Draft.AppointmentType.ID)
	_, ok := loaded.Availability.Lookup(models.AvailabilityEntryKey("dr-chen", "2024-02-01"))
	assert.True(t, ok, "the availability cache survives the round trip")

	require.NoError(t, store.Delete(ctx, session.SessionID))
	_, err = store.Load(ctx, session.SessionID)
	fe, ok := AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSessionNotFound, fe.Reason)
}

func TestInitiateSession(t *testing.T) {
	backend := newFakeBackend()
	backend.policy = models.BookingPolicy{
		RestrictionMode:  models.RestrictionMinimumHours,
		MinimumLeadHours: 4,
	}
	svc, _ := newService(t, backend)

	session, err := svc.InitiateSession(context.Background(), InitiateRequest{
		PatientID:              "patient-9",
		FutureAppointmentCount: 2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, models.ModeBook, session.Mode)
	assert.Equal(t, models.StepSelectType, session.Draft.Step)
	assert.Equal(t, 4, session.Policy.MinimumLeadHours)
	assert.Len(t, session.Types, 2)
	assert.Equal(t, 2, session.FutureAppointmentCount)

	stored, err := svc.GetSession(context.Background(), session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, stored.SessionID)
}

func TestFullBookingWalk(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-15", 9*60, 10*60)
	svc, _ := newService(t, backend)
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)
	id := session.SessionID

	session, err = svc.Advance(ctx, id, StepInput{AppointmentTypeID: "consult"})
	require.NoError(t, err)
	assert.Equal(t, models.StepSelectPractitioner, session.Draft.Step)
	require.Len(t, session.Practitioners, 2, "entering the step fetches the practitioner list")

	session, err = svc.Advance(ctx, id, StepInput{PractitionerID: "dr-chen"})
	require.NoError(t, err)
	assert.Equal(t, models.StepSelectDateTime, session.Draft.Step)
	assert.Equal(t, []models.CalendarDate{"2024-02-15"}, session.Availability.OpenDatesFor("dr-chen"),
		"entering the step preloads the current month")

	session, err = svc.Advance(ctx, id, StepInput{Slot: &models.TimeSlot{Date: "2024-02-15", Start: 9 * 60}})
	require.NoError(t, err)
	session, err = svc.Advance(ctx, id, StepInput{PatientID: "patient-9"})
	require.NoError(t, err)
	session, err = svc.Advance(ctx, id, StepInput{})
	require.NoError(t, err)
	assert.Equal(t, models.StepConfirm, session.Draft.Step)

	session, err = svc.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StepSuccess, session.Draft.Step)
	require.NotNil(t, session.Result)
	assert.Equal(t, "appt-new", session.Result.AppointmentID)

	require.Len(t, backend.createCalls, 1)
	req := backend.createCalls[0]
	assert.Equal(t, "patient-9", req.PatientID)
	require.NotNil(t, req.Slot)
	assert.Equal(t, 9*60, req.Slot.Start)
	assert.Empty(t, req.SelectedSlots)
}

func TestMultiSlotConfirmSubmitsPendingRequest(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-15", 9*60, 10*60, 11*60)
	svc, _ := newService(t, backend)
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)
	id := session.SessionID

	_, err = svc.Advance(ctx, id, StepInput{AppointmentTypeID: "consult"})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, id, StepInput{PractitionerID: "dr-chen"})
	require.NoError(t, err)

	_, err = svc.ToggleSlot(ctx, id, models.TimeSlot{Date: "2024-02-15", Start: 10 * 60})
	require.NoError(t, err)
	_, err = svc.ToggleSlot(ctx, id, models.TimeSlot{Date: "2024-02-15", Start: 9 * 60})
	require.NoError(t, err)

	_, err = svc.Advance(ctx, id, StepInput{UseSelectedSlots: true})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, id, StepInput{PatientID: "patient-9"})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, id, StepInput{})
	require.NoError(t, err)

	session, err = svc.Confirm(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, session.Result)
	assert.True(t, session.Result.Pending)

	require.Len(t, backend.createCalls, 1)
	req := backend.createCalls[0]
	assert.Nil(t, req.Slot)
	require.Len(t, req.SelectedSlots, 2)
	assert.Equal(t, 9*60, req.SelectedSlots[0].Start, "slots submit in chronological order")
}

func TestConfirmRejectionStaysAtConfirm(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-15", 9*60)
	backend.createErr = &BackendError{StatusCode: 422, Message: "requested time violates the clinic's lead time policy"}
	svc, _ := newService(t, backend)
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)
	id := session.SessionID

	for _, input := range []StepInput{
		{AppointmentTypeID: "consult"},
		{PractitionerID: "dr-chen"},
		{Slot: &models.TimeSlot{Date: "2024-02-15", Start: 9 * 60}},
		{PatientID: "patient-9"},
		{},
	} {
		_, err = svc.Advance(ctx, id, input)
		require.NoError(t, err)
	}

	session, err = svc.Confirm(ctx, id)
	require.Error(t, err)
	fe, ok := AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonLeadTimeTooShort, fe.Reason, "legacy message pattern-matched to a reason code")

	require.NotNil(t, session)
	assert.Equal(t, models.StepConfirm, session.Draft.Step)
	require.NotNil(t, session.LastError)
	assert.Equal(t, ReasonLeadTimeTooShort, session.LastError.Reason)

	// The rejection is persisted with the session.
	stored, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, ReasonLeadTimeTooShort, stored.LastError.Reason)
}

func TestConfirmStaleSlotRecheck(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-01", 9*60)
	svc, _ := newService(t, backend)
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)
	id := session.SessionID

	for _, input := range []StepInput{
		{AppointmentTypeID: "consult"},
		{PractitionerID: "dr-chen"},
		{Slot: &models.TimeSlot{Date: "2024-02-01", Start: 9 * 60}},
		{PatientID: "patient-9"},
		{},
	} {
		_, err = svc.Advance(ctx, id, input)
		require.NoError(t, err)
	}

	// The patient sat on the confirm screen until the slot fell inside the
	// lead-time window.
	svc.Now = func() time.Time { return at(t, svc.Evaluator.Loc, "2024-02-01T08:30") }
	stored, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	stored.Policy = models.BookingPolicy{
		RestrictionMode:  models.RestrictionMinimumHours,
		MinimumLeadHours: 4,
	}
	require.NoError(t, svc.Store.Save(ctx, stored))

	session, err = svc.Confirm(ctx, id)
	require.Error(t, err)
	fe, _ := AsFlowError(err)
	assert.Equal(t, ReasonLeadTimeTooShort, fe.Reason)
	assert.Equal(t, models.StepConfirm, session.Draft.Step)
	assert.Empty(t, backend.createCalls, "the constraint failure pre-empts the backend call")
}

func TestInitiateReschedule(t *testing.T) {
	backend := newFakeBackend()
	backend.policy = models.BookingPolicy{MinCancellationLeadHours: 24, AllowPatientCancellation: true}
	svc, _ := newService(t, backend)

	original := &models.Appointment{
		ID:           "appt-1",
		PatientID:    "patient-9",
		TypeID:       "consult",
		Date:         "2024-02-10",
		Start:        9 * 60,
		Practitioner: models.SpecificPractitioner("dr-chen"),
		Notes:        "bring referral",
	}

	session, err := svc.InitiateSession(context.Background(), InitiateRequest{
		PatientID: "patient-9",
		Original:  original,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeReschedule, session.Mode)
	assert.Equal(t, models.StepSelectDateTime, session.Draft.Step)
	require.NotNil(t, session.Draft.AppointmentType)
	assert.Equal(t, "consult", session.Draft.AppointmentType.ID)
	require.NotNil(t, session.Draft.Slot)
	assert.Equal(t, models.CalendarDate("2024-02-10"), session.Draft.Slot.Date)
	assert.Equal(t, "bring referral", session.Draft.Notes)
	assert.True(t, session.Draft.NotesSet)
	assert.NotEmpty(t, session.Practitioners, "the practitioner list is ready for edits")
}

func TestInitiateRescheduleTooSoon(t *testing.T) {
	backend := newFakeBackend()
	backend.policy = models.BookingPolicy{MinCancellationLeadHours: 24}
	svc, _ := newService(t, backend)

	original := &models.Appointment{
		ID:           "appt-1",
		PatientID:    "patient-9",
		TypeID:       "consult",
		Date:         "2024-02-01",
		Start:        12 * 60, // four hours from the test clock
		Practitioner: models.SpecificPractitioner("dr-chen"),
	}

	_, err := svc.InitiateSession(context.Background(), InitiateRequest{
		PatientID: "patient-9",
		Original:  original,
	})
	require.Error(t, err)
	fe, ok := AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonRescheduleTooSoon, fe.Reason)
}

func TestConfirmRescheduleNoChanges(t *testing.T) {
	backend := newFakeBackend()
	svc, _ := newService(t, backend)
	ctx := context.Background()

	original := &models.Appointment{
		ID:           "appt-1",
		PatientID:    "patient-9",
		TypeID:       "consult",
		Date:         "2024-02-10",
		Start:        9 * 60,
		Practitioner: models.SpecificPractitioner("dr-chen"),
	}
	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9", Original: original})
	require.NoError(t, err)
	id := session.SessionID

	// Jump straight to confirm without touching anything.
	session, err = svc.JumpTo(ctx, id, models.StepConfirm)
	require.NoError(t, err)

	session, err = svc.Confirm(ctx, id)
	require.Error(t, err)
	fe, _ := AsFlowError(err)
	assert.Equal(t, ReasonNoChanges, fe.Reason)
	assert.Empty(t, backend.rescheduleCalls)
}

func TestConfirmRescheduleSendsOnlyChanges(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-15", 14*60)
	svc, _ := newService(t, backend)
	ctx := context.Background()

	original := &models.Appointment{
		ID:           "appt-1",
		PatientID:    "patient-9",
		TypeID:       "consult",
		Date:         "2024-02-10",
		Start:        9 * 60,
		Practitioner: models.SpecificPractitioner("dr-chen"),
		Notes:        "bring referral",
	}
	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9", Original: original})
	require.NoError(t, err)
	id := session.SessionID

	_, err = svc.SlotsFor(ctx, id, "2024-02-15")
	require.NoError(t, err)
	for _, input := range []StepInput{
		{Slot: &models.TimeSlot{Date: "2024-02-15", Start: 14 * 60}},
		{PatientID: "patient-9"},
		{Notes: strPtr("bring referral")},
	} {
		_, err = svc.Advance(ctx, id, input)
		require.NoError(t, err)
	}

	session, err = svc.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StepSuccess, session.Draft.Step)
	require.NotNil(t, session.Result)
	assert.Equal(t, "appt-1", session.Result.AppointmentID)

	require.Len(t, backend.rescheduleCalls, 1)
	req := backend.rescheduleCalls[0]
	assert.Equal(t, []string{"appt-1"}, backend.rescheduleIDs)
	assert.Equal(t, models.CalendarDate("2024-02-15"), req.Date)
	assert.Equal(t, 14*60, req.Start)
	assert.Nil(t, req.Practitioner, "an unchanged practitioner is omitted")
	assert.Nil(t, req.Notes, "unchanged notes are omitted")
}

func TestRescheduleMovesToSingleNewTime(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-10", 14*60, 15*60)
	svc, _ := newService(t, backend)
	ctx := context.Background()

	original := &models.Appointment{
		ID:           "appt-1",
		PatientID:    "patient-9",
		TypeID:       "consult",
		Date:         "2024-02-10",
		Start:        9 * 60,
		Practitioner: models.SpecificPractitioner("dr-chen"),
	}
	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9", Original: original})
	require.NoError(t, err)
	id := session.SessionID
	_, err = svc.SlotsFor(ctx, id, "2024-02-10")
	require.NoError(t, err)

	// Multi-select has no meaning for an edit.
	_, err = svc.ToggleSlot(ctx, id, models.TimeSlot{Date: "2024-02-10", Start: 14 * 60})
	require.Error(t, err)
	fe, ok := AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonInvalidInput, fe.Reason)

	// The single-slot path carries the time change through to a successful
	// submission.
	for _, input := range []StepInput{
		{Slot: &models.TimeSlot{Date: "2024-02-10", Start: 14 * 60}},
		{PatientID: "patient-9"},
		{},
	} {
		_, err = svc.Advance(ctx, id, input)
		require.NoError(t, err)
	}
	session, err = svc.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StepSuccess, session.Draft.Step)
	require.Len(t, backend.rescheduleCalls, 1)
	assert.Equal(t, 14*60, backend.rescheduleCalls[0].Start)
}

// slowBatchBackend moves the stored session's practitioner selection while the
// month batch fetch is "in flight".
type slowBatchBackend struct {
	*fakeBackend
	store     SessionStore
	sessionID string
	moveTo    string
}

func (b *slowBatchBackend) GetAvailabilityBatch(ctx context.Context, req AvailabilityBatchRequest) (map[models.CalendarDate][]models.TimeSlot, error) {
	stored, err := b.store.Load(ctx, b.sessionID)
	if err == nil {
		sel := models.SpecificPractitioner(b.moveTo)
		stored.Draft.Practitioner = &sel
		_ = b.store.Save(ctx, stored)
	}
	return b.fakeBackend.GetAvailabilityBatch(ctx, req)
}

func TestLoadMonthDiscardsStaleView(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-15", 9*60)
	svc, _ := newService(t, backend)
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)
	id := session.SessionID
	_, err = svc.Advance(ctx, id, StepInput{AppointmentTypeID: "consult"})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, id, StepInput{PractitionerID: "dr-chen"})
	require.NoError(t, err)

	// Swap in a backend that flips the live selection to dr-lin while the
	// fetch for dr-chen runs.
	svc.Backend = &slowBatchBackend{
		fakeBackend: backend,
		store:       svc.Store,
		sessionID:   id,
		moveTo:      "dr-lin",
	}

	session, err = svc.LoadMonth(ctx, id, "2024-02")
	require.NoError(t, err)

	// The entries are kept but the view is not adopted for the moved selection.
	assert.Nil(t, session.Availability.OpenDatesFor("dr-lin"))
	_, cached := session.Availability.Lookup(models.AvailabilityEntryKey("dr-chen", "2024-02-15"))
	assert.True(t, cached, "fetched slots stay cached for navigating back")
	require.NotNil(t, session.Draft.Practitioner)
	assert.Equal(t, "dr-lin", session.Draft.Practitioner.ID)
}

func TestLoadMonthAdoptsViewForLiveSelection(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-15", 9*60)
	svc, _ := newService(t, backend)
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)
	id := session.SessionID
	_, err = svc.Advance(ctx, id, StepInput{AppointmentTypeID: "consult"})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, id, StepInput{PractitionerID: "dr-chen"})
	require.NoError(t, err)

	session, err = svc.LoadMonth(ctx, id, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, []models.CalendarDate{"2024-02-15"}, session.Availability.OpenDatesFor("dr-chen"))
}

func TestRequestNotificationDefaults(t *testing.T) {
	backend := newFakeBackend()
	svc, queue := newService(t, backend)
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)
	id := session.SessionID
	_, err = svc.Advance(ctx, id, StepInput{AppointmentTypeID: "consult"})
	require.NoError(t, err)

	err = svc.RequestNotification(ctx, id, models.AvailabilityNotificationRequest{
		PatientID:   "patient-9",
		Date:        "2024-02-20",
		TimeWindows: []models.TimeWindow{{Start: 9 * 60, End: 12 * 60}},
	})
	require.NoError(t, err)

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "consult", queue.enqueued[0].AppointmentTypeID,
		"the appointment type defaults from the draft")

	err = svc.RequestNotification(ctx, id, models.AvailabilityNotificationRequest{PatientID: "patient-9"})
	require.Error(t, err)
	fe, _ := AsFlowError(err)
	assert.Equal(t, ReasonMissingField, fe.Reason)
}

func TestResetStartsNewBooking(t *testing.T) {
	backend := newFakeBackend()
	backend.offer("dr-chen", "2024-02-15", 9*60)
	svc, _ := newService(t, backend)
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)
	id := session.SessionID
	for _, input := range []StepInput{
		{AppointmentTypeID: "consult"},
		{PractitionerID: "dr-chen"},
		{Slot: &models.TimeSlot{Date: "2024-02-15", Start: 9 * 60}},
		{PatientID: "patient-9"},
		{},
	} {
		_, err = svc.Advance(ctx, id, input)
		require.NoError(t, err)
	}
	session, err = svc.Confirm(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.StepSuccess, session.Draft.Step)

	session, err = svc.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StepSelectType, session.Draft.Step)
	assert.Nil(t, session.Draft.AppointmentType)
	assert.Nil(t, session.Result)
	assert.Len(t, session.Types, 2, "the clinic catalog survives the reset")

	// The reset session walks again without a new initiate.
	session, err = svc.Advance(ctx, id, StepInput{AppointmentTypeID: "consult"})
	require.NoError(t, err)
	assert.Equal(t, models.StepSelectPractitioner, session.Draft.Step)
}

func TestResetClearsRescheduleState(t *testing.T) {
	backend := newFakeBackend()
	svc, _ := newService(t, backend)
	ctx := context.Background()

	original := &models.Appointment{
		ID:           "appt-1",
		PatientID:    "patient-9",
		TypeID:       "consult",
		Date:         "2024-02-10",
		Start:        9 * 60,
		Practitioner: models.SpecificPractitioner("dr-chen"),
	}
	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9", Original: original})
	require.NoError(t, err)

	session, err = svc.Reset(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.ModeBook, session.Mode)
	assert.Nil(t, session.Original)
	assert.Empty(t, session.Availability.Entries,
		"cached slots excluded the edited appointment and are stale for a fresh booking")
}

func TestCancelSession(t *testing.T) {
	svc, _ := newService(t, newFakeBackend())
	ctx := context.Background()

	session, err := svc.InitiateSession(ctx, InitiateRequest{PatientID: "patient-9"})
	require.NoError(t, err)

	require.NoError(t, svc.CancelSession(ctx, session.SessionID))
	_, err = svc.GetSession(ctx, session.SessionID)
	fe, ok := AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSessionNotFound, fe.Reason)
}

func strPtr(s string) *string { return &s }
