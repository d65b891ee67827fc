package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/store"
)

func TestStore_AppointmentRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := &models.Appointment{ApplicationID: 3, TutorID: 1, StudentID: 2}
	require.NoError(t, s.InsertAppointment(ctx, a))
	require.NotZero(t, a.ID)
	assert.Equal(t, models.StatusNegotiating, a.Status)
	assert.Equal(t, models.PaymentNone, a.PaymentStatus)

	got, err := s.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ApplicationID, got.ApplicationID)

	// returned records are copies
	got.Status = models.StatusCancelled
	again, err := s.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNegotiating, again.Status)

	_, err = s.GetAppointment(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.UpdateAppointment(ctx, &models.Appointment{ID: 999}), models.ErrNotFound)
}

func TestStore_LatestAppointment(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := &models.Appointment{ApplicationID: 3, TutorID: 1, StudentID: 2, Status: models.StatusCompleted}
	second := &models.Appointment{ApplicationID: 3, TutorID: 1, StudentID: 2}
	other := &models.Appointment{ApplicationID: 4, TutorID: 1, StudentID: 2}
	for _, a := range []*models.Appointment{first, second, other} {
		require.NoError(t, s.InsertAppointment(ctx, a))
	}

	latest, err := s.LatestAppointment(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = s.LatestAppointment(ctx, 5)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_ListAppointments(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mk := func(student uint, status models.AppointmentStatus, at time.Time) {
		a := &models.Appointment{ApplicationID: student, TutorID: 1, StudentID: student, Status: status, ProposedDate: &at}
		require.NoError(t, s.InsertAppointment(ctx, a))
	}
	mk(2, models.StatusConfirmed, base)
	mk(3, models.StatusConfirmed, base.Add(2*time.Hour))
	mk(4, models.StatusNegotiating, base)

	res, err := s.ListAppointments(ctx, store.AppointmentQuery{
		Statuses:     []models.AppointmentStatus{models.StatusConfirmed},
		ProposedFrom:   base.Add(-time.Minute),
		ProposedBefore: base.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint(2), res[0].StudentID)

	res, err = s.ListAppointments(ctx, store.AppointmentQuery{ParticipantID: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestStore_ConcurrentWritesResolveToStoreOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := &models.Appointment{ApplicationID: 1, TutorID: 1, StudentID: 2}
	require.NoError(t, s.InsertAppointment(ctx, a))

	var (
		mu   sync.Mutex
		last *models.Appointment
	)
	cancel, err := s.Subscribe(ctx, store.Filter{Entity: store.EntityAppointment, ID: a.ID}, func(c store.Change) {
		mu.Lock()
		last = c.Appointment
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := time.Date(2026, 1, 1, i, 0, 0, 0, time.UTC)
			rec := &models.Appointment{ID: a.ID, ApplicationID: 1, TutorID: 1, StudentID: 2, Status: models.StatusNegotiating, ProposedDate: &at}
			assert.NoError(t, s.UpdateAppointment(ctx, rec))
		}(i)
	}
	wg.Wait()

	stored, err := s.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, stored.ProposedDate.Equal(*last.ProposedDate), "last delivered change must be the stored record")
}

func TestStore_ContractsAndRecords(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := &models.Contract{TutorID: 1, StudentID: 2, MonthlyFee: 50}
	require.NoError(t, s.InsertContract(ctx, c))
	assert.Equal(t, models.ContractPending, c.Status)

	c.Status = models.ContractActive
	c.PaymentDue = true
	require.NoError(t, s.UpdateContract(ctx, c))

	due := true
	list, err := s.ListContracts(ctx, store.ContractQuery{ParticipantID: 2, PaymentDue: &due})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ContractActive, list[0].Status)

	require.NoError(t, s.InsertAttendance(ctx, &models.Attendance{ContractID: c.ID, VerifiedBy: models.RoleStudent, Method: models.AttendanceManual}))
	att, err := s.ListAttendance(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, att, 1)

	require.NoError(t, s.InsertPayment(ctx, &models.Payment{ContractID: c.ID, StudentID: 2, Amount: 50}))
	assert.Len(t, s.Payments(c.ID), 1)

	assert.ErrorIs(t, s.InsertReport(ctx, &models.Report{AppointmentID: 1, Reason: " "}), models.ErrReasonRequired)

	require.NoError(t, s.InsertUser(ctx, &models.User{ID: 2, Name: "Ama", Email: "ama@example.com", Role: models.RoleStudent}))
	u, err := s.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Ama", u.Name)
}
