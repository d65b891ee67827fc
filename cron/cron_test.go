package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/notify"
	"github.com/meinhoongagan/tutor-sessions/store/memstore"
)

func TestSendAppointmentReminders(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	rec := &notify.Recorder{}
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	r := NewReminders(st, st, rec)
	r.now = func() time.Time { return now }

	insert := func(status models.AppointmentStatus, in time.Duration) {
		at := now.Add(in)
		require.NoError(t, st.InsertAppointment(ctx, &models.Appointment{TutorID: 1, StudentID: 2, Status: status, ProposedDate: &at}))
	}
	insert(models.StatusConfirmed, time.Hour)
	insert(models.StatusScheduled, time.Hour+30*time.Second)
	insert(models.StatusConfirmed, 58*time.Minute)
	insert(models.StatusNegotiating, time.Hour)
	insert(models.StatusConfirmed, 3*time.Hour)

	assert.Equal(t, 2, r.SendAppointmentReminders(ctx))
	sent := rec.Sent()
	require.Len(t, sent, 4)
	assert.Equal(t, "Reminder: session in one hour", sent[0].Subject)
}

func TestSendAppointmentReminders_OncePerSession(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	rec := &notify.Recorder{}
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	r := NewReminders(st, st, rec)
	r.now = func() time.Time { return now }

	for _, in := range []time.Duration{55 * time.Minute, time.Hour, 62*time.Minute + 59*time.Second} {
		at := now.Add(in)
		require.NoError(t, st.InsertAppointment(ctx, &models.Appointment{TutorID: 1, StudentID: 2, Status: models.StatusConfirmed, ProposedDate: &at}))
	}

	total := 0
	// a minutely job fires slightly after each boundary
	start := now
	for i := -10; i <= 10; i++ {
		now = start.Add(time.Duration(i)*time.Minute + 150*time.Millisecond)
		total += r.SendAppointmentReminders(ctx)
	}
	assert.Equal(t, 3, total)
	assert.Len(t, rec.Sent(), 6)
}

func TestSendPaymentReminders(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	rec := &notify.Recorder{}
	r := NewReminders(st, st, rec)

	require.NoError(t, st.InsertContract(ctx, &models.Contract{TutorID: 1, StudentID: 2, Status: models.ContractActive, PaymentDue: true}))
	require.NoError(t, st.InsertContract(ctx, &models.Contract{TutorID: 1, StudentID: 3, Status: models.ContractActive}))
	require.NoError(t, st.InsertContract(ctx, &models.Contract{TutorID: 1, StudentID: 4, Status: models.ContractCompleted, PaymentDue: true}))

	assert.Equal(t, 1, r.SendPaymentReminders(ctx))
	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, uint(2), sent[0].UserID)
}

func TestStartCronJobs_RejectsBadSpec(t *testing.T) {
	r := NewReminders(memstore.New(), memstore.New(), notify.Log{})
	_, err := StartCronJobs(r, "not a spec", "0 9 * * *")
	assert.Error(t, err)

	c, err := StartCronJobs(r, "* * * * *", "0 9 * * *")
	require.NoError(t, err)
	<-c.Stop().Done()
	assert.Equal(t, time.Minute, r.window)

	c, err = StartCronJobs(r, "*/5 * * * *", "0 9 * * *")
	require.NoError(t, err)
	<-c.Stop().Done()
	assert.Equal(t, 5*time.Minute, r.window)
}
