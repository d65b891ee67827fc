package cron

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/notify"
	"github.com/meinhoongagan/tutor-sessions/store"
)

// Reminders looks ahead for sessions and outstanding payments and emails
// the parties.
type Reminders struct {
	appointments store.Appointments
	contracts    store.Contracts
	notifier     notify.Notifier
	now          func() time.Time

	// lead is how far ahead sessions are reminded. Each run covers one
	// window, which must match the interval between runs.
	lead   time.Duration
	window time.Duration
}

func NewReminders(a store.Appointments, c store.Contracts, n notify.Notifier) *Reminders {
	return &Reminders{
		appointments: a,
		contracts:    c,
		notifier:     n,
		now:          time.Now,
		lead:         time.Hour,
		window:       time.Minute,
	}
}

// StartCronJobs initializes and starts the cron scheduler. The session
// reminder window follows the interval of sessionSpec. Stop the returned
// scheduler on shutdown.
func StartCronJobs(r *Reminders, sessionSpec, paymentSpec string) (*cron.Cron, error) {
	sched, err := cron.ParseStandard(sessionSpec)
	if err != nil {
		return nil, err
	}
	first := sched.Next(r.now())
	r.window = sched.Next(first).Sub(first)

	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() { r.SendAppointmentReminders(context.Background()) }))
	if _, err := c.AddFunc(paymentSpec, func() { r.SendPaymentReminders(context.Background()) }); err != nil {
		return nil, err
	}
	c.Start()
	log.Info("cron job scheduler started for session and payment reminders")
	return c, nil
}

// SendAppointmentReminders emails both parties of every settled session
// starting one lead ahead of the current window. Consecutive runs cover
// adjacent windows, so each session is reminded once. It returns how many
// sessions were reminded.
func (r *Reminders) SendAppointmentReminders(ctx context.Context) int {
	from := r.now().Truncate(r.window).Add(r.lead)
	appointments, err := r.appointments.ListAppointments(ctx, store.AppointmentQuery{
		Statuses:       []models.AppointmentStatus{models.StatusConfirmed, models.StatusScheduled},
		ProposedFrom:   from,
		ProposedBefore: from.Add(r.window),
	})
	if err != nil {
		log.Errorf("error fetching appointments for reminders: %v", err)
		return 0
	}
	log.Debugf("found %d appointments for reminders", len(appointments))

	for i := range appointments {
		a := &appointments[i]
		msg := notify.Reminder(a)
		notify.Send(ctx, r.notifier, a.TutorID, msg)
		notify.Send(ctx, r.notifier, a.StudentID, msg)
	}
	return len(appointments)
}

// SendPaymentReminders nudges students whose active contracts are locked
// by billing.
func (r *Reminders) SendPaymentReminders(ctx context.Context) int {
	due := true
	contracts, err := r.contracts.ListContracts(ctx, store.ContractQuery{
		Statuses:   []models.ContractStatus{models.ContractActive},
		PaymentDue: &due,
	})
	if err != nil {
		log.Errorf("error fetching contracts for payment reminders: %v", err)
		return 0
	}
	for i := range contracts {
		notify.Send(ctx, r.notifier, contracts[i].StudentID, notify.PaymentDue(&contracts[i]))
	}
	return len(contracts)
}
