// Package billing tracks tuition contracts: the attendance log, the
// threshold that locks a contract until it is paid, and settlements.
package billing

import (
	"context"
	"time"

	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/notify"
	"github.com/meinhoongagan/tutor-sessions/otp"
	"github.com/meinhoongagan/tutor-sessions/store"
)

type Store interface {
	store.Appointments
	store.Contracts
	store.Records
}

type Config struct {
	// Threshold is the number of classes per billing cycle.
	Threshold int
	TokenTTL  time.Duration
	Secret    []byte
}

type Service struct {
	store    Store
	notifier notify.Notifier
	// redeemed remembers spent attendance tokens
	redeemed otp.Once
	conf     Config
	now      func() time.Time
}

func New(s Store, n notify.Notifier, redeemed otp.Once, conf Config) *Service {
	return &Service{store: s, notifier: n, redeemed: redeemed, conf: conf, now: time.Now}
}

func (s *Service) load(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.CheckParty(actor); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) apply(ctx context.Context, id uint, actor models.Actor, fn func(c *models.Contract) error) (*models.Contract, error) {
	c, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.store.UpdateContract(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Propose opens a pending contract from the student to a tutor.
func (s *Service) Propose(ctx context.Context, actor models.Actor, tutorID uint, monthlyFee float64) (*models.Contract, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent {
		return nil, models.ErrRoleNotPermitted
	}
	c := &models.Contract{
		TutorID:    tutorID,
		StudentID:  actor.ID,
		Status:     models.ContractPending,
		MonthlyFee: monthlyFee,
	}
	if err := s.store.InsertContract(ctx, c); err != nil {
		return nil, err
	}
	notify.Send(ctx, s.notifier, tutorID, notify.ContractProposed(c))
	return c, nil
}

func (s *Service) Accept(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error) {
	return s.respond(ctx, id, actor, true)
}

func (s *Service) Reject(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error) {
	return s.respond(ctx, id, actor, false)
}

func (s *Service) respond(ctx context.Context, id uint, actor models.Actor, accept bool) (*models.Contract, error) {
	c, err := s.apply(ctx, id, actor, func(c *models.Contract) error {
		return c.Respond(actor, accept)
	})
	if err != nil {
		return nil, err
	}
	notify.Send(ctx, s.notifier, c.StudentID, notify.ContractUpdated(c))
	return c, nil
}

func (s *Service) Cancel(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error) {
	c, err := s.apply(ctx, id, actor, func(c *models.Contract) error {
		return c.Cancel(actor)
	})
	if err != nil {
		return nil, err
	}
	counterpart := c.TutorID
	if actor.Role == models.RoleTutor {
		counterpart = c.StudentID
	}
	notify.Send(ctx, s.notifier, counterpart, notify.ContractUpdated(c))
	return c, nil
}

// MarkComplete ends the engagement whatever its billing state.
func (s *Service) MarkComplete(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error) {
	c, err := s.apply(ctx, id, actor, func(c *models.Contract) error {
		return c.Complete(actor)
	})
	if err != nil {
		return nil, err
	}
	notify.Send(ctx, s.notifier, c.StudentID, notify.ContractUpdated(c))
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error) {
	return s.load(ctx, id, actor)
}

func (s *Service) List(ctx context.Context, actor models.Actor, statuses ...models.ContractStatus) ([]models.Contract, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	all, err := s.store.ListContracts(ctx, store.ContractQuery{ParticipantID: actor.ID, Statuses: statuses})
	if err != nil {
		return nil, err
	}
	res := all[:0]
	for _, c := range all {
		if c.CheckParty(actor) == nil {
			res = append(res, c)
		}
	}
	return res, nil
}

// CheckSession reports whether a session may be booked or started on the
// contract.
func (s *Service) CheckSession(ctx context.Context, id uint) error {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return err
	}
	return c.CanHoldSession()
}

// LogAttendance counts one class confirmed by the student. It fails with
// ErrPaymentRequired while the contract is locked and logs nothing. A
// session that already has an attendance row is not counted again.
func (s *Service) LogAttendance(ctx context.Context, id uint, verifier models.Actor, method models.AttendanceMethod, appointmentID *uint) (*models.Contract, error) {
	if verifier.Role != models.RoleStudent {
		return nil, models.ErrRoleNotPermitted
	}
	if appointmentID != nil {
		logged, err := s.loggedFor(ctx, id, *appointmentID)
		if err != nil {
			return nil, err
		}
		if logged {
			return s.load(ctx, id, verifier)
		}
	}

	var locked bool
	c, err := s.apply(ctx, id, verifier, func(c *models.Contract) error {
		var err error
		locked, err = c.LogClass(s.conf.Threshold)
		return err
	})
	if err != nil {
		return nil, err
	}

	att := &models.Attendance{
		ContractID:    c.ID,
		AppointmentID: appointmentID,
		VerifiedBy:    verifier.Role,
		Method:        method,
		ClassNumber:   c.ClassesCompleted,
		LoggedAt:      s.now().UTC(),
	}
	if err := s.store.InsertAttendance(ctx, att); err != nil {
		return nil, err
	}

	if locked {
		msg := notify.PaymentDue(c)
		notify.Send(ctx, s.notifier, c.StudentID, msg)
		notify.Send(ctx, s.notifier, c.TutorID, msg)
	}
	return c, nil
}

func (s *Service) loggedFor(ctx context.Context, id, appointmentID uint) (bool, error) {
	rows, err := s.store.ListAttendance(ctx, id)
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r.AppointmentID != nil && *r.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

// ListAttendance returns the contract's attendance log, oldest first.
func (s *Service) ListAttendance(ctx context.Context, id uint, actor models.Actor) ([]models.Attendance, error) {
	if _, err := s.load(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.store.ListAttendance(ctx, id)
}

// SettlePayment clears the billing lock and records the payment. The class
// counter keeps running.
func (s *Service) SettlePayment(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error) {
	now := s.now()
	c, err := s.apply(ctx, id, actor, func(c *models.Contract) error {
		return c.Settle(actor, now)
	})
	if err != nil {
		return nil, err
	}
	p := &models.Payment{ContractID: c.ID, StudentID: actor.ID, Amount: c.MonthlyFee, PaidAt: now.UTC()}
	if err := s.store.InsertPayment(ctx, p); err != nil {
		return nil, err
	}
	notify.Send(ctx, s.notifier, c.TutorID, notify.ContractUpdated(c))
	return c, nil
}

// BookSession schedules a session under the contract. Both sides agree by
// construction, so it is immediately ready for the start code.
func (s *Service) BookSession(ctx context.Context, id uint, actor models.Actor, at time.Time) (*models.Appointment, error) {
	c, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := c.CanHoldSession(); err != nil {
		return nil, err
	}
	if at.IsZero() {
		return nil, models.ErrInvalidDate
	}

	at = at.UTC()
	contractID, proposer := c.ID, actor.ID
	a := &models.Appointment{
		ContractID:    &contractID,
		TutorID:       c.TutorID,
		StudentID:     c.StudentID,
		Status:        models.StatusScheduled,
		ProposedDate:  &at,
		ProposedBy:    &proposer,
		StudentAgreed: true,
		TutorAgreed:   true,
	}
	if err := s.store.InsertAppointment(ctx, a); err != nil {
		return nil, err
	}
	notify.Send(ctx, s.notifier, a.CounterpartID(actor.Role), notify.Confirmed(a))
	return a, nil
}
