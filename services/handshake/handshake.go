// Package handshake runs the double-code exchange that proves tutor and
// student met in person at the start and end of a session.
package handshake

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/pkg/errors"

	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/notify"
	"github.com/meinhoongagan/tutor-sessions/otp"
	"github.com/meinhoongagan/tutor-sessions/store"
)

const (
	phaseStart = "start"
	phaseEnd   = "end"
)

// Store is the part of the record service the handshake writes to.
type Store interface {
	store.Appointments
	InsertReport(ctx context.Context, r *models.Report) error
}

// Billing is consulted for sessions held under a contract.
type Billing interface {
	CheckSession(ctx context.Context, contractID uint) error
	LogAttendance(ctx context.Context, contractID uint, verifier models.Actor, method models.AttendanceMethod, appointmentID *uint) (*models.Contract, error)
}

type Config struct {
	CodeTTL         time.Duration
	MaxAttempts     int
	SessionDuration time.Duration
}

type Service struct {
	store    Store
	billing  Billing
	limiter  otp.Limiter
	notifier notify.Notifier
	conf     Config

	now      func() time.Time
	generate func() (string, error)
}

func New(s Store, b Billing, l otp.Limiter, n notify.Notifier, conf Config) *Service {
	return &Service{
		store:    s,
		billing:  b,
		limiter:  l,
		notifier: n,
		conf:     conf,
		now:      time.Now,
		generate: otp.Generate,
	}
}

func (s *Service) load(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.CheckParty(actor); err != nil {
		return nil, err
	}
	return a, nil
}

// checkContract blocks contract sessions while the contract cannot hold
// one.
func (s *Service) checkContract(ctx context.Context, a *models.Appointment) error {
	if a.ContractID == nil {
		return nil
	}
	return s.billing.CheckSession(ctx, *a.ContractID)
}

// GenerateStartOTP issues a fresh start code, invalidating any earlier one.
func (s *Service) GenerateStartOTP(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
	a, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, a, phaseStart, func(code string, expires time.Time) error {
		if err := a.IssueStartCode(actor, code, expires); err != nil {
			return err
		}
		return s.checkContract(ctx, a)
	})
}

// GenerateEndOTP issues a fresh end code for an ongoing session.
func (s *Service) GenerateEndOTP(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
	a, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, a, phaseEnd, func(code string, expires time.Time) error {
		return a.IssueEndCode(actor, code, expires)
	})
}

func (s *Service) issue(ctx context.Context, a *models.Appointment, phase string, set func(string, time.Time) error) (*models.Appointment, error) {
	code, err := s.generate()
	if err != nil {
		return nil, err
	}
	if err := set(code, s.now().Add(s.conf.CodeTTL)); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return nil, err
	}
	if err := s.limiter.Reset(ctx, otp.Key(a.ID, phase)); err != nil {
		return nil, err
	}
	return a, nil
}

// checkAttempts refuses a guess once the code has used up its attempts.
func (s *Service) checkAttempts(ctx context.Context, a *models.Appointment, actor models.Actor, phase string) error {
	if actor.Role != models.RoleStudent {
		return models.ErrRoleNotPermitted
	}
	if s.conf.MaxAttempts <= 0 {
		return nil
	}
	n, err := s.limiter.Failures(ctx, otp.Key(a.ID, phase))
	if err != nil {
		return err
	}
	if n >= s.conf.MaxAttempts {
		return models.ErrOTPLocked
	}
	return nil
}

// recordFailure counts a wrong guess. The record itself is never written.
func (s *Service) recordFailure(ctx context.Context, a *models.Appointment, phase string, err error) error {
	if !errors.Is(err, models.ErrInvalidCode) {
		return err
	}
	if _, ferr := s.limiter.Fail(ctx, otp.Key(a.ID, phase)); ferr != nil {
		return ferr
	}
	return err
}

// resetAttempts clears the counter of a consumed code. The session has
// already moved on, so a failure is only logged.
func (s *Service) resetAttempts(ctx context.Context, id uint, phase string) {
	if err := s.limiter.Reset(ctx, otp.Key(id, phase)); err != nil {
		log.Warnf("handshake: reset %s attempts for appointment %d: %v", phase, id, err)
	}
}

// VerifyStart consumes the start code. On a match the session starts and
// payment moves to escrow; on a mismatch nothing changes.
func (s *Service) VerifyStart(ctx context.Context, id uint, actor models.Actor, code string) (*models.Appointment, error) {
	a, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.checkAttempts(ctx, a, actor, phaseStart); err != nil {
		return nil, err
	}
	if err := s.checkContract(ctx, a); err != nil {
		return nil, err
	}
	if err := a.VerifyStart(actor, code, s.now()); err != nil {
		return nil, s.recordFailure(ctx, a, phaseStart, err)
	}
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return nil, err
	}
	s.resetAttempts(ctx, a.ID, phaseStart)
	return a, nil
}

// VerifyEnd consumes the end code and completes the session. Contract
// sessions log their attendance first, so a billing lock stops the
// completion before anything is written. Attendance is logged once per
// session, so a retry after a failed write does not count it twice.
func (s *Service) VerifyEnd(ctx context.Context, id uint, actor models.Actor, code string) (*models.Appointment, error) {
	a, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.checkAttempts(ctx, a, actor, phaseEnd); err != nil {
		return nil, err
	}
	now := s.now()
	if err := a.CheckEndCode(actor, code, now); err != nil {
		return nil, s.recordFailure(ctx, a, phaseEnd, err)
	}
	if a.ContractID != nil {
		if _, err := s.billing.LogAttendance(ctx, *a.ContractID, actor, models.AttendanceOTP, &a.ID); err != nil {
			return nil, err
		}
	}
	if err := a.VerifyEnd(actor, code, now); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return nil, err
	}
	s.resetAttempts(ctx, a.ID, phaseEnd)
	return a, nil
}

// Report disputes an ongoing session and files a report against the
// counterpart.
func (s *Service) Report(ctx context.Context, id uint, actor models.Actor, reason string) (*models.Report, error) {
	a, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	reported, err := a.Report(actor, reason)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return nil, err
	}
	r := &models.Report{AppointmentID: a.ID, ReporterID: actor.ID, ReportedID: reported, Reason: reason}
	if err := s.store.InsertReport(ctx, r); err != nil {
		return nil, errors.Wrapf(err, "appointment %d disputed but report not saved", a.ID)
	}
	notify.Send(ctx, s.notifier, reported, notify.Reported(a))
	return r, nil
}

// Retry resumes a disputed session.
func (s *Service) Retry(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
	a, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := a.Retry(actor); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Timer reports the countdown of the session. It never changes status.
func (s *Service) Timer(ctx context.Context, id uint, actor models.Actor) (models.Timer, error) {
	a, err := s.load(ctx, id, actor)
	if err != nil {
		return models.Timer{}, err
	}
	return a.Timer(s.now(), s.conf.SessionDuration), nil
}
