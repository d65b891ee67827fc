// Package negotiation runs the proposal/acceptance exchange for a single
// appointment and the location exchange that follows confirmation.
//
// Every operation loads the canonical record, applies one transition and
// writes the whole record back. Concurrent writers are not detected: the
// last write wins and the other party sees the result on the change feed.
package negotiation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/notify"
	"github.com/meinhoongagan/tutor-sessions/store"
)

// ApplicationRef identifies the engagement an appointment belongs to.
type ApplicationRef struct {
	ApplicationID uint `json:"application_id" validate:"required"`
	TutorID       uint `json:"tutor_id" validate:"required"`
	StudentID     uint `json:"student_id" validate:"required"`
}

type Service struct {
	store    store.Appointments
	notifier notify.Notifier
	now      func() time.Time
}

func New(s store.Appointments, n notify.Notifier) *Service {
	return &Service{store: s, notifier: n, now: time.Now}
}

// Open returns the application's current appointment, creating one when
// none exists yet or the last one has completed. A cancelled appointment is
// returned as is; the next Propose reuses it.
func (s *Service) Open(ctx context.Context, actor models.Actor, ref ApplicationRef) (*models.Appointment, error) {
	fresh := &models.Appointment{
		ApplicationID: ref.ApplicationID,
		TutorID:       ref.TutorID,
		StudentID:     ref.StudentID,
		Status:        models.StatusNegotiating,
	}
	if err := fresh.CheckParty(actor); err != nil {
		return nil, err
	}

	latest, err := s.store.LatestAppointment(ctx, ref.ApplicationID)
	switch {
	case err == nil && latest.Status != models.StatusCompleted:
		if err := latest.CheckParty(actor); err != nil {
			return nil, err
		}
		return latest, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	if err := s.store.InsertAppointment(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Get returns the appointment if actor is one of its parties.
func (s *Service) Get(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.CheckParty(actor); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns the actor's appointments, optionally narrowed by status.
func (s *Service) List(ctx context.Context, actor models.Actor, statuses ...models.AppointmentStatus) ([]models.Appointment, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	all, err := s.store.ListAppointments(ctx, store.AppointmentQuery{ParticipantID: actor.ID, Statuses: statuses})
	if err != nil {
		return nil, err
	}
	res := all[:0]
	for _, a := range all {
		if a.CheckParty(actor) == nil {
			res = append(res, a)
		}
	}
	return res, nil
}

func (s *Service) apply(ctx context.Context, id uint, fn func(a *models.Appointment) error) (*models.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Propose sets a new meeting time. The proposer's agreement is implied,
// the counterpart's is cleared and both locations are dropped.
func (s *Service) Propose(ctx context.Context, id uint, actor models.Actor, at time.Time) (*models.Appointment, error) {
	a, err := s.apply(ctx, id, func(a *models.Appointment) error {
		return a.Propose(actor, at)
	})
	if err != nil {
		return nil, err
	}
	notify.Send(ctx, s.notifier, a.CounterpartID(actor.Role), notify.Proposed(a))
	return a, nil
}

// Accept agrees to the counterpart's proposal. The proposer cannot accept
// their own; the record is left untouched and ErrAlreadyProposedByYou is
// returned.
func (s *Service) Accept(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
	a, err := s.apply(ctx, id, func(a *models.Appointment) error {
		return a.Accept(actor)
	})
	if err != nil {
		return nil, err
	}
	if a.Status == models.StatusConfirmed {
		msg := notify.Confirmed(a)
		notify.Send(ctx, s.notifier, a.TutorID, msg)
		notify.Send(ctx, s.notifier, a.StudentID, msg)
	}
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
	a, err := s.apply(ctx, id, func(a *models.Appointment) error {
		return a.Cancel(actor)
	})
	if err != nil {
		return nil, err
	}
	notify.Send(ctx, s.notifier, a.CounterpartID(actor.Role), notify.Cancelled(a))
	return a, nil
}
