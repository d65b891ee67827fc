// Package store defines the boundary between the session protocol and the
// persistent record service that backs it.
//
// Writes are whole-record overwrites with last-write-wins semantics. There
// is no optimistic concurrency check: two parties racing on the same record
// resolve to store order, and the party whose write landed first is
// corrected through the change feed.
package store

import (
	"context"
	"time"

	"github.com/meinhoongagan/tutor-sessions/models"
)

type Entity string

const (
	EntityAppointment Entity = "appointments"
	EntityContract    Entity = "contracts"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// Change carries the full record after a mutation. Exactly one of
// Appointment and Contract is set, matching Entity.
type Change struct {
	Entity      Entity              `json:"entity"`
	Op          Op                  `json:"op"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
	Contract    *models.Contract    `json:"contract,omitempty"`
}

// RecordID returns the id of the changed record.
func (c Change) RecordID() uint {
	switch {
	case c.Appointment != nil:
		return c.Appointment.ID
	case c.Contract != nil:
		return c.Contract.ID
	}
	return 0
}

// Filter selects which changes a subscriber receives. Zero fields match
// everything.
type Filter struct {
	Entity        Entity
	ID            uint
	ApplicationID uint
	ContractID    uint
	ParticipantID uint
}

func (f Filter) Match(c Change) bool {
	if f.Entity != "" && f.Entity != c.Entity {
		return false
	}
	if f.ID != 0 && f.ID != c.RecordID() {
		return false
	}
	if a := c.Appointment; a != nil {
		if f.ApplicationID != 0 && a.ApplicationID != f.ApplicationID {
			return false
		}
		if f.ContractID != 0 && (a.ContractID == nil || *a.ContractID != f.ContractID) {
			return false
		}
		if f.ParticipantID != 0 && a.TutorID != f.ParticipantID && a.StudentID != f.ParticipantID {
			return false
		}
	}
	if ct := c.Contract; ct != nil {
		if f.ApplicationID != 0 {
			return false
		}
		if f.ContractID != 0 && ct.ID != f.ContractID {
			return false
		}
		if f.ParticipantID != 0 && ct.TutorID != f.ParticipantID && ct.StudentID != f.ParticipantID {
			return false
		}
	}
	return true
}

// AppointmentQuery narrows ListAppointments. Zero fields are ignored.
// ProposedFrom is inclusive and ProposedBefore exclusive.
type AppointmentQuery struct {
	ParticipantID  uint
	ContractID     uint
	Statuses       []models.AppointmentStatus
	ProposedFrom   time.Time
	ProposedBefore time.Time
	Limit          int
}

// ContractQuery narrows ListContracts. Zero fields are ignored.
type ContractQuery struct {
	ParticipantID uint
	Statuses      []models.ContractStatus
	PaymentDue    *bool
}

type Appointments interface {
	GetAppointment(ctx context.Context, id uint) (*models.Appointment, error)
	// LatestAppointment returns the most recently created appointment for an
	// application, whatever its status.
	LatestAppointment(ctx context.Context, applicationID uint) (*models.Appointment, error)
	ListAppointments(ctx context.Context, q AppointmentQuery) ([]models.Appointment, error)
	InsertAppointment(ctx context.Context, a *models.Appointment) error
	UpdateAppointment(ctx context.Context, a *models.Appointment) error
}

type Contracts interface {
	GetContract(ctx context.Context, id uint) (*models.Contract, error)
	ListContracts(ctx context.Context, q ContractQuery) ([]models.Contract, error)
	InsertContract(ctx context.Context, c *models.Contract) error
	UpdateContract(ctx context.Context, c *models.Contract) error
}

type Records interface {
	InsertAttendance(ctx context.Context, a *models.Attendance) error
	ListAttendance(ctx context.Context, contractID uint) ([]models.Attendance, error)
	InsertPayment(ctx context.Context, p *models.Payment) error
	InsertReport(ctx context.Context, r *models.Report) error
}

type Users interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
}

// Subscriber delivers the full record on every matching mutation until the
// returned cancel func is called or ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, f Filter, onChange func(Change)) (cancel func(), err error)
}

type Store interface {
	Appointments
	Contracts
	Records
	Users
	Subscriber
}
