package models

import (
	"crypto/subtle"
	"strings"
	"time"

	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusNegotiating AppointmentStatus = "negotiating"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusOngoing     AppointmentStatus = "ongoing"
	StatusCompleted   AppointmentStatus = "completed"
	StatusDisputed    AppointmentStatus = "disputed"
)

type PaymentStatus string

const (
	PaymentNone         PaymentStatus = "none"
	PaymentEscrowLocked PaymentStatus = "escrow_locked"
	PaymentPaid         PaymentStatus = "paid"
)

// Appointment is a single negotiated meeting between a tutor and a student.
// The methods below are the only way its protocol fields should change; they
// mutate the in-memory record and leave persistence to the caller.
type Appointment struct {
	ID                uint              `json:"id" gorm:"primaryKey"`
	ApplicationID     uint              `json:"application_id" gorm:"index"`
	ContractID        *uint             `json:"contract_id,omitempty" gorm:"index"`
	TutorID           uint              `json:"tutor_id" gorm:"not null;index"`
	StudentID         uint              `json:"student_id" gorm:"not null;index"`
	Status            AppointmentStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	ProposedDate      *time.Time        `json:"proposed_date"`
	ProposedBy        *uint             `json:"proposed_by"`
	StudentAgreed     bool              `json:"student_agreed"`
	TutorAgreed       bool              `json:"tutor_agreed"`
	StudentLat        *float64          `json:"student_lat"`
	StudentLng        *float64          `json:"student_lng"`
	TutorLat          *float64          `json:"tutor_lat"`
	TutorLng          *float64          `json:"tutor_lng"`
	StartOTP          *string           `json:"start_otp,omitempty" gorm:"type:varchar(4)"`
	StartOTPExpiresAt *time.Time        `json:"start_otp_expires_at,omitempty"`
	EndOTP            *string           `json:"end_otp,omitempty" gorm:"type:varchar(4)"`
	EndOTPExpiresAt   *time.Time        `json:"end_otp_expires_at,omitempty"`
	StartedAt         *time.Time        `json:"started_at"`
	EndedAt           *time.Time        `json:"ended_at"`
	PaymentStatus     PaymentStatus     `json:"payment_status" gorm:"type:varchar(20);not null;default:none"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	a.applyDefaults()
	return nil
}

func (a *Appointment) applyDefaults() {
	if a.Status == "" {
		a.Status = StatusNegotiating
	}
	if a.PaymentStatus == "" {
		a.PaymentStatus = PaymentNone
	}
}

func (a *Appointment) tutor() uint   { return a.TutorID }
func (a *Appointment) student() uint { return a.StudentID }

// CheckParty reports whether actor is the party holding its role here.
func (a *Appointment) CheckParty(actor Actor) error {
	return checkParty(a, actor)
}

// Active reports whether the appointment still occupies its application
// slot. Cancelled ones are reused on the next proposal; completed ones are
// history.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled && a.Status != StatusCompleted
}

// CounterpartID returns the id of the party opposite to role.
func (a *Appointment) CounterpartID(role Role) uint {
	if role == RoleTutor {
		return a.StudentID
	}
	return a.TutorID
}

func (a *Appointment) transitionErr(op string) error {
	return &TransitionError{Entity: "appointment", From: string(a.Status), Op: op}
}

// Propose sets a new meeting time on behalf of actor. Every proposal is a
// reschedule: the proposer's flag is set, the counterpart's cleared, both
// published locations and any unconsumed codes are dropped.
func (a *Appointment) Propose(actor Actor, at time.Time) error {
	if err := a.CheckParty(actor); err != nil {
		return err
	}
	if at.IsZero() {
		return ErrInvalidDate
	}
	switch a.Status {
	case StatusNegotiating, StatusConfirmed, StatusScheduled, StatusCancelled:
	default:
		return a.transitionErr("propose")
	}

	at = at.UTC()
	proposer := actor.ID
	a.ProposedDate = &at
	a.ProposedBy = &proposer
	a.StudentAgreed = actor.Role == RoleStudent
	a.TutorAgreed = actor.Role == RoleTutor
	a.clearLocations()
	a.clearCodes()
	a.Status = StatusNegotiating
	return nil
}

// Accept records actor's agreement with the current proposal and confirms
// the appointment once both sides agree.
func (a *Appointment) Accept(actor Actor) error {
	if err := a.CheckParty(actor); err != nil {
		return err
	}
	if a.ProposedDate == nil || a.ProposedBy == nil {
		return ErrNoProposal
	}
	if *a.ProposedBy == actor.ID {
		return ErrAlreadyProposedByYou
	}
	switch a.Status {
	case StatusNegotiating, StatusConfirmed:
	default:
		return a.transitionErr("accept")
	}

	if actor.Role == RoleStudent {
		a.StudentAgreed = true
	} else {
		a.TutorAgreed = true
	}
	if a.StudentAgreed && a.TutorAgreed {
		a.Status = StatusConfirmed
	}
	return nil
}

// Cancel withdraws the appointment. The proposed date is kept so a later
// proposal can start from it.
func (a *Appointment) Cancel(actor Actor) error {
	if err := a.CheckParty(actor); err != nil {
		return err
	}
	switch a.Status {
	case StatusNegotiating, StatusConfirmed, StatusScheduled:
	default:
		return a.transitionErr("cancel")
	}
	a.Status = StatusCancelled
	a.StudentAgreed = false
	a.TutorAgreed = false
	a.clearCodes()
	return nil
}

// Confirmed reports whether the meeting time is settled, either through
// negotiation or by booking against a contract.
func (a *Appointment) Confirmed() bool {
	return a.Status == StatusConfirmed || a.Status == StatusScheduled
}

// PublishLocation writes actor's own coordinates. The counterpart's pair is
// never touched.
func (a *Appointment) PublishLocation(actor Actor, lat, lng float64) error {
	if err := a.CheckParty(actor); err != nil {
		return err
	}
	if !a.Confirmed() {
		return a.transitionErr("publish location for")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	if actor.Role == RoleStudent {
		a.StudentLat, a.StudentLng = &lat, &lng
	} else {
		a.TutorLat, a.TutorLng = &lat, &lng
	}
	return nil
}

// IssueStartCode stores a fresh start code, replacing any previous one.
func (a *Appointment) IssueStartCode(actor Actor, code string, expires time.Time) error {
	if err := a.requireHost(actor); err != nil {
		return err
	}
	if !a.Confirmed() {
		return a.transitionErr("start session for")
	}
	expires = expires.UTC()
	a.StartOTP = &code
	a.StartOTPExpiresAt = &expires
	return nil
}

// VerifyStart consumes the start code. A wrong code leaves the record
// untouched.
func (a *Appointment) VerifyStart(actor Actor, code string, now time.Time) error {
	if err := a.requireGuest(actor); err != nil {
		return err
	}
	if !a.Confirmed() {
		return a.transitionErr("start session for")
	}
	if err := matchCode(a.StartOTP, a.StartOTPExpiresAt, code, now); err != nil {
		return err
	}
	now = now.UTC()
	a.StartedAt = &now
	a.Status = StatusOngoing
	a.PaymentStatus = PaymentEscrowLocked
	a.StartOTP = nil
	a.StartOTPExpiresAt = nil
	return nil
}

// IssueEndCode stores a fresh end code, replacing any previous one.
func (a *Appointment) IssueEndCode(actor Actor, code string, expires time.Time) error {
	if err := a.requireHost(actor); err != nil {
		return err
	}
	if a.Status != StatusOngoing {
		return a.transitionErr("end session for")
	}
	expires = expires.UTC()
	a.EndOTP = &code
	a.EndOTPExpiresAt = &expires
	return nil
}

// CheckEndCode validates the end code without consuming it.
func (a *Appointment) CheckEndCode(actor Actor, code string, now time.Time) error {
	if err := a.requireGuest(actor); err != nil {
		return err
	}
	if a.Status != StatusOngoing {
		return a.transitionErr("end session for")
	}
	return matchCode(a.EndOTP, a.EndOTPExpiresAt, code, now)
}

// VerifyEnd consumes the end code and completes the session.
func (a *Appointment) VerifyEnd(actor Actor, code string, now time.Time) error {
	if err := a.CheckEndCode(actor, code, now); err != nil {
		return err
	}
	now = now.UTC()
	a.EndedAt = &now
	a.Status = StatusCompleted
	a.PaymentStatus = PaymentPaid
	a.EndOTP = nil
	a.EndOTPExpiresAt = nil
	return nil
}

// Report moves an ongoing session into dispute, skipping the end code. It
// returns the id of the reported counterpart.
func (a *Appointment) Report(actor Actor, reason string) (uint, error) {
	if err := a.CheckParty(actor); err != nil {
		return 0, err
	}
	if strings.TrimSpace(reason) == "" {
		return 0, ErrReasonRequired
	}
	if a.Status != StatusOngoing {
		return 0, a.transitionErr("report")
	}
	a.Status = StatusDisputed
	a.EndOTP = nil
	a.EndOTPExpiresAt = nil
	return a.CounterpartID(actor.Role), nil
}

// Retry resumes a disputed appointment after review.
func (a *Appointment) Retry(actor Actor) error {
	if err := a.CheckParty(actor); err != nil {
		return err
	}
	if a.Status != StatusDisputed {
		return a.transitionErr("retry")
	}
	switch {
	case a.StartedAt != nil:
		a.Status = StatusOngoing
	case a.ContractID != nil:
		a.Status = StatusScheduled
	default:
		a.Status = StatusConfirmed
	}
	return nil
}

// Timer describes the countdown of a running session.
type Timer struct {
	Started   bool          `json:"started"`
	EndsAt    *time.Time    `json:"ends_at,omitempty"`
	Remaining time.Duration `json:"remaining"`
	TimeUp    bool          `json:"time_up"`
}

// Timer computes the countdown for a session of length d. Elapsed sessions
// clamp to zero; status only changes through VerifyEnd.
func (a *Appointment) Timer(now time.Time, d time.Duration) Timer {
	if a.StartedAt == nil {
		return Timer{}
	}
	endsAt := a.StartedAt.Add(d)
	remaining := endsAt.Sub(now)
	if remaining <= 0 {
		return Timer{Started: true, EndsAt: &endsAt, TimeUp: true}
	}
	return Timer{Started: true, EndsAt: &endsAt, Remaining: remaining}
}

// Redacted returns a copy safe to show to viewer: the session codes are only
// visible to the tutor who reads them out.
func (a *Appointment) Redacted(viewer Actor) *Appointment {
	out := a.Clone()
	if viewer.Role != RoleTutor || viewer.ID != a.TutorID {
		out.StartOTP = nil
		out.EndOTP = nil
	}
	return out
}

// Clone returns a deep copy.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	out := *a
	out.ContractID = clonePtr(a.ContractID)
	out.ProposedDate = clonePtr(a.ProposedDate)
	out.ProposedBy = clonePtr(a.ProposedBy)
	out.StudentLat = clonePtr(a.StudentLat)
	out.StudentLng = clonePtr(a.StudentLng)
	out.TutorLat = clonePtr(a.TutorLat)
	out.TutorLng = clonePtr(a.TutorLng)
	out.StartOTP = clonePtr(a.StartOTP)
	out.StartOTPExpiresAt = clonePtr(a.StartOTPExpiresAt)
	out.EndOTP = clonePtr(a.EndOTP)
	out.EndOTPExpiresAt = clonePtr(a.EndOTPExpiresAt)
	out.StartedAt = clonePtr(a.StartedAt)
	out.EndedAt = clonePtr(a.EndedAt)
	return &out
}

func (a *Appointment) clearLocations() {
	a.StudentLat, a.StudentLng = nil, nil
	a.TutorLat, a.TutorLng = nil, nil
}

func (a *Appointment) clearCodes() {
	a.StartOTP, a.StartOTPExpiresAt = nil, nil
	a.EndOTP, a.EndOTPExpiresAt = nil, nil
}

// requireHost: codes are generated by the tutor who hosts the session.
func (a *Appointment) requireHost(actor Actor) error {
	if err := a.CheckParty(actor); err != nil {
		return err
	}
	if actor.Role != RoleTutor {
		return ErrRoleNotPermitted
	}
	return nil
}

// requireGuest: codes are entered by the student.
func (a *Appointment) requireGuest(actor Actor) error {
	if err := a.CheckParty(actor); err != nil {
		return err
	}
	if actor.Role != RoleStudent {
		return ErrRoleNotPermitted
	}
	return nil
}

func matchCode(want *string, expires *time.Time, got string, now time.Time) error {
	if want == nil {
		return ErrOTPNotIssued
	}
	if expires != nil && now.After(*expires) {
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(*want), []byte(strings.TrimSpace(got))) != 1 {
		return ErrInvalidCode
	}
	return nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
