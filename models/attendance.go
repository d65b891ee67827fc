package models

import "time"

type AttendanceMethod string

const (
	AttendanceOTP    AttendanceMethod = "otp"
	AttendanceToken  AttendanceMethod = "token"
	AttendanceManual AttendanceMethod = "manual"
)

// Attendance is one physical-presence confirmation logged against a
// contract.
type Attendance struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	ContractID    uint             `json:"contract_id" gorm:"not null;index"`
	AppointmentID *uint            `json:"appointment_id,omitempty" gorm:"index"`
	VerifiedBy    Role             `json:"verified_by" gorm:"type:varchar(10);not null"`
	Method        AttendanceMethod `json:"method" gorm:"type:varchar(10);not null"`
	ClassNumber   int              `json:"class_number"`
	LoggedAt      time.Time        `json:"logged_at"`
}

// Payment records one settlement of a contract's billing lock.
type Payment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ContractID uint      `json:"contract_id" gorm:"not null;index"`
	StudentID  uint      `json:"student_id" gorm:"not null;index"`
	Amount     float64   `json:"amount"`
	PaidAt     time.Time `json:"paid_at"`
}
