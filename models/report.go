package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Report is a safety or dispute report filed during a session against the
// counterpart.
type Report struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	AppointmentID uint      `json:"appointment_id" gorm:"not null;index"`
	ReporterID    uint      `json:"reporter_id" gorm:"not null;index"`
	ReportedID    uint      `json:"reported_id" gorm:"not null;index"`
	Reason        string    `json:"reason" gorm:"type:text;not null"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate hook to normalise the reason
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return ErrReasonRequired
	}
	return nil
}
