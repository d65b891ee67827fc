package models

import (
	"time"

	"gorm.io/gorm"
)

type ContractStatus string

const (
	ContractPending   ContractStatus = "pending"
	ContractActive    ContractStatus = "active"
	ContractCompleted ContractStatus = "completed"
	ContractCancelled ContractStatus = "cancelled"
	ContractRejected  ContractStatus = "rejected"
)

// Contract is the long-lived tuition engagement that spans many sessions
// and a recurring billing cycle.
type Contract struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	TutorID          uint           `json:"tutor_id" gorm:"not null;index"`
	StudentID        uint           `json:"student_id" gorm:"not null;index"`
	Status           ContractStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	ClassesCompleted int            `json:"classes_completed" gorm:"not null;default:0"`
	PaymentDue       bool           `json:"payment_due" gorm:"not null;default:false"`
	MonthlyFee       float64        `json:"monthly_fee"`
	LastPaymentDate  *time.Time     `json:"last_payment_date"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = ContractPending
	}
	return nil
}

func (c *Contract) tutor() uint   { return c.TutorID }
func (c *Contract) student() uint { return c.StudentID }

func (c *Contract) CheckParty(actor Actor) error {
	return checkParty(c, actor)
}

func (c *Contract) transitionErr(op string) error {
	return &TransitionError{Entity: "contract", From: string(c.Status), Op: op}
}

// Respond lets the tutor accept or reject a pending proposal.
func (c *Contract) Respond(actor Actor, accept bool) error {
	if err := c.CheckParty(actor); err != nil {
		return err
	}
	if actor.Role != RoleTutor {
		return ErrRoleNotPermitted
	}
	if c.Status != ContractPending {
		if accept {
			return c.transitionErr("accept")
		}
		return c.transitionErr("reject")
	}
	if accept {
		c.Status = ContractActive
	} else {
		c.Status = ContractRejected
	}
	return nil
}

// Cancel ends a pending or active contract from either side.
func (c *Contract) Cancel(actor Actor) error {
	if err := c.CheckParty(actor); err != nil {
		return err
	}
	if c.Status != ContractPending && c.Status != ContractActive {
		return c.transitionErr("cancel")
	}
	c.Status = ContractCancelled
	return nil
}

// Complete ends the engagement. Outstanding payment does not block it.
func (c *Contract) Complete(actor Actor) error {
	if err := c.CheckParty(actor); err != nil {
		return err
	}
	if actor.Role != RoleTutor {
		return ErrRoleNotPermitted
	}
	if c.Status != ContractActive {
		return c.transitionErr("complete")
	}
	c.Status = ContractCompleted
	return nil
}

// CanHoldSession reports whether a new session may be booked, started or
// logged against the contract.
func (c *Contract) CanHoldSession() error {
	if c.Status != ContractActive {
		return c.transitionErr("hold a session on")
	}
	if c.PaymentDue {
		return ErrPaymentRequired
	}
	return nil
}

// LogClass counts one verified session. When the running total reaches a
// multiple of threshold the contract locks until paid; it reports whether
// this call set the lock.
func (c *Contract) LogClass(threshold int) (bool, error) {
	if err := c.CanHoldSession(); err != nil {
		return false, err
	}
	c.ClassesCompleted++
	if threshold > 0 && c.ClassesCompleted%threshold == 0 {
		c.PaymentDue = true
		return true, nil
	}
	return false, nil
}

// Settle clears the billing lock. The class counter keeps running so the
// lock re-triggers at the next multiple.
func (c *Contract) Settle(actor Actor, now time.Time) error {
	if err := c.CheckParty(actor); err != nil {
		return err
	}
	if actor.Role != RoleStudent {
		return ErrRoleNotPermitted
	}
	if !c.PaymentDue {
		return ErrNoPaymentDue
	}
	now = now.UTC()
	c.PaymentDue = false
	c.LastPaymentDate = &now
	return nil
}

func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	out.LastPaymentDate = clonePtr(c.LastPaymentDate)
	return &out
}
