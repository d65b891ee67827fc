package models

import "fmt"

// Role is the side a party plays in an engagement.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// ParseRole converts a raw claim or request value into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTutor:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Counterpart returns the other side of the engagement.
func (r Role) Counterpart() Role {
	if r == RoleTutor {
		return RoleStudent
	}
	return RoleTutor
}

// Actor identifies who is calling an operation and in which role.
type Actor struct {
	ID   uint `json:"id"`
	Role Role `json:"role"`
}

func (a Actor) Validate() error {
	if a.ID == 0 {
		return fmt.Errorf("%w: missing actor id", ErrInvalidRole)
	}
	if _, err := ParseRole(string(a.Role)); err != nil {
		return err
	}
	return nil
}

// parties is implemented by every record shared by a tutor and a student.
type parties interface {
	tutor() uint
	student() uint
}

// checkParty verifies the actor is the party that holds its claimed role on
// the record.
func checkParty(p parties, actor Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	switch actor.Role {
	case RoleTutor:
		if p.tutor() == actor.ID {
			return nil
		}
	case RoleStudent:
		if p.student() == actor.ID {
			return nil
		}
	}
	return ErrNotParticipant
}
