package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/meinhoongagan/tutor-sessions/models"
)

const tokenSubject = "attendance"

type attendanceClaims struct {
	ContractID uint `json:"contract_id"`
	jwt.RegisteredClaims
}

// IssueAttendanceToken signs a short-lived token the tutor shows to the
// student, who redeems it to confirm the class took place.
func (s *Service) IssueAttendanceToken(ctx context.Context, id uint, actor models.Actor) (string, time.Time, error) {
	c, err := s.load(ctx, id, actor)
	if err != nil {
		return "", time.Time{}, err
	}
	if actor.Role != models.RoleTutor {
		return "", time.Time{}, models.ErrRoleNotPermitted
	}
	if err := c.CanHoldSession(); err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expires := now.Add(s.conf.TokenTTL)
	claims := attendanceClaims{
		ContractID: c.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   tokenSubject,
			Issuer:    strconv.FormatUint(uint64(actor.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.conf.Secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "billing: sign attendance token")
	}
	return signed, expires, nil
}

// RedeemAttendanceToken validates a token and logs the class. Each token
// is accepted once.
func (s *Service) RedeemAttendanceToken(ctx context.Context, token string, actor models.Actor) (*models.Contract, error) {
	if actor.Role != models.RoleStudent {
		return nil, models.ErrRoleNotPermitted
	}
	claims := &attendanceClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.conf.Secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject != tokenSubject || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, models.ErrInvalidToken
	}

	c, err := s.load(ctx, claims.ContractID, actor)
	if err != nil {
		return nil, err
	}
	if err := c.CanHoldSession(); err != nil {
		return nil, err
	}

	// held until the token could no longer validate
	ttl := time.Until(claims.ExpiresAt.Time) + time.Minute
	fresh, err := s.redeemed.Claim(ctx, "attendance-token:"+claims.ID, ttl)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, models.ErrInvalidToken
	}
	return s.LogAttendance(ctx, c.ID, actor, models.AttendanceToken, nil)
}
