// Package geo describes the platform geolocation sensor the location
// exchange reads from.
package geo

import (
	"context"
	"errors"
	"fmt"
)

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Cause string

const (
	CauseDenied      Cause = "denied"
	CauseUnavailable Cause = "unavailable"
	CauseTimeout     Cause = "timeout"
)

// ParseCause maps a reported failure onto a Cause. Unknown values count as
// unavailable.
func ParseCause(s string) Cause {
	switch Cause(s) {
	case CauseDenied, CauseTimeout:
		return Cause(s)
	}
	return CauseUnavailable
}

// SensorError is a failed position read. Nothing is published when one is
// returned.
type SensorError struct {
	Cause Cause
	Err   error
}

func (e *SensorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location sensor %s: %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("location sensor %s", e.Cause)
}

func (e *SensorError) Unwrap() error { return e.Err }

// AsSensorError converts err into a *SensorError, classifying context
// deadlines as timeouts.
func AsSensorError(err error) *SensorError {
	var se *SensorError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SensorError{Cause: CauseTimeout, Err: err}
	}
	return &SensorError{Cause: CauseUnavailable, Err: err}
}

// Sensor takes a single position reading.
type Sensor interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Reading is one sample of a continuous watch. Exactly one of Position and
// Err is meaningful.
type Reading struct {
	Position Position
	Err      error
}

// Watcher streams readings until ctx ends, closing the channel when done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Reading, error)
}
