package geo

import (
	"context"
	"time"
)

// Report is what a client sends after querying its own device sensor.
type Report struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error,omitempty"`
}

// Reported is a Sensor replaying a client's report.
type Reported Report

func (r Reported) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, AsSensorError(err)
	}
	if r.Error != "" {
		return Position{}, &SensorError{Cause: ParseCause(r.Error)}
	}
	if r.Lat == nil || r.Lng == nil {
		return Position{}, &SensorError{Cause: CauseUnavailable}
	}
	return Position{Lat: *r.Lat, Lng: *r.Lng}, nil
}

// Static always reads the same position.
type Static Position

func (s Static) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, AsSensorError(err)
	}
	return Position(s), nil
}

// Poll turns a Sensor into a Watcher by reading it every interval.
type Poll struct {
	Sensor   Sensor
	Interval time.Duration
}

func (p Poll) Watch(ctx context.Context) (<-chan Reading, error) {
	out := make(chan Reading)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		for {
			pos, err := p.Sensor.CurrentPosition(ctx)
			select {
			case out <- Reading{Position: pos, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
