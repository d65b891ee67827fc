package negotiation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/meinhoongagan/tutor-sessions/geo"
	"github.com/meinhoongagan/tutor-sessions/models"
)

// PublishLocation writes the actor's own coordinates on a confirmed
// appointment.
func (s *Service) PublishLocation(ctx context.Context, id uint, actor models.Actor, lat, lng float64) (*models.Appointment, error) {
	return s.apply(ctx, id, func(a *models.Appointment) error {
		return a.PublishLocation(actor, lat, lng)
	})
}

// PublishFromSensor reads the sensor once and publishes the result. A
// sensor failure is returned as a *geo.SensorError and nothing is written.
func (s *Service) PublishFromSensor(ctx context.Context, id uint, actor models.Actor, sensor geo.Sensor) (*models.Appointment, error) {
	if err := s.checkPublishable(ctx, id, actor); err != nil {
		return nil, err
	}
	pos, err := sensor.CurrentPosition(ctx)
	if err != nil {
		return nil, geo.AsSensorError(err)
	}
	// the read may take seconds; reload so the write starts from the
	// latest record
	return s.PublishLocation(ctx, id, actor, pos.Lat, pos.Lng)
}

// Track publishes every reading from w until ctx ends, the watcher closes
// or the appointment is no longer confirmed. A sensor failure ends tracking
// and is returned.
func (s *Service) Track(ctx context.Context, id uint, actor models.Actor, w geo.Watcher) error {
	if err := s.checkPublishable(ctx, id, actor); err != nil {
		return err
	}
	readings, err := w.Watch(ctx)
	if err != nil {
		return geo.AsSensorError(err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-readings:
			if !ok {
				return nil
			}
			if r.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return geo.AsSensorError(r.Err)
			}
			_, err := s.PublishLocation(ctx, id, actor, r.Position.Lat, r.Position.Lng)
			if errors.Is(err, models.ErrInvalidTransition) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

func (s *Service) checkPublishable(ctx context.Context, id uint, actor models.Actor) error {
	a, err := s.Get(ctx, id, actor)
	if err != nil {
		return err
	}
	if !a.Confirmed() {
		return &models.TransitionError{Entity: "appointment", From: string(a.Status), Op: "publish location for"}
	}
	return nil
}
