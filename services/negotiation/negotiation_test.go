package negotiation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/tutor-sessions/geo"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/notify"
	"github.com/meinhoongagan/tutor-sessions/store"
	"github.com/meinhoongagan/tutor-sessions/store/memstore"
)

var (
	tutor   = models.Actor{ID: 10, Role: models.RoleTutor}
	student = models.Actor{ID: 20, Role: models.RoleStudent}
	ref     = ApplicationRef{ApplicationID: 1, TutorID: 10, StudentID: 20}
	slot    = time.Date(2026, 7, 1, 16, 0, 0, 0, time.UTC)
)

func newService(t *testing.T) (*Service, *memstore.Store, *notify.Recorder) {
	t.Helper()
	st := memstore.New()
	rec := &notify.Recorder{}
	return New(st, rec), st, rec
}

func open(t *testing.T, s *Service) *models.Appointment {
	t.Helper()
	a, err := s.Open(context.Background(), student, ref)
	require.NoError(t, err)
	return a
}

func TestOpen(t *testing.T) {
	s, st, _ := newService(t)
	ctx := context.Background()

	a := open(t, s)
	assert.Equal(t, models.StatusNegotiating, a.Status)

	again, err := s.Open(ctx, tutor, ref)
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID, "one active appointment per application")

	_, err = s.Cancel(ctx, a.ID, tutor)
	require.NoError(t, err)
	reused, err := s.Open(ctx, tutor, ref)
	require.NoError(t, err)
	assert.Equal(t, a.ID, reused.ID, "cancelled appointment is reused")

	done, err := st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	done.Status = models.StatusCompleted
	require.NoError(t, st.UpdateAppointment(ctx, done))
	next, err := s.Open(ctx, tutor, ref)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, next.ID, "completed appointment is history")

	_, err = s.Open(ctx, models.Actor{ID: 99, Role: models.RoleStudent}, ref)
	assert.ErrorIs(t, err, models.ErrNotParticipant)
}

func TestPropose_Idempotent(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()
	a := open(t, s)

	for i := 0; i < 2; i++ {
		got, err := s.Propose(ctx, a.ID, student, slot)
		require.NoError(t, err)
		assert.True(t, got.StudentAgreed)
		assert.False(t, got.TutorAgreed)
		assert.Equal(t, models.StatusNegotiating, got.Status)
	}

	sent := rec.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, tutor.ID, sent[0].UserID)
}

func TestAccept_ConfirmsOnMutualAgreement(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()
	a := open(t, s)

	_, err := s.Propose(ctx, a.ID, tutor, slot)
	require.NoError(t, err)

	_, err = s.Accept(ctx, a.ID, tutor)
	assert.ErrorIs(t, err, models.ErrAlreadyProposedByYou)

	got, err := s.Accept(ctx, a.ID, student)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.True(t, got.StudentAgreed && got.TutorAgreed)
	assert.True(t, got.ProposedDate.Equal(slot))

	// proposal + confirmation to both parties
	assert.Len(t, rec.Sent(), 3)
}

func TestAccept_SelfAcceptLeavesRecordUntouched(t *testing.T) {
	s, st, _ := newService(t)
	ctx := context.Background()
	a := open(t, s)
	_, err := s.Propose(ctx, a.ID, student, slot)
	require.NoError(t, err)
	before, _ := st.GetAppointment(ctx, a.ID)

	_, err = s.Accept(ctx, a.ID, student)
	require.ErrorIs(t, err, models.ErrAlreadyProposedByYou)

	after, _ := st.GetAppointment(ctx, a.ID)
	assert.Equal(t, before, after)
}

func confirmed(t *testing.T, s *Service) *models.Appointment {
	t.Helper()
	ctx := context.Background()
	a := open(t, s)
	_, err := s.Propose(ctx, a.ID, tutor, slot)
	require.NoError(t, err)
	a, err = s.Accept(ctx, a.ID, student)
	require.NoError(t, err)
	return a
}

func TestPublishLocation(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	a := open(t, s)
	_, err := s.PublishLocation(ctx, a.ID, student, 5.6, -0.2)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	a = confirmed(t, s)
	got, err := s.PublishLocation(ctx, a.ID, student, 5.6, -0.2)
	require.NoError(t, err)
	assert.Equal(t, 5.6, *got.StudentLat)
	assert.Nil(t, got.TutorLat)

	_, err = s.PublishLocation(ctx, a.ID, tutor, 91, 0)
	assert.ErrorIs(t, err, models.ErrInvalidCoordinates)

	got, err = s.PublishLocation(ctx, a.ID, tutor, 5.5, -0.1)
	require.NoError(t, err)
	assert.Equal(t, 5.6, *got.StudentLat, "counterpart pair untouched")

	got, err = s.Propose(ctx, a.ID, student, slot.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got.StudentLat)
	assert.Nil(t, got.TutorLat)
	assert.Equal(t, models.StatusNegotiating, got.Status)
}

func TestPublishFromSensor(t *testing.T) {
	s, st, _ := newService(t)
	ctx := context.Background()
	a := confirmed(t, s)

	_, err := s.PublishFromSensor(ctx, a.ID, tutor, geo.Reported{Error: "denied"})
	var se *geo.SensorError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, geo.CauseDenied, se.Cause)
	stored, _ := st.GetAppointment(ctx, a.ID)
	assert.Nil(t, stored.TutorLat)

	got, err := s.PublishFromSensor(ctx, a.ID, tutor, geo.Static{Lat: 1.5, Lng: 2.5})
	require.NoError(t, err)
	assert.Equal(t, 1.5, *got.TutorLat)
}

type chanWatcher chan geo.Reading

func (c chanWatcher) Watch(context.Context) (<-chan geo.Reading, error) { return c, nil }

func TestTrack(t *testing.T) {
	s, st, _ := newService(t)
	ctx := context.Background()
	a := confirmed(t, s)

	w := make(chanWatcher, 3)
	w <- geo.Reading{Position: geo.Position{Lat: 1, Lng: 1}}
	w <- geo.Reading{Position: geo.Position{Lat: 2, Lng: 2}}
	w <- geo.Reading{Err: &geo.SensorError{Cause: geo.CauseTimeout}}

	err := s.Track(ctx, a.ID, student, w)
	var se *geo.SensorError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, geo.CauseTimeout, se.Cause)

	stored, _ := st.GetAppointment(ctx, a.ID)
	assert.Equal(t, 2.0, *stored.StudentLat)

	closed := make(chanWatcher)
	close(closed)
	assert.NoError(t, s.Track(ctx, a.ID, student, closed))
}

func TestConcurrentProposalsResolveToStoreOrder(t *testing.T) {
	s, st, _ := newService(t)
	ctx := context.Background()
	a := open(t, s)

	var (
		mu        sync.Mutex
		delivered []*models.Appointment
	)
	cancel, err := st.Subscribe(ctx, store.Filter{ID: a.ID}, func(c store.Change) {
		mu.Lock()
		delivered = append(delivered, c.Appointment)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i, actor := range []models.Actor{tutor, student} {
		wg.Add(1)
		go func(actor models.Actor, at time.Time) {
			defer wg.Done()
			_, err := s.Propose(ctx, a.ID, actor, at)
			errs <- err
		}(actor, slot.Add(time.Duration(i)*time.Hour))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err, "racing proposals are not an error")
	}

	stored, err := st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, delivered, 2)
	winner := delivered[len(delivered)-1]
	assert.Equal(t, stored.ProposedBy, winner.ProposedBy)
	assert.Equal(t, models.StatusNegotiating, stored.Status)
	assert.NotEqual(t, stored.StudentAgreed, stored.TutorAgreed, "exactly the last proposer's flag is set")
}

func TestList(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	open(t, s)

	mine, err := s.List(ctx, tutor)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := s.List(ctx, models.Actor{ID: 10, Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.Get(ctx, mine[0].ID, models.Actor{ID: 3, Role: models.RoleTutor})
	assert.True(t, errors.Is(err, models.ErrNotParticipant))
}
