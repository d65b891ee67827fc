// Package memstore is an in-memory store.Store used for tests and local
// runs without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meinhoongagan/tutor-sessions/feed"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/store"
)

type Store struct {
	mu           sync.RWMutex
	seq          uint
	appointments map[uint]*models.Appointment
	contracts    map[uint]*models.Contract
	attendance   []models.Attendance
	payments     []models.Payment
	reports      []models.Report
	users        map[uint]*models.User

	// commit serialises write+publish so subscribers see store order
	commit sync.Mutex
	feed   *feed.Local
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		appointments: make(map[uint]*models.Appointment),
		contracts:    make(map[uint]*models.Contract),
		users:        make(map[uint]*models.User),
		feed:         feed.NewLocal(),
		now:          time.Now,
	}
}

func (s *Store) nextID() uint {
	s.seq++
	return s.seq
}

func (s *Store) GetAppointment(_ context.Context, id uint) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.appointments[id]; ok {
		return a.Clone(), nil
	}
	return nil, models.ErrNotFound
}

func (s *Store) LatestAppointment(_ context.Context, applicationID uint) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Appointment
	for _, a := range s.appointments {
		if a.ApplicationID != applicationID {
			continue
		}
		if latest == nil || a.ID > latest.ID {
			latest = a
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest.Clone(), nil
}

func (s *Store) ListAppointments(_ context.Context, q store.AppointmentQuery) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.Appointment, 0)
	for _, a := range s.appointments {
		if q.ParticipantID != 0 && a.TutorID != q.ParticipantID && a.StudentID != q.ParticipantID {
			continue
		}
		if q.ContractID != 0 && (a.ContractID == nil || *a.ContractID != q.ContractID) {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, a.Status) {
			continue
		}
		if !q.ProposedFrom.IsZero() && (a.ProposedDate == nil || a.ProposedDate.Before(q.ProposedFrom)) {
			continue
		}
		if !q.ProposedBefore.IsZero() && (a.ProposedDate == nil || !a.ProposedDate.Before(q.ProposedBefore)) {
			continue
		}
		res = append(res, *a.Clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

func (s *Store) InsertAppointment(ctx context.Context, a *models.Appointment) error {
	s.commit.Lock()
	defer s.commit.Unlock()

	s.mu.Lock()
	_ = a.BeforeCreate(nil)
	now := s.now().UTC()
	a.ID = s.nextID()
	a.CreatedAt, a.UpdatedAt = now, now
	s.appointments[a.ID] = a.Clone()
	s.mu.Unlock()

	return s.feed.Publish(ctx, store.Change{Entity: store.EntityAppointment, Op: store.OpInsert, Appointment: a})
}

func (s *Store) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	s.commit.Lock()
	defer s.commit.Unlock()

	s.mu.Lock()
	prev, ok := s.appointments[a.ID]
	if !ok {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	a.CreatedAt = prev.CreatedAt
	a.UpdatedAt = s.now().UTC()
	s.appointments[a.ID] = a.Clone()
	s.mu.Unlock()

	return s.feed.Publish(ctx, store.Change{Entity: store.EntityAppointment, Op: store.OpUpdate, Appointment: a})
}

func (s *Store) GetContract(_ context.Context, id uint) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.contracts[id]; ok {
		return c.Clone(), nil
	}
	return nil, models.ErrNotFound
}

func (s *Store) ListContracts(_ context.Context, q store.ContractQuery) ([]models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.Contract, 0)
	for _, c := range s.contracts {
		if q.ParticipantID != 0 && c.TutorID != q.ParticipantID && c.StudentID != q.ParticipantID {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, c.Status) {
			continue
		}
		if q.PaymentDue != nil && c.PaymentDue != *q.PaymentDue {
			continue
		}
		res = append(res, *c.Clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) InsertContract(ctx context.Context, c *models.Contract) error {
	s.commit.Lock()
	defer s.commit.Unlock()

	s.mu.Lock()
	_ = c.BeforeCreate(nil)
	now := s.now().UTC()
	c.ID = s.nextID()
	c.CreatedAt, c.UpdatedAt = now, now
	s.contracts[c.ID] = c.Clone()
	s.mu.Unlock()

	return s.feed.Publish(ctx, store.Change{Entity: store.EntityContract, Op: store.OpInsert, Contract: c})
}

func (s *Store) UpdateContract(ctx context.Context, c *models.Contract) error {
	s.commit.Lock()
	defer s.commit.Unlock()

	s.mu.Lock()
	prev, ok := s.contracts[c.ID]
	if !ok {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	c.CreatedAt = prev.CreatedAt
	c.UpdatedAt = s.now().UTC()
	s.contracts[c.ID] = c.Clone()
	s.mu.Unlock()

	return s.feed.Publish(ctx, store.Change{Entity: store.EntityContract, Op: store.OpUpdate, Contract: c})
}

func (s *Store) InsertAttendance(_ context.Context, a *models.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID()
	s.attendance = append(s.attendance, *a)
	return nil
}

func (s *Store) ListAttendance(_ context.Context, contractID uint) ([]models.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.Attendance, 0)
	for _, a := range s.attendance {
		if a.ContractID == contractID {
			res = append(res, a)
		}
	}
	return res, nil
}

func (s *Store) InsertPayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	s.payments = append(s.payments, *p)
	return nil
}

// Payments returns every recorded payment for a contract.
func (s *Store) Payments(contractID uint) []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []models.Payment
	for _, p := range s.payments {
		if p.ContractID == contractID {
			res = append(res, p)
		}
	}
	return res
}

func (s *Store) InsertReport(_ context.Context, r *models.Report) error {
	if err := r.BeforeCreate(nil); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextID()
	r.CreatedAt = s.now().UTC()
	s.reports = append(s.reports, *r)
	return nil
}

// Reports returns every report filed about an appointment.
func (s *Store) Reports(appointmentID uint) []models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []models.Report
	for _, r := range s.reports {
		if r.AppointmentID == appointmentID {
			res = append(res, r)
		}
	}
	return res
}

func (s *Store) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (s *Store) InsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.nextID()
	}
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) Subscribe(ctx context.Context, f store.Filter, onChange func(store.Change)) (func(), error) {
	return s.feed.Subscribe(ctx, f, onChange)
}

func containsStatus[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
