// Package gormstore implements store.Store on a relational database through
// gorm and announces every appointment and contract write on a feed.Bus.
package gormstore

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/meinhoongagan/tutor-sessions/feed"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/store"
)

type Store struct {
	db  *gorm.DB
	bus feed.Bus
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, bus feed.Bus) *Store {
	return &Store{db: db, bus: bus}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return &models.StoreError{Op: op, Err: err}
}

// publish announces a committed write. A failed announcement does not undo
// the write; subscribers recover by re-reading the record.
func (s *Store) publish(ctx context.Context, c store.Change) {
	if err := s.bus.Publish(ctx, c); err != nil {
		log.Warnf("gormstore: publish %s %d: %v", c.Entity, c.RecordID(), err)
	}
}

func (s *Store) GetAppointment(ctx context.Context, id uint) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, wrap("get appointment", err)
	}
	return &a, nil
}

func (s *Store) LatestAppointment(ctx context.Context, applicationID uint) (*models.Appointment, error) {
	var a models.Appointment
	err := s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id desc").
		First(&a).Error
	if err != nil {
		return nil, wrap("latest appointment", err)
	}
	return &a, nil
}

func (s *Store) ListAppointments(ctx context.Context, q store.AppointmentQuery) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).Model(&models.Appointment{})
	if q.ParticipantID != 0 {
		query = query.Where("tutor_id = ? OR student_id = ?", q.ParticipantID, q.ParticipantID)
	}
	if q.ContractID != 0 {
		query = query.Where("contract_id = ?", q.ContractID)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if !q.ProposedFrom.IsZero() {
		query = query.Where("proposed_date >= ?", q.ProposedFrom)
	}
	if !q.ProposedBefore.IsZero() {
		query = query.Where("proposed_date < ?", q.ProposedBefore)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var res []models.Appointment
	if err := query.Order("id asc").Find(&res).Error; err != nil {
		return nil, wrap("list appointments", err)
	}
	return res, nil
}

func (s *Store) InsertAppointment(ctx context.Context, a *models.Appointment) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return wrap("insert appointment", err)
	}
	s.publish(ctx, store.Change{Entity: store.EntityAppointment, Op: store.OpInsert, Appointment: a})
	return nil
}

// UpdateAppointment overwrites every column of the row.
func (s *Store) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	res := s.db.WithContext(ctx).Model(a).Select("*").Omit("created_at").Updates(a)
	if res.Error != nil {
		return wrap("update appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	s.publish(ctx, store.Change{Entity: store.EntityAppointment, Op: store.OpUpdate, Appointment: a})
	return nil
}

func (s *Store) GetContract(ctx context.Context, id uint) (*models.Contract, error) {
	var c models.Contract
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, wrap("get contract", err)
	}
	return &c, nil
}

func (s *Store) ListContracts(ctx context.Context, q store.ContractQuery) ([]models.Contract, error) {
	query := s.db.WithContext(ctx).Model(&models.Contract{})
	if q.ParticipantID != 0 {
		query = query.Where("tutor_id = ? OR student_id = ?", q.ParticipantID, q.ParticipantID)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.PaymentDue != nil {
		query = query.Where("payment_due = ?", *q.PaymentDue)
	}

	var res []models.Contract
	if err := query.Order("id asc").Find(&res).Error; err != nil {
		return nil, wrap("list contracts", err)
	}
	return res, nil
}

func (s *Store) InsertContract(ctx context.Context, c *models.Contract) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return wrap("insert contract", err)
	}
	s.publish(ctx, store.Change{Entity: store.EntityContract, Op: store.OpInsert, Contract: c})
	return nil
}

func (s *Store) UpdateContract(ctx context.Context, c *models.Contract) error {
	res := s.db.WithContext(ctx).Model(c).Select("*").Omit("created_at").Updates(c)
	if res.Error != nil {
		return wrap("update contract", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	s.publish(ctx, store.Change{Entity: store.EntityContract, Op: store.OpUpdate, Contract: c})
	return nil
}

func (s *Store) InsertAttendance(ctx context.Context, a *models.Attendance) error {
	return wrap("insert attendance", s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) ListAttendance(ctx context.Context, contractID uint) ([]models.Attendance, error) {
	var res []models.Attendance
	err := s.db.WithContext(ctx).Where("contract_id = ?", contractID).Order("id asc").Find(&res).Error
	if err != nil {
		return nil, wrap("list attendance", err)
	}
	return res, nil
}

func (s *Store) InsertPayment(ctx context.Context, p *models.Payment) error {
	return wrap("insert payment", s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) InsertReport(ctx context.Context, r *models.Report) error {
	err := s.db.WithContext(ctx).Create(r).Error
	if errors.Is(err, models.ErrReasonRequired) {
		return err
	}
	return wrap("insert report", err)
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, wrap("get user", err)
	}
	return &u, nil
}

func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	return wrap("insert user", s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) Subscribe(ctx context.Context, f store.Filter, onChange func(store.Change)) (func(), error) {
	return s.bus.Subscribe(ctx, f, onChange)
}
