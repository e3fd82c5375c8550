package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/ports"
)

type BookingRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewBookingRepository(db *gorm.DB, log *zap.Logger) ports.BookingRepository {
	return &BookingRepository{
		db:  db,
		log: log,
	}
}

func (r *BookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *BookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate locks the booking row until the surrounding transaction
// commits. Outside a transaction the lock is released immediately and buys
// nothing; callers go through the unit of work.
func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) FindByCode(ctx context.Context, code string) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.db.WithContext(ctx).First(&booking, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) List(ctx context.Context, filter ports.BookingFilter) ([]domain.Booking, error) {
	query := r.db.WithContext(ctx).Order("created_at desc")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ChargerID != "" {
		query = query.Where("charger_id = ?", filter.ChargerID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var bookings []domain.Booking
	err := query.Find(&bookings).Error
	return bookings, err
}

// TransitionStatus is a compare-and-swap on the status column: the write only
// lands if the row still holds the expected from status. The lifecycle
// timestamp matching the target status is stamped in the same statement.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case domain.BookingStatusAccepted:
		updates["accepted_at"] = at
	case domain.BookingStatusCancelled:
		updates["cancelled_at"] = at
	case domain.BookingStatusCompleted:
		updates["session_ended_at"] = at
		updates["is_session_active"] = false
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
