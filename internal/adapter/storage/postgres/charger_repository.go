package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/ports"
)

type ChargerRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewChargerRepository(db *gorm.DB, log *zap.Logger) ports.ChargerRepository {
	return &ChargerRepository{
		db:  db,
		log: log,
	}
}

func (r *ChargerRepository) Save(ctx context.Context, charger *domain.Charger) error {
	return r.db.WithContext(ctx).Create(charger).Error
}

func (r *ChargerRepository) Update(ctx context.Context, charger *domain.Charger) error {
	return r.db.WithContext(ctx).Save(charger).Error
}

func (r *ChargerRepository) FindByID(ctx context.Context, id string) (*domain.Charger, error) {
	var charger domain.Charger
	err := r.db.WithContext(ctx).First(&charger, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charger, nil
}

// FindByIDForUpdate locks the charger row; only meaningful inside a unit of
// work, where it serializes counter updates from concurrent verifications.
func (r *ChargerRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Charger, error) {
	var charger domain.Charger
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&charger, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charger, nil
}

func (r *ChargerRepository) FindAll(ctx context.Context, hostID string, limit, offset int) ([]domain.Charger, error) {
	query := r.db.WithContext(ctx).Order("name asc")
	if hostID != "" {
		query = query.Where("host_id = ?", hostID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var chargers []domain.Charger
	err := query.Find(&chargers).Error
	return chargers, err
}
