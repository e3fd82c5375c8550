package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/ports"
)

// TransactionRepository persists ledger entries. Only inserts and reads exist
// here; the ledger is append-only.
type TransactionRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTransactionRepository(db *gorm.DB, log *zap.Logger) ports.TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	query := r.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var txs []domain.Transaction
	err := query.Find(&txs).Error
	return txs, err
}

func (r *TransactionRepository) SummarizeBySource(ctx context.Context, source domain.TransactionSource) (*domain.LedgerSummary, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count")
	if source != "" {
		query = query.Where("source = ?", source)
	}

	var summary domain.LedgerSummary
	if err := query.Scan(&summary).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}
