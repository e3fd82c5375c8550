package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/volthost/volthost-api/internal/ports"
)

// UnitOfWork wraps a GORM transaction. Repositories handed to the callback
// share the transaction connection, so FOR UPDATE locks taken through them
// hold until commit or rollback.
type UnitOfWork struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewUnitOfWork(db *gorm.DB, log *zap.Logger) ports.UnitOfWork {
	return &UnitOfWork{
		db:  db,
		log: log,
	}
}

// Do runs fn inside one database transaction. Any error returned by fn rolls
// everything back; nil commits all writes together.
func (u *UnitOfWork) Do(ctx context.Context, fn func(repos ports.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.Repositories{
			Bookings:     NewBookingRepository(tx, u.log),
			Chargers:     NewChargerRepository(tx, u.log),
			Transactions: NewTransactionRepository(tx, u.log),
		})
	})
}
