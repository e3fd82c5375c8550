package ports

import (
	"context"
	"time"

	"github.com/volthost/volthost-api/internal/domain"
)

// BookingFilter narrows booking listings
type BookingFilter struct {
	Status    domain.BookingStatus
	ChargerID string
	Limit     int
	Offset    int
}

type BookingRepository interface {
	Save(ctx context.Context, booking *domain.Booking) error
	Update(ctx context.Context, booking *domain.Booking) error
	FindByID(ctx context.Context, id string) (*domain.Booking, error)
	// FindByIDForUpdate takes a row lock on the booking; only meaningful
	// inside a unit of work.
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error)
	FindByCode(ctx context.Context, code string) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	// TransitionStatus performs a guarded status write: the update applies
	// only if the stored status still equals from. Returns false when the
	// row was concurrently moved to another status.
	TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error)
}

type ChargerRepository interface {
	Save(ctx context.Context, charger *domain.Charger) error
	Update(ctx context.Context, charger *domain.Charger) error
	FindByID(ctx context.Context, id string) (*domain.Charger, error)
	// FindByIDForUpdate takes a row lock on the charger; only meaningful
	// inside a unit of work.
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Charger, error)
	FindAll(ctx context.Context, hostID string, limit, offset int) ([]domain.Charger, error)
}

// TransactionRepository is append-only: no update or delete exists anywhere
// on this interface, the ledger is a financial audit trail.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]domain.Transaction, error)
	// SummarizeBySource aggregates total amount and entry count, across all
	// sources when source is empty.
	SummarizeBySource(ctx context.Context, source domain.TransactionSource) (*domain.LedgerSummary, error)
}

// Repositories bundles repositories scoped to one unit of work
type Repositories struct {
	Bookings     BookingRepository
	Chargers     ChargerRepository
	Transactions TransactionRepository
}

// UnitOfWork runs fn against transaction-scoped repositories. All writes made
// through the provided repositories become visible together on commit, or not
// at all: any error from fn rolls the whole unit back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

// Cache abstracts the Redis-backed cache
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
