package mocks

import (
	"context"
	"time"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/ports"
)

// MockBookingRepository is a mock implementation of BookingRepository
type MockBookingRepository struct {
	SaveFunc              func(ctx context.Context, booking *domain.Booking) error
	UpdateFunc            func(ctx context.Context, booking *domain.Booking) error
	FindByIDFunc          func(ctx context.Context, id string) (*domain.Booking, error)
	FindByIDForUpdateFunc func(ctx context.Context, id string) (*domain.Booking, error)
	FindByCodeFunc        func(ctx context.Context, code string) (*domain.Booking, error)
	ListFunc              func(ctx context.Context, filter ports.BookingFilter) ([]domain.Booking, error)
	TransitionStatusFunc  func(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error)
}

func (m *MockBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, booking)
	}
	return nil
}

func (m *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, booking)
	}
	return nil
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockBookingRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	if m.FindByIDForUpdateFunc != nil {
		return m.FindByIDForUpdateFunc(ctx, id)
	}
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockBookingRepository) FindByCode(ctx context.Context, code string) (*domain.Booking, error) {
	if m.FindByCodeFunc != nil {
		return m.FindByCodeFunc(ctx, code)
	}
	return nil, nil
}

func (m *MockBookingRepository) List(ctx context.Context, filter ports.BookingFilter) ([]domain.Booking, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []domain.Booking{}, nil
}

func (m *MockBookingRepository) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error) {
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(ctx, id, from, to, at)
	}
	return true, nil
}

// MockChargerRepository is a mock implementation of ChargerRepository
type MockChargerRepository struct {
	SaveFunc              func(ctx context.Context, charger *domain.Charger) error
	UpdateFunc            func(ctx context.Context, charger *domain.Charger) error
	FindByIDFunc          func(ctx context.Context, id string) (*domain.Charger, error)
	FindByIDForUpdateFunc func(ctx context.Context, id string) (*domain.Charger, error)
	FindAllFunc           func(ctx context.Context, hostID string, limit, offset int) ([]domain.Charger, error)
}

func (m *MockChargerRepository) Save(ctx context.Context, charger *domain.Charger) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, charger)
	}
	return nil
}

func (m *MockChargerRepository) Update(ctx context.Context, charger *domain.Charger) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, charger)
	}
	return nil
}

func (m *MockChargerRepository) FindByID(ctx context.Context, id string) (*domain.Charger, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockChargerRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Charger, error) {
	if m.FindByIDForUpdateFunc != nil {
		return m.FindByIDForUpdateFunc(ctx, id)
	}
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockChargerRepository) FindAll(ctx context.Context, hostID string, limit, offset int) ([]domain.Charger, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx, hostID, limit, offset)
	}
	return []domain.Charger{}, nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	CreateFunc            func(ctx context.Context, tx *domain.Transaction) error
	FindByIDFunc          func(ctx context.Context, id string) (*domain.Transaction, error)
	ListFunc              func(ctx context.Context, limit, offset int) ([]domain.Transaction, error)
	SummarizeBySourceFunc func(ctx context.Context, source domain.TransactionSource) (*domain.LedgerSummary, error)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx)
	}
	return nil
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockTransactionRepository) List(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []domain.Transaction{}, nil
}

func (m *MockTransactionRepository) SummarizeBySource(ctx context.Context, source domain.TransactionSource) (*domain.LedgerSummary, error) {
	if m.SummarizeBySourceFunc != nil {
		return m.SummarizeBySourceFunc(ctx, source)
	}
	return &domain.LedgerSummary{}, nil
}

// MockUnitOfWork runs the unit-of-work callback against the configured
// repositories. Tests inspect the repositories afterwards; a DoFunc override
// can simulate commit failures.
type MockUnitOfWork struct {
	Repos  ports.Repositories
	DoFunc func(ctx context.Context, fn func(repos ports.Repositories) error) error
}

func (m *MockUnitOfWork) Do(ctx context.Context, fn func(repos ports.Repositories) error) error {
	if m.DoFunc != nil {
		return m.DoFunc(ctx, fn)
	}
	return fn(m.Repos)
}
