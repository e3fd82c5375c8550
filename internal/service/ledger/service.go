package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/observability/telemetry"
	"github.com/volthost/volthost-api/internal/ports"
)

// Service implements LedgerService over the append-only transaction store
type Service struct {
	repo ports.TransactionRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewService creates a new ledger service
func NewService(repo ports.TransactionRepository, log *zap.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Append writes one immutable ledger entry
func (s *Service) Append(ctx context.Context, amount float64, source domain.TransactionSource, description string) (*domain.Transaction, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, domain.NewValidationError("amount", "must be a finite number")
	}
	if amount < 0 {
		return nil, domain.NewValidationError("amount", "must not be negative")
	}
	if !source.IsValid() {
		return nil, domain.NewValidationError("source", fmt.Sprintf("unknown source %q", source))
	}

	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		Amount:      amount,
		Source:      source,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	telemetry.LedgerAmountTotal.WithLabelValues(string(source)).Add(amount)
	return tx, nil
}

// Recent returns the latest ledger entries
func (s *Service) Recent(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}

// Summary aggregates the ledger, across all sources when source is empty
func (s *Service) Summary(ctx context.Context, source domain.TransactionSource) (*domain.LedgerSummary, error) {
	if source != "" && !source.IsValid() {
		return nil, domain.NewValidationError("source", fmt.Sprintf("unknown source %q", source))
	}
	return s.repo.SummarizeBySource(ctx, source)
}
