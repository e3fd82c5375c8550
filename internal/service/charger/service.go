package charger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/ports"
)

const statusCacheTTL = 30 * time.Second

// Service implements ChargerService. Reads go through a short-lived Redis
// cache; availability checks always hit the repository because they gate
// session starts.
type Service struct {
	repo  ports.ChargerRepository
	cache ports.Cache
	log   *zap.Logger
}

// NewService creates a new charger service
func NewService(repo ports.ChargerRepository, cache ports.Cache, log *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Get returns a charger by id, serving from cache when fresh
func (s *Service) Get(ctx context.Context, id string) (*domain.Charger, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey(id)); err == nil && cached != "" {
			var charger domain.Charger
			if err := json.Unmarshal([]byte(cached), &charger); err == nil {
				return &charger, nil
			}
		}
	}

	charger, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find charger: %w", err)
	}
	if charger == nil {
		return nil, domain.NewNotFoundError("charger", id)
	}

	if s.cache != nil {
		if data, err := json.Marshal(charger); err == nil {
			if err := s.cache.Set(ctx, cacheKey(id), string(data), statusCacheTTL); err != nil {
				s.log.Warn("failed to cache charger", zap.String("charger_id", id), zap.Error(err))
			}
		}
	}

	return charger, nil
}

// List returns a host's chargers
func (s *Service) List(ctx context.Context, hostID string, limit, offset int) ([]domain.Charger, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.FindAll(ctx, hostID, limit, offset)
}

// IsAvailableForSession reports whether sessions may start on the charger.
// This read bypasses the cache: a stale ONLINE must not let a session start
// on a charger that just went into maintenance.
func (s *Service) IsAvailableForSession(ctx context.Context, id string) (bool, error) {
	charger, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to find charger: %w", err)
	}
	if charger == nil {
		return false, domain.NewNotFoundError("charger", id)
	}
	return charger.IsAvailableForSession(), nil
}

func cacheKey(id string) string {
	return "charger:" + id
}
