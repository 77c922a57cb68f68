package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads hierarchy fixtures for demos and local environments.
type SeedService interface {
	SeedHierarchy(ctx context.Context, token string, seed repository.HierarchySeed) (int64, error)
}

type seedService struct {
	repo        repository.DirectoryRepository
	invalidator CacheInvalidator
	enabled     bool
	token       string
	logger      zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.DirectoryRepository, invalidator CacheInvalidator, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:        repo,
		invalidator: invalidator,
		enabled:     enabled,
		token:       token,
		logger:      logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedHierarchy(ctx context.Context, token string, seed repository.HierarchySeed) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}

	affected, err := s.repo.UpsertHierarchy(ctx, normalizeSeed(seed))
	if err != nil {
		return 0, err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateHierarchy(ctx)
	}
	s.logger.Info().Int64("affected", affected).Msg("hierarchy seeded")
	return affected, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtleConstantTimeCompare(expected, strings.TrimSpace(token))
}

func subtleConstantTimeCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	mismatch := byte(0)
	for i := 0; i < len(a); i++ {
		mismatch |= a[i] ^ b[i]
	}
	return mismatch == 0
}

// normalizeSeed uppercases every identifier and parent reference so fixtures written by hand match
// the resolver's comparisons.
func normalizeSeed(seed repository.HierarchySeed) repository.HierarchySeed {
	for i := range seed.Managers {
		seed.Managers[i].ManagerID = identity.Normalize(seed.Managers[i].ManagerID)
		seed.Managers[i].Status = defaultStatus(seed.Managers[i].Status)
	}
	for i := range seed.Contractors {
		c := &seed.Contractors[i]
		c.ContractorID = identity.Normalize(c.ContractorID)
		c.CksManager = normalizeRef(c.CksManager)
		c.Status = defaultStatus(c.Status)
	}
	for i := range seed.Customers {
		c := &seed.Customers[i]
		c.CustomerID = identity.Normalize(c.CustomerID)
		c.ContractorID = normalizeRef(c.ContractorID)
		c.CksManager = normalizeRef(c.CksManager)
		c.Status = defaultStatus(c.Status)
	}
	for i := range seed.Centers {
		c := &seed.Centers[i]
		c.CenterID = identity.Normalize(c.CenterID)
		c.ContractorID = normalizeRef(c.ContractorID)
		c.CustomerID = normalizeRef(c.CustomerID)
		c.CksManager = normalizeRef(c.CksManager)
		c.Status = defaultStatus(c.Status)
	}
	for i := range seed.Crew {
		c := &seed.Crew[i]
		c.CrewID = identity.Normalize(c.CrewID)
		c.AssignedCenter = normalizeRef(c.AssignedCenter)
		c.CksManager = normalizeRef(c.CksManager)
		c.Status = defaultStatus(c.Status)
	}
	for i := range seed.Warehouses {
		w := &seed.Warehouses[i]
		w.WarehouseID = identity.Normalize(w.WarehouseID)
		w.ManagerID = normalizeRef(w.ManagerID)
		w.Status = defaultStatus(w.Status)
	}
	for i := range seed.Orders {
		o := &seed.Orders[i]
		o.OrderID = identity.Normalize(o.OrderID)
		o.CustomerID = normalizeRef(o.CustomerID)
		o.DestinationCenter = normalizeRef(o.DestinationCenter)
		o.WarehouseID = normalizeRef(o.WarehouseID)
		if o.Status == "" {
			o.Status = "pending"
		}
	}
	for i := range seed.Inventory {
		item := &seed.Inventory[i]
		item.WarehouseID = identity.Normalize(item.WarehouseID)
		item.ProductID = identity.Normalize(item.ProductID)
	}
	return seed
}

func normalizeRef(value *string) *string {
	return optionalCode(identity.NormalizePtr(value))
}

func defaultStatus(status string) string {
	if strings.TrimSpace(status) == "" {
		return "active"
	}
	return strings.ToLower(strings.TrimSpace(status))
}
