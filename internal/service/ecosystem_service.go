package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/observability"
	"github.com/noah-isme/cks-portal-api/internal/repository"
)

// Ecosystem is the set of identifiers reachable beneath a root actor.
type Ecosystem struct {
	Role     identity.Role
	Root     string
	Members  identity.Set
	CacheHit bool
}

// EcosystemService resolves organizational scope for hub actors.
type EcosystemService interface {
	Resolve(ctx context.Context, role identity.Role, rootID string) (Ecosystem, error)
	Describe(ctx context.Context, role identity.Role, rootID string) (dto.EcosystemResponse, error)
}

type ecosystemService struct {
	repo        repository.HierarchyRepository
	cache       *redis.Client
	generations *CacheGenerations
	ttl         time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewEcosystemService constructs the hierarchy resolver. cache and generations may be nil.
func NewEcosystemService(repo repository.HierarchyRepository, cache *redis.Client, generations *CacheGenerations, ttl time.Duration, logger zerolog.Logger) EcosystemService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ecosystemService{
		repo:        repo,
		cache:       cache,
		generations: generations,
		ttl:         ttl,
		logger:      logger.With().Str("component", "ecosystem_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/cks-portal-api/internal/service/ecosystem"),
	}
}

// Resolve never fails on missing data: absent rows shrink the scope down to {root}. Data access
// errors are returned unchanged.
func (s *ecosystemService) Resolve(ctx context.Context, role identity.Role, rootID string) (Ecosystem, error) {
	root := identity.Normalize(rootID)
	ecosystem := Ecosystem{Role: role, Root: root, Members: identity.NewSet()}
	if root == "" {
		return ecosystem, nil
	}

	ctx, span := s.tracer.Start(ctx, "ecosystem.resolve", trace.WithAttributes(
		attribute.String("ecosystem.role", string(role)),
		attribute.String("ecosystem.root", root),
	))
	defer span.End()

	cacheKey := s.cacheKey(ctx, role, root)
	if cacheKey != "" {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var members []string
			if unmarshalErr := json.Unmarshal([]byte(cached), &members); unmarshalErr == nil {
				ecosystem.Members.Add(members...)
				ecosystem.CacheHit = true
				span.SetAttributes(attribute.Bool("ecosystem.cache_hit", true))
				observability.EcosystemResolves().WithLabelValues(string(role), "hit").Inc()
				return ecosystem, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read ecosystem cache")
			span.RecordError(err)
		}
	}

	members, err := s.resolve(ctx, role, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve_failed")
		observability.EcosystemResolves().WithLabelValues(string(role), "error").Inc()
		return Ecosystem{}, fmt.Errorf("resolve %s ecosystem for %s: %w", role, root, err)
	}
	members.Add(root)
	ecosystem.Members = members

	span.SetAttributes(attribute.Int("ecosystem.size", len(members)))
	observability.EcosystemResolves().WithLabelValues(string(role), "miss").Inc()
	observability.EcosystemSize().WithLabelValues(string(role)).Observe(float64(len(members)))

	if cacheKey != "" {
		if payload, err := json.Marshal(members.Slice()); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write ecosystem cache")
			}
		}
	}

	return ecosystem, nil
}

func (s *ecosystemService) Describe(ctx context.Context, role identity.Role, rootID string) (dto.EcosystemResponse, error) {
	ecosystem, err := s.Resolve(ctx, role, rootID)
	if err != nil {
		return dto.EcosystemResponse{}, err
	}
	members := ecosystem.Members.Slice()
	return dto.EcosystemResponse{
		Role:     string(ecosystem.Role),
		RootID:   ecosystem.Root,
		Members:  members,
		Size:     len(members),
		CacheHit: ecosystem.CacheHit,
	}, nil
}

func (s *ecosystemService) resolve(ctx context.Context, role identity.Role, root string) (identity.Set, error) {
	switch role {
	case identity.RoleManager:
		return s.resolveManager(ctx, root)
	case identity.RoleContractor:
		return s.resolveContractor(ctx, root)
	case identity.RoleCustomer:
		return s.resolveCustomer(ctx, root)
	case identity.RoleCenter:
		return s.resolveCenter(ctx, root)
	case identity.RoleCrew:
		return s.resolveCrew(ctx, root)
	case identity.RoleWarehouse:
		return s.resolveWarehouse(ctx, root)
	default:
		return identity.NewSet(root), nil
	}
}

func (s *ecosystemService) resolveManager(ctx context.Context, root string) (identity.Set, error) {
	filter := repository.HierarchyFilter{CksManager: root}
	scope := identity.NewSet(root)

	contractors, err := s.repo.ListContractors(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, contractor := range contractors {
		scope.Add(contractor.ContractorID)
	}

	customers, err := s.repo.ListCustomers(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, customer := range customers {
		scope.Add(customer.CustomerID)
		scope.AddPtr(customer.ContractorID)
	}

	centers, err := s.repo.ListCenters(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, center := range centers {
		scope.Add(center.CenterID)
		scope.AddPtr(center.CustomerID)
		scope.AddPtr(center.ContractorID)
	}

	crew, err := s.repo.ListCrew(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, member := range crew {
		scope.Add(member.CrewID)
		scope.AddPtr(member.AssignedCenter)
	}

	return scope, nil
}

func (s *ecosystemService) resolveContractor(ctx context.Context, root string) (identity.Set, error) {
	filter := repository.HierarchyFilter{ContractorID: root}
	scope := identity.NewSet(root)

	customers, err := s.repo.ListCustomers(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, customer := range customers {
		scope.Add(customer.CustomerID)
	}

	centers, err := s.repo.ListCenters(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, center := range centers {
		scope.Add(center.CenterID)
		scope.AddPtr(center.CustomerID)
	}

	crew, err := s.repo.ListCrew(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, member := range crew {
		scope.Add(member.CrewID)
		scope.AddPtr(member.AssignedCenter)
	}

	return scope, nil
}

func (s *ecosystemService) resolveCustomer(ctx context.Context, root string) (identity.Set, error) {
	filter := repository.HierarchyFilter{CustomerID: root}
	scope := identity.NewSet(root)

	centers, err := s.repo.ListCenters(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, center := range centers {
		scope.Add(center.CenterID)
		scope.AddPtr(center.ContractorID)
	}

	crew, err := s.repo.ListCrew(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, member := range crew {
		scope.Add(member.CrewID)
		scope.AddPtr(member.AssignedCenter)
	}

	return scope, nil
}

func (s *ecosystemService) resolveCenter(ctx context.Context, root string) (identity.Set, error) {
	scope := identity.NewSet(root)

	crew, err := s.repo.ListCrew(ctx, repository.HierarchyFilter{AssignedCenter: root})
	if err != nil {
		return nil, err
	}
	for _, member := range crew {
		scope.Add(member.CrewID)
	}

	return scope, nil
}

func (s *ecosystemService) resolveCrew(ctx context.Context, root string) (identity.Set, error) {
	scope := identity.NewSet(root)

	member, err := s.repo.FindCrew(ctx, root)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return scope, nil
	}
	if err != nil {
		return nil, err
	}
	scope.AddPtr(member.AssignedCenter)

	return scope, nil
}

func (s *ecosystemService) resolveWarehouse(ctx context.Context, root string) (identity.Set, error) {
	scope := identity.NewSet(root)

	orders, err := s.repo.ListWarehouseOrderIDs(ctx, root)
	if err != nil {
		return nil, err
	}
	scope.Add(orders...)

	products, err := s.repo.ListWarehouseProductIDs(ctx, root)
	if err != nil {
		return nil, err
	}
	scope.Add(products...)

	return scope, nil
}

func (s *ecosystemService) cacheKey(ctx context.Context, role identity.Role, root string) string {
	if s.cache == nil {
		return ""
	}
	generation, ok := s.generations.Hierarchy(ctx)
	if !ok {
		return ""
	}
	return fmt.Sprintf("ecosystem:v1:%s:%s:%s", generation, role, root)
}
