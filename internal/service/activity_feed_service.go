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
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/observability"
	"github.com/noah-isme/cks-portal-api/internal/repository"
)

const (
	defaultFeedPageSize = 50
	maxFeedPageSize     = 100
)

var (
	// ErrActorRequired indicates a feed request without a resolvable actor.
	ErrActorRequired = errors.New("actor identifier is required")
	// ErrActivityNotFound indicates the activity does not exist.
	ErrActivityNotFound = errors.New("activity not found")
)

// ActivityFeedService serves the hub feed of a single actor.
type ActivityFeedService interface {
	ListForActor(ctx context.Context, actor ActivityActor, req dto.ActivityFeedRequest) (dto.ActivityFeedResponse, error)
	Dismiss(ctx context.Context, actor ActivityActor, activityID uint) error
	Clear(ctx context.Context, actor ActivityActor) (dto.ActivityClearResponse, error)
}

type activityFeedService struct {
	repo        repository.ActivityLogRepository
	ecosystem   EcosystemService
	cache       *redis.Client
	generations *CacheGenerations
	ttl         time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewActivityFeedService builds the activity feed service. cache and generations may be nil.
func NewActivityFeedService(repo repository.ActivityLogRepository, ecosystem EcosystemService, cache *redis.Client, generations *CacheGenerations, ttl time.Duration, logger zerolog.Logger) ActivityFeedService {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &activityFeedService{
		repo:        repo,
		ecosystem:   ecosystem,
		cache:       cache,
		generations: generations,
		ttl:         ttl,
		logger:      logger.With().Str("component", "activity_feed_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/cks-portal-api/internal/service/activity_feed"),
		now:         time.Now,
	}
}

func (s *activityFeedService) ListForActor(ctx context.Context, actor ActivityActor, req dto.ActivityFeedRequest) (dto.ActivityFeedResponse, error) {
	start := time.Now()
	defer func() {
		observability.FeedLatency().Observe(time.Since(start).Seconds())
	}()

	self := actor.Code()
	if self == "" {
		return dto.ActivityFeedResponse{}, ErrActorRequired
	}

	page := maxInt(req.Page, 1)
	pageSize := clampFeedPageSize(req.PageSize)

	ctx, span := s.tracer.Start(ctx, "activity_feed.list", trace.WithAttributes(
		attribute.String("feed.actor", self),
		attribute.String("feed.role", string(actor.HubRole())),
		attribute.Int("feed.page", page),
	))
	defer span.End()

	cacheKey := s.cacheKey(ctx, actor.HubRole(), self, page, pageSize)
	if cacheKey != "" {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil && cached != "" {
			var response dto.ActivityFeedResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("feed.cache_hit", true))
				observability.FeedRequests().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read activity feed cache")
		}
	}

	ecosystem, err := s.ecosystem.Resolve(ctx, actor.HubRole(), self)
	if err != nil {
		span.RecordError(err)
		observability.FeedRequests().WithLabelValues("error").Inc()
		return dto.ActivityFeedResponse{}, err
	}

	entries, total, err := s.repo.ListVisible(ctx, s.visibilityFilter(actor, ecosystem, page, pageSize))
	if err != nil {
		span.RecordError(err)
		observability.FeedRequests().WithLabelValues("error").Inc()
		return dto.ActivityFeedResponse{}, err
	}

	visible := VisibleActivities(actor, ecosystem.Members, entries, pageSize)
	if len(visible) != len(entries) {
		s.logger.Warn().
			Str("actor_id", self).
			Int("queried", len(entries)).
			Int("visible", len(visible)).
			Msg("visibility query returned records rejected by the filter")
	}

	response := dto.ActivityFeedResponse{
		Items:      dto.NewActivityResponseSlice(visible),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
		ScopeSize:  len(ecosystem.Members),
		CacheHit:   false,
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write activity feed cache")
			}
		}
	}

	observability.FeedRequests().WithLabelValues("miss").Inc()

	return response, nil
}

func (s *activityFeedService) Dismiss(ctx context.Context, actor ActivityActor, activityID uint) error {
	self := actor.Code()
	if self == "" {
		return ErrActorRequired
	}

	err := s.repo.Dismiss(ctx, activityID, self, s.now().UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrActivityNotFound
	}
	if err != nil {
		return err
	}

	s.generations.InvalidateFeeds(ctx)
	return nil
}

// Clear hides every activity currently visible to the actor. Activity rows are left intact.
func (s *activityFeedService) Clear(ctx context.Context, actor ActivityActor) (dto.ActivityClearResponse, error) {
	self := actor.Code()
	if self == "" {
		return dto.ActivityClearResponse{}, ErrActorRequired
	}

	ecosystem, err := s.ecosystem.Resolve(ctx, actor.HubRole(), self)
	if err != nil {
		return dto.ActivityClearResponse{}, err
	}

	dismissed, err := s.repo.DismissVisible(ctx, s.visibilityFilter(actor, ecosystem, 0, 0), s.now().UTC())
	if err != nil {
		return dto.ActivityClearResponse{}, err
	}

	s.generations.InvalidateFeeds(ctx)
	s.logger.Info().Str("actor_id", self).Int64("dismissed", dismissed).Msg("activity feed cleared")

	return dto.ActivityClearResponse{Dismissed: dismissed}, nil
}

func (s *activityFeedService) visibilityFilter(actor ActivityActor, ecosystem Ecosystem, page, pageSize int) repository.VisibilityFilter {
	return repository.VisibilityFilter{
		ActorID:      actor.Code(),
		Scope:        ecosystem.Members.Slice(),
		MetadataKeys: identity.CorrelationKeys(actor.HubRole()),
		Page:         page,
		PageSize:     pageSize,
	}
}

func (s *activityFeedService) cacheKey(ctx context.Context, role identity.Role, actorID string, page, pageSize int) string {
	if s.cache == nil {
		return ""
	}
	generation, ok := s.generations.Feeds(ctx)
	if !ok {
		return ""
	}
	return fmt.Sprintf("activities:feed:v2:%s:%s:%s:%d:%d", generation, role, actorID, page, pageSize)
}

func clampFeedPageSize(size int) int {
	if size <= 0 {
		return defaultFeedPageSize
	}
	if size > maxFeedPageSize {
		return maxFeedPageSize
	}
	return size
}
