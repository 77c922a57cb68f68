package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/events"
	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/models"
	"github.com/noah-isme/cks-portal-api/internal/observability"
	"github.com/noah-isme/cks-portal-api/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

var (
	// ErrActivityTypeRequired indicates an activity without a type tag.
	ErrActivityTypeRequired = errors.New("activity type is required")
	// ErrInvalidEntityType indicates an unknown entity type in a history or snapshot lookup.
	ErrInvalidEntityType = errors.New("invalid entity type")
	// ErrSnapshotNotFound indicates no hard-delete snapshot exists for the entity.
	ErrSnapshotNotFound = errors.New("deleted snapshot not found")
)

// ActivityEntry captures the details required to persist an activity record.
type ActivityEntry struct {
	ActivityType string
	Description  string
	ActorID      string
	ActorRole    string
	TargetID     string
	TargetType   string
	Metadata     map[string]interface{}
}

// ActivityRecorder defines behaviour for recording activity.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService exposes the admin audit log and the activity producer.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.AdminActivityCreateRequest) (dto.ActivityResponse, error)
	History(ctx context.Context, entityType, entityID string, limit int) (dto.EntityHistoryResponse, error)
	Snapshot(ctx context.Context, entityType, entityID string) (dto.DeletedSnapshotResponse, error)
}

type activityService struct {
	repo        repository.ActivityLogRepository
	validator   *validator.Validate
	publisher   events.Publisher
	invalidator CacheInvalidator
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewActivityService constructs the activity service. publisher and invalidator may be nil.
func NewActivityService(repo repository.ActivityLogRepository, validator *validator.Validate, publisher events.Publisher, invalidator CacheInvalidator, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:        repo,
		validator:   validator,
		publisher:   publisher,
		invalidator: invalidator,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Create(ctx context.Context, actor ActivityActor, payload dto.AdminActivityCreateRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	entry := ActivityEntry{
		ActivityType: payload.ActivityType,
		Description:  payload.Description,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		TargetID:     payload.TargetID,
		TargetType:   payload.TargetType,
		Metadata:     payload.Metadata,
	}

	return s.Record(ctx, entry)
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	activityType := strings.ToLower(strings.TrimSpace(entry.ActivityType))
	if activityType == "" {
		return dto.ActivityResponse{}, ErrActivityTypeRequired
	}

	description := strings.TrimSpace(s.sanitizer.Sanitize(entry.Description))
	if description == "" {
		description = strings.ReplaceAll(activityType, "_", " ")
	}

	model := models.SystemActivity{
		ActivityType: activityType,
		Description:  description,
		ActorID:      optionalCode(entry.ActorID),
		ActorRole:    optionalString(normalizeRole(entry.ActorRole)),
		TargetID:     optionalCode(entry.TargetID),
		TargetType:   optionalString(targetType(entry.TargetType, entry.TargetID)),
		Metadata:     sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("activity_type", activityType).Msg("failed to persist activity")
		return dto.ActivityResponse{}, err
	}

	observability.ActivitiesRecorded().WithLabelValues(string(model.Kind())).Inc()
	if s.invalidator != nil {
		s.invalidator.InvalidateFeeds(ctx)
	}

	response := dto.NewActivityResponse(model)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.TypeActivityRecorded, response); err != nil {
			s.logger.Warn().Err(err).Uint("activity_id", model.ID).Msg("failed to publish activity event")
		}
	}

	return response, nil
}

func (s *activityService) List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error) {
	page := maxInt(req.Page, 1)
	pageSize := clampPageSize(req.PageSize)

	entries, total, err := s.repo.List(ctx, repository.ActivityLogFilter{
		Page:         page,
		PageSize:     pageSize,
		ActorID:      strings.TrimSpace(req.ActorID),
		ActivityType: strings.TrimSpace(req.ActivityType),
		TargetType:   strings.TrimSpace(req.TargetType),
	})
	if err != nil {
		return dto.AdminActivityListResponse{}, err
	}

	return dto.AdminActivityListResponse{
		Items:      dto.NewActivityResponseSlice(entries),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *activityService) History(ctx context.Context, entityType, entityID string, limit int) (dto.EntityHistoryResponse, error) {
	kind, ok := entityTypeOf(entityType)
	if !ok {
		return dto.EntityHistoryResponse{}, ErrInvalidEntityType
	}
	id := identity.Normalize(entityID)
	if id == "" {
		return dto.EntityHistoryResponse{}, ErrEntityNotFound
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.repo.ListByTarget(ctx, kind, id, limit)
	if err != nil {
		return dto.EntityHistoryResponse{}, err
	}

	return dto.EntityHistoryResponse{
		EntityType: kind,
		EntityID:   id,
		Items:      dto.NewActivityResponseSlice(entries),
	}, nil
}

func (s *activityService) Snapshot(ctx context.Context, entityType, entityID string) (dto.DeletedSnapshotResponse, error) {
	kind, ok := entityTypeOf(entityType)
	if !ok {
		return dto.DeletedSnapshotResponse{}, ErrInvalidEntityType
	}
	id := identity.Normalize(entityID)

	entry, err := s.repo.LatestByType(ctx, kind+"_hard_deleted", id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.DeletedSnapshotResponse{}, ErrSnapshotNotFound
	}
	if err != nil {
		return dto.DeletedSnapshotResponse{}, err
	}

	snapshot, ok := entry.Metadata["snapshot"].(map[string]interface{})
	if !ok {
		return dto.DeletedSnapshotResponse{}, ErrSnapshotNotFound
	}

	return dto.DeletedSnapshotResponse{
		EntityType: kind,
		EntityID:   id,
		DeletedAt:  entry.CreatedAt,
		DeletedBy:  entry.ActorID,
		Snapshot:   snapshot,
	}, nil
}

// entityTypeOf accepts every catalog role plus orders.
func entityTypeOf(value string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "order" {
		return normalized, true
	}
	if role, ok := identity.ParseRole(normalized); ok && role != identity.RoleAdmin {
		return string(role), true
	}
	return "", false
}

func targetType(explicit, targetID string) string {
	if trimmed := strings.ToLower(strings.TrimSpace(explicit)); trimmed != "" {
		return trimmed
	}
	if role, ok := identity.RoleFromID(targetID); ok {
		return string(role)
	}
	return ""
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}

func optionalCode(value string) *string {
	return optionalString(identity.Normalize(value))
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampPageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}
