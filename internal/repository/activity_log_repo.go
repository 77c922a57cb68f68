package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/models"
)

// ActivityLogFilter narrows the unfiltered audit log used by administrators.
type ActivityLogFilter struct {
	Page         int
	PageSize     int
	ActorID      string
	ActivityType string
	TargetType   string
}

// VisibilityFilter describes the feed of one actor: its identifier, resolved ecosystem and the
// metadata keys that may reference it.
type VisibilityFilter struct {
	ActorID      string
	Scope        []string
	MetadataKeys []string
	Page         int
	PageSize     int
}

// ActivityLogRepository persists and queries system activity.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.SystemActivity) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.SystemActivity, int64, error)
	ListVisible(ctx context.Context, filter VisibilityFilter) ([]models.SystemActivity, int64, error)
	ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]models.SystemActivity, error)
	LatestByType(ctx context.Context, activityType, targetID string) (models.SystemActivity, error)
	Dismiss(ctx context.Context, activityID uint, userID string, at time.Time) error
	DismissVisible(ctx context.Context, filter VisibilityFilter, at time.Time) (int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

var metadataKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func (r *activityLogRepository) Create(ctx context.Context, entry *models.SystemActivity) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.SystemActivity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SystemActivity{})

	if actor := identity.Normalize(filter.ActorID); actor != "" {
		query = query.Where("UPPER(actor_id) = ?", actor)
	}

	if filter.ActivityType != "" {
		query = query.Where("activity_type = ?", strings.ToLower(filter.ActivityType))
	}

	if filter.TargetType != "" {
		query = query.Where("target_type = ?", strings.ToLower(filter.TargetType))
	}

	return r.paginate(query, filter.Page, filter.PageSize)
}

func (r *activityLogRepository) ListVisible(ctx context.Context, filter VisibilityFilter) ([]models.SystemActivity, int64, error) {
	query, err := r.visibleQuery(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if query == nil {
		return []models.SystemActivity{}, 0, nil
	}
	return r.paginate(query, filter.Page, filter.PageSize)
}

func (r *activityLogRepository) ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]models.SystemActivity, error) {
	query := r.db.WithContext(ctx).Model(&models.SystemActivity{}).
		Where("UPPER(target_id) = ?", identity.Normalize(targetID)).
		Where("target_type = ?", strings.ToLower(strings.TrimSpace(targetType))).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.SystemActivity
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *activityLogRepository) LatestByType(ctx context.Context, activityType, targetID string) (models.SystemActivity, error) {
	var entry models.SystemActivity
	err := r.db.WithContext(ctx).Model(&models.SystemActivity{}).
		Where("activity_type = ?", strings.ToLower(strings.TrimSpace(activityType))).
		Where("UPPER(target_id) = ?", identity.Normalize(targetID)).
		Order("created_at DESC, id DESC").
		Take(&entry).Error
	if err != nil {
		return models.SystemActivity{}, err
	}
	return entry, nil
}

func (r *activityLogRepository) Dismiss(ctx context.Context, activityID uint, userID string, at time.Time) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SystemActivity{}).Where("id = ?", activityID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}

	dismissal := models.ActivityDismissal{
		ActivityID:  activityID,
		UserID:      identity.Normalize(userID),
		DismissedAt: at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dismissal).Error
}

// DismissVisible hides every record currently visible to the actor. Already dismissed rows are
// excluded by the visibility query itself, so no conflicts arise.
func (r *activityLogRepository) DismissVisible(ctx context.Context, filter VisibilityFilter, at time.Time) (int64, error) {
	query, err := r.visibleQuery(ctx, filter)
	if err != nil {
		return 0, err
	}
	if query == nil {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Exec(
		"INSERT INTO activity_dismissals (activity_id, user_id, dismissed_at) SELECT id, ?, ? FROM system_activity WHERE id IN (?)",
		identity.Normalize(filter.ActorID), at, query.Select("id"),
	)
	return result.RowsAffected, result.Error
}

// visibleQuery mirrors service.IsVisible in SQL. It returns nil when the actor is blank.
func (r *activityLogRepository) visibleQuery(ctx context.Context, filter VisibilityFilter) (*gorm.DB, error) {
	self := identity.Normalize(filter.ActorID)
	if self == "" {
		return nil, nil
	}

	scope := identity.NewSet(filter.Scope...)
	scope.Add(self)

	kind := models.ActivityKindSQL
	selfTargeted := []string{string(models.ActivityKindCreated), string(models.ActivityKindAssigned)}
	visible := r.db.Where(kind+" IN ? AND UPPER(TRIM(target_id)) = ?", selfTargeted, self)

	for _, key := range filter.MetadataKeys {
		condition, err := r.metadataEquals(key)
		if err != nil {
			return nil, err
		}
		visible = visible.Or(condition, self)
	}

	operational := r.db.Where(kind+" <> ?", string(models.ActivityKindAssigned)).
		Where(r.db.Where("UPPER(TRIM(target_id)) IN ?", scope.Slice()).Or("UPPER(TRIM(actor_id)) = ?", self))
	visible = visible.Or(operational)

	noise := make([]string, 0, len(models.NoiseKinds))
	for _, noiseKind := range models.NoiseKinds {
		noise = append(noise, string(noiseKind))
	}

	return r.db.WithContext(ctx).Model(&models.SystemActivity{}).
		Where(kind+" NOT IN ?", noise).
		Where(visible).
		Where("NOT EXISTS (SELECT 1 FROM activity_dismissals ad WHERE ad.activity_id = system_activity.id AND ad.user_id = ?)", self), nil
}

func (r *activityLogRepository) metadataEquals(key string) (string, error) {
	if !metadataKeyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid metadata key %q", key)
	}

	switch r.db.Dialector.Name() {
	case "postgres":
		return fmt.Sprintf("UPPER(TRIM(metadata->>'%s')) = ?", key), nil
	default:
		return fmt.Sprintf("UPPER(TRIM(json_extract(metadata, '$.%s'))) = ?", key), nil
	}
}

func (r *activityLogRepository) paginate(query *gorm.DB, page, pageSize int) ([]models.SystemActivity, int64, error) {
	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > 0 {
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * pageSize
		query = query.Offset(offset).Limit(pageSize)
	}

	var entries []models.SystemActivity
	if err := query.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
