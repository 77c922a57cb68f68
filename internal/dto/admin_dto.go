package dto

import (
	"math"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/cks-portal-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta derives the page count from the total.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	} else {
		meta.TotalPages = 1
	}
	return meta
}

// AdminActivityListRequest defines filters for the unfiltered audit log.
type AdminActivityListRequest struct {
	Page         int
	PageSize     int
	ActorID      string
	ActivityType string
	TargetType   string
}

// AdminActivityCreateRequest captures manual activity creation payloads.
type AdminActivityCreateRequest struct {
	ActivityType string                 `json:"activity_type" validate:"required,min=3,max=96"`
	Description  string                 `json:"description" validate:"omitempty,max=2000"`
	TargetID     string                 `json:"target_id" validate:"omitempty,max=64"`
	TargetType   string                 `json:"target_type" validate:"omitempty,max=32"`
	Metadata     map[string]interface{} `json:"metadata" validate:"omitempty"`
}

// ActivityResponse serializes a system activity row.
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	ActivityType string                 `json:"activity_type"`
	ActivityKind string                 `json:"activity_kind"`
	Description  string                 `json:"description"`
	ActorID      *string                `json:"actor_id"`
	ActorRole    *string                `json:"actor_role"`
	TargetID     *string                `json:"target_id"`
	TargetType   *string                `json:"target_type"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// AdminActivityListResponse wraps a paginated audit log.
type AdminActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// EntityHistoryResponse is the lifecycle timeline of one entity, oldest first.
type EntityHistoryResponse struct {
	EntityType string             `json:"entity_type"`
	EntityID   string             `json:"entity_id"`
	Items      []ActivityResponse `json:"items"`
}

// DeletedSnapshotResponse returns the state captured when an entity was hard deleted.
type DeletedSnapshotResponse struct {
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	DeletedAt  time.Time              `json:"deleted_at"`
	DeletedBy  *string                `json:"deleted_by"`
	Snapshot   map[string]interface{} `json:"snapshot"`
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.SystemActivity) ActivityResponse {
	return ActivityResponse{
		ID:           entry.ID,
		ActivityType: entry.ActivityType,
		ActivityKind: string(entry.Kind()),
		Description:  entry.Description,
		ActorID:      entry.ActorID,
		ActorRole:    entry.ActorRole,
		TargetID:     entry.TargetID,
		TargetType:   entry.TargetType,
		Metadata:     metadataFromJSON(entry.Metadata),
		CreatedAt:    entry.CreatedAt,
	}
}

// NewActivityResponseSlice converts a batch of models.
func NewActivityResponseSlice(entries []models.SystemActivity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewActivityResponse(entry))
	}
	return responses
}
