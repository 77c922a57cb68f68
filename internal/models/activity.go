package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityKind is the decoded category of an activity_type tag.
type ActivityKind string

const (
	ActivityKindCreated     ActivityKind = "created"
	ActivityKindAssigned    ActivityKind = "assigned"
	ActivityKindArchived    ActivityKind = "archived"
	ActivityKindDeleted     ActivityKind = "deleted"
	ActivityKindHardDeleted ActivityKind = "hard_deleted"
	ActivityKindRestored    ActivityKind = "restored"
	ActivityKindOperational ActivityKind = "operational"
)

// NoiseKinds are housekeeping kinds hidden from hub feeds.
var NoiseKinds = []ActivityKind{
	ActivityKindArchived,
	ActivityKindDeleted,
	ActivityKindHardDeleted,
	ActivityKindRestored,
}

// IsNoise reports whether the kind is an archival, deletion or restoration event.
func (k ActivityKind) IsNoise() bool {
	switch k {
	case ActivityKindArchived, ActivityKindDeleted, ActivityKindHardDeleted, ActivityKindRestored:
		return true
	default:
		return false
	}
}

// kindSuffixes is evaluated in order; the first matching suffix wins.
var kindSuffixes = []struct {
	suffix string
	kind   ActivityKind
}{
	{"_hard_deleted", ActivityKindHardDeleted},
	{"_deleted", ActivityKindDeleted},
	{"_archived", ActivityKindArchived},
	{"_restored", ActivityKindRestored},
	{"_created", ActivityKindCreated},
}

// ClassifyActivityType decodes the suffix convention of an activity_type tag.
func ClassifyActivityType(activityType string) ActivityKind {
	t := strings.ToLower(strings.TrimSpace(activityType))
	for _, rule := range kindSuffixes {
		if strings.HasSuffix(t, rule.suffix) {
			return rule.kind
		}
	}
	if t == "assignment_made" || strings.Contains(t, "_assigned") {
		return ActivityKindAssigned
	}
	return ActivityKindOperational
}

// ActivityKindSQL is a portable CASE expression yielding the kind of a system_activity row. A
// stored activity_kind wins; blank kinds are decoded from activity_type like ClassifyActivityType.
var ActivityKindSQL = buildActivityKindSQL()

func buildActivityKindSQL() string {
	const tag = "LOWER(TRIM(activity_type))"
	var b strings.Builder
	b.WriteString("(CASE WHEN COALESCE(activity_kind, '') <> '' THEN activity_kind")
	for _, rule := range kindSuffixes {
		fmt.Fprintf(&b, " WHEN %s LIKE '%%%s' ESCAPE '\\' THEN '%s'", tag, likeEscape(rule.suffix), rule.kind)
	}
	fmt.Fprintf(&b, " WHEN %s = 'assignment_made' OR %s LIKE '%%%s%%' ESCAPE '\\' THEN '%s'", tag, tag, likeEscape("_assigned"), ActivityKindAssigned)
	fmt.Fprintf(&b, " ELSE '%s' END)", ActivityKindOperational)
	return b.String()
}

func likeEscape(value string) string {
	return strings.ReplaceAll(value, "_", "\\_")
}

// SystemActivity is an immutable audit row describing one domain action.
type SystemActivity struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActivityType string            `gorm:"size:96;not null;index" json:"activity_type"`
	ActivityKind ActivityKind      `gorm:"size:24;not null;index" json:"activity_kind"`
	Description  string            `gorm:"type:text" json:"description"`
	ActorID      *string           `gorm:"size:64;index" json:"actor_id"`
	ActorRole    *string           `gorm:"size:32" json:"actor_role"`
	TargetID     *string           `gorm:"size:64;index" json:"target_id"`
	TargetType   *string           `gorm:"size:32" json:"target_type"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}

// TableName keeps the table name used by the hub applications.
func (SystemActivity) TableName() string {
	return "system_activity"
}

// BeforeCreate stamps the decoded kind so queries never pattern-match on activity_type.
func (a *SystemActivity) BeforeCreate(_ *gorm.DB) error {
	a.ActivityType = strings.ToLower(strings.TrimSpace(a.ActivityType))
	a.ActivityKind = ClassifyActivityType(a.ActivityType)
	return nil
}

// Kind returns the stored kind, classifying on the fly for rows written elsewhere.
func (a SystemActivity) Kind() ActivityKind {
	if a.ActivityKind != "" {
		return a.ActivityKind
	}
	return ClassifyActivityType(a.ActivityType)
}

// ActivityDismissal hides a single activity from one user's feed.
type ActivityDismissal struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ActivityID  uint      `gorm:"not null;uniqueIndex:idx_activity_dismissal" json:"activity_id"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:idx_activity_dismissal" json:"user_id"`
	DismissedAt time.Time `json:"dismissed_at"`
}

// TableName keeps the table name used by the hub applications.
func (ActivityDismissal) TableName() string {
	return "activity_dismissals"
}
