package service

import (
	"sort"

	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/models"
)

// ActivityActor identifies who is asking for, or performing, an activity.
type ActivityActor struct {
	ID   string
	Role string
}

// Code returns the normalized CKS code of the actor.
func (a ActivityActor) Code() string {
	return identity.Normalize(a.ID)
}

// HubRole parses the actor role, falling back to the identifier prefix.
func (a ActivityActor) HubRole() identity.Role {
	if role, ok := identity.ParseRole(a.Role); ok {
		return role
	}
	if role, ok := identity.RoleFromID(a.ID); ok {
		return role
	}
	return ""
}

// IsVisible reports whether record belongs in the actor's feed given the actor's resolved scope.
//
// Archival, deletion and restoration events never are. Otherwise a record is visible when it
// created or assigned the actor, when a correlation metadata key names the actor, or when it is
// not an assignment and concerns a scoped target or was performed by the actor.
func IsVisible(actor ActivityActor, scope identity.Set, record models.SystemActivity) bool {
	self := actor.Code()
	if self == "" {
		return false
	}

	kind := record.Kind()
	if kind.IsNoise() {
		return false
	}

	target := identity.NormalizePtr(record.TargetID)
	if (kind == models.ActivityKindCreated || kind == models.ActivityKindAssigned) && target == self {
		return true
	}

	if metadataNames(record, identity.CorrelationKeys(actor.HubRole()), self) {
		return true
	}

	if kind == models.ActivityKindAssigned {
		return false
	}
	return target == self || scope.Has(target) || identity.NormalizePtr(record.ActorID) == self
}

func metadataNames(record models.SystemActivity, keys []string, self string) bool {
	if record.Metadata == nil {
		return false
	}
	for _, key := range keys {
		if value, ok := record.Metadata[key].(string); ok && identity.Normalize(value) == self {
			return true
		}
	}
	return false
}

// VisibleActivities filters records for the actor and orders them newest first. A positive limit
// truncates the result.
func VisibleActivities(actor ActivityActor, scope identity.Set, records []models.SystemActivity, limit int) []models.SystemActivity {
	visible := make([]models.SystemActivity, 0, len(records))
	for _, record := range records {
		if IsVisible(actor, scope, record) {
			visible = append(visible, record)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if !visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].CreatedAt.After(visible[j].CreatedAt)
		}
		return visible[i].ID > visible[j].ID
	})

	if limit > 0 && len(visible) > limit {
		visible = visible[:limit]
	}
	return visible
}
