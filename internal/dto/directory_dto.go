package dto

import "time"

// DirectoryCreateRequest captures a new entity for any hub role. Parent references that do not
// apply to the role are ignored.
type DirectoryCreateRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=255"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone" validate:"omitempty,max=64"`
	MainContact    string `json:"main_contact" validate:"omitempty,max=255"`
	CksManager     string `json:"cks_manager" validate:"omitempty,max=32"`
	ContractorID   string `json:"contractor_id" validate:"omitempty,max=32"`
	CustomerID     string `json:"customer_id" validate:"omitempty,max=32"`
	AssignedCenter string `json:"assigned_center" validate:"omitempty,max=32"`
}

// DirectoryEntityResponse describes a created or archived entity.
type DirectoryEntityResponse struct {
	ID                 string     `json:"id"`
	Role               string     `json:"role"`
	Name               string     `json:"name,omitempty"`
	Status             string     `json:"status"`
	CksManager         *string    `json:"cks_manager,omitempty"`
	ArchivedAt         *time.Time `json:"archived_at,omitempty"`
	UnassignedChildren int64      `json:"unassigned_children,omitempty"`
}

// AssignmentRequest links a child entity to a new parent.
type AssignmentRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=contractor_to_manager customer_to_contractor center_to_customer crew_to_center order_to_warehouse"`
	ChildID  string `json:"child_id" validate:"required,max=64"`
	ParentID string `json:"parent_id" validate:"required,max=32"`
}

// AssignmentResponse reports the applied parent references.
type AssignmentResponse struct {
	Kind       string            `json:"kind"`
	ChildID    string            `json:"child_id"`
	ParentID   string            `json:"parent_id"`
	CksManager *string           `json:"cks_manager,omitempty"`
	Updated    map[string]string `json:"updated"`
	ActivityID uint              `json:"activity_id"`
}
