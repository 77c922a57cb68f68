package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/models"
	"github.com/noah-isme/cks-portal-api/internal/repository"
)

var (
	// ErrEntityNotFound indicates a missing entity row.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrInvalidRole indicates a role without an entity table.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidAssignment indicates an unsupported or malformed assignment.
	ErrInvalidAssignment = errors.New("invalid assignment")
	// ErrNotArchived indicates a hard delete of an entity that is still active.
	ErrNotArchived = errors.New("entity must be archived before hard deletion")
	// ErrActiveChildren indicates a hard delete blocked by unarchived children.
	ErrActiveChildren = errors.New("entity has active children")
)

// DirectoryService provisions, links and retires hierarchy entities. Every change is recorded as
// activity and retires cached ecosystems.
type DirectoryService interface {
	Create(ctx context.Context, actor ActivityActor, role identity.Role, payload dto.DirectoryCreateRequest) (dto.DirectoryEntityResponse, error)
	Assign(ctx context.Context, actor ActivityActor, payload dto.AssignmentRequest) (dto.AssignmentResponse, error)
	Archive(ctx context.Context, actor ActivityActor, role identity.Role, id string) (dto.DirectoryEntityResponse, error)
	Restore(ctx context.Context, actor ActivityActor, role identity.Role, id string) (dto.DirectoryEntityResponse, error)
	HardDelete(ctx context.Context, actor ActivityActor, role identity.Role, id string) (dto.DirectoryEntityResponse, error)
}

// childLink names the direct children of a role and the columns cleared when the parent is archived.
type childLink struct {
	childRole    identity.Role
	parentColumn string
	clear        []string
}

var childLinks = map[identity.Role]childLink{
	identity.RoleManager:    {childRole: identity.RoleContractor, parentColumn: "cks_manager", clear: []string{"cks_manager"}},
	identity.RoleContractor: {childRole: identity.RoleCustomer, parentColumn: "contractor_id", clear: []string{"contractor_id"}},
	identity.RoleCustomer:   {childRole: identity.RoleCenter, parentColumn: "customer_id", clear: []string{"customer_id", "contractor_id"}},
	identity.RoleCenter:     {childRole: identity.RoleCrew, parentColumn: "assigned_center", clear: []string{"assigned_center"}},
}

// assignmentRule describes how a child row is re-parented.
type assignmentRule struct {
	childType    string
	childTable   repository.TableRef
	childRole    identity.Role
	parentRole   identity.Role
	parentColumn string
	metadataKey  string
	// inherit copies parent columns onto the child: child column -> parent column.
	inherit map[string]string
	// managerColumn names the parent column holding the manager; empty when the parent is the manager.
	managerColumn string
}

var assignmentRules = map[string]assignmentRule{
	"contractor_to_manager": {
		childType:    "contractor",
		childRole:    identity.RoleContractor,
		parentRole:   identity.RoleManager,
		parentColumn: "cks_manager",
		metadataKey:  "managerId",
	},
	"customer_to_contractor": {
		childType:     "customer",
		childRole:     identity.RoleCustomer,
		parentRole:    identity.RoleContractor,
		parentColumn:  "contractor_id",
		metadataKey:   "contractorId",
		inherit:       map[string]string{"cks_manager": "cks_manager"},
		managerColumn: "cks_manager",
	},
	"center_to_customer": {
		childType:     "center",
		childRole:     identity.RoleCenter,
		parentRole:    identity.RoleCustomer,
		parentColumn:  "customer_id",
		metadataKey:   "customerId",
		inherit:       map[string]string{"cks_manager": "cks_manager", "contractor_id": "contractor_id"},
		managerColumn: "cks_manager",
	},
	"crew_to_center": {
		childType:     "crew",
		childRole:     identity.RoleCrew,
		parentRole:    identity.RoleCenter,
		parentColumn:  "assigned_center",
		metadataKey:   "centerId",
		inherit:       map[string]string{"cks_manager": "cks_manager"},
		managerColumn: "cks_manager",
	},
	"order_to_warehouse": {
		childType:     "order",
		childTable:    repository.OrdersTable,
		parentRole:    identity.RoleWarehouse,
		parentColumn:  "warehouse_id",
		metadataKey:   "warehouseId",
		managerColumn: "manager_id",
	},
}

type directoryService struct {
	repo        repository.DirectoryRepository
	recorder    ActivityRecorder
	invalidator CacheInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDirectoryService constructs the directory service. invalidator may be nil.
func NewDirectoryService(repo repository.DirectoryRepository, recorder ActivityRecorder, invalidator CacheInvalidator, validator *validator.Validate, logger zerolog.Logger) DirectoryService {
	return &directoryService{
		repo:        repo,
		recorder:    recorder,
		invalidator: invalidator,
		validator:   validator,
		logger:      logger.With().Str("component", "directory_service").Logger(),
		now:         time.Now,
	}
}

func (s *directoryService) Create(ctx context.Context, actor ActivityActor, role identity.Role, payload dto.DirectoryCreateRequest) (dto.DirectoryEntityResponse, error) {
	table, err := repository.TableFor(role)
	if err != nil {
		return dto.DirectoryEntityResponse{}, ErrInvalidRole
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	id, err := s.nextID(ctx, role, table)
	if err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	entity, manager := buildEntity(role, id, payload)
	if err := s.repo.Create(ctx, entity); err != nil {
		s.logger.Error().Err(err).Str("role", string(role)).Str("id", id).Msg("failed to create entity")
		return dto.DirectoryEntityResponse{}, err
	}

	metadata := map[string]interface{}{"name": strings.TrimSpace(payload.Name)}
	if manager != nil {
		metadata["cksManager"] = *manager
	}
	if _, err := s.recorder.Record(ctx, ActivityEntry{
		ActivityType: string(role) + "_created",
		Description:  fmt.Sprintf("Created %s %s", role, id),
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		TargetID:     id,
		TargetType:   string(role),
		Metadata:     metadata,
	}); err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	s.invalidateHierarchy(ctx)

	return dto.DirectoryEntityResponse{
		ID:         id,
		Role:       string(role),
		Name:       strings.TrimSpace(payload.Name),
		Status:     "active",
		CksManager: manager,
	}, nil
}

func (s *directoryService) Assign(ctx context.Context, actor ActivityActor, payload dto.AssignmentRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	rule, ok := assignmentRules[payload.Kind]
	if !ok {
		return dto.AssignmentResponse{}, ErrInvalidAssignment
	}

	childID := identity.Normalize(payload.ChildID)
	parentID := identity.Normalize(payload.ParentID)
	if !identity.Valid(rule.parentRole, parentID) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %s is not a %s id", ErrInvalidAssignment, parentID, rule.parentRole)
	}
	if rule.childRole != "" && !identity.Valid(rule.childRole, childID) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %s is not a %s id", ErrInvalidAssignment, childID, rule.childRole)
	}

	childTable := rule.childTable
	if rule.childRole != "" {
		childTable, _ = repository.TableFor(rule.childRole)
	}
	parentTable, _ := repository.TableFor(rule.parentRole)

	exists, err := s.repo.Exists(ctx, parentTable, parentID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if !exists {
		return dto.AssignmentResponse{}, ErrEntityNotFound
	}

	updates := map[string]interface{}{rule.parentColumn: parentID}
	applied := map[string]string{rule.parentColumn: parentID}
	for childColumn, parentColumn := range rule.inherit {
		value, err := s.repo.Column(ctx, parentTable, parentID, parentColumn)
		if err != nil {
			return dto.AssignmentResponse{}, s.mapNotFound(err)
		}
		if normalized := identity.NormalizePtr(value); normalized != "" {
			updates[childColumn] = normalized
			applied[childColumn] = normalized
		} else {
			updates[childColumn] = nil
			applied[childColumn] = ""
		}
	}

	manager, err := s.parentManager(ctx, rule, parentTable, parentID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	updates["updated_at"] = s.now().UTC()
	if err := s.repo.Update(ctx, childTable, childID, updates); err != nil {
		return dto.AssignmentResponse{}, s.mapNotFound(err)
	}

	metadata := map[string]interface{}{rule.metadataKey: parentID}
	if manager != nil {
		metadata["cksManager"] = *manager
	}
	activity, err := s.recorder.Record(ctx, ActivityEntry{
		ActivityType: fmt.Sprintf("%s_assigned_to_%s", rule.childType, rule.parentRole),
		Description:  fmt.Sprintf("Assigned %s %s to %s %s", rule.childType, childID, rule.parentRole, parentID),
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		TargetID:     childID,
		TargetType:   rule.childType,
		Metadata:     metadata,
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.invalidateHierarchy(ctx)
	s.logger.Info().
		Str("kind", payload.Kind).
		Str("child_id", childID).
		Str("parent_id", parentID).
		Msg("assignment applied")

	return dto.AssignmentResponse{
		Kind:       payload.Kind,
		ChildID:    childID,
		ParentID:   parentID,
		CksManager: manager,
		Updated:    applied,
		ActivityID: activity.ID,
	}, nil
}

func (s *directoryService) Archive(ctx context.Context, actor ActivityActor, role identity.Role, id string) (dto.DirectoryEntityResponse, error) {
	table, code, err := entityTarget(role, id)
	if err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	archivedAt := s.now().UTC()
	err = s.repo.Update(ctx, table, code, map[string]interface{}{
		"status":      "archived",
		"archived_at": archivedAt,
		"updated_at":  archivedAt,
	})
	if err != nil {
		return dto.DirectoryEntityResponse{}, s.mapNotFound(err)
	}

	unassigned, err := s.detachChildren(ctx, role, code, archivedAt)
	if err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	if _, err := s.recorder.Record(ctx, ActivityEntry{
		ActivityType: string(role) + "_archived",
		Description:  fmt.Sprintf("Archived %s %s", role, code),
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		TargetID:     code,
		TargetType:   string(role),
		Metadata:     map[string]interface{}{"unassignedChildren": unassigned},
	}); err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	s.invalidateHierarchy(ctx)
	s.logger.Info().
		Str("role", string(role)).
		Str("id", code).
		Int64("unassigned_children", unassigned).
		Msg("entity archived")

	return dto.DirectoryEntityResponse{
		ID:                 code,
		Role:               string(role),
		Status:             "archived",
		ArchivedAt:         &archivedAt,
		UnassignedChildren: unassigned,
	}, nil
}

// Restore reactivates an archived entity. Children detached on archive stay unassigned.
func (s *directoryService) Restore(ctx context.Context, actor ActivityActor, role identity.Role, id string) (dto.DirectoryEntityResponse, error) {
	table, code, err := entityTarget(role, id)
	if err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	err = s.repo.Update(ctx, table, code, map[string]interface{}{
		"status":      "active",
		"archived_at": nil,
		"updated_at":  s.now().UTC(),
	})
	if err != nil {
		return dto.DirectoryEntityResponse{}, s.mapNotFound(err)
	}

	if _, err := s.recorder.Record(ctx, ActivityEntry{
		ActivityType: string(role) + "_restored",
		Description:  fmt.Sprintf("Restored %s %s from archive", role, code),
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		TargetID:     code,
		TargetType:   string(role),
	}); err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	s.invalidateHierarchy(ctx)

	return dto.DirectoryEntityResponse{
		ID:     code,
		Role:   string(role),
		Status: "active",
	}, nil
}

// HardDelete removes an archived entity that no unarchived child still references.
func (s *directoryService) HardDelete(ctx context.Context, actor ActivityActor, role identity.Role, id string) (dto.DirectoryEntityResponse, error) {
	table, code, err := entityTarget(role, id)
	if err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	snapshot, err := s.repo.Row(ctx, table, code)
	if err != nil {
		return dto.DirectoryEntityResponse{}, s.mapNotFound(err)
	}
	if snapshot["archived_at"] == nil {
		return dto.DirectoryEntityResponse{}, ErrNotArchived
	}

	if link, ok := childLinks[role]; ok {
		childTable, _ := repository.TableFor(link.childRole)
		active, err := s.repo.CountActiveChildren(ctx, childTable, link.parentColumn, code)
		if err != nil {
			return dto.DirectoryEntityResponse{}, err
		}
		if active > 0 {
			return dto.DirectoryEntityResponse{}, fmt.Errorf("%w: %d %s still reference %s", ErrActiveChildren, active, link.childRole, code)
		}
	}

	if err := s.repo.Delete(ctx, table, code); err != nil {
		return dto.DirectoryEntityResponse{}, s.mapNotFound(err)
	}

	if _, err := s.recorder.Record(ctx, ActivityEntry{
		ActivityType: string(role) + "_hard_deleted",
		Description:  fmt.Sprintf("Permanently deleted %s %s", role, code),
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		TargetID:     code,
		TargetType:   string(role),
		Metadata:     map[string]interface{}{"snapshot": snapshot},
	}); err != nil {
		return dto.DirectoryEntityResponse{}, err
	}

	s.invalidateHierarchy(ctx)
	s.logger.Warn().Str("role", string(role)).Str("id", code).Msg("entity hard deleted")

	return dto.DirectoryEntityResponse{
		ID:     code,
		Role:   string(role),
		Status: "deleted",
	}, nil
}

func (s *directoryService) detachChildren(ctx context.Context, role identity.Role, code string, at time.Time) (int64, error) {
	link, ok := childLinks[role]
	if !ok {
		return 0, nil
	}
	childTable, _ := repository.TableFor(link.childRole)
	updates := map[string]interface{}{"updated_at": at}
	for _, column := range link.clear {
		updates[column] = nil
	}
	return s.repo.DetachChildren(ctx, childTable, link.parentColumn, code, updates)
}

func entityTarget(role identity.Role, id string) (repository.TableRef, string, error) {
	table, err := repository.TableFor(role)
	if err != nil {
		return repository.TableRef{}, "", ErrInvalidRole
	}
	code := identity.Normalize(id)
	if code == "" {
		return repository.TableRef{}, "", ErrEntityNotFound
	}
	return table, code, nil
}

// nextID allocates PREFIX-NNN one past the highest existing sequence.
func (s *directoryService) nextID(ctx context.Context, role identity.Role, table repository.TableRef) (string, error) {
	ids, err := s.repo.ListIDs(ctx, table)
	if err != nil {
		return "", err
	}

	highest := 0
	for _, id := range ids {
		if sequence, ok := identity.Sequence(id); ok && sequence > highest {
			highest = sequence
		}
	}
	return identity.Format(role, highest+1)
}

func (s *directoryService) parentManager(ctx context.Context, rule assignmentRule, parentTable repository.TableRef, parentID string) (*string, error) {
	if rule.managerColumn == "" {
		return &parentID, nil
	}
	value, err := s.repo.Column(ctx, parentTable, parentID, rule.managerColumn)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if normalized := identity.NormalizePtr(value); normalized != "" {
		return &normalized, nil
	}
	return nil, nil
}

func (s *directoryService) mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEntityNotFound
	}
	return err
}

func (s *directoryService) invalidateHierarchy(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.InvalidateHierarchy(ctx)
	}
}

// buildEntity maps the payload onto the model for role and reports the governing manager.
func buildEntity(role identity.Role, id string, payload dto.DirectoryCreateRequest) (interface{}, *string) {
	name := strings.TrimSpace(payload.Name)
	email := strings.TrimSpace(payload.Email)
	phone := strings.TrimSpace(payload.Phone)
	contact := strings.TrimSpace(payload.MainContact)
	manager := optionalCode(payload.CksManager)

	switch role {
	case identity.RoleManager:
		return &models.Manager{ManagerID: id, Name: name, Email: email, Phone: phone, Status: "active"}, &id
	case identity.RoleContractor:
		return &models.Contractor{
			ContractorID:  id,
			CksManager:    manager,
			Name:          name,
			ContactPerson: contact,
			Email:         email,
			Phone:         phone,
			Status:        "active",
		}, manager
	case identity.RoleCustomer:
		return &models.Customer{
			CustomerID:   id,
			ContractorID: optionalCode(payload.ContractorID),
			CksManager:   manager,
			Name:         name,
			MainContact:  contact,
			Email:        email,
			Phone:        phone,
			Status:       "active",
		}, manager
	case identity.RoleCenter:
		return &models.Center{
			CenterID:     id,
			ContractorID: optionalCode(payload.ContractorID),
			CustomerID:   optionalCode(payload.CustomerID),
			CksManager:   manager,
			Name:         name,
			MainContact:  contact,
			Email:        email,
			Phone:        phone,
			Status:       "active",
		}, manager
	case identity.RoleCrew:
		return &models.Crew{
			CrewID:         id,
			AssignedCenter: optionalCode(payload.AssignedCenter),
			CksManager:     manager,
			Name:           name,
			Email:          email,
			Phone:          phone,
			Status:         "active",
		}, manager
	default:
		return &models.Warehouse{
			WarehouseID: id,
			ManagerID:   manager,
			Name:        name,
			MainContact: contact,
			Email:       email,
			Phone:       phone,
			Status:      "active",
		}, manager
	}
}
