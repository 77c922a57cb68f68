package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/models"
)

// HierarchyFilter narrows entity lookups by parent reference. Every non-empty field must match;
// a filter with no fields set matches nothing.
type HierarchyFilter struct {
	CksManager     string
	ContractorID   string
	CustomerID     string
	AssignedCenter string
}

func (f HierarchyFilter) empty() bool {
	return identity.Normalize(f.CksManager) == "" &&
		identity.Normalize(f.ContractorID) == "" &&
		identity.Normalize(f.CustomerID) == "" &&
		identity.Normalize(f.AssignedCenter) == ""
}

// HierarchyRepository reads the parent references that make up an ecosystem.
type HierarchyRepository interface {
	ListContractors(ctx context.Context, filter HierarchyFilter) ([]models.Contractor, error)
	ListCustomers(ctx context.Context, filter HierarchyFilter) ([]models.Customer, error)
	ListCenters(ctx context.Context, filter HierarchyFilter) ([]models.Center, error)
	ListCrew(ctx context.Context, filter HierarchyFilter) ([]models.Crew, error)
	FindCrew(ctx context.Context, crewID string) (models.Crew, error)
	ListWarehouseOrderIDs(ctx context.Context, warehouseID string) ([]string, error)
	ListWarehouseProductIDs(ctx context.Context, warehouseID string) ([]string, error)
}

type hierarchyRepository struct {
	db *gorm.DB
}

// NewHierarchyRepository constructs the hierarchy repository.
func NewHierarchyRepository(db *gorm.DB) HierarchyRepository {
	return &hierarchyRepository{db: db}
}

func whereUpper(query *gorm.DB, column, value string) *gorm.DB {
	if normalized := identity.Normalize(value); normalized != "" {
		return query.Where("UPPER("+column+") = ?", normalized)
	}
	return query
}

func (r *hierarchyRepository) ListContractors(ctx context.Context, filter HierarchyFilter) ([]models.Contractor, error) {
	if identity.Normalize(filter.CksManager) == "" {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Contractor{})
	query = whereUpper(query, "cks_manager", filter.CksManager)

	var contractors []models.Contractor
	if err := query.Order("contractor_id").Find(&contractors).Error; err != nil {
		return nil, err
	}
	return contractors, nil
}

func (r *hierarchyRepository) ListCustomers(ctx context.Context, filter HierarchyFilter) ([]models.Customer, error) {
	if identity.Normalize(filter.CksManager) == "" && identity.Normalize(filter.ContractorID) == "" {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Customer{})
	query = whereUpper(query, "cks_manager", filter.CksManager)
	query = whereUpper(query, "contractor_id", filter.ContractorID)

	var customers []models.Customer
	if err := query.Order("customer_id").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *hierarchyRepository) ListCenters(ctx context.Context, filter HierarchyFilter) ([]models.Center, error) {
	if identity.Normalize(filter.CksManager) == "" &&
		identity.Normalize(filter.ContractorID) == "" &&
		identity.Normalize(filter.CustomerID) == "" {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Center{})
	query = whereUpper(query, "cks_manager", filter.CksManager)
	query = whereUpper(query, "contractor_id", filter.ContractorID)
	query = whereUpper(query, "customer_id", filter.CustomerID)

	var centers []models.Center
	if err := query.Order("center_id").Find(&centers).Error; err != nil {
		return nil, err
	}
	return centers, nil
}

// ListCrew matches crew directly by manager or center, and through their assigned center when
// filtering by contractor or customer.
func (r *hierarchyRepository) ListCrew(ctx context.Context, filter HierarchyFilter) ([]models.Crew, error) {
	if filter.empty() {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Crew{})
	query = whereUpper(query, "cks_manager", filter.CksManager)
	query = whereUpper(query, "assigned_center", filter.AssignedCenter)

	if identity.Normalize(filter.ContractorID) != "" || identity.Normalize(filter.CustomerID) != "" {
		centers := r.db.Model(&models.Center{}).Select("UPPER(center_id)")
		centers = whereUpper(centers, "contractor_id", filter.ContractorID)
		centers = whereUpper(centers, "customer_id", filter.CustomerID)
		query = query.Where("UPPER(assigned_center) IN (?)", centers)
	}

	var crew []models.Crew
	if err := query.Order("crew_id").Find(&crew).Error; err != nil {
		return nil, err
	}
	return crew, nil
}

func (r *hierarchyRepository) FindCrew(ctx context.Context, crewID string) (models.Crew, error) {
	if identity.Normalize(crewID) == "" {
		return models.Crew{}, gorm.ErrRecordNotFound
	}

	var crew models.Crew
	query := whereUpper(r.db.WithContext(ctx).Model(&models.Crew{}), "crew_id", crewID)
	if err := query.Take(&crew).Error; err != nil {
		return models.Crew{}, err
	}
	return crew, nil
}

func (r *hierarchyRepository) ListWarehouseOrderIDs(ctx context.Context, warehouseID string) ([]string, error) {
	if identity.Normalize(warehouseID) == "" {
		return nil, nil
	}

	var ids []string
	query := whereUpper(r.db.WithContext(ctx).Model(&models.Order{}), "warehouse_id", warehouseID)
	if err := query.Order("order_id").Pluck("order_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *hierarchyRepository) ListWarehouseProductIDs(ctx context.Context, warehouseID string) ([]string, error) {
	if identity.Normalize(warehouseID) == "" {
		return nil, nil
	}

	var ids []string
	query := whereUpper(r.db.WithContext(ctx).Model(&models.InventoryItem{}), "warehouse_id", warehouseID)
	if err := query.Order("product_id").Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
