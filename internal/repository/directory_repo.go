package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/models"
)

// OrdersTable locates orders, which are not part of the role catalog.
var OrdersTable = TableRef{Name: "orders", IDColumn: "order_id"}

// TableRef names a table and its identifier column.
type TableRef struct {
	Name     string
	IDColumn string
}

// TableFor returns the entity table backing a hub role.
func TableFor(role identity.Role) (TableRef, error) {
	def, ok := identity.Lookup(role)
	if !ok || def.Table == "" {
		return TableRef{}, fmt.Errorf("role %q has no entity table", role)
	}
	return TableRef{Name: def.Table, IDColumn: def.IDColumn}, nil
}

// HierarchySeed groups entity rows for bulk upserts.
type HierarchySeed struct {
	Managers    []models.Manager
	Contractors []models.Contractor
	Customers   []models.Customer
	Centers     []models.Center
	Crew        []models.Crew
	Warehouses  []models.Warehouse
	Orders      []models.Order
	Inventory   []models.InventoryItem
}

// DirectoryRepository writes entity rows and their parent references.
type DirectoryRepository interface {
	Create(ctx context.Context, entity interface{}) error
	ListIDs(ctx context.Context, table TableRef) ([]string, error)
	Exists(ctx context.Context, table TableRef, id string) (bool, error)
	Column(ctx context.Context, table TableRef, id, column string) (*string, error)
	Update(ctx context.Context, table TableRef, id string, updates map[string]interface{}) error
	Row(ctx context.Context, table TableRef, id string) (map[string]interface{}, error)
	Delete(ctx context.Context, table TableRef, id string) error
	CountActiveChildren(ctx context.Context, table TableRef, parentColumn, parentID string) (int64, error)
	DetachChildren(ctx context.Context, table TableRef, parentColumn, parentID string, updates map[string]interface{}) (int64, error)
	UpsertHierarchy(ctx context.Context, seed HierarchySeed) (int64, error)
}

type directoryRepository struct {
	db *gorm.DB
}

// NewDirectoryRepository constructs the directory repository.
func NewDirectoryRepository(db *gorm.DB) DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) Create(ctx context.Context, entity interface{}) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *directoryRepository) ListIDs(ctx context.Context, table TableRef) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Table(table.Name).Pluck(table.IDColumn, &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *directoryRepository) Exists(ctx context.Context, table TableRef, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(table.Name).
		Where("UPPER("+table.IDColumn+") = ?", identity.Normalize(id)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Column reads a single nullable column. It returns gorm.ErrRecordNotFound when the row is missing.
func (r *directoryRepository) Column(ctx context.Context, table TableRef, id, column string) (*string, error) {
	var rows []struct {
		Value *string
	}
	err := r.db.WithContext(ctx).Table(table.Name).
		Select(column+" AS value").
		Where("UPPER("+table.IDColumn+") = ?", identity.Normalize(id)).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return rows[0].Value, nil
}

func (r *directoryRepository) Update(ctx context.Context, table TableRef, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Table(table.Name).
		Where("UPPER("+table.IDColumn+") = ?", identity.Normalize(id)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Row reads every column of a row. It returns gorm.ErrRecordNotFound when the row is missing.
func (r *directoryRepository) Row(ctx context.Context, table TableRef, id string) (map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := r.db.WithContext(ctx).Table(table.Name).
		Where("UPPER("+table.IDColumn+") = ?", identity.Normalize(id)).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return rows[0], nil
}

// Delete removes a row. It returns gorm.ErrRecordNotFound when nothing matched.
func (r *directoryRepository) Delete(ctx context.Context, table TableRef, id string) error {
	result := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE UPPER(%s) = ?", table.Name, table.IDColumn),
		identity.Normalize(id),
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *directoryRepository) CountActiveChildren(ctx context.Context, table TableRef, parentColumn, parentID string) (int64, error) {
	var count int64
	err := r.activeChildren(ctx, table, parentColumn, parentID).Count(&count).Error
	return count, err
}

// DetachChildren applies updates to every unarchived row referencing parentID.
func (r *directoryRepository) DetachChildren(ctx context.Context, table TableRef, parentColumn, parentID string, updates map[string]interface{}) (int64, error) {
	result := r.activeChildren(ctx, table, parentColumn, parentID).Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *directoryRepository) activeChildren(ctx context.Context, table TableRef, parentColumn, parentID string) *gorm.DB {
	return r.db.WithContext(ctx).Table(table.Name).
		Where("UPPER(TRIM("+parentColumn+")) = ?", identity.Normalize(parentID)).
		Where("archived_at IS NULL")
}

func (r *directoryRepository) UpsertHierarchy(ctx context.Context, seed HierarchySeed) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batches := []interface{}{}
		if len(seed.Managers) > 0 {
			batches = append(batches, &seed.Managers)
		}
		if len(seed.Contractors) > 0 {
			batches = append(batches, &seed.Contractors)
		}
		if len(seed.Customers) > 0 {
			batches = append(batches, &seed.Customers)
		}
		if len(seed.Centers) > 0 {
			batches = append(batches, &seed.Centers)
		}
		if len(seed.Crew) > 0 {
			batches = append(batches, &seed.Crew)
		}
		if len(seed.Warehouses) > 0 {
			batches = append(batches, &seed.Warehouses)
		}
		if len(seed.Orders) > 0 {
			batches = append(batches, &seed.Orders)
		}

		for _, batch := range batches {
			result := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(batch)
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}

		if len(seed.Inventory) > 0 {
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "product_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"product_name", "quantity", "minimum_stock_level", "updated_at"}),
			}).Create(&seed.Inventory)
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		return nil
	})
	return affected, err
}
