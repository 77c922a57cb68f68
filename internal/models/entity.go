package models

import "time"

// Manager is the root of an organizational ecosystem.
type Manager struct {
	ManagerID  string     `gorm:"primaryKey;size:32" json:"manager_id"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Email      string     `gorm:"size:255" json:"email"`
	Phone      string     `gorm:"size:64" json:"phone"`
	Territory  string     `gorm:"size:128" json:"territory"`
	Status     string     `gorm:"size:32;default:active" json:"status"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Contractor reports to a manager.
type Contractor struct {
	ContractorID  string     `gorm:"primaryKey;size:32" json:"contractor_id"`
	CksManager    *string    `gorm:"size:32;index" json:"cks_manager"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	ContactPerson string     `gorm:"size:255" json:"contact_person"`
	Email         string     `gorm:"size:255" json:"email"`
	Phone         string     `gorm:"size:64" json:"phone"`
	Status        string     `gorm:"size:32;default:active" json:"status"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Customer belongs to a contractor and, transitively, a manager.
type Customer struct {
	CustomerID   string     `gorm:"primaryKey;size:32" json:"customer_id"`
	ContractorID *string    `gorm:"size:32;index" json:"contractor_id"`
	CksManager   *string    `gorm:"size:32;index" json:"cks_manager"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	MainContact  string     `gorm:"size:255" json:"main_contact"`
	Email        string     `gorm:"size:255" json:"email"`
	Phone        string     `gorm:"size:64" json:"phone"`
	Status       string     `gorm:"size:32;default:active" json:"status"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Center is a service location owned by a customer.
type Center struct {
	CenterID     string     `gorm:"primaryKey;size:32" json:"center_id"`
	ContractorID *string    `gorm:"size:32;index" json:"contractor_id"`
	CustomerID   *string    `gorm:"size:32;index" json:"customer_id"`
	CksManager   *string    `gorm:"size:32;index" json:"cks_manager"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	MainContact  string     `gorm:"size:255" json:"main_contact"`
	Email        string     `gorm:"size:255" json:"email"`
	Phone        string     `gorm:"size:64" json:"phone"`
	Status       string     `gorm:"size:32;default:active" json:"status"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Crew is a field worker assigned to a center.
type Crew struct {
	CrewID         string     `gorm:"primaryKey;size:32" json:"crew_id"`
	AssignedCenter *string    `gorm:"size:32;index" json:"assigned_center"`
	CksManager     *string    `gorm:"size:32;index" json:"cks_manager"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	Email          string     `gorm:"size:255" json:"email"`
	Phone          string     `gorm:"size:64" json:"phone"`
	Status         string     `gorm:"size:32;default:active" json:"status"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName keeps the singular table name used by the hub applications.
func (Crew) TableName() string {
	return "crew"
}

// Warehouse fulfils orders for centers.
type Warehouse struct {
	WarehouseID string     `gorm:"primaryKey;size:32" json:"warehouse_id"`
	ManagerID   *string    `gorm:"size:32;index" json:"manager_id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	MainContact string     `gorm:"size:255" json:"main_contact"`
	Email       string     `gorm:"size:255" json:"email"`
	Phone       string     `gorm:"size:64" json:"phone"`
	Status      string     `gorm:"size:32;default:active" json:"status"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Order is a supply or service order routed to a warehouse.
type Order struct {
	OrderID           string    `gorm:"primaryKey;size:64" json:"order_id"`
	CustomerID        *string   `gorm:"size:32;index" json:"customer_id"`
	DestinationCenter *string   `gorm:"size:32" json:"destination_center"`
	WarehouseID       *string   `gorm:"size:32;index" json:"warehouse_id"`
	Description       string    `gorm:"type:text" json:"description"`
	Status            string    `gorm:"size:32;default:pending" json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// InventoryItem tracks stock of a product inside a warehouse.
type InventoryItem struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	WarehouseID       string    `gorm:"size:32;not null;uniqueIndex:idx_inventory_product" json:"warehouse_id"`
	ProductID         string    `gorm:"size:32;not null;uniqueIndex:idx_inventory_product" json:"product_id"`
	ProductName       string    `gorm:"size:255" json:"product_name"`
	Quantity          int       `json:"quantity"`
	MinimumStockLevel int       `json:"minimum_stock_level"`
	UpdatedAt         time.Time `json:"updated_at"`
}
