// Package domain contains the tenant directory model.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrTenantNotFound indicates the directory has no such tenant.
var ErrTenantNotFound = errors.New("tenant not found")

// Tenant is one school account in the directory.
type Tenant struct {
	ID         string    `gorm:"primaryKey;column:id" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	AdminEmail string    `gorm:"not null" json:"admin_email"`
	Timezone   string    `gorm:"not null;default:UTC" json:"timezone"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Directory resolves tenant contact details for notifications.
type Directory interface {
	Get(ctx context.Context, id string) (*Tenant, error)
}
