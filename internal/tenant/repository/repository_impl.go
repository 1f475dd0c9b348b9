package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	tenantdomain "github.com/campushq/campushq/internal/tenant/domain"
)

type repo struct {
	db *gorm.DB
}

// Provide builds the gorm-backed tenant directory.
func Provide(db *gorm.DB) tenantdomain.Directory {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, id string) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, tenantdomain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup tenant %s: %w", id, err)
	}
	return &tenant, nil
}
