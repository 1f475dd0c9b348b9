package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	trialdomain "github.com/campushq/campushq/internal/trial/domain"
	"github.com/campushq/campushq/pkg/db/pagination"
)

type repo struct {
	db *gorm.DB
}

// Provide builds the gorm-backed trial store.
func Provide(db *gorm.DB) trialdomain.Store {
	return &repo{db: db}
}

func (r *repo) ListActiveTrials(ctx context.Context) ([]trialdomain.TrialRecord, error) {
	var records []trialdomain.TrialRecord
	err := r.db.WithContext(ctx).
		Where("lifecycle_state NOT IN ?", []trialdomain.TrialState{
			trialdomain.StateConverted,
			trialdomain.StateSuspended,
		}).
		Order("tenant_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trialdomain.ErrStoreUnavailable, err)
	}
	return records, nil
}

func (r *repo) Get(ctx context.Context, tenantID string) (*trialdomain.TrialRecord, error) {
	var record trialdomain.TrialRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, trialdomain.ErrTrialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trialdomain.ErrStoreUnavailable, err)
	}
	return &record, nil
}

func (r *repo) List(ctx context.Context, filter trialdomain.ListFilter, p pagination.Pagination) ([]trialdomain.TrialRecord, *pagination.PageInfo, error) {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	query := r.db.WithContext(ctx).Model(&trialdomain.TrialRecord{})
	if len(filter.States) > 0 {
		query = query.Where("lifecycle_state IN ?", filter.States)
	}
	if p.PageToken != "" {
		cursor, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("tenant_id > ?", cursor.ID)
	}

	var records []trialdomain.TrialRecord
	if err := query.Order("tenant_id ASC").Limit(pageSize + 1).Find(&records).Error; err != nil {
		return nil, nil, fmt.Errorf("%w: %v", trialdomain.ErrStoreUnavailable, err)
	}

	pageInfo := &pagination.PageInfo{}
	if len(records) > pageSize {
		records = records[:pageSize]
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: records[len(records)-1].TenantID})
		if err != nil {
			return nil, nil, err
		}
		pageInfo.NextPageToken = token
		pageInfo.HasMore = true
	}
	return records, pageInfo, nil
}

func (r *repo) CompareAndSwapState(ctx context.Context, tenantID string, expectedState, newState trialdomain.TrialState, update trialdomain.StateUpdate) (bool, error) {
	columns := map[string]interface{}{
		"lifecycle_state":   newState,
		"last_processed_at": update.ProcessedAt,
		"updated_at":        update.ProcessedAt,
	}
	if update.GraceEndsAt != nil {
		columns["grace_ends_at"] = *update.GraceEndsAt
	}
	if update.LastNotifiedEvent != nil {
		columns["last_notified_event"] = *update.LastNotifiedEvent
	}
	if update.LastNotifiedAt != nil {
		columns["last_notified_at"] = *update.LastNotifiedAt
	}

	// The state predicate makes the write a compare-and-swap: a
	// concurrent run that already advanced the row leaves zero rows
	// affected here.
	res := r.db.WithContext(ctx).
		Model(&trialdomain.TrialRecord{}).
		Where("tenant_id = ? AND lifecycle_state = ?", tenantID, expectedState).
		Updates(columns)
	if res.Error != nil {
		return false, fmt.Errorf("%w: %v", trialdomain.ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkProcessed(ctx context.Context, tenantID string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&trialdomain.TrialRecord{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"last_processed_at": at,
			"updated_at":        at,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", trialdomain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *repo) CountByState(ctx context.Context) (map[trialdomain.TrialState]int64, error) {
	var rows []struct {
		LifecycleState trialdomain.TrialState
		Total          int64
	}
	err := r.db.WithContext(ctx).
		Model(&trialdomain.TrialRecord{}).
		Select("lifecycle_state, COUNT(*) AS total").
		Group("lifecycle_state").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trialdomain.ErrStoreUnavailable, err)
	}

	counts := make(map[trialdomain.TrialState]int64, len(rows))
	for _, row := range rows {
		counts[row.LifecycleState] = row.Total
	}
	return counts, nil
}
