package repository

import (
	"context"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"gorm.io/gorm"
)

// ActivityEventRepository 活动日志仓储接口，只追加
type ActivityEventRepository interface {
	Append(ctx context.Context, event *model.ActivityEventModel) error
	FindByRecordID(ctx context.Context, recordID string) ([]*model.ActivityEventModel, error)
}

// activityEventRepository 活动日志仓储实现
type activityEventRepository struct {
	db *gorm.DB
}

// NewActivityEventRepository 创建活动日志仓储
func NewActivityEventRepository(db *gorm.DB) ActivityEventRepository {
	return &activityEventRepository{db: db}
}

// Append 追加活动日志
func (r *activityEventRepository) Append(ctx context.Context, event *model.ActivityEventModel) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// FindByRecordID 按时间顺序返回记录的活动日志
func (r *activityEventRepository) FindByRecordID(ctx context.Context, recordID string) ([]*model.ActivityEventModel, error) {
	var events []*model.ActivityEventModel
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
