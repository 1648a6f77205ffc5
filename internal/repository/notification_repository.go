package repository

import (
	"context"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository 站内通知仓储接口
type NotificationRepository interface {
	Save(ctx context.Context, n *model.NotificationModel) error
	FindByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*model.NotificationModel, error)
	MarkRead(ctx context.Context, id string, recipientID string) error
}

// notificationRepository 站内通知仓储实现
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建站内通知仓储
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Save 保存通知
func (r *notificationRepository) Save(ctx context.Context, n *model.NotificationModel) error {
	if err := n.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// FindByRecipient 查询接收人的通知，按时间倒序
func (r *notificationRepository) FindByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*model.NotificationModel, error) {
	query := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit <= 0 {
		limit = 50
	}

	var notifications []*model.NotificationModel
	err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

// MarkRead 标记已读，只能标记自己的通知
func (r *notificationRepository) MarkRead(ctx context.Context, id string, recipientID string) error {
	res := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
