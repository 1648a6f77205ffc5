package notification

import (
	"context"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/google/uuid"
)

// StoreNotifier 写入站内通知表
type StoreNotifier struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

// NewStoreNotifier 创建站内通知通道
func NewStoreNotifier(repo repository.NotificationRepository) *StoreNotifier {
	return &StoreNotifier{repo: repo, now: time.Now}
}

// Notify 保存一条通知
func (s *StoreNotifier) Notify(ctx context.Context, n Notification) error {
	return s.repo.Save(ctx, &model.NotificationModel{
		ID:            uuid.New().String(),
		RecipientID:   n.RecipientID,
		RecipientRole: string(n.RecipientRole),
		Type:          string(n.Type),
		Title:         n.Title,
		Message:       n.Message,
		ActionURL:     n.ActionURL,
		RelatedID:     n.RelatedID,
		IsUrgent:      n.IsUrgent,
		CreatedAt:     s.now().UTC(),
	})
}
