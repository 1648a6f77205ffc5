package model

import (
	"errors"
	"time"
)

// NotificationModel 站内通知
type NotificationModel struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RecipientID   string    `gorm:"type:varchar(64);not null;index" json:"recipientId"`
	RecipientRole string    `gorm:"type:varchar(16);not null" json:"recipientRole"`
	Type          string    `gorm:"type:varchar(64);not null;index" json:"type"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	Message       string    `gorm:"type:text" json:"message"`
	ActionURL     string    `gorm:"type:varchar(512)" json:"actionUrl,omitempty"`
	RelatedID     string    `gorm:"type:varchar(64);index" json:"relatedId,omitempty"`
	IsUrgent      bool      `gorm:"not null;default:false" json:"isUrgent"`
	IsRead        bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt     time.Time `gorm:"not null;index" json:"createdAt"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "notifications"
}

// Validate 验证通知
func (m *NotificationModel) Validate() error {
	if m.ID == "" {
		return errors.New("notification ID is required")
	}
	if m.RecipientID == "" {
		return errors.New("recipient ID is required")
	}
	if m.Type == "" {
		return errors.New("notification type is required")
	}
	if m.Title == "" {
		return errors.New("title is required")
	}
	return nil
}
