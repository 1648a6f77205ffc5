package model

import (
	"errors"
	"time"
)

// ActivityEventModel 入职活动日志，只追加
type ActivityEventModel struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)"`
	RecordID         string    `gorm:"type:varchar(64);not null;index"`
	JobApplicationID string    `gorm:"type:varchar(64);not null;index"`
	Action           string    `gorm:"type:varchar(64);not null;index"` // record_created/section_submitted/section_reviewed/...
	ActorID          string    `gorm:"type:varchar(64);not null"`
	ActorRole        string    `gorm:"type:varchar(16);not null"`
	Description      string    `gorm:"type:text"`
	Metadata         []byte    `gorm:"type:jsonb"`
	RequestID        string    `gorm:"type:varchar(64)"`
	CreatedAt        time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (ActivityEventModel) TableName() string {
	return "onboarding_activity_events"
}

// Validate 验证活动日志
func (m *ActivityEventModel) Validate() error {
	if m.ID == "" {
		return errors.New("activity event ID is required")
	}
	if m.RecordID == "" {
		return errors.New("record ID is required")
	}
	if m.Action == "" {
		return errors.New("action is required")
	}
	if m.ActorID == "" || m.ActorRole == "" {
		return errors.New("actor is required")
	}
	return nil
}
