package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/google/uuid"
)

// 活动类型
const (
	ActionRecordCreated     = "record_created"
	ActionSectionSubmitted  = "section_submitted"
	ActionSectionReviewed   = "section_reviewed"
	ActionSectionReopened   = "section_reopened"
	ActionContractSigned    = "contract_signed"
	ActionEmploymentStarted = "employment_started"
)

// AuditEntry 一条活动记录
type AuditEntry struct {
	RecordID         string
	JobApplicationID string
	Action           string
	Actor            onboarding.Actor
	Description      string
	Metadata         map[string]interface{}
}

// AuditTrailWriter 活动日志写入，只追加
type AuditTrailWriter interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// auditTrailWriter 基于 ActivityEventRepository 的实现
type auditTrailWriter struct {
	repo repository.ActivityEventRepository
	now  func() time.Time
}

// NewAuditTrailWriter 创建活动日志写入
func NewAuditTrailWriter(repo repository.ActivityEventRepository) AuditTrailWriter {
	return &auditTrailWriter{repo: repo, now: time.Now}
}

// Record 写入一条活动日志，失败不重试
func (w *auditTrailWriter) Record(ctx context.Context, entry AuditEntry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	if ip := ClientIPFromContext(ctx); ip != "" {
		metadata["ip"] = ip
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal activity metadata: %w", err)
	}

	return w.repo.Append(ctx, &model.ActivityEventModel{
		ID:               uuid.New().String(),
		RecordID:         entry.RecordID,
		JobApplicationID: entry.JobApplicationID,
		Action:           entry.Action,
		ActorID:          entry.Actor.ID,
		ActorRole:        string(entry.Actor.Role),
		Description:      entry.Description,
		Metadata:         metadataJSON,
		RequestID:        RequestIDFromContext(ctx),
		CreatedAt:        w.now().UTC(),
	})
}
