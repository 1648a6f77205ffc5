package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/metrics"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxFeedbackLength = 2000
	maxReasonLength   = 1000
)

// ReviewerPolicy 判断审核权限，无权限时返回 ErrUnauthorized
type ReviewerPolicy interface {
	CanReview(ctx context.Context, actor onboarding.Actor, recordID, agencyID string) error
}

// RecordGrantor 为新记录写入外部授权关系
type RecordGrantor interface {
	GrantRecord(ctx context.Context, recordID, candidateID, agencyID string) error
}

// CreateRecordRequest 创建入职记录参数
type CreateRecordRequest struct {
	CandidateID      string
	JobApplicationID string
	AgencyID         string
	Position         string
	StartDate        *time.Time
	// Prefill 预填数据，只保存不改变状态
	Prefill map[onboarding.Section]onboarding.Payload
}

// Coordinator 入职流程的唯一写入口
// 每个操作先完成条件写入，再通过 HookRunner 执行审计和通知
type Coordinator struct {
	records    repository.OnboardingRepository
	audit      AuditTrailWriter
	dispatcher *Dispatcher
	reviewers  ReviewerPolicy
	grantor    RecordGrantor
	codec      *utils.PayloadCodec
	hooks      *HookRunner
	logger     logrus.FieldLogger
	now        func() time.Time
}

// CoordinatorDeps 依赖
type CoordinatorDeps struct {
	Records    repository.OnboardingRepository
	Audit      AuditTrailWriter
	Dispatcher *Dispatcher
	Reviewers  ReviewerPolicy
	Grantor    RecordGrantor // 可为 nil
	Codec      *utils.PayloadCodec
	Hooks      *HookRunner
	Logger     logrus.FieldLogger
}

// NewCoordinator 创建协调器
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	return &Coordinator{
		records:    deps.Records,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		reviewers:  deps.Reviewers,
		grantor:    deps.Grantor,
		codec:      deps.Codec,
		hooks:      deps.Hooks,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// CreateRecord 申请进入录用状态时创建入职记录，全部 section 为 PENDING
func (c *Coordinator) CreateRecord(ctx context.Context, actor onboarding.Actor, req CreateRecordRequest) (*model.OnboardingRecordModel, error) {
	const op = "create_record"

	for name, id := range map[string]string{
		"candidate_id":       req.CandidateID,
		"job_application_id": req.JobApplicationID,
		"agency_id":          req.AgencyID,
	} {
		if err := utils.ValidateID(id); err != nil {
			return nil, c.fail(ctx, op, fmt.Errorf("%w: %s: %v", onboarding.ErrValidation, name, err))
		}
	}

	switch actor.Role {
	case onboarding.RoleAdmin, onboarding.RoleSystem:
	case onboarding.RoleRecruiter:
		if err := c.reviewers.CanReview(ctx, actor, "", req.AgencyID); err != nil {
			return nil, c.fail(ctx, op, err)
		}
	default:
		return nil, c.fail(ctx, op, fmt.Errorf("%w: role %s cannot create onboarding records", onboarding.ErrUnauthorized, actor.Role))
	}

	rec := &model.OnboardingRecordModel{
		ID:               uuid.New().String(),
		CandidateID:      req.CandidateID,
		JobApplicationID: req.JobApplicationID,
		AgencyID:         req.AgencyID,
		Position:         req.Position,
	}
	if req.StartDate != nil {
		start := req.StartDate.UTC()
		rec.StartDate = &start
	}
	rec.InitSections()

	for section, payload := range req.Prefill {
		if !section.Valid() {
			return nil, c.fail(ctx, op, fmt.Errorf("%w: unknown prefill section %d", onboarding.ErrValidation, int(section)))
		}
		data, err := c.codec.Seal(payload)
		if err != nil {
			return nil, c.fail(ctx, op, err)
		}
		*rec.Fields(section).Data = data
	}

	if err := c.records.Create(ctx, rec); err != nil {
		return nil, c.fail(ctx, op, err)
	}

	c.logger.WithFields(logrus.Fields{
		"record_id":          rec.ID,
		"candidate_id":       rec.CandidateID,
		"job_application_id": rec.JobApplicationID,
		"request_id":         RequestIDFromContext(ctx),
	}).Info("Onboarding record created")

	hooks := []Hook{
		c.auditHook(rec, ActionRecordCreated, actor, "Onboarding record created", map[string]interface{}{
			"agency_id": rec.AgencyID,
			"position":  rec.Position,
			"prefilled": len(req.Prefill),
		}),
		{Name: "notify_onboarding_started", Run: func(ctx context.Context) error {
			return c.dispatcher.OnboardingStarted(ctx, rec)
		}},
	}
	if c.grantor != nil {
		hooks = append(hooks, Hook{Name: "grant_record_relations", Run: func(ctx context.Context) error {
			return c.grantor.GrantRecord(ctx, rec.ID, rec.CandidateID, rec.AgencyID)
		}})
	}
	c.hooks.Run(ctx, hooks...)

	return rec, nil
}

// SubmitSection 候选人提交 section
// 自动审批类 section 直接进入 APPROVED，并记录为系统审核
func (c *Coordinator) SubmitSection(ctx context.Context, actor onboarding.Actor, recordID string, section onboarding.Section, payload onboarding.Payload) (*model.OnboardingRecordModel, error) {
	const op = "submit_section"

	rec, err := c.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	if err := requireCandidate(actor, rec); err != nil {
		return nil, c.fail(ctx, op, err)
	}

	from := rec.SectionStatus(section)
	target, role := onboarding.SubmitTarget(section, from)
	if _, err := onboarding.Transition(section, from, target, role); err != nil {
		return nil, c.fail(ctx, op, err)
	}
	if err := onboarding.ValidatePayload(section, payload); err != nil {
		return nil, c.fail(ctx, op, err)
	}

	data, err := c.codec.Seal(payload)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}

	updated, err := c.records.ApplySectionChange(ctx, repository.SectionChange{
		RecordID: rec.ID,
		Section:  section,
		From:     from,
		To:       target,
		Data:     data,
	})
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	metrics.RecordTransition(section.Key(), string(from), string(target), string(role))

	autoApproved := role == onboarding.RoleSystem
	hooks := []Hook{
		c.auditHook(updated, ActionSectionSubmitted, actor, fmt.Sprintf("%s submitted", section.Title()), map[string]interface{}{
			"section":       section.Key(),
			"old_status":    string(from),
			"new_status":    string(target),
			"auto_approved": autoApproved,
		}),
	}
	if autoApproved {
		hooks = append(hooks, c.auditHook(updated, ActionSectionReviewed, onboarding.SystemActor, fmt.Sprintf("%s approved automatically", section.Title()), map[string]interface{}{
			"section":       section.Key(),
			"decision":      string(onboarding.DecisionApproved),
			"old_status":    string(from),
			"new_status":    string(target),
			"auto_approved": true,
		}))
	} else {
		hooks = append(hooks, Hook{Name: "notify_section_submitted", Run: func(ctx context.Context) error {
			return c.dispatcher.SectionSubmitted(ctx, updated, section)
		}})
	}
	hooks = append(hooks, c.completionHooks(rec, updated)...)
	c.hooks.Run(ctx, hooks...)

	return updated, nil
}

// ReviewSection 审核人通过或驳回 section，驳回必须附带反馈
func (c *Coordinator) ReviewSection(ctx context.Context, actor onboarding.Actor, recordID string, section onboarding.Section, decision onboarding.Decision, feedback string) (*model.OnboardingRecordModel, error) {
	const op = "review_section"

	rec, err := c.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	if err := c.reviewers.CanReview(ctx, actor, rec.ID, rec.AgencyID); err != nil {
		return nil, c.fail(ctx, op, err)
	}

	target, err := decision.Target()
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}

	// 通过时清空旧反馈
	storedFeedback := ""
	if target == onboarding.StatusRejected {
		storedFeedback, err = utils.TrimAndValidate(feedback, maxFeedbackLength)
		if err != nil {
			return nil, c.fail(ctx, op, fmt.Errorf("%w: rejection requires feedback: %v", onboarding.ErrValidation, err))
		}
	}

	from := rec.SectionStatus(section)
	if _, err := onboarding.Transition(section, from, target, actor.Role); err != nil {
		return nil, c.fail(ctx, op, err)
	}

	updated, err := c.records.ApplySectionChange(ctx, repository.SectionChange{
		RecordID: rec.ID,
		Section:  section,
		From:     from,
		To:       target,
		Feedback: &storedFeedback,
	})
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	metrics.RecordTransition(section.Key(), string(from), string(target), string(actor.Role))

	metadata := map[string]interface{}{
		"section":    section.Key(),
		"decision":   string(decision),
		"old_status": string(from),
		"new_status": string(target),
	}
	if storedFeedback != "" {
		metadata["feedback"] = storedFeedback
	}
	hooks := []Hook{
		c.auditHook(updated, ActionSectionReviewed, actor, fmt.Sprintf("%s %s", section.Title(), statusVerb(target)), metadata),
		{Name: "notify_section_reviewed", Run: func(ctx context.Context) error {
			return c.dispatcher.SectionReviewed(ctx, updated, section, target, storedFeedback)
		}},
	}
	hooks = append(hooks, c.completionHooks(rec, updated)...)
	c.hooks.Run(ctx, hooks...)

	return updated, nil
}

// ReopenSection 管理员将已处理的 section 退回 PENDING
func (c *Coordinator) ReopenSection(ctx context.Context, actor onboarding.Actor, recordID string, section onboarding.Section, reason string) (*model.OnboardingRecordModel, error) {
	const op = "reopen_section"

	if actor.Role != onboarding.RoleAdmin {
		return nil, c.fail(ctx, op, fmt.Errorf("%w: only administrators can reopen sections", onboarding.ErrUnauthorized))
	}
	reason, err := utils.TrimAndValidate(reason, maxReasonLength)
	if err != nil {
		return nil, c.fail(ctx, op, fmt.Errorf("%w: reopen requires a reason: %v", onboarding.ErrValidation, err))
	}

	rec, err := c.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}

	from := rec.SectionStatus(section)
	target, err := onboarding.Reopen(section, from, actor.Role)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}

	cleared := ""
	updated, err := c.records.ApplySectionChange(ctx, repository.SectionChange{
		RecordID: rec.ID,
		Section:  section,
		From:     from,
		To:       target,
		Feedback: &cleared,
	})
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	metrics.RecordTransition(section.Key(), string(from), string(target), string(actor.Role))

	c.hooks.Run(ctx,
		c.auditHook(updated, ActionSectionReopened, actor, fmt.Sprintf("%s reopened", section.Title()), map[string]interface{}{
			"section":    section.Key(),
			"old_status": string(from),
			"new_status": string(target),
			"reason":     reason,
		}),
		Hook{Name: "notify_section_reopened", Run: func(ctx context.Context) error {
			return c.dispatcher.SectionReopened(ctx, updated, section, reason)
		}},
	)

	return updated, nil
}

// SignContract 候选人签署合同，只能签一次
func (c *Coordinator) SignContract(ctx context.Context, actor onboarding.Actor, recordID string) (*model.OnboardingRecordModel, error) {
	const op = "sign_contract"

	rec, err := c.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	if err := requireCandidate(actor, rec); err != nil {
		return nil, c.fail(ctx, op, err)
	}
	if rec.ContractSigned {
		return nil, c.fail(ctx, op, onboarding.ErrAlreadyConfirmed)
	}

	updated, err := c.records.SignContract(ctx, rec.ID, c.now().UTC())
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}

	hooks := []Hook{
		c.auditHook(updated, ActionContractSigned, actor, "Employment contract signed", map[string]interface{}{
			"signed_at": updated.ContractSignedAt,
		}),
		{Name: "notify_contract_signed", Run: func(ctx context.Context) error {
			return c.dispatcher.ContractSigned(ctx, updated)
		}},
	}
	hooks = append(hooks, c.completionHooks(rec, updated)...)
	c.hooks.Run(ctx, hooks...)

	return updated, nil
}

// ConfirmEmploymentStart 候选人确认实际入职，记录必须已完成
func (c *Coordinator) ConfirmEmploymentStart(ctx context.Context, actor onboarding.Actor, recordID string) (*model.OnboardingRecordModel, error) {
	const op = "confirm_employment_start"

	rec, err := c.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	if err := requireCandidate(actor, rec); err != nil {
		return nil, c.fail(ctx, op, err)
	}

	updated, err := c.records.ConfirmEmploymentStart(ctx, rec.ID, c.now().UTC())
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}

	c.hooks.Run(ctx,
		c.auditHook(updated, ActionEmploymentStarted, actor, "Employment start confirmed", map[string]interface{}{
			"employment_start_date": updated.EmploymentStartDate,
		}),
		Hook{Name: "notify_employment_started", Run: func(ctx context.Context) error {
			return c.dispatcher.EmploymentStarted(ctx, updated)
		}},
	)

	return updated, nil
}

// completionHooks 记录在本次操作中变为完成时追加通知
func (c *Coordinator) completionHooks(before, after *model.OnboardingRecordModel) []Hook {
	if before.IsComplete || !after.IsComplete {
		return nil
	}
	return []Hook{{Name: "notify_onboarding_complete", Run: func(ctx context.Context) error {
		return c.dispatcher.OnboardingComplete(ctx, after)
	}}}
}

func (c *Coordinator) auditHook(rec *model.OnboardingRecordModel, action string, actor onboarding.Actor, description string, metadata map[string]interface{}) Hook {
	return Hook{Name: "audit_" + action, Run: func(ctx context.Context) error {
		return c.audit.Record(ctx, AuditEntry{
			RecordID:         rec.ID,
			JobApplicationID: rec.JobApplicationID,
			Action:           action,
			Actor:            actor,
			Description:      description,
			Metadata:         metadata,
		})
	}}
}

// fail 记录被拒绝的操作并原样返回错误
func (c *Coordinator) fail(ctx context.Context, op string, err error) error {
	reason := ErrorReason(err)
	metrics.RecordOperationFailure(op, reason)

	entry := c.logger.WithError(err).WithFields(logrus.Fields{
		"operation":  op,
		"reason":     reason,
		"request_id": RequestIDFromContext(ctx),
	})
	if reason == "internal" {
		entry.Error("Onboarding operation failed")
	} else {
		entry.Info("Onboarding operation rejected")
	}
	return err
}

// ErrorReason 错误分类，用于日志和指标
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, onboarding.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, onboarding.ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, onboarding.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, onboarding.ErrValidation):
		return "validation"
	case errors.Is(err, onboarding.ErrAlreadyConfirmed):
		return "already_confirmed"
	case errors.Is(err, onboarding.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, onboarding.ErrAlreadyExists):
		return "already_exists"
	}
	return "internal"
}

// requireCandidate 只有记录本人可以执行候选人操作
func requireCandidate(actor onboarding.Actor, rec *model.OnboardingRecordModel) error {
	if actor.Role != onboarding.RoleCandidate || actor.ID != rec.CandidateID {
		return fmt.Errorf("%w: only the record's candidate may perform this operation", onboarding.ErrUnauthorized)
	}
	return nil
}

func statusVerb(st onboarding.Status) string {
	if st == onboarding.StatusRejected {
		return "rejected"
	}
	return "approved"
}
