package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/sirupsen/logrus"
)

// SectionView section 对外视图
type SectionView struct {
	Key      string             `json:"key"`
	Title    string             `json:"title"`
	Kind     onboarding.Kind    `json:"kind"`
	Status   onboarding.Status  `json:"status"`
	Feedback string             `json:"feedback,omitempty"`
	Data     onboarding.Payload `json:"data,omitempty"`
}

// RecordView 入职记录对外视图
// CompletionPercent 为宽松口径，StrictPercent 为严格口径
type RecordView struct {
	ID                  string        `json:"id"`
	CandidateID         string        `json:"candidateId"`
	JobApplicationID    string        `json:"jobApplicationId"`
	AgencyID            string        `json:"agencyId"`
	Position            string        `json:"position,omitempty"`
	Sections            []SectionView `json:"sections"`
	CompletionPercent   int           `json:"completionPercent"`
	StrictPercent       int           `json:"strictPercent"`
	IsComplete          bool          `json:"isComplete"`
	ContractSigned      bool          `json:"contractSigned"`
	ContractSignedAt    *time.Time    `json:"contractSignedAt,omitempty"`
	EmploymentStarted   bool          `json:"employmentStarted"`
	EmploymentStartDate *time.Time    `json:"employmentStartDate,omitempty"`
	StartDate           *time.Time    `json:"startDate,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// ActivityView 活动日志视图
type ActivityView struct {
	ID          string                 `json:"id"`
	Action      string                 `json:"action"`
	ActorID     string                 `json:"actorId"`
	ActorRole   string                 `json:"actorRole"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	RequestID   string                 `json:"requestId,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// PageResult 分页结果
type PageResult struct {
	Items    []*RecordView `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// ListQuery 列表查询参数
type ListQuery struct {
	AgencyID   string
	IsComplete *bool
	Page       int
	PageSize   int
	SortBy     string
	Order      string
}

// QueryService 只读查询，按角色过滤和脱敏
type QueryService struct {
	records    repository.OnboardingRepository
	activities repository.ActivityEventRepository
	reviewers  ReviewerPolicy
	codec      *utils.PayloadCodec
	logger     logrus.FieldLogger
}

// NewQueryService 创建查询服务
func NewQueryService(records repository.OnboardingRepository, activities repository.ActivityEventRepository, reviewers ReviewerPolicy, codec *utils.PayloadCodec, logger logrus.FieldLogger) *QueryService {
	return &QueryService{
		records:    records,
		activities: activities,
		reviewers:  reviewers,
		codec:      codec,
		logger:     logger,
	}
}

// GetRecord 候选人本人或有审核权限者可查看
func (s *QueryService) GetRecord(ctx context.Context, actor onboarding.Actor, recordID string) (*RecordView, error) {
	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, rec); err != nil {
		return nil, err
	}
	return s.project(rec, actor, true), nil
}

// MyRecords 候选人自己的全部记录
func (s *QueryService) MyRecords(ctx context.Context, actor onboarding.Actor) ([]*RecordView, error) {
	if actor.Role != onboarding.RoleCandidate {
		return nil, fmt.Errorf("%w: only candidates have own onboarding records", onboarding.ErrUnauthorized)
	}
	records, _, err := s.records.List(ctx, &repository.RecordFilter{CandidateID: actor.ID, PageSize: 100})
	if err != nil {
		return nil, err
	}
	views := make([]*RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, s.project(rec, actor, true))
	}
	return views, nil
}

// ListRecords 按角色限定范围
// 候选人只能看自己的，招聘方只能看有权限的机构，管理员不限
func (s *QueryService) ListRecords(ctx context.Context, actor onboarding.Actor, q ListQuery) (*PageResult, error) {
	filter := &repository.RecordFilter{
		AgencyID:   q.AgencyID,
		IsComplete: q.IsComplete,
		Page:       q.Page,
		PageSize:   q.PageSize,
		SortBy:     q.SortBy,
		Order:      q.Order,
	}

	switch actor.Role {
	case onboarding.RoleAdmin:
	case onboarding.RoleCandidate:
		filter.CandidateID = actor.ID
	case onboarding.RoleRecruiter:
		if filter.AgencyID == "" {
			filter.AgencyID = actor.AgencyID
		}
		if filter.AgencyID == "" {
			return nil, fmt.Errorf("%w: recruiter has no agency scope", onboarding.ErrUnauthorized)
		}
		if err := s.reviewers.CanReview(ctx, actor, "", filter.AgencyID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: role %s cannot list onboarding records", onboarding.ErrUnauthorized, actor.Role)
	}

	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &PageResult{
		Items:    make([]*RecordView, 0, len(records)),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PageSize <= 0 {
		result.PageSize = 20
	}
	// 列表不返回 section 数据
	for _, rec := range records {
		result.Items = append(result.Items, s.project(rec, actor, false))
	}
	return result, nil
}

// ListActivity 审核人和管理员查看活动日志
func (s *QueryService) ListActivity(ctx context.Context, actor onboarding.Actor, recordID string) ([]*ActivityView, error) {
	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.reviewers.CanReview(ctx, actor, rec.ID, rec.AgencyID); err != nil {
		return nil, err
	}

	events, err := s.activities.FindByRecordID(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity for record %s: %w", rec.ID, err)
	}
	views := make([]*ActivityView, 0, len(events))
	for _, e := range events {
		view := &ActivityView{
			ID:          e.ID,
			Action:      e.Action,
			ActorID:     e.ActorID,
			ActorRole:   e.ActorRole,
			Description: e.Description,
			RequestID:   e.RequestID,
			CreatedAt:   e.CreatedAt,
		}
		if len(e.Metadata) > 0 {
			if err := json.Unmarshal(e.Metadata, &view.Metadata); err != nil {
				s.logger.WithError(err).WithField("event_id", e.ID).Warn("Failed to decode activity metadata")
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *QueryService) canView(ctx context.Context, actor onboarding.Actor, rec *model.OnboardingRecordModel) error {
	if actor.Role == onboarding.RoleCandidate {
		if actor.ID == rec.CandidateID {
			return nil
		}
		return fmt.Errorf("%w: record belongs to another candidate", onboarding.ErrUnauthorized)
	}
	return s.reviewers.CanReview(ctx, actor, rec.ID, rec.AgencyID)
}

// project 生成视图
// 候选人只能看到自己被驳回 section 的反馈
func (s *QueryService) project(rec *model.OnboardingRecordModel, actor onboarding.Actor, withData bool) *RecordView {
	statuses := rec.Statuses()
	view := &RecordView{
		ID:                  rec.ID,
		CandidateID:         rec.CandidateID,
		JobApplicationID:    rec.JobApplicationID,
		AgencyID:            rec.AgencyID,
		Position:            rec.Position,
		Sections:            make([]SectionView, 0, onboarding.SectionCount),
		CompletionPercent:   onboarding.Percent(statuses, onboarding.PolicyLenient),
		StrictPercent:       onboarding.Percent(statuses, onboarding.PolicyStrict),
		IsComplete:          rec.IsComplete,
		ContractSigned:      rec.ContractSigned,
		ContractSignedAt:    rec.ContractSignedAt,
		EmploymentStarted:   rec.EmploymentStarted,
		EmploymentStartDate: rec.EmploymentStartDate,
		StartDate:           rec.StartDate,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}

	for _, section := range onboarding.AllSections {
		fields := rec.Fields(section)
		sv := SectionView{
			Key:    section.Key(),
			Title:  section.Title(),
			Kind:   section.Kind(),
			Status: statuses.Get(section),
		}
		if actor.Role != onboarding.RoleCandidate || sv.Status == onboarding.StatusRejected {
			sv.Feedback = *fields.Feedback
		}
		if withData && len(*fields.Data) > 0 {
			var payload onboarding.Payload
			if err := s.codec.Open(*fields.Data, &payload); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"record_id": rec.ID,
					"section":   section.Key(),
				}).Warn("Failed to open section payload")
			} else {
				sv.Data = payload
			}
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}
