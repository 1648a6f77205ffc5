package service

import (
	"context"
	"fmt"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"gorm.io/gorm"
)

// SectionStatistics 单个 section 的状态分布
type SectionStatistics struct {
	Section string                      `json:"section"`
	Title   string                      `json:"title"`
	Counts  map[onboarding.Status]int64 `json:"counts"`
}

// OnboardingStatistics 入职统计
type OnboardingStatistics struct {
	TotalRecords             int64                `json:"totalRecords"`
	CompleteRecords          int64                `json:"completeRecords"`
	ContractsSigned          int64                `json:"contractsSigned"`
	EmploymentStarted        int64                `json:"employmentStarted"`
	AverageCompletionPercent float64              `json:"averageCompletionPercent"`
	Sections                 []*SectionStatistics `json:"sections"`
}

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetOnboardingStatistics(ctx context.Context, agencyID string) (*OnboardingStatistics, error)
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

func (s *statisticsService) scoped(ctx context.Context, agencyID string) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.OnboardingRecordModel{})
	if agencyID != "" {
		q = q.Where("agency_id = ?", agencyID)
	}
	return q
}

// GetOnboardingStatistics 统计记录总体情况和各 section 状态分布，agencyID 为空时统计全平台
func (s *statisticsService) GetOnboardingStatistics(ctx context.Context, agencyID string) (*OnboardingStatistics, error) {
	var totals struct {
		Total             int64
		Complete          int64
		ContractsSigned   int64
		EmploymentStarted int64
		AvgCompletion     float64
	}
	err := s.scoped(ctx, agencyID).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_complete THEN 1 ELSE 0 END), 0) AS complete,
			COALESCE(SUM(CASE WHEN contract_signed THEN 1 ELSE 0 END), 0) AS contracts_signed,
			COALESCE(SUM(CASE WHEN employment_started THEN 1 ELSE 0 END), 0) AS employment_started,
			COALESCE(AVG(completion_percent), 0) AS avg_completion`).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get onboarding totals: %w", err)
	}

	stats := &OnboardingStatistics{
		TotalRecords:             totals.Total,
		CompleteRecords:          totals.Complete,
		ContractsSigned:          totals.ContractsSigned,
		EmploymentStarted:        totals.EmploymentStarted,
		AverageCompletionPercent: totals.AvgCompletion,
		Sections:                 make([]*SectionStatistics, 0, onboarding.SectionCount),
	}

	for _, section := range onboarding.AllSections {
		var rows []struct {
			Status string
			Count  int64
		}
		column := section.StatusColumn()
		err := s.scoped(ctx, agencyID).
			Select(column + " AS status, COUNT(*) AS count").
			Group(column).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get statistics for section %s: %w", section.Key(), err)
		}

		ss := &SectionStatistics{
			Section: section.Key(),
			Title:   section.Title(),
			Counts: map[onboarding.Status]int64{
				onboarding.StatusPending:   0,
				onboarding.StatusSubmitted: 0,
				onboarding.StatusApproved:  0,
				onboarding.StatusRejected:  0,
			},
		}
		for _, r := range rows {
			ss.Counts[onboarding.Status(r.Status)] = r.Count
		}
		stats.Sections = append(stats.Sections, ss)
	}
	return stats, nil
}
