package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordFilter 入职记录列表过滤条件
type RecordFilter struct {
	CandidateID string
	AgencyID    string
	IsComplete  *bool
	Page        int
	PageSize    int
	SortBy      string
	Order       string
}

// SectionChange 一次 section 状态变更
// From 为读取时的状态，写入以此为条件
type SectionChange struct {
	RecordID string
	Section  onboarding.Section
	From     onboarding.Status
	To       onboarding.Status
	Feedback *string // nil 表示不修改
	Data     []byte  // nil 表示不修改
}

// OnboardingRepository 入职记录仓储接口
type OnboardingRepository interface {
	Create(ctx context.Context, rec *model.OnboardingRecordModel) error
	FindByID(ctx context.Context, id string) (*model.OnboardingRecordModel, error)
	FindByCandidateAndApplication(ctx context.Context, candidateID, applicationID string) (*model.OnboardingRecordModel, error)
	List(ctx context.Context, filter *RecordFilter) ([]*model.OnboardingRecordModel, int64, error)
	ApplySectionChange(ctx context.Context, change SectionChange) (*model.OnboardingRecordModel, error)
	SignContract(ctx context.Context, id string, at time.Time) (*model.OnboardingRecordModel, error)
	ConfirmEmploymentStart(ctx context.Context, id string, at time.Time) (*model.OnboardingRecordModel, error)
	FindDueForReminder(ctx context.Context, from, to time.Time) ([]*model.OnboardingRecordModel, error)
}

// onboardingRepository 入职记录仓储实现
type onboardingRepository struct {
	db *gorm.DB
}

// NewOnboardingRepository 创建入职记录仓储
func NewOnboardingRepository(db *gorm.DB) OnboardingRepository {
	return &onboardingRepository{db: db}
}

// Create 创建入职记录，派生字段在写入前计算
func (r *onboardingRepository) Create(ctx context.Context, rec *model.OnboardingRecordModel) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", onboarding.ErrValidation, err)
	}
	agg := onboarding.Recompute(rec.Statuses(), rec.ContractSigned)
	rec.CompletionPercent = agg.CompletionPercent
	rec.IsComplete = agg.IsComplete

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return onboarding.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create onboarding record: %w", err)
	}
	return nil
}

// FindByID 根据 ID 查找
func (r *onboardingRepository) FindByID(ctx context.Context, id string) (*model.OnboardingRecordModel, error) {
	var rec model.OnboardingRecordModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// FindByCandidateAndApplication 根据候选人和职位申请查找
func (r *onboardingRepository) FindByCandidateAndApplication(ctx context.Context, candidateID, applicationID string) (*model.OnboardingRecordModel, error) {
	var rec model.OnboardingRecordModel
	err := r.db.WithContext(ctx).
		Where("candidate_id = ? AND job_application_id = ?", candidateID, applicationID).
		First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// List 分页查询
func (r *onboardingRepository) List(ctx context.Context, filter *RecordFilter) ([]*model.OnboardingRecordModel, int64, error) {
	if filter == nil {
		filter = &RecordFilter{}
	}
	query := r.db.WithContext(ctx).Model(&model.OnboardingRecordModel{})

	if filter.CandidateID != "" {
		query = query.Where("candidate_id = ?", filter.CandidateID)
	}
	if filter.AgencyID != "" {
		query = query.Where("agency_id = ?", filter.AgencyID)
	}
	if filter.IsComplete != nil {
		query = query.Where("is_complete = ?", *filter.IsComplete)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count onboarding records: %w", err)
	}

	// 验证排序字段，防止 SQL 注入
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	if err := utils.ValidateSortField(sortBy); err != nil {
		return nil, 0, fmt.Errorf("%w: invalid sort field: %v", onboarding.ErrValidation, err)
	}
	order := filter.Order
	if order == "" {
		order = "desc"
	}
	if err := utils.ValidateSortOrder(order); err != nil {
		return nil, 0, fmt.Errorf("%w: invalid sort order: %v", onboarding.ErrValidation, err)
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, strings.ToUpper(order)))

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var records []*model.OnboardingRecordModel
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query onboarding records: %w", err)
	}
	return records, total, nil
}

// ApplySectionChange 条件更新 section 状态并重算派生字段，在同一事务内完成
// 状态已被其他请求修改时返回 ErrConcurrentModification
func (r *onboardingRepository) ApplySectionChange(ctx context.Context, change SectionChange) (*model.OnboardingRecordModel, error) {
	var updated *model.OnboardingRecordModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			change.Section.StatusColumn(): string(change.To),
			"updated_at":                  time.Now().UTC(),
		}
		if change.Feedback != nil {
			updates[change.Section.FeedbackColumn()] = *change.Feedback
		}
		if change.Data != nil {
			updates[change.Section.PayloadColumn()] = change.Data
		}

		res := tx.Model(&model.OnboardingRecordModel{}).
			Where("id = ? AND "+change.Section.StatusColumn()+" = ?", change.RecordID, string(change.From)).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update section %s: %w", change.Section, res.Error)
		}
		if res.RowsAffected == 0 {
			return conflictOrMissing(tx, change.RecordID, onboarding.ErrConcurrentModification)
		}

		rec, err := lockRecord(tx, change.RecordID)
		if err != nil {
			return err
		}
		if err := writeAggregates(tx, rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SignContract 设置合同签署标记，只能设置一次
func (r *onboardingRepository) SignContract(ctx context.Context, id string, at time.Time) (*model.OnboardingRecordModel, error) {
	var updated *model.OnboardingRecordModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.OnboardingRecordModel{}).
			Where("id = ? AND contract_signed = ?", id, false).
			Updates(map[string]interface{}{
				"contract_signed":    true,
				"contract_signed_at": at,
				"updated_at":         time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to sign contract: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflictOrMissing(tx, id, onboarding.ErrAlreadyConfirmed)
		}

		rec, err := lockRecord(tx, id)
		if err != nil {
			return err
		}
		if err := writeAggregates(tx, rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ConfirmEmploymentStart 设置实际入职日期，只能设置一次且记录必须已完成
func (r *onboardingRepository) ConfirmEmploymentStart(ctx context.Context, id string, at time.Time) (*model.OnboardingRecordModel, error) {
	var updated *model.OnboardingRecordModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockRecord(tx, id)
		if err != nil {
			return err
		}
		if rec.EmploymentStarted {
			return onboarding.ErrAlreadyConfirmed
		}
		if !rec.IsComplete {
			return fmt.Errorf("%w: onboarding is not complete", onboarding.ErrValidation)
		}

		res := tx.Model(&model.OnboardingRecordModel{}).
			Where("id = ? AND employment_started = ?", id, false).
			Updates(map[string]interface{}{
				"employment_started":    true,
				"employment_start_date": at,
				"updated_at":            time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to confirm employment start: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return onboarding.ErrAlreadyConfirmed
		}

		rec.EmploymentStarted = true
		rec.EmploymentStartDate = &at
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FindDueForReminder 查找开工日期在 [from, to] 内且未完成的记录
func (r *onboardingRepository) FindDueForReminder(ctx context.Context, from, to time.Time) ([]*model.OnboardingRecordModel, error) {
	var records []*model.OnboardingRecordModel
	err := r.db.WithContext(ctx).
		Where("is_complete = ? AND start_date IS NOT NULL AND start_date >= ? AND start_date <= ?", false, from, to).
		Order("start_date ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query records due for reminder: %w", err)
	}
	return records, nil
}

// lockRecord 在事务内读取记录，PostgreSQL 下加行锁
func lockRecord(tx *gorm.DB, id string) (*model.OnboardingRecordModel, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rec model.OnboardingRecordModel
	if err := query.Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// writeAggregates 重算并写入派生字段
func writeAggregates(tx *gorm.DB, rec *model.OnboardingRecordModel) error {
	agg := onboarding.Recompute(rec.Statuses(), rec.ContractSigned)
	if agg.CompletionPercent == rec.CompletionPercent && agg.IsComplete == rec.IsComplete {
		return nil
	}
	err := tx.Model(&model.OnboardingRecordModel{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"completion_percent": agg.CompletionPercent,
			"is_complete":        agg.IsComplete,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to write aggregates: %w", err)
	}
	rec.CompletionPercent = agg.CompletionPercent
	rec.IsComplete = agg.IsComplete
	return nil
}

// conflictOrMissing 条件更新未命中时区分记录不存在和条件失败
func conflictOrMissing(tx *gorm.DB, id string, conflict error) error {
	var count int64
	if err := tx.Model(&model.OnboardingRecordModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check onboarding record: %w", err)
	}
	if count == 0 {
		return onboarding.ErrRecordNotFound
	}
	return conflict
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return onboarding.ErrRecordNotFound
	}
	return fmt.Errorf("failed to load onboarding record: %w", err)
}

// isUniqueViolation 识别 PostgreSQL 和 SQLite 的唯一约束冲突
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
