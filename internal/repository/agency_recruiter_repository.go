package repository

import (
	"context"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewerDirectory 查询机构下的招聘方
type ReviewerDirectory interface {
	ReviewerIDs(ctx context.Context, agencyID string) ([]string, error)
	IsMember(ctx context.Context, agencyID, userID string) (bool, error)
	Add(ctx context.Context, agencyID, userID string) error
}

// agencyRecruiterRepository 基于 agency_recruiters 表的实现
type agencyRecruiterRepository struct {
	db *gorm.DB
}

// NewReviewerDirectory 创建招聘方目录
func NewReviewerDirectory(db *gorm.DB) ReviewerDirectory {
	return &agencyRecruiterRepository{db: db}
}

// ReviewerIDs 返回机构下全部招聘方 ID
func (r *agencyRecruiterRepository) ReviewerIDs(ctx context.Context, agencyID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.AgencyRecruiterModel{}).
		Where("agency_id = ?", agencyID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// IsMember 判断用户是否属于机构
func (r *agencyRecruiterRepository) IsMember(ctx context.Context, agencyID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AgencyRecruiterModel{}).
		Where("agency_id = ? AND user_id = ?", agencyID, userID).
		Count(&count).Error
	return count > 0, err
}

// Add 添加归属关系，已存在时忽略
func (r *agencyRecruiterRepository) Add(ctx context.Context, agencyID, userID string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model.AgencyRecruiterModel{
		AgencyID:  agencyID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}).Error
}
