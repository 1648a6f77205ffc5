package auth

import (
	"context"
	"fmt"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/sirupsen/logrus"
)

// ReviewerAuthorizer 判断操作者对记录的审核权限
// 管理员总是允许；招聘方需属于记录所属机构，或在 OpenFGA 中具备 reviewer 关系
type ReviewerAuthorizer struct {
	directory repository.ReviewerDirectory
	checker   RelationChecker // 可为 nil
	logger    logrus.FieldLogger
}

// NewReviewerAuthorizer 创建审核权限判断
func NewReviewerAuthorizer(directory repository.ReviewerDirectory, checker RelationChecker, logger logrus.FieldLogger) *ReviewerAuthorizer {
	return &ReviewerAuthorizer{directory: directory, checker: checker, logger: logger}
}

// CanReview 无权限或判断过程出错时返回 ErrUnauthorized
func (a *ReviewerAuthorizer) CanReview(ctx context.Context, actor onboarding.Actor, recordID, agencyID string) error {
	switch actor.Role {
	case onboarding.RoleAdmin:
		return nil
	case onboarding.RoleRecruiter:
	default:
		return fmt.Errorf("%w: role %s cannot review", onboarding.ErrUnauthorized, actor.Role)
	}

	if actor.AgencyID != "" && actor.AgencyID == agencyID {
		return nil
	}

	logger := a.logger.WithFields(logrus.Fields{
		"actor_id":  actor.ID,
		"record_id": recordID,
		"agency_id": agencyID,
	})

	if a.directory != nil {
		member, err := a.directory.IsMember(ctx, agencyID, actor.ID)
		if err != nil {
			logger.WithError(err).Warn("Reviewer directory lookup failed")
			return fmt.Errorf("%w: reviewer lookup failed", onboarding.ErrUnauthorized)
		}
		if member {
			return nil
		}
	}

	// 新建记录时还没有 recordID，只按机构判断
	if a.checker != nil && recordID != "" {
		allowed, err := a.checker.CheckPermission(ctx, actor.ID, RelationReviewer, ObjectOnboardingRecord, recordID)
		if err != nil {
			logger.WithError(err).Warn("OpenFGA reviewer check failed")
			return fmt.Errorf("%w: permission check failed", onboarding.ErrUnauthorized)
		}
		if allowed {
			return nil
		}
	}

	return fmt.Errorf("%w: reviewer is outside the record's agency", onboarding.ErrUnauthorized)
}
