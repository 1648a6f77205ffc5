package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/notification"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
)

const (
	candidateOnboardingURL = "/candidate/onboarding"
	recruiterOnboardingURL = "/recruiter/onboarding"
)

// Dispatcher 将入职事件转换为通知，接收人由记录和招聘方目录决定
type Dispatcher struct {
	notifier  notification.Notifier
	directory repository.ReviewerDirectory
}

// NewDispatcher 创建通知分发
func NewDispatcher(notifier notification.Notifier, directory repository.ReviewerDirectory) *Dispatcher {
	return &Dispatcher{notifier: notifier, directory: directory}
}

func positionOf(rec *model.OnboardingRecordModel) string {
	if rec.Position == "" {
		return "your new role"
	}
	return rec.Position
}

func (d *Dispatcher) toCandidate(ctx context.Context, rec *model.OnboardingRecordModel, t notification.Type, title, message string, urgent bool) error {
	return d.notifier.Notify(ctx, notification.Notification{
		RecipientID:   rec.CandidateID,
		RecipientRole: onboarding.RoleCandidate,
		Type:          t,
		Title:         title,
		Message:       message,
		ActionURL:     candidateOnboardingURL,
		RelatedID:     rec.ID,
		IsUrgent:      urgent,
	})
}

// toReviewers 通知记录所属机构的全部招聘方
func (d *Dispatcher) toReviewers(ctx context.Context, rec *model.OnboardingRecordModel, t notification.Type, title, message string) error {
	reviewers, err := d.directory.ReviewerIDs(ctx, rec.AgencyID)
	if err != nil {
		return fmt.Errorf("failed to resolve reviewers for agency %s: %w", rec.AgencyID, err)
	}

	var errs []error
	for _, id := range reviewers {
		err := d.notifier.Notify(ctx, notification.Notification{
			RecipientID:   id,
			RecipientRole: onboarding.RoleRecruiter,
			Type:          t,
			Title:         title,
			Message:       message,
			ActionURL:     fmt.Sprintf("%s/%s", recruiterOnboardingURL, rec.ID),
			RelatedID:     rec.ID,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnboardingStarted 记录创建后通知候选人
func (d *Dispatcher) OnboardingStarted(ctx context.Context, rec *model.OnboardingRecordModel) error {
	return d.toCandidate(ctx, rec, notification.TypeOnboardingStarted,
		"Welcome aboard! Start your onboarding",
		fmt.Sprintf("Congratulations on your offer for %s. Complete your onboarding steps to get ready for day one.", positionOf(rec)),
		true)
}

// SectionSubmitted 候选人提交后通知审核人
func (d *Dispatcher) SectionSubmitted(ctx context.Context, rec *model.OnboardingRecordModel, s onboarding.Section) error {
	return d.toReviewers(ctx, rec, notification.TypeSectionSubmitted,
		fmt.Sprintf("%s submitted for review", s.Title()),
		fmt.Sprintf("A candidate for %s submitted %s. Completion is now %d%%.", positionOf(rec), s.Title(), rec.CompletionPercent))
}

// SectionReviewed 审核后通知候选人
func (d *Dispatcher) SectionReviewed(ctx context.Context, rec *model.OnboardingRecordModel, s onboarding.Section, status onboarding.Status, feedback string) error {
	if status == onboarding.StatusRejected {
		return d.toCandidate(ctx, rec, notification.TypeSectionRejected,
			fmt.Sprintf("%s needs your attention", s.Title()),
			fmt.Sprintf("Your %s was returned: %s Please update and resubmit.", s.Title(), feedback),
			true)
	}
	return d.toCandidate(ctx, rec, notification.TypeSectionApproved,
		fmt.Sprintf("%s approved", s.Title()),
		fmt.Sprintf("Your %s has been approved.", s.Title()),
		false)
}

// SectionReopened 管理员重开后通知候选人
func (d *Dispatcher) SectionReopened(ctx context.Context, rec *model.OnboardingRecordModel, s onboarding.Section, reason string) error {
	return d.toCandidate(ctx, rec, notification.TypeSectionReopened,
		fmt.Sprintf("%s reopened", s.Title()),
		fmt.Sprintf("Your %s was reopened by an administrator: %s", s.Title(), reason),
		true)
}

// ContractSigned 签约后通知审核人
func (d *Dispatcher) ContractSigned(ctx context.Context, rec *model.OnboardingRecordModel) error {
	return d.toReviewers(ctx, rec, notification.TypeContractSigned,
		"Contract signed",
		fmt.Sprintf("The candidate for %s signed their employment contract.", positionOf(rec)))
}

// OnboardingComplete 记录完成后通知双方
func (d *Dispatcher) OnboardingComplete(ctx context.Context, rec *model.OnboardingRecordModel) error {
	candidateErr := d.toCandidate(ctx, rec, notification.TypeOnboardingDone,
		"Onboarding complete",
		fmt.Sprintf("All onboarding steps for %s are approved. You're ready for day one!", positionOf(rec)),
		false)
	reviewerErr := d.toReviewers(ctx, rec, notification.TypeOnboardingDone,
		"Onboarding complete",
		fmt.Sprintf("The candidate for %s completed onboarding.", positionOf(rec)))
	return errors.Join(candidateErr, reviewerErr)
}

// EmploymentStarted 确认入职后通知机构全部招聘方
func (d *Dispatcher) EmploymentStarted(ctx context.Context, rec *model.OnboardingRecordModel) error {
	return d.toReviewers(ctx, rec, notification.TypeEmploymentStarted,
		"Employment started",
		fmt.Sprintf("The candidate for %s confirmed their first day of work.", positionOf(rec)))
}

// DeadlineReminder 开工日期临近提醒候选人
func (d *Dispatcher) DeadlineReminder(ctx context.Context, rec *model.OnboardingRecordModel, daysUntilStart int, urgent bool) error {
	var when string
	switch {
	case daysUntilStart <= 0:
		when = "today"
	case daysUntilStart == 1:
		when = "tomorrow"
	default:
		when = fmt.Sprintf("in %d days", daysUntilStart)
	}
	role := "your new role"
	if rec.Position != "" {
		role += " as " + rec.Position
	}
	return d.toCandidate(ctx, rec, notification.TypeDeadline,
		"Complete your onboarding before day one",
		fmt.Sprintf("You're starting %s %s. Your onboarding is %d%% complete; please finish the remaining steps.",
			role, when, rec.CompletionPercent),
		urgent)
}
