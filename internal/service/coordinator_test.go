package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/notification"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCreateRecord 测试创建入职记录
func TestCreateRecord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")

	rec := env.createRecord(t, "cand-1", "app-1", nil)
	assert.Equal(t, 0, rec.CompletionPercent)
	assert.False(t, rec.IsComplete)
	assert.False(t, rec.ContractSigned)
	for _, s := range onboarding.AllSections {
		assert.Equal(t, onboarding.StatusPending, rec.SectionStatus(s))
	}

	assert.Equal(t, []string{service.ActionRecordCreated}, env.actions(t, rec.ID))
	started := env.notes.byType(notification.TypeOnboardingStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "cand-1", started[0].RecipientID)
	assert.True(t, started[0].IsUrgent)

	_, err := env.coordinator.CreateRecord(ctx, admin, service.CreateRecordRequest{
		CandidateID: "cand-1", JobApplicationID: "app-1", AgencyID: "agency-1",
	})
	assert.ErrorIs(t, err, onboarding.ErrAlreadyExists)

	_, err = env.coordinator.CreateRecord(ctx, candidate, service.CreateRecordRequest{
		CandidateID: "cand-1", JobApplicationID: "app-2", AgencyID: "agency-1",
	})
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)

	_, err = env.coordinator.CreateRecord(ctx, outsider, service.CreateRecordRequest{
		CandidateID: "cand-1", JobApplicationID: "app-3", AgencyID: "agency-1",
	})
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)

	_, err = env.coordinator.CreateRecord(ctx, recruiter, service.CreateRecordRequest{
		CandidateID: "cand-1", JobApplicationID: "bad id!", AgencyID: "agency-1",
	})
	assert.ErrorIs(t, err, onboarding.ErrValidation)

	byRecruiter, err := env.coordinator.CreateRecord(ctx, recruiter, service.CreateRecordRequest{
		CandidateID: "cand-1", JobApplicationID: "app-4", AgencyID: "agency-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, byRecruiter.ID)
}

// TestCreateRecord_PrefillKeepsPending 预填数据不改变状态
func TestCreateRecord_PrefillKeepsPending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")

	rec, err := env.coordinator.CreateRecord(ctx, admin, service.CreateRecordRequest{
		CandidateID:      "cand-1",
		JobApplicationID: "app-1",
		AgencyID:         "agency-1",
		Prefill: map[onboarding.Section]onboarding.Payload{
			onboarding.SectionPersonalInfo: validPayload(onboarding.SectionPersonalInfo),
			onboarding.SectionResume:       validPayload(onboarding.SectionResume),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusPending, rec.SectionStatus(onboarding.SectionPersonalInfo))
	assert.Equal(t, onboarding.StatusPending, rec.SectionStatus(onboarding.SectionResume))
	assert.Equal(t, 0, rec.CompletionPercent)

	view, err := env.query.GetRecord(ctx, candidate, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", view.Sections[onboarding.SectionPersonalInfo].Data.String("email"))
}

// TestSubmitAndReview 提交、通过和宽松/严格口径
func TestSubmitAndReview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", nil)

	updated, err := env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionResume, validPayload(onboarding.SectionResume))
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusSubmitted, updated.SectionStatus(onboarding.SectionResume))
	assert.Equal(t, 13, updated.CompletionPercent)

	submitted := env.notes.byType(notification.TypeSectionSubmitted)
	require.Len(t, submitted, 2)
	assert.ElementsMatch(t, []string{"recruiter-1", "recruiter-2"}, []string{submitted[0].RecipientID, submitted[1].RecipientID})

	updated, err = env.coordinator.ReviewSection(ctx, recruiter, rec.ID, onboarding.SectionResume, onboarding.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusApproved, updated.SectionStatus(onboarding.SectionResume))
	assert.Equal(t, 13, updated.CompletionPercent)
	assert.Equal(t, 1, onboarding.Count(updated.Statuses(), onboarding.PolicyStrict))

	approved := env.notes.byType(notification.TypeSectionApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, "cand-1", approved[0].RecipientID)

	assert.Equal(t, []string{
		service.ActionRecordCreated,
		service.ActionSectionSubmitted,
		service.ActionSectionReviewed,
	}, env.actions(t, rec.ID))
}

// TestSubmit_AutoApproval 同意类 section 自动通过，不通知审核人
func TestSubmit_AutoApproval(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", nil)

	updated, err := env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionDataPrivacy, validPayload(onboarding.SectionDataPrivacy))
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusApproved, updated.SectionStatus(onboarding.SectionDataPrivacy))
	assert.Equal(t, 13, updated.CompletionPercent)
	assert.Empty(t, env.notes.byType(notification.TypeSectionSubmitted))

	events, err := env.activities.FindByRecordID(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	var reviewedBy string
	for _, e := range events {
		if e.Action == service.ActionSectionReviewed {
			reviewedBy = e.ActorRole
		}
	}
	assert.Equal(t, string(onboarding.RoleSystem), reviewedBy)

	_, err = env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionDataPrivacy, validPayload(onboarding.SectionDataPrivacy))
	assert.ErrorIs(t, err, onboarding.ErrInvalidTransition)
}

// TestReject_RequiresFeedback 驳回必须附带反馈，重新提交后再通过
func TestReject_RequiresFeedback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", nil)

	_, err := env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionMedical, validPayload(onboarding.SectionMedical))
	require.NoError(t, err)

	_, err = env.coordinator.ReviewSection(ctx, recruiter, rec.ID, onboarding.SectionMedical, onboarding.DecisionRejected, "   ")
	assert.ErrorIs(t, err, onboarding.ErrValidation)
	current, err := env.records.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusSubmitted, current.SectionStatus(onboarding.SectionMedical))

	rejected, err := env.coordinator.ReviewSection(ctx, colleague, rec.ID, onboarding.SectionMedical, onboarding.DecisionRejected, "certificate illegible")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusRejected, rejected.SectionStatus(onboarding.SectionMedical))
	assert.Equal(t, "certificate illegible", rejected.MedicalFeedback)
	assert.Equal(t, 0, rejected.CompletionPercent)

	notes := env.notes.byType(notification.TypeSectionRejected)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].IsUrgent)
	assert.True(t, strings.Contains(notes[0].Message, "certificate illegible"))

	resubmitted, err := env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionMedical, validPayload(onboarding.SectionMedical))
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusSubmitted, resubmitted.SectionStatus(onboarding.SectionMedical))

	approved, err := env.coordinator.ReviewSection(ctx, recruiter, rec.ID, onboarding.SectionMedical, onboarding.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusApproved, approved.SectionStatus(onboarding.SectionMedical))
	assert.Empty(t, approved.MedicalFeedback)

	_, err = env.coordinator.ReviewSection(ctx, recruiter, rec.ID, onboarding.SectionMedical, onboarding.Decision("MAYBE"), "")
	assert.ErrorIs(t, err, onboarding.ErrValidation)
}

// TestTransitions_Rejected 非法迁移和权限
func TestTransitions_Rejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", nil)

	_, err := env.coordinator.ReviewSection(ctx, recruiter, rec.ID, onboarding.SectionGovID, onboarding.DecisionApproved, "")
	var te *onboarding.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, onboarding.StatusPending, te.From)
	assert.Equal(t, onboarding.StatusApproved, te.To)

	_, err = env.coordinator.SubmitSection(ctx, otherCandidate, rec.ID, onboarding.SectionGovID, validPayload(onboarding.SectionGovID))
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)

	_, err = env.coordinator.SubmitSection(ctx, recruiter, rec.ID, onboarding.SectionGovID, validPayload(onboarding.SectionGovID))
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)

	_, err = env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionGovID, onboarding.Payload{})
	assert.ErrorIs(t, err, onboarding.ErrValidation)

	_, err = env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionPersonalInfo, onboarding.Payload{"first_name": "Maria"})
	assert.ErrorIs(t, err, onboarding.ErrValidation)

	_, err = env.coordinator.SubmitSection(ctx, candidate, "missing", onboarding.SectionGovID, validPayload(onboarding.SectionGovID))
	assert.ErrorIs(t, err, onboarding.ErrRecordNotFound)

	_, err = env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionGovID, validPayload(onboarding.SectionGovID))
	require.NoError(t, err)

	_, err = env.coordinator.ReviewSection(ctx, outsider, rec.ID, onboarding.SectionGovID, onboarding.DecisionApproved, "")
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)
	_, err = env.coordinator.ReviewSection(ctx, candidate, rec.ID, onboarding.SectionGovID, onboarding.DecisionApproved, "")
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)

	// 提交后等待审核期间不能再次提交
	_, err = env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionGovID, validPayload(onboarding.SectionGovID))
	assert.ErrorIs(t, err, onboarding.ErrInvalidTransition)

	current, err := env.records.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusSubmitted, current.SectionStatus(onboarding.SectionGovID))
	assert.Equal(t, onboarding.StatusPending, current.SectionStatus(onboarding.SectionPersonalInfo))
}

// TestCompletionGate 全部通过且签约后才算完成
func TestCompletionGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", nil)

	_, err := env.coordinator.ConfirmEmploymentStart(ctx, candidate, rec.ID)
	assert.ErrorIs(t, err, onboarding.ErrValidation)

	all := env.approveAll(t, rec.ID)
	assert.Equal(t, 100, all.CompletionPercent)
	assert.False(t, all.IsComplete)
	assert.Empty(t, env.notes.byType(notification.TypeOnboardingDone))

	_, err = env.coordinator.SignContract(ctx, recruiter, rec.ID)
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)

	signed, err := env.coordinator.SignContract(ctx, candidate, rec.ID)
	require.NoError(t, err)
	assert.True(t, signed.ContractSigned)
	assert.NotNil(t, signed.ContractSignedAt)
	assert.True(t, signed.IsComplete)

	done := env.notes.byType(notification.TypeOnboardingDone)
	require.Len(t, done, 3)

	_, err = env.coordinator.SignContract(ctx, candidate, rec.ID)
	assert.ErrorIs(t, err, onboarding.ErrAlreadyConfirmed)

	started, err := env.coordinator.ConfirmEmploymentStart(ctx, candidate, rec.ID)
	require.NoError(t, err)
	assert.True(t, started.EmploymentStarted)
	assert.NotNil(t, started.EmploymentStartDate)
	require.Len(t, env.notes.byType(notification.TypeEmploymentStarted), 2)

	_, err = env.coordinator.ConfirmEmploymentStart(ctx, candidate, rec.ID)
	assert.ErrorIs(t, err, onboarding.ErrAlreadyConfirmed)

	actions := env.actions(t, rec.ID)
	assert.Contains(t, actions, service.ActionContractSigned)
	assert.Equal(t, service.ActionEmploymentStarted, actions[len(actions)-1])
}

// TestSignContract_BeforeSections 先签约后审核，最后一次通过触发完成
func TestSignContract_BeforeSections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", nil)

	signed, err := env.coordinator.SignContract(ctx, candidate, rec.ID)
	require.NoError(t, err)
	assert.False(t, signed.IsComplete)

	all := env.approveAll(t, rec.ID)
	assert.True(t, all.IsComplete)
	assert.Len(t, env.notes.byType(notification.TypeOnboardingDone), 3)
}

// TestReopenSection 管理员重开 section
func TestReopenSection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", nil)
	env.approveAll(t, rec.ID)
	_, err := env.coordinator.SignContract(ctx, candidate, rec.ID)
	require.NoError(t, err)

	_, err = env.coordinator.ReopenSection(ctx, recruiter, rec.ID, onboarding.SectionResume, "outdated")
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)

	_, err = env.coordinator.ReopenSection(ctx, admin, rec.ID, onboarding.SectionResume, "  ")
	assert.ErrorIs(t, err, onboarding.ErrValidation)

	reopened, err := env.coordinator.ReopenSection(ctx, admin, rec.ID, onboarding.SectionResume, "outdated resume")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusPending, reopened.SectionStatus(onboarding.SectionResume))
	assert.Equal(t, 88, reopened.CompletionPercent)
	assert.False(t, reopened.IsComplete)

	notes := env.notes.byType(notification.TypeSectionReopened)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "outdated resume")

	_, err = env.coordinator.ReopenSection(ctx, admin, rec.ID, onboarding.SectionResume, "again")
	assert.ErrorIs(t, err, onboarding.ErrInvalidTransition)

	actions := env.actions(t, rec.ID)
	assert.Equal(t, service.ActionSectionReopened, actions[len(actions)-1])
}

// TestConcurrentReview 同一 section 并发审核只有一个成功
func TestConcurrentReview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", nil)
	_, err := env.coordinator.SubmitSection(ctx, candidate, rec.ID, onboarding.SectionEducation, validPayload(onboarding.SectionEducation))
	require.NoError(t, err)

	type outcome struct {
		err error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for _, r := range []struct {
		actor    onboarding.Actor
		decision onboarding.Decision
		feedback string
	}{
		{recruiter, onboarding.DecisionApproved, ""},
		{colleague, onboarding.DecisionRejected, "diploma not notarized"},
	} {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.coordinator.ReviewSection(ctx, r.actor, rec.ID, onboarding.SectionEducation, r.decision, r.feedback)
			results <- outcome{err: err}
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for res := range results {
		if res.err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(res.err, onboarding.ErrConcurrentModification) || errors.Is(res.err, onboarding.ErrInvalidTransition),
			"unexpected error: %v", res.err)
	}
	assert.Equal(t, 1, succeeded)

	reviewed := 0
	for _, a := range env.actions(t, rec.ID) {
		if a == service.ActionSectionReviewed {
			reviewed++
		}
	}
	assert.Equal(t, 1, reviewed)
}

// TestErrorReason 错误分类
func TestErrorReason(t *testing.T) {
	assert.Equal(t, "unauthorized", service.ErrorReason(onboarding.ErrUnauthorized))
	assert.Equal(t, "invalid_transition", service.ErrorReason(&onboarding.TransitionError{}))
	assert.Equal(t, "concurrent_modification", service.ErrorReason(onboarding.ErrConcurrentModification))
	assert.Equal(t, "internal", service.ErrorReason(errors.New("boom")))
}
