package onboarding_test

import (
	"errors"
	"testing"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []onboarding.Status{
	onboarding.StatusPending,
	onboarding.StatusSubmitted,
	onboarding.StatusApproved,
	onboarding.StatusRejected,
}

// TestTransition_CandidateEdges 测试候选人只能提交或重新提交
func TestTransition_CandidateEdges(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got, err := onboarding.Transition(onboarding.SectionResume, from, to, onboarding.RoleCandidate)
			legal := to == onboarding.StatusSubmitted &&
				(from == onboarding.StatusPending || from == onboarding.StatusRejected)
			if legal {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, got)
			} else {
				assert.ErrorIs(t, err, onboarding.ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

// TestTransition_ReviewerEdges 测试审核人只能处理 SUBMITTED
func TestTransition_ReviewerEdges(t *testing.T) {
	for _, role := range []onboarding.Role{onboarding.RoleRecruiter, onboarding.RoleAdmin} {
		for _, from := range allStatuses {
			for _, to := range allStatuses {
				_, err := onboarding.Transition(onboarding.SectionMedical, from, to, role)
				legal := from == onboarding.StatusSubmitted &&
					(to == onboarding.StatusApproved || to == onboarding.StatusRejected)
				if legal {
					assert.NoError(t, err, "%s: %s -> %s", role, from, to)
				} else {
					assert.ErrorIs(t, err, onboarding.ErrInvalidTransition, "%s: %s -> %s", role, from, to)
				}
			}
		}
	}
}

// TestTransition_RejectedToApprovedAlwaysIllegal 测试 REJECTED 不能直接通过
func TestTransition_RejectedToApprovedAlwaysIllegal(t *testing.T) {
	roles := []onboarding.Role{onboarding.RoleCandidate, onboarding.RoleRecruiter, onboarding.RoleAdmin, onboarding.RoleSystem}
	for _, s := range onboarding.AllSections {
		for _, role := range roles {
			_, err := onboarding.Transition(s, onboarding.StatusRejected, onboarding.StatusApproved, role)
			assert.ErrorIs(t, err, onboarding.ErrInvalidTransition, "%s as %s", s, role)
		}
	}
}

// TestTransition_ErrorCarriesEdge 测试错误携带 from/to
func TestTransition_ErrorCarriesEdge(t *testing.T) {
	_, err := onboarding.Transition(onboarding.SectionGovID, onboarding.StatusSubmitted, onboarding.StatusSubmitted, onboarding.RoleCandidate)
	var te *onboarding.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, onboarding.SectionGovID, te.Section)
	assert.Equal(t, onboarding.StatusSubmitted, te.From)
	assert.Equal(t, onboarding.StatusSubmitted, te.To)
	assert.Contains(t, err.Error(), "SUBMITTED -> SUBMITTED")
}

// TestTransition_SystemAutoApproval 测试系统自动审批只适用于确认类 section
func TestTransition_SystemAutoApproval(t *testing.T) {
	got, err := onboarding.Transition(onboarding.SectionDataPrivacy, onboarding.StatusPending, onboarding.StatusApproved, onboarding.RoleSystem)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusApproved, got)

	_, err = onboarding.Transition(onboarding.SectionResume, onboarding.StatusPending, onboarding.StatusApproved, onboarding.RoleSystem)
	assert.ErrorIs(t, err, onboarding.ErrInvalidTransition)
}

// TestSubmitTarget 测试提交目标状态
func TestSubmitTarget(t *testing.T) {
	to, role := onboarding.SubmitTarget(onboarding.SectionDataPrivacy, onboarding.StatusPending)
	assert.Equal(t, onboarding.StatusApproved, to)
	assert.Equal(t, onboarding.RoleSystem, role)

	to, role = onboarding.SubmitTarget(onboarding.SectionDataPrivacy, onboarding.StatusRejected)
	assert.Equal(t, onboarding.StatusSubmitted, to)
	assert.Equal(t, onboarding.RoleCandidate, role)

	to, role = onboarding.SubmitTarget(onboarding.SectionSignature, onboarding.StatusPending)
	assert.Equal(t, onboarding.StatusSubmitted, to)
	assert.Equal(t, onboarding.RoleCandidate, role)
}

// TestReopen 测试管理员重新打开
func TestReopen(t *testing.T) {
	got, err := onboarding.Reopen(onboarding.SectionResume, onboarding.StatusApproved, onboarding.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusPending, got)

	_, err = onboarding.Reopen(onboarding.SectionResume, onboarding.StatusApproved, onboarding.RoleRecruiter)
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)

	_, err = onboarding.Reopen(onboarding.SectionResume, onboarding.StatusPending, onboarding.RoleAdmin)
	assert.ErrorIs(t, err, onboarding.ErrInvalidTransition)
}

// TestParseSection 测试 section 解析
func TestParseSection(t *testing.T) {
	for _, s := range onboarding.AllSections {
		got, err := onboarding.ParseSection(s.Key())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := onboarding.ParseSection("bank_details")
	assert.ErrorIs(t, err, onboarding.ErrValidation)
	assert.Equal(t, "data_privacy_status", onboarding.SectionDataPrivacy.StatusColumn())
}
