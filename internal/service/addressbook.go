package service

import (
	"context"
	"fmt"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
)

// CandidateAddressBook 从候选人最近一次填写的个人信息中取邮箱
// 招聘方不在记录中登记邮箱，返回空串
type CandidateAddressBook struct {
	records repository.OnboardingRepository
	codec   *utils.PayloadCodec
}

// NewCandidateAddressBook 创建地址簿
func NewCandidateAddressBook(records repository.OnboardingRepository, codec *utils.PayloadCodec) *CandidateAddressBook {
	return &CandidateAddressBook{records: records, codec: codec}
}

// EmailFor 返回候选人邮箱
func (b *CandidateAddressBook) EmailFor(ctx context.Context, userID string) (string, error) {
	records, _, err := b.records.List(ctx, &repository.RecordFilter{
		CandidateID: userID,
		SortBy:      "updated_at",
		Order:       "desc",
		PageSize:    10,
	})
	if err != nil {
		return "", fmt.Errorf("failed to load records for %s: %w", userID, err)
	}

	for _, rec := range records {
		data := *rec.Fields(onboarding.SectionPersonalInfo).Data
		if len(data) == 0 {
			continue
		}
		var payload onboarding.Payload
		if err := b.codec.Open(data, &payload); err != nil {
			return "", fmt.Errorf("failed to open personal info of record %s: %w", rec.ID, err)
		}
		if email := payload.String("email"); email != "" {
			return email, nil
		}
	}
	return "", nil
}
