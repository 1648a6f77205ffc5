package model

import (
	"errors"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
)

// OnboardingRecordModel 入职记录数据模型
// 每个 (候选人, 职位申请) 唯一
type OnboardingRecordModel struct {
	ID               string `gorm:"primaryKey;type:varchar(64)"`
	CandidateID      string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_onboarding_candidate_application"`
	JobApplicationID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_onboarding_candidate_application"`
	AgencyID         string `gorm:"type:varchar(64);not null;index"`
	Position         string `gorm:"type:varchar(255)"`

	PersonalInfoStatus       string `gorm:"column:personal_info_status;type:varchar(16);not null;default:'PENDING'"`
	PersonalInfoFeedback     string `gorm:"column:personal_info_feedback;type:text"`
	PersonalInfoData         []byte `gorm:"column:personal_info_data;type:text"`
	GovIDStatus              string `gorm:"column:gov_id_status;type:varchar(16);not null;default:'PENDING'"`
	GovIDFeedback            string `gorm:"column:gov_id_feedback;type:text"`
	GovIDData                []byte `gorm:"column:gov_id_data;type:text"`
	EducationStatus          string `gorm:"column:education_status;type:varchar(16);not null;default:'PENDING'"`
	EducationFeedback        string `gorm:"column:education_feedback;type:text"`
	EducationData            []byte `gorm:"column:education_data;type:text"`
	MedicalStatus            string `gorm:"column:medical_status;type:varchar(16);not null;default:'PENDING'"`
	MedicalFeedback          string `gorm:"column:medical_feedback;type:text"`
	MedicalData              []byte `gorm:"column:medical_data;type:text"`
	DataPrivacyStatus        string `gorm:"column:data_privacy_status;type:varchar(16);not null;default:'PENDING'"`
	DataPrivacyFeedback      string `gorm:"column:data_privacy_feedback;type:text"`
	DataPrivacyData          []byte `gorm:"column:data_privacy_data;type:text"`
	ResumeStatus             string `gorm:"column:resume_status;type:varchar(16);not null;default:'PENDING'"`
	ResumeFeedback           string `gorm:"column:resume_feedback;type:text"`
	ResumeData               []byte `gorm:"column:resume_data;type:text"`
	SignatureStatus          string `gorm:"column:signature_status;type:varchar(16);not null;default:'PENDING'"`
	SignatureFeedback        string `gorm:"column:signature_feedback;type:text"`
	SignatureData            []byte `gorm:"column:signature_data;type:text"`
	EmergencyContactStatus   string `gorm:"column:emergency_contact_status;type:varchar(16);not null;default:'PENDING'"`
	EmergencyContactFeedback string `gorm:"column:emergency_contact_feedback;type:text"`
	EmergencyContactData     []byte `gorm:"column:emergency_contact_data;type:text"`

	// 派生字段，只由 onboarding.Recompute 写入
	CompletionPercent int  `gorm:"not null;default:0"`
	IsComplete        bool `gorm:"not null;default:false;index"`

	ContractSigned      bool       `gorm:"not null;default:false"`
	ContractSignedAt    *time.Time
	EmploymentStarted   bool       `gorm:"not null;default:false"`
	EmploymentStartDate *time.Time
	StartDate           *time.Time `gorm:"index"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (OnboardingRecordModel) TableName() string {
	return "onboarding_records"
}

// SectionFields section 对应的三个字段
type SectionFields struct {
	Status   *string
	Feedback *string
	Data     *[]byte
}

// Fields 返回 section 对应字段的指针
func (m *OnboardingRecordModel) Fields(s onboarding.Section) SectionFields {
	switch s {
	case onboarding.SectionPersonalInfo:
		return SectionFields{&m.PersonalInfoStatus, &m.PersonalInfoFeedback, &m.PersonalInfoData}
	case onboarding.SectionGovID:
		return SectionFields{&m.GovIDStatus, &m.GovIDFeedback, &m.GovIDData}
	case onboarding.SectionEducation:
		return SectionFields{&m.EducationStatus, &m.EducationFeedback, &m.EducationData}
	case onboarding.SectionMedical:
		return SectionFields{&m.MedicalStatus, &m.MedicalFeedback, &m.MedicalData}
	case onboarding.SectionDataPrivacy:
		return SectionFields{&m.DataPrivacyStatus, &m.DataPrivacyFeedback, &m.DataPrivacyData}
	case onboarding.SectionResume:
		return SectionFields{&m.ResumeStatus, &m.ResumeFeedback, &m.ResumeData}
	case onboarding.SectionSignature:
		return SectionFields{&m.SignatureStatus, &m.SignatureFeedback, &m.SignatureData}
	case onboarding.SectionEmergencyContact:
		return SectionFields{&m.EmergencyContactStatus, &m.EmergencyContactFeedback, &m.EmergencyContactData}
	}
	return SectionFields{}
}

// SectionStatus 返回 section 当前状态
func (m *OnboardingRecordModel) SectionStatus(s onboarding.Section) onboarding.Status {
	f := m.Fields(s)
	if f.Status == nil {
		return ""
	}
	return onboarding.Status(*f.Status)
}

// Statuses 返回全部 section 状态
func (m *OnboardingRecordModel) Statuses() onboarding.Statuses {
	var st onboarding.Statuses
	for _, s := range onboarding.AllSections {
		st[s] = m.SectionStatus(s)
	}
	return st
}

// InitSections 将全部 section 置为 PENDING
func (m *OnboardingRecordModel) InitSections() {
	for _, s := range onboarding.AllSections {
		*m.Fields(s).Status = string(onboarding.StatusPending)
	}
}

// Validate 验证入职记录
func (m *OnboardingRecordModel) Validate() error {
	if m.ID == "" {
		return errors.New("record ID is required")
	}
	if m.CandidateID == "" {
		return errors.New("candidate ID is required")
	}
	if m.JobApplicationID == "" {
		return errors.New("job application ID is required")
	}
	if m.AgencyID == "" {
		return errors.New("agency ID is required")
	}
	for _, s := range onboarding.AllSections {
		if !m.SectionStatus(s).Valid() {
			return errors.New("invalid status for section " + s.Key())
		}
	}
	return nil
}
