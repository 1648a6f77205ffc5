package onboarding

import (
	"fmt"
	"strings"
)

// Section 入职要求项，固定 8 项
type Section int

const (
	SectionPersonalInfo Section = iota
	SectionGovID
	SectionEducation
	SectionMedical
	SectionDataPrivacy
	SectionResume
	SectionSignature
	SectionEmergencyContact

	// SectionCount section 总数
	SectionCount = 8
)

// Kind 描述一个 section 需要候选人提交的内容类型
type Kind string

const (
	KindForm        Kind = "form"
	KindUpload      Kind = "upload"
	KindAcknowledge Kind = "acknowledge"
	KindInformation Kind = "information"
	KindSign        Kind = "sign"
)

// AllSections 按展示顺序列出全部 section
var AllSections = [SectionCount]Section{
	SectionPersonalInfo,
	SectionGovID,
	SectionEducation,
	SectionMedical,
	SectionDataPrivacy,
	SectionResume,
	SectionSignature,
	SectionEmergencyContact,
}

type sectionSpec struct {
	key   string
	title string
	kind  Kind
}

var sectionSpecs = [SectionCount]sectionSpec{
	SectionPersonalInfo:     {key: "personal_info", title: "Personal Information", kind: KindForm},
	SectionGovID:            {key: "gov_id", title: "Government IDs", kind: KindUpload},
	SectionEducation:        {key: "education", title: "Education", kind: KindUpload},
	SectionMedical:          {key: "medical", title: "Medical Certificate", kind: KindUpload},
	SectionDataPrivacy:      {key: "data_privacy", title: "Data Privacy Consent", kind: KindAcknowledge},
	SectionResume:           {key: "resume", title: "Resume", kind: KindUpload},
	SectionSignature:        {key: "signature", title: "Digital Signature", kind: KindSign},
	SectionEmergencyContact: {key: "emergency_contact", title: "Emergency Contact", kind: KindForm},
}

// Valid 判断是否为已知 section
func (s Section) Valid() bool {
	return s >= SectionPersonalInfo && s <= SectionEmergencyContact
}

// Key 返回持久化和 URL 中使用的名称
func (s Section) Key() string {
	if !s.Valid() {
		return fmt.Sprintf("section(%d)", int(s))
	}
	return sectionSpecs[s].key
}

func (s Section) String() string {
	return s.Key()
}

// Title 返回用于通知文案的名称
func (s Section) Title() string {
	if !s.Valid() {
		return s.Key()
	}
	return sectionSpecs[s].title
}

// Kind 返回 section 类型
func (s Section) Kind() Kind {
	if !s.Valid() {
		return ""
	}
	return sectionSpecs[s].kind
}

// AutoApproves 提交即自动通过（纯确认类、纯信息类）
func (s Section) AutoApproves() bool {
	k := s.Kind()
	return k == KindAcknowledge || k == KindInformation
}

// StatusColumn 状态列名
func (s Section) StatusColumn() string {
	return s.Key() + "_status"
}

// FeedbackColumn 审核意见列名
func (s Section) FeedbackColumn() string {
	return s.Key() + "_feedback"
}

// PayloadColumn 提交数据列名
func (s Section) PayloadColumn() string {
	return s.Key() + "_data"
}

// ParseSection 根据名称解析 section
func ParseSection(key string) (Section, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range AllSections {
		if sectionSpecs[s].key == key {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown section %q", ErrValidation, key)
}
