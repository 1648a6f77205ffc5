package onboarding

import (
	"strings"
)

// Payload section 提交数据，引擎只检查必填项是否存在
type Payload map[string]interface{}

// DocumentsKey 上传类 section 的文档引用列表
const DocumentsKey = "documents"

var requiredFormFields = map[Section][]string{
	SectionPersonalInfo:     {"first_name", "last_name", "email", "contact_no"},
	SectionEmergencyContact: {"name", "relationship", "phone"},
}

// ValidatePayload 校验 section 的必填字段
func ValidatePayload(section Section, p Payload) error {
	switch section.Kind() {
	case KindForm:
		var missing []string
		for _, f := range requiredFormFields[section] {
			if !p.hasString(f) {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return validationf("%s requires %s", section, strings.Join(missing, ", "))
		}
	case KindUpload:
		if len(p.Documents()) == 0 {
			return validationf("%s requires at least one document reference", section)
		}
	case KindSign:
		if !p.hasString("signature_url") {
			return validationf("%s requires a signature reference", section)
		}
	case KindAcknowledge:
		if accepted, _ := p["accepted"].(bool); !accepted {
			return validationf("%s must be accepted", section)
		}
	case KindInformation:
		// 纯信息类无需提交内容
	default:
		return validationf("unknown section %d", int(section))
	}
	return nil
}

// String 读取字符串字段
func (p Payload) String(key string) string {
	v, _ := p[key].(string)
	return strings.TrimSpace(v)
}

func (p Payload) hasString(key string) bool {
	return p.String(key) != ""
}

// Documents 返回非空的文档引用
func (p Payload) Documents() []string {
	var refs []string
	switch v := p[DocumentsKey].(type) {
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				refs = append(refs, s)
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				refs = append(refs, s)
			}
		}
	}
	return refs
}
