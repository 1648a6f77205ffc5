package onboarding_test

import (
	"testing"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/stretchr/testify/assert"
)

// TestValidatePayload 测试各类 section 的必填项
func TestValidatePayload(t *testing.T) {
	cases := []struct {
		name    string
		section onboarding.Section
		payload onboarding.Payload
		ok      bool
	}{
		{"personal info complete", onboarding.SectionPersonalInfo, onboarding.Payload{
			"first_name": "Ana", "last_name": "Reyes", "email": "ana@example.com", "contact_no": "09171234567",
		}, true},
		{"personal info blank field", onboarding.SectionPersonalInfo, onboarding.Payload{
			"first_name": "Ana", "last_name": "  ", "email": "ana@example.com", "contact_no": "09171234567",
		}, false},
		{"resume with reference", onboarding.SectionResume, onboarding.Payload{
			"documents": []interface{}{"onboarding/r1/resume/cv.pdf"},
		}, true},
		{"resume without reference", onboarding.SectionResume, onboarding.Payload{"documents": []string{""}}, false},
		{"signature present", onboarding.SectionSignature, onboarding.Payload{"signature_url": "sig.png"}, true},
		{"signature empty", onboarding.SectionSignature, onboarding.Payload{"signature_url": ""}, false},
		{"privacy accepted", onboarding.SectionDataPrivacy, onboarding.Payload{"accepted": true}, true},
		{"privacy not accepted", onboarding.SectionDataPrivacy, onboarding.Payload{}, false},
		{"emergency contact", onboarding.SectionEmergencyContact, onboarding.Payload{
			"name": "Jose Reyes", "relationship": "father", "phone": "09170000000",
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := onboarding.ValidatePayload(tc.section, tc.payload)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, onboarding.ErrValidation)
			}
		})
	}
}
