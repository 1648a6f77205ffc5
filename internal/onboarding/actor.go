package onboarding

// Role 操作者角色
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
	// RoleSystem 自动审批等系统行为
	RoleSystem Role = "system"
)

// IsReviewer 是否具备审核身份
func (r Role) IsReviewer() bool {
	return r == RoleRecruiter || r == RoleAdmin
}

// Actor 已认证的调用方
type Actor struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	AgencyID string `json:"agency_id,omitempty"`
}

// SystemActor 系统操作者
var SystemActor = Actor{ID: "system", Role: RoleSystem}
