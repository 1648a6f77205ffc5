package onboarding

// Status section 状态
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// Valid 判断是否为已知状态
func (st Status) Valid() bool {
	switch st {
	case StatusPending, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Decision 审核结论
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// Target 审核结论对应的目标状态
func (d Decision) Target() (Status, error) {
	switch d {
	case DecisionApproved:
		return StatusApproved, nil
	case DecisionRejected:
		return StatusRejected, nil
	}
	return "", validationf("unknown decision %q", string(d))
}

// Statuses 按 Section 下标保存的状态集合
type Statuses [SectionCount]Status

// NewStatuses 创建全部为 PENDING 的状态集合
func NewStatuses() Statuses {
	var st Statuses
	for i := range st {
		st[i] = StatusPending
	}
	return st
}

// Get 返回指定 section 的状态
func (st Statuses) Get(s Section) Status {
	if !s.Valid() {
		return ""
	}
	return st[s]
}
