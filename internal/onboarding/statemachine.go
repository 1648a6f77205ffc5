package onboarding

type edge struct {
	from Status
	to   Status
}

var (
	candidateEdges = map[edge]bool{
		{StatusPending, StatusSubmitted}:  true,
		{StatusRejected, StatusSubmitted}: true,
	}
	reviewerEdges = map[edge]bool{
		{StatusSubmitted, StatusApproved}: true,
		{StatusSubmitted, StatusRejected}: true,
	}
)

// Transition 校验单个 section 的状态迁移
// 非法迁移返回 *TransitionError
func Transition(section Section, from, to Status, role Role) (Status, error) {
	if !section.Valid() {
		return "", validationf("unknown section %d", int(section))
	}

	e := edge{from, to}
	allowed := false
	switch {
	case role == RoleCandidate:
		allowed = candidateEdges[e]
	case role.IsReviewer():
		allowed = reviewerEdges[e]
	case role == RoleSystem:
		// 仅自动审批类 section 可从 PENDING 直接通过
		allowed = from == StatusPending && to == StatusApproved && section.AutoApproves()
	}

	if !allowed {
		return "", &TransitionError{Section: section, From: from, To: to, Role: role}
	}
	return to, nil
}

// SubmitTarget 候选人提交后 section 的目标状态及执行角色
func SubmitTarget(section Section, from Status) (Status, Role) {
	if from == StatusPending && section.AutoApproves() {
		return StatusApproved, RoleSystem
	}
	return StatusSubmitted, RoleCandidate
}

// Reopen 管理员重新打开已处理的 section
func Reopen(section Section, from Status, role Role) (Status, error) {
	if !section.Valid() {
		return "", validationf("unknown section %d", int(section))
	}
	if role != RoleAdmin {
		return "", ErrUnauthorized
	}
	if from == StatusPending {
		return "", &TransitionError{Section: section, From: from, To: StatusPending, Role: role}
	}
	return StatusPending, nil
}
