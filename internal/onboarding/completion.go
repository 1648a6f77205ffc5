package onboarding

import "math"

// Policy 完成度统计口径
type Policy int

const (
	// PolicyStrict 只统计 APPROVED，决定 is_complete
	PolicyStrict Policy = iota
	// PolicyLenient 统计 APPROVED 和 SUBMITTED，用于候选人进度展示
	PolicyLenient
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "lenient"
}

// Counts 判断某状态在该口径下是否计入
func (p Policy) Counts(st Status) bool {
	if p == PolicyStrict {
		return st == StatusApproved
	}
	return st == StatusApproved || st == StatusSubmitted
}

// Count 统计计入的 section 数量
func Count(st Statuses, p Policy) int {
	n := 0
	for _, s := range st {
		if p.Counts(s) {
			n++
		}
	}
	return n
}

// Percent round(100 × n / 8)
func Percent(st Statuses, p Policy) int {
	return int(math.Round(100 * float64(Count(st, p)) / SectionCount))
}

// IsComplete 全部 APPROVED 且合同已签
func IsComplete(st Statuses, contractSigned bool) bool {
	return Count(st, PolicyStrict) == SectionCount && contractSigned
}

// Aggregate 记录上持久化的派生字段
type Aggregate struct {
	CompletionPercent int
	IsComplete        bool
}

// Recompute 重新计算派生字段
// completion_percent 采用宽松口径，is_complete 采用严格口径
func Recompute(st Statuses, contractSigned bool) Aggregate {
	return Aggregate{
		CompletionPercent: Percent(st, PolicyLenient),
		IsComplete:        IsComplete(st, contractSigned),
	}
}
