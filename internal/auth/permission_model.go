package auth

import (
	"fmt"

	"github.com/openfga/go-sdk/client"
)

const (
	// ObjectOnboardingRecord 入职记录对象类型
	ObjectOnboardingRecord = "onboarding_record"
	// ObjectAgency 机构对象类型
	ObjectAgency = "agency"

	RelationReviewer  = "reviewer"
	RelationCandidate = "candidate"
	RelationAgency    = "agency"
)

// GetPermissionModel 获取 OpenFGA 权限模型定义
// 机构招聘方自动成为该机构下入职记录的审核人
func GetPermissionModel() string {
	return `model
  schema 1.1

type user

type agency
  relations
    define recruiter: [user]

type onboarding_record
  relations
    define agency: [agency]
    define candidate: [user]
    define reviewer: [user] or recruiter from agency
    define viewer: candidate or reviewer`
}

// UserSubject user:<id>
func UserSubject(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// Object <type>:<id>
func Object(objectType, objectID string) string {
	return fmt.Sprintf("%s:%s", objectType, objectID)
}

// RecordTuples 新建入职记录时写入的关系
func RecordTuples(recordID, candidateID, agencyID string) []client.ClientTupleKey {
	record := Object(ObjectOnboardingRecord, recordID)
	return []client.ClientTupleKey{
		{User: Object(ObjectAgency, agencyID), Relation: RelationAgency, Object: record},
		{User: UserSubject(candidateID), Relation: RelationCandidate, Object: record},
	}
}
