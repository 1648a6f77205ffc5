package model

import "time"

// AgencyRecruiterModel 招聘方与机构的归属关系
type AgencyRecruiterModel struct {
	AgencyID  string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `gorm:"primaryKey;type:varchar(64);index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (AgencyRecruiterModel) TableName() string {
	return "agency_recruiters"
}
