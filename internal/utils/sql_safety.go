package utils

import (
	"errors"
	"regexp"
	"strings"
)

var sortFieldPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// sortableColumns 允许排序的列
var sortableColumns = map[string]bool{
	"created_at":         true,
	"updated_at":         true,
	"start_date":         true,
	"completion_percent": true,
	"position":           true,
}

// ValidateSortField 验证排序字段，只接受白名单中的列
func ValidateSortField(field string) error {
	if field == "" {
		return errors.New("sort field cannot be empty")
	}
	if !sortFieldPattern.MatchString(field) {
		return errors.New("invalid sort field format")
	}
	if !sortableColumns[field] {
		return errors.New("sort field is not sortable: " + field)
	}
	return nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	upper := strings.ToUpper(strings.TrimSpace(order))
	if upper != "ASC" && upper != "DESC" {
		return errors.New("sort order must be ASC or DESC")
	}
	return nil
}
