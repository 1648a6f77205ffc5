package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/notification"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(d time.Duration) *time.Time {
	t := time.Now().Add(d)
	return &t
}

// TestDaysUntil 向上取整到天
func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		start time.Time
		want  int
	}{
		{"past", now.Add(-time.Hour), 0},
		{"now", now, 0},
		{"in one hour", now.Add(time.Hour), 1},
		{"exactly one day", now.Add(24 * time.Hour), 1},
		{"one day and a minute", now.Add(24*time.Hour + time.Minute), 2},
		{"three days", now.Add(72 * time.Hour), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.DaysUntil(now, tt.start))
		})
	}
}

// TestDeadlineScanner_Scan 只提醒窗口内未完成的记录
func TestDeadlineScanner_Scan(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")

	soon := env.createRecord(t, "cand-1", "app-1", at(12*time.Hour))
	later := env.createRecord(t, "cand-2", "app-2", at(50*time.Hour))
	env.createRecord(t, "cand-3", "app-3", at(10*24*time.Hour))
	env.createRecord(t, "cand-4", "app-4", at(-2*time.Hour))
	env.createRecord(t, "cand-5", "app-5", nil)

	scanner := service.NewDeadlineScanner(env.records, env.dispatcher, 72*time.Hour, 2, env.logger)
	result, err := scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 2, result.Dispatched)
	assert.Equal(t, 0, result.Failed)

	reminders := env.notes.byType(notification.TypeDeadline)
	require.Len(t, reminders, 2)
	byRecord := map[string]notification.Notification{}
	for _, n := range reminders {
		byRecord[n.RelatedID] = n
	}
	assert.True(t, byRecord[soon.ID].IsUrgent)
	assert.Contains(t, byRecord[soon.ID].Message, "tomorrow")
	assert.False(t, byRecord[later.ID].IsUrgent)
	assert.Contains(t, byRecord[later.ID].Message, "in 3 days")
	assert.Equal(t, "cand-2", byRecord[later.ID].RecipientID)

	// 扫描只读，不写活动日志
	assert.Equal(t, []string{service.ActionRecordCreated}, env.actions(t, soon.ID))

	// 重复执行会重复提醒
	_, err = scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, env.notes.byType(notification.TypeDeadline), 4)
}

// TestDeadlineScanner_LookAhead 运行时调整窗口
func TestDeadlineScanner_LookAhead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	env.createRecord(t, "cand-1", "app-1", at(5*24*time.Hour))

	scanner := service.NewDeadlineScanner(env.records, env.dispatcher, 0, 0, env.logger)
	assert.Equal(t, 72*time.Hour, scanner.LookAhead())

	result, err := scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)

	scanner.SetLookAhead(7 * 24 * time.Hour)
	result, err = scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
}

// TestDeadlineScanner_CompletedSkipped 已完成的记录不提醒
func TestDeadlineScanner_CompletedSkipped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	rec := env.createRecord(t, "cand-1", "app-1", at(24*time.Hour))
	env.approveAll(t, rec.ID)
	_, err := env.coordinator.SignContract(ctx, candidate, rec.ID)
	require.NoError(t, err)

	scanner := service.NewDeadlineScanner(env.records, env.dispatcher, 72*time.Hour, 1, env.logger)
	result, err := scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
}

// TestDeadlineScheduler 启动后立即扫描一次，Stop 可重复调用
func TestDeadlineScheduler(t *testing.T) {
	env := newTestEnv(t, "")
	env.createRecord(t, "cand-1", "app-1", at(12*time.Hour))

	scanner := service.NewDeadlineScanner(env.records, env.dispatcher, 72*time.Hour, 1, env.logger)
	scheduler := service.NewDeadlineScheduler(scanner, time.Hour, env.logger)
	scheduler.Start(context.Background())

	require.Eventually(t, func() bool {
		return len(env.notes.byType(notification.TypeDeadline)) == 1
	}, time.Second, 10*time.Millisecond)

	scheduler.Stop()
	scheduler.Stop()
}
