package service

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/metrics"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLookAhead   = 3 * 24 * time.Hour
	defaultConcurrency = 4
)

// ScanResult 一次扫描的结果
type ScanResult struct {
	Matched    int `json:"matched"`
	Dispatched int `json:"dispatched"`
	Failed     int `json:"failed"`
}

// DeadlineScanner 开工日期临近且未完成的记录提醒
// 只读取记录，不修改 section 状态；重复执行会重复提醒
type DeadlineScanner struct {
	records     repository.OnboardingRepository
	dispatcher  *Dispatcher
	lookAhead   atomic.Int64
	concurrency int
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewDeadlineScanner 创建扫描器
func NewDeadlineScanner(records repository.OnboardingRepository, dispatcher *Dispatcher, lookAhead time.Duration, concurrency int, logger logrus.FieldLogger) *DeadlineScanner {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	s := &DeadlineScanner{
		records:     records,
		dispatcher:  dispatcher,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
	s.SetLookAhead(lookAhead)
	return s
}

// SetLookAhead 调整提醒窗口，配置热更新时调用
func (s *DeadlineScanner) SetLookAhead(d time.Duration) {
	if d <= 0 {
		d = defaultLookAhead
	}
	s.lookAhead.Store(int64(d))
}

// LookAhead 当前提醒窗口
func (s *DeadlineScanner) LookAhead() time.Duration {
	return time.Duration(s.lookAhead.Load())
}

// Scan 查询窗口内的记录并发送提醒
// 单条提醒失败不影响其他记录
func (s *DeadlineScanner) Scan(ctx context.Context) (*ScanResult, error) {
	now := s.now().UTC()
	records, err := s.records.FindDueForReminder(ctx, now, now.Add(s.LookAhead()))
	if err != nil {
		return nil, fmt.Errorf("failed to query records due for reminder: %w", err)
	}

	result := &ScanResult{Matched: len(records)}
	var dispatched, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if gctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			days := DaysUntil(now, *rec.StartDate)
			urgent := days <= 1
			if err := s.dispatcher.DeadlineReminder(gctx, rec, days, urgent); err != nil {
				failed.Add(1)
				s.logger.WithError(err).WithFields(logrus.Fields{
					"record_id":    rec.ID,
					"candidate_id": rec.CandidateID,
				}).Warn("Failed to dispatch deadline reminder")
				return nil
			}
			dispatched.Add(1)
			metrics.RecordReminder(urgent)
			return nil
		})
	}
	// 每个任务自行处理错误
	_ = g.Wait()

	result.Dispatched = int(dispatched.Load())
	result.Failed = int(failed.Load())

	s.logger.WithFields(logrus.Fields{
		"matched":    result.Matched,
		"dispatched": result.Dispatched,
		"failed":     result.Failed,
		"look_ahead": s.LookAhead().String(),
	}).Info("Deadline scan finished")
	return result, nil
}

// DaysUntil 距离开工的天数，向上取整，已过去按 0
func DaysUntil(now, start time.Time) int {
	d := start.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

