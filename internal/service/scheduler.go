package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DeadlineScheduler 进程内定时触发扫描
// 生产环境通常由外部 cron 调用 scan-deadlines 命令
type DeadlineScheduler struct {
	scanner  *DeadlineScanner
	interval time.Duration
	logger   logrus.FieldLogger
	stopChan chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewDeadlineScheduler 创建调度器
func NewDeadlineScheduler(scanner *DeadlineScanner, interval time.Duration, logger logrus.FieldLogger) *DeadlineScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &DeadlineScheduler{
		scanner:  scanner,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start 启动调度，立即执行一次
func (s *DeadlineScheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)
		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop 停止调度并等待当前扫描结束
func (s *DeadlineScheduler) Stop() {
	s.once.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *DeadlineScheduler) runOnce(ctx context.Context) {
	if _, err := s.scanner.Scan(ctx); err != nil {
		s.logger.WithError(err).Error("Scheduled deadline scan failed")
	}
}
