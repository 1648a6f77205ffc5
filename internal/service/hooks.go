package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Hook 提交后执行的副作用，失败只记录日志
type Hook struct {
	Name string
	Run  func(ctx context.Context) error
}

// hookBatch 同一次操作产生的钩子，按顺序执行
type hookBatch struct {
	ctx   context.Context
	hooks []Hook
}

// HookRunnerConfig 钩子执行配置
type HookRunnerConfig struct {
	Async     bool
	Workers   int
	QueueSize int
}

// HookRunner 在状态写入提交后执行审计、通知等副作用
// 异步模式下由固定 worker 消费队列，队列满时丢弃
type HookRunner struct {
	cfg    HookRunnerConfig
	queue  chan hookBatch
	logger logrus.FieldLogger
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewHookRunner 创建钩子执行器
func NewHookRunner(cfg HookRunnerConfig, logger logrus.FieldLogger) *HookRunner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	r := &HookRunner{cfg: cfg, logger: logger}
	if cfg.Async {
		r.queue = make(chan hookBatch, cfg.QueueSize)
		for i := 0; i < cfg.Workers; i++ {
			r.wg.Add(1)
			go r.worker()
		}
	}
	return r
}

// Run 执行一组钩子，不向调用方返回错误
// ctx 的取消不会传递给钩子
func (r *HookRunner) Run(ctx context.Context, hooks ...Hook) {
	if len(hooks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if !r.cfg.Async {
		r.execute(ctx, hooks)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.execute(ctx, hooks)
		return
	}

	select {
	case r.queue <- hookBatch{ctx: ctx, hooks: hooks}:
		metrics.SetHookQueueLength(len(r.queue))
	default:
		for _, h := range hooks {
			metrics.RecordHookFailure(h.Name)
			r.logger.WithFields(logrus.Fields{
				"hook":       h.Name,
				"request_id": RequestIDFromContext(ctx),
			}).Error("Hook queue full, dropping hook")
		}
	}
}

// Stop 停止接收并等待队列中的钩子执行完
func (r *HookRunner) Stop() {
	if !r.cfg.Async {
		return
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *HookRunner) worker() {
	defer r.wg.Done()
	for batch := range r.queue {
		metrics.SetHookQueueLength(len(r.queue))
		r.execute(batch.ctx, batch.hooks)
	}
}

func (r *HookRunner) execute(ctx context.Context, hooks []Hook) {
	for _, h := range hooks {
		if err := r.safeRun(ctx, h); err != nil {
			metrics.RecordHookFailure(h.Name)
			r.logger.WithError(err).WithFields(logrus.Fields{
				"hook":       h.Name,
				"request_id": RequestIDFromContext(ctx),
			}).Warn("Post-commit hook failed")
		}
	}
}

// safeRun 单个钩子 panic 不影响后续钩子
func (r *HookRunner) safeRun(ctx context.Context, h Hook) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hook panicked: %v", p)
		}
	}()
	return h.Run(ctx)
}
