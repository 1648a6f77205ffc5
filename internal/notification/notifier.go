package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/metrics"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/sirupsen/logrus"
)

// Type 通知类型
type Type string

const (
	TypeOnboardingStarted Type = "onboarding_started"
	TypeSectionSubmitted  Type = "onboarding_section_submitted"
	TypeSectionApproved   Type = "onboarding_section_approved"
	TypeSectionRejected   Type = "onboarding_section_rejected"
	TypeSectionReopened   Type = "onboarding_section_reopened"
	TypeContractSigned    Type = "onboarding_contract_signed"
	TypeOnboardingDone    Type = "onboarding_complete"
	TypeEmploymentStarted Type = "employment_started"
	TypeDeadline          Type = "onboarding_deadline"
)

// Notification 一条待投递的通知
type Notification struct {
	RecipientID   string          `json:"recipientId"`
	RecipientRole onboarding.Role `json:"recipientRole"`
	Type          Type            `json:"type"`
	Title         string          `json:"title"`
	Message       string          `json:"message"`
	ActionURL     string          `json:"actionUrl"`
	RelatedID     string          `json:"relatedId"`
	IsUrgent      bool            `json:"isUrgent"`
}

// Validate 接收人、类型和标题必填
func (n Notification) Validate() error {
	if n.RecipientID == "" {
		return errors.New("recipient is required")
	}
	if n.Type == "" {
		return errors.New("notification type is required")
	}
	if n.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

// Notifier 通知通道
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc 函数适配
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify 调用函数本身
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// channel 具名通道
type channel struct {
	name     string
	notifier Notifier
}

// Multi 向多个通道分发，每个通道独立失败
type Multi struct {
	channels []channel
	logger   logrus.FieldLogger
}

// NewMulti 创建分发器
func NewMulti(logger logrus.FieldLogger) *Multi {
	return &Multi{logger: logger}
}

// Add 追加通道，nil 忽略
func (m *Multi) Add(name string, n Notifier) *Multi {
	if n != nil {
		m.channels = append(m.channels, channel{name: name, notifier: n})
	}
	return m
}

// Channels 已注册的通道名
func (m *Multi) Channels() []string {
	names := make([]string, len(m.channels))
	for i, ch := range m.channels {
		names[i] = ch.name
	}
	return names
}

// Notify 投递到全部通道，返回合并后的错误
func (m *Multi) Notify(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	var errs []error
	for _, ch := range m.channels {
		err := ch.notifier.Notify(ctx, n)
		switch {
		case errors.Is(err, ErrSkipped):
			metrics.RecordNotification(ch.name, string(n.Type), "skipped")
		case err != nil:
			metrics.RecordNotification(ch.name, string(n.Type), "failed")
			m.logger.WithError(err).WithFields(logrus.Fields{
				"channel":      ch.name,
				"type":         n.Type,
				"recipient_id": n.RecipientID,
			}).Warn("Notification delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
		default:
			metrics.RecordNotification(ch.name, string(n.Type), "sent")
		}
	}
	return errors.Join(errs...)
}

// ErrSkipped 通道按规则跳过了该通知
var ErrSkipped = errors.New("notification skipped")
