package notification

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/config"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AddressBook 查询接收人的邮箱，未知时返回空串
type AddressBook interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

// MailSender 发送一封邮件
type MailSender interface {
	Send(from string, to []string, msg io.Reader) error
}

// SMTPSender 基于 go-smtp 的发送实现
type SMTPSender struct {
	addr       string
	auth       sasl.Client
	tlsEnabled bool
}

// NewSMTPSender 创建 SMTP 发送器，host 为空时返回 nil
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	if cfg.Host == "" || cfg.Port == "" {
		return nil
	}
	s := &SMTPSender{addr: cfg.Host + ":" + cfg.Port, tlsEnabled: cfg.TLSEnabled}
	if cfg.User != "" {
		s.auth = sasl.NewPlainClient("", cfg.User, cfg.Password)
	}
	return s
}

// Send 发送邮件
func (s *SMTPSender) Send(from string, to []string, msg io.Reader) error {
	if s.tlsEnabled {
		return smtp.SendMailTLS(s.addr, s.auth, from, to, msg)
	}
	return smtp.SendMail(s.addr, s.auth, from, to, msg)
}

// EmailNotifier 邮件通知通道
type EmailNotifier struct {
	sender     MailSender
	book       AddressBook
	from       string
	urgentOnly bool
	logger     logrus.FieldLogger
}

// NewEmailNotifier 创建邮件通道
func NewEmailNotifier(sender MailSender, book AddressBook, from string, urgentOnly bool, logger logrus.FieldLogger) *EmailNotifier {
	return &EmailNotifier{
		sender:     sender,
		book:       book,
		from:       from,
		urgentOnly: urgentOnly,
		logger:     logger,
	}
}

// Notify 非紧急（urgent_only 时）或地址未知时返回 ErrSkipped
func (e *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	if e.urgentOnly && !n.IsUrgent {
		return ErrSkipped
	}

	to, err := e.book.EmailFor(ctx, n.RecipientID)
	if err != nil {
		return errors.Wrap(err, "failed to resolve recipient email")
	}
	if to == "" {
		return ErrSkipped
	}

	msg := BuildMessage(e.from, to, n, time.Now())
	if err := e.sender.Send(e.from, []string{to}, strings.NewReader(msg)); err != nil {
		return errors.Wrapf(err, "failed to send %s email", n.Type)
	}

	e.logger.WithFields(logrus.Fields{
		"type":         n.Type,
		"recipient_id": n.RecipientID,
	}).Info("Notification email sent")
	return nil
}

// BuildMessage 构造纯文本邮件
func BuildMessage(from, to string, n Notification, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", headerSafe(n.Title))
	fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	if n.IsUrgent {
		b.WriteString("X-Priority: 1\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(n.Message)
	if n.ActionURL != "" {
		fmt.Fprintf(&b, "\r\n\r\n%s\r\n", n.ActionURL)
	}
	return b.String()
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
