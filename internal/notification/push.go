package notification

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher 向在线用户推送消息，返回送达的连接数
type Publisher interface {
	SendToUser(userID string, message []byte) int
}

// pushEnvelope 推送给客户端的消息格式
type pushEnvelope struct {
	Event        string       `json:"event"`
	Notification Notification `json:"notification"`
}

// PushNotifier 通过 WebSocket 实时推送
type PushNotifier struct {
	publisher Publisher
}

// NewPushNotifier 创建实时推送通道
func NewPushNotifier(publisher Publisher) *PushNotifier {
	return &PushNotifier{publisher: publisher}
}

// Notify 用户不在线时返回 ErrSkipped
func (p *PushNotifier) Notify(_ context.Context, n Notification) error {
	message, err := json.Marshal(pushEnvelope{Event: "notification", Notification: n})
	if err != nil {
		return fmt.Errorf("failed to encode push message: %w", err)
	}
	if p.publisher.SendToUser(n.RecipientID, message) == 0 {
		return ErrSkipped
	}
	return nil
}
