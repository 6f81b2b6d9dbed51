package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/ksuid"

	"github.com/memeshare/achievement-engine/pkg/common"
	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// BadgeEarnedEvent is the payload published when a user earns an achievement.
// EventID is a KSUID, so consumers can dedupe redeliveries and sort by time.
type BadgeEarnedEvent struct {
	EventID       string    `json:"eventId"`
	UserID        string    `json:"userId"`
	AchievementID string    `json:"achievementId"`
	DisplayName   string    `json:"displayName"`
	Icon          string    `json:"icon,omitempty"`
	EarnedAt      time.Time `json:"earnedAt"`
}

// KafkaNotificationClient publishes badge-earned events for the notification service.
// Messages are keyed by user ID so one user's events stay ordered.
type KafkaNotificationClient struct {
	writer MessageWriter
	clock  common.Clock
}

// NewKafkaNotificationClient creates a client publishing through writer.
func NewKafkaNotificationClient(writer MessageWriter) *KafkaNotificationClient {
	return &KafkaNotificationClient{writer: writer, clock: common.NowUTC}
}

// NewKafkaWriter creates a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// NotifyBadgeEarned publishes a BadgeEarnedEvent.
func (c *KafkaNotificationClient) NotifyBadgeEarned(ctx context.Context, userID string, rule *domain.AchievementRule) error {
	payload, err := json.Marshal(BadgeEarnedEvent{
		EventID:       ksuid.New().String(),
		UserID:        userID,
		AchievementID: rule.ID,
		DisplayName:   rule.DisplayName,
		Icon:          rule.Icon,
		EarnedAt:      c.clock(),
	})
	if err != nil {
		return errors.ErrNotificationFailed(userID, rule.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(userID),
		Value: payload,
	}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return errors.ErrNotificationFailed(userID, rule.ID, err)
	}
	return nil
}
