package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// ConsumerConfig captures the settings required to consume activity events.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration

	// MaxAttempts bounds how often one event is handled while the handler
	// reports retryable failures. Defaults to 3.
	MaxAttempts int
	// RetryBackoff is the pause before the second attempt; it doubles per attempt.
	// Defaults to 250ms.
	RetryBackoff time.Duration
}

// ActivityHandler processes one decoded activity event. A non-nil error means
// some evaluations failed transiently and the event is worth handling again.
type ActivityHandler interface {
	Process(ctx context.Context, event domain.ActivityEvent) ([]*domain.AwardOutcome, error)
}

// messageReader is the subset of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads activity events from Kafka and hands them to an ActivityHandler.
// Each message is committed after it is handled, including undecodable ones
// and events whose retries ran out.
type KafkaConsumer struct {
	cfg         ConsumerConfig
	reader      messageReader
	handler     ActivityHandler
	logger      *zap.Logger
	poll        time.Duration
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// NewKafkaConsumer validates cfg and creates a consumer-group reader.
func NewKafkaConsumer(cfg ConsumerConfig, handler ActivityHandler, logger *zap.Logger) (*KafkaConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("activity topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newKafkaConsumer(cfg, reader, handler, logger), nil
}

func newKafkaConsumer(cfg ConsumerConfig, reader messageReader, handler ActivityHandler, logger *zap.Logger) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 5 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	return &KafkaConsumer{
		cfg:         cfg,
		reader:      reader,
		handler:     handler,
		logger:      logger,
		poll:        poll,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		now:         time.Now,
	}
}

// Close shuts down the underlying Kafka reader.
func (c *KafkaConsumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run blocks until ctx is cancelled or the reader is closed.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.logger.Info("activity consumer started",
		zap.String("topic", c.cfg.Topic),
		zap.String("group", c.cfg.GroupID),
		zap.Strings("brokers", c.cfg.Brokers),
		zap.Duration("poll_timeout", c.poll),
	)
	defer c.logger.Info("activity consumer stopped")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, kafka.ErrGroupClosed) {
				return nil
			}
			c.logger.Error("activity fetch failed", zap.Error(err))
			continue
		}

		c.process(ctx, msg)

		commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.logger.Error("activity commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
			}
		}
		commitCancel()
	}
}

func (c *KafkaConsumer) process(ctx context.Context, msg kafka.Message) {
	event, err := decodeActivityEvent(msg.Value)
	if err != nil {
		c.logger.Warn("activity decode failed",
			zap.Int64("offset", msg.Offset),
			zap.Int("partition", msg.Partition),
			zap.Error(err),
		)
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = c.now().UTC()
	}

	outcomes, err := c.handleWithRetry(ctx, event)
	if err != nil {
		c.logger.Error("activity handling failed after retries",
			zap.String("kind", event.Kind),
			zap.String("user_id", event.UserID),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempts", c.maxAttempts),
			zap.Error(err),
		)
	}
	awarded := 0
	for _, o := range outcomes {
		if o.Result.IsCelebration() {
			awarded++
		}
	}
	c.logger.Debug("activity handled",
		zap.String("kind", event.Kind),
		zap.String("user_id", event.UserID),
		zap.Int("evaluated", len(outcomes)),
		zap.Int("awarded", awarded),
	)
}

// handleWithRetry re-runs the handler while it reports retryable failures,
// up to maxAttempts, backing off exponentially between attempts.
func (c *KafkaConsumer) handleWithRetry(ctx context.Context, event domain.ActivityEvent) ([]*domain.AwardOutcome, error) {
	delay := c.backoff
	for attempt := 1; ; attempt++ {
		outcomes, err := c.handler.Process(ctx, event)
		if err == nil || attempt >= c.maxAttempts {
			return outcomes, err
		}

		c.logger.Warn("activity handling will be retried",
			zap.String("kind", event.Kind),
			zap.String("user_id", event.UserID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return outcomes, err
		case <-timer.C:
		}
		delay *= 2
	}
}

// decodeActivityEvent parses {"kind","userId","occurredAt"}, ignoring unknown fields.
func decodeActivityEvent(raw []byte) (domain.ActivityEvent, error) {
	var env struct {
		Kind       string `json:"kind"`
		UserID     string `json:"userId"`
		OccurredAt string `json:"occurredAt"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return domain.ActivityEvent{}, fmt.Errorf("decode activity payload: %w", err)
	}

	event := domain.ActivityEvent{
		Kind:   strings.TrimSpace(env.Kind),
		UserID: strings.TrimSpace(env.UserID),
	}
	if event.Kind == "" {
		return domain.ActivityEvent{}, errors.New("kind missing or empty")
	}
	if event.UserID == "" {
		return domain.ActivityEvent{}, errors.New("userId missing or empty")
	}

	if ts := strings.TrimSpace(env.OccurredAt); ts != "" {
		occurredAt, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return domain.ActivityEvent{}, fmt.Errorf("unsupported occurredAt %q", ts)
		}
		event.OccurredAt = occurredAt.UTC()
	}
	return event, nil
}
