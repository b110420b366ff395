// Package notification delivers publishing and onboarding notices to users.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	// Topic is the watermill topic notifications are published on.
	Topic = "partnerflow.notifications"

	RecipientMetadataKey = "recipient"
	KindMetadataKey      = "kind"
)

// Message is a single notice addressed to one recipient.
type Message struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Sender hands a message off for delivery. Delivery is not guaranteed.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

var ErrNoRecipient = errors.New("notification has no recipient")

// WatermillSender publishes messages to a watermill publisher for a mailer to consume.
type WatermillSender struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillSender(pub message.Publisher) *WatermillSender {
	return &WatermillSender{publisher: pub, topic: Topic}
}

func (s *WatermillSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	wmsg := message.NewMessage("ntf-"+watermill.NewULID(), payload)
	wmsg.SetContext(ctx)
	wmsg.Metadata.Set(RecipientMetadataKey, msg.To)
	wmsg.Metadata.Set(KindMetadataKey, msg.Metadata[KindMetadataKey])

	if err := s.publisher.Publish(s.topic, wmsg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

func (s *WatermillSender) Close() error {
	return s.publisher.Close()
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	s.logger.InfoContext(ctx, "Notification", "to", msg.To, "subject", msg.Subject, "body", msg.Body)

	return nil
}

func (s *LogSender) Close() error {
	return nil
}

// Handler delivers one decoded notification.
type Handler func(ctx context.Context, msg Message) error

// Consume subscribes to Topic and passes every decoded message to handler until ctx is
// done or the subscriber is closed. Messages are acked even when decoding or delivery
// fails so a bad message is not redelivered forever.
func Consume(ctx context.Context, subscriber message.Subscriber, handler Handler, logger *slog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}

	go func() {
		for msg := range messages {
			decoded, err := Decode(msg)
			if err != nil {
				logger.WarnContext(ctx, "Dropping undecodable notification", "message_id", msg.UUID, "error", err)
				msg.Ack()

				continue
			}

			if err := handler(msg.Context(), decoded); err != nil {
				logger.WarnContext(ctx, "Failed to deliver notification", "message_id", msg.UUID, "to", decoded.To, "error", err)
			}

			msg.Ack()
		}
	}()

	return nil
}

// Decode reads a Message back from a published watermill message.
func Decode(msg *message.Message) (Message, error) {
	var decoded Message
	if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
		return Message{}, fmt.Errorf("failed to decode notification: %w", err)
	}

	return decoded, nil
}
