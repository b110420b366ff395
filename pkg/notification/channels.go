package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

var ErrNoBrokers = errors.New("no kafka brokers configured")

// NewKafkaPublisher creates a watermill publisher backed by sarama.
func NewKafkaPublisher(logger watermill.LoggerAdapter, brokers []string) (*kafka.Publisher, error) {
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, ErrNoBrokers
	}

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true
	saramaPublisherConfig.Producer.RequiredAcks = sarama.WaitForAll

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return publisher, nil
}

// NewGoChannel creates an in-memory pub/sub; the same instance publishes and subscribes.
func NewGoChannel(logger watermill.LoggerAdapter, persistent bool) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			Persistent:                     persistent,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)
}

// NewSender builds the sender for the configured bus: kafka, gochannel or log. The
// gochannel bus delivers in process: a consumer started here writes each message to
// the log until ctx is done or the sender is closed.
func NewSender(ctx context.Context, bus string, brokers []string, logger *slog.Logger) (Sender, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch bus {
	case "kafka":
		publisher, err := NewKafkaPublisher(adapter, brokers)
		if err != nil {
			return nil, err
		}

		return NewWatermillSender(publisher), nil
	case "gochannel":
		pubSub := NewGoChannel(adapter, false)

		if err := Consume(ctx, pubSub, NewLogSender(logger).Send, logger); err != nil {
			_ = pubSub.Close()

			return nil, err
		}

		return NewWatermillSender(pubSub), nil
	case "log", "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unsupported notification bus: %s", bus)
	}
}
