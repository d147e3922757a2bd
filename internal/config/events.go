package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/exam-delivery-service/internal/events"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventConfig holds configuration for event publishing
type EventConfig struct {
	Enabled      bool
	Publisher    string // kafka, channel or mock
	KafkaBrokers string
	Topic        string
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	return splitList(c.KafkaBrokers)
}

// CreateEventPublisher creates an event publisher based on configuration.
// For the in-process channel publisher the returned subscriber reads the
// same topic; it is nil otherwise.
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, message.Subscriber, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil, nil
	}

	switch strings.ToLower(c.Publisher) {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.Topic)

		publisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.Topic,
			Logger:       logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return publisher, nil, nil
	case "channel":
		logger.Info("Using in-process event publisher", "topic", c.Topic)
		pubsub := events.NewChannelPubSub(logger)
		return events.NewWatermillEventPublisher(pubsub, c.Topic, logger), pubsub, nil
	case "mock":
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil, nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil, nil
	}
}
