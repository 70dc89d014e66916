// Package kafka provides the Kafka transport. Messages are keyed by the
// partition key header so every event of one product lands on the same
// partition, and the consumer commits offsets on a timer.
package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/catalogsync/internal/runtime/metadata"
	"github.com/drblury/catalogsync/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// ErrMissingPartitionKey is returned when a message reaches the publisher
// without a partition key header.
var ErrMissingPartitionKey = errors.New("catalogsync: kafka message has no partition key")

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register registers the Kafka transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// PartitionKey reads the partition key header set by the emitter.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	key := msg.Metadata.Get(metadata.KeyPartition)
	if key == "" {
		return "", ErrMissingPartitionKey
	}
	return key, nil
}

// Marshaler keys every message by PartitionKey and keeps Watermill metadata
// in Kafka headers.
func Marshaler() kafka.MarshalerUnmarshaler {
	return kafka.NewWithPartitioningMarshaler(PartitionKey)
}

// PublisherSaramaConfig returns the sync producer configuration.
func PublisherSaramaConfig(clientID string) *sarama.Config {
	sc := kafka.DefaultSaramaSyncPublisherConfig()
	if clientID != "" {
		sc.ClientID = clientID
	}
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

// SubscriberSaramaConfig returns the consumer group configuration: periodic
// offset auto-commit, oldest offset for new groups and explicit session and
// heartbeat timeouts for dead consumer detection.
func SubscriberSaramaConfig(cfg transport.Config) *sarama.Config {
	sc := kafka.DefaultSaramaSubscriberConfig()
	if id := cfg.GetKafkaClientID(); id != "" {
		sc.ClientID = id
	}
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = orDefault(cfg.GetAutoCommitInterval(), time.Second)
	sc.Consumer.Group.Session.Timeout = orDefault(cfg.GetSessionTimeout(), 30*time.Second)
	sc.Consumer.Group.Heartbeat.Interval = orDefault(cfg.GetHeartbeatInterval(), 10*time.Second)
	return sc
}

// Build creates a new Kafka transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()
	marshaler := Marshaler()

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             marshaler,
			OverwriteSaramaConfig: PublisherSaramaConfig(cfg.GetKafkaClientID()),
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           marshaler,
			ConsumerGroup:         cfg.GetKafkaConsumerGroup(),
			OverwriteSaramaConfig: SubscriberSaramaConfig(cfg),
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
