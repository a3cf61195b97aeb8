package kafka

import (
	"errors"
	"fmt"

	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"
)

const (
	flushTimeoutMs    = 5000
	defaultBufferSize = 1024
)

// ErrBufferFull is returned when the local produce queue has no room left.
var ErrBufferFull = errors.New("kafka producer buffer is full")

type ProducerConfig struct {
	BootstrapServers string
	Topic            string
	SaslUsername     string
	// API token of the event streaming platform, used as the SASL password
	APIToken   string
	BufferSize int
}

func ProducerConfigFrom(configs *configs.AppConfigs) ProducerConfig {
	return ProducerConfig{
		BootstrapServers: configs.Configs.Kafka_BootstrapServers,
		Topic:            configs.Configs.Kafka_ShadowTopic,
		SaslUsername:     configs.Configs.Kafka_SaslUsername,
		APIToken:         configs.Configs.EventStreamingAPIToken,
		BufferSize:       configs.Configs.Kafka_BufferSize,
	}
}

// Producer publishes to a single topic without ever blocking the caller.
type Producer struct {
	producer *kafka.Producer
	topic    string
	logger   zerolog.Logger
}

func NewProducer(cfg ProducerConfig, logger zerolog.Logger) (*Producer, error) {
	if cfg.BootstrapServers == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka bootstrap servers and topic are required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	configMap := kafka.ConfigMap{
		"bootstrap.servers":            cfg.BootstrapServers,
		"client.id":                    "onscene-shadow",
		"acks":                         "1",
		"linger.ms":                    20,
		"queue.buffering.max.messages": cfg.BufferSize,
	}
	if cfg.APIToken != "" {
		configMap["security.protocol"] = "SASL_SSL"
		configMap["sasl.mechanism"] = "PLAIN"
		configMap["sasl.username"] = cfg.SaslUsername
		configMap["sasl.password"] = cfg.APIToken
	}

	p, err := kafka.NewProducer(&configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	// Drain delivery reports in background so the producer doesn't block.
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.Error().Err(ev.TopicPartition.Error).
						Str("topic", cfg.Topic).
						Msg("kafka delivery failed")
				}
			case kafka.Error:
				logger.Warn().Err(ev).Msg("kafka producer error")
			}
		}
	}()

	return &Producer{producer: p, topic: cfg.Topic, logger: logger}, nil
}

// Publish enqueues one message. It returns ErrBufferFull instead of waiting for room.
func (p *Producer) Publish(key, value []byte) error {
	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}, nil)
	if err == nil {
		return nil
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) && kerr.Code() == kafka.ErrQueueFull {
		return ErrBufferFull
	}
	return fmt.Errorf("kafka produce error: %w", err)
}

// Close flushes outstanding messages and releases the producer.
func (p *Producer) Close() {
	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		p.logger.Warn().Int("remaining", remaining).Msg("kafka messages not flushed before close")
	}
	p.producer.Close()
}
