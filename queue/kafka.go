package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// KafkaConfig configures a KafkaQueue sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaQueue forwards points onto a Kafka topic via an async producer, JSON
// encoding each Point and keying by metric name so per-metric ordering is
// preserved on a partitioned topic. The initial producer creation is
// retried with an exponential backoff rather than a single dial attempt.
type KafkaQueue struct {
	producer sarama.AsyncProducer
	topic    string
	log      logrus.FieldLogger
}

// NewKafkaQueue dials the given brokers with a retrying backoff and returns
// a ready-to-use KafkaQueue. The returned producer's Errors() channel is
// drained by a background goroutine that logs failures.
func NewKafkaQueue(cfg KafkaConfig, log logrus.FieldLogger) (*KafkaQueue, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("queue: kafka topic must be set")
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Return.Errors = true

	var producer sarama.AsyncProducer
	op := func() error {
		p, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
		if err != nil {
			return err
		}
		producer = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("queue: connecting to kafka: %w", err)
	}

	q := &KafkaQueue{producer: producer, topic: cfg.Topic, log: log}
	go q.logErrors()
	return q, nil
}

func (q *KafkaQueue) logErrors() {
	for err := range q.producer.Errors() {
		q.log.WithError(err.Err).Warn("queue: kafka publish failed")
	}
}

// Enqueue implements Queue by publishing p as a JSON-encoded Kafka message.
func (q *KafkaQueue) Enqueue(p Point) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	select {
	case q.producer.Input() <- &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(p.Name),
		Value: sarama.ByteEncoder(payload),
	}:
		return nil
	default:
		return ErrFull
	}
}

// Close shuts down the underlying producer.
func (q *KafkaQueue) Close() error {
	return q.producer.Close()
}
