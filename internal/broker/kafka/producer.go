package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"image-jobs/internal/broker"
	"image-jobs/internal/config"
	"image-jobs/internal/domain"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

var _ broker.Producer = (*ProducerClient)(nil)

type ProducerClient struct {
	producer *wbkafka.Producer
	retries  retry.Strategy
}

func NewProducerClient(cfg *config.Config, retries retry.Strategy) *ProducerClient {
	return &ProducerClient{
		producer: wbkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ProcessingTopic),
		retries:  retries,
	}
}

func (p *ProducerClient) Send(ctx context.Context, key, value []byte) error {
	return p.producer.SendWithRetry(ctx, p.retries, key, value)
}

// Publish sends the task keyed by job id so every message for a job lands on
// the same partition.
func (p *ProducerClient) Publish(ctx context.Context, task *domain.ProcessingTask) error {
	value, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := p.Send(ctx, []byte(task.JobID), value); err != nil {
		return fmt.Errorf("failed to send task %s: %w", task.ID, err)
	}

	return nil
}

func (p *ProducerClient) Close() error {
	return p.producer.Close()
}
