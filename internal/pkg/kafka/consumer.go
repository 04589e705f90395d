package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ConsumeEvents reads submit events until ctx is cancelled. Messages that do
// not decode are logged and skipped.
func ConsumeEvents(ctx context.Context, brokers []string, topic, groupID string, handle func(entity.SubmitEvent)) error {

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	defer reader.Close()

	logrus.WithFields(logrus.Fields{"brokers": brokers, "topic": topic}).Info("Submit event consumer started")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			logrus.Errorf("Error reading message from Kafka: %v", err)
			continue
		}

		event, err := DecodeEvent(msg.Value)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Warnf("Failed to parse submit event: %v", err)
			continue
		}

		handle(event)
	}
}

func DecodeEvent(value []byte) (entity.SubmitEvent, error) {
	var event entity.SubmitEvent
	err := sonic.Unmarshal(value, &event)
	return event, err
}
