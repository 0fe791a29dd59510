package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PubSub publishes task events to a Google Pub/Sub topic and receives them
// through a subscription named "<topic>-sub"
type PubSub struct {
	client    *pubsub.Client
	topic     *pubsub.Topic
	topicName string
	subName   string
}

func NewPubSub(ctx context.Context, projectID, topicName string, opts ...option.ClientOption) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &PubSub{
		client:    client,
		topic:     client.Topic(topicName),
		topicName: topicName,
		subName:   topicName + "-sub", // Convention: topic-sub
	}, nil
}

func (p *PubSub) Publish(ctx context.Context, event TaskEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":   string(event.Type),
			"taskId": event.TaskID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe creates the subscription when missing and blocks receiving
// messages until ctx is cancelled
func (p *PubSub) Subscribe(ctx context.Context, handler Handler) error {
	log.Printf("[PubSub] Starting subscriber with topic: %s, subscription: %s", p.topicName, p.subName)

	sub := p.client.Subscription(p.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check subscription: %w", err)
	}

	if !exists {
		topicExists, err := p.topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check topic: %w", err)
		}
		if !topicExists {
			return fmt.Errorf("topic %s does not exist", p.topicName)
		}

		sub, err = p.client.CreateSubscription(ctx, p.subName, pubsub.SubscriptionConfig{
			Topic:       p.topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		log.Printf("[PubSub] Created subscription: %s", p.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", p.subName)
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var event TaskEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("[PubSub] Dropping malformed message %s: %v", msg.ID, err)
			msg.Ack()
			return
		}
		if err := handler(ctx, event); err != nil {
			log.Printf("[PubSub] Handler error for %s %s: %v", event.Type, event.TaskID, err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
