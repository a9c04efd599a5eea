// internal/app/system/mq/pubsub.go
package mq

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PubSubConfig configures the Google Cloud Pub/Sub backend.
// SubscriptionSuffix is appended to the channel name to form the
// subscription id; give each instance its own suffix when every instance
// must see every message (map update fan-out).
type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// PubSub maps channels to topics and subscriptions.
type PubSub struct {
	client *pubsub.Client
	suffix string
}

func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}
	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}
	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}
	return &PubSub{client: client, suffix: suffix}, nil
}

func (p *PubSub) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}
	topic, err := p.ensureTopic(ctx, topicID(channel))
	if err != nil {
		return "", err
	}
	return topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
}

func (p *PubSub) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("pubsub channel is required")
	}
	topic, err := p.ensureTopic(ctx, topicID(channel))
	if err != nil {
		return err
	}
	sub, err := p.ensureSubscription(ctx, topicID(channel)+p.suffix, topic)
	if err != nil {
		return err
	}
	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		if err := handler(ctx, Message{ID: m.ID, Data: m.Data, Attributes: m.Attributes}); err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

func (p *PubSub) Close() error { return p.client.Close() }

func (p *PubSub) ensureTopic(ctx context.Context, id string) (*pubsub.Topic, error) {
	t := p.client.Topic(id)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	return p.client.CreateTopic(ctx, id)
}

func (p *PubSub) ensureSubscription(ctx context.Context, id string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	s := p.client.Subscription(id)
	ok, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return s, nil
	}
	return p.client.CreateSubscription(ctx, id, pubsub.SubscriptionConfig{Topic: topic})
}

// topicID turns a dotted channel name into a valid topic id.
func topicID(channel string) string {
	return strings.ReplaceAll(channel, ".", "-")
}
