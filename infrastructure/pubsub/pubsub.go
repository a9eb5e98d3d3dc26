package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// NewPubSub returns a client for projectID. An empty project id means the feature is off.
func NewPubSub(ctx context.Context, projectID string, opts ...option.ClientOption) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured")
	}
	return pubsub.NewClient(ctx, projectID, opts...)
}

// ActivityPublisher streams activity events to a Pub/Sub topic.
type ActivityPublisher struct {
	client    *pubsub.Client
	topicName string

	mu    sync.Mutex
	topic *pubsub.Topic
}

func NewActivityPublisher(client *pubsub.Client, topicName string) *ActivityPublisher {
	return &ActivityPublisher{client: client, topicName: topicName}
}

var _ repository.IActivitySink = (*ActivityPublisher)(nil)

func (p *ActivityPublisher) Write(ctx context.Context, event *model.ActivityEvent) error {
	if p.client == nil {
		return errors.New("pubsub client not initialized")
	}
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode activity event: %w", err)
	}
	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"action":       event.Action,
			"platform":     string(event.Platform),
			"workspace_id": event.WorkspaceID,
		},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish activity event: %w", err)
	}
	logger.GetLogger().WithField("server ID", serverID).Debug("Activity event published")
	return nil
}

// ensureTopic creates the topic on first use when it doesn't exist.
func (p *ActivityPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		return p.topic, nil
	}
	topic := p.client.Topic(p.topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", p.topicName, err)
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
		if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
			return nil, fmt.Errorf("create topic %s: %w", p.topicName, err)
		}
	}
	p.topic = topic
	return topic, nil
}

// Close flushes pending publishes.
func (p *ActivityPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		p.topic.Stop()
	}
}
