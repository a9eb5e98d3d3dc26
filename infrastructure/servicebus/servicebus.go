package servicebus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects to namespace (e.g. "myns.servicebus.windows.net") with the default Azure credential chain.
func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, errors.New("service bus namespace not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type sender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// ActivityQueue sends activity events to a Service Bus queue.
type ActivityQueue struct {
	newSender func() (sender, error)
}

func NewActivityQueue(client *azservicebus.Client, queue string) *ActivityQueue {
	return &ActivityQueue{newSender: func() (sender, error) {
		if client == nil {
			return nil, errors.New("service bus client not initialized")
		}
		return client.NewSender(queue, nil)
	}}
}

var _ repository.IActivitySink = (*ActivityQueue)(nil)

func (q *ActivityQueue) Write(ctx context.Context, event *model.ActivityEvent) error {
	s, err := q.newSender()
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(s sender, ctx context.Context) {
		if err := s.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(s, context.WithoutCancel(ctx))

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode activity event: %w", err)
	}
	contentType := "application/json"
	subject := event.Action
	ttl := 7 * 24 * time.Hour
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		TimeToLive:  &ttl,
		ApplicationProperties: map[string]interface{}{
			"workspace_id": event.WorkspaceID,
			"platform":     string(event.Platform),
			"success":      event.Success,
		},
	}
	if err := s.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
