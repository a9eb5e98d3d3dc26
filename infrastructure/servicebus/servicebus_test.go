package servicebus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"social-publisher/domain/model"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent    []*azservicebus.Message
	sendErr error
	closed  bool
}

func (f *fakeSender) SendMessage(_ context.Context, m *azservicebus.Message, _ *azservicebus.SendMessageOptions) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestActivityQueue_Write(t *testing.T) {
	fake := &fakeSender{}
	q := &ActivityQueue{newSender: func() (sender, error) { return fake, nil }}

	err := q.Write(context.Background(), &model.ActivityEvent{
		WorkspaceID: "ws-1",
		Action:      model.ActionDisconnect,
		Platform:    model.PlatformLinkedIn,
		Success:     true,
	})
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)
	assert.True(t, fake.closed)

	msg := fake.sent[0]
	require.NotNil(t, msg.Subject)
	assert.Equal(t, "disconnect", *msg.Subject)
	assert.Equal(t, "linkedin", msg.ApplicationProperties["platform"])

	var got model.ActivityEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "ws-1", got.WorkspaceID)
}

func TestActivityQueue_SendFailureIsReturned(t *testing.T) {
	fake := &fakeSender{sendErr: errors.New("amqp down")}
	q := &ActivityQueue{newSender: func() (sender, error) { return fake, nil }}

	err := q.Write(context.Background(), &model.ActivityEvent{Action: model.ActionPublish})
	assert.EqualError(t, err, "amqp down")
	assert.True(t, fake.closed)
}

func TestActivityQueue_NilClient(t *testing.T) {
	err := NewActivityQueue(nil, "activity").Write(context.Background(), &model.ActivityEvent{})
	assert.Error(t, err)
}

func TestNewServiceBus_RequiresNamespace(t *testing.T) {
	_, err := NewServiceBus(context.Background(), "")
	assert.Error(t, err)
}
