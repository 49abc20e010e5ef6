package servicebus

import (
	"context"
	"encoding/json"

	"autopost/domain/model"
	"autopost/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// JobEventSender forwards finished-job events to a Service Bus queue.
type JobEventSender struct {
	newSender func() (messageSender, error)
}

func NewJobEventSender(client *azservicebus.Client, queue string) *JobEventSender {
	return &JobEventSender{newSender: func() (messageSender, error) {
		return client.NewSender(queue, nil)
	}}
}

func (s *JobEventSender) Name() string { return "servicebus" }

func (s *JobEventSender) Handle(ctx context.Context, event model.JobFinishedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	sender, err := s.newSender()
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}()

	contentType := "application/json"
	subject := event.Type
	message := &azservicebus.Message{
		Body:          body,
		ContentType:   &contentType,
		Subject:       &subject,
		MessageID:     &event.RunID,
		CorrelationID: &event.JobID,
	}
	return sender.SendMessage(ctx, message, nil)
}
