package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"autopost/domain/model"
	"autopost/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// JobEventPublisher forwards finished-job events to a Cloud Pub/Sub topic.
type JobEventPublisher struct {
	client    *pubsub.Client
	topicName string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

func NewJobEventPublisher(client *pubsub.Client, topicName string) *JobEventPublisher {
	return &JobEventPublisher{client: client, topicName: topicName}
}

func (p *JobEventPublisher) Name() string { return "pubsub" }

func (p *JobEventPublisher) Handle(ctx context.Context, event model.JobFinishedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}

	msg := &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"type": event.Type, "jobId": event.JobID},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("jobId", event.JobID).Debug("Job event published")
	return nil
}

// ensureTopic creates the topic on first use if it doesn't exist.
func (p *JobEventPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.client.Topic(p.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}

func (p *JobEventPublisher) Close() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
