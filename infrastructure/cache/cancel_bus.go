package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"autopost/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

const CancelChannel = "group-post:cancel"

type cancelMessage struct {
	JobID  string `json:"jobId"`
	Origin string `json:"origin"`
}

// ICancelBus broadcasts job cancellations so the instance running a job can stop it.
type ICancelBus interface {
	Publish(ctx context.Context, jobID string) error
	// Subscribe delivers cancellations published by other instances until ctx is done.
	Subscribe(ctx context.Context, handle func(jobID string)) error
}

type CancelBus struct {
	client *redis.Client
	origin string
}

// NewCancelBus returns a bus over redis pub/sub. origin identifies this instance so that its
// own broadcasts are not delivered back to it.
func NewCancelBus(client *redis.Client, origin string) ICancelBus {
	return &CancelBus{client: client, origin: origin}
}

func (b *CancelBus) Publish(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(cancelMessage{JobID: jobID, Origin: b.origin})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, CancelChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish cancel for job %s: %w", jobID, err)
	}
	return nil
}

func (b *CancelBus) Subscribe(ctx context.Context, handle func(jobID string)) error {
	sub := b.client.Subscribe(ctx, CancelChannel)
	defer func() {
		if err := sub.Close(); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cancel subscription")
		}
	}()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", CancelChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			jobID, ok := b.decode(msg.Payload)
			if ok {
				handle(jobID)
			}
		}
	}
}

func (b *CancelBus) decode(payload string) (string, bool) {
	var msg cancelMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		logger.GetLogger().WithField("payload", payload).Warn("Malformed cancel message")
		return "", false
	}
	if msg.JobID == "" || msg.Origin == b.origin {
		return "", false
	}
	return msg.JobID, true
}
