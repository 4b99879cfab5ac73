package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NotificationRepository publishes JSON messages on a Redis pub/sub channel
// consumed by the notification service.
type NotificationRepository struct {
	client  *redis.Client
	channel string
}

// NewNotificationRepository constructs the publisher for channel.
func NewNotificationRepository(client *redis.Client, channel string) *NotificationRepository {
	return &NotificationRepository{client: client, channel: channel}
}

// Publish marshals payload and sends it. It reports how many subscribers got it.
func (r *NotificationRepository) Publish(ctx context.Context, payload interface{}) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("publish to %s: redis disabled", r.channel)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal notification: %w", err)
	}
	receivers, err := r.client.Publish(ctx, r.channel, body).Result()
	if err != nil {
		return 0, fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return receivers, nil
}
