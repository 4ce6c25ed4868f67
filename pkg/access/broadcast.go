package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// InvalidationChannel carries snapshot invalidations between processes
const InvalidationChannel = "route_access:invalidate"

// Broadcaster fans snapshot invalidations out to every process sharing a
// Redis instance. Each process drops its in-memory snapshot when another
// instance publishes.
type Broadcaster struct {
	client     *storage.RedisClient
	instanceID string
	logger     *observability.Logger
}

// NewBroadcaster creates a broadcaster with a fresh instance id
func NewBroadcaster(client *storage.RedisClient, logger *observability.Logger) *Broadcaster {
	return &Broadcaster{
		client:     client,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// InstanceID identifies this process on the channel
func (b *Broadcaster) InstanceID() string { return b.instanceID }

// Publish announces a local invalidation
func (b *Broadcaster) Publish(ctx context.Context) error {
	if err := b.client.Publish(ctx, InvalidationChannel, b.instanceID); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Listen calls onRemote for every invalidation published by another
// instance until ctx is cancelled.
func (b *Broadcaster) Listen(ctx context.Context, onRemote func(context.Context)) error {
	pubsub := b.client.Subscribe(ctx, InvalidationChannel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed before consuming
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", InvalidationChannel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == b.instanceID {
				continue
			}
			if b.logger != nil {
				b.logger.WithField("origin", msg.Payload).Debug("Remote route access invalidation")
			}
			onRemote(ctx)
		}
	}
}
