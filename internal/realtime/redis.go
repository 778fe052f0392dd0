package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const bridgeChannel = "taskboard:events"

type envelope struct {
	Origin        string  `json:"origin"`
	Scope         string  `json:"scope"`
	Key           string  `json:"key"`
	ExcludeUserID string  `json:"exclude_user_id,omitempty"`
	Message       Message `json:"message"`
}

// Bridge replicates hub broadcasts across instances through Redis pub/sub.
// Each instance tags published envelopes with its own id and ignores them on
// the way back in.
type Bridge struct {
	hub      *Hub
	client   *redis.Client
	instance string
	logger   *slog.Logger
}

func NewBridge(hub *Hub, client *redis.Client, instanceID string, logger *slog.Logger) *Bridge {
	return &Bridge{hub: hub, client: client, instance: instanceID, logger: logger}
}

func (b *Bridge) BroadcastBoard(boardID string, msg Message, excludeUserID string) {
	b.hub.BroadcastBoard(boardID, msg, excludeUserID)
	b.publish(envelope{Origin: b.instance, Scope: "board", Key: boardID, ExcludeUserID: excludeUserID, Message: msg})
}

func (b *Bridge) BroadcastWorkspace(workspaceID string, msg Message, excludeUserID string) {
	b.hub.BroadcastWorkspace(workspaceID, msg, excludeUserID)
	b.publish(envelope{Origin: b.instance, Scope: "workspace", Key: workspaceID, ExcludeUserID: excludeUserID, Message: msg})
}

func (b *Bridge) publish(env envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, bridgeChannel, data).Err(); err != nil {
		b.logger.Warn("publish realtime event", "error", err)
	}
}

// Run consumes the bridge channel until ctx is cancelled. It should be started
// once per process.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, bridgeChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe realtime channel: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("decode realtime envelope", "error", err)
				continue
			}
			if env.Origin == b.instance {
				continue
			}
			switch env.Scope {
			case "board":
				b.hub.BroadcastBoard(env.Key, env.Message, env.ExcludeUserID)
			case "workspace":
				b.hub.BroadcastWorkspace(env.Key, env.Message, env.ExcludeUserID)
			}
		}
	}
}
