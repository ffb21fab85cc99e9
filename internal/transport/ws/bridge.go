package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const bridgeChannel = "chatter:events"

// RedisBridge fans events out across instances. Locally it delegates to the
// hub; remotely it publishes the payload on a shared Redis channel and
// re-injects what other instances publish. Room membership stays local to
// each hub — the bridge only moves payloads.
type RedisBridge struct {
	hub      *Hub
	client   *redis.Client
	instance string
	logger   zerolog.Logger
}

type bridgeEnvelope struct {
	Instance       string          `json:"instance"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	Data           json.RawMessage `json:"data"`
}

func NewRedisBridge(ctx context.Context, hub *Hub, redisURL string, logger zerolog.Logger) (*RedisBridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisBridge{
		hub:      hub,
		client:   client,
		instance: uuid.NewString(),
		logger:   logger,
	}, nil
}

// Publish implements Publisher: local delivery first, then cross-instance.
func (b *RedisBridge) Publish(conversationID *uuid.UUID, data []byte) {
	b.hub.Publish(conversationID, data)

	env, err := json.Marshal(bridgeEnvelope{
		Instance:       b.instance,
		ConversationID: conversationID,
		Data:           data,
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("bridge: marshal error")
		return
	}
	if err := b.client.Publish(context.Background(), bridgeChannel, env).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("bridge: redis publish failed")
	}
}

// Run subscribes to the shared channel and replays remote events into the
// local hub until the context is canceled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, bridgeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn().Err(err).Msg("bridge: bad envelope")
				continue
			}
			if env.Instance == b.instance {
				continue
			}
			b.hub.Publish(env.ConversationID, env.Data)
		}
	}
}

func (b *RedisBridge) Close() error {
	return b.client.Close()
}
