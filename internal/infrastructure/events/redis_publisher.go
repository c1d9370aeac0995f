package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"
	"telesignal/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher pushes call lifecycle events onto a redis channel. This
// is the external fan-out boundary: another process scaling the socket
// layer horizontally subscribes here. Room state itself stays
// single-process.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	retry   retry.Config
	logger  *zap.SugaredLogger
}

func NewRedisPublisher(address, password string, db, poolSize int, channel string, logger *zap.SugaredLogger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DB:           db,
		PoolSize:     poolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Infow("connected to redis", "address", address, "channel", channel)

	return &RedisPublisher{
		client:  client,
		channel: channel,
		retry:   retry.DefaultConfig(),
		logger:  logger,
	}, nil
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

func (p *RedisPublisher) PublishCallEvent(ctx context.Context, event domain.CallEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal call event: %w", err)
	}

	return retry.Retry(ctx, p.retry, func() error {
		return p.client.Publish(ctx, p.channel, data).Err()
	})
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NoopPublisher is used when redis is not configured.
type NoopPublisher struct{}

var _ ports.EventPublisher = (*NoopPublisher)(nil)

func (NoopPublisher) PublishCallEvent(ctx context.Context, event domain.CallEvent) error {
	return nil
}
