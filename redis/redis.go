// Package redis caches the newest page of each room's message log so
// cursorless history requests skip the store.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	publicchat "github.com/isolophiliabusiness/Public-Chat"
)

// Redis provides caching in Redis. It implements publicchat.Cache.
type Redis struct {
	cli     *redis.Client
	maxSize int
}

// Connect connects to the Redis server and pings it to ensure the connection
// is working. maxSize bounds the number of messages kept per room and should
// match the history page size.
func Connect(ctx context.Context, addr string, maxSize int) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli:     cli,
		maxSize: maxSize,
	}, nil
}

func roomKey(room string) string {
	return fmt.Sprintf("room:%s:recent", room)
}

func messageKey(id string) string {
	return fmt.Sprintf("message:%s", id)
}

// ListRecent returns up to limit of the room's newest cached messages,
// oldest first.
func (r *Redis) ListRecent(ctx context.Context, room string, limit int) ([]publicchat.Message, error) {
	keys, err := r.cli.ZRevRange(ctx, roomKey(room), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange: %w", err)
	}
	if len(keys) == 0 {
		return []publicchat.Message{}, nil
	}

	vals, err := r.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}

	out := make([]publicchat.Message, 0, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		raw, ok := vals[i].(string)
		if !ok {
			// Blob evicted between ZREVRANGE and MGET; skip it.
			continue
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			return nil, fmt.Errorf("decode cached message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// InsertMessage adds the message blob and scores it into the room's sorted
// set, then evicts anything beyond the page bound.
func (r *Redis) InsertMessage(ctx context.Context, msg publicchat.Message) error {
	blob, err := encodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	_, err = r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, messageKey(msg.ID), blob, 0)
		pipe.ZAdd(ctx, roomKey(msg.Room), redis.Z{
			Score:  float64(msg.Time),
			Member: messageKey(msg.ID),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis insert message: %w", err)
	}

	if err := r.evictOldest(ctx, msg.Room); err != nil {
		return fmt.Errorf("evict oldest: %w", err)
	}
	return nil
}

// UpdateMessage rewrites a cached blob in place. Messages already evicted
// from the room's window are left alone.
func (r *Redis) UpdateMessage(ctx context.Context, msg publicchat.Message) error {
	err := r.cli.ZScore(ctx, roomKey(msg.Room), messageKey(msg.ID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("zscore: %w", err)
	}

	blob, err := encodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.cli.Set(ctx, messageKey(msg.ID), blob, 0).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

func (r *Redis) evictOldest(ctx context.Context, room string) error {
	keys, err := r.cli.ZRange(ctx, roomKey(room), 0, int64(-r.maxSize-1)).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}
	for _, key := range keys {
		_ = r.cli.ZRem(ctx, roomKey(room), key).Err()
		_ = r.cli.Del(ctx, key).Err()
	}
	return nil
}
