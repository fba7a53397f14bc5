package remote

import (
	"context"
	"fmt"
	"sync"

	"aitasks/internal/utils"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "task-updates"

// updateMessage is the payload published after every mutation.
type updateMessage struct {
	UserID string `json:"userId"`
}

// Feed is the change feed of the remote store over Redis pub/sub. The store
// publishes on it; subscribers are notified for their own partition only.
type Feed struct {
	rc      *redis.Client
	channel string
}

// NewFeed wraps an existing client.
func NewFeed(rc *redis.Client, channel string) *Feed {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Feed{rc: rc, channel: channel}
}

// DialFeed connects to the Redis server at url (redis://...).
func DialFeed(url, channel string) (*Feed, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewFeed(redis.NewClient(opts), channel), nil
}

// Channel returns the pub/sub channel name.
func (f *Feed) Channel() string { return f.channel }

// Close closes the underlying client.
func (f *Feed) Close() error {
	return f.rc.Close()
}

// Publish announces that the tasks of userID changed.
func (f *Feed) Publish(ctx context.Context, userID string) error {
	payload, err := sonic.MarshalString(updateMessage{UserID: userID})
	if err != nil {
		return err
	}
	return f.rc.Publish(ctx, f.channel, payload).Err()
}

// Subscribe calls notify for every update of userID until cancel is called
// or ctx ends. The subscription is confirmed before Subscribe returns.
func (f *Feed) Subscribe(ctx context.Context, userID string, notify func()) (func(), error) {
	ctx, stop := context.WithCancel(ctx)
	sub := f.rc.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		stop()
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev updateMessage
				if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
					utils.Warnf("change feed: unable to parse update: %v", err)
					continue
				}
				if ev.UserID == userID {
					notify()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			sub.Close()
		})
	}, nil
}
