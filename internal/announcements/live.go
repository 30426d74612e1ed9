package announcements

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const updatesChannel = "announcements:updates"

// Feed propagates saved documents to open visitor sessions over Redis
// pub/sub, so a banner toggle shows up without a page reload.
type Feed struct {
	rdb *redis.Client
}

func NewFeed(rdb *redis.Client) *Feed {
	return &Feed{rdb: rdb}
}

// Publish broadcasts the freshly saved document to all subscribers.
func (f *Feed) Publish(ctx context.Context, doc *Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode announcement update: %w", err)
	}
	if err := f.rdb.Publish(ctx, updatesChannel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish announcement update: %w", err)
	}
	return nil
}

// UnsubscribeFunc cancels a subscription started with OnChange.
type UnsubscribeFunc func()

// OnChange subscribes to document updates and invokes handler for each one.
// The owning component must call the returned UnsubscribeFunc on teardown;
// after that the handler is never invoked again.
func (f *Feed) OnChange(ctx context.Context, handler func(*Document)) (UnsubscribeFunc, error) {
	sub := f.rdb.Subscribe(ctx, updatesChannel)

	// Force the subscription to be established before returning, so a save
	// immediately after OnChange is not missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to announcement updates: %w", err)
	}

	ch := sub.Channel()
	done := make(chan struct{})

	go func() {
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var doc Document
				if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
					log.Warn().Err(err).Msg("Dropping malformed announcement update")
					continue
				}
				handler(&doc)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}, nil
}
