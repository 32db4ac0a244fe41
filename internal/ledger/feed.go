package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/studyhall/progress-ledger/internal/platform/cache"
)

// AchievementEvent is broadcast whenever a badge is unlocked.
type AchievementEvent struct {
	AchievementID string    `json:"achievement_id"`
	UserID        string    `json:"user_id"`
	Subject       string    `json:"subject"`
	Badge         string    `json:"badge"`
	DisplayName   string    `json:"display_name"`
	EarnedAt      time.Time `json:"earned_at"`
}

// Feed publishes achievement unlock events. Publishing is best-effort and
// happens after the transaction commits; a feed failure never rolls back a
// committed submission.
type Feed interface {
	Publish(ctx context.Context, event AchievementEvent) error
}

// FeedSource delivers achievement events to live subscribers.
type FeedSource interface {
	Subscribe(ctx context.Context) (<-chan AchievementEvent, func(), error)
}

// NopFeed discards all events.
type NopFeed struct{}

func (NopFeed) Publish(context.Context, AchievementEvent) error {
	return nil
}

// Broker is an in-process Feed and FeedSource for single-node deployments
// and tests.
type Broker struct {
	mu   sync.Mutex
	subs map[int]chan AchievementEvent
	next int
}

// NewBroker creates an in-process achievement event broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan AchievementEvent)}
}

func (b *Broker) Publish(ctx context.Context, event AchievementEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber; drop rather than block the write path.
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context) (<-chan AchievementEvent, func(), error) {
	ch := make(chan AchievementEvent, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel, nil
}

const achievementChannel = "ledger:achievements"

// RedisFeed fans achievement events out through Redis pub/sub so every
// instance sees unlocks committed by any other.
type RedisFeed struct {
	cache *cache.Cache
}

// NewRedisFeed creates a Redis-backed achievement feed.
func NewRedisFeed(c *cache.Cache) *RedisFeed {
	return &RedisFeed{cache: c}
}

func (f *RedisFeed) Publish(ctx context.Context, event AchievementEvent) error {
	return f.cache.PublishJSON(ctx, achievementChannel, event)
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan AchievementEvent, func(), error) {
	ps := f.cache.Subscribe(ctx, achievementChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, err
	}

	ch := make(chan AchievementEvent, 16)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var event AchievementEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("dropping malformed achievement event", "error", err)
				continue
			}
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { ps.Close() }
	return ch, cancel, nil
}
