package events

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// RedisBroker implements Broker over Redis Pub/Sub so step events reach
// subscribers connected to any instance.
type RedisBroker struct {
    rdb *redis.Client

    mu  sync.Mutex
    pss map[chan Event]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil { return nil, err }
    return &RedisBroker{rdb: redis.NewClient(opt), pss: map[chan Event]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(supplierID string) chan Event {
    ch := make(chan Event, 16)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(supplierID))
    // initial consume to ensure the subscription is live
    _, _ = ps.Receive(ctx)
    b.mu.Lock()
    b.pss[ch] = ps
    b.mu.Unlock()
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt Event
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
                select { case ch <- evt: default: }
            }
        }
    }()
    return ch
}

// Unsubscribe closes the underlying Pub/Sub; the reader goroutine then
// drains out and closes ch.
func (b *RedisBroker) Unsubscribe(supplierID string, ch chan Event) {
    b.mu.Lock()
    ps := b.pss[ch]
    delete(b.pss, ch)
    b.mu.Unlock()
    if ps != nil { _ = ps.Close() }
}

func (b *RedisBroker) Publish(supplierID string, evt Event) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, _ := json.Marshal(evt)
    _ = b.rdb.Publish(ctx, b.chanName(supplierID), data).Err()
}

func (b *RedisBroker) chanName(supplierID string) string { return "supplier:" + supplierID }
