// Package events fans verification progress out to API subscribers, either
// in-process or through Redis Pub/Sub when instances are clustered.
package events

import (
    "sync"
)

// Event types published during a verification run.
const (
    TypeRunStarted  = "run.started"
    TypeStep        = "run.step"
    TypeRunFinished = "run.finished"
)

type Event struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data,omitempty"`
}

type Broker interface {
    Subscribe(supplierID string) chan Event
    Unsubscribe(supplierID string, ch chan Event)
    Publish(supplierID string, evt Event)
}

// MemoryBroker fans events out to in-process subscribers. Slow subscribers
// drop events rather than block the publisher.
type MemoryBroker struct {
    mu   sync.Mutex
    subs map[string]map[chan Event]struct{} // supplierId -> set of channels
}

func NewMemoryBroker() *MemoryBroker {
    return &MemoryBroker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *MemoryBroker) Subscribe(supplierID string) chan Event {
    ch := make(chan Event, 8)
    b.mu.Lock()
    if b.subs[supplierID] == nil { b.subs[supplierID] = map[chan Event]struct{}{} }
    b.subs[supplierID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *MemoryBroker) Unsubscribe(supplierID string, ch chan Event) {
    b.mu.Lock()
    if m := b.subs[supplierID]; m != nil {
        delete(m, ch)
        if len(m) == 0 { delete(b.subs, supplierID) }
    }
    b.mu.Unlock()
    close(ch)
}

func (b *MemoryBroker) Publish(supplierID string, evt Event) {
    b.mu.Lock()
    m := b.subs[supplierID]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}
