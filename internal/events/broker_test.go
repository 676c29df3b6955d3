package events

import (
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
)

func TestMemoryBrokerPublishSubscribe(t *testing.T) {
    b := NewMemoryBroker()
    sid := "sup-1"
    ch := b.Subscribe(sid)

    evt := Event{Type: TypeStep, Data: map[string]any{"step": "health", "passed": true}}
    b.Publish(sid, evt)

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.Data["step"].(string) != "health" { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe(sid, ch)
    select {
    case _, ok := <-ch:
        if ok { t.Fatal("channel should be closed after unsubscribe") }
    case <-time.After(50 * time.Millisecond):
    }
}

func TestMemoryBrokerIsolatesSuppliers(t *testing.T) {
    b := NewMemoryBroker()
    ch1 := b.Subscribe("sup-1")
    ch2 := b.Subscribe("sup-2")

    b.Publish("sup-1", Event{Type: TypeRunStarted})

    select {
    case <-ch1:
    case <-time.After(200 * time.Millisecond):
        t.Fatal("sup-1 subscriber should receive the event")
    }
    select {
    case got := <-ch2:
        t.Fatalf("sup-2 subscriber must not receive sup-1 events: %+v", got)
    case <-time.After(50 * time.Millisecond):
    }
}

func TestRedisBrokerRoundtrip(t *testing.T) {
    mr := miniredis.RunT(t)
    b, err := NewRedisBroker("redis://" + mr.Addr())
    if err != nil { t.Fatal(err) }

    ch := b.Subscribe("sup-1")
    evt := Event{Type: TypeRunFinished, Data: map[string]any{"passed": true}}
    b.Publish("sup-1", evt)

    select {
    case got := <-ch:
        if got.Type != TypeRunFinished { t.Fatalf("got type %s", got.Type) }
        if got.Data["passed"].(bool) != true { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(time.Second):
        t.Fatal("timeout waiting for redis event")
    }
}
