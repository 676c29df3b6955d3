package api

import (
    "encoding/json"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/gorilla/websocket"

    "supplygw/internal/events"
)

func wsReadTyped(t *testing.T, c *websocket.Conn, want string) wsMessage {
    t.Helper()
    _ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
    for {
        var m wsMessage
        if err := c.ReadJSON(&m); err != nil { t.Fatalf("read: %v", err) }
        if m.Type == "ping" { continue }
        if m.Type != want { t.Fatalf("got %s, want %s", m.Type, want) }
        return m
    }
}

func TestVerificationWSStreamsEvents(t *testing.T) {
    s := newTestServer(t)
    srv := httptest.NewServer(s.Routes())
    defer srv.Close()

    url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/verifications/ws"
    c, _, err := websocket.DefaultDialer.Dial(url, nil)
    if err != nil { t.Fatalf("dial: %v", err) }
    defer func() { _ = c.Close() }()

    if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil { t.Fatal(err) }
    wsReadTyped(t, c, "connection_ack")

    pl, _ := json.Marshal(wsSubscribePayload{SupplierID: "sup-1"})
    if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil { t.Fatal(err) }
    // the server handles messages in order, so a pong means the
    // subscription is registered
    if err := c.WriteJSON(wsMessage{Type: "ping"}); err != nil { t.Fatal(err) }
    wsReadTyped(t, c, "pong")

    // concurrent publishers exercise the single-writer guard on the socket
    const n = 5
    for i := 0; i < n; i++ {
        go s.Broker.Publish("sup-1", events.Event{Type: events.TypeStep, Data: map[string]any{"step": "health"}})
    }
    for i := 0; i < n; i++ {
        m := wsReadTyped(t, c, "next")
        if m.ID != "1" { t.Fatalf("subscription id: %s", m.ID) }
        var evt events.Event
        if err := json.Unmarshal(m.Payload, &evt); err != nil { t.Fatal(err) }
        if evt.Type != events.TypeStep { t.Fatalf("event type: %s", evt.Type) }
    }

    if err := c.WriteJSON(wsMessage{Type: "complete", ID: "1"}); err != nil { t.Fatal(err) }
    wsReadTyped(t, c, "complete")
}

func TestVerificationWSRejectsEmptySupplier(t *testing.T) {
    s := newTestServer(t)
    srv := httptest.NewServer(s.Routes())
    defer srv.Close()

    url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/verifications/ws"
    c, _, err := websocket.DefaultDialer.Dial(url, nil)
    if err != nil { t.Fatalf("dial: %v", err) }
    defer func() { _ = c.Close() }()

    if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil { t.Fatal(err) }
    wsReadTyped(t, c, "connection_ack")
    if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil { t.Fatal(err) }
    wsReadTyped(t, c, "error")
    wsReadTyped(t, c, "complete")
}
