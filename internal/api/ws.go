package api

import (
    "encoding/json"
    "net/http"
    "sync"
    "time"

    "github.com/gorilla/websocket"

    "supplygw/internal/events"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
    Type    string          `json:"type"`
    ID      string          `json:"id,omitempty"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribePayload struct {
    SupplierID string `json:"supplierId"`
}

// VerificationWSHandler handles /v1/verifications/ws: a lightweight
// subscription protocol (connection_init / subscribe / complete) carrying
// verification run events.
func (s *Server) VerificationWSHandler(w http.ResponseWriter, r *http.Request) {
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        return
    }
    defer func() { _ = conn.Close() }()

    type sub struct {
        supplierID string
        ch         chan events.Event
    }
    subs := map[string]sub{}

    conn.SetReadLimit(1 << 20)
    _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
    conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

    // the read loop, keepalive ticker and subscription forwarders all write;
    // gorilla allows one writer at a time
    var writeMu sync.Mutex
    write := func(v any) error {
        writeMu.Lock()
        defer writeMu.Unlock()
        return conn.WriteJSON(v)
    }

    for {
        var msg wsMessage
        if err := conn.ReadJSON(&msg); err != nil {
            break
        }
        switch msg.Type {
        case "connection_init":
            _ = write(wsMessage{Type: "connection_ack"})
            go func() {
                ticker := time.NewTicker(20 * time.Second)
                defer ticker.Stop()
                for range ticker.C {
                    if err := write(wsMessage{Type: "ping"}); err != nil {
                        return
                    }
                }
            }()
        case "ping":
            _ = write(wsMessage{Type: "pong"})
        case "subscribe":
            var pl wsSubscribePayload
            _ = json.Unmarshal(msg.Payload, &pl)
            if pl.SupplierID == "" {
                _ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"supplierId required"}`)})
                _ = write(wsMessage{Type: "complete", ID: msg.ID})
                continue
            }
            ch := s.Broker.Subscribe(pl.SupplierID)
            subs[msg.ID] = sub{supplierID: pl.SupplierID, ch: ch}
            go func(id string, c chan events.Event) {
                for evt := range c {
                    payload, _ := json.Marshal(evt)
                    _ = write(wsMessage{Type: "next", ID: id, Payload: payload})
                }
                _ = write(wsMessage{Type: "complete", ID: id})
            }(msg.ID, ch)
        case "complete":
            if s0, ok := subs[msg.ID]; ok {
                s.Broker.Unsubscribe(s0.supplierID, s0.ch)
                delete(subs, msg.ID)
            }
        default:
            // ignore
        }
    }
    for id, s0 := range subs {
        s.Broker.Unsubscribe(s0.supplierID, s0.ch)
        delete(subs, id)
    }
}
