// Package main runs a demo WebSocket client for verification events.
package main

import (
    "bytes"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "net/url"
    "os"
    "time"

    "github.com/gorilla/websocket"
)

type wsMessage struct {
    Type    string          `json:"type"`
    ID      string          `json:"id,omitempty"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
    port := os.Getenv("PORT")
    if port == "" {
        port = "8080"
    }
    supplierID := os.Getenv("SUPPLIER_ID")
    if supplierID == "" {
        supplierID = "demo-supplier"
    }
    base := fmt.Sprintf("http://localhost:%s", port)

    // Connect WS
    u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/verifications/ws"}
    c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
    if err != nil {
        log.Fatal("dial:", err)
    }
    defer func() { _ = c.Close() }()

    // connection_init
    if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
        log.Fatal(err)
    }
    // subscribe to this supplier's verification events
    pl, _ := json.Marshal(map[string]any{"supplierId": supplierID})
    if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
        log.Fatal(err)
    }

    done := make(chan struct{})
    go func() {
        defer close(done)
        for {
            var m wsMessage
            if err := c.ReadJSON(&m); err != nil {
                log.Printf("read: %v", err)
                return
            }
            log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
        }
    }()

    // Kick off a verification run so events start flowing
    time.Sleep(500 * time.Millisecond)
    body, _ := json.Marshal(map[string]string{"supplierId": supplierID})
    req, _ := http.NewRequest(http.MethodPost, base+"/v1/verifications", bytes.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        log.Fatal(err)
    }
    _ = resp.Body.Close()
    log.Printf("verification run started: %s", resp.Status)

    // Wait briefly to receive the run events
    select {
    case <-time.After(5 * time.Second):
    case <-done:
    }
}
