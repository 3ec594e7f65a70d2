// Package wsrelay is a reference WebSocket transport for internal/oplog: a
// broadcast relay that hands a reconnecting client everything it missed and
// streams new transactions to every other connected peer as they're
// appended, generalizing spreadsheet/server.go's Server (clients map,
// mu sync.Mutex, upgrader, broadcastAll) from one shared sheet to an
// ordered, resumable multiplayer log.
package wsrelay

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/broyeztony/karlgrid/internal/oplog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Relay serves the multiplayer log over a websocket per connected file:
// new clients get caught up via Since, then every later Broadcast call
// streams straight through to them.
type Relay struct {
	log     oplog.Log
	onEntry func(WireEntry)

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewRelay(l oplog.Log) *Relay {
	return &Relay{log: l, clients: make(map[*websocket.Conn]bool)}
}

// OnEntry registers the callback invoked for every WireEntry a client sends
// in (as opposed to Broadcast calls the server itself initiates). The
// caller - cmd/karlgrid, the layer that owns the txn.Engine these entries
// rebase against - is expected to decode the entry with DecodeOperations
// and DecodeCursor, apply it through Engine.ApplyPeerTransaction, and
// Broadcast the result back out so every other peer sees it.
func (r *Relay) OnEntry(fn func(WireEntry)) { r.onEntry = fn }

// HandleWebSocket upgrades the request, replays the log since the client's
// requested watermark (its "after" query parameter, 0 if absent or
// unparseable), then keeps the connection registered for Broadcast until it
// closes.
func (r *Relay) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Println("wsrelay: upgrade error:", err)
		return
	}

	r.mu.Lock()
	r.clients[conn] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.clients, conn)
		r.mu.Unlock()
		conn.Close()
	}()

	after := parseAfter(req.URL.Query().Get("after"))
	backlog, err := r.log.Since(after)
	if err != nil {
		log.Println("wsrelay: backlog fetch failed:", err)
		return
	}
	for _, e := range backlog {
		if err := conn.WriteJSON(encodeEntry(e)); err != nil {
			log.Println("wsrelay: backlog write failed:", err)
			return
		}
	}

	for {
		var entry WireEntry
		if err := conn.ReadJSON(&entry); err != nil {
			break
		}
		if r.onEntry != nil {
			r.onEntry(entry)
		}
	}
}

// Broadcast appends entry to the log (assigning it a fresh sequence number)
// and streams it to every currently connected client.
func (r *Relay) Broadcast(e oplog.Entry) (oplog.Entry, error) {
	stored, err := r.log.Append(e)
	if err != nil {
		return oplog.Entry{}, err
	}
	wire := encodeEntry(stored)

	r.mu.Lock()
	defer r.mu.Unlock()
	for client := range r.clients {
		if err := client.WriteJSON(wire); err != nil {
			log.Printf("wsrelay: broadcast write failed: %v", err)
			_ = client.Close()
			delete(r.clients, client)
		}
	}
	return stored, nil
}

func parseAfter(s string) uint64 {
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
