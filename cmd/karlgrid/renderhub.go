package main

import (
	"log"
	"net"
	"sync"

	"github.com/broyeztony/karlgrid/internal/grid"
	"github.com/broyeztony/karlgrid/internal/oplog"
	"github.com/broyeztony/karlgrid/internal/oplog/wsrelay"
	"github.com/broyeztony/karlgrid/internal/render"
	"github.com/broyeztony/karlgrid/internal/txn"
)

// renderHub bridges the txn.Engine to every connected core<->renderer
// stream, generalizing spreadsheet/server.go's Server (clients map, mu,
// broadcastAll) from one shared websocket sheet view to the binary render
// protocol's per-connection tile cache (internal/render.Cache).
type renderHub struct {
	engine *txn.Engine

	mu       sync.Mutex
	sessions map[net.Conn]*render.Cache
}

func newRenderHub(engine *txn.Engine) *renderHub {
	return &renderHub{engine: engine, sessions: make(map[net.Conn]*render.Cache)}
}

func (h *renderHub) serveRender(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Println("render: accept error:", err)
			return
		}
		go h.handleConn(conn)
	}
}

func (h *renderHub) handleConn(conn net.Conn) {
	defer conn.Close()

	sheets := h.engine.Grid().Sheets()
	if len(sheets) == 0 {
		return
	}
	sheet := sheets[0]
	cache := render.NewCache()

	h.mu.Lock()
	h.sessions[conn] = cache
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, conn)
		h.mu.Unlock()
	}()

	if err := h.sendInit(conn, cache, sheet); err != nil {
		return
	}

	for {
		// The render protocol carries UI interaction events (viewport,
		// selection, hover, resize) back from the renderer; value edits
		// travel over the transaction pipeline instead, so a connection's
		// only job past InitSheet is to keep reading until the peer hangs
		// up.
		if _, err := render.ReadMessage(conn); err != nil {
			return
		}
	}
}

func (h *renderHub) sendInit(conn net.Conn, cache *render.Cache, sheet *grid.Sheet) error {
	bounds := sheet.Bounds()
	var hashCells []render.HashCells
	if !bounds.Empty {
		min := grid.QuadrantOf(bounds.Rect.Min)
		max := grid.QuadrantOf(bounds.Rect.Max)
		for tx := min.X; tx <= max.X; tx++ {
			for ty := min.Y; ty <= max.Y; ty++ {
				hp := grid.Pos{X: tx, Y: ty}
				hashCells = append(hashCells, render.BuildHashCells(sheet, hp))
				cache.Remember(sheet.ID, hp)
			}
		}
	}
	return render.WriteMessage(conn, render.InitSheet{SheetID: sheet.ID, HashCells: hashCells})
}

// broadcastDirty tells every render session the tiles pt's transaction
// touched on sheet, rebuilding nothing here - the renderer is expected to
// re-request exactly these hashes.
func (h *renderHub) broadcastDirty(sheet *grid.Sheet, pt *txn.PendingTransaction) {
	tiles := pt.Summary.DirtyHashes[sheet.ID]
	if len(tiles) == 0 {
		return
	}
	hashes := make([]grid.Pos, 0, len(tiles))
	for hp := range tiles {
		hashes = append(hashes, hp)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.sessions {
		if err := render.WriteMessage(conn, render.DirtyHashes{SheetID: sheet.ID, Hashes: hashes}); err != nil {
			log.Println("render: write failed:", err)
			conn.Close()
			delete(h.sessions, conn)
		}
	}
}

// applyPeerEntry decodes a multiplayer WireEntry back into operations,
// applies them through the engine, and fans the result out to every render
// session (DirtyHashes) and every oplog subscriber (relay.Broadcast).
func (h *renderHub) applyPeerEntry(relay *wsrelay.Relay, entry wsrelay.WireEntry) {
	ops, err := wsrelay.DecodeOperations(entry.Operations)
	if err != nil {
		log.Println("render: decode peer entry:", err)
		return
	}
	if len(ops) == 0 {
		return
	}
	cursor, err := wsrelay.DecodeCursor(entry.Cursor)
	if err != nil {
		log.Println("render: decode peer cursor:", err)
		return
	}
	id, err := wsrelay.DecodeID(entry.ID)
	if err != nil {
		id = txn.NewID()
	}

	pt, err := h.engine.ApplyPeerTransaction(ops, cursor)
	if err != nil {
		log.Println("render: apply peer transaction:", err)
		return
	}

	for sheetID := range pt.Summary.DirtyHashes {
		if sheet := h.sheetByID(sheetID); sheet != nil {
			h.broadcastDirty(sheet, pt)
		}
	}

	if _, err := relay.Broadcast(oplog.Entry{ID: id, Operations: pt.ForwardOperations, Cursor: cursor}); err != nil {
		log.Println("render: broadcast:", err)
	}
}

func (h *renderHub) sheetByID(id grid.SheetID) *grid.Sheet {
	for _, s := range h.engine.Grid().Sheets() {
		if s.ID == id {
			return s
		}
	}
	return nil
}
