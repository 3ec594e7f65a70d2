package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/broyeztony/karlgrid/internal/exec/taskrunner"
	"github.com/broyeztony/karlgrid/internal/grid"
	"github.com/broyeztony/karlgrid/internal/oplog"
	"github.com/broyeztony/karlgrid/internal/oplog/wsrelay"
	"github.com/broyeztony/karlgrid/internal/persist"
	"github.com/broyeztony/karlgrid/internal/txn"
)

// serveCommand starts the grid engine: a TCP listener speaking the
// core<->renderer binary protocol (internal/render) and an HTTP server
// exposing the multiplayer operation log over a websocket
// (internal/oplog/wsrelay), both driven by one txn.Engine. Grounded on
// main.go's spreadsheetCommand: same addr normalization, same
// NewServer-then-Start shape, generalized from one hardcoded in-memory
// sheet to a loadable document and an optional external task runner.
func serveCommand(args []string) int {
	addr := ":8080"
	docPath := ""
	taskAddr := ""
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "--doc="):
			docPath = strings.TrimPrefix(a, "--doc=")
		case strings.HasPrefix(a, "--task-runner="):
			taskAddr = strings.TrimPrefix(a, "--task-runner=")
		default:
			// Binding to "localhost" can cause issues with IPv4/IPv6
			// mismatch; prefer binding to all interfaces. If port only
			// (e.g. "8081"), prepend ":".
			addr = strings.Replace(a, "localhost", "", 1)
			if !strings.Contains(addr, ":") {
				addr = ":" + addr
			}
		}
	}

	var g *grid.Grid
	if docPath != "" {
		loaded, err := persist.Load(docPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "serve: load: %v\n", err)
			return 1
		}
		g = loaded
	} else {
		g = grid.NewGrid()
	}

	engine := txn.NewEngine(g)

	if taskAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		runner, err := taskrunner.NewZMQRunner(ctx, taskAddr, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "serve: task runner: %v\n", err)
			return 1
		}
		defer runner.Close()
		engine.SetTaskRunner(runner)
	}

	hub := newRenderHub(engine)

	memlog := oplog.NewMemLog()
	relay := wsrelay.NewRelay(memlog)
	relay.OnEntry(func(entry wsrelay.WireEntry) {
		hub.applyPeerEntry(relay, entry)
	})

	renderAddr := renderPort(addr)
	ln, err := net.Listen("tcp", renderAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve: render listen: %v\n", err)
		return 1
	}
	go hub.serveRender(ln)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", relay.HandleWebSocket)
	if docPath != "" {
		mux.HandleFunc("/save", func(w http.ResponseWriter, r *http.Request) {
			if err := persist.Save(docPath, g); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}

	log.Printf("karlgrid: oplog relay on %s (ws /ws), render protocol on %s (tcp)", addr, renderAddr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		return 1
	}
	return 0
}

// renderPort picks the render protocol's TCP port ten above the oplog
// relay's HTTP port, so "serve :8080" needs no second flag to run both
// endpoints on one host.
func renderPort(httpAddr string) string {
	idx := strings.LastIndex(httpAddr, ":")
	if idx < 0 {
		return ":8090"
	}
	port, err := strconv.Atoi(httpAddr[idx+1:])
	if err != nil || port == 0 {
		return ":8090"
	}
	return fmt.Sprintf(":%d", port+10)
}
