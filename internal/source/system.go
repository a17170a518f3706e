package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"net"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/vfa-khuongdv/opsboard/internal/config"
)

// Prober reports whether a local service is reachable
type Prober interface {
	Probe(ctx context.Context, server config.ServerProbe) bool
}

// NetProber dials TCP ports and pings MySQL servers
type NetProber struct {
	timeout time.Duration
}

// NewNetProber creates a prober with a per-probe timeout
func NewNetProber(timeout time.Duration) *NetProber {
	return &NetProber{timeout: timeout}
}

// Probe checks a single server
func (p *NetProber) Probe(ctx context.Context, server config.ServerProbe) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if server.Kind == "mysql" && server.DSN != "" {
		return p.pingMySQL(ctx, server.DSN)
	}

	host := server.Host
	if host == "" {
		host = "127.0.0.1"
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(server.Port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// pingMySQL opens a short-lived connection and pings it
func (p *NetProber) pingMySQL(ctx context.Context, dsn string) bool {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return false
	}
	defer db.Close()

	return db.PingContext(ctx) == nil
}

// SystemState reads state/servers.json and state/branch-check.json. When no
// server list has been written the configured servers are probed live.
func (w *Workspace) SystemState(ctx context.Context) (*SystemState, error) {
	var servers []ServerStatus
	found, err := readJSONFile(w.statePath("servers.json"), &servers)
	if err != nil {
		return nil, err
	}
	if !found {
		servers = w.probeServers(ctx)
	}
	if servers == nil {
		servers = []ServerStatus{}
	}

	var branch json.RawMessage
	if _, err := readJSONFile(w.statePath("branch-check.json"), &branch); err != nil {
		return nil, err
	}

	return &SystemState{
		Servers:      servers,
		BranchStatus: branch,
		LastUpdated:  w.nowMillis(),
	}, nil
}

func (w *Workspace) probeServers(ctx context.Context) []ServerStatus {
	servers := make([]ServerStatus, 0, len(w.cfg.Workspace.Servers))
	for _, probe := range w.cfg.Workspace.Servers {
		status := "down"
		if w.prober.Probe(ctx, probe) {
			status = "up"
		}
		servers = append(servers, ServerStatus{
			Name:      probe.Name,
			Status:    status,
			Port:      probe.Port,
			LastCheck: w.nowMillis(),
		})
	}
	return servers
}

// Revenue reads state/revenue.json, defaulting every figure to zero
func (w *Workspace) Revenue(ctx context.Context) (*Revenue, error) {
	revenue := &Revenue{}
	if _, err := readJSONFile(w.statePath("revenue.json"), revenue); err != nil {
		return nil, err
	}
	revenue.LastUpdated = w.nowMillis()
	return revenue, nil
}
