package observability

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/1genadam/tileshop-rag-sub001/idgen"
)

// HeartbeatWriter periodically records worker liveness plus Go runtime
// health, so a stalled extraction worker shows up in the database without
// any external monitoring stack.
type HeartbeatWriter struct {
	db       *sql.DB
	worker   string
	interval time.Duration
	newID    idgen.Generator
}

// NewHeartbeatWriter creates a writer for the named worker.
func NewHeartbeatWriter(db *sql.DB, worker string, interval time.Duration) *HeartbeatWriter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HeartbeatWriter{
		db:       db,
		worker:   worker,
		interval: interval,
		newID:    idgen.Prefixed("hb_", idgen.Default),
	}
}

// Run writes heartbeats until the context is canceled.
func (h *HeartbeatWriter) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.beat(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *HeartbeatWriter) beat(ctx context.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	hostname, _ := os.Hostname()

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO worker_heartbeats (heartbeat_id, worker_name, hostname,
			worker_pid, timestamp, goroutines_count, memory_alloc_mb, gc_count)
		VALUES (?,?,?,?,?,?,?,?)`,
		h.newID(), h.worker, hostname, os.Getpid(), time.Now().Unix(),
		runtime.NumGoroutine(), float64(ms.Alloc)/(1024*1024), ms.NumGC)
	if err != nil {
		slog.Warn("observability: heartbeat failed", "worker", h.worker, "error", err)
	}
}
