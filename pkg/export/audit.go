package export

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures who requested an export and how it progressed.
type AuditEntry struct {
	ID         string         `json:"id"`
	ExportID   string         `json:"export_id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Plugin     string         `json:"plugin"`
	Table      string         `json:"table"`
	Status     ExportStatus   `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// LogAuditLog writes audit entries to a structured logger.
type LogAuditLog struct {
	Logger zerolog.Logger
}

// Record emits the entry at info level, or warn for failures.
func (l LogAuditLog) Record(_ context.Context, entry AuditEntry) {
	ev := l.Logger.Info()
	if entry.Status == ExportStatusFailed {
		ev = l.Logger.Warn()
	}
	ev.Str("audit_id", entry.ID).
		Str("export_id", entry.ExportID).
		Str("action", entry.Action).
		Str("actor", entry.Actor).
		Str("plugin", entry.Plugin).
		Str("table", entry.Table).
		Str("status", string(entry.Status)).
		Str("reason", entry.Reason).
		Fields(entry.Metadata).
		Time("occurred_at", entry.OccurredAt).
		Msg("export audit")
}
