package testutil

import (
	"context"
	"sync"
)

// AuditEntry is one recorded audit event
type AuditEntry struct {
	Event  string
	UserID uint
	Fields map[string]interface{}
}

// AuditRecorder keeps audit events in memory
type AuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *AuditRecorder) Record(_ context.Context, event string, userID uint, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, AuditEntry{Event: event, UserID: userID, Fields: fields})
}

// Events returns the recorded event names in order
func (r *AuditRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		events = append(events, e.Event)
	}
	return events
}
