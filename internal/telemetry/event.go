// Package telemetry defines the audit/auth event stream shipped to external
// sinks (OTel logs, Kafka) and the emitter abstraction over them.
package telemetry

import (
	"context"
	"time"
)

// Event is one auth event as serialized onto the wire (Kafka message value,
// OTel log record attributes).
type Event struct {
	TenantID  string    `json:"tenant_id"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	IP        string    `json:"ip,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventEmitter emits auth events (e.g. to OTel Logs or Kafka). Best-effort;
// callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// MultiEmitter fans one event out to several emitters, returning the first
// error after attempting all of them.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event *Event) error {
	var firstErr error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
