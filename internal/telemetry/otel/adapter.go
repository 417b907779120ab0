package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"tenant-auth-control-plane/internal/telemetry"
)

// EventEmitter emits telemetry events as OpenTelemetry log records.
type EventEmitter struct {
	logger otellog.Logger
}

// NewEventEmitter creates an emitter backed by the given LoggerProvider.
// A nil provider yields an emitter whose Emit is a no-op.
func NewEventEmitter(provider *sdklog.LoggerProvider) *EventEmitter {
	if provider == nil {
		return &EventEmitter{}
	}
	return &EventEmitter{logger: provider.Logger("tenant-auth-control-plane/audit")}
}

// Emit converts the event to a log record and hands it to the provider's processor.
func (e *EventEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if e.logger == nil || event == nil {
		return nil
	}

	var rec otellog.Record
	rec.SetTimestamp(event.CreatedAt)
	rec.SetObservedTimestamp(event.CreatedAt)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(event.Action))
	rec.AddAttributes(
		otellog.String("tenant_id", event.TenantID),
		otellog.String("username", event.Username),
		otellog.String("action", event.Action),
		otellog.String("ip", event.IP),
		otellog.String("source", event.Source),
	)
	if event.Metadata != "" {
		rec.AddAttributes(otellog.String("metadata", event.Metadata))
	}

	e.logger.Emit(ctx, rec)
	return nil
}
