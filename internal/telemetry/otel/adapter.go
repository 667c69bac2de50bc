package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	eventdomain "pulsewatch/internal/event/domain"
	"pulsewatch/internal/stream"
)

// NewEventEmitter returns a stream.Producer that mirrors stored events as OTel
// log records via the given LoggerProvider. If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) stream.Producer {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("pulsewatch.events")}
}

// recordLogger is the subset of otellog.Logger the emitter needs; tests capture records through it.
type recordLogger interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitterWithLogger wraps an explicit logger. Used by tests.
func NewEventEmitterWithLogger(logger recordLogger) stream.Producer {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *eventdomain.Event) error { return nil }
func (noopEmitter) Close() error                                   { return nil }

type otelEmitter struct {
	logger recordLogger
}

// Emit converts the stored event to an OTel log record and emits it. Best-effort.
func (e *otelEmitter) Emit(ctx context.Context, event *eventdomain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.Timestamp.IsZero() {
		rec.SetTimestamp(event.Timestamp)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetSeverity(levelToSeverity(event.Level))
	rec.SetBody(otellog.StringValue(event.Message))
	rec.AddAttributes(otellog.String("project_id", event.ProjectID))
	if event.SessionID != nil && *event.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", *event.SessionID))
	}
	if event.UserID != nil && *event.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", *event.UserID))
	}
	if event.URL != nil && *event.URL != "" {
		rec.AddAttributes(otellog.String("url", *event.URL))
	}
	if event.ID != 0 {
		rec.AddAttributes(otellog.Int64("event_id", event.ID))
	}
	e.logger.Emit(ctx, rec)
	return nil
}

func (e *otelEmitter) Close() error { return nil }

func levelToSeverity(level string) otellog.Severity {
	switch level {
	case eventdomain.LevelError:
		return otellog.SeverityError
	case eventdomain.LevelWarn:
		return otellog.SeverityWarn
	case eventdomain.LevelDebug:
		return otellog.SeverityDebug
	default:
		return otellog.SeverityInfo
	}
}
