package logging

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/sirupsen/logrus"
)

// SentryContextKey is the name of the Sentry context holding the log entry data.
const SentryContextKey = "Velo Details"

// SentryHook is a simple adapter that converts logrus entries into Sentry events.
type SentryHook struct{}

// Fire is triggered on new log entries.
func (hook *SentryHook) Fire(entry *logrus.Entry) error {
	event := sentry.NewEvent()
	event.Timestamp = entry.Time
	event.Level = sentry.Level(entry.Level.String())
	event.Message = entry.Message

	data := make(map[string]interface{}, len(entry.Data))
	for key, value := range entry.Data {
		data[key] = value
	}

	// Add Stack Trace when an error was passed.
	if value, ok := data[logrus.ErrorKey]; ok {
		if err, ok := value.(error); ok {
			const maxErrorDepth = 10
			event.SetException(err, maxErrorDepth)
			data[logrus.ErrorKey] = err.Error()
		}
	}

	var hub *sentry.Hub
	if entry.Context != nil {
		hub = sentry.GetHubFromContext(entry.Context)
	}
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	// The scope is cloned so that the entry data does not leak into unrelated events.
	hub = hub.Clone()
	hub.Scope().SetContext(SentryContextKey, data)
	for _, key := range []string{dto.KeyRequestID, dto.KeyResourceID, dto.KeyResourceType} {
		if value, ok := data[key].(string); ok {
			hub.Scope().SetTag(key, value)
		}
	}

	hub.CaptureEvent(event)
	return nil
}

// Levels returns all levels this hook should be registered to.
func (hook *SentryHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
	}
}

// StartSpan starts a Sentry span with the passed operation and description and calls the callback
// with the context of the span.
func StartSpan(ctx context.Context, op, description string, callback func(context.Context)) {
	span := sentry.StartSpan(ctx, op)
	span.Description = description
	defer span.Finish()
	callback(span.Context())
}
