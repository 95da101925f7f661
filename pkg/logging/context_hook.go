package logging

import (
	"github.com/openHPI/velo/pkg/dto"
	"github.com/sirupsen/logrus"
)

// ContextHook copies the request_id, resource_id and resource_type of the request context into the log fields.
// Logrus itself ignores the context of an entry. A field set explicitly on the entry wins over the context value.
type ContextHook struct{}

// Fire is triggered on new log entries.
func (hook *ContextHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}
	for _, key := range dto.LoggedContextKeys {
		field := string(key)
		if _, ok := entry.Data[field]; ok {
			continue
		}
		if value, ok := requestValue(entry, key); ok {
			entry.Data[field] = value
		}
	}
	return nil
}

// requestValue returns the context value of the key unless it is missing or an empty string.
func requestValue(entry *logrus.Entry, key dto.ContextKey) (any, bool) {
	value := entry.Context.Value(key)
	if text, isString := value.(string); isString && text == "" {
		return nil, false
	}
	return value, value != nil
}

// Levels returns all levels this hook should be registered to.
func (hook *ContextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}
