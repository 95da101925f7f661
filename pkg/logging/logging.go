package logging

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/sirupsen/logrus"
)

const (
	TimestampFormat = "2006-01-02T15:04:05.000000Z"
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
)

var log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		TimestampFormat: TimestampFormat,
		DisableColors:   true,
		FullTimestamp:   true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

const GracefulSentryShutdown = 5 * time.Second

func InitializeLogging(logLevel string, formatter dto.Formatter) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.WithError(err).Fatal("Error parsing loglevel")
		return
	}
	log.SetLevel(level)
	if formatter == dto.FormatterJSON {
		log.Formatter = &logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
		}
	}
	log.AddHook(&ContextHook{})
	log.AddHook(&SentryHook{})
	log.ExitFunc = func(i int) {
		sentry.Flush(GracefulSentryShutdown)
		os.Exit(i)
	}
}

func GetLogger(pkg string) *logrus.Entry {
	return log.WithField("package", pkg)
}

// ResponseWriter wraps the default http.ResponseWriter and catches the status code
// that is written.
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func NewLoggingResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{w, http.StatusOK}
}

func (writer *ResponseWriter) WriteHeader(code int) {
	writer.StatusCode = code
	writer.ResponseWriter.WriteHeader(code)
}

// HTTPLoggingMiddleware returns a http.Handler that logs different information about every request.
// It also tags the request with an id that is stored in the request context and echoed to the client.
func HTTPLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		path := RemoveNewlineSymbol(r.URL.Path)

		requestID := RemoveNewlineSymbol(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), dto.ContextKey(dto.KeyRequestID), requestID)

		lrw := NewLoggingResponseWriter(w)
		next.ServeHTTP(lrw, r.WithContext(ctx))

		latency := time.Now().UTC().Sub(start)
		logEntry := log.WithContext(ctx).WithFields(logrus.Fields{
			"code":       lrw.StatusCode,
			"method":     r.Method,
			"path":       path,
			"duration":   latency,
			"user_agent": RemoveNewlineSymbol(r.UserAgent()),
		})
		if lrw.StatusCode >= http.StatusInternalServerError {
			logEntry.Error("Failing " + path)
		} else {
			logEntry.Debug()
		}
	})
}

// RequestID returns the id the HTTPLoggingMiddleware assigned to the request of the passed context.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(dto.ContextKey(dto.KeyRequestID)).(string)
	return id, ok
}

// RemoveNewlineSymbol GOOD: remove newlines from user controlled input before logging.
func RemoveNewlineSymbol(data string) string {
	data = strings.ReplaceAll(data, "\r", "")
	data = strings.ReplaceAll(data, "\n", "")
	return data
}
