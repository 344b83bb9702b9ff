package log

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
)

// HTTPAccessLog wraps h so that every request is written to the zap logger
// as a structured access-log entry.
func HTTPAccessLog(h http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, h, zapLogFormatter)
}

// zapLogFormatter satisfies handlers.LogFormatter. The writer is ignored;
// entries go to the package logger instead.
func zapLogFormatter(_ io.Writer, params handlers.LogFormatterParams) {
	fields := []interface{}{
		"method", params.Request.Method,
		"path", params.URL.Path,
		"status", params.StatusCode,
		"size", params.Size,
		"remote_addr", params.Request.RemoteAddr,
		"user_agent", params.Request.UserAgent(),
	}

	if params.StatusCode >= http.StatusInternalServerError {
		Errorw("http request", fields...)
		return
	}
	Debugw("http request", fields...)
}
