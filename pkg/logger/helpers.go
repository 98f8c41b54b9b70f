package logger

import "time"

// LogRequest records a completed HTTP exchange at a level chosen by its status
func LogRequest(l Logger, method, url string, statusCode int, elapsed time.Duration) {
	if l == nil {
		l = GetLogger()
	}
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    elapsed,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogRetry records that an operation failed and will be attempted again after delay
func LogRetry(l Logger, operation string, attempt int, delay time.Duration, err error) {
	if l == nil {
		l = GetLogger()
	}
	l.WithError(err).WarnWithFields("Retrying after transient failure", map[string]interface{}{
		"operation": operation,
		"attempt":   attempt,
		"delay":     delay,
	})
}
