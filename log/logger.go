// Package log is the structured logging facade used by the stores and the
// admin CLI.
package log

import "context"

// Fields are structured key/value pairs attached to a log entry.
type Fields = map[string]interface{}

// Logger defines a standard interface for logging.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{}) // exits the process
	With(fields map[string]interface{}) Logger                                         // returns a child logger with added fields
}

// OrNop returns l, or a Nop logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
