package core

// Logger reports application events. Implementations may ship errors to an
// external tracker (see services/logger).
//
// expected args: error, map[string]interface{} or any printable value
type Logger interface {
	Enable(enabled bool)
	Info(msg string, args ...interface{})
	Error(msg string, err error, args ...interface{})
}
