package core

// Logger is what every component logs through.
// args may hold errors, extra data maps and the authenticated user (see services/logger).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogPerson identifies the user a log entry is about.
type LogPerson struct {
	ID       string
	Username string
	Email    string
}
