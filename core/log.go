package core

// Logger is any leveled logger that can report errors to an external service.
// Extra args may carry structured context (maps, errors, the acting user).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warning(msg string, args ...interface{})
	Error(msg string, err error, args ...interface{})
	Fatal(msg string, args ...interface{})
}
