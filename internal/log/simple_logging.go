package log

type (
	// Logger is the structured logger drivers and the device bridge write to.
	// Args are alternating keys and values.
	Logger interface {
		Debug(msg string, args ...any)
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}
	NOOPLogger struct{}
)

func (NOOPLogger) Debug(msg string, args ...any) {
}

func (NOOPLogger) Info(msg string, args ...any) {
}

func (NOOPLogger) Warn(msg string, args ...any) {
}

func (NOOPLogger) Error(msg string, args ...any) {
}

// OrNOOP returns logger, or a NOOPLogger if logger is nil.
func OrNOOP(logger Logger) Logger {
	if logger == nil {
		return NOOPLogger{}
	}
	return logger
}
