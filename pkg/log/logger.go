package log

// Logger receives protocol capture events. Implementations must be safe
// for concurrent use and must not block: the bus and every connection
// call Log inline.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards every event. Components use it when no capture is
// configured.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

func (f LoggerFunc) Log(event Event) { f(event) }

// Multi returns a Logger that hands each event to every non-nil logger
// in order. With no real logger it returns NoopLogger, and with one it
// returns that logger unwrapped.
func Multi(loggers ...Logger) Logger {
	var out multiLogger
	for _, l := range loggers {
		switch l := l.(type) {
		case nil, NoopLogger:
		case multiLogger:
			out = append(out, l...)
		default:
			out = append(out, l)
		}
	}
	switch len(out) {
	case 0:
		return NoopLogger{}
	case 1:
		return out[0]
	}
	return out
}

type multiLogger []Logger

func (m multiLogger) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}
