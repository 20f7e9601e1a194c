package docker

// Level classifies a diagnostic event the way the console renders it.
type Level int

const (
	LevelMsg Level = iota
	LevelOK
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "msg"
}

// Event is one diagnostic line emitted while filtering or deploying. Host is
// empty for events about the whole batch.
type Event struct {
	Level   Level
	Host    string
	Message string
}

// EventFunc receives events in the order they happen. It is called from the
// goroutine running the operation.
type EventFunc func(Event)

func (o *Orchestrator) emit(level Level, host, message string) {
	if o.events != nil {
		o.events(Event{Level: level, Host: host, Message: message})
	}
}
