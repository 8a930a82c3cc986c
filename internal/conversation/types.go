package conversation

import "time"

// State is the input a session currently expects. Values are persisted by the
// session stores.
type State string

const (
	// StateNone means the session has not been created yet.
	StateNone             State = ""
	StateAwaitingChoice   State = "awaiting_choice"
	StateAwaitingCityName State = "awaiting_city_name"
	StateTerminated       State = "terminated"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateNone, StateAwaitingChoice, StateAwaitingCityName, StateTerminated:
		return true
	}
	return false
}

// Session is one end-user conversation.
type Session struct {
	ID        string
	State     State
	UpdatedAt time.Time
}

// EventKind classifies inbound transport events.
type EventKind string

const (
	EventText     EventKind = "text"
	EventLocation EventKind = "location"
	EventCommand  EventKind = "command"
)

// Commands understood by the machine.
const (
	CommandStart  = "start"
	CommandHelp   = "help"
	CommandCancel = "cancel"
)

// Event is a transport-neutral inbound message.
type Event struct {
	ID         string
	SessionID  string
	Kind       EventKind
	Text       string
	Command    string
	Latitude   float64
	Longitude  float64
	ReceivedAt time.Time
}

// IsCancel reports whether the event is the cancel command.
func (e Event) IsCancel() bool {
	return e.Kind == EventCommand && e.Command == CommandCancel
}

// Keyboard is the reply affordance attached to a message.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	// KeyboardOptions is the two-button "Share my location" / "Type a city name" keyboard.
	KeyboardOptions
)

// Reply is one outbound message.
type Reply struct {
	Text     string
	Keyboard Keyboard
}
