package session

type EventKind string

const (
	EventBootstrapped    EventKind = "bootstrapped"
	EventBootstrapFailed EventKind = "bootstrap_failed"
	EventLoggedIn        EventKind = "logged_in"
	EventLoginFailed     EventKind = "login_failed"
	EventLoggedOut       EventKind = "logged_out"
	EventRegistered      EventKind = "registered"
	EventRegisterFailed  EventKind = "register_failed"
	EventInvalidated     EventKind = "invalidated"
)

// Level classifies a notice for display.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Event describes a session change. Notice, when set, is meant for the user.
type Event struct {
	Kind   EventKind `json:"kind"`
	State  State     `json:"state"`
	Notice string    `json:"message,omitempty"`
	Level  Level     `json:"level,omitempty"`
	Err    error     `json:"-"`
}

// Listener receives events synchronously, outside the manager's lock.
// It must not block.
type Listener func(Event)

// Failure is a login or registration error carrying a message fit for the user.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }
