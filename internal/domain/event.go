package domain

// EventType identifies a proctoring signal reported by the client.
// The enumeration is closed per the wire contract; anything else is
// rejected before any write occurs.
type EventType string

const (
	EventBlur             EventType = "blur"
	EventVisibilityChange EventType = "visibilitychange"
	EventCursorOut        EventType = "cursor_out"
	EventCursorLeave      EventType = "cursor_leave"
	EventMouseLeave       EventType = "mouseleave"
	EventFullscreenExit   EventType = "fullscreen_exit"
	EventDevtoolsShortcut EventType = "devtools_shortcut"
	EventStartSession     EventType = "start_session"
)

// ValidEventType reports whether t belongs to the closed enumeration.
func ValidEventType(t EventType) bool {
	switch t {
	case EventBlur, EventVisibilityChange, EventCursorOut, EventCursorLeave,
		EventMouseLeave, EventFullscreenExit, EventDevtoolsShortcut, EventStartSession:
		return true
	}
	return false
}

// Action is the server's authoritative directive governing client behavior.
type Action string

const (
	ActionOK   Action = "ok"
	ActionWarn Action = "warn"
	ActionEnd  Action = "end"
)

// ViolationThreshold is the count at which the session is terminated.
// Warnings are issued on the first and second violation, termination on
// the third or any later one.
const ViolationThreshold = 3

// ActionForCount maps a recomputed violation count to a directive:
// ok at 0, warn at 1 or 2, end at 3 or more. No other mappings exist.
func ActionForCount(n int) Action {
	switch {
	case n >= ViolationThreshold:
		return ActionEnd
	case n >= 1:
		return ActionWarn
	default:
		return ActionOK
	}
}

// Validation constraints for reported events.
const (
	MaxEventTypeLen = 50
	MaxDetailsLen   = 1000
)
