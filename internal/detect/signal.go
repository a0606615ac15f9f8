package detect

import "proctord/internal/domain"

// SignalKind identifies a raw environment signal as observed by the host
// client, before qualification. Several kinds collapse into the same wire
// event type: the tab-switch family is one violation class regardless of
// which listener fired.
type SignalKind string

const (
	// SignalVisibilityHidden fires when the document becomes hidden.
	SignalVisibilityHidden SignalKind = "visibility_hidden"
	// SignalWindowBlur fires when the window loses focus.
	SignalWindowBlur SignalKind = "window_blur"
	// SignalFocusWhileHidden fires when the window regains focus while the
	// document is still hidden.
	SignalFocusWhileHidden SignalKind = "focus_while_hidden"
	// SignalVisibilityPoll is the defensive polling check catching hidden
	// transitions the event listeners missed.
	SignalVisibilityPoll SignalKind = "visibility_poll"
	// SignalFullscreenExit fires when the fullscreen element disappears
	// after having been present.
	SignalFullscreenExit SignalKind = "fullscreen_exit"
	// SignalCursorLeave fires when the mouse leaves the viewport with no
	// related target.
	SignalCursorLeave SignalKind = "cursor_leave"
	// SignalDevtoolsShortcut fires on known devtools key combinations.
	SignalDevtoolsShortcut SignalKind = "devtools_shortcut"
	// SignalContextMenu fires on right-click. Always suppressed, never
	// counted.
	SignalContextMenu SignalKind = "context_menu"
)

// EventType maps a signal to the wire event type it reports. The second
// return is false for signals that never reach the ledger.
func (k SignalKind) EventType() (domain.EventType, bool) {
	switch k {
	case SignalVisibilityHidden, SignalFocusWhileHidden, SignalVisibilityPoll:
		return domain.EventVisibilityChange, true
	case SignalWindowBlur:
		return domain.EventBlur, true
	case SignalFullscreenExit:
		return domain.EventFullscreenExit, true
	case SignalCursorLeave:
		return domain.EventCursorLeave, true
	case SignalDevtoolsShortcut:
		return domain.EventDevtoolsShortcut, true
	default:
		return "", false
	}
}

// SuppressDefault reports whether the host client should prevent the
// signal's default action regardless of engine state.
func (k SignalKind) SuppressDefault() bool {
	return k == SignalDevtoolsShortcut || k == SignalContextMenu
}
