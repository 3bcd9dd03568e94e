package session

import "go.mau.fi/whatsmeow/types/events"

// State mirrors the session client's connection state. CONNECTED is the only
// state that does not trigger a restart.
type State string

const (
	StateConnected    State = "CONNECTED"
	StateTimeout      State = "TIMEOUT"
	StateUnpaired     State = "UNPAIRED"
	StateConflict     State = "CONFLICT"
	StateUnlaunched   State = "UNLAUNCHED"
	StateDisconnected State = "DISCONNECTED"
)

func (s State) Valid() bool {
	return s == StateConnected
}

// classifyEvent maps a whatsmeow lifecycle event to a State. The second
// return is false for events that carry no state information (messages,
// receipts, history syncs).
func classifyEvent(evt interface{}) (State, bool) {
	switch evt.(type) {
	case *events.Connected:
		return StateConnected, true
	case *events.KeepAliveTimeout:
		return StateTimeout, true
	case *events.LoggedOut:
		return StateUnpaired, true
	case *events.StreamReplaced:
		return StateConflict, true
	case *events.ClientOutdated, *events.TemporaryBan:
		return StateUnlaunched, true
	case *events.Disconnected:
		return StateDisconnected, true
	default:
		return "", false
	}
}
