package tinypoll

// Events is the buffer a [Poll] delivers events into. Its capacity bounds
// the number of events delivered by a single wait.
type Events []Event

// NewEvents returns an empty buffer, able to receive up to capacity events
// per call to [Poll.Poll].
func NewEvents(capacity int) Events {
	return make(Events, 0, capacity)
}
