//go:build !linux && !darwin

package tinypoll

// Event is a single readiness notification. No backend exists for this
// platform, so none are ever delivered.
type Event struct {
	id Token
}

// ID returns the token the source was registered with.
func (x Event) ID() Token { return x.id }

// Readable reports whether the source was reported readable.
func (x Event) Readable() bool { return false }

// Hangup reports whether the peer closed its end of the connection.
func (x Event) Hangup() bool { return false }
