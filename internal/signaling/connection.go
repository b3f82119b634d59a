package signaling

// Connection is the minimal capability the signaling layer needs from a
// transport. The concrete implementation lives in the server package; keeping
// the registry and router transport-agnostic lets tests use fake connections.
type Connection interface {
	// Send delivers a single JSON payload to the peer. It must not block
	// indefinitely; a send that cannot complete quickly returns an error.
	Send(payload []byte) error
	Close() error
}
