package interfaces

// Connection is a live client transport. Implementations serialize writes
// through a single writer so WriteJSON is safe from any goroutine.
type Connection interface {
	// ID returns the server-assigned connection identifier.
	ID() string

	// WriteJSON queues a JSON frame for delivery to the client.
	WriteJSON(v interface{}) error

	// Shutdown queues a final frame, then closes the connection once the
	// writer has flushed it. Used for the losing side of a duplicate login.
	Shutdown(v interface{})

	// Close tears the connection down and releases its resources.
	Close() error
}
