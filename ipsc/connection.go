package ipsc

// Connection is a child endpoint produced by Listener.Accept. It never
// owns the server's socket file — only the listener itself does — so
// Close never unlinks anything.
type Connection struct {
	rawSocket
}

// Close shuts down and releases the connection's descriptor. Idempotent,
// and safe on a nil receiver so handler code and the event loop can both
// call it without coordinating who closes first.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}
	return c.closeFd()
}
