package segio

import "net"

// Channel is the overlay byte channel SRT is layered over: an ordered,
// lossless transport reduced to the two blocking primitives the codec
// actually needs. Every implementation must make Send atomic with respect
// to concurrent callers on the same direction (the codec issues exactly
// three Send calls per outgoing segment and relies on them landing
// back-to-back on the wire).
type Channel interface {
	// Send writes p in full, returning a non-nil error if it could not.
	Send(p []byte) error
	// RecvByte blocks for exactly one byte, returning a non-nil error
	// (commonly io.EOF) when the channel has terminated.
	RecvByte() (byte, error)
}

// NetChannel adapts a net.Conn (conceptually a TCP connection to the
// overlay network) to the Channel interface.
type NetChannel struct {
	conn net.Conn
	one  [1]byte
}

// NewNetChannel wraps conn as a Channel.
func NewNetChannel(conn net.Conn) *NetChannel {
	return &NetChannel{conn: conn}
}

func (c *NetChannel) Send(p []byte) error {
	_, err := c.conn.Write(p)
	return err
}

func (c *NetChannel) RecvByte() (byte, error) {
	_, err := c.conn.Read(c.one[:])
	if err != nil {
		return 0, err
	}
	return c.one[0], nil
}

// Close releases the underlying connection, if the channel owns one.
func (c *NetChannel) Close() error {
	return c.conn.Close()
}
