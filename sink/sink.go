// Package sink defines the byte-destination abstraction shared by every
// writer in this module, plus a counting sink that measures how many bytes
// a write sequence would produce without keeping them.
package sink

// Sink is a sequential byte destination. Its shape matches [io.Writer]
// deliberately: any io.Writer (a *bytes.Buffer, an *os.File, a net.Conn)
// satisfies Sink without an adapter.
type Sink interface {
	Write(p []byte) (n int, err error)
}

// Counting is a [Sink] that discards every byte written to it and reports
// the total count. webvtt.MeasurePayloadBody and webvtt.MeasureHeaderBody
// use it to report a message body's size without a real sink.
type Counting struct {
	n int
}

// Write implements [Sink]. It never fails.
func (c *Counting) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

// Count returns the number of bytes written so far.
func (c *Counting) Count() int {
	return c.n
}

// Reset zeroes the count so the same Counting value can be reused.
func (c *Counting) Reset() {
	c.n = 0
}
