package listener

import (
	"bytes"
	"io"
	"time"
)

// crlfStream wraps a stream and converts \n to \r\n on writes.
// This is needed for protocols like telnet that require CRLF line endings.
type crlfStream struct {
	rw io.ReadWriter
}

func newCRLFStream(rw io.ReadWriter) io.ReadWriteCloser {
	return &crlfStream{rw: rw}
}

func (c *crlfStream) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)
	if n > 0 {
		// Normalize line endings: \r\n → \n, then standalone \r → \n.
		// Telnet sends \r\n, SSH with a PTY sends just \r.
		data := bytes.ReplaceAll(p[:n], []byte("\r\n"), []byte("\n"))
		data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
		n = copy(p, data)
	}
	return n, err
}

func (c *crlfStream) Write(p []byte) (int, error) {
	converted := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.rw.Write(converted)
	// Return the original length so callers aren't confused by the size change
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *crlfStream) Close() error {
	if cl, ok := c.rw.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// SetWriteDeadline is passed through when the wrapped stream supports it.
func (c *crlfStream) SetWriteDeadline(t time.Time) error {
	if d, ok := c.rw.(interface{ SetWriteDeadline(time.Time) error }); ok {
		return d.SetWriteDeadline(t)
	}
	return nil
}
