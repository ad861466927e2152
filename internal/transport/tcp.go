package transport

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// writeTimeout bounds a single line write so one stalled client cannot
// pin a goroutine forever.
const writeTimeout = 5 * time.Second

// TCPConn adapts a raw net.Conn to the line protocol.
type TCPConn struct {
	conn net.Conn
	r    *bufio.Reader

	wmu sync.Mutex
}

// NewTCP wraps an accepted TCP connection.
func NewTCP(conn net.Conn) *TCPConn {
	return &TCPConn{
		conn: conn,
		r:    bufio.NewReader(conn),
	}
}

// ReadLine reads the next line, trimming the trailing newline and any
// carriage return. The context deadline, if any, is applied as a read
// deadline.
func (c *TCPConn) ReadLine(ctx context.Context) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return "", err
		}
	} else {
		if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
			return "", err
		}
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine sends a single line followed by a newline.
func (c *TCPConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *TCPConn) Close() error {
	return c.conn.Close()
}

func (c *TCPConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
