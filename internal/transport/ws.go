package transport

import (
	"context"
	"strings"

	"github.com/coder/websocket"
)

// WSConn carries the line protocol over a websocket: every text message
// is exactly one protocol line. This lets browser clients speak the same
// surface as raw TCP ones.
type WSConn struct {
	conn   *websocket.Conn
	remote string
}

// NewWS wraps an accepted websocket connection.
func NewWS(conn *websocket.Conn, remoteAddr string) *WSConn {
	return &WSConn{conn: conn, remote: remoteAddr}
}

func (c *WSConn) ReadLine(ctx context.Context) (string, error) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return "", err
		}
		if typ != websocket.MessageText {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *WSConn) WriteLine(line string) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, []byte(line))
}

func (c *WSConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *WSConn) RemoteAddr() string {
	return c.remote
}

var _ Conn = (*WSConn)(nil)
var _ Conn = (*TCPConn)(nil)
