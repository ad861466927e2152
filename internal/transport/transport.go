// Package transport frames client connections into protocol lines. The
// rest of the server only ever sees whole lines; framing, write
// serialization and timeouts live here.
package transport

import "context"

// Conn is a single client connection with line framing applied. ReadLine
// blocks until a full line arrives; WriteLine appends the newline. Both
// may be called from different goroutines; WriteLine is internally
// serialized.
type Conn interface {
	ReadLine(ctx context.Context) (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}
