// Package echo implements the stream and datagram echo servers the clients
// measure against. Both servers echo payloads verbatim and keep no state
// across transactions.
package echo

import (
	"context"
	"errors"
	"io"
	"net"
)

// ErrNotListening is returned by Serve when Listen has not been called.
var ErrNotListening = errors.New("server is not listening")

// Server is an echo server. Listen binds the socket synchronously, after
// which Ready is closed. Serve blocks until the context is canceled, at
// which point the socket is closed and Serve returns nil.
type Server interface {
	Listen(ctx context.Context) error
	Serve(ctx context.Context) error
	Addr() net.Addr
	Ready() <-chan struct{}
}

// closed reports whether err is the result of closing the socket, either
// explicitly or through context cancellation.
func closed(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, net.ErrClosed)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
