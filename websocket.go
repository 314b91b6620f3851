package kestrel

import (
	"github.com/kestrel-http/kestrel/router"
	"github.com/kestrel-http/kestrel/wsconn"
)

// WSConn is the upgraded connection handed to a registered WebSocket
// callback, re-exported so callers never need to import wsconn
// directly for the common case of registering handlers.
type WSConn = wsconn.Conn

// WSHandler is the open/message/close callback triple passed to
// OnWebSocket.
type WSHandler = wsconn.Handler

// OnWebSocket registers the open/message/close triple for path,
// reusing the same route trie as On/OnAny. open and close may be nil;
// message is invoked for every inbound frame once the handshake
// completes.
func (s *Server) OnWebSocket(path string, open, message, close WSHandler) error {
	return s.router.OnWebSocket(path, router.WSHandlers{
		Open:    open,
		Message: message,
		Close:   close,
	})
}
