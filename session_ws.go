// The Upgrade branch of the HTTP stage: validate the handshake,
// resolve the path against the router's WebSocket slot, and hand the
// connection to wsconn for the rest of its life. Grounded on caddyserver/caddy's
// caddyhttp/websocket proxy handler for the handshake-then-hijack
// shape, adapted from net/http's Hijacker to this package's own
// net.Conn-owning session.
package kestrel

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kestrel-http/kestrel/header"
	"github.com/kestrel-http/kestrel/wsconn"
)

// enterWebSocket validates the handshake, resolves path against the
// router's parallel WebSocket slot, and — on success — upgrades the
// connection and blocks on its read loop until the peer disconnects.
// The session always ends (stageClosed) afterward; an upgraded
// connection never falls back to the HTTP keep-alive loop.
func (sess *Session) enterWebSocket(method, target, path, rawQuery, version string, hdr *header.Header) sessionStage {
	if method != http.MethodGet {
		sess.writeRawStatusLine(400, "Bad Request")
		return stageClosed
	}

	clientKey, err := wsconn.ValidateHandshake(hdr)
	if err != nil {
		sess.logger.Debug("websocket handshake rejected", zap.Error(err))
		sess.writeRawStatusLine(400, "Bad Request")
		return stageClosed
	}

	handlers, _, ok := sess.srv.router.MatchWebSocket(path)
	if !ok {
		sess.writeRawStatusLine(404, "Not Found")
		return stageClosed
	}

	openH, _ := handlers.Open.(WSHandler)
	msgH, _ := handlers.Message.(WSHandler)
	closeH, _ := handlers.Close.(WSHandler)

	// The handshake response and every subsequent frame must flow
	// through the same buffered reader the header parse already
	// consumed from, so any bytes already read past the blank line
	// aren't dropped.
	pc := &peekedConn{Conn: sess.conn, br: sess.br}

	conn, err := wsconn.Upgrade(pc, clientKey, nil, openH, msgH, closeH)
	if err != nil {
		sess.logger.Debug("websocket upgrade failed", zap.Error(err))
		return stageClosed
	}
	conn.ReadLoop()
	return stageClosed
}
