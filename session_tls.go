// DetectTls and HandshakeTls, the first two stages of a connection's
// life. A maybe-TLS stream visited through one interface, chosen once
// and never branched on again, expressed here as a small net.Conn
// wrapper selected once in detectTLS.
package kestrel

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"time"

	"go.uber.org/zap"
)

// tlsRecordTypeHandshake is the first byte of a TLS record carrying a
// ClientHello (TLS record content type "handshake").
const tlsRecordTypeHandshake = 0x16

// peekedConn lets a bufio.Reader that has already Peek()ed bytes off a
// net.Conn stand in for that conn without losing the buffered bytes,
// so tls.Server can consume a ClientHello that detectTLS already
// peeked into.
type peekedConn struct {
	net.Conn
	br *bufio.Reader
}

func (c *peekedConn) Read(p []byte) (int, error) { return c.br.Read(p) }

// detectTLS peeks the first byte of the connection; a TLS record type
// with a configured certificate advances to the handshake stage,
// anything else (or no TLS configured at all) goes straight to Http.
func (sess *Session) detectTLS() sessionStage {
	if sess.srv.tlsConfig == nil {
		return stageHTTP
	}
	sess.conn.SetReadDeadline(time.Now().Add(sess.srv.readTimeoutOrDefault()))
	first, err := sess.br.Peek(1)
	sess.conn.SetReadDeadline(time.Time{})
	if err != nil {
		return stageClosed
	}
	if first[0] == tlsRecordTypeHandshake {
		return stageHandshakeTLS
	}
	return stageHTTP
}

// handshakeTLS completes the TLS handshake over the retained,
// already-peeked bytes and, on success, replaces the session's
// transport and header reader with the wrapped *tls.Conn for every
// subsequent stage.
func (sess *Session) handshakeTLS() sessionStage {
	deadline := time.Now().Add(sess.srv.readTimeoutOrDefault())
	sess.conn.SetDeadline(deadline)
	defer sess.conn.SetDeadline(time.Time{})

	pc := &peekedConn{Conn: sess.conn, br: sess.br}
	tlsConn := tls.Server(pc, sess.srv.tlsConfig)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		sess.logger.Debug("tls handshake failed", zap.Error(err))
		return stageClosed
	}
	sess.conn = tlsConn
	sess.br = bufio.NewReader(tlsConn)
	return stageHTTP
}
