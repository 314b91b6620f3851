// The CONNECT tunnel stage: dial the upstream, reply 200
// Connection Established, then pump bytes full-duplex with half-close
// propagation. Grounded on caddyserver/caddy's
// modules/caddyhttp/reverseproxy streaming-copy idiom and the
// WhileEndless-go-rawhttp CONNECT client for the target-parsing shape,
// adapted from a client-side CONNECT write to a server-side CONNECT
// reply.
package kestrel

import (
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-http/kestrel/header"
)

const proxyBufferSize = 512 * 1024

// enterProxy resolves host:port from the CONNECT target, dials
// upstream, and — on success — replies 200 and pumps bytes until
// either side closes. The session always ends (returns stageClosed)
// once the tunnel itself has run its course; CONNECT never loops back
// into keep-alive.
func (sess *Session) enterProxy(target string, hdr *header.Header) sessionStage {
	if !strings.Contains(target, ":") {
		sess.writeRawStatusLine(400, "Bad Request")
		return stageClosed
	}

	upstream, err := net.DialTimeout("tcp", target, sess.srv.connectTimeoutOrDefault())
	if err != nil {
		sess.logger.Debug("proxy upstream dial failed", zap.String("target", target), zap.Error(err))
		sess.writeRawStatusLine(502, "Bad Gateway")
		return stageClosed
	}
	defer upstream.Close()

	sess.conn.SetWriteDeadline(time.Now().Add(sess.srv.writeTimeoutOrDefault()))
	_, werr := io.WriteString(sess.conn, "HTTP/1.1 200 Connection Established\r\n\r\n")
	sess.conn.SetWriteDeadline(time.Time{})
	if werr != nil {
		return stageClosed
	}

	if n := sess.br.Buffered(); n > 0 {
		if buffered, err := sess.br.Peek(n); err == nil {
			upstream.Write(buffered)
			sess.br.Discard(n)
		}
	}

	sess.pumpTunnel(upstream, target)
	return stageClosed
}

// pumpTunnel runs two concurrent unidirectional copies with a 512 KiB
// buffer each, half-shutting the opposite direction as each side
// finishes and waiting for both to complete before returning.
func (sess *Session) pumpTunnel(upstream net.Conn, target string) {
	client := sess.conn
	var wg sync.WaitGroup
	var clientToUpstream, upstreamToClient int64
	wg.Add(2)

	go func() {
		defer wg.Done()
		clientToUpstream, _ = io.CopyBuffer(upstream, client, make([]byte, proxyBufferSize))
		halfClose(upstream, true)
		halfClose(client, false)
	}()
	go func() {
		defer wg.Done()
		upstreamToClient, _ = io.CopyBuffer(client, upstream, make([]byte, proxyBufferSize))
		halfClose(client, true)
		halfClose(upstream, false)
	}()
	wg.Wait()

	sess.logger.Debug("proxy tunnel closed",
		zap.String("target", target),
		zap.Int64("client_to_upstream_bytes", clientToUpstream),
		zap.Int64("upstream_to_client_bytes", upstreamToClient))
}

type closeWriter interface{ CloseWrite() error }
type closeReader interface{ CloseRead() error }

// halfClose shuts down one direction of conn when the other side's
// copy loop has exhausted its source. A transport that lacks the
// matching method (e.g. *tls.Conn has no CloseRead) is left untouched.
func halfClose(conn net.Conn, write bool) {
	if write {
		if cw, ok := conn.(closeWriter); ok {
			cw.CloseWrite()
			return
		}
	} else {
		if cr, ok := conn.(closeReader); ok {
			cr.CloseRead()
			return
		}
	}
}

// writeRawStatusLine writes a minimal status line with no body, used
// for failures that end the connection before a Response exists
// (bad request head, rejected WebSocket handshake, pre-tunnel proxy
// failures), where finalize()'s usual header bookkeeping doesn't apply.
func (sess *Session) writeRawStatusLine(status int, reason string) {
	sess.conn.SetWriteDeadline(time.Now().Add(sess.srv.writeTimeoutOrDefault()))
	defer sess.conn.SetWriteDeadline(time.Time{})
	fmt.Fprintf(sess.conn, "HTTP/1.1 %d %s\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", status, reason)
}
