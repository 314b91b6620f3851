// Accept loop, session registry, and graceful shutdown. Grounded on
// caddyserver/caddy's listeners.go/app.go Start()/Stop() pair: a
// WaitGroup tracking in-flight connections, a registry consulted only
// to abort live sessions, and idempotent teardown that closes the
// listener before waiting for workers to drain.
package kestrel

import (
	"errors"
	"net"

	"go.uber.org/zap"
)

// acceptLoop accepts connections until ln is closed (by Stop) or
// Accept returns a non-recoverable error, spawning one goroutine per
// connection; each goroutine's blocking I/O calls inside Session.run
// stand in for a single cooperatively-scheduled connection.
func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.stopping
			s.mu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			return err
		}
		sess := newSession(conn, s)
		s.registerSession(sess)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.unregisterSession(sess)
			sess.run()
		}()
	}
}

func (s *Server) registerSession(sess *Session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) unregisterSession(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

// Stop closes the acceptor and calls abort() on each registered
// session, then blocks until every session goroutine has returned.
// Safe to call more than once.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	ln := s.listener
	live := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, sess := range live {
		sess.abort()
	}
	s.wg.Wait()
	return nil
}
