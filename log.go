package kestrel

import "go.uber.org/zap"

// Logger is the injectable structured logger every Server carries: a
// *zap.Logger that defaults to a safe no-op and can be overridden by
// the embedder, scoped to one Server instance instead of process-wide
// state.
type Logger = zap.Logger

func defaultLogger() *Logger {
	return zap.NewNop()
}

// sessionLogger returns a child logger tagged with the connection's
// correlation id and remote address, attached to every stage-transition
// and transport-error log line for that session.
func sessionLogger(base *Logger, sessionID, remoteAddr string) *Logger {
	return base.With(
		zap.String("session_id", sessionID),
		zap.String("remote_addr", remoteAddr),
	)
}
