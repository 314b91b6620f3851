package kestrel

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-http/kestrel/body"
	"github.com/kestrel-http/kestrel/kerr"
	"github.com/kestrel-http/kestrel/router"
)

const (
	// DefaultReadTimeout and DefaultWriteTimeout are the per-I/O-operation
	// deadlines applied when the embedder doesn't override them.
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds the upstream dial for a CONNECT
	// tunnel, a suspension point whose deadline is otherwise
	// unspecified, so it defaults to the same 30s ceiling.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultServerName is the value kestrel sets on the Server header
	// and in its own generated error pages unless overridden.
	DefaultServerName = "kestrel"
)

// Handler is a registered route's application callback.
type Handler func(*Request, *Response)

// Server owns a listener, the router, and the live session registry;
// it is the top-level embeddable type applications construct directly.
// Grounded on caddyserver/caddy's App (Provision/Start/Stop lifecycle,
// injectable *zap.Logger) adapted to a single-binary-embeddable type
// with no module registry or config-file layer: loading configuration
// from files or flags is left to the embedder.
type Server struct {
	router *router.Router
	logger *Logger
	name   string

	readTimeout    time.Duration
	writeTimeout   time.Duration
	connectTimeout time.Duration
	maxHeaderBytes int64
	maxBodyBytes   int64

	encodings []body.Encoding
	idGen     func() string

	mu       sync.Mutex
	listener net.Listener
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
	stopping bool

	tlsConfig *tls.Config
}

// Option configures a Server at construction time, the functional-
// options idiom used in place of a config-file schema.
type Option func(*Server)

func WithLogger(l *Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithReadTimeout(d time.Duration) Option    { return func(s *Server) { s.readTimeout = d } }
func WithWriteTimeout(d time.Duration) Option   { return func(s *Server) { s.writeTimeout = d } }
func WithConnectTimeout(d time.Duration) Option { return func(s *Server) { s.connectTimeout = d } }
func WithMaxHeaderBytes(n int64) Option         { return func(s *Server) { s.maxHeaderBytes = n } }
func WithMaxBodyBytes(n int64) Option           { return func(s *Server) { s.maxBodyBytes = n } }
func WithServerName(name string) Option         { return func(s *Server) { s.name = name } }
func WithIDGenerator(f func() string) Option    { return func(s *Server) { s.idGen = f } }

// WithEncodings overrides the server-wide supported content-coding
// set, the only other piece of injectable process-wide state.
func WithEncodings(encs ...body.Encoding) Option {
	return func(s *Server) { s.encodings = encs }
}

// New constructs a Server with an internal router and default
// timeouts/caps, ready for Listen/Run once routes are registered.
func New(opts ...Option) *Server {
	s := &Server{
		router:         router.New(),
		logger:         defaultLogger(),
		name:           DefaultServerName,
		readTimeout:    DefaultReadTimeout,
		writeTimeout:   DefaultWriteTimeout,
		connectTimeout: DefaultConnectTimeout,
		encodings:      []body.Encoding{body.Gzip, body.Deflate, body.Zstd},
		sessions:       make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the accept socket's bound address, or nil if Listen
// hasn't been called yet. Useful when Listen was given port 0 and the
// caller needs to discover which port the OS assigned.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Router returns the mutable route trie. Registration is safe to call
// before Listen/Run; concurrent registration once connections are
// being served is the caller's responsibility.
func (s *Server) Router() *router.Router { return s.router }

func (s *Server) SetReadTimeout(d time.Duration)  { s.readTimeout = d }
func (s *Server) SetWriteTimeout(d time.Duration) { s.writeTimeout = d }

// UseTLS installs a certificate/key pair for the DetectTls/HandshakeTls
// stages. Loading the bytes themselves (from disk, a secrets store, an
// ACME client, …) is the caller's responsibility; UseTLS only turns
// already-loaded PEM bytes into the tls.Config the session state
// machine consults. Encrypted private keys aren't supported: pass an
// already-decrypted key, or decrypt passphrase-protected keys before
// calling UseTLS.
func (s *Server) UseTLS(certPEM, keyPEM []byte, passphrase string) error {
	if passphrase != "" {
		return kerr.New(kerr.TLSHandshakeFailed, "server.use_tls",
			fmt.Errorf("encrypted private keys are not supported; decrypt the key before calling UseTLS"))
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return kerr.New(kerr.TLSHandshakeFailed, "server.use_tls", err)
	}
	s.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return nil
}

// Listen binds the accept socket. backlog is accepted for API
// symmetry with other network servers; Go's net package doesn't expose
// a portable backlog knob without platform-specific socket options, so
// the OS default is used (a documented deviation, not a silently
// dropped parameter).
func (s *Server) Listen(host string, port uint16, backlog int) error {
	_ = backlog
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", addr)
	if err != nil {
		return kerr.New(kerr.ParseError, "server.listen", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Run drives the accept loop until the listener is closed by Stop or
// fails; it blocks the calling goroutine.
func (s *Server) Run() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return kerr.New(kerr.ParseError, "server.run", fmt.Errorf("Listen must be called before Run"))
	}
	return s.acceptLoop(ln)
}

// AsyncRun launches Run on a new goroutine and returns a channel that
// receives its terminal error, for callers who don't want to block
// their own goroutine on the server.
func (s *Server) AsyncRun() <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.Run() }()
	return errc
}

func (s *Server) nextID() string {
	if s.idGen != nil {
		return s.idGen()
	}
	return uuid.NewString()
}

func (s *Server) readTimeoutOrDefault() time.Duration {
	if s.readTimeout > 0 {
		return s.readTimeout
	}
	return DefaultReadTimeout
}

func (s *Server) writeTimeoutOrDefault() time.Duration {
	if s.writeTimeout > 0 {
		return s.writeTimeout
	}
	return DefaultWriteTimeout
}

func (s *Server) connectTimeoutOrDefault() time.Duration {
	if s.connectTimeout > 0 {
		return s.connectTimeout
	}
	return DefaultConnectTimeout
}
