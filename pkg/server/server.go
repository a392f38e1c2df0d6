// Package server keeps a compiler resident between builds.
//
//	client ──▶ unix socket ──▶ accept loop ──▶ connection goroutine
//	                                            │
//	                       version check ◀──────┤
//	                       shutdown ◀───────────┤ (waits for in-flight work)
//	                       compile ─▶ semaphore ─▶ Handler ─▶ response
//
// One request is served per connection. A client that hangs up cancels its
// compilation.
package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/semaphore"
)

var ErrAlreadyRunning = errors.Base("compiler server already running")

// Handler runs one compilation. ctx is cancelled when the client goes away
// or the server is stopped.
type Handler interface {
	Compile(ctx context.Context, req *Request) *CompletedResponse
}

type HandlerFunc func(ctx context.Context, req *Request) *CompletedResponse

func (f HandlerFunc) Compile(ctx context.Context, req *Request) *CompletedResponse {
	return f(ctx, req)
}

type Options struct {
	// Concurrency caps simultaneous compilations. Defaults to the CPU count.
	Concurrency int
	// KeepAlive stops the server after this long without connections. Zero
	// keeps it running until shut down.
	KeepAlive time.Duration
	// ProcessID is reported to shutdown callers. Defaults to os.Getpid.
	ProcessID int
}

// DefaultSocketPath is the per-user socket clients and servers agree on.
func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), "razorc-"+strconv.Itoa(os.Getuid())+".sock")
}

// Listen claims path for a single server instance. A socket that still
// answers means another server owns it; a dead one is replaced.
func Listen(path string) (net.Listener, error) {
	if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
		conn.Close()
		return nil, errors.Errorf("listening on %s: %w", path, ErrAlreadyRunning)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Errorf("removing stale socket %s: %w", path, err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, errors.Errorf("listening on %s: %w", path, err)
	}
	return l, nil
}

type Server struct {
	id       string
	listener net.Listener
	handler  Handler
	opts     Options
	sem      *semaphore.Weighted

	mu           sync.Mutex
	stopping     bool
	active       int
	lastActivity time.Time

	compiles sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func New(l net.Listener, h Handler, opts Options) *Server {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.ProcessID == 0 {
		opts.ProcessID = os.Getpid()
	}
	return &Server{
		id:           xid.New().String(),
		listener:     l,
		handler:      h,
		opts:         opts,
		sem:          semaphore.NewWeighted(int64(opts.Concurrency)),
		lastActivity: time.Now(),
		stop:         make(chan struct{}),
	}
}

// Serve accepts connections until ctx is done, or until a shutdown request or
// the keep-alive has stopped the server and its in-flight compilations have
// finished. It returns once every connection is finished.
func (me *Server) Serve(ctx context.Context) error {
	logger := zerolog.Ctx(ctx).With().Str("server_id", me.id).Logger()
	ctx = logger.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		select {
		case <-ctx.Done():
		case <-me.stop:
			// Keep answering while compilations drain: late shutdown requests
			// get the process id, late compile requests are rejected.
			me.compiles.Wait()
		}
		me.listener.Close()
	}()
	if me.opts.KeepAlive > 0 {
		background.Add(1)
		go func() {
			defer background.Done()
			me.watchIdle(ctx)
		}()
	}

	logger.Info().Str("addr", me.listener.Addr().String()).Int("concurrency", me.opts.Concurrency).Msg("compiler server listening")

	var conns sync.WaitGroup
	var serveErr error
	for {
		conn, err := me.listener.Accept()
		if err != nil {
			if !me.Stopping() && ctx.Err() == nil {
				serveErr = errors.Errorf("accepting connection: %w", err)
			}
			break
		}
		me.track(1)
		conns.Add(1)
		go func() {
			defer conns.Done()
			defer me.track(-1)
			me.handle(ctx, conn)
		}()
	}

	if serveErr != nil {
		cancel()
	}
	me.requestStop()
	conns.Wait()
	cancel()
	background.Wait()

	logger.Info().Msg("compiler server stopped")
	return serveErr
}

// Stopping reports whether the server has stopped taking compilations. It
// still accepts connections until the in-flight ones finish.
func (me *Server) Stopping() bool {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.stopping
}

// Connections is the number of connections being served.
func (me *Server) Connections() int {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.active
}

func (me *Server) requestStop() {
	me.mu.Lock()
	me.stopping = true
	me.mu.Unlock()
	me.stopOnce.Do(func() { close(me.stop) })
}

func (me *Server) track(delta int) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.active += delta
	me.lastActivity = time.Now()
}

func (me *Server) watchIdle(ctx context.Context) {
	ticker := time.NewTicker(max(me.opts.KeepAlive/4, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-me.stop:
			return
		case <-ticker.C:
			me.mu.Lock()
			idle := me.active == 0 && time.Since(me.lastActivity) >= me.opts.KeepAlive
			me.mu.Unlock()
			if idle {
				zerolog.Ctx(ctx).Info().Dur("keep_alive", me.opts.KeepAlive).Msg("idle timeout reached")
				me.requestStop()
				return
			}
		}
	}
}

// beginCompile registers an in-flight compilation unless the server is
// stopping.
func (me *Server) beginCompile() bool {
	me.mu.Lock()
	defer me.mu.Unlock()
	if me.stopping {
		return false
	}
	me.compiles.Add(1)
	return true
}

func (me *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	logger := zerolog.Ctx(ctx).With().Str("request_id", xid.New().String()).Logger()
	ctx = logger.WithContext(ctx)

	req, err := ReadRequest(conn)
	if err != nil {
		logger.Warn().Err(err).Msg("reading request")
		return
	}

	var resp Response
	switch {
	case req.ProtocolVersion != ProtocolVersion:
		logger.Warn().Int32("version", req.ProtocolVersion).Msg("mismatched protocol version")
		resp = &MismatchedVersionResponse{}
	case req.IsShutdown():
		logger.Info().Msg("shutdown requested")
		me.requestStop()
		me.compiles.Wait()
		resp = &ShutdownResponse{ServerProcessID: int32(me.opts.ProcessID)}
	default:
		resp = me.compile(ctx, conn, req)
		if resp == nil {
			return
		}
	}

	if err := WriteResponse(conn, resp); err != nil {
		logger.Debug().Err(err).Msg("writing response")
	}
}

// compile runs req on the worker pool. A nil response means the client is
// gone.
func (me *Server) compile(ctx context.Context, conn net.Conn, req *Request) Response {
	if !me.beginCompile() {
		return &RejectedResponse{Reason: "server is shutting down"}
	}
	defer me.compiles.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The client sends nothing after its request, so a read returns only once
	// it hangs up.
	hangup := make(chan struct{})
	go func() {
		defer close(hangup)
		var b [1]byte
		if _, err := conn.Read(b[:]); err != nil {
			cancel()
		}
	}()
	defer func() {
		_ = conn.SetReadDeadline(time.Now())
		<-hangup
	}()

	logger := zerolog.Ctx(ctx)
	if err := me.sem.Acquire(ctx, 1); err != nil {
		logger.Debug().Err(err).Msg("client left before compilation started")
		return nil
	}
	start := time.Now()
	resp := me.handler.Compile(ctx, req)
	me.sem.Release(1)

	if ctx.Err() != nil {
		logger.Debug().Dur("took", time.Since(start)).Msg("compilation cancelled")
		return nil
	}
	if resp == nil {
		resp = &CompletedResponse{ReturnCode: 1, UTF8Output: true, Output: "compiler returned no result\n"}
	}
	logger.Debug().Int32("return_code", resp.ReturnCode).Dur("took", time.Since(start)).Msg("compilation finished")
	return resp
}
