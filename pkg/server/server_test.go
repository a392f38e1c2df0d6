package server_test

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/walteh/gorazor/pkg/server"
)

type running struct {
	srv    *server.Server
	path   string
	client *server.Client
	errc   chan error
	cancel context.CancelFunc
}

func start(t *testing.T, h server.Handler, opts server.Options) *running {
	t.Helper()
	path := filepath.Join(t.TempDir(), "razorc.sock")
	l, err := server.Listen(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		srv:    server.New(l, h, opts),
		path:   path,
		client: server.NewClient(path),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	go func() { r.errc <- r.srv.Serve(ctx) }()
	return r
}

func (r *running) wait(t *testing.T) {
	t.Helper()
	select {
	case err := <-r.errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func echo(_ context.Context, req *server.Request) *server.CompletedResponse {
	return &server.CompletedResponse{
		UTF8Output: true,
		Output:     req.CurrentDirectory() + ": " + strings.Join(req.CommandLine(), " "),
	}
}

func TestCompile(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := start(t, server.HandlerFunc(echo), server.Options{Concurrency: 2})
	resp, err := r.client.Compile(context.Background(), "/src", []string{"compile", "a.cshtml"})
	require.NoError(t, err)
	assert.Equal(t, "/src: compile a.cshtml", resp.Output)
	assert.True(t, resp.UTF8Output)

	r.cancel()
	r.wait(t)
}

func TestMismatchedVersion(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := start(t, server.HandlerFunc(echo), server.Options{})
	defer r.wait(t)
	defer r.cancel()

	conn, err := net.Dial("unix", r.path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = (&server.Request{ProtocolVersion: server.ProtocolVersion - 1}).WriteTo(conn)
	require.NoError(t, err)
	resp, err := server.ReadResponse(conn)
	require.NoError(t, err)
	assert.IsType(t, &server.MismatchedVersionResponse{}, resp)
}

func TestShutdownWaitsForInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h := server.HandlerFunc(func(ctx context.Context, req *server.Request) *server.CompletedResponse {
		close(started)
		<-release
		return echo(ctx, req)
	})
	r := start(t, h, server.Options{ProcessID: 4242})
	defer r.cancel()

	compiled := make(chan *server.CompletedResponse, 1)
	go func() {
		resp, err := r.client.Compile(context.Background(), "/src", []string{"slow"})
		assert.NoError(t, err)
		compiled <- resp
	}()
	<-started

	// connections opened before the first shutdown
	var conns []net.Conn
	for range 3 {
		conn, err := net.Dial("unix", r.path)
		require.NoError(t, err)
		defer conn.Close()
		conns = append(conns, conn)
	}
	require.Eventually(t, func() bool { return r.srv.Connections() == 4 }, 5*time.Second, time.Millisecond)

	responses := make(chan server.Response, 2)
	for _, conn := range conns[:2] {
		_, err := server.NewShutdownRequest().WriteTo(conn)
		require.NoError(t, err)
		go func() {
			resp, err := server.ReadResponse(conn)
			assert.NoError(t, err)
			responses <- resp
		}()
	}
	require.Eventually(t, r.srv.Stopping, 5*time.Second, time.Millisecond)

	_, err := server.NewCompileRequest("/src", []string{"late"}).WriteTo(conns[2])
	require.NoError(t, err)
	late, err := server.ReadResponse(conns[2])
	require.NoError(t, err)
	assert.Equal(t, &server.RejectedResponse{Reason: "server is shutting down"}, late)

	select {
	case <-responses:
		t.Fatal("shutdown answered before the compilation finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, "/src: slow", (<-compiled).Output)
	for range 2 {
		assert.Equal(t, &server.ShutdownResponse{ServerProcessID: 4242}, <-responses)
	}
	r.wait(t)
}

func TestLateClientsWhileDraining(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h := server.HandlerFunc(func(ctx context.Context, req *server.Request) *server.CompletedResponse {
		close(started)
		<-release
		return echo(ctx, req)
	})
	r := start(t, h, server.Options{ProcessID: 99})
	defer r.cancel()

	compiled := make(chan *server.CompletedResponse, 1)
	go func() {
		resp, err := r.client.Compile(context.Background(), "/src", []string{"slow"})
		assert.NoError(t, err)
		compiled <- resp
	}()
	<-started

	pids := make(chan int, 2)
	shutdown := func() {
		pid, err := r.client.Shutdown(context.Background())
		assert.NoError(t, err)
		pids <- pid
	}
	go shutdown()
	require.Eventually(t, r.srv.Stopping, 5*time.Second, time.Millisecond)

	// dialed after the server started stopping
	go shutdown()
	_, err := r.client.Compile(context.Background(), "/src", []string{"late"})
	require.ErrorIs(t, err, server.ErrRejected)

	select {
	case <-pids:
		t.Fatal("shutdown answered before the compilation finished")
	case <-time.After(50 * time.Millisecond):
	}
	// the held compilation and both shutdown clients
	require.Eventually(t, func() bool { return r.srv.Connections() == 3 }, 5*time.Second, time.Millisecond)

	close(release)
	assert.Equal(t, "/src: slow", (<-compiled).Output)
	assert.Equal(t, 99, <-pids)
	assert.Equal(t, 99, <-pids)
	r.wait(t)
}

func TestClientHangupCancels(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	h := server.HandlerFunc(func(ctx context.Context, _ *server.Request) *server.CompletedResponse {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil
	})
	r := start(t, h, server.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := r.client.Compile(ctx, "/src", nil)
		errc <- err
	}()
	<-started
	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("compilation was not cancelled")
	}

	r.cancel()
	r.wait(t)
}

func TestKeepAlive(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := start(t, server.HandlerFunc(echo), server.Options{KeepAlive: 20 * time.Millisecond})
	defer r.cancel()
	r.wait(t)
	assert.True(t, r.srv.Stopping())
}

func TestClientShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := start(t, server.HandlerFunc(echo), server.Options{ProcessID: 7})
	defer r.cancel()

	pid, err := r.client.Shutdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, pid)
	r.wait(t)

	_, err = r.client.Compile(context.Background(), "/src", nil)
	assert.Error(t, err)
}

func TestListenSingleInstance(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "razorc.sock")
	l, err := server.Listen(path)
	require.NoError(t, err)

	_, err = server.Listen(path)
	assert.ErrorIs(t, err, server.ErrAlreadyRunning)

	l.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, l.Close())

	again, err := server.Listen(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}
