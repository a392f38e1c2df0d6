package server

import (
	"context"
	"net"

	"gitlab.com/tozd/go/errors"
)

var (
	ErrRejected        = errors.Base("request rejected by compiler server")
	ErrVersionMismatch = errors.Base("compiler server speaks another protocol version")
)

type Client struct {
	Path string
}

func NewClient(path string) *Client {
	return &Client{Path: path}
}

// Send delivers req and waits for the answer. Cancelling ctx closes the
// connection, which cancels the work on the server.
func (me *Client) Send(ctx context.Context, req *Request) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", me.Path)
	if err != nil {
		return nil, errors.Errorf("connecting to %s: %w", me.Path, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := req.WriteTo(conn); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	resp, err := ReadResponse(conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return resp, nil
}

// Compile runs a compilation as if razorc were started in dir with args.
func (me *Client) Compile(ctx context.Context, dir string, args []string) (*CompletedResponse, error) {
	resp, err := me.Send(ctx, NewCompileRequest(dir, args))
	if err != nil {
		return nil, err
	}
	switch r := resp.(type) {
	case *CompletedResponse:
		return r, nil
	case *RejectedResponse:
		return nil, errors.Errorf("%s: %w", r.Reason, ErrRejected)
	case *MismatchedVersionResponse:
		return nil, errors.WithStack(ErrVersionMismatch)
	default:
		return nil, errors.Errorf("unexpected response type %d", resp.Type())
	}
}

// Shutdown asks the server to stop once its current work is done and
// returns the server's process id.
func (me *Client) Shutdown(ctx context.Context) (int, error) {
	resp, err := me.Send(ctx, NewShutdownRequest())
	if err != nil {
		return 0, err
	}
	switch r := resp.(type) {
	case *ShutdownResponse:
		return int(r.ServerProcessID), nil
	case *MismatchedVersionResponse:
		return 0, errors.WithStack(ErrVersionMismatch)
	default:
		return 0, errors.Errorf("unexpected response type %d", resp.Type())
	}
}
