package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/walteh/gorazor/cmd/razorc/compile"
	"github.com/walteh/gorazor/pkg/server"
)

// SocketEnv overrides the default socket path for every command.
const SocketEnv = "RAZORC_SOCKET"

func socketPath() string {
	if p := os.Getenv(SocketEnv); p != "" {
		return p
	}
	return server.DefaultSocketPath()
}

type Handler struct {
	socket      string
	keepAlive   time.Duration
	concurrency int
}

func NewServerCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "server",
		Short: "keep a compiler running and serve compile requests over a unix socket",
	}

	cmd.Flags().StringVar(&me.socket, "socket", socketPath(), "socket path")
	cmd.Flags().DurationVar(&me.keepAlive, "keep-alive", 10*time.Minute, "stop after this long without requests (0 keeps running)")
	cmd.Flags().IntVar(&me.concurrency, "concurrency", 0, "compilations at once (default: CPU count)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := server.Listen(me.socket)
	if err != nil {
		return err
	}
	srv := server.New(l, compile.NewServerHandler(), server.Options{
		Concurrency: me.concurrency,
		KeepAlive:   me.keepAlive,
	})
	zerolog.Ctx(ctx).Info().Str("socket", me.socket).Int("pid", os.Getpid()).Msg("starting compiler server")
	return srv.Serve(ctx)
}
