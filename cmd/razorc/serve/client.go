package serve

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/cmd/razorc/compile"
	"github.com/walteh/gorazor/pkg/server"
)

type ClientHandler struct {
	args   []string
	stdout io.Writer
	stderr io.Writer
}

func NewClientCommand() *cobra.Command {
	me := &ClientHandler{}

	cmd := &cobra.Command{
		Use:   "client [compile flags and paths...]",
		Short: "compile through a running compiler server, or locally when none answers",
		Long: "Arguments are passed to the compile command. An argument @file reads more\n" +
			"arguments from file, whitespace separated, skipping lines starting with #.\n" +
			"The socket is taken from $" + SocketEnv + ".",
		DisableFlagParsing: true,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.args = args
		me.stdout = cmd.OutOrStdout()
		me.stderr = cmd.ErrOrStderr()
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *ClientHandler) Run(ctx context.Context) error {
	wd, err := os.Getwd()
	if err != nil {
		return errors.Errorf("getting working directory: %w", err)
	}
	args, err := ExpandResponseFiles(afero.NewOsFs(), wd, me.args)
	if err != nil {
		return err
	}

	resp, err := server.NewClient(socketPath()).Compile(ctx, wd, args)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		zerolog.Ctx(ctx).Debug().Err(err).Msg("compiler server unavailable, compiling locally")
		cmd := compile.NewCompileCommand()
		cmd.SetArgs(args)
		cmd.SetOut(me.stdout)
		cmd.SetErr(me.stderr)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return cmd.ExecuteContext(ctx)
	}

	if _, err := io.WriteString(me.stdout, resp.Output); err != nil {
		return err
	}
	if resp.ReturnCode != 0 {
		return errors.WithStack(compile.ErrCompilationFailed)
	}
	return nil
}

// ExpandResponseFiles replaces every @file argument with the arguments
// listed in file. Relative files resolve against dir; nested response files
// are expanded too.
func ExpandResponseFiles(fs afero.Fs, dir string, args []string) ([]string, error) {
	return expand(fs, dir, args, map[string]bool{})
}

func expand(fs afero.Fs, dir string, args []string, seen map[string]bool) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") || len(arg) == 1 {
			out = append(out, arg)
			continue
		}
		path := arg[1:]
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if seen[path] {
			return nil, errors.Errorf("response file %s includes itself", path)
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.Errorf("reading response file: %w", err)
		}

		var listed []string
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			listed = append(listed, strings.Fields(line)...)
		}
		if err := scanner.Err(); err != nil {
			return nil, errors.Errorf("reading response file %s: %w", path, err)
		}

		seen[path] = true
		nested, err := expand(fs, filepath.Dir(path), listed, seen)
		delete(seen, path)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

type ShutdownHandler struct {
	socket string
	stdout io.Writer
}

func NewShutdownCommand() *cobra.Command {
	me := &ShutdownHandler{}

	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "stop the compiler server once its current compilations finish",
	}

	cmd.Flags().StringVar(&me.socket, "socket", socketPath(), "socket path")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.stdout = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *ShutdownHandler) Run(ctx context.Context) error {
	pid, err := server.NewClient(me.socket).Shutdown(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(me.stdout, "compiler server %d stopped\n", pid)
	return nil
}
