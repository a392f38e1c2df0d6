package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/cmd/razorc/compile"
	"github.com/walteh/gorazor/cmd/razorc/inspect"
	"github.com/walteh/gorazor/cmd/razorc/serve"
	logging "github.com/walteh/gorazor/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var verbose, logJSON bool

	rootCmd := &cobra.Command{
		Use:           "razorc",
		Short:         "A compiler for razor templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as json lines")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		cmd.SetContext(logging.WithLogger(cmd.Context(), os.Stderr, logging.Options{
			Level:  level,
			JSON:   logJSON,
			Color:  !color.NoColor,
			Caller: verbose,
		}))
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(compile.NewCompileCommand())
	rootCmd.AddCommand(inspect.NewParseCommand())
	rootCmd.AddCommand(inspect.NewIRCommand())
	rootCmd.AddCommand(inspect.NewTokensCommand())
	rootCmd.AddCommand(inspect.NewTagHelpersCommand())
	rootCmd.AddCommand(serve.NewServerCommand())
	rootCmd.AddCommand(serve.NewClientCommand())
	rootCmd.AddCommand(serve.NewShutdownCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
