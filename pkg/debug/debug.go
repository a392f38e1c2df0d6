// Package debug sets up the zerolog loggers used by the command line tools.
package debug

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

type Options struct {
	Level zerolog.Level
	// JSON writes one object per line instead of the console format.
	JSON   bool
	Color  bool
	Caller bool
}

// NewLogger builds a logger writing to w.
func NewLogger(w io.Writer, opts Options) zerolog.Logger {
	if !opts.JSON {
		w = zerolog.ConsoleWriter{Out: w, NoColor: !opts.Color}
	}
	logger := zerolog.New(w).Level(opts.Level).Hook(TimeHook{})
	if opts.Caller {
		logger = logger.Hook(CallerHook{WithColor: opts.Color && !opts.JSON})
	}
	return logger
}

// WithLogger attaches a new logger to ctx.
func WithLogger(ctx context.Context, w io.Writer, opts Options) context.Context {
	return NewLogger(w, opts).WithContext(ctx)
}

func skipFrameCount(e *zerolog.Event) int {
	field := reflect.ValueOf(e).Elem().FieldByName("skipFrame")
	if field.IsValid() {
		return int(field.Int())
	}
	return 0
}

// TimeHook stamps events with millisecond precision.
type TimeHook struct {
	Format string
}

func (me TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := me.Format
	if format == "" {
		format = "2006-01-02T15:04:05.000Z07:00"
	}
	e.Str("time", time.Now().Format(format))
}

// CallerHook records the package, file and line that logged the event.
type CallerHook struct {
	WithColor bool
}

func (me CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	// Run <- (*Event).msg <- (*Event).Msg <- caller
	pc, file, line, ok := runtime.Caller(skipFrameCount(e) + 3)
	if !ok {
		return
	}
	pkg := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		pkg, _ = SplitFuncName(fn.Name())
	}
	e.Str("caller", FormatCaller(pkg, file, line, me.WithColor))
}

// SplitFuncName splits a runtime function name such as
// "github.com/a/b.(*T).M" into its package and function parts.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := max(strings.LastIndexByte(name, '/'), 0)
	dot := strings.IndexByte(name[lastSlash:], '.')
	if dot < 0 {
		return name, ""
	}
	dot += lastSlash
	pkg, function = name[:dot], name[dot+1:]
	return pkg, function
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		file = path[i+1:]
	}
	if !colorize {
		return fmt.Sprintf("%s:%s:%d", pkg, file, line)
	}
	sep := color.New(color.Faint).Sprint(":")
	return pkg + sep + color.New(color.Bold).Sprint(file) + sep + color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
}
