package compile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/gorazor/pkg/config"
	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/engine"
	"github.com/walteh/gorazor/pkg/finder"
	"github.com/walteh/gorazor/pkg/server"
	"github.com/walteh/gorazor/pkg/targz"
)

// ErrCompilationFailed is returned when any template has error diagnostics.
var ErrCompilationFailed = errors.Base("compilation failed")

type Handler struct {
	config     string
	designTime bool
	out        string
	archive    string
	from       string
	watch      bool
	format     string
	parallel   int
	noColor    bool

	inputs []string
	// names maps each template to its output name, relative to the input
	// it was found under.
	names map[string]string
	// dir resolves relative paths; empty means the process directory.
	dir    string
	remote bool
	stdout io.Writer
	stderr io.Writer
}

func NewCompileCommand() *cobra.Command {
	return newCommand(&Handler{})
}

func newCommand(me *Handler) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [paths...]",
		Short: "generate C# from razor templates",
		Long: "Compiles every template below the given directories (default: the current one)\n" +
			"and every template named directly. Output is written next to each source\n" +
			"unless --out or --archive is given.",
	}

	cmd.Flags().StringVar(&me.config, "config", "", "configuration file (default: razor.yaml, razor.yml or razor.hcl in the working directory)")
	cmd.Flags().BoolVar(&me.designTime, "design-time", false, "generate design time code")
	cmd.Flags().StringVar(&me.out, "out", "", "directory for generated files")
	cmd.Flags().StringVar(&me.archive, "archive", "", "write generated files into this tar.gz instead")
	cmd.Flags().StringVar(&me.from, "from", "", "read templates from this tar.gz")
	cmd.Flags().BoolVar(&me.watch, "watch", false, "recompile when templates change")
	cmd.Flags().StringVar(&me.format, "format", "text", "diagnostic format: text or json")
	cmd.Flags().IntVar(&me.parallel, "parallel", runtime.NumCPU(), "templates compiled at once")
	cmd.Flags().BoolVar(&me.noColor, "no-color", false, "disable colored diagnostics")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.inputs = args
		me.stdout = cmd.OutOrStdout()
		me.stderr = cmd.ErrOrStderr()
		return me.Run(cmd.Context())
	}

	return cmd
}

// NewServerHandler runs the compile command for requests of the compiler
// server, capturing its output.
func NewServerHandler() server.Handler {
	return server.HandlerFunc(func(ctx context.Context, req *server.Request) *server.CompletedResponse {
		var out bytes.Buffer
		cmd := newCommand(&Handler{dir: req.CurrentDirectory(), remote: true})
		cmd.SetArgs(req.CommandLine())
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true

		code := int32(0)
		if err := cmd.ExecuteContext(ctx); err != nil {
			code = 1
			fmt.Fprintln(&out, err)
		}
		return &server.CompletedResponse{ReturnCode: code, UTF8Output: true, Output: out.String()}
	})
}

// LoadEngine builds an engine from the configuration that applies to dir.
func LoadEngine(fs afero.Fs, dir, configPath string, opts ...engine.Option) (*engine.Engine, error) {
	cfg, err := config.Resolve(fs, dir, configPath, nil)
	if err != nil {
		return nil, err
	}
	return engine.FromConfig(cfg, append([]engine.Option{engine.WithFs(fs)}, opts...)...)
}

func (me *Handler) resolve(path string) string {
	if me.dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(me.dir, path)
}

func (me *Handler) Run(ctx context.Context) error {
	if me.format != "text" && me.format != "json" {
		return errors.Errorf("unknown diagnostic format %q", me.format)
	}
	if me.watch && (me.remote || me.from != "") {
		return errors.New("--watch needs local templates")
	}
	if me.from != "" && me.out == "" && me.archive == "" {
		return errors.New("--from needs --out or --archive")
	}

	fs, base, err := me.sourceFs()
	if err != nil {
		return err
	}
	var opts []engine.Option
	if me.designTime {
		opts = append(opts, engine.WithDesignTime(true))
	}
	configPath := me.config
	if configPath != "" {
		configPath = me.resolve(configPath)
	}
	eng, err := LoadEngine(fs, base, configPath, opts...)
	if err != nil {
		return err
	}

	files, err := me.templates(ctx, fs, base)
	if err != nil {
		return err
	}
	if me.watch {
		return me.runWatch(ctx, fs, eng, base, files)
	}
	return me.compile(ctx, eng, base, files)
}

// sourceFs returns the file system templates are read from and the base
// directory inputs are relative to.
func (me *Handler) sourceFs() (afero.Fs, string, error) {
	if me.from == "" {
		base, err := filepath.Abs(me.resolve("."))
		if err != nil {
			return nil, "", errors.Errorf("resolving working directory: %w", err)
		}
		return afero.NewOsFs(), base, nil
	}
	data, err := os.ReadFile(me.resolve(me.from))
	if err != nil {
		return nil, "", errors.Errorf("reading archive: %w", err)
	}
	fs, err := targz.Load(data, targz.LoadOptions{})
	if err != nil {
		return nil, "", err
	}
	return fs, ".", nil
}

func (me *Handler) templates(ctx context.Context, fs afero.Fs, base string) ([]string, error) {
	inputs := me.inputs
	if len(inputs) == 0 {
		inputs = []string{"."}
	}
	f, err := finder.New(fs)
	if err != nil {
		return nil, err
	}

	if me.names == nil {
		me.names = map[string]string{}
	}
	var out []string
	for _, in := range inputs {
		path := in
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		info, err := fs.Stat(path)
		if err != nil {
			return nil, errors.Errorf("reading input: %w", err)
		}
		if !info.IsDir() {
			me.names[path] = outputName(base, path)
			out = append(out, path)
			continue
		}
		found, err := f.FindTemplates(ctx, path)
		if err != nil {
			return nil, err
		}
		for _, file := range found {
			me.names[file] = outputName(path, file)
		}
		out = append(out, found...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

type summary struct {
	files    int
	errors   int
	warnings int
}

func (me *Handler) compile(ctx context.Context, eng *engine.Engine, base string, files []string) error {
	results := make([]*engine.CodeDocument, len(files))
	var mu sync.Mutex
	var failures *multierror.Error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(me.parallel, 1))
	for i, file := range files {
		g.Go(func() error {
			res, err := eng.ProcessFile(gctx, file)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				failures = multierror.Append(failures, err)
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var sum summary
	var archived []targz.File
	for i, res := range results {
		if res == nil {
			continue
		}
		sum.files++
		errs, warns := diagnostic.Count(res.Diagnostics)
		sum.errors += errs
		sum.warnings += warns
		if err := me.report(res); err != nil {
			failures = multierror.Append(failures, err)
		}

		name := me.nameOf(base, files[i]) + ".g.cs"
		if me.archive != "" {
			archived = append(archived, targz.File{Name: name, Data: []byte(res.Output.Text)})
			continue
		}
		if err := me.writeOutput(name, res); err != nil {
			failures = multierror.Append(failures, err)
		}
	}
	if me.archive != "" {
		if err := me.writeArchive(archived); err != nil {
			failures = multierror.Append(failures, err)
		}
	}

	zerolog.Ctx(ctx).Debug().Int("files", sum.files).Int("errors", sum.errors).Int("warnings", sum.warnings).Msg("compilation done")
	fmt.Fprintf(me.stdout, "compiled %d templates: %d errors, %d warnings\n", sum.files, sum.errors, sum.warnings)

	if err := failures.ErrorOrNil(); err != nil {
		return err
	}
	if sum.errors > 0 {
		return errors.WithStack(ErrCompilationFailed)
	}
	return nil
}

func (me *Handler) nameOf(base, path string) string {
	if name, ok := me.names[path]; ok {
		return name
	}
	return outputName(base, path)
}

// outputName is the generated file's path relative to base when it lies
// below base.
func outputName(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return rel
}

func (me *Handler) writeOutput(name string, res *engine.CodeDocument) error {
	path := res.Output.Path
	if me.out != "" {
		path = filepath.Join(me.resolve(me.out), name)
	}
	out := afero.NewOsFs()
	if err := out.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("creating output directory: %w", err)
	}
	if err := afero.WriteFile(out, path, []byte(res.Output.Text), 0o644); err != nil {
		return errors.Errorf("writing output: %w", err)
	}
	return nil
}

func (me *Handler) writeArchive(files []targz.File) error {
	f, err := os.Create(me.resolve(me.archive))
	if err != nil {
		return errors.Errorf("creating archive: %w", err)
	}
	if err := targz.Write(f, files); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("closing archive: %w", err)
	}
	return nil
}

func (me *Handler) report(res *engine.CodeDocument) error {
	if me.format == "json" {
		diags, err := diagnostic.NewVSCodeFormatter().Format(res.Source, res.Diagnostics)
		if err != nil {
			return err
		}
		line, err := json.Marshal(struct {
			Path        string          `json:"path"`
			Diagnostics json.RawMessage `json:"diagnostics"`
		}{res.Source.Path(), diags})
		if err != nil {
			return errors.Errorf("marshalling report: %w", err)
		}
		_, err = fmt.Fprintln(me.stdout, string(line))
		return err
	}
	if len(res.Diagnostics) == 0 {
		return nil
	}
	colorize := !me.noColor && !me.remote && !color.NoColor
	text, err := diagnostic.NewTextFormatter(colorize).Format(res.Source, res.Diagnostics)
	if err != nil {
		return err
	}
	_, err = me.stderr.Write(text)
	return err
}
