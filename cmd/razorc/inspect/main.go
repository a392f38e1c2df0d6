package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/cmd/razorc/compile"
	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/engine"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/semtok"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
)

type view int

const (
	viewSyntax view = iota
	viewIR
	viewTokens
)

type Handler struct {
	view       view
	config     string
	designTime bool
	lowered    bool
	encoded    bool

	path string
	fs   afero.Fs
	out  io.Writer
}

func NewParseCommand() *cobra.Command {
	return newCommand(&Handler{view: viewSyntax}, "parse FILE", "print the syntax tree of a template")
}

func NewIRCommand() *cobra.Command {
	me := &Handler{view: viewIR}
	cmd := newCommand(me, "ir FILE", "print the intermediate tree of a template as XML")
	cmd.Flags().BoolVar(&me.lowered, "lowered", false, "print the tree before the optimization passes")
	cmd.Flags().BoolVar(&me.designTime, "design-time", false, "lower for design time")
	return cmd
}

func NewTokensCommand() *cobra.Command {
	me := &Handler{view: viewTokens}
	cmd := newCommand(me, "tokens FILE", "print the classified tokens of a template")
	cmd.Flags().BoolVar(&me.encoded, "encoded", false, "print the relative encoding with its legend as JSON")
	return cmd
}

// NewTagHelpersCommand writes the tag helpers known to the configuration as a
// descriptor feed.
func NewTagHelpersCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "taghelpers [DIR]",
		Short: "print the configured tag helpers as a JSON descriptor feed",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringVar(&me.config, "config", "", "configuration file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.path = "."
		if len(args) > 0 {
			me.path = args[0]
		}
		me.out = cmd.OutOrStdout()
		eng, err := compile.LoadEngine(me.fs, me.path, me.config)
		if err != nil {
			return err
		}
		return taghelper.WriteDescriptors(me.out, eng.TagHelpers())
	}

	return cmd
}

func newCommand(me *Handler, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&me.config, "config", "", "configuration file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.path = args[0]
		me.out = cmd.OutOrStdout()
		if me.fs == nil {
			me.fs = afero.NewOsFs()
		}
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	var opts []engine.Option
	if me.designTime {
		opts = append(opts, engine.WithDesignTime(true))
	}
	eng, err := compile.LoadEngine(me.fs, filepath.Dir(me.path), me.config, opts...)
	if err != nil {
		return err
	}
	res, err := eng.ProcessFile(ctx, me.path)
	if err != nil {
		return err
	}

	switch me.view {
	case viewSyntax:
		fmt.Fprint(me.out, syntax.Dump(res.Syntax.Root))
		if len(res.Diagnostics) > 0 {
			text, err := diagnostic.NewTextFormatter(false).Format(res.Source, res.Diagnostics)
			if err != nil {
				return err
			}
			fmt.Fprintf(me.out, "\n%s", text)
		}
		return nil
	case viewIR:
		tree := res.Document
		if me.lowered {
			tree = res.Lowered
		}
		xml, err := ir.Serialize(tree)
		if err != nil {
			return err
		}
		fmt.Fprintln(me.out, xml)
		return nil
	case viewTokens:
		return me.printTokens(ctx, res)
	}
	return errors.Errorf("unknown view %d", me.view)
}

func (me *Handler) printTokens(ctx context.Context, res *engine.CodeDocument) error {
	tokens := semtok.Tokens(ctx, res.Syntax)
	if !me.encoded {
		for _, t := range tokens {
			p := t.Span.Location.Place()
			fmt.Fprintf(me.out, "%d:%d\t%s\t%s\t%q\n", p.Line+1, p.Character+1, t.Type, t.Modifier, t.Text)
		}
		return nil
	}

	types, modifiers := semtok.Legend()
	out, err := json.Marshal(struct {
		Types     []string `json:"tokenTypes"`
		Modifiers []string `json:"tokenModifiers"`
		Data      []uint32 `json:"data"`
	}{types, modifiers, semtok.Encode(tokens)})
	if err != nil {
		return errors.Errorf("marshalling tokens: %w", err)
	}
	fmt.Fprintln(me.out, string(out))
	return nil
}
